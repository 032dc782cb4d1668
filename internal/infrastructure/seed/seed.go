// Package seed carga un catálogo inicial desde YAML usando los mismos casos de uso que la API,
// de modo que el stock sembrado siempre queda respaldado por movimientos del libro.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// File estructura del archivo de carga.
type File struct {
	Users       []User       `yaml:"users"`
	Medications []Medication `yaml:"medications"`
}

// User operador a crear.
type User struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Medication medicamento con sus existencias.
type Medication struct {
	Name             string  `yaml:"name"`
	Category         string  `yaml:"category"`
	Strength         string  `yaml:"strength"`
	Barcode          string  `yaml:"barcode"`
	ReorderThreshold int64   `yaml:"reorder_threshold"`
	Location         string  `yaml:"location"`
	Shelf            string  `yaml:"shelf"`
	Batches          []Batch `yaml:"batches"`
}

// Batch existencia con stock inicial y movimientos posteriores.
type Batch struct {
	ReferenceCode   string     `yaml:"reference_code"`
	InitialQuantity int64      `yaml:"initial_quantity"`
	RegisteredOn    string     `yaml:"registered_on"`
	Movements       []Movement `yaml:"movements"`
}

// Movement movimiento a registrar sobre la existencia. Type acepta los alias en español.
type Movement struct {
	Type     string `yaml:"type"`
	Quantity int64  `yaml:"quantity"`
	Notes    string `yaml:"notes"`
}

// Result resumen de lo aplicado.
type Result struct {
	Users       int `json:"users"`
	Medications int `json:"medications"`
	Batches     int `json:"batches"`
	Movements   int `json:"movements"`
	Skipped     int `json:"skipped"`
}

// Parse decodifica el YAML rechazando campos desconocidos.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("seed: %w", err)
	}
	return &f, nil
}

// ParseFile abre y decodifica path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: abrir %s: %w", path, err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Seeder aplica un File. Es idempotente: los medicamentos se identifican por código de barras y
// las existencias por código de referencia; lo que ya existe se omite junto con sus movimientos.
type Seeder struct {
	users   *usecase.UserUseCase
	meds    *usecase.MedicationUseCase
	batches *inventory.BatchUseCase
	ledger  *inventory.LedgerUseCase
	log     zerolog.Logger
}

// NewSeeder construye el cargador sobre los casos de uso.
func NewSeeder(
	users *usecase.UserUseCase,
	meds *usecase.MedicationUseCase,
	batches *inventory.BatchUseCase,
	ledger *inventory.LedgerUseCase,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{users: users, meds: meds, batches: batches, ledger: ledger, log: log.With().Str("component", "seed").Logger()}
}

// Apply carga el archivo. userID es el operador al que se atribuyen los movimientos; si es 0 se
// usa el primer usuario del archivo (o el primero existente).
func (s *Seeder) Apply(ctx context.Context, f *File, userID int64) (*Result, error) {
	res := &Result{}

	existing, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]int64, len(existing))
	for _, u := range existing {
		known[u.Name] = u.ID
	}
	for _, u := range f.Users {
		if id, ok := known[u.Name]; ok {
			if userID == 0 {
				userID = id
			}
			res.Skipped++
			continue
		}
		created, err := s.users.Create(ctx, u.Name, u.Role)
		if err != nil {
			return nil, fmt.Errorf("usuario %q: %w", u.Name, err)
		}
		known[created.Name] = created.ID
		if userID == 0 {
			userID = created.ID
		}
		res.Users++
	}
	if userID == 0 && len(existing) > 0 {
		userID = existing[0].ID
	}
	if userID == 0 {
		return nil, fmt.Errorf("seed: no hay operador para atribuir movimientos: %w", domain.ErrInvalidInput)
	}

	for _, m := range f.Medications {
		if err := s.applyMedication(ctx, m, userID, res); err != nil {
			return nil, fmt.Errorf("medicamento %q: %w", m.Name, err)
		}
	}
	s.log.Info().
		Int("users", res.Users).
		Int("medications", res.Medications).
		Int("batches", res.Batches).
		Int("movements", res.Movements).
		Int("skipped", res.Skipped).
		Msg("carga inicial aplicada")
	return res, nil
}

func (s *Seeder) applyMedication(ctx context.Context, m Medication, userID int64, res *Result) error {
	var medID int64
	if m.Barcode != "" {
		found, err := s.meds.GetByBarcode(ctx, m.Barcode)
		switch {
		case err == nil:
			medID = found.ID
			res.Skipped++
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}
	if medID == 0 {
		created, err := s.meds.Create(ctx, dto.CreateMedicationRequest{
			Name:             m.Name,
			Category:         m.Category,
			Strength:         m.Strength,
			Barcode:          m.Barcode,
			ReorderThreshold: m.ReorderThreshold,
			Location:         m.Location,
			Shelf:            m.Shelf,
		})
		if err != nil {
			return err
		}
		medID = created.ID
		res.Medications++
	}

	for _, b := range m.Batches {
		if err := s.applyBatch(ctx, medID, b, userID, res); err != nil {
			return fmt.Errorf("existencia %q: %w", b.ReferenceCode, err)
		}
	}
	return nil
}

func (s *Seeder) applyBatch(ctx context.Context, medID int64, b Batch, userID int64, res *Result) error {
	_, err := s.batches.GetByReference(ctx, b.ReferenceCode)
	if err == nil {
		res.Skipped++
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var registeredOn time.Time
	if b.RegisteredOn != "" {
		registeredOn, err = time.Parse(dto.DateLayout, b.RegisteredOn)
		if err != nil {
			return fmt.Errorf("registered_on %q: %w", b.RegisteredOn, domain.ErrInvalidInput)
		}
	}
	batch, initial, err := s.batches.CreateBatch(ctx, inventory.CreateBatchInput{
		MedicationID:    medID,
		ReferenceCode:   b.ReferenceCode,
		InitialQuantity: b.InitialQuantity,
		RegisteredOn:    registeredOn,
		UserID:          userID,
	})
	if err != nil {
		return err
	}
	res.Batches++
	if initial != nil {
		res.Movements++
	}

	for _, mv := range b.Movements {
		kind, ok := entity.ParseMovementKind(mv.Type)
		if !ok {
			return fmt.Errorf("tipo de movimiento %q: %w", mv.Type, domain.ErrInvalidInput)
		}
		if _, err := s.ledger.RecordMovement(ctx, inventory.MovementInput{
			BatchID:  batch.ID,
			Kind:     kind,
			Quantity: mv.Quantity,
			UserID:   userID,
			Notes:    mv.Notes,
		}); err != nil {
			return err
		}
		res.Movements++
	}
	return nil
}
