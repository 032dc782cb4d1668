package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

const initialStockNote = "Registro inicial de existencia"

// BatchUseCase registra y consulta existencias. La cantidad nunca se fija directamente:
// una existencia nace en cero y su stock inicial entra como movimiento del libro.
type BatchUseCase struct {
	txRunner  TxRunner
	batchRepo repository.BatchRepository
	ledger    *LedgerUseCase
}

// NewBatchUseCase construye el caso de uso.
func NewBatchUseCase(txRunner TxRunner, batchRepo repository.BatchRepository, ledger *LedgerUseCase) *BatchUseCase {
	return &BatchUseCase{txRunner: txRunner, batchRepo: batchRepo, ledger: ledger}
}

// CreateBatchInput entrada para registrar una existencia.
type CreateBatchInput struct {
	MedicationID    int64
	ReferenceCode   string
	InitialQuantity int64
	RegisteredOn    time.Time // cero = hoy
	UserID          int64
	Notes           string
}

// CreateBatch valida el medicamento (existente y activo) y la unicidad del código de referencia,
// inserta la existencia en cero y, si hay stock inicial, registra la entrada en la misma transacción.
func (uc *BatchUseCase) CreateBatch(ctx context.Context, in CreateBatchInput) (*entity.Batch, *entity.Movement, error) {
	in.ReferenceCode = strings.TrimSpace(in.ReferenceCode)
	if in.MedicationID <= 0 || in.ReferenceCode == "" || in.InitialQuantity < 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	if in.InitialQuantity > 0 && in.UserID <= 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	registeredOn := in.RegisteredOn
	if registeredOn.IsZero() {
		registeredOn = uc.ledger.now()
	}
	registeredOn = time.Date(registeredOn.Year(), registeredOn.Month(), registeredOn.Day(), 0, 0, 0, 0, time.UTC)

	var (
		batch   *entity.Batch
		initial *entity.Movement
	)
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		batchRepo repository.BatchRepository,
		medRepo repository.MedicationRepository,
	) error {
		// Bloquea el medicamento: una baja concurrente espera o se ve ya aplicada
		med, err := medRepo.GetForUpdate(ctx, in.MedicationID)
		if err != nil {
			return err
		}
		if med == nil {
			return domain.ErrNotFound
		}
		if !med.Active {
			return domain.ErrConflict
		}
		existing, err := batchRepo.GetByReference(ctx, in.ReferenceCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicate
		}

		now := uc.ledger.now()
		b := &entity.Batch{
			MedicationID:  in.MedicationID,
			ReferenceCode: in.ReferenceCode,
			Quantity:      0,
			RegisteredOn:  registeredOn,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := batchRepo.Create(ctx, b); err != nil {
			return err
		}
		if in.InitialQuantity > 0 {
			notes := strings.TrimSpace(in.Notes)
			if notes == "" {
				notes = initialStockNote
			}
			mov, err := uc.ledger.ApplyInTx(ctx, movRepo, batchRepo, MovementInput{
				BatchID:  b.ID,
				Kind:     entity.MovementInbound,
				Quantity: in.InitialQuantity,
				UserID:   in.UserID,
				Notes:    notes,
				Reason:   entity.ReasonInitialStock,
			}, uuid.NewString())
			if err != nil {
				return err
			}
			b.Quantity = in.InitialQuantity
			initial = mov
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	uc.ledger.Committed(initial)
	return batch, initial, nil
}

// GetBatch obtiene una existencia por ID.
func (uc *BatchUseCase) GetBatch(ctx context.Context, id int64) (*entity.Batch, error) {
	b, err := uc.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage("obtener existencia", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// GetByReference busca una existencia por su código de referencia (lectura de código de barras del lote).
func (uc *BatchUseCase) GetByReference(ctx context.Context, code string) (*entity.Batch, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidInput
	}
	b, err := uc.batchRepo.GetByReference(ctx, code)
	if err != nil {
		return nil, domain.Storage("obtener existencia por referencia", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// ListBatches lista existencias; con medicationID > 0 solo las de ese medicamento.
func (uc *BatchUseCase) ListBatches(ctx context.Context, medicationID int64, limit, offset int) ([]*entity.Batch, error) {
	var (
		list []*entity.Batch
		err  error
	)
	if medicationID > 0 {
		list, err = uc.batchRepo.ListByMedication(ctx, medicationID)
	} else {
		list, err = uc.batchRepo.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, domain.Storage("listar existencias", err)
	}
	return list, nil
}
