package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

const withdrawalNote = "Retiro de stock por baja del catálogo"

// MedicationUseCase casos de uso del catálogo. El stock no se toca aquí salvo en la baja con
// retiro, que pasa por el libro de movimientos con motivo catalog_withdrawal.
type MedicationUseCase struct {
	repo      repository.MedicationRepository
	batchRepo repository.BatchRepository
	txRunner  inventory.TxRunner
	ledger    *inventory.LedgerUseCase
}

// NewMedicationUseCase construye el caso de uso.
func NewMedicationUseCase(
	repo repository.MedicationRepository,
	batchRepo repository.BatchRepository,
	txRunner inventory.TxRunner,
	ledger *inventory.LedgerUseCase,
) *MedicationUseCase {
	return &MedicationUseCase{repo: repo, batchRepo: batchRepo, txRunner: txRunner, ledger: ledger}
}

// Create da de alta un medicamento activo. El código de barras, si viene, debe ser único.
func (uc *MedicationUseCase) Create(ctx context.Context, in dto.CreateMedicationRequest) (*dto.MedicationResponse, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	barcode := strings.TrimSpace(in.Barcode)
	if name == "" || category == "" || in.ReorderThreshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	if barcode != "" {
		existing, err := uc.repo.GetByBarcode(ctx, barcode)
		if err != nil {
			return nil, domain.Storage("buscar código de barras", err)
		}
		if existing != nil {
			return nil, domain.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	med := &entity.Medication{
		Name:             name,
		Category:         category,
		Strength:         strings.TrimSpace(in.Strength),
		Barcode:          barcode,
		ReorderThreshold: in.ReorderThreshold,
		Location:         strings.TrimSpace(in.Location),
		Shelf:            strings.TrimSpace(in.Shelf),
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, med); err != nil {
		return nil, domain.Storage("crear medicamento", err)
	}
	return toMedicationResponse(med), nil
}

// GetByID obtiene un medicamento por ID.
func (uc *MedicationUseCase) GetByID(ctx context.Context, id int64) (*dto.MedicationResponse, error) {
	med, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toMedicationResponse(med), nil
}

// GetByBarcode busca por código de barras (escaneo rápido).
func (uc *MedicationUseCase) GetByBarcode(ctx context.Context, barcode string) (*dto.MedicationResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.ErrInvalidInput
	}
	med, err := uc.repo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, domain.Storage("buscar código de barras", err)
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	return toMedicationResponse(med), nil
}

// Update actualiza los datos descriptivos. No modifica stock ni el flag activo.
func (uc *MedicationUseCase) Update(ctx context.Context, id int64, in dto.UpdateMedicationRequest) (*dto.MedicationResponse, error) {
	med, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if med.Name = strings.TrimSpace(*in.Name); med.Name == "" {
			return nil, domain.ErrInvalidInput
		}
	}
	if in.Category != nil {
		if med.Category = strings.TrimSpace(*in.Category); med.Category == "" {
			return nil, domain.ErrInvalidInput
		}
	}
	if in.Strength != nil {
		med.Strength = strings.TrimSpace(*in.Strength)
	}
	if in.Barcode != nil {
		barcode := strings.TrimSpace(*in.Barcode)
		if barcode != "" && barcode != med.Barcode {
			other, err := uc.repo.GetByBarcode(ctx, barcode)
			if err != nil {
				return nil, domain.Storage("buscar código de barras", err)
			}
			if other != nil && other.ID != med.ID {
				return nil, domain.ErrDuplicate
			}
		}
		med.Barcode = barcode
	}
	if in.ReorderThreshold != nil {
		if *in.ReorderThreshold < 0 {
			return nil, domain.ErrInvalidInput
		}
		med.ReorderThreshold = *in.ReorderThreshold
	}
	if in.Location != nil {
		med.Location = strings.TrimSpace(*in.Location)
	}
	if in.Shelf != nil {
		med.Shelf = strings.TrimSpace(*in.Shelf)
	}
	med.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, med); err != nil {
		return nil, domain.Storage("actualizar medicamento", err)
	}
	return toMedicationResponse(med), nil
}

// List lista el catálogo con filtros y paginación.
func (uc *MedicationUseCase) List(ctx context.Context, filter repository.MedicationFilter, limit, offset int) (*dto.MedicationListResponse, error) {
	list, err := uc.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, domain.Storage("listar medicamentos", err)
	}
	items := make([]dto.MedicationResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *toMedicationResponse(m))
	}
	return &dto.MedicationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Count: len(items)},
	}, nil
}

// Categories tipos de medicamento distintos presentes en el catálogo.
func (uc *MedicationUseCase) Categories(ctx context.Context) ([]string, error) {
	cats, err := uc.repo.Categories(ctx)
	if err != nil {
		return nil, domain.Storage("listar categorías", err)
	}
	return cats, nil
}

// Deactivate da de baja lógica el medicamento. Con WriteOff, en la misma transacción, cada existencia
// con stock recibe una salida por su saldo completo con motivo catalog_withdrawal; todas comparten operation_id.
func (uc *MedicationUseCase) Deactivate(ctx context.Context, id, userID int64, in dto.DeactivateMedicationRequest) (*dto.DeactivateMedicationResponse, error) {
	med, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !med.Active {
		return nil, domain.ErrConflict
	}
	if in.WriteOff && userID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var lockIDs []int64
	if in.WriteOff {
		batches, err := uc.batchRepo.ListByMedication(ctx, id)
		if err != nil {
			return nil, domain.Storage("listar existencias", err)
		}
		for _, b := range batches {
			lockIDs = append(lockIDs, b.ID)
		}
	}
	release, err := uc.ledger.LockBatches(ctx, lockIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = withdrawalNote
	}
	operationID := uuid.NewString()
	var withdrawals []*entity.Movement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		batchRepo repository.BatchRepository,
		medRepo repository.MedicationRepository,
	) error {
		// La lectura previa puede estar vencida: se repite con la fila bloqueada
		current, err := medRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if !current.Active {
			return domain.ErrConflict
		}
		if err := medRepo.SetActive(ctx, id, false); err != nil {
			return err
		}
		if !in.WriteOff {
			return nil
		}
		batches, err := batchRepo.ListByMedication(ctx, id)
		if err != nil {
			return err
		}
		for _, b := range batches {
			if b.Quantity == 0 {
				continue
			}
			mov, err := uc.ledger.ApplyInTx(ctx, movRepo, batchRepo, inventory.MovementInput{
				BatchID:  b.ID,
				Kind:     entity.MovementOutbound,
				Quantity: b.Quantity,
				UserID:   userID,
				Notes:    notes,
				Reason:   entity.ReasonCatalogWithdrawal,
			}, operationID)
			if err != nil {
				return err
			}
			withdrawals = append(withdrawals, mov)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.ledger.Committed(withdrawals...)

	med.Active = false
	out := &dto.DeactivateMedicationResponse{
		Medication:  *toMedicationResponse(med),
		Withdrawals: make([]dto.MovementResponse, 0, len(withdrawals)),
	}
	if len(withdrawals) > 0 {
		out.OperationID = operationID
	}
	for _, m := range withdrawals {
		out.Withdrawals = append(out.Withdrawals, dto.NewMovementResponse(m))
	}
	return out, nil
}

// Reactivate vuelve a activar un medicamento dado de baja.
func (uc *MedicationUseCase) Reactivate(ctx context.Context, id int64) (*dto.MedicationResponse, error) {
	med, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if med.Active {
		return toMedicationResponse(med), nil
	}
	if err := uc.repo.SetActive(ctx, id, true); err != nil {
		return nil, domain.Storage("reactivar medicamento", err)
	}
	med.Active = true
	return toMedicationResponse(med), nil
}

func (uc *MedicationUseCase) get(ctx context.Context, id int64) (*entity.Medication, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	med, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage("obtener medicamento", err)
	}
	if med == nil {
		return nil, domain.ErrNotFound
	}
	return med, nil
}

func toMedicationResponse(m *entity.Medication) *dto.MedicationResponse {
	if m == nil {
		return nil
	}
	return &dto.MedicationResponse{
		ID:               m.ID,
		Name:             m.Name,
		Category:         m.Category,
		Strength:         m.Strength,
		Barcode:          m.Barcode,
		ReorderThreshold: m.ReorderThreshold,
		Location:         m.Location,
		Shelf:            m.Shelf,
		Active:           m.Active,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
