package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/ledger"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// LedgerUseCase es la única vía para modificar la cantidad de una existencia.
// Cada movimiento se registra en una transacción (SELECT FOR UPDATE + Commit/Rollback) y además
// se serializa por existencia dentro del proceso.
type LedgerUseCase struct {
	txRunner  TxRunner
	batchRepo repository.BatchRepository
	movRepo   repository.MovementRepository
	locks     *batchLocks
	now       func() time.Time
	log       zerolog.Logger
	observer  MovementObserver
}

// NewLedgerUseCase construye el caso de uso del libro de movimientos.
func NewLedgerUseCase(
	txRunner TxRunner,
	batchRepo repository.BatchRepository,
	movRepo repository.MovementRepository,
	log zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:  txRunner,
		batchRepo: batchRepo,
		movRepo:   movRepo,
		locks:     newBatchLocks(),
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With().Str("component", "ledger").Logger(),
		observer:  nopObserver{},
	}
}

// WithObserver registra el observador de movimientos (métricas).
func (uc *LedgerUseCase) WithObserver(o MovementObserver) *LedgerUseCase {
	if o != nil {
		uc.observer = o
	}
	return uc
}

// WithClock reemplaza el reloj (pruebas y cargas con fecha fija).
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// MovementInput entrada de RecordMovement. UserID es obligatorio: no hay usuario implícito.
type MovementInput struct {
	BatchID  int64
	Kind     entity.MovementKind
	Quantity int64
	UserID   int64
	Notes    string
	Reason   string // vacío = standard
}

// RecordMovement valida y aplica un movimiento: agrega la entrada al libro y actualiza el saldo
// de la existencia en una sola transacción. Devuelve el movimiento creado.
// Errores: ErrInvalidInput, ErrNotFound, *InsufficientStockError, *StorageError. Ninguno deja cambios.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	if err := ledger.Validate(in.Kind, in.Quantity, in.UserID); err != nil {
		uc.rejected(in, err)
		return nil, err
	}

	release, err := uc.locks.acquire(ctx, in.BatchID)
	if err != nil {
		uc.rejected(in, err)
		return nil, err
	}
	defer release()

	var created *entity.Movement
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		batchRepo repository.BatchRepository,
		_ repository.MedicationRepository,
	) error {
		mov, err := uc.ApplyInTx(ctx, movRepo, batchRepo, in, uuid.NewString())
		if err != nil {
			return err
		}
		created = mov
		return nil
	})
	if err != nil {
		uc.rejected(in, err)
		return nil, err
	}
	uc.Committed(created)
	return created, nil
}

// Committed registra en log y métricas movimientos ya confirmados. Los casos de uso que aplican
// movimientos con ApplyInTx lo llaman después de su Commit.
func (uc *LedgerUseCase) Committed(movs ...*entity.Movement) {
	for _, m := range movs {
		if m == nil {
			continue
		}
		uc.log.Info().
			Int64("movement_id", m.ID).
			Str("operation_id", m.OperationID).
			Int64("batch_id", m.BatchID).
			Str("kind", string(m.Kind)).
			Str("reason", m.Reason).
			Int64("quantity", m.Quantity).
			Int64("user_id", m.UserID).
			Msg("movimiento registrado")
		uc.observer.MovementCommitted(m)
	}
}

func (uc *LedgerUseCase) rejected(in MovementInput, err error) {
	uc.log.Debug().Err(err).
		Int64("batch_id", in.BatchID).
		Str("kind", string(in.Kind)).
		Int64("quantity", in.Quantity).
		Msg("movimiento rechazado")
	uc.observer.MovementRejected(in.Kind, err)
}

// ApplyInTx aplica un movimiento usando los repositorios de la transacción del llamador
// (registro de existencias, retiro de catálogo). El llamador debe tener tomado el lock de la existencia
// o trabajar sobre una existencia recién creada en la misma transacción.
func (uc *LedgerUseCase) ApplyInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	batchRepo repository.BatchRepository,
	in MovementInput,
	operationID string,
) (*entity.Movement, error) {
	if err := ledger.Validate(in.Kind, in.Quantity, in.UserID); err != nil {
		return nil, err
	}
	// Bloquea la fila de la existencia hasta el Commit/Rollback
	batch, err := batchRepo.GetForUpdate(ctx, in.BatchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}
	newQty, err := ledger.Apply(batch.ID, batch.Quantity, in.Kind, in.Quantity)
	if err != nil {
		return nil, err
	}

	reason := in.Reason
	if reason == "" {
		reason = entity.ReasonStandard
	}
	mov := &entity.Movement{
		OperationID: operationID,
		BatchID:     batch.ID,
		Kind:        in.Kind,
		Quantity:    in.Quantity,
		Reason:      reason,
		OccurredAt:  uc.now(),
		UserID:      in.UserID,
		Notes:       in.Notes,
	}
	// Primero la entrada del libro, luego el saldo; si cualquiera falla la tx se revierte completa
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	if err := batchRepo.SetQuantity(ctx, batch.ID, newQty); err != nil {
		return nil, err
	}
	return mov, nil
}

// ListMovements devuelve el historial más reciente primero (empates en orden de inserción).
// Cada llamada consulta el estado del libro en ese momento.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if filter.BatchID < 0 || filter.MedicationID < 0 || filter.Offset < 0 {
		return nil, domain.ErrInvalidInput
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, domain.ErrInvalidInput
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultMovementLimit
	}
	if filter.Limit > maxMovementLimit {
		filter.Limit = maxMovementLimit
	}
	list, err := uc.movRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.Storage("listar movimientos", err)
	}
	return list, nil
}

// GetMovement obtiene un movimiento por ID.
func (uc *LedgerUseCase) GetMovement(ctx context.Context, id int64) (*entity.Movement, error) {
	mov, err := uc.movRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage("obtener movimiento", err)
	}
	if mov == nil {
		return nil, domain.ErrNotFound
	}
	return mov, nil
}

// CurrentBalance devuelve la cantidad actual de la existencia (contador mantenido por el libro).
func (uc *LedgerUseCase) CurrentBalance(ctx context.Context, batchID int64) (int64, error) {
	batch, err := uc.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return 0, domain.Storage("obtener existencia", err)
	}
	if batch == nil {
		return 0, domain.ErrNotFound
	}
	return batch.Quantity, nil
}

// Reconciliation resultado de comparar el contador con la suma del libro.
type Reconciliation struct {
	BatchID   int64
	Counter   int64
	LedgerSum int64
}

// Consistent indica si ambas vistas coinciden.
func (r Reconciliation) Consistent() bool { return r.Counter == r.LedgerSum }

// ReconcileBatch lee el contador y la suma del libro bajo el mismo bloqueo, para que ningún
// movimiento concurrente se cuele entre ambas lecturas.
func (uc *LedgerUseCase) ReconcileBatch(ctx context.Context, batchID int64) (*Reconciliation, error) {
	release, err := uc.locks.acquire(ctx, batchID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *Reconciliation
	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		batchRepo repository.BatchRepository,
		_ repository.MedicationRepository,
	) error {
		batch, err := batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrNotFound
		}
		sum, err := movRepo.NetByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		out = &Reconciliation{BatchID: batchID, Counter: batch.Quantity, LedgerSum: sum}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent() {
		uc.log.Error().
			Int64("batch_id", batchID).
			Int64("counter", out.Counter).
			Int64("ledger_sum", out.LedgerSum).
			Msg("saldo de existencia no coincide con el libro")
	}
	return out, nil
}

// LockBatches toma el lock en proceso de varias existencias para operaciones que aplican
// movimientos con ApplyInTx fuera de este caso de uso (retiro de catálogo).
func (uc *LedgerUseCase) LockBatches(ctx context.Context, ids ...int64) (func(), error) {
	return uc.locks.acquire(ctx, ids...)
}
