package inventory_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// memState estado completo del almacén en memoria.
type memState struct {
	meds    map[int64]entity.Medication
	batches map[int64]entity.Batch
	movs    []entity.Movement
	nextID  int64
}

func (s *memState) clone() *memState {
	c := &memState{
		meds:    make(map[int64]entity.Medication, len(s.meds)),
		batches: make(map[int64]entity.Batch, len(s.batches)),
		movs:    append([]entity.Movement(nil), s.movs...),
		nextID:  s.nextID,
	}
	for k, v := range s.meds {
		c.meds[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore almacén en memoria con transacciones copy-on-commit serializadas.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		meds:    map[int64]entity.Medication{},
		batches: map[int64]entity.Batch{},
	}}
}

// view ejecuta fn sobre el estado confirmado.
func (m *memStore) view(fn func(s *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

// memTxRunner serializa las transacciones y confirma la copia solo si fn no falla.
// wrapBatch sustituye el repositorio de existencias de la transacción (inyección de fallos).
type memTxRunner struct {
	store     *memStore
	wrapBatch func(repository.BatchRepository) repository.BatchRepository
}

func (r *memTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	batchRepo repository.BatchRepository,
	medRepo repository.MedicationRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Storage("begin transaction", err)
	}
	work := r.store.state.clone()
	var batchRepo repository.BatchRepository = memBatchRepo{work}
	if r.wrapBatch != nil {
		batchRepo = r.wrapBatch(batchRepo)
	}
	if err := fn(memMovementRepo{work}, batchRepo, memMedicationRepo{work}); err != nil {
		return domain.Storage("transaction", err)
	}
	r.store.state = work
	return nil
}

// racyTxRunner trabaja cada transacción sobre su propia copia sin excluir a las demás y confirma
// con "último en escribir gana". Solo el lock por existencia del libro evita la actualización perdida.
// afterRead se invoca tras leer la existencia con GetForUpdate, antes de escribir el saldo.
type racyTxRunner struct {
	store     *memStore
	afterRead func()
}

func (r *racyTxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	batchRepo repository.BatchRepository,
	medRepo repository.MedicationRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return domain.Storage("begin transaction", err)
	}
	var work *memState
	r.store.view(func(s *memState) { work = s.clone() })
	base := len(work.movs)
	batches := &pausingBatchRepo{memBatchRepo: memBatchRepo{work}, afterRead: r.afterRead, touched: map[int64]bool{}}
	if err := fn(memMovementRepo{work}, batches, memMedicationRepo{work}); err != nil {
		return domain.Storage("transaction", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id := range batches.touched {
		r.store.state.batches[id] = work.batches[id]
	}
	for _, m := range work.movs[base:] {
		m.ID = r.store.state.id()
		r.store.state.movs = append(r.store.state.movs, m)
	}
	return nil
}

type pausingBatchRepo struct {
	memBatchRepo
	afterRead func()
	touched   map[int64]bool
}

func (r *pausingBatchRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error) {
	b, err := r.memBatchRepo.GetForUpdate(ctx, id)
	if r.afterRead != nil {
		r.afterRead()
	}
	return b, err
}

func (r *pausingBatchRepo) SetQuantity(ctx context.Context, id, qty int64) error {
	r.touched[id] = true
	return r.memBatchRepo.SetQuantity(ctx, id, qty)
}

// rendezvous espera a que lleguen parties llamadas o a que venza wait, lo que ocurra primero.
func rendezvous(parties int, wait time.Duration) func() {
	var (
		mu      sync.Mutex
		arrived int
	)
	all := make(chan struct{})
	return func() {
		mu.Lock()
		arrived++
		if arrived == parties {
			close(all)
		}
		mu.Unlock()
		select {
		case <-all:
		case <-time.After(wait):
		}
	}
}

// lockedBatchRepo repos de lectura fuera de transacción, sobre el estado confirmado.
type lockedBatchRepo struct{ store *memStore }

func (r lockedBatchRepo) with(fn func(repository.BatchRepository) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(memBatchRepo{r.store.state})
}

func (r lockedBatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	return r.with(func(x repository.BatchRepository) error { return x.Create(ctx, b) })
}

func (r lockedBatchRepo) GetByID(ctx context.Context, id int64) (out *entity.Batch, err error) {
	err = r.with(func(x repository.BatchRepository) error { out, err = x.GetByID(ctx, id); return err })
	return
}

func (r lockedBatchRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r lockedBatchRepo) GetByReference(ctx context.Context, code string) (out *entity.Batch, err error) {
	err = r.with(func(x repository.BatchRepository) error { out, err = x.GetByReference(ctx, code); return err })
	return
}

func (r lockedBatchRepo) ListByMedication(ctx context.Context, id int64) (out []*entity.Batch, err error) {
	err = r.with(func(x repository.BatchRepository) error { out, err = x.ListByMedication(ctx, id); return err })
	return
}

func (r lockedBatchRepo) List(ctx context.Context, limit, offset int) (out []*entity.Batch, err error) {
	err = r.with(func(x repository.BatchRepository) error { out, err = x.List(ctx, limit, offset); return err })
	return
}

func (r lockedBatchRepo) SetQuantity(context.Context, int64, int64) error {
	return errors.New("SetQuantity fuera de transacción")
}

type lockedMovementRepo struct{ store *memStore }

func (r lockedMovementRepo) Create(context.Context, *entity.Movement) error {
	return errors.New("Create fuera de transacción")
}

func (r lockedMovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return memMovementRepo{r.store.state}.GetByID(ctx, id)
}

func (r lockedMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return memMovementRepo{r.store.state}.List(ctx, f)
}

func (r lockedMovementRepo) NetByBatch(ctx context.Context, id int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return memMovementRepo{r.store.state}.NetByBatch(ctx, id)
}

type memBatchRepo struct{ s *memState }

func (r memBatchRepo) Create(_ context.Context, b *entity.Batch) error {
	for _, x := range r.s.batches {
		if x.ReferenceCode == b.ReferenceCode {
			return domain.ErrDuplicate
		}
	}
	b.ID = r.s.id()
	r.s.batches[b.ID] = *b
	return nil
}

func (r memBatchRepo) GetByID(_ context.Context, id int64) (*entity.Batch, error) {
	b, ok := r.s.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r memBatchRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r memBatchRepo) GetByReference(_ context.Context, code string) (*entity.Batch, error) {
	for _, b := range r.s.batches {
		if b.ReferenceCode == code {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (r memBatchRepo) ListByMedication(_ context.Context, medID int64) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		if b.MedicationID == medID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBatchRepo) List(ctx context.Context, _, _ int) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBatchRepo) SetQuantity(_ context.Context, id, qty int64) error {
	b, ok := r.s.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Quantity = qty
	r.s.batches[id] = b
	return nil
}

type memMovementRepo struct{ s *memState }

func (r memMovementRepo) Create(_ context.Context, m *entity.Movement) error {
	m.ID = r.s.id()
	r.s.movs = append(r.s.movs, *m)
	return nil
}

func (r memMovementRepo) GetByID(_ context.Context, id int64) (*entity.Movement, error) {
	for _, m := range r.s.movs {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r memMovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range r.s.movs {
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		if f.BatchID > 0 && m.BatchID != f.BatchID {
			continue
		}
		if f.MedicationID > 0 && r.s.batches[m.BatchID].MedicationID != f.MedicationID {
			continue
		}
		if f.From != nil && m.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.OccurredAt.Before(*f.To) {
			continue
		}
		m := m
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r memMovementRepo) NetByBatch(_ context.Context, id int64) (int64, error) {
	var net int64
	for _, m := range r.s.movs {
		if m.BatchID == id {
			net += m.Delta()
		}
	}
	return net, nil
}

type memMedicationRepo struct{ s *memState }

func (r memMedicationRepo) Create(_ context.Context, m *entity.Medication) error {
	m.ID = r.s.id()
	r.s.meds[m.ID] = *m
	return nil
}

func (r memMedicationRepo) GetByID(_ context.Context, id int64) (*entity.Medication, error) {
	m, ok := r.s.meds[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memMedicationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Medication, error) {
	return r.GetByID(ctx, id)
}

func (r memMedicationRepo) GetByBarcode(_ context.Context, code string) (*entity.Medication, error) {
	for _, m := range r.s.meds {
		if code != "" && m.Barcode == code {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r memMedicationRepo) Update(_ context.Context, m *entity.Medication) error {
	if _, ok := r.s.meds[m.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.meds[m.ID] = *m
	return nil
}

func (r memMedicationRepo) SetActive(_ context.Context, id int64, active bool) error {
	m, ok := r.s.meds[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Active = active
	r.s.meds[id] = m
	return nil
}

func (r memMedicationRepo) List(context.Context, repository.MedicationFilter, int, int) ([]*entity.Medication, error) {
	var out []*entity.Medication
	for _, m := range r.s.meds {
		m := m
		out = append(out, &m)
	}
	return out, nil
}

func (r memMedicationRepo) Categories(context.Context) ([]string, error) { return nil, nil }

// failingBatchRepo falla al fijar el saldo: el movimiento ya se agregó y debe revertirse.
type failingBatchRepo struct {
	repository.BatchRepository
}

var errDiskFull = errors.New("disk full")

func (failingBatchRepo) SetQuantity(context.Context, int64, int64) error { return errDiskFull }
