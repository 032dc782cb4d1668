package inventory

import (
	"context"
	"sort"
	"sync"
)

// batchLocks serializa en el proceso los movimientos de una misma existencia.
// Complementa el bloqueo de fila del almacén y cubre motores sin SELECT FOR UPDATE.
type batchLocks struct {
	mu    sync.Mutex
	slots map[int64]*batchSlot
}

type batchSlot struct {
	ch   chan struct{}
	refs int
}

func newBatchLocks() *batchLocks {
	return &batchLocks{slots: make(map[int64]*batchSlot)}
}

// acquire toma las existencias indicadas en orden ascendente de ID (sin interbloqueos entre
// operaciones de varias existencias). Respeta la cancelación del contexto mientras espera.
func (l *batchLocks) acquire(ctx context.Context, ids ...int64) (release func(), err error) {
	ids = uniqueSorted(ids)
	held := make([]int64, 0, len(ids))
	release = func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}
	for _, id := range ids {
		slot := l.ref(id)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.unref(id)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (l *batchLocks) ref(id int64) *batchSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		s = &batchSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	return s
}

func (l *batchLocks) unref(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[id]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, id)
		}
	}
}

func (l *batchLocks) unlock(id int64) {
	l.mu.Lock()
	s := l.slots[id]
	l.mu.Unlock()
	<-s.ch
	l.unref(id)
}

func uniqueSorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
