package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

func TestMovementCommitted(t *testing.T) {
	m := New()
	m.MovementCommitted(&entity.Movement{Kind: entity.MovementInbound, Reason: entity.ReasonStandard, Quantity: 100})
	m.MovementCommitted(&entity.Movement{Kind: entity.MovementOutbound, Reason: entity.ReasonStandard, Quantity: 30})
	m.MovementCommitted(&entity.Movement{Kind: entity.MovementOutbound, Reason: entity.ReasonStandard, Quantity: 20})
	m.MovementCommitted(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.movements.WithLabelValues("inbound", "standard")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.movements.WithLabelValues("outbound", "standard")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.units.WithLabelValues("outbound")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.units.WithLabelValues("inbound")))
}

func TestMovementRejected(t *testing.T) {
	m := New()
	m.MovementRejected(entity.MovementOutbound, &domain.InsufficientStockError{BatchID: 1, Available: 0, Requested: 1})
	m.MovementRejected(entity.MovementKind("bogus"), domain.ErrInvalidInput)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("outbound", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("unknown", "invalid_input")))
}

func TestRejectionReason(t *testing.T) {
	cases := map[string]error{
		"none":      nil,
		"not_found": domain.ErrNotFound,
		"storage":   domain.Storage("commit", errors.New("disk full")),
		"conflict":  domain.ErrConflict,
		"other":     errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, RejectionReason(err))
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.MovementCommitted(&entity.Movement{Kind: entity.MovementExpired, Reason: entity.ReasonStandard, Quantity: 5})
	m.ObserveRequest("GET", "/api/medications", "200", 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `farmacia_ledger_movements_total{kind="expired",reason="standard"} 1`))
	assert.True(t, strings.Contains(body, "farmacia_http_request_duration_seconds_bucket"))
}
