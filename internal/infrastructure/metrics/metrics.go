// Package metrics expone contadores Prometheus del libro de movimientos y de la API HTTP.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

const namespace = "farmacia"

// Metrics agrupa los colectores en un registro propio (no el global) para poder aislarlo en tests.
type Metrics struct {
	registry   *prometheus.Registry
	movements  *prometheus.CounterVec
	units      *prometheus.CounterVec
	rejections *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// New crea y registra los colectores. Incluye los colectores de proceso y runtime de Go.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "movements_total",
			Help:      "Movimientos confirmados en el libro, por tipo y motivo.",
		}, []string{"kind", "reason"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "units_total",
			Help:      "Unidades movidas por tipo de movimiento.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Movimientos rechazados, por causa.",
		}, []string{"kind", "reason"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.movements, m.units, m.rejections, m.requests,
	)
	return m
}

// MovementCommitted implementa inventory.MovementObserver.
func (m *Metrics) MovementCommitted(mov *entity.Movement) {
	if mov == nil {
		return
	}
	m.movements.WithLabelValues(string(mov.Kind), mov.Reason).Inc()
	m.units.WithLabelValues(string(mov.Kind)).Add(float64(mov.Quantity))
}

// MovementRejected implementa inventory.MovementObserver.
func (m *Metrics) MovementRejected(kind entity.MovementKind, err error) {
	kindLabel := string(kind)
	if !kind.Valid() {
		kindLabel = "unknown"
	}
	m.rejections.WithLabelValues(kindLabel, RejectionReason(err)).Inc()
}

// ObserveRequest registra la duración de una petición HTTP.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	m.requests.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Handler sirve el registro en formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry expone el registro subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RejectionReason traduce un error de dominio a una etiqueta de cardinalidad acotada.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "other"
	}
}
