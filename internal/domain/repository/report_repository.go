package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// MedicationStock stock agregado de un medicamento activo (suma de sus existencias).
type MedicationStock struct {
	MedicationID     int64
	Name             string
	Category         string
	Strength         string
	Location         string
	ReorderThreshold int64
	TotalQuantity    int64
	BatchCount       int64
}

// KindSummary cantidad total y número de movimientos agrupados por medicamento para un tipo.
type KindSummary struct {
	MedicationID  int64
	Name          string
	Category      string
	TotalQuantity int64
	MovementCount int64
}

// KindTotal totales globales por tipo de movimiento.
type KindTotal struct {
	Kind          entity.MovementKind
	TotalQuantity int64
	MovementCount int64
}

// ReportRepository consultas de solo lectura resueltas en el almacén (agregaciones SQL),
// única fuente de verdad para alertas y consumo.
type ReportRepository interface {
	// StockByMedication devuelve los medicamentos activos con su stock total, ordenados por nombre.
	StockByMedication(ctx context.Context) ([]MedicationStock, error)
	// LowStock devuelve los activos cuyo stock total es <= su umbral de reorden, mayor déficit primero.
	LowStock(ctx context.Context) ([]MedicationStock, error)
	// SummaryByMedication agrupa los movimientos de un tipo por medicamento en [from, to),
	// ordenado por cantidad total descendente.
	SummaryByMedication(ctx context.Context, kind entity.MovementKind, from, to *time.Time) ([]KindSummary, error)
	// KindTotals totales por tipo en [from, to).
	KindTotals(ctx context.Context, from, to *time.Time) ([]KindTotal, error)
	// CountMovements número de movimientos en [from, to).
	CountMovements(ctx context.Context, from, to *time.Time) (int64, error)
}
