package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertDTO medicamento activo con stock total en o por debajo de su umbral de reorden.
type AlertDTO struct {
	MedicationID     int64  `json:"medication_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Location         string `json:"location"`
	TotalQuantity    int64  `json:"total_quantity"`
	ReorderThreshold int64  `json:"reorder_threshold"`
	Deficit          int64  `json:"deficit"` // umbral - total, 0 si está justo en el umbral
	// Sugerencia de reposición: stock ideal = umbral * 1.5 (redondeo hacia arriba)
	IdealStock        int64 `json:"ideal_stock"`
	SuggestedOrderQty int64 `json:"suggested_order_qty"`
	UnitsOutLast90    int64 `json:"units_out_last_90_days"`
}

// ConsumptionItemDTO consumo (salidas) o bajas de un medicamento en el período.
type ConsumptionItemDTO struct {
	MedicationID  int64           `json:"medication_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	TotalQuantity int64           `json:"total_quantity"`
	MovementCount int64           `json:"movement_count"`
	AvgDaily      decimal.Decimal `json:"avg_daily"`               // TotalQuantity / días del período
	CurrentStock  int64           `json:"current_stock"`           // stock total actual
	CoverageDays  decimal.Decimal `json:"coverage_days,omitempty"` // CurrentStock / AvgDaily
}

// ConsumptionReportDTO reporte de consumo o de bajas por caducidad.
type ConsumptionReportDTO struct {
	Type  string               `json:"type"`
	From  *time.Time           `json:"from,omitempty"`
	To    *time.Time           `json:"to,omitempty"`
	Days  int                  `json:"days"`
	Items []ConsumptionItemDTO `json:"items"`
	Total int64                `json:"total_quantity"`
}

// BatchStockDTO existencia dentro del inventario completo.
type BatchStockDTO struct {
	ID            int64  `json:"id"`
	ReferenceCode string `json:"reference_code"`
	Quantity      int64  `json:"quantity"`
	RegisteredOn  string `json:"registered_on"`
}

// InventoryItemDTO medicamento activo con sus existencias y total.
type InventoryItemDTO struct {
	MedicationID     int64           `json:"medication_id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Strength         string          `json:"strength"`
	Location         string          `json:"location"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	TotalQuantity    int64           `json:"total_quantity"`
	LowStock         bool            `json:"low_stock"`
	Batches          []BatchStockDTO `json:"batches"`
}

// KindTotalDTO totales de un tipo de movimiento.
type KindTotalDTO struct {
	Type          string `json:"type"`
	TotalQuantity int64  `json:"total_quantity"`
	MovementCount int64  `json:"movement_count"`
}

// DashboardSummaryDTO resumen del tablero principal.
type DashboardSummaryDTO struct {
	ActiveMedications int64                `json:"active_medications"`
	TotalUnits        int64                `json:"total_units"`
	MovementsToday    int64                `json:"movements_today"`
	AlertCount        int                  `json:"alert_count"`
	Totals            []KindTotalDTO       `json:"totals"`
	TopConsumption    []ConsumptionItemDTO `json:"top_consumption"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// PeriodQuery período de un reporte: from/to (YYYY-MM-DD, to inclusivo) o month/year.
type PeriodQuery struct {
	From  string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Month int    `query:"month" validate:"omitempty,min=1,max=12"`
	Year  int    `query:"year" validate:"omitempty,min=1900,max=9999"`
}
