package dto

import (
	"time"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// DateLayout formato de fechas sin hora (registered_on, filtros from/to).
const DateLayout = "2006-01-02"

// CreateBatchRequest registro de una existencia. InitialQuantity > 0 genera la entrada inicial.
type CreateBatchRequest struct {
	MedicationID    int64  `json:"medication_id" validate:"required,gt=0"`
	ReferenceCode   string `json:"reference_code" validate:"required,min=1,max=100"`
	InitialQuantity int64  `json:"initial_quantity" validate:"min=0"`
	RegisteredOn    string `json:"registered_on" validate:"omitempty,datetime=2006-01-02"`
	Notes           string `json:"notes" validate:"max=500"`
}

// BatchResponse salida de una existencia.
type BatchResponse struct {
	ID            int64     `json:"id"`
	MedicationID  int64     `json:"medication_id"`
	ReferenceCode string    `json:"reference_code"`
	Quantity      int64     `json:"quantity"`
	RegisteredOn  string    `json:"registered_on"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BatchListResponse lista de existencias.
type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// BalanceResponse saldo actual de una existencia.
type BalanceResponse struct {
	BatchID  int64 `json:"batch_id"`
	Quantity int64 `json:"quantity"`
}

// ReconcileResponse comparación del contador de la existencia contra la suma del libro.
type ReconcileResponse struct {
	BatchID    int64 `json:"batch_id"`
	Counter    int64 `json:"counter"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}

// NewBatchResponse mapea la entidad a su salida JSON.
func NewBatchResponse(b *entity.Batch) BatchResponse {
	return BatchResponse{
		ID:            b.ID,
		MedicationID:  b.MedicationID,
		ReferenceCode: b.ReferenceCode,
		Quantity:      b.Quantity,
		RegisteredOn:  b.RegisteredOn.Format(DateLayout),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// CreateBatchResponse existencia creada y, si hubo stock inicial, su movimiento de entrada.
type CreateBatchResponse struct {
	Batch   BatchResponse     `json:"batch"`
	Initial *MovementResponse `json:"initial_movement,omitempty"`
}

// BatchQuery filtros de GET /api/batches.
type BatchQuery struct {
	MedicationID int64 `query:"medication_id" validate:"min=0"`
	PageRequest
}
