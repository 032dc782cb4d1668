package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/movements.
// Quantity se recibe como decimal para poder rechazar valores no enteros con un error de validación.
type RegisterMovementRequest struct {
	BatchID  int64           `json:"batch_id" validate:"required,gt=0"`
	Type     string          `json:"type" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// MovementQuery filtros de GET /api/movements.
type MovementQuery struct {
	Type         string `query:"type"`
	BatchID      int64  `query:"batch_id"`
	MedicationID int64  `query:"medication_id"`
	From         string `query:"from"`
	To           string `query:"to"`
	PageRequest
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID          int64     `json:"id"`
	OperationID string    `json:"operation_id"`
	BatchID     int64     `json:"batch_id"`
	Type        string    `json:"type"`
	Quantity    int64     `json:"quantity"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
	UserID      int64     `json:"user_id"`
	Notes       string    `json:"notes,omitempty"`
}

// MovementListResponse página del historial.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewMovementResponse mapea la entidad a su salida JSON.
func NewMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:          m.ID,
		OperationID: m.OperationID,
		BatchID:     m.BatchID,
		Type:        string(m.Kind),
		Quantity:    m.Quantity,
		Reason:      m.Reason,
		OccurredAt:  m.OccurredAt,
		UserID:      m.UserID,
		Notes:       m.Notes,
	}
}
