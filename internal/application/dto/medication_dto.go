package dto

import "time"

// CreateMedicationRequest entrada para dar de alta un medicamento.
type CreateMedicationRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=200"`
	Category         string `json:"category" validate:"required,min=1,max=100"`
	Strength         string `json:"strength" validate:"max=100"`
	Barcode          string `json:"barcode" validate:"max=64"`
	ReorderThreshold int64  `json:"reorder_threshold" validate:"min=0"`
	Location         string `json:"location" validate:"max=100"`
	Shelf            string `json:"shelf" validate:"max=50"`
}

// UpdateMedicationRequest actualización parcial. El flag activo se cambia con deactivate/reactivate.
type UpdateMedicationRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category         *string `json:"category" validate:"omitempty,min=1,max=100"`
	Strength         *string `json:"strength" validate:"omitempty,max=100"`
	Barcode          *string `json:"barcode" validate:"omitempty,max=64"`
	ReorderThreshold *int64  `json:"reorder_threshold" validate:"omitempty,min=0"`
	Location         *string `json:"location" validate:"omitempty,max=100"`
	Shelf            *string `json:"shelf" validate:"omitempty,max=50"`
}

// DeactivateMedicationRequest baja lógica. Con write_off=true se retira el stock restante
// con movimientos de salida de motivo catalog_withdrawal.
type DeactivateMedicationRequest struct {
	WriteOff bool   `json:"write_off"`
	Notes    string `json:"notes" validate:"max=500"`
}

// MedicationResponse salida de un medicamento.
type MedicationResponse struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	Strength         string    `json:"strength"`
	Barcode          string    `json:"barcode,omitempty"`
	ReorderThreshold int64     `json:"reorder_threshold"`
	Location         string    `json:"location"`
	Shelf            string    `json:"shelf,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MedicationListResponse lista paginada del catálogo.
type MedicationListResponse struct {
	Items []MedicationResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// DeactivateMedicationResponse resultado de la baja: el medicamento y los movimientos de retiro.
type DeactivateMedicationResponse struct {
	Medication  MedicationResponse `json:"medication"`
	OperationID string             `json:"operation_id,omitempty"`
	Withdrawals []MovementResponse `json:"withdrawals"`
}

// MedicationQuery filtros de GET /api/medications. Por defecto solo activos.
type MedicationQuery struct {
	Search          string `query:"search" validate:"max=100"`
	Category        string `query:"category" validate:"max=100"`
	IncludeInactive bool   `query:"include_inactive"`
	PageRequest
}
