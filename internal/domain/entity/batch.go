package entity

import "time"

// Batch representa una existencia: un lote de un medicamento recibido bajo un código de referencia.
// Quantity solo la modifica el libro de movimientos; nunca es negativa.
type Batch struct {
	ID            int64
	MedicationID  int64
	ReferenceCode string
	Quantity      int64
	RegisteredOn  time.Time // fecha de registro (sin hora)
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
