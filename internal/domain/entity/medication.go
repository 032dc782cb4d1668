package entity

import "time"

// Medication representa un medicamento del catálogo.
// La baja es lógica (Active=false); nunca se borra si tiene existencias.
type Medication struct {
	ID               int64
	Name             string
	Category         string // tipo de medicamento: Analgésico, Antibiótico, ...
	Strength         string // concentración libre: "500mg", "5ml/100mg"
	Barcode          string // opcional, único cuando existe
	ReorderThreshold int64  // stock mínimo
	Location         string
	Shelf            string // estante, opcional
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
