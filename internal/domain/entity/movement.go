package entity

import (
	"strings"
	"time"
)

// MovementKind tipo de movimiento del libro.
type MovementKind string

// Tipos de movimiento.
const (
	MovementInbound  MovementKind = "inbound"  // entrada
	MovementOutbound MovementKind = "outbound" // salida / dispensación
	MovementExpired  MovementKind = "expired"  // baja por caducidad
)

// Motivos con nombre propio. ReasonStandard es el de un movimiento registrado por un operador.
const (
	ReasonStandard          = "standard"
	ReasonInitialStock      = "initial_stock"      // registro inicial de existencia
	ReasonCatalogWithdrawal = "catalog_withdrawal" // retiro de stock al dar de baja el medicamento
)

var kindAliases = map[string]MovementKind{
	"inbound":  MovementInbound,
	"entrada":  MovementInbound,
	"in":       MovementInbound,
	"outbound": MovementOutbound,
	"salida":   MovementOutbound,
	"out":      MovementOutbound,
	"expired":  MovementExpired,
	"caducado": MovementExpired,
}

// ParseMovementKind normaliza (trim + minúsculas) y acepta los alias en español.
func ParseMovementKind(s string) (MovementKind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// Valid indica si k es uno de los tres tipos definidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementExpired:
		return true
	}
	return false
}

// Decreases indica si el movimiento resta del saldo (salida o caducado).
func (k MovementKind) Decreases() bool {
	return k == MovementOutbound || k == MovementExpired
}

// Movement es una entrada inmutable del libro de movimientos.
// Las correcciones se hacen con movimientos compensatorios, nunca editando.
type Movement struct {
	ID          int64 // asignado por el almacén, monótono
	OperationID string
	BatchID     int64
	Kind        MovementKind
	Quantity    int64 // siempre > 0; el signo lo da Kind
	Reason      string
	OccurredAt  time.Time
	UserID      int64
	Notes       string
}

// Delta devuelve el efecto con signo del movimiento sobre el saldo de la existencia.
func (m *Movement) Delta() int64 {
	if m.Kind.Decreases() {
		return -m.Quantity
	}
	return m.Quantity
}
