// Package ledger contiene las reglas puras del libro de movimientos (servicio de dominio):
// validación de un movimiento contra el saldo de una existencia y reconstrucción del saldo
// a partir del historial.
package ledger

import (
	"math"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// Validate comprueba los argumentos de un movimiento sin mirar el saldo.
func Validate(kind entity.MovementKind, quantity, userID int64) error {
	if !kind.Valid() || quantity <= 0 || userID <= 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// Apply devuelve el nuevo saldo de la existencia tras aplicar el movimiento.
// Una existencia en cero rechaza toda salida o baja, sea cual sea la cantidad pedida.
// Una entrada que desborde el saldo es un argumento inválido, no un fallo del almacén.
func Apply(batchID, current int64, kind entity.MovementKind, quantity int64) (int64, error) {
	if !kind.Valid() || quantity <= 0 {
		return current, domain.ErrInvalidInput
	}
	if !kind.Decreases() {
		if quantity > math.MaxInt64-current {
			return current, domain.ErrInvalidInput
		}
		return current + quantity, nil
	}
	if current == 0 || current < quantity {
		return current, &domain.InsufficientStockError{BatchID: batchID, Available: current, Requested: quantity}
	}
	return current - quantity, nil
}

// Replay reconstruye el saldo: Σ entradas − Σ salidas − Σ caducados.
func Replay(movements []*entity.Movement) int64 {
	var total int64
	for _, m := range movements {
		total += m.Delta()
	}
	return total
}
