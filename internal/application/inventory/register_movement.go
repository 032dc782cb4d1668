package inventory

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// RegisterMovementFromRequest adapta el request HTTP/CLI al caso de uso RecordMovement.
// El tipo se normaliza (minúsculas, alias en español) y la cantidad debe ser un entero positivo.
func (uc *LedgerUseCase) RegisterMovementFromRequest(ctx context.Context, userID int64, in dto.RegisterMovementRequest) (*entity.Movement, error) {
	input, err := MovementInputFromRequest(userID, in)
	if err != nil {
		return nil, err
	}
	return uc.RecordMovement(ctx, input)
}

// MovementInputFromRequest convierte y valida el request sin tocar el almacén.
func MovementInputFromRequest(userID int64, in dto.RegisterMovementRequest) (MovementInput, error) {
	kind, ok := entity.ParseMovementKind(in.Type)
	if !ok {
		return MovementInput{}, domain.ErrInvalidInput
	}
	if !in.Quantity.IsInteger() || !in.Quantity.IsPositive() || in.Quantity.GreaterThan(maxQuantity) {
		return MovementInput{}, domain.ErrInvalidInput
	}
	return MovementInput{
		BatchID:  in.BatchID,
		Kind:     kind,
		Quantity: in.Quantity.IntPart(),
		UserID:   userID,
		Notes:    strings.TrimSpace(in.Notes),
	}, nil
}
