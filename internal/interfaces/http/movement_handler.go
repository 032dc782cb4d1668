package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// MovementHandler maneja el libro de movimientos.
type MovementHandler struct {
	ledger *inventory.LedgerUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledger *inventory.LedgerUseCase) *MovementHandler {
	return &MovementHandler{ledger: ledger}
}

// Register godoc
// @Summary      Registrar movimiento
// @Description  type: inbound|outbound|expired (acepta entrada|salida|caducado). quantity entero > 0.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "batch_id, type, quantity, notes"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK, details.available"
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.ledger.RegisterMovementFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponse(mov))
}

// List godoc
// @Summary      Historial de movimientos
// @Description  Más recientes primero; a igual fecha, en orden de registro.
// @Tags         movements
// @Produce      json
// @Param        type           query  string  false  "inbound|outbound|expired"
// @Param        batch_id       query  int     false  "Existencia"
// @Param        medication_id  query  int     false  "Medicamento"
// @Param        from           query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to             query  string  false  "Hasta, inclusivo (YYYY-MM-DD)"
// @Param        limit          query  int     false  "Límite"  default(50)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage(50, 500)

	filter := repository.MovementFilter{
		BatchID:      q.BatchID,
		MedicationID: q.MedicationID,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.Type != "" {
		kind, ok := entity.ParseMovementKind(q.Type)
		if !ok {
			return validationError(c, "type inválido", nil)
		}
		filter.Kind = kind
	}
	from, to, err := periodRange(dto.PeriodQuery{From: q.From, To: q.To})
	if err != nil {
		return writeError(c, err)
	}
	filter.From, filter.To = from, to

	list, err := h.ledger.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMovementResponse(m))
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset, Count: len(items)},
	})
}

// GetByID godoc
// @Summary      Obtener movimiento por ID
// @Tags         movements
// @Produce      json
// @Param        id   path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	mov, err := h.ledger.GetMovement(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewMovementResponse(mov))
}
