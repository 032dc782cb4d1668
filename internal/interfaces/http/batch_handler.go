package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
)

// BatchHandler maneja las existencias (lotes) de medicamentos.
type BatchHandler struct {
	uc     *inventory.BatchUseCase
	ledger *inventory.LedgerUseCase
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *inventory.BatchUseCase, ledger *inventory.LedgerUseCase) *BatchHandler {
	return &BatchHandler{uc: uc, ledger: ledger}
}

// Create godoc
// @Summary      Registrar existencia
// @Description  La existencia nace en cero; initial_quantity > 0 se registra como entrada con motivo initial_stock.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "Datos de la existencia"
// @Success      201   {object}  dto.CreateBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	var registeredOn time.Time
	if d, err := parseDate(in.RegisteredOn); err != nil {
		return validationError(c, "registered_on inválido", nil)
	} else if d != nil {
		registeredOn = *d
	}
	batch, initial, err := h.uc.CreateBatch(c.UserContext(), inventory.CreateBatchInput{
		MedicationID:    in.MedicationID,
		ReferenceCode:   in.ReferenceCode,
		InitialQuantity: in.InitialQuantity,
		RegisteredOn:    registeredOn,
		UserID:          GetUserID(c),
		Notes:           in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.CreateBatchResponse{Batch: dto.NewBatchResponse(batch)}
	if initial != nil {
		mov := dto.NewMovementResponse(initial)
		out.Initial = &mov
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener existencia por ID
// @Tags         batches
// @Produce      json
// @Param        id   path  int  true  "ID de la existencia"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	b, err := h.uc.GetBatch(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBatchResponse(b))
}

// GetByReference godoc
// @Summary      Buscar existencia por código de referencia
// @Tags         batches
// @Produce      json
// @Param        code  path  string  true  "Código de referencia del lote"
// @Success      200   {object}  dto.BatchResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/batches/reference/{code} [get]
func (h *BatchHandler) GetByReference(c *fiber.Ctx) error {
	b, err := h.uc.GetByReference(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewBatchResponse(b))
}

// List godoc
// @Summary      Listar existencias
// @Tags         batches
// @Produce      json
// @Param        medication_id  query  int  false  "Filtrar por medicamento"
// @Param        limit          query  int  false  "Límite"  default(50)
// @Param        offset         query  int  false  "Offset"  default(0)
// @Success      200  {object}  dto.BatchListResponse
// @Router       /api/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	var q dto.BatchQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage(50, 500)
	list, err := h.uc.ListBatches(c.UserContext(), q.MedicationID, q.Limit, q.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		items = append(items, dto.NewBatchResponse(b))
	}
	return c.JSON(dto.BatchListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Count: len(items)},
	})
}

// Balance godoc
// @Summary      Saldo actual de una existencia
// @Tags         batches
// @Produce      json
// @Param        id   path  int  true  "ID de la existencia"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/balance [get]
func (h *BatchHandler) Balance(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	qty, err := h.ledger.CurrentBalance(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalanceResponse{BatchID: id, Quantity: qty})
}

// Reconcile godoc
// @Summary      Conciliar existencia contra el libro
// @Tags         batches
// @Produce      json
// @Param        id   path  int  true  "ID de la existencia"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{id}/reconcile [get]
func (h *BatchHandler) Reconcile(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	r, err := h.ledger.ReconcileBatch(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{
		BatchID:    r.BatchID,
		Counter:    r.Counter,
		LedgerSum:  r.LedgerSum,
		Consistent: r.Consistent(),
	})
}
