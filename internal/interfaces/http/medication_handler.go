package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// MedicationHandler maneja el catálogo de medicamentos.
type MedicationHandler struct {
	uc      *usecase.MedicationUseCase
	batches *inventory.BatchUseCase
}

// NewMedicationHandler construye el handler.
func NewMedicationHandler(uc *usecase.MedicationUseCase, batches *inventory.BatchUseCase) *MedicationHandler {
	return &MedicationHandler{uc: uc, batches: batches}
}

// Create godoc
// @Summary      Crear medicamento
// @Tags         medications
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMedicationRequest  true  "Datos del medicamento"
// @Success      201   {object}  dto.MedicationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/medications [post]
func (h *MedicationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMedicationRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener medicamento por ID
// @Tags         medications
// @Produce      json
// @Param        id   path  int  true  "ID del medicamento"
// @Success      200  {object}  dto.MedicationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/medications/{id} [get]
func (h *MedicationHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	out, err := h.uc.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByBarcode godoc
// @Summary      Buscar medicamento por código de barras
// @Tags         medications
// @Produce      json
// @Param        code  path  string  true  "Código de barras"
// @Success      200   {object}  dto.MedicationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/medications/barcode/{code} [get]
func (h *MedicationHandler) GetByBarcode(c *fiber.Ctx) error {
	out, err := h.uc.GetByBarcode(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar medicamentos
// @Description  Búsqueda sin acentos ni mayúsculas sobre nombre, tipo, concentración y código de barras.
// @Tags         medications
// @Produce      json
// @Param        search            query  string  false  "Texto a buscar"
// @Param        category          query  string  false  "Tipo de medicamento"
// @Param        include_inactive  query  bool    false  "Incluir dados de baja"
// @Param        limit             query  int     false  "Límite"  default(50)
// @Param        offset            query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MedicationListResponse
// @Router       /api/medications [get]
func (h *MedicationHandler) List(c *fiber.Ctx) error {
	var q dto.MedicationQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage(50, 500)
	out, err := h.uc.List(c.UserContext(), repository.MedicationFilter{
		Search:     q.Search,
		Category:   q.Category,
		ActiveOnly: !q.IncludeInactive,
	}, q.Limit, q.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Categories godoc
// @Summary      Tipos de medicamento
// @Tags         medications
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/medications/categories [get]
func (h *MedicationHandler) Categories(c *fiber.Ctx) error {
	out, err := h.uc.Categories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar medicamento
// @Tags         medications
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del medicamento"
// @Param        body  body  dto.UpdateMedicationRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.MedicationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/medications/{id} [put]
func (h *MedicationHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	var in dto.UpdateMedicationRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Deactivate godoc
// @Summary      Dar de baja un medicamento
// @Description  Con write_off=true retira el stock restante con salidas de motivo catalog_withdrawal.
// @Tags         medications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del medicamento"
// @Param        body  body  dto.DeactivateMedicationRequest  false  "Opciones de baja"
// @Success      200   {object}  dto.DeactivateMedicationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/medications/{id}/deactivate [post]
func (h *MedicationHandler) Deactivate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	var in dto.DeactivateMedicationRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &in); !ok {
			return err
		}
	}
	out, err := h.uc.Deactivate(c.UserContext(), id, GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reactivate godoc
// @Summary      Reactivar un medicamento
// @Tags         medications
// @Produce      json
// @Param        id   path  int  true  "ID del medicamento"
// @Success      200  {object}  dto.MedicationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/medications/{id}/reactivate [post]
func (h *MedicationHandler) Reactivate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	out, err := h.uc.Reactivate(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Batches godoc
// @Summary      Existencias de un medicamento
// @Tags         medications
// @Produce      json
// @Param        id   path  int  true  "ID del medicamento"
// @Success      200  {array}   dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/medications/{id}/batches [get]
func (h *MedicationHandler) Batches(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return validationError(c, "id inválido", nil)
	}
	if _, err := h.uc.GetByID(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	list, err := h.batches.ListBatches(c.UserContext(), id, 0, 0)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, dto.NewBatchResponse(b))
	}
	return c.JSON(out)
}
