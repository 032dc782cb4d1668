package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

// ReportHandler reportes de solo lectura sobre el libro.
type ReportHandler struct {
	uc *analytics.ReportUseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *analytics.ReportUseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Alerts godoc
// @Summary      Alertas de stock bajo
// @Description  Medicamentos activos con stock total en o por debajo del umbral, con sugerencia de reposición.
// @Tags         reports
// @Produce      json
// @Success      200  {array}   dto.AlertDTO
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/reports/alerts [get]
func (h *ReportHandler) Alerts(c *fiber.Ctx) error {
	out, err := h.uc.Alerts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Consumption godoc
// @Summary      Consumo por medicamento
// @Description  Salidas agrupadas por medicamento, mayor consumo primero. Período por from/to o por month/year.
// @Tags         reports
// @Produce      json
// @Param        from   query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to     query  string  false  "Hasta, inclusivo (YYYY-MM-DD)"
// @Param        month  query  int     false  "Mes (1-12)"
// @Param        year   query  int     false  "Año"
// @Success      200  {object}  dto.ConsumptionReportDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/consumption [get]
func (h *ReportHandler) Consumption(c *fiber.Ctx) error {
	from, to, ok, err := h.period(c)
	if !ok {
		return err
	}
	out, err := h.uc.Consumption(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Expired godoc
// @Summary      Bajas por caducidad
// @Tags         reports
// @Produce      json
// @Param        from   query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to     query  string  false  "Hasta, inclusivo (YYYY-MM-DD)"
// @Param        month  query  int     false  "Mes (1-12)"
// @Param        year   query  int     false  "Año"
// @Success      200  {object}  dto.ConsumptionReportDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/expired [get]
func (h *ReportHandler) Expired(c *fiber.Ctx) error {
	from, to, ok, err := h.period(c)
	if !ok {
		return err
	}
	out, err := h.uc.Expired(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Inventory godoc
// @Summary      Inventario completo
// @Description  Medicamentos activos con sus existencias y stock total.
// @Tags         reports
// @Produce      json
// @Success      200  {array}  dto.InventoryItemDTO
// @Router       /api/reports/inventory [get]
func (h *ReportHandler) Inventory(c *fiber.Ctx) error {
	out, err := h.uc.Inventory(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Dashboard godoc
// @Summary      Resumen del tablero
// @Tags         reports
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.uc.Dashboard(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ConsumptionPDF godoc
// @Summary      Reporte de consumo en PDF
// @Description  Consumo del período más las alertas vigentes.
// @Tags         reports
// @Produce      application/pdf
// @Param        from   query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to     query  string  false  "Hasta, inclusivo (YYYY-MM-DD)"
// @Param        month  query  int     false  "Mes (1-12)"
// @Param        year   query  int     false  "Año"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/consumption/pdf [get]
func (h *ReportHandler) ConsumptionPDF(c *fiber.Ctx) error {
	from, to, ok, err := h.period(c)
	if !ok {
		return err
	}
	pdf, err := h.uc.ConsumptionPDF(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="consumo-%s.pdf"`, time.Now().UTC().Format("20060102")))
	return c.Send(pdf)
}

func (h *ReportHandler) period(c *fiber.Ctx) (from, to *time.Time, ok bool, err error) {
	var q dto.PeriodQuery
	if ok, err := parseQuery(c, &q); !ok {
		return nil, nil, false, err
	}
	from, to, err = periodRange(q)
	if err != nil {
		return nil, nil, false, writeError(c, err)
	}
	return from, to, true, nil
}
