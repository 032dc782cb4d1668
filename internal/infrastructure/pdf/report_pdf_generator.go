// Package pdf genera el reporte imprimible de consumo y alertas de stock.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre de la farmacia  │  Período + fecha emisión  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CONSUMO: Medicamento | Tipo | Movs | Total | Prom/día | Días│
//	│  TOTAL del período                                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ALERTAS: Medicamento | Ubicación | Stock | Umbral | Sugerido│
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

var _ analytics.ReportPDFGenerator = (*MarotoReportGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 110, Blue: 90}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// MarotoReportGenerator implementa analytics.ReportPDFGenerator usando Maroto v2.
type MarotoReportGenerator struct {
	pharmacy string
	now      func() time.Time
}

// NewMarotoReportGenerator construye el generador con el nombre que va en el encabezado.
func NewMarotoReportGenerator(pharmacy string) *MarotoReportGenerator {
	return &MarotoReportGenerator{pharmacy: pharmacy, now: time.Now}
}

// GenerateConsumptionReport genera el PDF y devuelve sus bytes.
func (g *MarotoReportGenerator) GenerateConsumptionReport(report *dto.ConsumptionReportDTO, alerts []dto.AlertDTO, title string) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("pdf: reporte vacío")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de consumo - "+title, true).
		WithAuthor(g.pharmacy, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.pharmacy, title, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionRow("CONSUMO DEL PERÍODO", colorPrimary))
	m.AddRows(consumptionHeaderRow())
	if len(report.Items) == 0 {
		m.AddRows(emptyRow("Sin salidas registradas en el período"))
	}
	for _, it := range report.Items {
		m.AddRows(consumptionRow(it))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(totalRow(report))

	m.AddRows(line.NewRow(4))
	m.AddRows(sectionRow(fmt.Sprintf("ALERTAS DE STOCK BAJO (%d)", len(alerts)), colorAlert))
	m.AddRows(alertHeaderRow())
	if len(alerts) == 0 {
		m.AddRows(emptyRow("Ningún medicamento por debajo de su umbral"))
	}
	for _, a := range alerts {
		m.AddRows(alertRow(a))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(pharmacy, title string, now time.Time) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New(nonEmpty(pharmacy, "Farmacia"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Reporte de consumo e inventario", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 2,
			}),
			text.New("Emitido: "+now.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 10, Color: colorGray,
			}),
		),
	)
}

func sectionRow(label string, color *props.Color) core.Row {
	return row.New(8).Add(col.New(12).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 9, Color: color, Top: 2,
	})))
}

func emptyRow(msg string) core.Row {
	return row.New(7).Add(col.New(12).Add(text.New(msg, props.Text{
		Size: 8, Style: fontstyle.Italic, Color: colorGray, Top: 1,
	})))
}

func headerCol(label string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
	}))
}

func cell(value string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(value, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
}

func consumptionHeaderRow() core.Row {
	return row.New(7).Add(
		headerCol("Medicamento", 4, align.Left),
		headerCol("Tipo", 2, align.Left),
		headerCol("Movs.", 1, align.Center),
		headerCol("Total", 1, align.Right),
		headerCol("Prom./día", 2, align.Right),
		headerCol("Cobertura", 2, align.Right),
	)
}

func consumptionRow(it dto.ConsumptionItemDTO) core.Row {
	coverage := "—"
	if it.CoverageDays.IsPositive() {
		coverage = it.CoverageDays.StringFixed(1) + " días"
	}
	avg := "—"
	if it.AvgDaily.IsPositive() {
		avg = it.AvgDaily.StringFixed(2)
	}
	return row.New(6).Add(
		cell(it.Name, 4, align.Left),
		cell(it.Category, 2, align.Left),
		cell(strconv.FormatInt(it.MovementCount, 10), 1, align.Center),
		cell(strconv.FormatInt(it.TotalQuantity, 10), 1, align.Right),
		cell(avg, 2, align.Right),
		cell(coverage, 2, align.Right),
	)
}

func totalRow(report *dto.ConsumptionReportDTO) core.Row {
	return row.New(8).Add(
		col.New(8).Add(text.New(fmt.Sprintf("TOTAL UNIDADES (%d medicamentos)", len(report.Items)), props.Text{
			Style: fontstyle.Bold, Size: 9, Top: 2,
		})),
		col.New(4).Add(text.New(strconv.FormatInt(report.Total, 10), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 2, Color: colorPrimary,
		})),
	)
}

func alertHeaderRow() core.Row {
	return row.New(7).Add(
		headerCol("Medicamento", 4, align.Left),
		headerCol("Ubicación", 3, align.Left),
		headerCol("Stock", 1, align.Right),
		headerCol("Umbral", 2, align.Right),
		headerCol("Pedido sug.", 2, align.Right),
	)
}

func alertRow(a dto.AlertDTO) core.Row {
	return row.New(6).Add(
		cell(a.Name, 4, align.Left),
		cell(nonEmpty(a.Location, "—"), 3, align.Left),
		cell(strconv.FormatInt(a.TotalQuantity, 10), 1, align.Right),
		cell(strconv.FormatInt(a.ReorderThreshold, 10), 2, align.Right),
		cell(strconv.FormatInt(a.SuggestedOrderQty, 10), 2, align.Right),
	)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
