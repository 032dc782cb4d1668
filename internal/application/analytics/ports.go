package analytics

import "github.com/jhoicas/Farmacia-api/internal/application/dto"

// ReportPDFGenerator genera el PDF del reporte de consumo con las alertas vigentes.
type ReportPDFGenerator interface {
	GenerateConsumptionReport(report *dto.ConsumptionReportDTO, alerts []dto.AlertDTO, title string) ([]byte, error)
}
