// Package analytics contiene los reportes de solo lectura del inventario: alertas de stock bajo,
// consumo, bajas por caducidad, inventario completo y el resumen del tablero.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

const (
	dashboardTopConsumption = 5  // medicamentos en el widget de consumo del tablero
	historyDays             = 90 // ventana del historial de salidas en las alertas
)

var idealStockFactor = decimal.NewFromFloat(1.5)

// ReportUseCase reportes derivados. Las agregaciones se resuelven en el almacén (ReportRepository);
// aquí solo se combinan y se calculan promedios.
type ReportUseCase struct {
	reportRepo repository.ReportRepository
	batchRepo  repository.BatchRepository
	pdf        ReportPDFGenerator
	now        func() time.Time
}

// NewReportUseCase construye el caso de uso. pdf puede ser nil si no se exporta PDF.
func NewReportUseCase(reportRepo repository.ReportRepository, batchRepo repository.BatchRepository, pdf ReportPDFGenerator) *ReportUseCase {
	return &ReportUseCase{
		reportRepo: reportRepo,
		batchRepo:  batchRepo,
		pdf:        pdf,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *ReportUseCase) WithClock(now func() time.Time) *ReportUseCase {
	uc.now = now
	return uc
}

// MonthRange devuelve [día 1 del mes, día 1 del mes siguiente) en UTC.
func MonthRange(month, year int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 1900 || year > 9999 {
		return time.Time{}, time.Time{}, domain.ErrInvalidInput
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// ParsePeriod interpreta un período de reporte: month/year, o from/to en YYYY-MM-DD con to inclusivo.
// Devuelve el intervalo semiabierto [from, to); extremos vacíos quedan abiertos (nil).
func ParsePeriod(from, to string, month, year int) (*time.Time, *time.Time, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if month != 0 || year != 0 {
		if from != "" || to != "" || month == 0 || year == 0 {
			return nil, nil, domain.ErrInvalidInput
		}
		f, t, err := MonthRange(month, year)
		if err != nil {
			return nil, nil, err
		}
		return &f, &t, nil
	}
	var start, end *time.Time
	if from != "" {
		t, err := time.ParseInLocation(dto.DateLayout, from, time.UTC)
		if err != nil {
			return nil, nil, domain.ErrInvalidInput
		}
		start = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(dto.DateLayout, to, time.UTC)
		if err != nil {
			return nil, nil, domain.ErrInvalidInput
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}
	return start, end, nil
}

// Alerts medicamentos activos con stock total <= umbral, con sugerencia de reposición.
func (uc *ReportUseCase) Alerts(ctx context.Context) ([]dto.AlertDTO, error) {
	low, err := uc.reportRepo.LowStock(ctx)
	if err != nil {
		return nil, domain.Storage("alertas de stock", err)
	}
	if len(low) == 0 {
		return []dto.AlertDTO{}, nil
	}

	// Historial de salidas de los últimos 90 días por medicamento
	to := uc.now()
	from := to.AddDate(0, 0, -historyDays)
	history, err := uc.reportRepo.SummaryByMedication(ctx, entity.MovementOutbound, &from, &to)
	if err != nil {
		return nil, domain.Storage("historial de salidas", err)
	}
	outByID := make(map[int64]int64, len(history))
	for _, h := range history {
		outByID[h.MedicationID] = h.TotalQuantity
	}

	alerts := make([]dto.AlertDTO, 0, len(low))
	for _, m := range low {
		ideal := decimal.NewFromInt(m.ReorderThreshold).Mul(idealStockFactor).Ceil().IntPart()
		suggested := ideal - m.TotalQuantity
		if suggested < 0 {
			suggested = 0
		}
		alerts = append(alerts, dto.AlertDTO{
			MedicationID:      m.MedicationID,
			Name:              m.Name,
			Category:          m.Category,
			Location:          m.Location,
			TotalQuantity:     m.TotalQuantity,
			ReorderThreshold:  m.ReorderThreshold,
			Deficit:           m.ReorderThreshold - m.TotalQuantity,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
			UnitsOutLast90:    outByID[m.MedicationID],
		})
	}
	return alerts, nil
}

// Consumption salidas agrupadas por medicamento en [from, to), mayor total primero.
// Con ambos extremos se calcula el promedio diario y los días de cobertura del stock actual.
func (uc *ReportUseCase) Consumption(ctx context.Context, from, to *time.Time) (*dto.ConsumptionReportDTO, error) {
	return uc.kindReport(ctx, entity.MovementOutbound, from, to)
}

// Expired bajas por caducidad agrupadas por medicamento en [from, to).
func (uc *ReportUseCase) Expired(ctx context.Context, from, to *time.Time) (*dto.ConsumptionReportDTO, error) {
	return uc.kindReport(ctx, entity.MovementExpired, from, to)
}

func (uc *ReportUseCase) kindReport(ctx context.Context, kind entity.MovementKind, from, to *time.Time) (*dto.ConsumptionReportDTO, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, domain.ErrInvalidInput
	}
	summary, err := uc.reportRepo.SummaryByMedication(ctx, kind, from, to)
	if err != nil {
		return nil, domain.Storage("reporte de "+string(kind), err)
	}
	stock, err := uc.reportRepo.StockByMedication(ctx)
	if err != nil {
		return nil, domain.Storage("stock por medicamento", err)
	}
	stockByID := make(map[int64]int64, len(stock))
	for _, s := range stock {
		stockByID[s.MedicationID] = s.TotalQuantity
	}

	days := 0
	if from != nil && to != nil {
		days = int(to.Sub(*from).Hours() / 24)
		if days < 1 {
			days = 1
		}
	}

	report := &dto.ConsumptionReportDTO{
		Type:  string(kind),
		From:  from,
		To:    to,
		Days:  days,
		Items: make([]dto.ConsumptionItemDTO, 0, len(summary)),
	}
	for _, s := range summary {
		item := dto.ConsumptionItemDTO{
			MedicationID:  s.MedicationID,
			Name:          s.Name,
			Category:      s.Category,
			TotalQuantity: s.TotalQuantity,
			MovementCount: s.MovementCount,
			CurrentStock:  stockByID[s.MedicationID],
		}
		if days > 0 {
			item.AvgDaily = decimal.NewFromInt(s.TotalQuantity).Div(decimal.NewFromInt(int64(days))).Round(2)
			if item.AvgDaily.IsPositive() {
				item.CoverageDays = decimal.NewFromInt(item.CurrentStock).Div(item.AvgDaily).Round(1)
			}
		}
		report.Total += s.TotalQuantity
		report.Items = append(report.Items, item)
	}
	sortByTotalDesc(report.Items)
	return report, nil
}

// Inventory medicamentos activos con sus existencias y stock total.
func (uc *ReportUseCase) Inventory(ctx context.Context) ([]dto.InventoryItemDTO, error) {
	stock, err := uc.reportRepo.StockByMedication(ctx)
	if err != nil {
		return nil, domain.Storage("inventario", err)
	}
	out := make([]dto.InventoryItemDTO, 0, len(stock))
	for _, s := range stock {
		batches, err := uc.batchRepo.ListByMedication(ctx, s.MedicationID)
		if err != nil {
			return nil, domain.Storage("existencias del medicamento", err)
		}
		item := dto.InventoryItemDTO{
			MedicationID:     s.MedicationID,
			Name:             s.Name,
			Category:         s.Category,
			Strength:         s.Strength,
			Location:         s.Location,
			ReorderThreshold: s.ReorderThreshold,
			TotalQuantity:    s.TotalQuantity,
			LowStock:         s.TotalQuantity <= s.ReorderThreshold,
			Batches:          make([]dto.BatchStockDTO, 0, len(batches)),
		}
		for _, b := range batches {
			item.Batches = append(item.Batches, dto.BatchStockDTO{
				ID:            b.ID,
				ReferenceCode: b.ReferenceCode,
				Quantity:      b.Quantity,
				RegisteredOn:  b.RegisteredOn.Format(dto.DateLayout),
			})
		}
		out = append(out, item)
	}
	return out, nil
}

// Dashboard resumen del tablero. Las consultas se lanzan en paralelo.
func (uc *ReportUseCase) Dashboard(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayEnd := todayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	type stockResult struct {
		rows []repository.MedicationStock
		err  error
	}
	type countResult struct {
		n   int64
		err error
	}
	type totalsResult struct {
		rows []repository.KindTotal
		err  error
	}
	type topResult struct {
		rows []repository.KindSummary
		err  error
	}

	stockCh := make(chan stockResult, 1)
	lowCh := make(chan stockResult, 1)
	todayCh := make(chan countResult, 1)
	totalsCh := make(chan totalsResult, 1)
	topCh := make(chan topResult, 1)

	go func() {
		rows, err := uc.reportRepo.StockByMedication(ctx)
		stockCh <- stockResult{rows, err}
	}()
	go func() {
		rows, err := uc.reportRepo.LowStock(ctx)
		lowCh <- stockResult{rows, err}
	}()
	go func() {
		n, err := uc.reportRepo.CountMovements(ctx, &todayStart, &todayEnd)
		todayCh <- countResult{n, err}
	}()
	go func() {
		rows, err := uc.reportRepo.KindTotals(ctx, nil, nil)
		totalsCh <- totalsResult{rows, err}
	}()
	go func() {
		rows, err := uc.reportRepo.SummaryByMedication(ctx, entity.MovementOutbound, &monthStart, &todayEnd)
		topCh <- topResult{rows, err}
	}()

	stock := <-stockCh
	low := <-lowCh
	today := <-todayCh
	totals := <-totalsCh
	top := <-topCh

	for _, e := range []struct {
		op  string
		err error
	}{
		{"stock por medicamento", stock.err},
		{"alertas", low.err},
		{"movimientos de hoy", today.err},
		{"totales por tipo", totals.err},
		{"consumo del mes", top.err},
	} {
		if e.err != nil {
			return nil, domain.Storage(fmt.Sprintf("dashboard: %s", e.op), e.err)
		}
	}

	summary := &dto.DashboardSummaryDTO{
		ActiveMedications: int64(len(stock.rows)),
		MovementsToday:    today.n,
		AlertCount:        len(low.rows),
		Totals:            make([]dto.KindTotalDTO, 0, 3),
		TopConsumption:    make([]dto.ConsumptionItemDTO, 0, dashboardTopConsumption),
		GeneratedAt:       now,
	}
	stockByID := make(map[int64]int64, len(stock.rows))
	for _, s := range stock.rows {
		summary.TotalUnits += s.TotalQuantity
		stockByID[s.MedicationID] = s.TotalQuantity
	}

	// Siempre los tres tipos, en orden fijo, aunque no tengan movimientos
	byKind := make(map[entity.MovementKind]repository.KindTotal, len(totals.rows))
	for _, t := range totals.rows {
		byKind[t.Kind] = t
	}
	for _, k := range []entity.MovementKind{entity.MovementInbound, entity.MovementOutbound, entity.MovementExpired} {
		t := byKind[k]
		summary.Totals = append(summary.Totals, dto.KindTotalDTO{
			Type:          string(k),
			TotalQuantity: t.TotalQuantity,
			MovementCount: t.MovementCount,
		})
	}

	for i, r := range top.rows {
		if i == dashboardTopConsumption {
			break
		}
		summary.TopConsumption = append(summary.TopConsumption, dto.ConsumptionItemDTO{
			MedicationID:  r.MedicationID,
			Name:          r.Name,
			Category:      r.Category,
			TotalQuantity: r.TotalQuantity,
			MovementCount: r.MovementCount,
			CurrentStock:  stockByID[r.MedicationID],
		})
	}
	return summary, nil
}

// ConsumptionPDF genera el PDF del consumo en [from, to) junto con las alertas vigentes.
func (uc *ReportUseCase) ConsumptionPDF(ctx context.Context, from, to *time.Time) ([]byte, error) {
	if uc.pdf == nil {
		return nil, fmt.Errorf("analytics: generador PDF no configurado")
	}
	report, err := uc.Consumption(ctx, from, to)
	if err != nil {
		return nil, err
	}
	alerts, err := uc.Alerts(ctx)
	if err != nil {
		return nil, err
	}
	return uc.pdf.GenerateConsumptionReport(report, alerts, periodLabel(from, to))
}

// periodLabel etiqueta legible del período, ej: "Marzo 2024" o "2024-03-01 a 2024-03-15".
func periodLabel(from, to *time.Time) string {
	if from == nil || to == nil {
		return "Histórico completo"
	}
	if from.Day() == 1 && to.Equal(from.AddDate(0, 1, 0)) {
		return monthLabel(*from)
	}
	return fmt.Sprintf("%s a %s", from.Format(dto.DateLayout), to.AddDate(0, 0, -1).Format(dto.DateLayout))
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}

// sortByTotalDesc orden estable por total descendente (empates por nombre).
func sortByTotalDesc(items []dto.ConsumptionItemDTO) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TotalQuantity != items[j].TotalQuantity {
			return items[i].TotalQuantity > items[j].TotalQuantity
		}
		return items[i].Name < items[j].Name
	})
}
