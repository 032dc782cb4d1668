package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MedicationUC  *usecase.MedicationUseCase
	UserUC        *usecase.UserUseCase
	BatchUC       *inventory.BatchUseCase
	Ledger        *inventory.LedgerUseCase
	ReportUC      *analytics.ReportUseCase
	Metrics       *metrics.Metrics // nil = sin /metrics
	Log           zerolog.Logger
	JWTSecret     string
	DefaultUserID int64
	ServiceName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	var obs RequestObserver
	if deps.Metrics != nil {
		obs = deps.Metrics
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api", RequestLogger(deps.Log, obs), IdentityMiddleware(deps.JWTSecret, deps.DefaultUserID))

	medications := api.Group("/medications")
	medicationHandler := NewMedicationHandler(deps.MedicationUC, deps.BatchUC)
	medications.Post("/", medicationHandler.Create)
	medications.Get("/", medicationHandler.List)
	medications.Get("/categories", medicationHandler.Categories)
	medications.Get("/barcode/:code", medicationHandler.GetByBarcode)
	medications.Get("/:id", medicationHandler.GetByID)
	medications.Put("/:id", medicationHandler.Update)
	medications.Get("/:id/batches", medicationHandler.Batches)
	medications.Post("/:id/deactivate", medicationHandler.Deactivate)
	medications.Post("/:id/reactivate", medicationHandler.Reactivate)

	batches := api.Group("/batches")
	batchHandler := NewBatchHandler(deps.BatchUC, deps.Ledger)
	batches.Post("/", batchHandler.Create)
	batches.Get("/", batchHandler.List)
	batches.Get("/reference/:code", batchHandler.GetByReference)
	batches.Get("/:id", batchHandler.GetByID)
	batches.Get("/:id/balance", batchHandler.Balance)
	batches.Get("/:id/reconcile", batchHandler.Reconcile)

	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Ledger)
	movements.Post("/", movementHandler.Register)
	movements.Get("/", movementHandler.List)
	movements.Get("/:id", movementHandler.GetByID)

	users := api.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Get("/me", userHandler.Me)
	users.Get("/:id", userHandler.GetByID)

	reports := api.Group("/reports")
	reportHandler := NewReportHandler(deps.ReportUC)
	reports.Get("/alerts", reportHandler.Alerts)
	reports.Get("/consumption", reportHandler.Consumption)
	reports.Get("/consumption/pdf", reportHandler.ConsumptionPDF)
	reports.Get("/expired", reportHandler.Expired)
	reports.Get("/inventory", reportHandler.Inventory)
	reports.Get("/dashboard", reportHandler.Dashboard)
}
