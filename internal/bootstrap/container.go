// Package bootstrap arma el grafo de dependencias (almacén, casos de uso, métricas) a partir de la
// configuración. Lo comparten el servidor HTTP y la CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Farmacia-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/seed"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/Farmacia-api/pkg/config"
)

// Container casos de uso listos para usar sobre el almacén configurado.
type Container struct {
	Medications *usecase.MedicationUseCase
	Users       *usecase.UserUseCase
	Batches     *inventory.BatchUseCase
	Ledger      *inventory.LedgerUseCase
	Reports     *analytics.ReportUseCase
	Seeder      *seed.Seeder
	Metrics     *metrics.Metrics

	close func()
}

type stores struct {
	runner  inventory.TxRunner
	meds    repository.MedicationRepository
	batches repository.BatchRepository
	movs    repository.MovementRepository
	users   repository.UserRepository
	reports repository.ReportRepository
}

// New abre el almacén de cfg.Store.Driver. Con migrate aplica las migraciones pendientes de
// PostgreSQL (SQLite asegura su esquema siempre al abrir).
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (*Container, error) {
	var (
		s       stores
		closeFn func()
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if migrate {
			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migraciones: %w", err)
			}
			for _, name := range applied {
				log.Info().Str("migration", name).Msg("migración aplicada")
			}
		}
		s = stores{
			runner:  postgres.NewTxRunner(pool),
			meds:    postgres.NewMedicationRepository(pool),
			batches: postgres.NewBatchRepository(pool),
			movs:    postgres.NewMovementRepository(pool),
			users:   postgres.NewUserRepository(pool),
			reports: postgres.NewReportRepository(pool),
		}
		closeFn = pool.Close
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, fmt.Errorf("abrir SQLite: %w", err)
		}
		s = stores{
			runner:  sqlite.NewTxRunner(db),
			meds:    sqlite.NewMedicationRepository(db),
			batches: sqlite.NewBatchRepository(db),
			movs:    sqlite.NewMovementRepository(db),
			users:   sqlite.NewUserRepository(db),
			reports: sqlite.NewReportRepository(db),
		}
		closeFn = func() { _ = db.Close() }
	default:
		return nil, fmt.Errorf("driver de almacén desconocido %q", cfg.Store.Driver)
	}

	m := metrics.New()
	ledger := inventory.NewLedgerUseCase(s.runner, s.batches, s.movs, log).WithObserver(m)
	c := &Container{
		Medications: usecase.NewMedicationUseCase(s.meds, s.batches, s.runner, ledger),
		Users:       usecase.NewUserUseCase(s.users),
		Batches:     inventory.NewBatchUseCase(s.runner, s.batches, ledger),
		Ledger:      ledger,
		Reports:     analytics.NewReportUseCase(s.reports, s.batches, infrapdf.NewMarotoReportGenerator(cfg.App.Name)),
		Metrics:     m,
		close:       closeFn,
	}
	c.Seeder = seed.NewSeeder(c.Users, c.Medications, c.Batches, c.Ledger, log)
	log.Info().Str("driver", cfg.Store.Driver).Msg("almacén listo")
	return c, nil
}

// Close libera la conexión al almacén.
func (c *Container) Close() {
	if c.close != nil {
		c.close()
	}
}
