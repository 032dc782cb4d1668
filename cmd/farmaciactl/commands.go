package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/seed"
	"github.com/jhoicas/Farmacia-api/pkg/jwt"
)

func migrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del almacén",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cfg, err := g.open(cmd, true)
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "esquema al día (%s)\n", cfg.Store.Driver)
			return nil
		},
	}
}

func seedCmd(g *globalFlags) *cobra.Command {
	var (
		file   string
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Carga el catálogo inicial desde un archivo YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cfg, err := g.open(cmd, true)
			if err != nil {
				return err
			}
			defer c.Close()
			if file == "" {
				file = cfg.Seed.File
			}
			f, err := seed.ParseFile(file)
			if err != nil {
				return err
			}
			res, err := c.Seeder.Apply(cmd.Context(), f, userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Archivo YAML (default SEED_FILE)")
	cmd.Flags().Int64Var(&userID, "user", 0, "Operador al que se atribuyen los movimientos (default: primer usuario)")
	return cmd
}

func movementCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movement",
		Short: "Registro y consulta de movimientos",
	}

	var (
		batchID  int64
		kind     string
		quantity string
		userID   int64
		notes    string
	)
	record := &cobra.Command{
		Use:   "record",
		Short: "Registra un movimiento (entrada, salida o caducado)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("cantidad inválida %q", quantity)
			}
			c, cfg, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			if userID == 0 {
				userID = cfg.App.DefaultUserID
			}
			mov, err := c.Ledger.RegisterMovementFromRequest(cmd.Context(), userID, dto.RegisterMovementRequest{
				BatchID:  batchID,
				Type:     kind,
				Quantity: qty,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewMovementResponse(mov))
		},
	}
	record.Flags().Int64Var(&batchID, "batch", 0, "ID de la existencia")
	record.Flags().StringVar(&kind, "type", "", "inbound|outbound|expired (o entrada|salida|caducado)")
	record.Flags().StringVar(&quantity, "quantity", "", "Cantidad entera > 0")
	record.Flags().Int64Var(&userID, "user", 0, "Operador (default DEFAULT_USER_ID)")
	record.Flags().StringVar(&notes, "notes", "", "Notas")
	_ = record.MarkFlagRequired("batch")
	_ = record.MarkFlagRequired("type")
	_ = record.MarkFlagRequired("quantity")

	var (
		listBatch int64
		listKind  string
		limit     int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Historial de movimientos, más recientes primero",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := repository.MovementFilter{BatchID: listBatch, Limit: limit}
			if listKind != "" {
				k, ok := entity.ParseMovementKind(listKind)
				if !ok {
					return fmt.Errorf("tipo inválido %q", listKind)
				}
				filter.Kind = k
			}
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			movs, err := c.Ledger.ListMovements(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := make([]dto.MovementResponse, 0, len(movs))
			for _, m := range movs {
				out = append(out, dto.NewMovementResponse(m))
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	list.Flags().Int64Var(&listBatch, "batch", 0, "Filtrar por existencia")
	list.Flags().StringVar(&listKind, "type", "", "Filtrar por tipo")
	list.Flags().IntVar(&limit, "limit", 50, "Máximo de movimientos")

	cmd.AddCommand(record, list)
	return cmd
}

func reportsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Reportes del inventario",
	}

	alerts := &cobra.Command{
		Use:   "alerts",
		Short: "Medicamentos en o por debajo del umbral de reorden",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Reports.Alerts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Resumen del tablero",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Reports.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.AddCommand(alerts, dashboard, periodReportCmd(g, "consumo", "Consumo (salidas) por medicamento", false),
		periodReportCmd(g, "caducados", "Bajas por caducidad por medicamento", true), pdfReportCmd(g))
	return cmd
}

type periodFlags struct {
	from, to    string
	month, year int
}

func (p *periodFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.from, "from", "", "Desde (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.to, "to", "", "Hasta, inclusivo (YYYY-MM-DD)")
	cmd.Flags().IntVar(&p.month, "month", 0, "Mes (1-12)")
	cmd.Flags().IntVar(&p.year, "year", 0, "Año")
}

func periodReportCmd(g *globalFlags, use, short string, expired bool) *cobra.Command {
	var p periodFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := analytics.ParsePeriod(p.from, p.to, p.month, p.year)
			if err != nil {
				return fmt.Errorf("período inválido: %w", err)
			}
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			var out *dto.ConsumptionReportDTO
			if expired {
				out, err = c.Reports.Expired(cmd.Context(), from, to)
			} else {
				out, err = c.Reports.Consumption(cmd.Context(), from, to)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	p.bind(cmd)
	return cmd
}

func pdfReportCmd(g *globalFlags) *cobra.Command {
	var (
		p   periodFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Exporta el consumo y las alertas a PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := analytics.ParsePeriod(p.from, p.to, p.month, p.year)
			if err != nil {
				return fmt.Errorf("período inválido: %w", err)
			}
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()
			data, err := c.Reports.ConsumptionPDF(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reporte escrito en %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	p.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "consumo.pdf", "Archivo de salida")
	return cmd
}

func reconcileCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <batch-id>...",
		Short: "Compara el saldo de cada existencia con la suma de su libro",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := strconv.ParseInt(a, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("id de existencia inválido %q", a)
				}
				ids = append(ids, id)
			}
			c, _, err := g.open(cmd, false)
			if err != nil {
				return err
			}
			defer c.Close()

			out := make([]dto.ReconcileResponse, 0, len(ids))
			inconsistent := 0
			for _, id := range ids {
				r, err := c.Ledger.ReconcileBatch(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("existencia %d: %w", id, err)
				}
				if !r.Consistent() {
					inconsistent++
				}
				out = append(out, dto.ReconcileResponse{
					BatchID: r.BatchID, Counter: r.Counter, LedgerSum: r.LedgerSum, Consistent: r.Consistent(),
				})
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if inconsistent > 0 {
				return fmt.Errorf("%d existencia(s) no coinciden con el libro", inconsistent)
			}
			return nil
		},
	}
}

func tokenCmd(g *globalFlags) *cobra.Command {
	var (
		userID int64
		name   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un token de operador para la API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, name, cfg.JWT.Issuer, cfg.JWT.Expiration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "ID del operador")
	cmd.Flags().StringVar(&name, "name", "", "Nombre del operador")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
