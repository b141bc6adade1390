package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"influxjson/internal/service"
)

// ── export ─────────────────────────────────────────────────

// reportEmitter prints the summary of every finished run.
type reportEmitter struct {
	a *app
}

func (e reportEmitter) Emit(ctx context.Context, event string, data any) {
	switch event {
	case service.EventRunFinished:
		if r, ok := data.(*service.Report); ok {
			if err := printReport(e.a.stdout, e.a.format, r); err != nil {
				e.a.logger.Warn("print summary", "error", err)
			}
		}
	default:
		service.LogEmitter{Logger: e.a.logger}.Emit(ctx, event, data)
	}
}

func newExportCmd(a *app) *cobra.Command {
	var schedule, watch string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every measurement to JSON",
		Long: "Export every measurement to <output-dir>/<measurement>.json.\n\n" +
			"With --schedule (a cron expression such as \"0 3 * * *\" or \"@every 6h\")\n" +
			"the export repeats until interrupted. With --watch <file> it runs every\n" +
			"time that file is written, e.g. a marker touched by a backup job.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("schedule") {
				a.cfg.Schedule = schedule
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Watch = watch
			}
			if a.cfg.Schedule != "" && a.cfg.Watch != "" {
				return fmt.Errorf("--schedule and --watch are mutually exclusive")
			}

			svc, cleanup, err := a.newService(reportEmitter{a: a})
			if err != nil {
				return err
			}
			defer cleanup()

			switch {
			case a.cfg.Schedule != "":
				return svc.Schedule(cmd.Context(), a.cfg.Schedule)
			case a.cfg.Watch != "":
				return svc.Watch(cmd.Context(), a.cfg.Watch)
			}
			_, err = svc.RunOnce(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression; repeat the export on this schedule")
	cmd.Flags().StringVar(&watch, "watch", "", "Trigger file; export every time it is written")
	return cmd
}

// ── measurements / count ──────────────────────────────────

func newMeasurementsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "measurements",
		Short: "List the measurements of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := svc.ListMeasurements(cmd.Context())
			if err != nil {
				return err
			}
			if a.format == "json" {
				if names == nil {
					names = []string{}
				}
				return printJSON(a.stdout, names)
			}
			for _, n := range names {
				fmt.Fprintln(a.stdout, n)
			}
			return nil
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <measurement>",
		Short: "Print the row count of a measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.ResolveCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.format == "json" {
				return printJSON(a.stdout, map[string]any{"measurement": args[0], "rows": n})
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}
}

// ── runs ───────────────────────────────────────────────────

func newRunsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent export runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := svc.Runs(limit)
			if err != nil {
				return err
			}
			return printRuns(a.stdout, a.format, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its per-measurement outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.RunDetail(args[0])
			if err != nil {
				return err
			}
			return printReport(a.stdout, a.format, report)
		},
	})
	return cmd
}

// ── version ────────────────────────────────────────────────

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.format == "json" {
				return printJSON(a.stdout, map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			fmt.Fprintf(a.stdout, "influxjson version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
