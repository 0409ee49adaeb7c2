package main

import (
	"net/http"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"gearsel/internal/adapter"
	"gearsel/internal/metrics"
	"gearsel/internal/pipeline"
	"gearsel/internal/pricing"
	"gearsel/internal/repair"
	"gearsel/internal/restore"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

var (
	buildIn       string
	buildSnapshot bool
	buildReport   string
	metricsAddr   string

	restoreOut string
)

// serveMetrics exposes reg until the command returns.
func serveMetrics(addr string, reg *metrics.Registry) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	return func() { _ = srv.Close() }
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Normalize, repair and persist a raw catalog import",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(buildIn)
		if err != nil {
			return err
		}
		st, closeStore, err := state.Open(cfg.Store.Backend, cfg.Store.Dir)
		if err != nil {
			return err
		}
		defer closeStore()

		mreg := metrics.NewRegistry()
		defer serveMetrics(metricsAddr, mreg)()

		clog, err := changelogWriter(cfg)
		if err != nil {
			return err
		}
		calc := pricing.NewCalculator(cfg.Pricing)
		opts := []pipeline.Option{pipeline.WithChangelog(clog), pipeline.WithMetrics(mreg), pipeline.WithLogger(log)}
		if buildSnapshot {
			opts = append(opts, pipeline.WithSnapshots(snapshot.NewFilesystemSnapshotter(cfg.Snapshot.Dir), manifestPublisher(cfg)))
		}
		b := pipeline.New(adapter.New(calc, cfg.Defaults, adapter.WithLogger(log)), calc, repair.New(cfg.Defaults, log), st, opts...)

		_, rep, err := b.Build(cmd.Context(), data)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), buildReport, rep)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the store from the latest snapshot and replay the change log",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := state.Open(cfg.Store.Backend, cfg.Store.Dir)
		if err != nil {
			return err
		}
		defer closeStore()

		r := restore.NewRestorer(st, snapshot.NewFilesystemSnapshotter(cfg.Snapshot.Dir), manifestReader(cfg),
			restore.WithChangelogPath(filepath.Join(cfg.Changelog.Dir, cfg.Changelog.File)),
			restore.WithLogger(log),
		)
		res, err := r.RestoreAndReplay(cmd.Context())
		if err != nil {
			return err
		}
		cat, err := state.LoadCatalog(st)
		if err != nil {
			return err
		}
		log.Info().Int("records", cat.Len()).Int("applied", res.Applied).Msg("restored")
		if restoreOut == "" {
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), restoreOut, cat)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildIn, "input", "i", "-", "raw catalog file (- for stdin)")
	buildCmd.Flags().BoolVar(&buildSnapshot, "snapshot", true, "write a snapshot and publish the manifest")
	buildCmd.Flags().StringVar(&buildReport, "report", "-", "build report output (- for stdout)")
	buildCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address while building")
	rootCmd.AddCommand(buildCmd)

	restoreCmd.Flags().StringVarP(&restoreOut, "output", "o", "", "write the restored catalog here (- for stdout)")
	rootCmd.AddCommand(restoreCmd)
}
