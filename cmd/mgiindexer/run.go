package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"mgiindexer/internal/config"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/indexers"
	"mgiindexer/internal/metrics"
	"mgiindexer/internal/source"
)

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "run [job...]",
		Short: "Rebuild the named indexes, or every index with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return &usageError{err: errors.New("name the jobs to run or pass --all")}
			}
			reg, err := indexers.NewRegistry()
			if err != nil {
				return err
			}
			names := args
			if all {
				names = reg.Names()
			}
			if _, err := reg.Resolve(names); err != nil {
				return &usageError{err: err}
			}

			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := config.NewLogger(cfg.Log, stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := source.Open(ctx, cfg.SourceOptions())
			if err != nil {
				logger.Error("cannot connect to source database", "db", cfg.DB, "error", err)
				return &reportedError{err: err}
			}
			defer func() { _ = db.Close() }()

			sinkCfg, err := cfg.SinkConfig(ctx)
			if err != nil {
				logger.Error("cannot open index backend", "backend", cfg.Index.Backend, "error", err)
				return &reportedError{err: err}
			}

			runner := &indexer.Runner{
				DB:          db,
				Registry:    reg,
				Sink:        sinkCfg,
				Metrics:     metrics.NewRegistry(),
				Log:         logger,
				Parallel:    cfg.Parallel,
				Sizes:       cfg.JobSizes,
				Pushgateway: cfg.Metrics.Pushgateway,
				PushJob:     cfg.Metrics.Job,
			}
			results, err := runner.Run(ctx, names)
			printResults(stdout, results)
			if err != nil {
				logger.Error("run failed", "run", runner.RunID, "anomaly", indexer.IsAnomaly(err), "error", err)
				return &reportedError{err: err}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run every registered job")
	cmd.Flags().Int("parallel", 1, "jobs to run at the same time")
	cmd.Flags().String("backend", "", "index backend: solr, archive or memory")
	cmd.Flags().String("log-level", "", "debug, info, warn or error")
	cmd.Flags().String("log-format", "", "text or json")
	return cmd
}

func printResults(w io.Writer, results []indexer.Result) {
	if len(results) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"JOB", "STATUS", "DOCUMENTS", "FLUSHES", "ELAPSED"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Job, string(r.Status), r.Documents, r.Flushes, r.Elapsed.Round(time.Millisecond).String()})
	}
	t.Render()
}

func newListCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available jobs",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			reg, err := indexers.NewRegistry()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				if _, err := fmt.Fprintln(stdout, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
