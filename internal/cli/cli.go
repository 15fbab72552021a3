package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horizons/internal/config"
	"horizons/internal/ephemeris"
	"horizons/internal/filewalker"
	"horizons/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "horizons",
		Short: "Query and parse JPL Horizons ephemerides",
		Long: `Reads the text tables returned by the JPL Horizons service into state
vectors and osculating orbital elements, fetches new ones, and keeps them in
PostgreSQL with a body catalog in Neo4j.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(bodiesCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(nearestCmd())
	rootCmd.AddCommand(seriesCmd())

	return rootCmd
}

type parseOptions struct {
	kind    string
	parser  string
	format  string
	workers int
}

func parseCmd() *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse <path>...",
		Short: "Parse saved Horizons responses and print their records",
		Long: `Parses every file named, and every .txt, .eph and .horizons file under
each directory named. The record kind is detected from the first data line
unless --kind forces one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runParse(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "auto", "Record kind: auto, vectors or elements")
	cmd.Flags().StringVar(&opts.parser, "parser", "stream", "Orbital elements parser: stream or grammar")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json, yaml or tsv")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Files parsed at once (default WORKER_COUNT)")

	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Check an orbital elements response and report every syntax error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
		},
	}
}

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <file>",
		Short: "Parse an orbital elements response with both parsers and compare the records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.OutOrStdout(), args[0])
		},
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// initDependencies connects to PostgreSQL and Neo4j.
func initDependencies(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, neo4j.DriverWithContext, error) {
	// PostgreSQL pool.
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	// Neo4j driver.
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
		pgPool.Close()
		neo4jDriver.Close(ctx)
		return nil, nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")

	return pgPool, neo4jDriver, nil
}

func newWalker(kind, parser string) (*filewalker.Walker, error) {
	w := filewalker.NewWalker()
	switch kind {
	case "", "auto":
	case string(ephemeris.KindVectors), string(ephemeris.KindElements):
		w.Kind = ephemeris.Kind(kind)
	default:
		return nil, fmt.Errorf("unknown record kind %q (want auto, vectors or elements)", kind)
	}

	elements, err := ephemeris.ParserFor(parser)
	if err != nil {
		return nil, err
	}
	w.Elements = elements
	return w, nil
}

// parseFiles parses entries on a worker pool. Failed files are logged and
// grammar failures are rendered to errOut; the results of the rest come back
// in entry order.
func parseFiles(ctx context.Context, errOut io.Writer, w *filewalker.Walker, entries []filewalker.FileEntry, workers int) ([]*filewalker.ParseResult, int) {
	pool := worker.NewPool[filewalker.FileEntry, *filewalker.ParseResult](workers,
		func(ctx context.Context, entry filewalker.FileEntry) (*filewalker.ParseResult, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return w.ParseFile(entry)
		},
	)

	tasks := pool.Execute(ctx, entries)

	var results []*filewalker.ParseResult
	for _, t := range tasks {
		if t.Err == nil {
			results = append(results, t.Result)
			continue
		}
		log.Error().Err(t.Err).Str("file", t.Input.Path).Msg("Parse failed")

		var errs ephemeris.SyntaxErrors
		if errors.As(t.Err, &errs) {
			if data, err := os.ReadFile(t.Input.Path); err == nil {
				if err := ephemeris.RenderDiagnostics(errOut, string(data), t.Input.Path, errs); err != nil {
					log.Warn().Err(err).Msg("Failed to write diagnostics")
				}
			}
		}
	}
	return results, len(worker.Failed(tasks))
}

// runParse handles the `parse` command.
func runParse(ctx context.Context, out, errOut io.Writer, opts parseOptions, paths []string) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	w, err := newWalker(opts.kind, opts.parser)
	if err != nil {
		return err
	}

	entries, err := w.Collect(paths...)
	if err != nil {
		return fmt.Errorf("collect input files: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Strs("paths", paths).Msg("No ephemeris files found")
		return nil
	}

	workers := opts.workers
	if workers <= 0 {
		workers = config.Load().WorkerCount
	}

	start := time.Now()
	results, failed := parseFiles(ctx, errOut, w, entries, workers)

	records := 0
	for _, r := range results {
		records += r.Len()
	}
	log.Info().
		Int("files", len(entries)).
		Int("failed", failed).
		Int("records", records).
		Dur("elapsed", time.Since(start)).
		Msg("Parsing complete")

	if err := writeResults(out, opts.format, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(entries))
	}
	return nil
}

// runCheck handles the `check` command.
func runCheck(out, errOut io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	records, err := ephemeris.ParseElementsDocument(text)
	var errs ephemeris.SyntaxErrors
	if errors.As(err, &errs) {
		if err := ephemeris.RenderDiagnostics(errOut, text, path, errs); err != nil {
			return fmt.Errorf("write diagnostics: %w", err)
		}
		return fmt.Errorf("%s: %d syntax errors", path, len(errs))
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}

	_, err = fmt.Fprintf(out, "%s: %d records OK\n", path, len(records))
	return err
}

// runCompare handles the `compare` command. Epochs are compared to the whole
// second since only the grammar parser keeps fractions.
func runCompare(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	parsers := []ephemeris.ElementsParser{ephemeris.StreamParser{}, ephemeris.GrammarParser{}}
	got := make([][]ephemeris.OrbitalElements, len(parsers))
	for i, p := range parsers {
		start := time.Now()
		got[i], err = p.ParseElements(text)
		if err != nil {
			return fmt.Errorf("%s parser: %w", p.Name(), err)
		}
		log.Debug().Str("parser", p.Name()).Int("records", len(got[i])).Dur("elapsed", time.Since(start)).Msg("Parsed")
	}

	stream, grammar := got[0], got[1]
	if len(stream) != len(grammar) {
		return fmt.Errorf("stream parser read %d records, grammar parser read %d", len(stream), len(grammar))
	}

	var mismatched int
	for i := range stream {
		if !sameElements(stream[i], grammar[i]) {
			mismatched++
			fmt.Fprintf(out, "record %d differs: stream %+v, grammar %+v\n", i, stream[i], grammar[i])
		}
	}
	if mismatched > 0 {
		return fmt.Errorf("%d of %d records differ", mismatched, len(stream))
	}

	_, err = fmt.Fprintf(out, "%s: %d records agree\n", path, len(stream))
	return err
}

func sameElements(a, b ephemeris.OrbitalElements) bool {
	if !a.Time.Truncate(time.Second).Equal(b.Time.Truncate(time.Second)) {
		return false
	}
	a.Time, b.Time = time.Time{}, time.Time{}
	return a == b
}
