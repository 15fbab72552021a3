package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"horizons/internal/cache"
	"horizons/internal/config"
	"horizons/internal/ephemeris"
	"horizons/internal/filewalker"
	"horizons/internal/graph"
	"horizons/internal/horizons"
	"horizons/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type fetchOptions struct {
	center int
	kind   string
	start  string
	stop   string
	step   string
	format string
	store  bool
}

func fetchCmd() *cobra.Command {
	var opts fetchOptions
	cmd := &cobra.Command{
		Use:   "fetch <body>",
		Short: "Fetch state vectors or orbital elements of a body from Horizons",
		Long: `Fetches a table for a body given by Horizons id or by name. Names are
looked up in the major body list. With --store the records are saved to
PostgreSQL, the response is cached there and the series is linked in the
catalog.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runFetch(ctx, cmd.OutOrStdout(), config.Load(), opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.center, "center", 0, "Center body id (default DEFAULT_CENTER)")
	cmd.Flags().StringVar(&opts.kind, "kind", string(ephemeris.KindVectors), "Table kind: vectors or elements")
	cmd.Flags().StringVar(&opts.start, "start", "", "Start time, UTC (default one day ago)")
	cmd.Flags().StringVar(&opts.stop, "stop", "", "Stop time, UTC (default now)")
	cmd.Flags().StringVar(&opts.step, "step", "1 h", "Step size, e.g. \"1 h\", \"10 m\", \"1 d\" or a bare count")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json, yaml or tsv")
	cmd.Flags().BoolVar(&opts.store, "store", false, "Save records to PostgreSQL and link them in Neo4j")

	return cmd
}

func bodiesCmd() *cobra.Command {
	var format string
	var sync bool
	cmd := &cobra.Command{
		Use:   "bodies",
		Short: "List the major bodies known to Horizons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runBodies(ctx, cmd.OutOrStdout(), config.Load(), format, sync)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "tsv", "Output format: json, yaml or tsv")
	cmd.Flags().BoolVar(&sync, "sync", false, "Upsert the bodies into the Neo4j catalog")

	return cmd
}

func ingestCmd() *cobra.Command {
	var parser string
	cmd := &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Parse saved responses and store their records",
		Long: `Parses every ephemeris file under a directory and stores the records under
the target and center bodies named in each file's header. Files without both
body lines are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runIngest(ctx, cmd.ErrOrStderr(), config.Load(), parser, args[0])
		},
	}

	cmd.Flags().StringVar(&parser, "parser", "stream", "Orbital elements parser: stream or grammar")

	return cmd
}

func exportCmd() *cobra.Command {
	var center int
	var kind, format, output string
	cmd := &cobra.Command{
		Use:   "export <target>",
		Short: "Export a stored series to a TSV or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			target, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("target must be a body id: %w", err)
			}
			cfg := config.Load()
			if center == 0 {
				center = cfg.DefaultCenter
			}
			return runExport(ctx, cfg, store.Series{Target: target, Center: center}, ephemeris.Kind(kind), format, output)
		},
	}

	cmd.Flags().IntVar(&center, "center", 0, "Center body id (default DEFAULT_CENTER)")
	cmd.Flags().StringVar(&kind, "kind", string(ephemeris.KindVectors), "Series kind: vectors or elements")
	cmd.Flags().StringVar(&format, "export", "tsv", "Export format: tsv or json")
	cmd.Flags().StringVar(&output, "output", "series", "Output path (without extension)")

	return cmd
}

func nearestCmd() *cobra.Command {
	var center, k int
	var x, y, z float32
	cmd := &cobra.Command{
		Use:   "nearest <target>",
		Short: "Find the stored states of a body closest to a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			target, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("target must be a body id: %w", err)
			}
			cfg := config.Load()
			if center == 0 {
				center = cfg.DefaultCenter
			}
			return runNearest(ctx, cmd.OutOrStdout(), cfg, store.Series{Target: target, Center: center}, [3]float32{x, y, z}, k)
		},
	}

	cmd.Flags().IntVar(&center, "center", 0, "Center body id (default DEFAULT_CENTER)")
	cmd.Flags().Float32Var(&x, "x", 0, "X in km")
	cmd.Flags().Float32Var(&y, "y", 0, "Y in km")
	cmd.Flags().Float32Var(&z, "z", 0, "Z in km")
	cmd.Flags().IntVarP(&k, "limit", "k", 5, "Number of states")

	return cmd
}

func seriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series <body>",
		Short: "List the series stored for a body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			body, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("body must be an id: %w", err)
			}
			return runSeries(ctx, cmd.OutOrStdout(), config.Load(), body)
		},
	}
}

func newService(cfg *config.Config, responses horizons.ResponseCache) *horizons.Service {
	client := horizons.NewClient(cfg.HorizonsAPIURL, cfg.HorizonsRetries, cfg.HorizonsTimeout)
	return horizons.NewService(client, responses, cfg.DefaultCenter)
}

// resolveBody turns an id or a major body name into an id.
func resolveBody(ctx context.Context, svc *horizons.Service, arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return id, nil
	}
	bodies, err := svc.MajorBodies(ctx)
	if err != nil {
		return 0, fmt.Errorf("list major bodies: %w", err)
	}
	b, ok := horizons.FindBody(bodies, arg)
	if !ok {
		return 0, fmt.Errorf("no major body named %q", arg)
	}
	log.Debug().Str("name", arg).Int("id", b.ID).Msg("Resolved body")
	return b.ID, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads a UTC time flag. An empty value gives fallback.
func parseTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot read time %q (want YYYY-MM-DD [HH:MM[:SS]] or RFC 3339)", value)
}

// runFetch handles the `fetch` command.
func runFetch(ctx context.Context, out io.Writer, cfg *config.Config, opts fetchOptions, bodyArg string) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	kind := ephemeris.Kind(opts.kind)
	if kind != ephemeris.KindVectors && kind != ephemeris.KindElements {
		return fmt.Errorf("unknown table kind %q (want vectors or elements)", opts.kind)
	}
	step, err := horizons.ParseStepSize(opts.step)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Minute)
	start, err := parseTime(opts.start, now.Add(-24*time.Hour))
	if err != nil {
		return err
	}
	stop, err := parseTime(opts.stop, now)
	if err != nil {
		return err
	}
	if !stop.After(start) {
		return fmt.Errorf("stop %s is not after start %s", stop, start)
	}
	center := opts.center
	if center == 0 {
		center = cfg.DefaultCenter
	}

	var pgPool *pgxpool.Pool
	var catalog *graph.Catalog
	responses := cache.NewResponseCache(nil)
	if opts.store {
		pool, driver, err := initDependencies(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		defer driver.Close(ctx)

		pgPool = pool
		catalog = graph.NewCatalog(driver)
		responses = cache.NewResponseCache(pool)
		if err := responses.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	svc := newService(cfg, responses).WithCenter(center).WithStep(step)
	body, err := resolveBody(ctx, svc, bodyArg)
	if err != nil {
		return err
	}

	result := &filewalker.ParseResult{
		Path: fmt.Sprintf("horizons:%d@%d", body, center),
		Kind: kind,
	}
	if kind == ephemeris.KindVectors {
		result.Vectors, err = svc.StateVectors(ctx, body, start, stop)
	} else {
		result.Elements, err = svc.OrbitalElements(ctx, body, start, stop)
	}
	if err != nil {
		return err
	}

	if opts.store {
		series := store.Series{Target: body, Center: center}
		if err := saveResult(ctx, store.New(pgPool), catalog, series, result); err != nil {
			return err
		}
	}

	return writeResults(out, opts.format, []*filewalker.ParseResult{result})
}

// saveResult stores the records of result under series and links the series
// in the catalog.
func saveResult(ctx context.Context, st *store.Store, catalog *graph.Catalog, series store.Series, result *filewalker.ParseResult) error {
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := catalog.EnsureSchema(ctx); err != nil {
		return err
	}

	var saved int
	var err error
	var first, last time.Time
	switch {
	case len(result.Vectors) > 0:
		saved, err = st.SaveStateVectors(ctx, series, result.Vectors)
		first, last = result.Vectors[0].Time, result.Vectors[len(result.Vectors)-1].Time
	case len(result.Elements) > 0:
		saved, err = st.SaveOrbitalElements(ctx, series, result.Elements)
		first, last = result.Elements[0].Time, result.Elements[len(result.Elements)-1].Time
	default:
		log.Warn().Str("series", series.String()).Msg("No records to store")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", series, err)
	}

	link := graph.SeriesLink{
		Target:  series.Target,
		Center:  series.Center,
		Kind:    string(result.Kind),
		Start:   first,
		Stop:    last,
		Records: saved,
	}
	if err := catalog.LinkSeries(ctx, link); err != nil {
		return fmt.Errorf("link series %s: %w", series, err)
	}
	log.Info().Str("series", series.String()).Str("kind", string(result.Kind)).Int("records", saved).Msg("Stored series")
	return nil
}

// runBodies handles the `bodies` command.
func runBodies(ctx context.Context, out io.Writer, cfg *config.Config, format string, sync bool) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	bodies, err := newService(cfg, cache.NewResponseCache(nil)).MajorBodies(ctx)
	if err != nil {
		return err
	}

	if sync {
		pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		defer neo4jDriver.Close(ctx)

		catalog := graph.NewCatalog(neo4jDriver)
		if err := catalog.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := catalog.UpsertBodies(ctx, bodies); err != nil {
			return err
		}
	}

	return writeBodies(out, format, bodies)
}

// runIngest handles the `ingest` command.
func runIngest(ctx context.Context, errOut io.Writer, cfg *config.Config, parser, inputDir string) error {
	pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	defer neo4jDriver.Close(ctx)

	w, err := newWalker("auto", parser)
	if err != nil {
		return err
	}
	entries, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	log.Info().Int("files", len(entries)).Msg("Starting file ingestion")

	results, failed := parseFiles(ctx, errOut, w, entries, cfg.WorkerCount)

	st := store.New(pgPool)
	catalog := graph.NewCatalog(neo4jDriver)
	var stored, skipped int
	for _, r := range results {
		if !r.Header.Found {
			log.Warn().Str("file", r.Path).Msg("No target and center in header, skipping")
			skipped++
			continue
		}
		series := store.Series{Target: r.Header.Target.ID, Center: r.Header.Center.ID}
		if err := saveResult(ctx, st, catalog, series, r); err != nil {
			return err
		}
		stored++
	}

	log.Info().
		Int("files", len(entries)).
		Int("stored", stored).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("Ingestion complete")

	return nil
}

// runExport handles the `export` command.
func runExport(ctx context.Context, cfg *config.Config, series store.Series, kind ephemeris.Kind, format, output string) error {
	pgPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	st := store.New(pgPool)
	switch format {
	case "json":
		return st.ExportJSON(ctx, series, kind, output+".json")
	case "tsv":
		return st.ExportTSV(ctx, series, kind, output+".tsv")
	default:
		return fmt.Errorf("unknown export format %q (want tsv or json)", format)
	}
}

// runNearest handles the `nearest` command.
func runNearest(ctx context.Context, out io.Writer, cfg *config.Config, series store.Series, position [3]float32, k int) error {
	pgPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	states, err := store.New(pgPool).NearestStates(ctx, series, position, k)
	if err != nil {
		return err
	}
	return writeYAML(out, states)
}

// runSeries handles the `series` command.
func runSeries(ctx context.Context, out io.Writer, cfg *config.Config, body int) error {
	pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	defer neo4jDriver.Close(ctx)

	catalog := graph.NewCatalog(neo4jDriver)
	names, err := catalog.BodyNames(ctx)
	if err != nil {
		return err
	}
	series, err := catalog.SeriesOf(ctx, body)
	if err != nil {
		return err
	}
	for _, s := range series {
		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%d\n",
			s.Kind, bodyLabel(names, body), bodyLabel(names, s.Center), s.Records); err != nil {
			return err
		}
	}
	return nil
}

func bodyLabel(names map[int]string, id int) string {
	if name, ok := names[id]; ok {
		return fmt.Sprintf("%s (%d)", name, id)
	}
	return strconv.Itoa(id)
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	return pgPool, nil
}
