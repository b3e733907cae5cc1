package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jcalabro/fpbloom"
	"github.com/jcalabro/fpbloom/internal/config"
	"github.com/jcalabro/fpbloom/internal/corpus"
	"github.com/jcalabro/fpbloom/internal/experiment"
	"github.com/jcalabro/fpbloom/internal/logger"
	"github.com/jcalabro/fpbloom/internal/probe"
	"github.com/jcalabro/fpbloom/internal/report"
)

// App holds what every subcommand needs once config is loaded.
type App struct {
	config   *config.Config
	ensemble *fpbloom.Ensemble
	corpus   *corpus.Corpus
	out      io.Writer
	logger   logger.Logger
}

func NewApp(cfg *config.Config, stdout, stderr io.Writer) (*App, error) {
	log := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ens, err := cfg.Ensemble()
	if err != nil {
		return nil, err
	}

	words, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	log.Info("corpus loaded", "path", cfg.Corpus.Path, "words", words.Len())
	if words.Len() == 0 {
		log.Warn("corpus is empty, every probe will test negative")
	}

	return &App{
		config:   cfg,
		ensemble: ens,
		corpus:   words,
		out:      stdout,
		logger:   log,
	}, nil
}

// output opens the configured report destination.
func (a *App) output() (io.Writer, func() error, error) {
	if a.config.Output.Path == "" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(a.config.Output.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

func (a *App) writeReport(results []experiment.Result) error {
	format, err := report.ParseFormat(a.config.Output.Format)
	if err != nil {
		return err
	}

	w, closeFn, err := a.output()
	if err != nil {
		return err
	}
	if err := report.Write(w, format, results); err != nil {
		closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}

// RunSweep runs the configured grid and streams each row to the report as
// soon as every earlier configuration has finished, so rows stay in grid
// order whatever the worker count. Rows written before a failure or
// cancellation are kept.
func (a *App) RunSweep(ctx context.Context) error {
	format, err := report.ParseFormat(a.config.Output.Format)
	if err != nil {
		return err
	}

	w, closeFn, err := a.output()
	if err != nil {
		return err
	}
	stream, err := report.NewStream(w, format)
	if err != nil {
		closeFn()
		return err
	}

	// Finished trials waiting on an earlier grid position.
	pending := make(map[int]experiment.Result)
	var next, done int

	runner := &experiment.Runner{
		Ensemble: a.ensemble,
		Corpus:   a.corpus,
		Params:   a.config.Params(),
		Logger:   a.logger,
		OnResult: func(t experiment.Trial, r experiment.Result) error {
			done++
			a.logger.Info("configuration done",
				"size", r.Size,
				"hash_count", r.HashCount,
				"load", r.Load,
				"false_positives", r.FalsePositives,
				"done", done,
			)

			pending[t.Index] = r
			for {
				res, ok := pending[next]
				if !ok {
					return nil
				}
				delete(pending, next)
				if err := stream.Write(res); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				next++
			}
		},
	}

	if _, err := runner.Run(ctx); err != nil {
		stream.Close()
		closeFn()
		return err
	}
	if err := stream.Close(); err != nil {
		closeFn()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return closeFn()
}

func (a *App) RunTrial(ctx context.Context, size uint64, hashCount int) error {
	params := a.config.Params()
	seed := params.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
		a.logger.Info("no seed configured, picked one", "seed", seed)
	}

	trial := experiment.Trial{Size: size, HashCount: hashCount}
	res, err := experiment.RunTrial(ctx, a.ensemble, a.corpus, trial, probe.New(params.ProbeLength, seed, 0), params.Probes)
	if err != nil {
		return err
	}
	return a.writeReport([]experiment.Result{res})
}

// parseSizes accepts plain integers with optional k/m suffixes.
func parseSizes(values []string) ([]uint64, error) {
	sizes := make([]uint64, 0, len(values))
	for _, v := range values {
		s := strings.ToLower(strings.TrimSpace(v))
		mult := uint64(1)
		switch {
		case strings.HasSuffix(s, "k"):
			mult, s = 1_000, strings.TrimSuffix(s, "k")
		case strings.HasSuffix(s, "m"):
			mult, s = 1_000_000, strings.TrimSuffix(s, "m")
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", v, err)
		}
		if n > math.MaxUint64/mult {
			return nil, fmt.Errorf("invalid size %q: overflow", v)
		}
		sizes = append(sizes, n*mult)
	}
	return sizes, nil
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile   string
		logLevel  string
		logFormat string

		corpusPath   string
		hashes       []string
		sizes        []string
		maxHashCount int
		probes       int
		probeLength  int
		workers      int
		seed         uint64
		format       string
		outputPath   string
	)

	rootCmd := &cobra.Command{
		Use:           "analysis",
		Short:         "Measure bloom filter false positive rates against a word list",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	// loadConfig reads the file, then lets explicitly set flags win.
	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if flags.Changed("log-format") {
			cfg.Logging.Format = logFormat
		}
		if flags.Changed("corpus") {
			cfg.Corpus.Path = corpusPath
		}
		if flags.Changed("hashes") {
			cfg.Hashes = hashes
		}
		if flags.Changed("sizes") {
			parsed, err := parseSizes(sizes)
			if err != nil {
				return nil, err
			}
			cfg.Sweep.Sizes = parsed
		}
		if flags.Changed("max-hash-count") {
			cfg.Sweep.MaxHashCount = maxHashCount
		}
		if flags.Changed("probes") {
			cfg.Sweep.Probes = probes
		}
		if flags.Changed("probe-length") {
			cfg.Sweep.ProbeLength = probeLength
		}
		if flags.Changed("workers") {
			cfg.Sweep.Workers = workers
		}
		if flags.Changed("seed") {
			cfg.Sweep.Seed = seed
		}
		if flags.Changed("format") {
			cfg.Output.Format = format
		}
		if flags.Changed("output") {
			cfg.Output.Path = outputPath
		}
		return cfg, nil
	}

	runCmd := func(action func(context.Context, *App, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			app, err := NewApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return action(cmd.Context(), app, args)
		}
	}

	addCommon := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&corpusPath, "corpus", "", "word list, one word per line")
		cmd.Flags().StringSliceVar(&hashes, "hashes", nil, "ordered hash ensemble (see 'analysis hashes')")
		cmd.Flags().IntVar(&probes, "probes", 0, "random probes per configuration")
		cmd.Flags().IntVar(&probeLength, "probe-length", 0, "probe word length")
		cmd.Flags().Uint64Var(&seed, "seed", 0, "probe seed (0 picks one)")
		cmd.Flags().StringVar(&format, "format", "", "report format (text, json, yaml)")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "report file (default stdout)")
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep every size against hash counts 1..N",
		Args:  cobra.NoArgs,
		RunE: runCmd(func(ctx context.Context, a *App, _ []string) error {
			return a.RunSweep(ctx)
		}),
	}
	addCommon(sweepCmd)
	sweepCmd.Flags().StringSliceVar(&sizes, "sizes", nil, "bit-array sizes, e.g. 100k,200k,1m")
	sweepCmd.Flags().IntVar(&maxHashCount, "max-hash-count", 0, "highest hash count (default: ensemble length)")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent configurations (default: GOMAXPROCS)")

	var (
		trialSize string
		trialK    int
	)
	trialCmd := &cobra.Command{
		Use:   "trial",
		Short: "Run a single size and hash count",
		Args:  cobra.NoArgs,
		RunE: runCmd(func(ctx context.Context, a *App, _ []string) error {
			parsed, err := parseSizes([]string{trialSize})
			if err != nil {
				return err
			}
			return a.RunTrial(ctx, parsed[0], trialK)
		}),
	}
	addCommon(trialCmd)
	trialCmd.Flags().StringVar(&trialSize, "size", "100k", "bit-array size")
	trialCmd.Flags().IntVarP(&trialK, "hash-count", "k", 1, "number of hash functions")

	hashesCmd := &cobra.Command{
		Use:   "hashes",
		Short: "List available hash functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults := make(map[string]int)
			for i, name := range fpbloom.DefaultEnsemble().Names() {
				defaults[name] = i + 1
			}
			for _, name := range fpbloom.HasherNames() {
				if pos, ok := defaults[name]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s default #%d\n", name, pos)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", name)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(sweepCmd, trialCmd, hashesCmd)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
