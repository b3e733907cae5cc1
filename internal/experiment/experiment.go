// Package experiment sweeps a grid of filter sizes and hash counts, inserting
// a corpus into a fresh filter per configuration and counting how many random
// probes it wrongly reports as present.
package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcalabro/fpbloom"
	"github.com/jcalabro/fpbloom/internal/corpus"
	"github.com/jcalabro/fpbloom/internal/logger"
	"github.com/jcalabro/fpbloom/internal/probe"
)

// DefaultProbes is the number of negative probes per configuration.
const DefaultProbes = 10000

// cancelCheckInterval is how many inserts or probes run between context checks.
const cancelCheckInterval = 4096

// DefaultSizes returns the bit-array sizes swept by default: 100,000
// doubling up to 12,800,000.
func DefaultSizes() []uint64 {
	sizes := make([]uint64, 0, 8)
	for s := uint64(100_000); s <= 12_800_000; s *= 2 {
		sizes = append(sizes, s)
	}
	return sizes
}

// Params configures a sweep.
type Params struct {
	Sizes        []uint64 // Bit-array sizes, swept in order
	MaxHashCount int      // Highest hash count; 0 means the ensemble length
	Probes       int      // Negative probes per configuration
	ProbeLength  int      // Probe word length; 0 means probe.DefaultLength
	Workers      int      // Concurrent configurations; 0 means GOMAXPROCS
	Seed         uint64   // Probe seed; 0 draws a random one
}

// DefaultParams returns the default sweep.
func DefaultParams() Params {
	return Params{
		Sizes:       DefaultSizes(),
		Probes:      DefaultProbes,
		ProbeLength: probe.DefaultLength,
	}
}

// Validate checks p against an ensemble of length ensembleLen.
func (p Params) Validate(ensembleLen int) error {
	if len(p.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes to sweep", fpbloom.ErrInvalidConfiguration)
	}
	for _, s := range p.Sizes {
		if s == 0 {
			return fmt.Errorf("%w: size must be positive", fpbloom.ErrInvalidConfiguration)
		}
	}
	if p.MaxHashCount < 0 || p.MaxHashCount > ensembleLen {
		return fmt.Errorf("%w: max hash count %d out of range [0, %d] (0 means ensemble length)", fpbloom.ErrInvalidConfiguration, p.MaxHashCount, ensembleLen)
	}
	if p.Probes < 0 {
		return fmt.Errorf("%w: negative probe count %d", fpbloom.ErrInvalidConfiguration, p.Probes)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", fpbloom.ErrInvalidConfiguration, p.Workers)
	}
	return nil
}

// Trial is one (size, hash count) configuration of the grid.
type Trial struct {
	Index     int
	Size      uint64
	HashCount int
}

// Grid enumerates every configuration, size-major: each size in order,
// and within it hash counts 1 through maxHashCount.
func Grid(sizes []uint64, maxHashCount int) []Trial {
	trials := make([]Trial, 0, len(sizes)*maxHashCount)
	for _, size := range sizes {
		for k := 1; k <= maxHashCount; k++ {
			trials = append(trials, Trial{Index: len(trials), Size: size, HashCount: k})
		}
	}
	return trials
}

// Result is the outcome of one configuration.
type Result struct {
	Size           uint64  `json:"size" yaml:"size"`
	HashCount      int     `json:"hash_count" yaml:"hash_count"`
	Load           uint64  `json:"load" yaml:"load"`
	FalsePositives int     `json:"false_positives" yaml:"false_positives"`
	Probes         int     `json:"probes" yaml:"probes"`
	Excluded       int     `json:"excluded" yaml:"excluded"` // Probes that were real corpus words
	Expected       float64 `json:"expected" yaml:"expected"` // Analytic false positive count
}

// Rate returns the measured false positive rate.
func (r Result) Rate() float64 {
	if r.Probes == 0 {
		return 0
	}
	return float64(r.FalsePositives) / float64(r.Probes)
}

// RunTrial builds a filter for trial, inserts every corpus word and tests n
// probes from probes. A probe that tests positive counts as a false positive
// only if it is not itself a corpus word.
func RunTrial(ctx context.Context, ens *fpbloom.Ensemble, words *corpus.Corpus, trial Trial, probes probe.Supplier, n int) (Result, error) {
	f, err := fpbloom.New(ens, trial.Size, trial.HashCount)
	if err != nil {
		return Result{}, fmt.Errorf("trial size=%d hash_count=%d: %w", trial.Size, trial.HashCount, err)
	}

	var inserted int
	var insertErr error
	words.Each(func(w []byte) {
		if insertErr != nil {
			return
		}
		f.Add(w)
		inserted++
		if inserted%cancelCheckInterval == 0 {
			insertErr = ctx.Err()
		}
	})
	if insertErr != nil {
		return Result{}, insertErr
	}

	res := Result{
		Size:      trial.Size,
		HashCount: trial.HashCount,
		Probes:    n,
		Expected:  fpbloom.EstimateFalsePositiveRate(trial.Size, trial.HashCount, uint64(words.Len())) * float64(n),
	}

	for i := range n {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		w := probes.Next()
		if !f.Test(w) {
			continue
		}
		if words.Contains(w) {
			res.Excluded++
			continue
		}
		res.FalsePositives++
	}

	res.Load = f.Load()
	return res, nil
}

// Runner executes a sweep.
type Runner struct {
	Ensemble *fpbloom.Ensemble
	Corpus   *corpus.Corpus
	Params   Params
	Logger   logger.Logger

	// ProbeFactory returns the probe supplier for a trial. When nil, each
	// trial gets a probe.Generator seeded from Params.Seed and the trial
	// index.
	ProbeFactory func(seed uint64, t Trial) probe.Supplier

	// OnResult, when set, is called once per finished trial in completion
	// order, with the trial that produced the result. Calls are serialized.
	// A returned error aborts the sweep.
	OnResult func(Trial, Result) error
}

// Run sweeps the grid and returns one result per trial in grid order.
// Trials run concurrently on up to Params.Workers goroutines. The first
// error, or cancellation of ctx, aborts the whole sweep.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	if r.Ensemble == nil || r.Corpus == nil {
		return nil, fmt.Errorf("%w: runner needs an ensemble and a corpus", fpbloom.ErrInvalidConfiguration)
	}

	params := r.Params
	if err := params.Validate(r.Ensemble.Len()); err != nil {
		return nil, err
	}
	if params.MaxHashCount == 0 {
		params.MaxHashCount = r.Ensemble.Len()
	}
	if params.Workers == 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	if params.Seed == 0 {
		params.Seed = rand.Uint64() | 1
	}

	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}

	newProbes := r.ProbeFactory
	if newProbes == nil {
		newProbes = func(seed uint64, t Trial) probe.Supplier {
			return probe.New(params.ProbeLength, seed, uint64(t.Index))
		}
	}

	trials := Grid(params.Sizes, params.MaxHashCount)
	results := make([]Result, len(trials))

	log.Info("starting sweep",
		"corpus", r.Corpus.Len(),
		"hashes", r.Ensemble.Names()[:params.MaxHashCount],
		"sizes", params.Sizes,
		"trials", len(trials),
		"probes", params.Probes,
		"workers", params.Workers,
		"seed", params.Seed,
	)
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Workers)

	for _, t := range trials {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			trialStart := time.Now()
			res, err := RunTrial(gctx, r.Ensemble, r.Corpus, t, newProbes(params.Seed, t), params.Probes)
			if err != nil {
				return err
			}
			results[t.Index] = res

			log.Debug("trial done",
				"size", res.Size,
				"hash_count", res.HashCount,
				"load", res.Load,
				"false_positives", res.FalsePositives,
				"expected", res.Expected,
				"elapsed", time.Since(trialStart).String(),
			)

			if r.OnResult != nil {
				mu.Lock()
				defer mu.Unlock()
				return r.OnResult(t, res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("sweep aborted", "error", err)
		return nil, err
	}
	// The loop may have stopped early without any trial failing.
	if err := ctx.Err(); err != nil {
		log.Error("sweep aborted", "error", err)
		return nil, err
	}

	log.Info("sweep complete", "trials", len(trials), "elapsed", time.Since(start).String())
	return results, nil
}
