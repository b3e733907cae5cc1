package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcalabro/fpbloom"
	"github.com/jcalabro/fpbloom/internal/corpus"
	"github.com/jcalabro/fpbloom/internal/probe"
)

// cycle supplies the same words over and over.
type cycle struct {
	words []string
	i     int
}

func (c *cycle) Next() []byte {
	w := c.words[c.i%len(c.words)]
	c.i++
	return []byte(w)
}

func testCorpus(n int) *corpus.Corpus {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return corpus.New(words...)
}

func TestDefaultSizes(t *testing.T) {
	require.Equal(t, []uint64{
		100000, 200000, 400000, 800000, 1600000, 3200000, 6400000, 12800000,
	}, DefaultSizes())
}

func TestGrid(t *testing.T) {
	trials := Grid([]uint64{10, 20}, 3)
	require.Equal(t, []Trial{
		{0, 10, 1}, {1, 10, 2}, {2, 10, 3},
		{3, 20, 1}, {4, 20, 2}, {5, 20, 3},
	}, trials)
}

func TestParamsValidate(t *testing.T) {
	good := DefaultParams()
	require.NoError(t, good.Validate(7))

	tests := map[string]Params{
		"no sizes":           {Probes: 1},
		"zero size":          {Sizes: []uint64{100, 0}},
		"hash count too big": {Sizes: []uint64{100}, MaxHashCount: 8},
		"negative hashes":    {Sizes: []uint64{100}, MaxHashCount: -1},
		"negative probes":    {Sizes: []uint64{100}, Probes: -1},
		"negative workers":   {Sizes: []uint64{100}, Workers: -2},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, p.Validate(7), fpbloom.ErrInvalidConfiguration)
		})
	}
}

func TestParamsValidateMaxHashCountMessage(t *testing.T) {
	p := Params{Sizes: []uint64{100}, MaxHashCount: 8}
	require.NoError(t, Params{Sizes: []uint64{100}}.Validate(7))
	require.ErrorContains(t, p.Validate(7), "out of range [0, 7] (0 means ensemble length)")
}

func TestRunTrialExcludesCorpusWords(t *testing.T) {
	words := corpus.New("cat", "dog")
	trial := Trial{Size: 100000, HashCount: 2}

	res, err := RunTrial(context.Background(), fpbloom.DefaultEnsemble(), words, trial, &cycle{words: []string{"cat", "dog"}}, 100)
	require.NoError(t, err)

	require.Equal(t, 100, res.Excluded)
	require.Zero(t, res.FalsePositives)
	require.Equal(t, 100, res.Probes)
	require.GreaterOrEqual(t, res.Load, uint64(2))
	require.LessOrEqual(t, res.Load, uint64(4))
}

func TestRunTrialSaturated(t *testing.T) {
	words := corpus.New("only")
	trial := Trial{Size: 1, HashCount: 1}

	res, err := RunTrial(context.Background(), fpbloom.DefaultEnsemble(), words, trial, probe.New(5, 1, 1), 500)
	require.NoError(t, err)

	// Every 5-letter probe hits the single set bit.
	require.Equal(t, uint64(1), res.Load)
	require.Equal(t, 500, res.FalsePositives+res.Excluded)
	require.Zero(t, res.Excluded)
	require.InDelta(t, 1.0, res.Rate(), 1e-9)
	// The analytic estimate for m=1, k=1, n=1 is 1 - 1/e.
	require.InDelta(t, 500*(1-math.Exp(-1)), res.Expected, 1e-6)
}

func TestRunTrialCatDog(t *testing.T) {
	ens, err := fpbloom.NewEnsemble(fpbloom.XXH3, fpbloom.MD5)
	require.NoError(t, err)

	res, err := RunTrial(context.Background(), ens, corpus.New("cat", "dog"), Trial{Size: 100000, HashCount: 2}, probe.New(5, 9, 9), 10000)
	require.NoError(t, err)

	require.GreaterOrEqual(t, res.Load, uint64(2))
	require.LessOrEqual(t, res.Load, uint64(4))
	require.Less(t, res.FalsePositives, 5)
}

func TestRunTrialInvalidConfiguration(t *testing.T) {
	ens := fpbloom.DefaultEnsemble()
	words := corpus.New("a")

	_, err := RunTrial(context.Background(), ens, words, Trial{Size: 0, HashCount: 1}, probe.New(5, 1, 1), 10)
	require.ErrorIs(t, err, fpbloom.ErrInvalidConfiguration)

	_, err = RunTrial(context.Background(), ens, words, Trial{Size: 100, HashCount: ens.Len() + 1}, probe.New(5, 1, 1), 10)
	require.ErrorIs(t, err, fpbloom.ErrInvalidConfiguration)
}

func TestRunTrialCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunTrial(ctx, fpbloom.DefaultEnsemble(), corpus.New("a"), Trial{Size: 100, HashCount: 1}, probe.New(5, 1, 1), 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunnerResultsInGridOrder(t *testing.T) {
	var calls atomic.Int32
	r := &Runner{
		Ensemble: fpbloom.DefaultEnsemble(),
		Corpus:   testCorpus(2000),
		Params: Params{
			Sizes:  []uint64{5000, 10000, 20000},
			Probes: 2000,
			Seed:   42,
		},
		OnResult: func(trial Trial, res Result) error {
			calls.Add(1)
			if trial.Size != res.Size || trial.HashCount != res.HashCount {
				return fmt.Errorf("trial %d reported as size=%d hash_count=%d", trial.Index, res.Size, res.HashCount)
			}
			return nil
		},
	}

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3*7)
	require.Equal(t, int32(len(results)), calls.Load())

	for i, trial := range Grid(r.Params.Sizes, 7) {
		require.Equal(t, trial.Size, results[i].Size)
		require.Equal(t, trial.HashCount, results[i].HashCount)
		require.Equal(t, 2000, results[i].Probes)
		require.NotZero(t, results[i].Load)
	}
}

func TestRunnerReproducible(t *testing.T) {
	params := Params{
		Sizes:        []uint64{3000, 6000},
		MaxHashCount: 4,
		Probes:       3000,
		Seed:         7,
	}
	words := testCorpus(1000)

	sequential := &Runner{Ensemble: fpbloom.DefaultEnsemble(), Corpus: words, Params: params}
	sequential.Params.Workers = 1
	parallel := &Runner{Ensemble: fpbloom.DefaultEnsemble(), Corpus: words, Params: params}
	parallel.Params.Workers = 4

	a, err := sequential.Run(context.Background())
	require.NoError(t, err)
	b, err := parallel.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, 8)
}

func TestRunnerFalsePositivesFallWithSize(t *testing.T) {
	r := &Runner{
		Ensemble: fpbloom.DefaultEnsemble(),
		Corpus:   testCorpus(5000),
		Params: Params{
			Sizes:        []uint64{10000, 100000},
			MaxHashCount: 3,
			Probes:       10000,
			Seed:         1,
		},
	}

	results, err := r.Run(context.Background())
	require.NoError(t, err)

	// Same hash count, ten times the bits.
	for k := range 3 {
		small, large := results[k], results[3+k]
		require.Less(t, large.FalsePositives, small.FalsePositives, "hash_count=%d", k+1)
		require.Less(t, large.Load, large.Size)
	}
}

func TestRunnerOnResultErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	r := &Runner{
		Ensemble: fpbloom.DefaultEnsemble(),
		Corpus:   testCorpus(10),
		Params:   Params{Sizes: []uint64{100, 200}, Probes: 10, Seed: 1},
		OnResult: func(Trial, Result) error { return boom },
	}

	results, err := r.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Nil(t, results)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{
		Ensemble: fpbloom.DefaultEnsemble(),
		Corpus:   testCorpus(10),
		Params:   Params{Sizes: []uint64{100}, Probes: 10},
	}

	_, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunnerInvalid(t *testing.T) {
	r := &Runner{Ensemble: fpbloom.DefaultEnsemble(), Corpus: testCorpus(1)}
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, fpbloom.ErrInvalidConfiguration)

	r = &Runner{Params: DefaultParams()}
	_, err = r.Run(context.Background())
	require.ErrorIs(t, err, fpbloom.ErrInvalidConfiguration)
}

func TestRunnerProbeFactory(t *testing.T) {
	var seeds []uint64
	r := &Runner{
		Ensemble: fpbloom.DefaultEnsemble(),
		Corpus:   corpus.New("cat"),
		Params:   Params{Sizes: []uint64{1000}, MaxHashCount: 1, Probes: 3, Workers: 1, Seed: 99},
		ProbeFactory: func(seed uint64, _ Trial) probe.Supplier {
			seeds = append(seeds, seed)
			return &cycle{words: []string{"cat"}}
		},
	}

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint64{99}, seeds)
	require.Equal(t, 3, results[0].Excluded)
}
