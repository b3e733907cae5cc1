package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jcalabro/fpbloom"
	"github.com/jcalabro/fpbloom/internal/experiment"
	"github.com/jcalabro/fpbloom/internal/probe"
	"github.com/jcalabro/fpbloom/internal/report"
)

// DefaultCorpusPath is the word list read when none is configured.
const DefaultCorpusPath = "wordlist.txt"

type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Hashes  []string      `yaml:"hashes"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

type CorpusConfig struct {
	Path string `yaml:"path"`
}

type SweepConfig struct {
	Sizes        []uint64 `yaml:"sizes"`
	MaxHashCount int      `yaml:"max_hash_count"`
	Probes       int      `yaml:"probes"`
	ProbeLength  int      `yaml:"probe_length"`
	Workers      int      `yaml:"workers"`
	Seed         uint64   `yaml:"seed"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"` // Empty means stdout
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	params := experiment.DefaultParams()
	return &Config{
		Corpus: CorpusConfig{Path: DefaultCorpusPath},
		Sweep: SweepConfig{
			Sizes:       params.Sizes,
			Probes:      params.Probes,
			ProbeLength: params.ProbeLength,
		},
		Hashes:  fpbloom.DefaultEnsemble().Names(),
		Output:  OutputConfig{Format: string(report.Text)},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	if path := os.Getenv("FPBLOOM_CORPUS"); path != "" {
		c.Corpus.Path = path
	}
	if level := os.Getenv("FPBLOOM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if workers := os.Getenv("FPBLOOM_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid FPBLOOM_WORKERS %q: %w", workers, err)
		}
		c.Sweep.Workers = n
	}
	return nil
}

// Ensemble builds the configured hash ensemble.
func (c *Config) Ensemble() (*fpbloom.Ensemble, error) {
	if len(c.Hashes) == 0 {
		return fpbloom.DefaultEnsemble(), nil
	}
	return fpbloom.EnsembleByName(c.Hashes...)
}

// Params returns the sweep parameters.
func (c *Config) Params() experiment.Params {
	probeLength := c.Sweep.ProbeLength
	if probeLength == 0 {
		probeLength = probe.DefaultLength
	}
	return experiment.Params{
		Sizes:        append([]uint64(nil), c.Sweep.Sizes...),
		MaxHashCount: c.Sweep.MaxHashCount,
		Probes:       c.Sweep.Probes,
		ProbeLength:  probeLength,
		Workers:      c.Sweep.Workers,
		Seed:         c.Sweep.Seed,
	}
}

// Validate checks everything that can be checked without reading the corpus.
func (c *Config) Validate() error {
	if c.Corpus.Path == "" {
		return errors.New("corpus path is required")
	}
	if c.Sweep.ProbeLength < 0 {
		return fmt.Errorf("%w: negative probe length %d", fpbloom.ErrInvalidConfiguration, c.Sweep.ProbeLength)
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	ens, err := c.Ensemble()
	if err != nil {
		return err
	}
	return c.Params().Validate(ens.Len())
}
