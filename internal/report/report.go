// Package report renders sweep results.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jcalabro/fpbloom/internal/experiment"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("report: unknown format")

// Format selects how results are rendered.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat maps a name to a Format. The empty string selects Text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return Text, nil
	case Text, JSON, YAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Stream writes results one at a time as they arrive.
type Stream struct {
	w        io.Writer
	format   Format
	enc      *json.Encoder
	lastSize uint64
	started  bool
	pending  []experiment.Result // yaml only
}

// NewStream returns a Stream writing format to w. Text and JSON are written
// immediately; YAML is buffered until Close so the output is one document.
func NewStream(w io.Writer, format Format) (*Stream, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = Text
	}
	s := &Stream{w: w, format: format}
	if format == JSON {
		s.enc = json.NewEncoder(w)
	}
	return s, nil
}

// Write renders one result.
func (s *Stream) Write(r experiment.Result) error {
	switch s.format {
	case JSON:
		return s.enc.Encode(r)
	case YAML:
		s.pending = append(s.pending, r)
		return nil
	default:
		return s.writeText(r)
	}
}

// writeText emits a blank line whenever the size changes, then a
// fixed-width line per configuration.
func (s *Stream) writeText(r experiment.Result) error {
	if !s.started || r.Size != s.lastSize {
		if _, err := fmt.Fprintln(s.w); err != nil {
			return err
		}
		s.started = true
		s.lastSize = r.Size
	}
	_, err := fmt.Fprintf(s.w,
		"size: %8d     hash func: %1d     load: %8d      false positive (out of %d): %5d      expected: %9.1f\n",
		r.Size, r.HashCount, r.Load, r.Probes, r.FalsePositives, r.Expected)
	return err
}

// Close flushes any buffered output.
func (s *Stream) Close() error {
	if s.format != YAML {
		return nil
	}
	enc := yaml.NewEncoder(s.w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Results: s.pending}); err != nil {
		return fmt.Errorf("failed to encode yaml report: %w", err)
	}
	s.pending = nil
	return enc.Close()
}

type document struct {
	Results []experiment.Result `yaml:"results"`
}

// Write renders all results to w in the given format.
func Write(w io.Writer, format Format, results []experiment.Result) error {
	s, err := NewStream(w, format)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return s.Close()
}
