// Package corpus loads the reference word list that a sweep inserts into
// every filter.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 1 << 20

// Corpus is a deduplicated, read-only set of words. It is safe for
// concurrent use once constructed.
type Corpus struct {
	set   map[string]struct{}
	words []string // sorted
}

// New builds a corpus from words, dropping duplicates and empty strings.
func New(words ...string) *Corpus {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return fromSet(set)
}

func fromSet(set map[string]struct{}) *Corpus {
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return &Corpus{set: set, words: words}
}

// Load reads one word per line from r. Each line is trimmed of surrounding
// whitespace; blank lines are skipped and duplicates collapse.
func Load(r io.Reader) (*Corpus, error) {
	set := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	return fromSet(set), nil
}

// LoadFile reads a corpus from the file at path.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Len returns the number of distinct words.
func (c *Corpus) Len() int {
	return len(c.words)
}

// Contains reports whether b is one of the words.
func (c *Corpus) Contains(b []byte) bool {
	_, ok := c.set[string(b)]
	return ok
}

// Words returns a sorted copy of the words.
func (c *Corpus) Words() []string {
	return append([]string(nil), c.words...)
}

// Each calls fn for every word in sorted order. fn must not retain or
// modify the slice it is given.
func (c *Corpus) Each(fn func(word []byte)) {
	var buf []byte
	for _, w := range c.words {
		buf = append(buf[:0], w...)
		fn(buf)
	}
}
