// Package probe generates the random words used as negative queries.
package probe

import "math/rand/v2"

// DefaultLength is the probe length used when none is configured.
const DefaultLength = 5

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Supplier produces probe words. The returned slice is only valid until
// the next call.
type Supplier interface {
	Next() []byte
}

// Generator produces fixed-length lowercase words, each letter drawn
// uniformly. The same seeds always yield the same sequence.
// A Generator is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	buf []byte
}

// New returns a Generator of words of the given length seeded with
// seed1 and seed2. A non-positive length selects DefaultLength.
func New(length int, seed1, seed2 uint64) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed1, seed2)),
		buf: make([]byte, length),
	}
}

// Next returns the next word, reusing the generator's buffer.
func (g *Generator) Next() []byte {
	for i := range g.buf {
		g.buf[i] = alphabet[g.rng.IntN(len(alphabet))]
	}
	return g.buf
}

// Len returns the word length.
func (g *Generator) Len() int {
	return len(g.buf)
}
