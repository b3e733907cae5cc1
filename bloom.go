package fpbloom

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
)

// ErrInvalidConfiguration is returned when a filter or ensemble is
// constructed with parameters outside their valid range.
var ErrInvalidConfiguration = errors.New("fpbloom: invalid configuration")

// Filter is a non-thread-safe, non-counting bloom filter over a fixed-size
// bit array. Each item sets one bit per hasher in the first k members of
// its ensemble, at digest mod size.
type Filter struct {
	bits     *bitset.BitSet
	size     uint64    // Number of bits; fixed at construction
	k        int       // Number of ensemble members in use
	ensemble *Ensemble // Shared, read-only
	count    uint64    // Number of Add calls
}

// New creates an empty filter of size bits that uses the first hashCount
// members of ens.
//
// It returns ErrInvalidConfiguration if size is zero or hashCount is
// outside [1, ens.Len()].
func New(ens *Ensemble, size uint64, hashCount int) (*Filter, error) {
	if ens == nil {
		return nil, fmt.Errorf("%w: nil ensemble", ErrInvalidConfiguration)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidConfiguration)
	}
	if hashCount < 1 || hashCount > ens.Len() {
		return nil, fmt.Errorf("%w: hash count %d out of range [1, %d]", ErrInvalidConfiguration, hashCount, ens.Len())
	}

	return &Filter{
		bits:     bitset.New(uint(size)),
		size:     size,
		k:        hashCount,
		ensemble: ens,
	}, nil
}

// bytesOf views s as a byte slice without copying. Hashers never retain
// or modify their input.
func bytesOf(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// index returns the bit position for data under the i-th member.
func (f *Filter) index(i int, data []byte) uint {
	return uint(f.ensemble.Digest(i, data) % f.size)
}

// Add adds data to the bloom filter.
func (f *Filter) Add(data []byte) {
	for i := range f.k {
		f.bits.Set(f.index(i, data))
	}
	f.count++
}

// AddString adds a string to the bloom filter without allocating.
func (f *Filter) AddString(s string) {
	f.Add(bytesOf(s))
}

// Test checks if data might be in the bloom filter.
// Returns true if the data might be present (with false positive probability),
// or false if the data is definitely not present.
func (f *Filter) Test(data []byte) bool {
	for i := range f.k {
		if !f.bits.Test(f.index(i, data)) {
			return false
		}
	}
	return true
}

// TestString checks if a string might be in the bloom filter without allocating.
func (f *Filter) TestString(s string) bool {
	return f.Test(bytesOf(s))
}

// TestAndAdd reports whether data might already have been present, then
// adds it.
func (f *Filter) TestAndAdd(data []byte) bool {
	present := f.Test(data)
	f.Add(data)
	return present
}

// Load returns the number of bits currently set.
func (f *Filter) Load() uint64 {
	return uint64(f.bits.Count())
}

// Cap returns the capacity of the filter in bits.
func (f *Filter) Cap() uint64 {
	return f.size
}

// K returns the number of hash functions used.
func (f *Filter) K() int {
	return f.k
}

// Count returns the number of Add calls, duplicates included.
func (f *Filter) Count() uint64 {
	return f.count
}

// FillRatio returns the proportion of bits that are set.
func (f *Filter) FillRatio() float64 {
	return float64(f.Load()) / float64(f.size)
}

// EstimatedFalsePositiveRate estimates the current false positive rate
// based on the number of items added.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.size, f.k, f.count)
}

// Equal reports whether f and other have the same size, hash count and
// bit array. The ensembles themselves are not compared.
func (f *Filter) Equal(other *Filter) bool {
	if other == nil {
		return false
	}
	return f.size == other.size && f.k == other.k && f.bits.Equal(other.bits)
}
