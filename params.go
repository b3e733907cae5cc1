package fpbloom

import "math"

const (
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014
)

// EstimateFalsePositiveRate returns the expected false positive rate of a
// filter of size bits using k hash functions after itemsAdded distinct
// items, assuming independent uniform hashes.
func EstimateFalsePositiveRate(size uint64, k int, itemsAdded uint64) float64 {
	m := float64(size)
	n := float64(itemsAdded)
	kf := float64(k)

	if m == 0 || n == 0 || k <= 0 {
		return 0
	}

	// (1 - e^(-kn/m))^k
	return math.Pow(1-math.Exp(-kf*n/m), kf)
}

// OptimalHashCount returns the hash count that minimises the false
// positive rate for items in a filter of size bits: (m/n) * ln(2),
// rounded, and never below 1.
func OptimalHashCount(size, items uint64) int {
	if items == 0 {
		items = 1
	}
	k := int(math.Round(float64(size) / float64(items) * ln2))
	return max(k, 1)
}

// OptimalSize returns the number of bits needed to hold items at the given
// false positive rate: -n * ln(p) / ln(2)^2, rounded up.
func OptimalSize(items uint64, fpRate float64) uint64 {
	if items == 0 {
		items = 1
	}
	if fpRate <= 0 {
		fpRate = 0.0001 // default to 0.01%
	}
	if fpRate >= 1 {
		fpRate = 0.99
	}

	bitsPerItem := -math.Log(fpRate) / ln2Squared
	return uint64(math.Ceil(float64(items) * bitsPerItem))
}
