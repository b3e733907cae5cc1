// Package fpbloom provides a classic bloom filter built on an explicit,
// ordered ensemble of hash functions, together with the analytic formulas
// used to compare it against measured false positive rates.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not – if the filter says an element is not present,
// it definitely is not. If it says an element might be present, it could be a
// false positive.
//
// # Hash Ensemble
//
// Unlike filters that derive k positions from one hash, every probe in
// fpbloom comes from a separate [Hasher]. An [Ensemble] is a fixed, ordered
// list of hashers, and a [Filter] with hash count k uses the first k of them.
// Keeping the order fixed makes "k hash functions" mean the same thing from
// one run to the next.
//
// [DefaultEnsemble] holds seven members:
//
//   - xxh3, a fast non-cryptographic 64-bit hash
//   - md5, sha1, sha224, sha256, sha384 and sha512, each reduced to the
//     first eight bytes of its digest
//
// Each member hashes the raw input on its own. No member is seeded from
// another, so collisions under one member say nothing about another.
// murmur3 and xxhash are also registered and can be selected by name with
// [EnsembleByName].
//
// # Filter
//
// A [Filter] owns a bit array of fixed size. [Filter.Add] sets bit
// digest mod size for each member in use, and [Filter.Test] reports whether
// all of them are set. Bits are never cleared, so once an item tests
// positive it stays positive. [Filter.Load] returns the number of set bits.
//
//	f, err := fpbloom.New(fpbloom.DefaultEnsemble(), 100_000, 3)
//	if err != nil {
//		return err
//	}
//	f.AddString("cat")
//	f.TestString("cat") // true
//
// [New] returns [ErrInvalidConfiguration] for a zero size or a hash count
// outside [1, ensemble length].
//
// # False Positive Rate
//
// For m bits, k hash functions and n items the expected false positive rate is
//
//	(1 - e^(-kn/m))^k
//
// See [EstimateFalsePositiveRate], [OptimalHashCount] and [OptimalSize].
//
// # Thread Safety
//
// [Filter] is NOT thread-safe. An [Ensemble] is immutable and may be shared
// by any number of filters across goroutines.
package fpbloom
