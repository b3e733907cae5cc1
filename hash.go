package fpbloom

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// ErrUnknownHash is returned when a hash name is not in the registry.
var ErrUnknownHash = errors.New("fpbloom: unknown hash")

// Hasher maps an arbitrary byte string to a 64-bit digest.
//
// Implementations must be deterministic across process runs and platforms.
type Hasher interface {
	Name() string
	Sum64(data []byte) uint64
}

// xxh3Hasher is the general purpose member of the default ensemble.
type xxh3Hasher struct{}

func (xxh3Hasher) Name() string             { return "xxh3" }
func (xxh3Hasher) Sum64(data []byte) uint64 { return xxh3.Hash(data) }

type murmur3Hasher struct{}

func (murmur3Hasher) Name() string             { return "murmur3" }
func (murmur3Hasher) Sum64(data []byte) uint64 { return murmur3.Sum64(data) }

type xxhashHasher struct{}

func (xxhashHasher) Name() string             { return "xxhash" }
func (xxhashHasher) Sum64(data []byte) uint64 { return xxhash.Sum64(data) }

// digestHasher reduces a cryptographic digest of the input to its first
// eight bytes, read big-endian.
type digestHasher struct {
	name string
	sum  func(data []byte) []byte
}

func (h digestHasher) Name() string { return h.name }

func (h digestHasher) Sum64(data []byte) uint64 {
	return binary.BigEndian.Uint64(h.sum(data))
}

var (
	XXH3    Hasher = xxh3Hasher{}
	Murmur3 Hasher = murmur3Hasher{}
	XXHash  Hasher = xxhashHasher{}
	MD5     Hasher = digestHasher{"md5", func(d []byte) []byte { s := md5.Sum(d); return s[:] }}
	SHA1    Hasher = digestHasher{"sha1", func(d []byte) []byte { s := sha1.Sum(d); return s[:] }}
	SHA224  Hasher = digestHasher{"sha224", func(d []byte) []byte { s := sha256.Sum224(d); return s[:] }}
	SHA256  Hasher = digestHasher{"sha256", func(d []byte) []byte { s := sha256.Sum256(d); return s[:] }}
	SHA384  Hasher = digestHasher{"sha384", func(d []byte) []byte { s := sha512.Sum384(d); return s[:] }}
	SHA512  Hasher = digestHasher{"sha512", func(d []byte) []byte { s := sha512.Sum512(d); return s[:] }}
)

var registry = map[string]Hasher{}

func init() {
	for _, h := range []Hasher{XXH3, Murmur3, XXHash, MD5, SHA1, SHA224, SHA256, SHA384, SHA512} {
		registry[h.Name()] = h
	}
}

// HasherNames returns the names of every registered hasher, sorted.
func HasherNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupHasher returns the registered hasher with the given name.
func LookupHasher(name string) (Hasher, error) {
	h, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownHash, name, HasherNames())
	}
	return h, nil
}

// Ensemble is an immutable, ordered list of hashers. A Filter uses a prefix
// of it, so the order decides which members are used at a given hash count.
// An Ensemble is safe to share between goroutines.
type Ensemble struct {
	hashers []Hasher
}

// NewEnsemble builds an ensemble from the given hashers, in order.
func NewEnsemble(hashers ...Hasher) (*Ensemble, error) {
	if len(hashers) == 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one hasher", ErrInvalidConfiguration)
	}

	seen := make(map[string]struct{}, len(hashers))
	for i, h := range hashers {
		if h == nil {
			return nil, fmt.Errorf("%w: hasher %d is nil", ErrInvalidConfiguration, i)
		}
		if _, dup := seen[h.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate hasher %q", ErrInvalidConfiguration, h.Name())
		}
		seen[h.Name()] = struct{}{}
	}

	return &Ensemble{hashers: append([]Hasher(nil), hashers...)}, nil
}

// EnsembleByName builds an ensemble from registry names, in order.
func EnsembleByName(names ...string) (*Ensemble, error) {
	hashers := make([]Hasher, 0, len(names))
	for _, name := range names {
		h, err := LookupHasher(name)
		if err != nil {
			return nil, err
		}
		hashers = append(hashers, h)
	}
	return NewEnsemble(hashers...)
}

// DefaultEnsemble returns xxh3 followed by the six digest-derived hashers
// md5, sha1, sha224, sha256, sha384 and sha512.
func DefaultEnsemble() *Ensemble {
	return &Ensemble{hashers: []Hasher{XXH3, MD5, SHA1, SHA224, SHA256, SHA384, SHA512}}
}

// Len returns the number of hashers in the ensemble.
func (e *Ensemble) Len() int {
	return len(e.hashers)
}

// Hasher returns the i-th member.
func (e *Ensemble) Hasher(i int) Hasher {
	return e.hashers[i]
}

// Names returns the member names in ensemble order.
func (e *Ensemble) Names() []string {
	names := make([]string, len(e.hashers))
	for i, h := range e.hashers {
		names[i] = h.Name()
	}
	return names
}

// Digest returns the digest of data under the i-th member.
func (e *Ensemble) Digest(i int, data []byte) uint64 {
	return e.hashers[i].Sum64(data)
}
