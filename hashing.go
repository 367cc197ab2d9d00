package lcmap

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// HashString hashes s with xxHash64. Suitable as Behavior.Hash for
// string keys.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HashBytes hashes b with xxHash64.
func HashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// HashInteger mixes an integer key with the murmurhash3 64-bit
// finalizer, so that sequential keys spread over all buckets.
func HashInteger[K constraints.Integer](k K) uint64 {
	return mix64(uint64(k))
}

// murmurhash3 64-bit finalizer
func mix64(x uint64) uint64 {
	x = ((x >> 33) ^ x) * 0xff51afd7ed558ccd
	x = ((x >> 33) ^ x) * 0xc4ceb9fe1a85ec53
	x = (x >> 33) ^ x
	return x
}

// HashComparable returns a hash function for any comparable type built
// on hash/maphash. The seed is chosen once per returned function, so
// the function is deterministic for its whole lifetime but differs
// between calls of HashComparable.
func HashComparable[K comparable]() func(K) uint64 {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// Equals reports whether a and b are equal using the == operator.
func Equals[K comparable](a, b K) bool {
	return a == b
}

// NoDestroy is a destructor for handles that own no resources.
func NoDestroy[T any](T) {}

// ComparableBehavior returns a Behavior for plain comparable keys and
// values that own no resources.
//
// Keys are compared with ==, which is not reflexive for floating-point NaN.
// Float keys, or keys embedding floats, that hold NaN break the Equal
// contract: every Insert of such a key adds a new entry that no Lookup or
// Remove can find again. Normalize NaN or supply a custom Equal for them.
func ComparableBehavior[K comparable, V any]() Behavior[K, V] {
	return Behavior[K, V]{
		Hash:         HashComparable[K](),
		Equal:        Equals[K],
		DestroyKey:   NoDestroy[K],
		DestroyValue: NoDestroy[V],
	}
}
