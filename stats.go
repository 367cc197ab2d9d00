package lcmap

import (
	"fmt"
	"math"
)

// Stats is Table statistics.
//
// Warning: table statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type Stats struct {
	// Capacity is the fixed number of buckets.
	Capacity int
	// Size is the exact number of entries found while walking the chains.
	// Size may not match Counter in presence of concurrent modifications.
	Size int
	// Counter is the number of entries according to the striped size
	// counter.
	Counter int
	// CounterLen is the number of counter stripes.
	CounterLen int
	// EmptyBuckets is the number of buckets whose chain is empty.
	EmptyBuckets int
	// MinChain is the length of the shortest chain.
	MinChain int
	// MaxChain is the length of the longest chain.
	MaxChain int
	// Malformed is the number of chains that loop back onto themselves or
	// hold two entries with equal keys. Always zero for a healthy table.
	Malformed int
}

// ToString returns string representation of table stats.
func (s *Stats) ToString() string {
	return fmt.Sprintf(`---
Capacity:     %d
Size:         %d
Counter:      %d
CounterLen:   %d
EmptyBuckets: %d
MinChain:     %d
MaxChain:     %d
Malformed:    %d
---`, s.Capacity, s.Size, s.Counter, s.CounterLen, s.EmptyBuckets,
		s.MinChain, s.MaxChain, s.Malformed)
}

// Print prints the stats to stdout.
func (s *Stats) Print() {
	fmt.Println(s.ToString())
}

// Stats returns statistics for the Table. Just like other table
// methods, this one is thread-safe. Yet it's an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
//
// Each chain is walked with the same lock coupling the other operations
// use, so Stats never observes a half-linked node, but chains are
// visited one after another and the result is not a snapshot of the
// whole table.
func (t *Table[K, V]) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	stats := Stats{
		Capacity:   len(t.buckets),
		Counter:    int(t.size.sum()),
		CounterLen: t.size.len(),
		MinChain:   math.MaxInt,
	}
	var keys []K
	for i := range t.buckets {
		keys = keys[:0]
		duplicate := false
		cyclic := walk(&t.buckets[i], func(key K, _ V) {
			for _, k := range keys {
				if t.behavior.Equal(k, key) {
					duplicate = true
				}
			}
			keys = append(keys, key)
		})
		if cyclic || duplicate {
			stats.Malformed++
		}
		n := len(keys)
		stats.Size += n
		if n == 0 {
			stats.EmptyBuckets++
		}
		if n < stats.MinChain {
			stats.MinChain = n
		}
		if n > stats.MaxChain {
			stats.MaxChain = n
		}
	}
	return stats
}
