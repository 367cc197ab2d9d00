package lcmap

import (
	"sync/atomic"
)

// maximum counter stripes to use; stands for 4KB of memory
const maxCounterStripes = 64

// sizeCounter is a striped int64 counter of table entries. A write
// lands on the stripe selected by the bucket index it touched, so
// goroutines working on different buckets rarely share a cache line.
type sizeCounter struct {
	stripes []counterStripe
}

type counterStripe struct {
	c int64
	//lint:ignore U1000 prevents false sharing
	pad [cacheLineSize - 8]byte
}

// newSizeCounter sizes the stripes to one per 16 buckets, rounded to
// a power of two and capped by maxCounterStripes.
func newSizeCounter(capacity int) sizeCounter {
	n := nextPowOf2(uint32(capacity >> 4))
	if n > maxCounterStripes {
		n = maxCounterStripes
	}
	return sizeCounter{stripes: make([]counterStripe, n)}
}

func (s *sizeCounter) add(bucketIdx uint64, delta int64) {
	cidx := uint64(len(s.stripes)-1) & bucketIdx
	atomic.AddInt64(&s.stripes[cidx].c, delta)
}

// sum returns the current number of entries. The returned value may not
// include all of the latest operations in presence of concurrent
// modifications of the table.
func (s *sizeCounter) sum() int64 {
	sum := int64(0)
	for i := range s.stripes {
		sum += atomic.LoadInt64(&s.stripes[i].c)
	}
	return sum
}

func (s *sizeCounter) len() int {
	return len(s.stripes)
}
