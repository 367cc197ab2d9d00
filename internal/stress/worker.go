package stress

import (
	"context"
	"math/rand"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/errors"

	"github.com/puzpuzpuz/lcmap"
	"github.com/puzpuzpuz/lcmap/internal/config"
)

// ErrViolation is wrapped by every error reporting a table result that
// contradicts the model of the workload.
var ErrViolation = errors.New("stress: table invariant violated")

type opKind int

const (
	opInsert opKind = iota
	opRemove
	opLookup
)

// worker applies random operations to the keys it owns. No other worker
// touches these keys, so every result the table returns is predictable
// from the worker's own history.
type worker struct {
	id    int
	first uint32
	n     uint32
	mix   config.Mix
	keys  *keySpace
	table *lcmap.Table[*key, *value]
	rnd   *rand.Rand

	// live holds the ids of the owned keys the table must contain.
	live *roaring.Bitmap
	// last is the value most recently inserted for each owned key.
	last []*value
	// stored holds every handle the worker gave to the table.
	storedKeys   []*key
	storedValues []*value
	seq          uint64

	counts Counts
}

// Counts breaks the applied operations down by outcome.
type Counts struct {
	Inserts  int64
	Replaces int64
	Removes  int64
	Missing  int64
	Hits     int64
	Misses   int64
}

func (c *Counts) add(o Counts) {
	c.Inserts += o.Inserts
	c.Replaces += o.Replaces
	c.Removes += o.Removes
	c.Missing += o.Missing
	c.Hits += o.Hits
	c.Misses += o.Misses
}

func newWorker(id int, cfg config.Workload, keys *keySpace, table *lcmap.Table[*key, *value], seed int64) *worker {
	return &worker{
		id:    id,
		first: uint32(id * cfg.Keys),
		n:     uint32(cfg.Keys),
		mix:   cfg.Mix,
		keys:  keys,
		table: table,
		rnd:   rand.New(rand.NewSource(seed)),
		live:  roaring.New(),
		last:  make([]*value, cfg.Keys),
	}
}

func (w *worker) pickOp() opKind {
	p := w.rnd.Intn(100)
	switch {
	case p < w.mix.Insert:
		return opInsert
	case p < w.mix.Insert+w.mix.Remove:
		return opRemove
	default:
		return opLookup
	}
}

// run applies ops operations and stops at the first violation. progress
// is bumped after every operation.
func (w *worker) run(ctx context.Context, ops int, progress *atomic.Int64) error {
	for i := 0; i < ops; i++ {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		id := w.first + uint32(w.rnd.Intn(int(w.n)))
		var err error
		switch w.pickOp() {
		case opInsert:
			err = w.insert(id)
		case opRemove:
			err = w.remove(id)
		default:
			err = w.lookup(id)
		}
		if err != nil {
			return err
		}
		progress.Add(1)
	}
	return nil
}

func (w *worker) insert(id uint32) error {
	k := w.keys.key(id)
	w.seq++
	v := &value{seq: w.seq}
	w.storedKeys = append(w.storedKeys, k)
	w.storedValues = append(w.storedValues, v)

	replaced := w.table.Insert(k, v)
	if want := w.live.Contains(id); replaced != want {
		return errors.Wrapf(ErrViolation, "worker %d: insert of key %s reported replaced=%v, want %v", w.id, k, replaced, want)
	}
	if replaced {
		w.counts.Replaces++
		prev := w.last[id-w.first]
		if n := prev.released.Load(); n != 1 {
			return errors.Wrapf(ErrViolation, "worker %d: replaced value %d of key %s released %d times", w.id, prev.seq, k, n)
		}
	} else {
		w.counts.Inserts++
	}
	w.live.Add(id)
	w.last[id-w.first] = v
	return nil
}

func (w *worker) remove(id uint32) error {
	k := w.keys.key(id)
	removed := w.table.Remove(k)
	if want := w.live.Contains(id); removed != want {
		return errors.Wrapf(ErrViolation, "worker %d: remove of key %s reported removed=%v, want %v", w.id, k, removed, want)
	}
	if !removed {
		w.counts.Missing++
		return nil
	}
	w.counts.Removes++
	prev := w.last[id-w.first]
	if n := prev.released.Load(); n != 1 {
		return errors.Wrapf(ErrViolation, "worker %d: removed value %d of key %s released %d times", w.id, prev.seq, k, n)
	}
	w.live.Remove(id)
	w.last[id-w.first] = nil
	return nil
}

func (w *worker) lookup(id uint32) error {
	k := w.keys.key(id)
	var seq uint64
	found := w.table.View(k, func(v *value) {
		seq = v.seq
	})
	if want := w.live.Contains(id); found != want {
		return errors.Wrapf(ErrViolation, "worker %d: lookup of key %s reported found=%v, want %v", w.id, k, found, want)
	}
	if !found {
		w.counts.Misses++
		return nil
	}
	w.counts.Hits++
	if want := w.last[id-w.first].seq; seq != want {
		return errors.Wrapf(ErrViolation, "worker %d: key %s holds value %d, want %d", w.id, k, seq, want)
	}
	return nil
}

// check verifies that the table holds exactly the worker's live keys with
// their last values. It must run after all workers have finished.
func (w *worker) check() error {
	for id := w.first; id < w.first+w.n; id++ {
		if err := w.lookup(id); err != nil {
			return err
		}
	}
	return nil
}

// checkReleased verifies that every handle the worker stored was
// destroyed exactly once. It must run after the table was destroyed.
func (w *worker) checkReleased() error {
	for _, k := range w.storedKeys {
		if n := k.released.Load(); n != 1 {
			return errors.Wrapf(ErrViolation, "worker %d: key handle %s released %d times", w.id, k, n)
		}
	}
	for _, v := range w.storedValues {
		if n := v.released.Load(); n != 1 {
			return errors.Wrapf(ErrViolation, "worker %d: value %d released %d times", w.id, v.seq, n)
		}
	}
	return nil
}
