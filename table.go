// Package lcmap provides a fixed-size hash table that is safe for
// concurrent use by multiple goroutines without a table-wide lock.
package lcmap

import (
	"go.uber.org/zap"
)

// DefaultCapacity is the number of buckets of a table built without
// WithCapacity.
const DefaultCapacity = 1000

// Behavior is the set of caller-supplied functions a Table is bound to
// at construction. All four are required.
//
// Hash must be a deterministic function of the key's content; its result
// is taken modulo the table capacity to select a bucket. Equal must be
// reflexive, symmetric and consistent with Hash. DestroyKey and
// DestroyValue release whatever a stored handle owns; the table calls
// each of them at most once per stored instance, when the instance is
// overwritten, removed or the table is destroyed.
type Behavior[K, V any] struct {
	Hash         func(key K) uint64
	Equal        func(a, b K) bool
	DestroyKey   func(key K)
	DestroyValue func(value V)
}

// TableConfig defines configurable Table options.
type TableConfig struct {
	capacity int
	logger   *zap.Logger
	recorder Recorder
}

// WithCapacity configures the number of buckets of a new Table. The
// capacity is fixed for the lifetime of the table; there is no rehashing.
func WithCapacity(capacity int) func(*TableConfig) {
	return func(c *TableConfig) {
		c.capacity = capacity
	}
}

// WithLogger configures the logger used for lifecycle events. Operations
// on keys and values never log.
func WithLogger(logger *zap.Logger) func(*TableConfig) {
	return func(c *TableConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder configures the Recorder notified about the outcome of
// every Insert, Remove and Lookup.
func WithRecorder(r Recorder) func(*TableConfig) {
	return func(c *TableConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Table is a fixed-size hash table keyed and valued by opaque handles.
// It is safe for concurrent use by multiple goroutines.
//
// Each bucket is a singly linked chain headed by a sentinel node, and
// every node carries its own mutex. Operations walk a chain with
// hand-over-hand locking: the next node is locked before the current one
// is released, so a traversal holds at most two adjacent locks and never
// touches an unlocked node. Goroutines working on different buckets never
// contend; goroutines in the same bucket serialize only where they meet
// on the same pair of nodes.
//
// Lock acquisition has no timeout. An operation blocks for as long as
// the nodes it needs are held, and a Behavior function that blocks
// stalls every traversal queued behind it in the same chain.
//
// Inserting a key/value pair transfers their ownership to the table.
// A Table must not be copied after first use.
type Table[K, V any] struct {
	buckets       []node[K, V]
	behavior      Behavior[K, V]
	keyNillable   bool
	valueNillable bool
	size          sizeCounter
	logger        *zap.Logger
	recorder      Recorder
}

// New creates a Table bound to the given behavior and configured with
// the given options. It returns an error wrapping ErrInvalidConfig, and
// no table, if any of the behavior functions is nil or the capacity is
// not positive.
func New[K, V any](behavior Behavior[K, V], options ...func(*TableConfig)) (*Table[K, V], error) {
	c := &TableConfig{
		capacity: DefaultCapacity,
		logger:   zap.NewNop(),
		recorder: NoopRecorder{},
	}
	for _, o := range options {
		o(c)
	}
	if err := behavior.validate(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	t := &Table[K, V]{
		buckets:       make([]node[K, V], c.capacity),
		behavior:      behavior,
		keyNillable:   nillable[K](),
		valueNillable: nillable[V](),
		size:          newSizeCounter(c.capacity),
		logger:        c.logger,
		recorder:      c.recorder,
	}
	t.logger.Debug("table created", zap.Int("capacity", c.capacity))
	return t, nil
}

// Insert stores value under key, transferring ownership of both to the
// table. If the key is already present, the previously stored key and
// value are released through the destructors and replaced in place; the
// replaced result reports that case.
//
// Insert does nothing on a nil table, or when key or value is a nil
// pointer, map, slice, func, chan or interface.
func (t *Table[K, V]) Insert(key K, value V) (replaced bool) {
	if t == nil || t.absentKey(key) || t.absentValue(value) {
		return false
	}
	replaced = t.insert(key, value)
	t.recorder.Insert(replaced)
	return replaced
}

func (t *Table[K, V]) insert(key K, value V) bool {
	bidx := t.bucketOf(key)
	var c cursor[K, V]
	defer c.release()
	c.seek(&t.buckets[bidx], key, t.behavior.Equal, writeWalk)
	if c.curr != nil {
		oldKey, oldValue := c.curr.key, c.curr.value
		c.curr.key, c.curr.value = key, value
		t.release(oldKey, oldValue)
		return true
	}
	// End of chain: c.prev is the locked tail.
	n := &node[K, V]{}
	n.mu.Lock()
	n.key, n.value = key, value
	c.prev.next = n
	n.mu.Unlock()
	t.size.add(bidx, 1)
	return false
}

// Remove deletes the entry for key, releasing its key and value through
// the destructors. The result reports whether an entry was removed.
// Remove does nothing on a nil table or a nil key.
func (t *Table[K, V]) Remove(key K) bool {
	if t == nil || t.absentKey(key) {
		return false
	}
	removed := t.remove(key)
	t.recorder.Remove(removed)
	return removed
}

func (t *Table[K, V]) remove(key K) bool {
	bidx := t.bucketOf(key)
	var c cursor[K, V]
	defer c.release()
	c.seek(&t.buckets[bidx], key, t.behavior.Equal, writeWalk)
	if c.curr == nil {
		return false
	}
	// The predecessor stays locked until release, so no traversal can
	// step onto the node after it is unlinked here.
	oldKey, oldValue := c.unlink()
	t.size.add(bidx, -1)
	t.release(oldKey, oldValue)
	return true
}

// Lookup returns the value stored for key. The ok result indicates
// whether the key was found. Lookup returns the zero value and false on a
// nil table or a nil key.
//
// Ownership stays with the table. When V is a handle type (a pointer, or
// a struct owning resources), the returned value is only safe to use
// while no concurrent Remove or Insert for the same key releases it; the
// table gives no guarantee about that once Lookup has returned. Use View
// to access the value while it is guarded.
func (t *Table[K, V]) Lookup(key K) (value V, ok bool) {
	if t == nil || t.absentKey(key) {
		return value, false
	}
	value, ok = t.lookup(key)
	t.recorder.Lookup(ok)
	return value, ok
}

func (t *Table[K, V]) lookup(key K) (value V, ok bool) {
	var c cursor[K, V]
	defer c.release()
	c.seek(&t.buckets[t.bucketOf(key)], key, t.behavior.Equal, readWalk)
	if c.curr == nil {
		return value, false
	}
	return c.curr.value, true
}

// View calls f with the value stored for key while the entry's lock is
// held, so the value cannot be released by a concurrent Remove or Insert
// until f returns. The result reports whether the key was found; f is
// not called otherwise. f must not call back into the table.
func (t *Table[K, V]) View(key K, f func(value V)) bool {
	if t == nil || t.absentKey(key) {
		return false
	}
	found := t.view(key, f)
	t.recorder.Lookup(found)
	return found
}

func (t *Table[K, V]) view(key K, f func(value V)) bool {
	var c cursor[K, V]
	defer c.release()
	c.seek(&t.buckets[t.bucketOf(key)], key, t.behavior.Equal, readWalk)
	if c.curr == nil {
		return false
	}
	f(c.curr.value)
	return true
}

// Len returns the number of entries in the table. The result may not
// reflect operations that are concurrently in progress.
func (t *Table[K, V]) Len() int {
	if t == nil {
		return 0
	}
	return int(t.size.sum())
}

// Capacity returns the fixed number of buckets of the table.
func (t *Table[K, V]) Capacity() int {
	if t == nil {
		return 0
	}
	return len(t.buckets)
}

// Destroy releases every stored key and value through the destructors
// and leaves the table empty.
//
// Destroy must not run concurrently with any other operation on the
// table; the caller has to make sure no other goroutine can reach the
// table anymore. Each node is still locked while it is torn down, which
// waits out a straggling holder but does not make concurrent use safe.
//
// Entries are unlinked one at a time before their destructors run. If a
// destructor panics, the entries not yet reached stay in the table and a
// later Destroy releases them.
func (t *Table[K, V]) Destroy() {
	if t == nil {
		return
	}
	released := 0
	for i := range t.buckets {
		for {
			key, value, ok := t.popFront(uint64(i))
			if !ok {
				break
			}
			released++
			t.release(key, value)
		}
	}
	t.logger.Debug("table destroyed",
		zap.Int("capacity", len(t.buckets)),
		zap.Int("released", released))
}

// popFront unlinks the first entry of bucket bidx.
func (t *Table[K, V]) popFront(bidx uint64) (key K, value V, ok bool) {
	var c cursor[K, V]
	defer c.release()
	head := &t.buckets[bidx]
	head.mu.Lock()
	c.prev = head
	if head.next == nil {
		return key, value, false
	}
	head.next.mu.Lock()
	c.curr = head.next
	key, value = c.unlink()
	t.size.add(bidx, -1)
	return key, value, true
}

// release hands a key and value the table no longer stores to the
// destructors. The value is released even if DestroyKey panics.
func (t *Table[K, V]) release(key K, value V) {
	defer t.behavior.DestroyValue(value)
	t.behavior.DestroyKey(key)
}

func (t *Table[K, V]) bucketOf(key K) uint64 {
	return bucketIdx(t.behavior.Hash(key), len(t.buckets))
}

func (t *Table[K, V]) absentKey(key K) bool {
	return t.keyNillable && isNil(key)
}

func (t *Table[K, V]) absentValue(value V) bool {
	return t.valueNillable && isNil(value)
}

func bucketIdx(hash uint64, capacity int) uint64 {
	return hash % uint64(capacity)
}
