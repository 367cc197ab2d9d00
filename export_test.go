package lcmap

func Mix64(x uint64) uint64 {
	return mix64(x)
}

// LoopChain makes the chain holding key point back onto its first entry.
// Not safe for concurrent use.
func LoopChain[K, V any](t *Table[K, V], key K) {
	head := &t.buckets[t.bucketOf(key)]
	first := head.next
	if first == nil {
		return
	}
	tail := first
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = first
}

// DuplicateFirst links a copy of the first entry of key's chain right
// after it. Not safe for concurrent use.
func DuplicateFirst[K, V any](t *Table[K, V], key K) {
	head := &t.buckets[t.bucketOf(key)]
	first := head.next
	if first == nil {
		return
	}
	first.next = &node[K, V]{key: first.key, value: first.value, next: first.next}
}

// ChainKeys returns the keys of the chain holding key, in chain order.
func ChainKeys[K, V any](t *Table[K, V], key K) []K {
	var keys []K
	walk(&t.buckets[t.bucketOf(key)], func(k K, _ V) {
		keys = append(keys, k)
	})
	return keys
}
