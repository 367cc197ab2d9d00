package lcmap

import "sync"

// node is a link in a bucket chain. The bucket array holds the chain
// heads, which are sentinels: their key and value stay zero for the
// lifetime of the table. mu guards key, value and next of this node only.
type node[K, V any] struct {
	mu    sync.Mutex
	key   K
	value V
	next  *node[K, V]
}

type walkMode int

const (
	// readWalk drops the predecessor as soon as the successor is locked.
	readWalk walkMode = iota
	// writeWalk keeps the predecessor locked until the successor is known
	// not to match, so a matched node can be unlinked.
	writeWalk
)

// cursor records the locks held by one lock-coupled traversal. prev and
// curr, when non-nil, are locked by the owner of the cursor; nothing else
// is. Callers register release with defer before walking, which makes the
// deferred call the only place the traversal's locks are given back.
type cursor[K, V any] struct {
	prev *node[K, V]
	curr *node[K, V]
}

// seek walks the chain rooted at head until it reaches a node whose key
// equals key, or the end of the chain.
//
// On a match c.curr is the locked matching node; with writeWalk c.prev is
// its locked predecessor, with readWalk c.prev is nil. At the end of the
// chain c.curr is nil and c.prev is the locked last node (possibly head).
func (c *cursor[K, V]) seek(head *node[K, V], key K, equal func(a, b K) bool, mode walkMode) {
	head.mu.Lock()
	c.prev = head
	next := head.next
	for next != nil {
		next.mu.Lock()
		c.curr = next
		if mode == readWalk {
			c.prev.mu.Unlock()
			c.prev = nil
		}
		if equal(c.curr.key, key) {
			return
		}
		if c.prev != nil {
			c.prev.mu.Unlock()
		}
		c.prev, c.curr = c.curr, nil
		next = c.prev.next
	}
}

// unlink detaches the matched node from the chain. The predecessor takes
// over the tail; the detached node keeps nothing reachable. Both nodes
// must be locked, as after a writeWalk match.
func (c *cursor[K, V]) unlink() (key K, value V) {
	victim := c.curr
	c.prev.next = victim.next
	key, value = victim.key, victim.value
	var (
		zeroK K
		zeroV V
	)
	victim.next, victim.key, victim.value = nil, zeroK, zeroV
	return key, value
}

func (c *cursor[K, V]) release() {
	if c.curr != nil {
		c.curr.mu.Unlock()
		c.curr = nil
	}
	if c.prev != nil {
		c.prev.mu.Unlock()
		c.prev = nil
	}
}

// walk visits every node after head in chain order, each while it is
// locked, coupling locks the same way a readWalk seek does. It stops and
// reports true if the chain loops back onto a node it already visited.
func walk[K, V any](head *node[K, V], visit func(key K, value V)) (cyclic bool) {
	seen := map[*node[K, V]]struct{}{head: {}}
	var c cursor[K, V]
	defer c.release()
	head.mu.Lock()
	c.curr = head
	for {
		next := c.curr.next
		if next == nil {
			return false
		}
		if _, ok := seen[next]; ok {
			return true
		}
		seen[next] = struct{}{}
		next.mu.Lock()
		c.prev, c.curr = c.curr, next
		c.prev.mu.Unlock()
		c.prev = nil
		visit(c.curr.key, c.curr.value)
	}
}
