package stress

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/puzpuzpuz/lcmap"
	"github.com/puzpuzpuz/lcmap/internal/config"
)

// key is the key handle stored in the table under test. Handles created
// for lookups and removes are never stored and never tracked.
type key struct {
	id   uint32
	name string
	// released counts DestroyKey calls for this handle.
	released atomic.Int32
}

// value is the value handle stored in the table under test. seq is unique
// per worker and identifies the Insert that stored it.
type value struct {
	seq      uint64
	released atomic.Int32
}

// keySpace maps key ids to the hashed representation of a workload.
type keySpace struct {
	kind  string
	names []string
}

// newKeySpace prepares n keys. String keys are random UUIDs, so their
// bucket placement differs between runs.
func newKeySpace(kind string, n int) *keySpace {
	ks := &keySpace{kind: kind}
	if kind == config.KeyKindString {
		ks.names = make([]string, n)
		for i := range ks.names {
			ks.names[i] = uuid.NewString()
		}
	}
	return ks
}

func (ks *keySpace) key(id uint32) *key {
	k := &key{id: id}
	if ks.kind == config.KeyKindString {
		k.name = ks.names[id]
	}
	return k
}

func (ks *keySpace) behavior() lcmap.Behavior[*key, *value] {
	hash := func(k *key) uint64 {
		return lcmap.HashInteger(k.id)
	}
	equal := func(a, b *key) bool {
		return a.id == b.id
	}
	if ks.kind == config.KeyKindString {
		hash = func(k *key) uint64 {
			return lcmap.HashString(k.name)
		}
		equal = func(a, b *key) bool {
			return a.name == b.name
		}
	}
	return lcmap.Behavior[*key, *value]{
		Hash:  hash,
		Equal: equal,
		DestroyKey: func(k *key) {
			k.released.Add(1)
		},
		DestroyValue: func(v *value) {
			v.released.Add(1)
		},
	}
}

func (k *key) String() string {
	if k.name != "" {
		return k.name
	}
	return strconv.FormatUint(uint64(k.id), 10)
}
