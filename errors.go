package lcmap

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidConfig is returned by New when the table cannot be built from
// the given behavior and options. Use errors.Is to test for it; the
// wrapping message names what is missing or invalid.
var ErrInvalidConfig = errors.New("lcmap: invalid table configuration")

func (b Behavior[K, V]) validate() error {
	var missing []string
	if b.Hash == nil {
		missing = append(missing, "Hash")
	}
	if b.Equal == nil {
		missing = append(missing, "Equal")
	}
	if b.DestroyKey == nil {
		missing = append(missing, "DestroyKey")
	}
	if b.DestroyValue == nil {
		missing = append(missing, "DestroyValue")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidConfig, "missing behavior: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *TableConfig) validate() error {
	if c.capacity < 1 {
		return errors.Wrapf(ErrInvalidConfig, "capacity must be positive, got %d", c.capacity)
	}
	return nil
}
