package lcmap

import (
	"math/bits"
	"reflect"
)

const (
	// used in paddings to prevent false sharing;
	// 64B are used instead of 128B as a compromise between
	// memory footprint and performance; 128B usage may give ~30%
	// improvement on NUMA machines
	cacheLineSize = 64
)

// nextPowOf2 computes the next highest power of 2 of 32-bit v.
func nextPowOf2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}

// nillable reports whether values of T can be nil.
func nillable[T any]() bool {
	var zero T
	switch reflect.TypeOf(&zero).Elem().Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return true
	}
	return false
}

// isNil must only be called for types reported by nillable.
func isNil[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsNil()
}
