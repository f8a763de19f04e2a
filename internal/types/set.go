package types

import "math/bits"

// Set is a bitmask over a small enum. Every enum in this package has fewer
// than 64 values, so a single word holds any combination.
type Set[T ~uint8] uint64

// NewSet returns a set holding vs.
func NewSet[T ~uint8](vs ...T) Set[T] {
	var s Set[T]
	for _, v := range vs {
		s = s.Add(v)
	}
	return s
}

// Add returns s with v included.
func (s Set[T]) Add(v T) Set[T] {
	return s | 1<<uint(v)
}

// Has reports whether v is in s.
func (s Set[T]) Has(v T) bool {
	return s&(1<<uint(v)) != 0
}

// Intersects reports whether s and o share at least one value.
func (s Set[T]) Intersects(o Set[T]) bool {
	return s&o != 0
}

// Contains reports whether every value of o is in s.
func (s Set[T]) Contains(o Set[T]) bool {
	return s&o == o
}

// Empty reports whether s holds no values.
func (s Set[T]) Empty() bool {
	return s == 0
}

// Len returns the number of values in s.
func (s Set[T]) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Values returns the members of s in ascending order.
func (s Set[T]) Values() []T {
	out := make([]T, 0, s.Len())
	for w := uint64(s); w != 0; w &= w - 1 {
		out = append(out, T(bits.TrailingZeros64(w)))
	}
	return out
}
