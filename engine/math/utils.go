package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds v up to the next multiple of align, e.g. AlignUp(12, 16) == 16.
// An align of 0 or 1 leaves v untouched.
func AlignUp[T constraints.Unsigned](v, align T) T {
	if align <= 1 {
		return v
	}
	m := v % align
	if m == 0 {
		return v
	}
	return v - m + align
}

// IsAligned reports whether v is a multiple of align.
func IsAligned[T constraints.Unsigned](v, align T) bool {
	if align <= 1 {
		return true
	}
	return v%align == 0
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// MaxOf returns the largest of the given values, or the zero value when empty.
func MaxOf[T constraints.Ordered](values ...T) T {
	var m T
	for i, v := range values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}
