// Package sets implements set algebra over sorted, duplicate free slices.
//
// Every function runs in O(len(a)+len(b)) and the size functions never
// allocate.
package sets

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Normalize sorts s in place and removes duplicates, returning the shortened
// slice.
func Normalize[T constraints.Ordered](s []T) []T {
	slices.Sort(s)
	return slices.Compact(s)
}

// IsNormalized reports whether s is strictly increasing.
func IsNormalized[T constraints.Ordered](s []T) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}

// Union returns a new slice holding a ∪ b.
func Union[T constraints.Ordered](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// UnionSize returns |a ∪ b|.
func UnionSize[T constraints.Ordered](a, b []T) int {
	n := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case b[j] < a[i]:
			j++
		default:
			i++
			j++
		}
		n++
	}
	return n + len(a) - i + len(b) - j
}

// DifferenceSize returns |a \ b|.
func DifferenceSize[T constraints.Ordered](a, b []T) int {
	n := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			n++
			i++
		case b[j] < a[i]:
			j++
		default:
			i++
			j++
		}
	}
	return n + len(a) - i
}

// Includes reports whether every element of sub is in super.
func Includes[T constraints.Ordered](super, sub []T) bool {
	if len(sub) > len(super) {
		return false
	}
	return DifferenceSize(sub, super) == 0
}
