package bench

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// median returns the element at len/2 of the sorted values, the upper median
// for even counts. vs is reordered.
func median[T constraints.Ordered](vs []T) T {
	var zero T
	if len(vs) == 0 {
		return zero
	}
	slices.Sort(vs)
	return vs[len(vs)/2]
}
