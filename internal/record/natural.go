package record

import (
	"slices"

	"github.com/maruel/natural"
)

// NaturalLess orders strings so that embedded digit runs compare by numeric
// value: "Audio_2" sorts before "Audio_10".
func NaturalLess(a, b string) bool {
	return natural.Less(a, b)
}

// NaturalCompare returns -1, 0 or 1 under the natural ordering.
func NaturalCompare(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

// SortNatural sorts names in place under NaturalCompare. Names that compare
// equal keep their order.
func SortNatural(names []string) {
	slices.SortStableFunc(names, NaturalCompare)
}
