// Package bits holds the storage-unit arithmetic used for C bit-fields.
package bits

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Width returns the number of bits in U.
func Width[U constraints.Unsigned]() uint {
	var zero U
	return uint(bits.Len64(uint64(^zero)))
}

// Mask returns a U with the low width bits set. Widths at or above the size
// of U return all ones.
func Mask[U constraints.Unsigned](width uint) U {
	if width >= Width[U]() {
		var zero U
		return ^zero
	}
	return U(1)<<width - 1
}

// Extract returns the width bits of unit starting at bit off.
func Extract[U constraints.Unsigned](unit U, off, width uint) U {
	return (unit >> off) & Mask[U](width)
}

// Insert ORs val, truncated to width bits, into unit at bit off. Bits of
// val above width are discarded.
func Insert[U constraints.Unsigned](unit, val U, off, width uint) U {
	return unit | (val&Mask[U](width))<<off
}

// Fits reports whether v can be stored in width bits without loss.
func Fits[U constraints.Unsigned](v U, width uint) bool {
	return v&^Mask[U](width) == 0
}
