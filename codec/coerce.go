package codec

import (
	"math"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/bits"
	"github.com/zavdimka/cstruct/internal/ctype"
)

// scalarBits converts v to the raw bit pattern of primitive p. The low p.Size
// bytes of the result are what gets written.
func scalarBits(v Value, p ctype.Primitive, path []string) (uint64, error) {
	width := uint(p.Size * 8)

	switch {
	case p.Kind.IsFloat():
		var f float64
		switch v := v.(type) {
		case Float:
			f = float64(v)
		case Int:
			f = float64(v)
		case Uint:
			f = float64(v)
		default:
			return 0, errors.TypeMismatch(errors.PhasePack, path, TypeName(v), p.Name)
		}
		if p.Kind == ctype.KindF32 {
			return uint64(math.Float32bits(float32(f))), nil
		}
		return math.Float64bits(f), nil

	case p.Kind.IsSigned():
		lo := int64(-1) << (width - 1)
		hi := int64(bits.Mask[uint64](width - 1))
		switch v := v.(type) {
		case Int:
			if int64(v) < lo || int64(v) > hi {
				return 0, errors.Overflow(errors.PhasePack, path, int64(v), p.Name)
			}
			return uint64(v), nil
		case Uint:
			if uint64(v) > uint64(hi) {
				return 0, errors.Overflow(errors.PhasePack, path, uint64(v), p.Name)
			}
			return uint64(v), nil
		case Float:
			f := float64(v)
			if !integral(f) {
				return 0, errors.TypeMismatch(errors.PhasePack, path, "non-integral float", p.Name)
			}
			limit := math.Ldexp(1, int(width-1))
			if f < -limit || f >= limit {
				return 0, errors.Overflow(errors.PhasePack, path, f, p.Name)
			}
			return uint64(int64(f)), nil
		}

	default:
		switch v := v.(type) {
		case Int:
			if v < 0 || !bits.Fits(uint64(v), width) {
				return 0, errors.Overflow(errors.PhasePack, path, int64(v), p.Name)
			}
			return uint64(v), nil
		case Uint:
			if !bits.Fits(uint64(v), width) {
				return 0, errors.Overflow(errors.PhasePack, path, uint64(v), p.Name)
			}
			return uint64(v), nil
		case Float:
			f := float64(v)
			if !integral(f) {
				return 0, errors.TypeMismatch(errors.PhasePack, path, "non-integral float", p.Name)
			}
			if f < 0 || f >= math.Ldexp(1, int(width)) {
				return 0, errors.Overflow(errors.PhasePack, path, f, p.Name)
			}
			return uint64(f), nil
		}
	}

	return 0, errors.TypeMismatch(errors.PhasePack, path, TypeName(v), p.Name)
}

// bitFieldBits converts v for storage in a bit-field. Out of range values
// are not an error; the caller keeps only the low bits.
func bitFieldBits(v Value, p ctype.Primitive, path []string) (uint64, error) {
	switch v := v.(type) {
	case Uint:
		return uint64(v), nil
	case Int:
		return uint64(v), nil
	case Float:
		f := float64(v)
		if !integral(f) || f < -math.Ldexp(1, 63) || f >= math.Ldexp(1, 64) {
			return 0, errors.TypeMismatch(errors.PhasePack, path, "non-integral float", p.Name)
		}
		if f < 0 {
			return uint64(int64(f)), nil
		}
		return uint64(f), nil
	}
	return 0, errors.TypeMismatch(errors.PhasePack, path, TypeName(v), p.Name)
}

func integral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}
