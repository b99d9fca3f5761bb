package ctype

// Kind is the codec tag of a primitive: it selects how the primitive's bytes
// are encoded and decoded.
type Kind uint8

const (
	KindS8 Kind = iota
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
)

var kindNames = [...]string{
	KindS8:  "s8",
	KindU8:  "u8",
	KindS16: "s16",
	KindU16: "u16",
	KindS32: "s32",
	KindU32: "u32",
	KindS64: "s64",
	KindU64: "u64",
	KindF32: "f32",
	KindF64: "f64",
}

var kindSizes = [...]int{
	KindS8:  1,
	KindU8:  1,
	KindS16: 2,
	KindU16: 2,
	KindS32: 4,
	KindU32: 4,
	KindS64: 8,
	KindU64: 8,
	KindF32: 4,
	KindF64: 8,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Size returns the byte width of the kind.
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

func (k Kind) IsInteger() bool {
	return k <= KindU64
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	default:
		return false
	}
}

func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// Unsigned returns the unsigned kind of the same width. Float kinds map to
// the unsigned integer of their width.
func Unsigned(size int) Kind {
	switch size {
	case 1:
		return KindU8
	case 2:
		return KindU16
	case 4:
		return KindU32
	default:
		return KindU64
	}
}
