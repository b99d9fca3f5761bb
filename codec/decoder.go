package codec

import (
	"encoding/binary"
	"math"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/bits"
	"github.com/zavdimka/cstruct/internal/ctype"
	"github.com/zavdimka/cstruct/internal/layout"
)

// Decoder turns packed bytes into Values.
type Decoder struct {
	order binary.ByteOrder
}

// NewDecoder creates a decoder. A nil order means little-endian.
func NewDecoder(order binary.ByteOrder) *Decoder {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Decoder{order: order}
}

// ByteOrder returns the order multi-byte values are read in.
func (d *Decoder) ByteOrder() binary.ByteOrder {
	return d.order
}

// input is the buffer being decoded and the structure it started from.
type input struct {
	buf  []byte
	root string
}

// Decode decodes st from the start of buf. Bytes past st.Size are ignored.
func (d *Decoder) Decode(buf []byte, st *layout.Struct) (Struct, error) {
	in := &input{buf: buf, root: st.Name}
	v, _, err := d.decodeStruct(in, 0, st, nil)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeFromMemory reads st.Size bytes at addr and decodes them.
func (d *Decoder) DecodeFromMemory(mem Memory, addr uint32, st *layout.Struct) (Struct, error) {
	data, err := mem.Read(addr, uint32(st.Size))
	if err != nil {
		b := errors.New(errors.PhaseUnpack, errors.KindTruncatedBuffer).
			Struct(st.Name).
			Cause(err)
		if sizer, ok := mem.(MemorySizer); ok {
			b.Detail("read %d bytes at address %d, memory size %d", st.Size, addr, sizer.Size())
		} else {
			b.Detail("read %d bytes at address %d", st.Size, addr)
		}
		return nil, b.Build()
	}
	return d.Decode(data, st)
}

// decodeStruct decodes st starting at cursor and returns the cursor past it.
func (d *Decoder) decodeStruct(in *input, cursor int, st *layout.Struct, path []string) (Struct, int, error) {
	out := make(Struct, 0, len(st.Fields))
	var unit uint64

	for i := range st.Fields {
		f := &st.Fields[i]
		fpath := append(path[:len(path):len(path)], f.Name)

		var (
			v   Value
			err error
		)

		switch {
		case f.IsBitField():
			if f.BitOffset == 0 {
				unit, err = d.readUnit(in, cursor, f.UnitSize, fpath)
				if err != nil {
					return nil, cursor, err
				}
			}
			v = Uint(bits.Extract(unit, uint(f.BitOffset), uint(f.BitWidth)))
			if f.UnitEnd {
				cursor += f.UnitSize
			}

		case f.IsStruct() && f.IsArray():
			seq := make(Sequence, f.ArrayLen)
			for n := range seq {
				seq[n], cursor, err = d.decodeStruct(in, cursor, f.Struct, indexPath(fpath, n))
				if err != nil {
					return nil, cursor, err
				}
			}
			v = seq

		case f.IsStruct():
			v, cursor, err = d.decodeStruct(in, cursor, f.Struct, fpath)
			if err != nil {
				return nil, cursor, err
			}

		case f.IsArray():
			seq := make(Sequence, f.ArrayLen)
			for n := range seq {
				seq[n], err = d.readScalar(in, cursor, f.Prim, indexPath(fpath, n))
				if err != nil {
					return nil, cursor, err
				}
				cursor += f.Prim.Size
			}
			v = seq

		default:
			v, err = d.readScalar(in, cursor, f.Prim, fpath)
			if err != nil {
				return nil, cursor, err
			}
			cursor += f.Prim.Size
		}

		out = append(out, Member{Name: f.Name, Value: v})
	}

	return out, cursor, nil
}

func (d *Decoder) take(in *input, cursor, n int, path []string) ([]byte, error) {
	if cursor+n > len(in.buf) {
		return nil, errors.TruncatedBuffer(in.root, path, cursor, n, len(in.buf))
	}
	return in.buf[cursor : cursor+n], nil
}

func (d *Decoder) readUnit(in *input, cursor, size int, path []string) (uint64, error) {
	raw, err := d.take(in, cursor, size, path)
	if err != nil {
		return 0, err
	}
	return d.uint(raw), nil
}

func (d *Decoder) readScalar(in *input, cursor int, p ctype.Primitive, path []string) (Value, error) {
	raw, err := d.take(in, cursor, p.Size, path)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case ctype.KindS8:
		return Int(int8(raw[0])), nil
	case ctype.KindU8:
		return Uint(raw[0]), nil
	case ctype.KindS16:
		return Int(int16(d.order.Uint16(raw))), nil
	case ctype.KindU16:
		return Uint(d.order.Uint16(raw)), nil
	case ctype.KindS32:
		return Int(int32(d.order.Uint32(raw))), nil
	case ctype.KindU32:
		return Uint(d.order.Uint32(raw)), nil
	case ctype.KindS64:
		return Int(int64(d.order.Uint64(raw))), nil
	case ctype.KindU64:
		return Uint(d.order.Uint64(raw)), nil
	case ctype.KindF32:
		return Float(math.Float32frombits(d.order.Uint32(raw))), nil
	case ctype.KindF64:
		return Float(math.Float64frombits(d.order.Uint64(raw))), nil
	}

	return nil, errors.New(errors.PhaseUnpack, errors.KindInvalidData).
		Struct(in.root).
		Path(path...).
		Type(p.Name).
		Detail("unsupported primitive kind %s", p.Kind).
		Build()
}

// uint reads an unsigned integer the width of raw.
func (d *Decoder) uint(raw []byte) uint64 {
	switch len(raw) {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(d.order.Uint16(raw))
	case 4:
		return uint64(d.order.Uint32(raw))
	default:
		return d.order.Uint64(raw)
	}
}
