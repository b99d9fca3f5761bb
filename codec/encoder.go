package codec

import (
	"encoding/binary"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/bits"
	"github.com/zavdimka/cstruct/internal/layout"
)

// Encoder turns Values into packed bytes.
//
// Missing members encode as zero, short arrays are zero padded and long
// arrays are truncated. Members the structure does not declare are ignored.
// Ordinary scalars outside their type's range fail with an overflow error;
// bit-fields keep only their low bits.
type Encoder struct {
	order binary.ByteOrder
}

// NewEncoder creates an encoder. A nil order means little-endian.
func NewEncoder(order binary.ByteOrder) *Encoder {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Encoder{order: order}
}

// ByteOrder returns the order multi-byte values are written in.
func (e *Encoder) ByteOrder() binary.ByteOrder {
	return e.order
}

// Encode packs v as st. The result is exactly st.Size bytes.
func (e *Encoder) Encode(v Struct, st *layout.Struct) ([]byte, error) {
	buf := make([]byte, st.Size)
	if _, err := e.EncodeTo(buf, v, st); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo packs v into the start of buf, which must hold at least st.Size
// bytes. It returns the number of bytes written.
func (e *Encoder) EncodeTo(buf []byte, v Struct, st *layout.Struct) (int, error) {
	if len(buf) < st.Size {
		return 0, errors.New(errors.PhasePack, errors.KindInvalidInput).
			Struct(st.Name).
			Detail("buffer holds %d bytes, need %d", len(buf), st.Size).
			Build()
	}
	clear(buf[:st.Size])
	n, err := e.encodeStruct(buf, 0, v, st, nil)
	if err != nil {
		if ee, ok := err.(*errors.Error); ok && ee.Struct == "" {
			ee.Struct = st.Name
		}
		return 0, err
	}
	return n, nil
}

// EncodeToMemory packs v and writes it at addr.
func (e *Encoder) EncodeToMemory(mem Memory, addr uint32, v Struct, st *layout.Struct) error {
	buf, err := e.Encode(v, st)
	if err != nil {
		return err
	}
	if err := mem.Write(addr, buf); err != nil {
		return errors.New(errors.PhasePack, errors.KindInvalidInput).
			Struct(st.Name).
			Detail("write %d bytes at address %d", len(buf), addr).
			Cause(err).
			Build()
	}
	return nil
}

func (e *Encoder) encodeStruct(buf []byte, cursor int, v Struct, st *layout.Struct, path []string) (int, error) {
	get := v.lookup()
	var unit uint64

	for i := range st.Fields {
		f := &st.Fields[i]
		fpath := append(path[:len(path):len(path)], f.Name)

		val, ok := get(f.Name)
		if val == nil {
			ok = false
		}

		switch {
		case f.IsBitField():
			if f.BitOffset == 0 {
				unit = 0
			}
			if ok {
				raw, err := bitFieldBits(val, f.Prim, fpath)
				if err != nil {
					return cursor, err
				}
				unit = bits.Insert(unit, raw, uint(f.BitOffset), uint(f.BitWidth))
			}
			if f.UnitEnd {
				e.putUint(buf[cursor:], unit, f.UnitSize)
				cursor += f.UnitSize
			}

		case f.IsStruct() && f.IsArray():
			seq, err := asSequence(val, ok, fpath, f)
			if err != nil {
				return cursor, err
			}
			for n := 0; n < f.ArrayLen; n++ {
				if n >= len(seq) || seq[n] == nil {
					cursor += f.Struct.Size
					continue
				}
				elem, isStruct := seq[n].(Struct)
				if !isStruct {
					return cursor, errors.TypeMismatch(errors.PhasePack, indexPath(fpath, n), TypeName(seq[n]), f.Type)
				}
				cursor, err = e.encodeStruct(buf, cursor, elem, f.Struct, indexPath(fpath, n))
				if err != nil {
					return cursor, err
				}
			}

		case f.IsStruct():
			if !ok {
				cursor += f.Struct.Size
				continue
			}
			sv, isStruct := val.(Struct)
			if !isStruct {
				return cursor, errors.TypeMismatch(errors.PhasePack, fpath, TypeName(val), f.Type)
			}
			var err error
			cursor, err = e.encodeStruct(buf, cursor, sv, f.Struct, fpath)
			if err != nil {
				return cursor, err
			}

		case f.IsArray():
			seq, err := asSequence(val, ok, fpath, f)
			if err != nil {
				return cursor, err
			}
			for n := 0; n < f.ArrayLen; n++ {
				if n < len(seq) && seq[n] != nil {
					raw, err := scalarBits(seq[n], f.Prim, indexPath(fpath, n))
					if err != nil {
						return cursor, err
					}
					e.putUint(buf[cursor:], raw, f.Prim.Size)
				}
				cursor += f.Prim.Size
			}

		default:
			if ok {
				raw, err := scalarBits(val, f.Prim, fpath)
				if err != nil {
					return cursor, err
				}
				e.putUint(buf[cursor:], raw, f.Prim.Size)
			}
			cursor += f.Prim.Size
		}
	}

	return cursor, nil
}

func asSequence(val Value, ok bool, path []string, f *layout.Field) (Sequence, error) {
	if !ok {
		return nil, nil
	}
	seq, isSeq := val.(Sequence)
	if !isSeq {
		return nil, errors.TypeMismatch(errors.PhasePack, path, TypeName(val), f.FieldDecl.String())
	}
	return seq, nil
}

// putUint writes the low size bytes of v.
func (e *Encoder) putUint(dst []byte, v uint64, size int) {
	switch size {
	case 1:
		dst[0] = byte(v)
	case 2:
		e.order.PutUint16(dst, uint16(v))
	case 4:
		e.order.PutUint32(dst, uint32(v))
	default:
		e.order.PutUint64(dst, v)
	}
}
