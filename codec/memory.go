package codec

import (
	"math"

	"github.com/zavdimka/cstruct/errors"
)

// Memory is addressable storage that structures are read from and written
// to, such as a WebAssembly linear memory or a plain byte slice.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// MemorySizer provides the current size of a Memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Bytes adapts a byte slice to Memory. Writes past the end grow it.
type Bytes struct {
	buf []byte
}

func NewBytes(buf []byte) *Bytes {
	return &Bytes{buf: buf}
}

// Read returns a view of length bytes at offset.
func (b *Bytes) Read(offset uint32, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b.buf)) {
		return nil, errors.New(errors.PhaseUnpack, errors.KindTruncatedBuffer).
			Detail("read %d bytes at %d exceeds memory size %d", length, offset, len(b.buf)).
			Build()
	}
	return b.buf[offset:end], nil
}

func (b *Bytes) Write(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > math.MaxUint32 {
		return errors.New(errors.PhasePack, errors.KindInvalidInput).
			Detail("write %d bytes at %d exceeds 4GiB", len(data), offset).
			Build()
	}
	if end > uint64(len(b.buf)) {
		b.buf = append(b.buf, make([]byte, int(end)-len(b.buf))...)
	}
	copy(b.buf[offset:], data)
	return nil
}

func (b *Bytes) Size() uint32 {
	return uint32(len(b.buf))
}

// Bytes returns the underlying slice.
func (b *Bytes) Bytes() []byte {
	return b.buf
}
