package memory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero/api"

	"github.com/zavdimka/cstruct/codec"
)

// Wrap wraps a wazero api.Memory to implement codec.Memory.
func Wrap(mem api.Memory) codec.Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// Wrapper adapts wazero api.Memory to the codec.Memory interface.
type Wrapper struct {
	Mem api.Memory
}

// Read returns a view of guest memory. It stays valid until the memory grows.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.Errorf("memory read out of bounds: offset=%d, length=%d, size=%d",
			offset, length, m.Mem.Size())
	}
	return data, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.Errorf("memory write out of bounds: offset=%d, length=%d, size=%d",
			offset, len(data), m.Mem.Size())
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Allocator reserves guest memory for packed structures.
type Allocator interface {
	Alloc(ctx context.Context, size, align uint32) (uint32, error)
}

// AllocFunc wraps an exported guest function with the signature
// (size i32) -> i32, such as malloc.
func AllocFunc(fn api.Function) Allocator {
	if fn == nil {
		return nil
	}
	return &funcAllocator{fn: fn}
}

type funcAllocator struct {
	fn api.Function
}

func (a *funcAllocator) Alloc(ctx context.Context, size, _ uint32) (uint32, error) {
	results, err := a.fn.Call(ctx, uint64(size))
	if err != nil {
		return 0, errors.Wrap(err, "allocation failed")
	}
	if len(results) == 0 {
		return 0, errors.New("allocation returned no result")
	}
	ptr := uint32(results[0])
	if ptr == 0 && size > 0 {
		return 0, errors.Errorf("allocation of %d bytes returned null", size)
	}
	return ptr, nil
}
