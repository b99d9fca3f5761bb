package cstruct

import (
	"context"
	"encoding/binary"
	"io"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/dump"
	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/layout"
	"github.com/zavdimka/cstruct/memory"
)

// Registry holds structure declarations and, once resolved, their layouts.
//
// Ingest and Resolve serialize on a mutex. Every other method only reads
// the published layouts and is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	decls  []StructDecl
	index  map[string]int
	optErr error

	resolved atomic.Pointer[map[string]*layout.Struct]

	dec    *codec.Decoder
	enc    *codec.Encoder
	logger *zap.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	o := options{order: binary.LittleEndian}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return &Registry{
		index:  make(map[string]int),
		optErr: o.err,
		dec:    codec.NewDecoder(o.order),
		enc:    codec.NewEncoder(o.order),
		logger: o.logger,
	}
}

// Ingest adds declarations. A name declared again replaces the earlier
// declaration in place. Ingest fails once the registry is resolved.
func (r *Registry) Ingest(decls ...StructDecl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.optErr != nil {
		return r.optErr
	}
	if r.resolved.Load() != nil {
		return errors.Frozen(errors.PhaseIngest, "registry")
	}

	for _, d := range decls {
		d.Fields = slices.Clone(d.Fields)
		if i, ok := r.index[d.Name]; ok {
			r.logger.Warn("structure redeclared, replacing earlier declaration",
				zap.String("struct", d.Name),
				zap.Int("old_fields", len(r.decls[i].Fields)),
				zap.Int("new_fields", len(d.Fields)))
			r.decls[i] = d
			continue
		}
		r.index[d.Name] = len(r.decls)
		r.decls = append(r.decls, d)
	}

	r.logger.Debug("ingested declarations",
		zap.Int("added", len(decls)),
		zap.Int("total", len(r.decls)))
	return nil
}

// Resolve computes the layout of every ingested structure. Either all
// layouts are published or, on error, none are and ingestion may continue.
// Calling Resolve again after success does nothing.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.optErr != nil {
		return r.optErr
	}
	if r.resolved.Load() != nil {
		return nil
	}

	structs, err := layout.NewResolver(slices.Clone(r.decls), r.logger).Resolve()
	if err != nil {
		r.logger.Debug("resolution failed", zap.Error(err))
		return err
	}

	total := 0
	for _, st := range structs {
		total += st.Size
	}
	r.logger.Info("registry resolved",
		zap.Int("structs", len(structs)),
		zap.Int("total_bytes", total),
		zap.String("byte_order", codec.ByteOrderName(r.dec.ByteOrder())))

	r.resolved.Store(&structs)
	return nil
}

// Frozen reports whether Resolve has succeeded.
func (r *Registry) Frozen() bool {
	return r.resolved.Load() != nil
}

// ByteOrder returns the byte order used by Pack and Unpack.
func (r *Registry) ByteOrder() binary.ByteOrder {
	return r.dec.ByteOrder()
}

func (r *Registry) lookup(phase errors.Phase, name string) (*layout.Struct, error) {
	m := r.resolved.Load()
	if m == nil {
		return nil, errors.NotInitialized(phase, "registry")
	}
	st, ok := (*m)[name]
	if !ok {
		return nil, errors.UnknownStructure(phase, name)
	}
	return st, nil
}

// Size returns the packed byte size of a structure.
func (r *Registry) Size(name string) (int, error) {
	st, err := r.lookup(errors.PhaseLookup, name)
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}

// Lookup returns the resolved layout of a structure. The layout is shared
// and must not be modified.
func (r *Registry) Lookup(name string) (*Layout, error) {
	return r.lookup(errors.PhaseLookup, name)
}

// Names returns the resolved structure names in sorted order, or nil
// before Resolve.
func (r *Registry) Names() []string {
	m := r.resolved.Load()
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(*m))
	for name := range *m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unpack decodes buf as the named structure. Bytes past the structure
// size are ignored.
func (r *Registry) Unpack(buf []byte, name string) (Struct, error) {
	st, err := r.lookup(errors.PhaseUnpack, name)
	if err != nil {
		return nil, err
	}
	return r.dec.Decode(buf, st)
}

// Pack encodes v as the named structure. Missing members are zero and
// unknown members are ignored.
func (r *Registry) Pack(v Struct, name string) ([]byte, error) {
	st, err := r.lookup(errors.PhasePack, name)
	if err != nil {
		return nil, err
	}
	return r.enc.Encode(v, st)
}

// UnpackMemory decodes the named structure stored at addr.
func (r *Registry) UnpackMemory(mem Memory, addr uint32, name string) (Struct, error) {
	st, err := r.lookup(errors.PhaseUnpack, name)
	if err != nil {
		return nil, err
	}
	return r.dec.DecodeFromMemory(mem, addr, st)
}

// PackMemory encodes v as the named structure at addr.
func (r *Registry) PackMemory(mem Memory, addr uint32, v Struct, name string) error {
	st, err := r.lookup(errors.PhasePack, name)
	if err != nil {
		return err
	}
	return r.enc.EncodeToMemory(mem, addr, v, st)
}

// PackAlloc reserves space for the named structure with alloc, encodes v
// there and returns the address.
func (r *Registry) PackAlloc(ctx context.Context, mem Memory, alloc memory.Allocator, v Struct, name string) (uint32, error) {
	st, err := r.lookup(errors.PhasePack, name)
	if err != nil {
		return 0, err
	}
	if alloc == nil {
		return 0, errors.InvalidInput(errors.PhasePack, "nil allocator")
	}

	addr, err := alloc.Alloc(ctx, uint32(st.Size), 1)
	if err != nil {
		return 0, errors.New(errors.PhasePack, errors.KindInvalidData).
			Struct(name).
			Cause(err).
			Detail("allocate %d bytes", st.Size).
			Build()
	}
	if err := r.enc.EncodeToMemory(mem, addr, v, st); err != nil {
		return 0, err
	}
	return addr, nil
}

// Dump writes the layout tree of the named structure.
func (r *Registry) Dump(w io.Writer, name string, opts ...dump.Option) error {
	st, err := r.lookup(errors.PhaseLookup, name)
	if err != nil {
		return err
	}
	return dump.Layout(w, st, opts...)
}
