package cstruct

import (
	"bytes"
	"context"
	"encoding/binary"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zavdimka/cstruct/dump"
	"github.com/zavdimka/cstruct/errors"
)

var (
	pointDecl = StructDecl{Name: "Point", Fields: []FieldDecl{
		{Name: "x", Type: "int"},
		{Name: "y", Type: "int"},
	}}
	flagsDecl = StructDecl{Name: "Flags", Fields: []FieldDecl{
		{Name: "a", Type: "unsigned int", BitWidth: 3},
		{Name: "b", Type: "unsigned int", BitWidth: 2},
		{Name: "c", Type: "unsigned int", BitWidth: 1},
		{Name: "d", Type: "unsigned int"},
	}}
	pathDecl = StructDecl{Name: "Path", Fields: []FieldDecl{
		{Name: "n", Type: "uint8_t"},
		{Name: "pts", Type: "Point", ArrayLen: 4},
	}}
)

func resolved(t *testing.T, opts []Option, decls ...StructDecl) *Registry {
	t.Helper()
	r := New(opts...)
	if err := r.Ingest(decls...); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := r.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return r
}

func TestRegistry_Point(t *testing.T) {
	r := resolved(t, nil, pointDecl)

	buf, err := r.Pack(Struct{{Name: "x", Value: Int(1)}, {Name: "y", Value: Int(2)}}, "Point")
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("Pack: got % x, want % x", buf, want)
	}

	v, err := r.Unpack(buf, "Point")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if diff := pretty.Compare(Struct{{Name: "x", Value: Int(1)}, {Name: "y", Value: Int(2)}}, v); diff != "" {
		t.Errorf("Unpack -want +got:\n%s", diff)
	}
}

func TestRegistry_Flags(t *testing.T) {
	r := resolved(t, nil, flagsDecl)

	size, err := r.Size("Flags")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 8 {
		t.Errorf("Size: got %d, want 8", size)
	}

	in := Struct{
		{Name: "a", Value: Uint(5)},
		{Name: "b", Value: Uint(3)},
		{Name: "c", Value: Uint(0)},
		{Name: "d", Value: Uint(7)},
	}
	buf, err := r.Pack(in, "Flags")
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	want := []byte{0x1D, 0, 0, 0, 7, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("Pack: got % x, want % x", buf, want)
	}

	out, err := r.Unpack(buf, "Flags")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if diff := pretty.Compare(in, out); diff != "" {
		t.Errorf("round trip -want +got:\n%s", diff)
	}
}

func TestRegistry_ByteOrder(t *testing.T) {
	decl := StructDecl{Name: "U", Fields: []FieldDecl{{Name: "v", Type: "uint32_t"}}}
	tests := []struct {
		name string
		opts []Option
		want []byte
	}{
		{"default", nil, []byte{1, 0, 0, 0}},
		{"little", []Option{WithEndian("little")}, []byte{1, 0, 0, 0}},
		{"big", []Option{WithEndian("big")}, []byte{0, 0, 0, 1}},
		{"byte order", []Option{WithByteOrder(binary.BigEndian)}, []byte{0, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolved(t, tt.opts, decl)
			buf, err := r.Pack(Struct{{Name: "v", Value: Uint(1)}}, "U")
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if !bytes.Equal(buf, tt.want) {
				t.Errorf("got % x, want % x", buf, tt.want)
			}
		})
	}
}

func TestRegistry_InvalidEndian(t *testing.T) {
	r := New(WithEndian("middle"))
	err := r.Ingest(pointDecl)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
		t.Fatalf("Ingest: expected config error, got %v", err)
	}
	if err := r.Resolve(); err == nil {
		t.Error("Resolve: expected error")
	}
}

func TestRegistry_ArrayClamp(t *testing.T) {
	r := resolved(t, nil, pointDecl, pathDecl)

	pts := func(n int) Sequence {
		s := make(Sequence, n)
		for i := range s {
			s[i] = Struct{{Name: "x", Value: Int(i + 1)}, {Name: "y", Value: Int(-(i + 1))}}
		}
		return s
	}

	short, err := r.Pack(Struct{{Name: "pts", Value: pts(2)}}, "Path")
	if err != nil {
		t.Fatalf("Pack short: %v", err)
	}
	if len(short) != 33 {
		t.Fatalf("len: got %d, want 33", len(short))
	}
	if !bytes.Equal(short[17:], make([]byte, 16)) {
		t.Errorf("missing elements not zero: % x", short[17:])
	}

	long, err := r.Pack(Struct{{Name: "pts", Value: pts(6)}}, "Path")
	if err != nil {
		t.Fatalf("Pack long: %v", err)
	}
	v, err := r.Unpack(long, "Path")
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	got, _ := v.Get("pts")
	if diff := pretty.Compare(pts(4), got); diff != "" {
		t.Errorf("truncated -want +got:\n%s", diff)
	}
}

func TestRegistry_NotInitialized(t *testing.T) {
	r := New()
	if err := r.Ingest(pointDecl); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	calls := map[string]func() error{
		"size":   func() error { _, err := r.Size("Point"); return err },
		"lookup": func() error { _, err := r.Lookup("Point"); return err },
		"pack":   func() error { _, err := r.Pack(Struct{}, "Point"); return err },
		"unpack": func() error { _, err := r.Unpack(make([]byte, 8), "Point"); return err },
		"unpack memory": func() error {
			_, err := r.UnpackMemory(NewBytes(make([]byte, 8)), 0, "Point")
			return err
		},
		"pack memory": func() error { return r.PackMemory(NewBytes(nil), 0, Struct{}, "Point") },
		"dump":        func() error { return r.Dump(&bytes.Buffer{}, "Point") },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !stderrors.Is(err, errors.ErrNotInitialized) {
				t.Errorf("expected not_initialized, got %v", err)
			}
		})
	}
	if r.Frozen() {
		t.Error("Frozen before Resolve")
	}
	if r.Names() != nil {
		t.Error("Names before Resolve should be nil")
	}
}

func TestRegistry_UnknownStructure(t *testing.T) {
	r := resolved(t, nil, pointDecl)

	_, err := r.Unpack(make([]byte, 64), "Nope")
	if !stderrors.Is(err, errors.ErrUnknownStructure) {
		t.Fatalf("expected unknown_structure, got %v", err)
	}
	var e *errors.Error
	stderrors.As(err, &e)
	if e.Phase != errors.PhaseUnpack || e.Struct != "Nope" {
		t.Errorf("got phase %s struct %q", e.Phase, e.Struct)
	}

	if _, err := r.Pack(Struct{}, "Nope"); !stderrors.Is(err, errors.ErrUnknownStructure) {
		t.Errorf("Pack: expected unknown_structure, got %v", err)
	}
	if _, err := r.Size("Nope"); !stderrors.Is(err, errors.ErrUnknownStructure) {
		t.Errorf("Size: expected unknown_structure, got %v", err)
	}
}

func TestRegistry_Truncated(t *testing.T) {
	r := resolved(t, nil, pointDecl)

	_, err := r.Unpack([]byte{1, 0, 0, 0, 2, 0}, "Point")
	if !stderrors.Is(err, errors.ErrTruncatedBuffer) {
		t.Fatalf("expected truncated_buffer, got %v", err)
	}
	var e *errors.Error
	stderrors.As(err, &e)
	if e.Offset != 4 || e.Need != 4 {
		t.Errorf("offset/need: got %d/%d, want 4/4", e.Offset, e.Need)
	}
}

func TestRegistry_Frozen(t *testing.T) {
	r := resolved(t, nil, pointDecl)
	if !r.Frozen() {
		t.Fatal("expected frozen registry")
	}

	err := r.Ingest(flagsDecl)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindFrozen {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if _, err := r.Size("Flags"); err == nil {
		t.Error("declaration ingested after Resolve was published")
	}
}

func TestRegistry_ResolveIdempotent(t *testing.T) {
	r := resolved(t, nil, pointDecl)
	first, _ := r.Lookup("Point")

	if err := r.Resolve(); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	second, _ := r.Lookup("Point")
	if first != second {
		t.Error("second Resolve replaced published layouts")
	}
}

func TestRegistry_ResolveAtomic(t *testing.T) {
	r := New()
	bad := StructDecl{Name: "Bad", Fields: []FieldDecl{{Name: "m", Type: "Missing"}}}
	if err := r.Ingest(pointDecl, bad); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	err := r.Resolve()
	if !stderrors.Is(err, errors.ErrUnknownType) {
		t.Fatalf("expected unknown_type, got %v", err)
	}
	if r.Frozen() {
		t.Fatal("failed Resolve froze the registry")
	}
	if _, err := r.Size("Point"); !stderrors.Is(err, errors.ErrNotInitialized) {
		t.Errorf("partial results published: %v", err)
	}

	// ingestion continues after a failure
	missing := StructDecl{Name: "Missing", Fields: []FieldDecl{{Name: "v", Type: "uint16_t"}}}
	if err := r.Ingest(missing); err != nil {
		t.Fatalf("Ingest after failure: %v", err)
	}
	if err := r.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := pretty.Compare([]string{"Bad", "Missing", "Point"}, r.Names()); diff != "" {
		t.Errorf("Names -want +got:\n%s", diff)
	}
}

func TestRegistry_Cycles(t *testing.T) {
	tests := []struct {
		name    string
		decls   []StructDecl
		wantErr bool
	}{
		{
			name: "self reference",
			decls: []StructDecl{
				{Name: "A", Fields: []FieldDecl{{Name: "a", Type: "A"}}},
			},
			wantErr: true,
		},
		{
			name: "mutual",
			decls: []StructDecl{
				{Name: "A", Fields: []FieldDecl{{Name: "b", Type: "B"}}},
				{Name: "B", Fields: []FieldDecl{{Name: "a", Type: "A", ArrayLen: 2}}},
			},
			wantErr: true,
		},
		{
			name: "shared sibling",
			decls: []StructDecl{
				{Name: "B", Fields: []FieldDecl{{Name: "v", Type: "uint8_t"}}},
				{Name: "A", Fields: []FieldDecl{{Name: "b1", Type: "B"}, {Name: "b2", Type: "B"}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			if err := r.Ingest(tt.decls...); err != nil {
				t.Fatalf("Ingest: %v", err)
			}
			err := r.Resolve()
			if tt.wantErr {
				if !stderrors.Is(err, errors.ErrCircularDependency) {
					t.Errorf("expected circular_dependency, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if size, _ := r.Size("A"); size != 2 {
				t.Errorf("A size: got %d, want 2", size)
			}
		})
	}
}

func TestRegistry_Redeclare(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(WithLogger(zap.New(core)))

	wide := StructDecl{Name: "Point", Fields: []FieldDecl{
		{Name: "x", Type: "int64_t"},
		{Name: "y", Type: "int64_t"},
	}}
	if err := r.Ingest(pointDecl, flagsDecl); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := r.Ingest(wide); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := r.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if size, _ := r.Size("Point"); size != 16 {
		t.Errorf("Point size: got %d, want 16", size)
	}
	if got := logs.FilterField(zap.String("struct", "Point")).Len(); got != 1 {
		t.Errorf("redeclaration warnings: got %d, want 1", got)
	}
}

func TestRegistry_IngestCopiesFields(t *testing.T) {
	decl := StructDecl{Name: "S", Fields: []FieldDecl{{Name: "v", Type: "uint8_t"}}}
	r := New()
	if err := r.Ingest(decl); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	decl.Fields[0].Type = "uint64_t"
	if err := r.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if size, _ := r.Size("S"); size != 1 {
		t.Errorf("caller mutation leaked into registry: size %d", size)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := resolved(t, nil, pointDecl, pathDecl, flagsDecl)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := Struct{{Name: "x", Value: Int(i)}, {Name: "y", Value: Int(-i)}}
			buf, err := r.Pack(in, "Point")
			if err != nil {
				errs <- err
				return
			}
			out, err := r.Unpack(buf, "Point")
			if err != nil {
				errs <- err
				return
			}
			if diff := pretty.Compare(in, out); diff != "" {
				errs <- stderrors.New(diff)
			}
			_ = r.Names()
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type bumpAllocator struct {
	next uint32
	err  error
}

func (a *bumpAllocator) Alloc(_ context.Context, size, _ uint32) (uint32, error) {
	if a.err != nil {
		return 0, a.err
	}
	ptr := a.next
	a.next += size
	return ptr, nil
}

func TestRegistry_Memory(t *testing.T) {
	r := resolved(t, nil, pointDecl)
	mem := NewBytes(nil)
	alloc := &bumpAllocator{next: 16}
	ctx := context.Background()

	addr, err := r.PackAlloc(ctx, mem, alloc, Struct{{Name: "x", Value: Int(7)}}, "Point")
	if err != nil {
		t.Fatalf("PackAlloc: %v", err)
	}
	if addr != 16 {
		t.Errorf("addr: got %d, want 16", addr)
	}
	if err := r.PackMemory(mem, 24, Struct{{Name: "y", Value: Int(9)}}, "Point"); err != nil {
		t.Fatalf("PackMemory: %v", err)
	}

	for _, tc := range []struct {
		addr uint32
		want Struct
	}{
		{16, Struct{{Name: "x", Value: Int(7)}, {Name: "y", Value: Int(0)}}},
		{24, Struct{{Name: "x", Value: Int(0)}, {Name: "y", Value: Int(9)}}},
	} {
		got, err := r.UnpackMemory(mem, tc.addr, "Point")
		if err != nil {
			t.Fatalf("UnpackMemory(%d): %v", tc.addr, err)
		}
		if diff := pretty.Compare(tc.want, got); diff != "" {
			t.Errorf("UnpackMemory(%d) -want +got:\n%s", tc.addr, diff)
		}
	}

	if _, err := r.UnpackMemory(mem, 28, "Point"); !stderrors.Is(err, errors.ErrTruncatedBuffer) {
		t.Errorf("read past end: expected truncated_buffer, got %v", err)
	}

	failing := &bumpAllocator{err: stderrors.New("out of memory")}
	if _, err := r.PackAlloc(ctx, mem, failing, Struct{}, "Point"); err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("allocator failure not reported: %v", err)
	}
	if _, err := r.PackAlloc(ctx, mem, nil, Struct{}, "Point"); err == nil {
		t.Error("nil allocator accepted")
	}
}

func TestRegistry_Dump(t *testing.T) {
	r := resolved(t, nil, pointDecl)
	var buf bytes.Buffer
	if err := r.Dump(&buf, "Point", dump.Plain()); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	want := "Point (8 bytes)\n├─ x  int  @0  4\n└─ y  int  @4  4\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}
