package layout

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/ctype"
)

// maxSize keeps every structure addressable with uint32 offsets.
const maxSize = math.MaxInt32

// Field is a resolved field.
type Field struct {
	FieldDecl
	// Struct is the shared layout of a nested structure; nil for primitives.
	Struct *Struct
	Prim   ctype.Primitive
	// Size is the byte size after array multiplication. For bit-fields it is
	// the width of the field's own primitive.
	Size int
	// Offset is the byte offset inside the parent structure. Bit-fields
	// report the offset of their storage unit.
	Offset int
	// BitOffset is the bit position inside the storage unit.
	BitOffset int
	// UnitSize is the byte width of the storage unit holding a bit-field.
	UnitSize int
	// UnitEnd is set on the last bit-field of a storage unit.
	UnitEnd bool
}

func (f *Field) IsStruct() bool {
	return f.Struct != nil
}

// Count returns the number of elements, 1 for scalars.
func (f *Field) Count() int {
	if f.ArrayLen > 0 {
		return f.ArrayLen
	}
	return 1
}

// ElemSize returns the size of one element.
func (f *Field) ElemSize() int {
	if f.Struct != nil {
		return f.Struct.Size
	}
	return f.Prim.Size
}

// Struct is a resolved structure. It is immutable once returned by Resolve
// and may be shared by any number of parent fields.
type Struct struct {
	Name   string
	Fields []Field
	Size   int
}

// Field returns the field with the given name.
func (s *Struct) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// Resolver turns declarations into resolved structures.
type Resolver struct {
	decls  map[string]*StructDecl
	order  []string
	done   map[string]*Struct
	logger *zap.Logger
}

// NewResolver creates a resolver over decls. A later declaration with the
// same name replaces an earlier one.
func NewResolver(decls []StructDecl, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = Logger()
	}
	r := &Resolver{
		decls:  make(map[string]*StructDecl, len(decls)),
		done:   make(map[string]*Struct, len(decls)),
		logger: logger,
	}
	for i := range decls {
		if _, ok := r.decls[decls[i].Name]; !ok {
			r.order = append(r.order, decls[i].Name)
		}
		r.decls[decls[i].Name] = &decls[i]
	}
	return r
}

// Resolve resolves every declared structure. On error nothing is returned.
func Resolve(decls []StructDecl) (map[string]*Struct, error) {
	return NewResolver(decls, nil).Resolve()
}

// Resolve resolves every declaration in declaration order.
func (r *Resolver) Resolve() (map[string]*Struct, error) {
	for _, name := range r.order {
		if name == "" {
			return nil, errors.InvalidDeclaration("", nil, "structure name is empty")
		}
		if _, err := r.resolveStruct(name, nil); err != nil {
			return nil, err
		}
	}

	total := 0
	for _, st := range r.done {
		total += st.Size
	}
	r.logger.Debug("resolved structures",
		zap.Int("count", len(r.done)),
		zap.Int("total_bytes", total))

	return r.done, nil
}

// storage unit being filled by consecutive bit-fields
type unit struct {
	open   bool
	offset int
	size   int
	used   int
}

// close returns the bytes the unit contributes to the running total.
func (u *unit) close() int {
	if !u.open {
		return 0
	}
	u.open = false
	return u.size
}

// resolveStruct resolves one structure. chain holds the structures being
// resolved on this branch only; it is copied before being extended so that
// sibling fields never see each other's entries.
func (r *Resolver) resolveStruct(name string, chain []string) (*Struct, error) {
	if st, ok := r.done[name]; ok {
		return st, nil
	}
	if slices.Contains(chain, name) {
		return nil, errors.CircularDependency(name, append(slices.Clone(chain), name))
	}

	decl := r.decls[name]
	chain = append(slices.Clip(chain), name)

	st := &Struct{
		Name:   name,
		Fields: make([]Field, 0, len(decl.Fields)),
	}
	seen := make(map[string]struct{}, len(decl.Fields))

	var u unit
	total := 0

	for _, fd := range decl.Fields {
		path := []string{fd.Name}

		if err := r.validateField(name, fd, seen); err != nil {
			return nil, err
		}

		f := Field{FieldDecl: fd}
		if p, ok := ctype.Lookup(fd.Type); ok {
			f.Prim = p
		} else {
			if _, declared := r.decls[fd.Type]; !declared {
				return nil, errors.UnknownType(name, path, fd.Type)
			}
			if fd.IsBitField() {
				return nil, errors.UnsupportedBitField(name, path, fd.Type)
			}
			sub, err := r.resolveStruct(fd.Type, chain)
			if err != nil {
				return nil, err
			}
			f.Struct = sub
		}

		if fd.IsBitField() {
			if !f.Prim.Kind.IsInteger() {
				return nil, errors.UnsupportedBitField(name, path, fd.Type)
			}
			if fd.BitWidth > f.Prim.Size*8 {
				return nil, errors.InvalidDeclaration(name, path,
					"bit-field width exceeds its type")
			}

			if !u.open || u.used+fd.BitWidth > u.size*8 {
				total += u.close()
				u = unit{open: true, offset: total, size: f.Prim.Size}
			}
			f.BitOffset = u.used
			f.Offset = u.offset
			f.UnitSize = u.size
			f.Size = f.Prim.Size
			u.used += fd.BitWidth
		} else {
			total += u.close()

			elem := f.ElemSize()
			if elem > 0 && f.Count() > maxSize/elem {
				return nil, errors.InvalidDeclaration(name, path, "field size overflows")
			}
			f.Offset = total
			f.Size = elem * f.Count()
			total += f.Size
		}

		if total > maxSize {
			return nil, errors.InvalidDeclaration(name, path, "structure size overflows")
		}

		st.Fields = append(st.Fields, f)
	}
	total += u.close()

	markUnitEnds(st.Fields)
	st.Size = total
	r.done[name] = st

	r.logger.Debug("resolved structure",
		zap.String("name", name),
		zap.Int("size", st.Size),
		zap.Int("fields", len(st.Fields)))

	return st, nil
}

func (r *Resolver) validateField(structName string, fd FieldDecl, seen map[string]struct{}) error {
	path := []string{fd.Name}
	if fd.Name == "" {
		return errors.InvalidDeclaration(structName, nil, "field name is empty")
	}
	if _, dup := seen[fd.Name]; dup {
		return errors.InvalidDeclaration(structName, path, "duplicate field name")
	}
	seen[fd.Name] = struct{}{}

	if fd.Type == "" {
		return errors.InvalidDeclaration(structName, path, "field type is empty")
	}
	if fd.ArrayLen < 0 {
		return errors.InvalidDeclaration(structName, path, "negative array length")
	}
	if fd.BitWidth < 0 {
		return errors.InvalidDeclaration(structName, path, "negative bit width")
	}
	if fd.ArrayLen > 0 && fd.BitWidth > 0 {
		return errors.InvalidDeclaration(structName, path, "bit-field cannot be an array")
	}
	return nil
}

// markUnitEnds flags the last bit-field of every storage unit: the last
// field overall, or one followed by a non-bit-field or by a field opening a
// new unit.
func markUnitEnds(fields []Field) {
	for i := range fields {
		if !fields[i].IsBitField() {
			continue
		}
		last := i == len(fields)-1
		fields[i].UnitEnd = last ||
			!fields[i+1].IsBitField() ||
			fields[i+1].BitOffset == 0
	}
}
