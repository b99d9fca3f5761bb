// Package dump prints resolved layouts and decoded values as indented trees.
package dump

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/internal/layout"
)

type styles struct {
	title  lipgloss.Style
	name   lipgloss.Style
	typ    lipgloss.Style
	offset lipgloss.Style
	size   lipgloss.Style
	number lipgloss.Style
	tree   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		name:   r.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		typ:    r.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		offset: r.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		size:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
		number: r.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		tree:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, name: s, typ: s, offset: s, size: s, number: s, tree: s}
}

type options struct {
	plain    bool
	renderer *lipgloss.Renderer
}

// Option configures output.
type Option func(*options)

// Plain disables styling.
func Plain() Option {
	return func(o *options) {
		o.plain = true
	}
}

// WithRenderer styles output for r instead of a renderer bound to the
// destination writer.
func WithRenderer(r *lipgloss.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

func buildStyles(opts []Option) styles {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.plain {
		return plainStyles()
	}
	if o.renderer == nil {
		o.renderer = lipgloss.DefaultRenderer()
	}
	return newStyles(o.renderer)
}

// row is one printed field of a layout tree.
type row struct {
	prefix string
	name   string
	typ    string
	offset string
	size   string
}

// Layout writes the field tree of st: name, type, byte offset and size, with
// bit positions for bit-fields. Fields of nested structures are listed
// under their parent with offsets relative to one element.
func Layout(w io.Writer, st *layout.Struct, opts ...Option) error {
	_, err := io.WriteString(w, LayoutString(st, append([]Option{WithWriter(w)}, opts...)...))
	return err
}

// WithWriter styles output for the terminal behind w. Layout and Value
// apply it for their destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if o.renderer == nil && w != nil {
			o.renderer = lipgloss.NewRenderer(w)
		}
	}
}

// LayoutString renders st as Layout would.
func LayoutString(st *layout.Struct, opts ...Option) string {
	s := buildStyles(opts)

	var rows []row
	collectRows(&rows, st, "")

	nameW, typeW, offW := 0, 0, 0
	for _, r := range rows {
		nameW = max(nameW, len([]rune(r.prefix))+len(r.name))
		typeW = max(typeW, len(r.typ))
		offW = max(offW, len(r.offset))
	}

	var b strings.Builder
	b.WriteString(s.title.Render(st.Name))
	b.WriteString(s.size.Render(" (" + strconv.Itoa(st.Size) + " bytes)"))
	b.WriteByte('\n')

	for _, r := range rows {
		pad := nameW - len([]rune(r.prefix)) - len(r.name)
		b.WriteString(s.tree.Render(r.prefix))
		b.WriteString(s.name.Render(r.name))
		b.WriteString(strings.Repeat(" ", pad+2))
		b.WriteString(s.typ.Render(r.typ))
		b.WriteString(strings.Repeat(" ", typeW-len(r.typ)+2))
		b.WriteString(s.offset.Render(r.offset))
		b.WriteString(strings.Repeat(" ", offW-len(r.offset)+2))
		b.WriteString(s.size.Render(r.size))
		b.WriteByte('\n')
	}
	return b.String()
}

func collectRows(rows *[]row, st *layout.Struct, indent string) {
	for i := range st.Fields {
		f := &st.Fields[i]
		last := i == len(st.Fields)-1

		branch, child := "├─ ", "│  "
		if last {
			branch, child = "└─ ", "   "
		}

		typ := f.Type
		if f.IsArray() {
			typ += "[" + strconv.Itoa(f.ArrayLen) + "]"
		}

		r := row{
			prefix: indent + branch,
			name:   f.Name,
			typ:    typ,
			offset: "@" + strconv.Itoa(f.Offset),
			size:   strconv.Itoa(f.Size),
		}
		if f.IsBitField() {
			r.offset += "." + strconv.Itoa(f.BitOffset)
			r.size = strconv.Itoa(f.BitWidth) + " bits"
		}
		*rows = append(*rows, r)

		if f.IsStruct() {
			collectRows(rows, f.Struct, indent+child)
		}
	}
}

// Value writes a decoded value as an indented tree.
func Value(w io.Writer, v codec.Value, opts ...Option) error {
	_, err := io.WriteString(w, ValueString(v, append([]Option{WithWriter(w)}, opts...)...))
	return err
}

// ValueString renders v as Value would.
func ValueString(v codec.Value, opts ...Option) string {
	s := buildStyles(opts)
	var b strings.Builder
	writeValue(&b, s, v, 0)
	return b.String()
}

func writeValue(b *strings.Builder, s styles, v codec.Value, depth int) {
	indent := strings.Repeat("  ", depth)

	switch v := v.(type) {
	case codec.Struct:
		for _, m := range v {
			b.WriteString(indent)
			b.WriteString(s.name.Render(m.Name))
			b.WriteByte(':')
			switch mv := m.Value.(type) {
			case codec.Struct:
				b.WriteByte('\n')
				writeValue(b, s, mv, depth+1)
			case codec.Sequence:
				if scalars(mv) {
					b.WriteByte(' ')
					writeInline(b, s, mv)
					b.WriteByte('\n')
				} else {
					b.WriteByte('\n')
					writeValue(b, s, mv, depth+1)
				}
			default:
				b.WriteByte(' ')
				b.WriteString(s.number.Render(Scalar(mv)))
				b.WriteByte('\n')
			}
		}

	case codec.Sequence:
		for i, e := range v {
			b.WriteString(indent)
			b.WriteString(s.tree.Render("[" + strconv.Itoa(i) + "]"))
			if _, ok := e.(codec.Struct); ok {
				b.WriteByte('\n')
				writeValue(b, s, e, depth+1)
				continue
			}
			b.WriteByte(' ')
			if seq, ok := e.(codec.Sequence); ok {
				writeInline(b, s, seq)
			} else {
				b.WriteString(s.number.Render(Scalar(e)))
			}
			b.WriteByte('\n')
		}

	default:
		b.WriteString(indent)
		b.WriteString(s.number.Render(Scalar(v)))
		b.WriteByte('\n')
	}
}

func writeInline(b *strings.Builder, s styles, seq codec.Sequence) {
	b.WriteByte('[')
	for i, e := range seq {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.number.Render(Scalar(e)))
	}
	b.WriteByte(']')
}

func scalars(seq codec.Sequence) bool {
	for _, e := range seq {
		switch e.(type) {
		case codec.Struct, codec.Sequence:
			return false
		}
	}
	return true
}

// Scalar formats an Int, Uint or Float.
func Scalar(v codec.Value) string {
	switch v := v.(type) {
	case codec.Int:
		return strconv.FormatInt(int64(v), 10)
	case codec.Uint:
		return strconv.FormatUint(uint64(v), 10)
	case codec.Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case nil:
		return "<nil>"
	default:
		return codec.TypeName(v)
	}
}
