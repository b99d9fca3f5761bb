package dump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/internal/layout"
)

func resolve(t *testing.T, name string, decls ...layout.StructDecl) *layout.Struct {
	t.Helper()
	structs, err := layout.Resolve(decls)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return structs[name]
}

func TestLayout_BitFields(t *testing.T) {
	st := resolve(t, "Flags", layout.StructDecl{Name: "Flags", Fields: []layout.FieldDecl{
		{Name: "a", Type: "unsigned int", BitWidth: 3},
		{Name: "b", Type: "unsigned int", BitWidth: 2},
		{Name: "c", Type: "unsigned int", BitWidth: 3},
	}})

	var buf bytes.Buffer
	if err := Layout(&buf, st, Plain()); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	want := "" +
		"Flags (4 bytes)\n" +
		"├─ a  unsigned int  @0.0  3 bits\n" +
		"├─ b  unsigned int  @0.3  2 bits\n" +
		"└─ c  unsigned int  @0.5  3 bits\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestLayout_Nested(t *testing.T) {
	st := resolve(t, "Outer",
		layout.StructDecl{Name: "Vec", Fields: []layout.FieldDecl{
			{Name: "x", Type: "short"},
			{Name: "y", Type: "short"},
		}},
		layout.StructDecl{Name: "Outer", Fields: []layout.FieldDecl{
			{Name: "id", Type: "uint8_t"},
			{Name: "pts", Type: "Vec", ArrayLen: 2},
		}},
	)

	got := LayoutString(st, Plain())
	want := "" +
		"Outer (9 bytes)\n" +
		"├─ id    uint8_t  @0  1\n" +
		"└─ pts   Vec[2]   @1  8\n" +
		"   ├─ x  short    @0  2\n" +
		"   └─ y  short    @2  2\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestValue(t *testing.T) {
	v := codec.Struct{
		{Name: "id", Value: codec.Uint(7)},
		{Name: "temp", Value: codec.Sequence{codec.Float(1.5), codec.Float(-2)}},
		{Name: "pos", Value: codec.Struct{
			{Name: "x", Value: codec.Int(-1)},
		}},
		{Name: "hist", Value: codec.Sequence{
			codec.Struct{{Name: "x", Value: codec.Int(1)}},
			codec.Struct{{Name: "x", Value: codec.Int(2)}},
		}},
	}

	var buf bytes.Buffer
	if err := Value(&buf, v, Plain()); err != nil {
		t.Fatalf("Value: %v", err)
	}
	want := "" +
		"id: 7\n" +
		"temp: [1.5, -2]\n" +
		"pos:\n" +
		"  x: -1\n" +
		"hist:\n" +
		"  [0]\n" +
		"    x: 1\n" +
		"  [1]\n" +
		"    x: 2\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestValue_Styled(t *testing.T) {
	got := ValueString(codec.Struct{{Name: "answer", Value: codec.Int(42)}})
	if !strings.Contains(got, "answer") || !strings.Contains(got, "42") {
		t.Errorf("styled output lost content: %q", got)
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		v    codec.Value
		want string
	}{
		{codec.Int(-3), "-3"},
		{codec.Uint(18446744073709551615), "18446744073709551615"},
		{codec.Float(0.25), "0.25"},
		{nil, "<nil>"},
		{codec.Sequence{}, "sequence"},
	}
	for _, tt := range tests {
		if got := Scalar(tt.v); got != tt.want {
			t.Errorf("Scalar(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
