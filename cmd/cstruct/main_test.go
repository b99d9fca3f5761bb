package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"go.uber.org/zap"

	"github.com/zavdimka/cstruct/errors"
)

const testHeader = `
typedef struct {
    int x, y;
} Point;

typedef struct {
    unsigned char a : 3;
    unsigned char b : 5;
    Point p;
} Tagged;
`

func setup(t *testing.T) (string, options) {
	t.Helper()
	dir := t.TempDir()
	hdr := filepath.Join(dir, "types.h")
	if err := os.WriteFile(hdr, []byte(testHeader), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, options{sources: stringList{hdr}}
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir, o := setup(t)
	cfgPath := filepath.Join(dir, "cstruct.yaml")
	cfg := "endian: big\nsources: [extra.yaml]\nlogging:\n  level: info\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	o.configFile = cfgPath
	o.endian = "little"
	got, err := loadConfig(o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got.Endian != "little" {
		t.Errorf("endian: got %q, want flag value", got.Endian)
	}
	if got.Logging.Level != "info" {
		t.Errorf("level: got %q", got.Logging.Level)
	}
	want := []string{filepath.Join(dir, "extra.yaml"), o.sources[0]}
	if len(got.Sources) != 2 || got.Sources[0] != want[0] || got.Sources[1] != want[1] {
		t.Errorf("sources: got %v, want %v", got.Sources, want)
	}

	o.endian = "sideways"
	if _, err := loadConfig(o); err == nil {
		t.Error("expected error for invalid endian")
	}
}

func TestList(t *testing.T) {
	_, o := setup(t)
	cfg, err := loadConfig(o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	reg, err := buildRegistry(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	var buf bytes.Buffer
	if err := list(&buf, reg); err != nil {
		t.Fatalf("list: %v", err)
	}
	want := "Point   8 bytes\nTagged  9 bytes\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPackUnpack(t *testing.T) {
	dir, o := setup(t)
	cfg, err := loadConfig(o)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	reg, err := buildRegistry(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	in := filepath.Join(dir, "in.yaml")
	bin := filepath.Join(dir, "out.bin")
	back := filepath.Join(dir, "back.yaml")
	if err := os.WriteFile(in, []byte("a: 5\nb: 1\np: {x: -1, y: 2}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	o.structName = "Tagged"
	o.packFile = in
	o.outFile = bin
	if err := pack(reg, o); err != nil {
		t.Fatalf("pack: %v", err)
	}
	data, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}
	wantBin := []byte{0x0D, 0xFF, 0xFF, 0xFF, 0xFF, 0x02, 0, 0, 0}
	if !bytes.Equal(data, wantBin) {
		t.Fatalf("packed: got % x, want % x", data, wantBin)
	}

	o.outFile = back
	if err := unpack(reg, o, bin); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	out, err := os.ReadFile(back)
	if err != nil {
		t.Fatal(err)
	}
	wantYAML := "a: 5\nb: 1\np:\n  x: -1\n  y: 2\n"
	if string(out) != wantYAML {
		t.Errorf("yaml: got\n%s\nwant\n%s", out, wantYAML)
	}
}

func TestPack_NotAStruct(t *testing.T) {
	dir, o := setup(t)
	cfg, _ := loadConfig(o)
	reg, err := buildRegistry(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	in := filepath.Join(dir, "list.yaml")
	if err := os.WriteFile(in, []byte("[1, 2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o.structName = "Point"
	o.packFile = in
	o.outFile = filepath.Join(dir, "x.bin")
	if err := pack(reg, o); err == nil {
		t.Error("expected type mismatch for a sequence document")
	}
}

func TestListTypes(t *testing.T) {
	var buf bytes.Buffer
	if err := listTypes(&buf); err != nil {
		t.Fatalf("listTypes: %v", err)
	}

	rows := map[string][]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		f := strings.Fields(line)
		rows[f[0]] = f[1:]
	}
	for name, want := range map[string][]string{
		"uint32_t": {"4", "u32"},
		"int8_t":   {"1", "s8"},
		"double":   {"8", "f64"},
	} {
		if diff := pretty.Compare(want, rows[name]); diff != "" {
			t.Errorf("%s -want +got:\n%s", name, diff)
		}
	}
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestFinishOutput(t *testing.T) {
	closeErr := stderrors.New("disk full")
	writeErr := stderrors.New("short write")

	tests := []struct {
		name     string
		closeErr error
		writeErr error
		want     error
	}{
		{"ok", nil, nil, nil},
		{"close fails", closeErr, nil, closeErr},
		{"write fails first", closeErr, writeErr, writeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := finishOutput(failingCloser{tt.closeErr}, "out.bin", tt.writeErr)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !stderrors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteOutput_CreateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.bin")
	err := writeOutput(path, func(io.Writer) error { return nil })
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseLoad {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestInteractiveGuard(t *testing.T) {
	err := interactiveGuard(false)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidInput {
		t.Errorf("expected invalid_input without a terminal, got %v", err)
	}
	if err := interactiveGuard(true); err != nil {
		t.Errorf("terminal rejected: %v", err)
	}
}
