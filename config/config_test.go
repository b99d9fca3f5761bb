package config

import (
	"encoding/binary"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/zavdimka/cstruct/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	order, _ := cfg.ByteOrder()
	if order != binary.LittleEndian {
		t.Errorf("byte order: got %v", order)
	}
	if lvl, _ := cfg.Logging.ZapLevel(); lvl != zapcore.WarnLevel {
		t.Errorf("level: got %v", lvl)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cstruct.yaml")
	content := `
endian: big
sources:
  - headers
  - /abs/decls.yaml
include_dirs: [include]
logging:
  level: debug
  development: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	order, _ := cfg.ByteOrder()
	if order != binary.BigEndian {
		t.Errorf("byte order: got %v", order)
	}
	wantSources := []string{filepath.Join(dir, "headers"), "/abs/decls.yaml"}
	for i, s := range wantSources {
		if cfg.Sources[i] != s {
			t.Errorf("sources[%d]: got %q, want %q", i, cfg.Sources[i], s)
		}
	}
	if cfg.IncludeDirs[0] != filepath.Join(dir, "include") {
		t.Errorf("include dir: got %q", cfg.IncludeDirs[0])
	}
	if !cfg.Logging.Development {
		t.Error("development flag not loaded")
	}

	logger, err := cfg.Logging.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		kind    errors.Kind
	}{
		{"bad endian", "endian: middle\n", errors.KindInvalidInput},
		{"bad level", "logging:\n  level: loud\n", errors.KindInvalidInput},
		{"bad yaml", "endian: [\n", errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Phase != errors.PhaseConfig || e.Kind != tt.kind {
				t.Errorf("got %s/%s, want config/%s", e.Phase, e.Kind, tt.kind)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}
