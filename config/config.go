// Package config loads cstruct settings from YAML.
package config

import (
	"encoding/binary"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/errors"
)

// Config represents the cstruct configuration
type Config struct {
	// Endian is "little" or "big".
	Endian string `yaml:"endian"`
	// Sources are header files, header directories and YAML declaration
	// files, loaded in order.
	Sources     []string `yaml:"sources"`
	IncludeDirs []string `yaml:"include_dirs"`
	Logging     Logging  `yaml:"logging"`
}

// Logging contains logging configuration
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Endian: "little",
		Logging: Logging{
			Level: "warn",
		},
	}
}

// Load reads path over the defaults. Relative sources and include
// directories are taken relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("read config %s", path).
			Cause(pkgerrors.WithStack(err)).
			Build()
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("parse config %s", path).
			Cause(pkgerrors.WithStack(err)).
			Build()
	}

	base := filepath.Dir(path)
	cfg.Sources = relativeTo(base, cfg.Sources)
	cfg.IncludeDirs = relativeTo(base, cfg.IncludeDirs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func relativeTo(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

// Validate checks the byte order and log level.
func (c *Config) Validate() error {
	if _, err := c.ByteOrder(); err != nil {
		return err
	}
	if _, err := c.Logging.ZapLevel(); err != nil {
		return err
	}
	return nil
}

// ByteOrder returns the configured byte order.
func (c *Config) ByteOrder() (binary.ByteOrder, error) {
	return codec.ParseByteOrder(c.Endian)
}

// ZapLevel parses the configured level. An empty level means warn.
func (l Logging) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return lvl, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(l.Level).
			Detail("unknown log level %q", l.Level).
			Build()
	}
	return lvl, nil
}

// Build creates a zap logger writing to stderr.
func (l Logging) Build() (*zap.Logger, error) {
	lvl, err := l.ZapLevel()
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("build logger").
			Cause(err).
			Build()
	}
	return logger, nil
}
