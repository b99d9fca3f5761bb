package cstruct

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/zavdimka/cstruct/codec"
)

type options struct {
	order  binary.ByteOrder
	logger *zap.Logger
	err    error
}

// Option configures a Registry.
type Option func(*options)

// WithByteOrder sets the byte order used by Pack and Unpack.
// The default is little-endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.order = order
		}
	}
}

// WithEndian sets the byte order by name ("little" or "big").
// An unknown name makes Ingest and Resolve fail.
func WithEndian(name string) Option {
	return func(o *options) {
		order, err := codec.ParseByteOrder(name)
		if err != nil {
			o.err = err
			return
		}
		o.order = order
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
