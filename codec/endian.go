package codec

import (
	"encoding/binary"
	"strings"

	"github.com/zavdimka/cstruct/errors"
)

// ParseByteOrder maps "little"/"le" and "big"/"be" to a byte order. An empty
// name means little-endian.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "little", "le", "<":
		return binary.LittleEndian, nil
	case "big", "be", ">", "network":
		return binary.BigEndian, nil
	}
	return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(name).
		Detail("unknown byte order %q", name).
		Build()
}

// ByteOrderName returns "little" or "big".
func ByteOrderName(order binary.ByteOrder) string {
	if order == binary.BigEndian {
		return "big"
	}
	return "little"
}
