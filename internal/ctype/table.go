package ctype

import (
	"sort"
	"strings"
)

// Primitive is one entry of the type table.
type Primitive struct {
	Name string
	Kind Kind
	Size int
}

var table = map[string]Primitive{}

func register(kind Kind, names ...string) {
	for _, n := range names {
		table[n] = Primitive{Name: n, Kind: kind, Size: kind.Size()}
	}
}

func init() {
	// standard C types
	register(KindS8, "char", "signed char")
	register(KindU8, "unsigned char", "_Bool", "bool")
	register(KindS16, "short", "short int", "signed short", "signed short int")
	register(KindU16, "unsigned short", "unsigned short int")
	register(KindS32, "int", "signed", "signed int",
		"long", "long int", "signed long", "signed long int")
	register(KindU32, "unsigned", "unsigned int", "unsigned long", "unsigned long int")
	register(KindS64, "long long", "long long int", "signed long long", "signed long long int")
	register(KindU64, "unsigned long long", "unsigned long long int")
	register(KindF32, "float")
	register(KindF64, "double", "long double")

	// stdint.h
	register(KindS8, "int8_t", "int_least8_t", "int_fast8_t")
	register(KindU8, "uint8_t", "uint_least8_t", "uint_fast8_t")
	register(KindS16, "int16_t", "int_least16_t", "int_fast16_t")
	register(KindU16, "uint16_t", "uint_least16_t", "uint_fast16_t")
	register(KindS32, "int32_t", "int_least32_t", "int_fast32_t")
	register(KindU32, "uint32_t", "uint_least32_t", "uint_fast32_t")
	register(KindS64, "int64_t", "int_least64_t", "int_fast64_t", "intptr_t", "intmax_t", "ssize_t")
	register(KindU64, "uint64_t", "uint_least64_t", "uint_fast64_t", "uintptr_t", "uintmax_t", "size_t")
}

// Normalize collapses runs of whitespace inside a type name.
func Normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Lookup returns the primitive registered under name.
func Lookup(name string) (Primitive, bool) {
	p, ok := table[name]
	if !ok {
		p, ok = table[Normalize(name)]
	}
	return p, ok
}

// IsPrimitive reports whether name is a primitive type name.
func IsPrimitive(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// IsKeyword reports whether word can appear inside a multi-word primitive
// name such as "unsigned long long int".
func IsKeyword(word string) bool {
	switch word {
	case "signed", "unsigned", "char", "short", "int", "long", "float", "double":
		return true
	default:
		return false
	}
}

// Names returns every registered primitive name, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
