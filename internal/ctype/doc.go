// Package ctype defines the primitive C types understood by the resolver.
//
// Each primitive maps a C type name to a codec tag (Kind) and a byte width.
// The table is built once at init and never modified, so lookups are safe
// from any goroutine.
//
// # Widths
//
//	Type                        Kind   Size
//	───────────────────────────────────────
//	char, int8_t, signed char   s8     1
//	unsigned char, uint8_t      u8     1
//	short, int16_t              s16    2
//	int, long, int32_t          s32    4
//	long long, int64_t          s64    8
//	float                       f32    4
//	double, long double         f64    8
//
// long is 4 bytes and intptr_t is 8 bytes regardless of the host.
//
// This package is internal to cstruct.
package ctype
