// Package header turns C header text and YAML files into structure
// declarations.
//
// Headers are first normalized into one statement per line, with comments
// stripped and #include "file" directives kept, then parsed line by line:
//
//	typedef struct [Tag] { fields } Name;
//	struct Name { fields };
//	typedef uint32_t counter_t;
//
// Field statements accept comma lists, multi-dimensional arrays with numeric
// dimensions, bit-fields and "struct T name" references:
//
//	unsigned int a : 3, b : 5;
//	float m[3][3];
//	struct Vector3D pos;
//
// Enums, prototypes and other declarations are skipped. Unions, pointers and
// nested structure definitions are rejected.
//
// A Parser reads each file once, so headers included from several places
// contribute their structures a single time.
package header
