package header

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/johnsiilver/halfpike"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/ctype"
	"github.com/zavdimka/cstruct/internal/layout"
)

// maxAliasDepth bounds typedef chains such as typedef A B; typedef B C;.
const maxAliasDepth = 32

// Option configures a Parser.
type Option func(*Parser)

// WithIncludeDirs adds directories searched for #include "file" after the
// directory of the including file.
func WithIncludeDirs(dirs ...string) Option {
	return func(p *Parser) {
		p.includeDirs = append(p.includeDirs, dirs...)
	}
}

// WithLogger sets the logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// Parser collects structure declarations from C headers and YAML files.
// Each file is read at most once. A Parser is not safe for concurrent use.
type Parser struct {
	includeDirs []string
	seen        map[string]bool
	decls       []layout.StructDecl
	aliases     map[string]string
	logger      *zap.Logger
}

// NewParser creates an empty parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		seen:    make(map[string]bool),
		aliases: make(map[string]string),
		logger:  Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decls returns the declarations collected so far in source order, with
// typedef aliases replaced by the types they name.
func (p *Parser) Decls() []layout.StructDecl {
	out := make([]layout.StructDecl, len(p.decls))
	for i, d := range p.decls {
		fields := make([]layout.FieldDecl, len(d.Fields))
		for j, f := range d.Fields {
			f.Type = p.unalias(f.Type)
			fields[j] = f
		}
		out[i] = layout.StructDecl{Name: d.Name, Fields: fields}
	}
	return out
}

func (p *Parser) unalias(typ string) string {
	for i := 0; i < maxAliasDepth; i++ {
		next, ok := p.aliases[typ]
		if !ok {
			return typ
		}
		typ = next
	}
	return typ
}

// Load parses a directory of headers, a YAML declaration file (.yaml or
// .yml) or a single header, depending on path.
func (p *Parser) Load(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Load("stat "+path, pkgerrors.WithStack(err))
	}
	switch {
	case info.IsDir():
		return p.ParseDir(ctx, path)
	case isYAML(path):
		return p.LoadYAMLFile(path)
	default:
		return p.ParseFile(ctx, path)
	}
}

// ParseDir parses every .h file in dir in name order.
func (p *Parser) ParseDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Load("read directory "+dir, pkgerrors.WithStack(err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".h") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, n := range names {
		if err := p.ParseFile(ctx, filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

// ParseFile parses one header and, recursively, the headers it includes.
func (p *Parser) ParseFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Load("resolve path "+path, pkgerrors.WithStack(err))
	}
	if p.seen[abs] {
		return nil
	}
	p.seen[abs] = true

	src, err := os.ReadFile(abs)
	if err != nil {
		return errors.Load("read "+path, pkgerrors.Wrapf(err, "header %s", path))
	}
	p.logger.Debug("parsing header", zap.String("path", abs))
	return p.parse(ctx, abs, string(src))
}

// Parse parses header text. name is used in error messages and as the base
// for relative includes.
func (p *Parser) Parse(ctx context.Context, name, src string) error {
	return p.parse(ctx, name, src)
}

func (p *Parser) parse(ctx context.Context, name, src string) error {
	norm, err := normalize(name, src)
	if err != nil {
		return err
	}
	if strings.TrimSpace(norm.text) == "" {
		return nil
	}

	f := &file{owner: p, name: name, norm: norm}
	if err := halfpike.Parse(ctx, norm.text, f); err != nil {
		if f.err != nil {
			return f.err
		}
		if e, ok := err.(*errors.Error); ok {
			return e
		}
		return errors.ParseFailed(name, err)
	}
	return nil
}

// include parses a file named by #include "rel" in the file from.
func (p *Parser) include(ctx context.Context, from, rel string) error {
	candidates := make([]string, 0, 1+len(p.includeDirs))
	if filepath.IsAbs(rel) {
		candidates = append(candidates, rel)
	} else {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), rel))
		for _, dir := range p.includeDirs {
			candidates = append(candidates, filepath.Join(dir, rel))
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return p.ParseFile(ctx, c)
		}
	}
	p.logger.Debug("include not found",
		zap.String("file", from),
		zap.String("include", rel))
	return nil
}

// file is the halfpike state for one normalized header.
type file struct {
	owner *Parser
	name  string
	norm  *normalized

	cur     *layout.StructDecl
	tag     string
	typedef bool
	depth   int
	// err keeps a failure from an included file intact
	err error
}

// Start implements halfpike.Parser's object contract.
func (f *file) Start(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	return f.top
}

// Validate implements halfpike.Parser's object contract.
func (f *file) Validate() error {
	if f.cur != nil {
		return errors.New(errors.PhaseParse, errors.KindInvalidData).
			Struct(f.cur.Name).
			Detail("%s: structure %q is not closed", f.name, f.cur.Name).
			Build()
	}
	return nil
}

func (f *file) errorf(p *halfpike.Parser, line halfpike.Line, format string, args ...any) halfpike.ParseFn {
	prefix := f.name + ":" + strconv.Itoa(f.norm.sourceLine(line.LineNum)) + ": "
	return p.Errorf(prefix+format, args...)
}

// words returns the non-blank items of a line.
func words(line halfpike.Line) []string {
	out := make([]string, 0, len(line.Items))
	for _, it := range line.Items {
		if v := strings.TrimSpace(it.Val); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// top handles statements outside any structure body.
func (f *file) top(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if p.EOF(line) {
		return nil
	}
	w := words(line)
	if len(w) == 0 {
		return f.top
	}

	last := w[len(w)-1]
	switch {
	case w[0] == "#include":
		if len(w) != 2 {
			return f.errorf(p, line, "malformed include")
		}
		if err := f.owner.include(ctx, f.name, w[1]); err != nil {
			f.err = err
			return p.Errorf("%s", err)
		}
		return f.top

	case last == "{" && len(w) >= 3 && w[0] == "typedef" && w[1] == "struct":
		return f.open(p, line, true, w[2:len(w)-1])

	case last == "{" && len(w) >= 2 && w[0] == "struct":
		return f.open(p, line, false, w[1:len(w)-1])

	case last == "{":
		f.depth = 1
		return f.skip

	case last == ";" && w[0] == "typedef":
		return f.alias(p, line, w[1:len(w)-1])
	}

	// prototypes, variables, enums and other declarations
	return f.top
}

func (f *file) open(p *halfpike.Parser, line halfpike.Line, typedef bool, tag []string) halfpike.ParseFn {
	switch len(tag) {
	case 0:
		if !typedef {
			return f.errorf(p, line, "anonymous struct must be a typedef")
		}
	case 1:
		if !validIdent(tag[0]) {
			return f.errorf(p, line, "invalid structure tag %q", tag[0])
		}
		f.tag = tag[0]
	default:
		return f.errorf(p, line, "unexpected %q before '{'", strings.Join(tag, " "))
	}

	f.typedef = typedef
	f.cur = &layout.StructDecl{Name: f.tag}
	return f.body
}

// skip discards a braced block that is not a structure, such as an enum or
// a function body.
func (f *file) skip(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if p.EOF(line) {
		return f.errorf(p, line, "unterminated block")
	}
	w := words(line)
	if len(w) > 0 && w[0] == "}" {
		f.depth--
	}
	if len(w) > 0 && w[len(w)-1] == "{" {
		f.depth++
	}
	if f.depth == 0 {
		return f.top
	}
	return f.skip
}

// alias records typedef <type> <name>; for later substitution.
func (f *file) alias(p *halfpike.Parser, line halfpike.Line, w []string) halfpike.ParseFn {
	w = dropQualifiers(w)
	if len(w) < 2 {
		return f.errorf(p, line, "malformed typedef")
	}
	name := w[len(w)-1]
	typ := w[:len(w)-1]
	if typ[0] == "struct" {
		typ = typ[1:]
	}
	if len(typ) == 0 || !validIdent(name) || strings.Contains(strings.Join(typ, ""), "*") ||
		strings.ContainsAny(name, "()[]") {
		// function pointers, pointer typedefs and array typedefs
		return f.top
	}

	target := ctype.Normalize(strings.Join(typ, " "))
	if target != name {
		f.owner.aliases[name] = target
	}
	return f.top
}

// body handles the lines of a structure body.
func (f *file) body(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if p.EOF(line) {
		return f.errorf(p, line, "structure %q is not closed", f.tag)
	}
	w := words(line)
	if len(w) == 0 {
		return f.body
	}

	switch {
	case w[0] == "}":
		return f.close(p, line, w[1:])
	case w[len(w)-1] == "{":
		return f.errorf(p, line, "nested structure definitions are not supported")
	case w[len(w)-1] != ";":
		return f.errorf(p, line, "expected ';' after field")
	}

	fields, err := parseFields(w[:len(w)-1])
	if err != nil {
		return f.errorf(p, line, "%s", err)
	}
	f.cur.Fields = append(f.cur.Fields, fields...)
	return f.body
}

func (f *file) close(p *halfpike.Parser, line halfpike.Line, rest []string) halfpike.ParseFn {
	if len(rest) == 0 || rest[len(rest)-1] != ";" {
		return f.errorf(p, line, "expected ';' after structure")
	}
	rest = rest[:len(rest)-1]

	decl := *f.cur
	f.cur = nil

	var names []string
	if f.typedef {
		if len(rest) != 1 || !validIdent(rest[0]) {
			return f.errorf(p, line, "typedef struct needs a single name")
		}
		names = append(names, rest[0])
		if f.tag != "" && f.tag != rest[0] {
			names = append(names, f.tag)
		}
	} else {
		// struct Name { ... } var; declares a variable as well
		names = append(names, f.tag)
	}

	for _, n := range names {
		f.owner.decls = append(f.owner.decls, layout.StructDecl{Name: n, Fields: decl.Fields})
	}
	f.owner.logger.Debug("parsed structure",
		zap.String("file", f.name),
		zap.Strings("names", names),
		zap.Int("fields", len(decl.Fields)))

	f.tag = ""
	f.typedef = false
	return f.top
}

// parseFields parses one field statement without its ';', such as
// "unsigned int a : 3 , b : 5" or "struct Vector3D hist [ 2 ] [ 3 ]".
func parseFields(w []string) ([]layout.FieldDecl, error) {
	w = dropQualifiers(w)
	if len(w) > 0 && w[0] == "union" {
		return nil, pkgerrors.New("unions are not supported")
	}
	if len(w) > 0 && w[0] == "struct" {
		w = w[1:]
	}

	var segments [][]string
	start := 0
	for i, t := range w {
		if t == "," {
			segments = append(segments, w[start:i])
			start = i + 1
		}
	}
	segments = append(segments, w[start:])

	first := segments[0]
	end := len(first)
	for i, t := range first {
		if t == "[" || t == ":" {
			end = i
			break
		}
	}
	if end < 2 {
		return nil, pkgerrors.Errorf("expected type and name in %q", strings.Join(w, " "))
	}
	typ := ctype.Normalize(strings.Join(first[:end-1], " "))
	if strings.Contains(typ, "*") || strings.Contains(typ, "(") {
		return nil, pkgerrors.Errorf("pointer and function fields are not supported: %q", strings.Join(w, " "))
	}

	fields := make([]layout.FieldDecl, 0, len(segments))
	declarators := append([][]string{first[end-1:]}, segments[1:]...)
	for _, d := range declarators {
		fd, err := parseDeclarator(typ, d)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

// parseDeclarator parses "name [ N ] [ M ]" or "name : W".
func parseDeclarator(typ string, d []string) (layout.FieldDecl, error) {
	if len(d) == 0 {
		return layout.FieldDecl{}, pkgerrors.New("missing field name")
	}
	if d[0] == "*" {
		return layout.FieldDecl{}, pkgerrors.Errorf("pointer fields are not supported: %q", strings.Join(d, " "))
	}
	if !validIdent(d[0]) {
		return layout.FieldDecl{}, pkgerrors.Errorf("invalid field name %q", d[0])
	}

	fd := layout.FieldDecl{Name: d[0], Type: typ}
	rest := d[1:]

	for len(rest) > 0 {
		switch rest[0] {
		case "[":
			if len(rest) < 3 || rest[2] != "]" {
				return fd, pkgerrors.Errorf("field %s: malformed array dimension", fd.Name)
			}
			n, err := parseInt(rest[1])
			if err != nil || n <= 0 {
				return fd, pkgerrors.Errorf("field %s: array dimension %q is not a positive number", fd.Name, rest[1])
			}
			if fd.ArrayLen == 0 {
				fd.ArrayLen = n
			} else {
				fd.ArrayLen *= n
			}
			rest = rest[3:]
		case ":":
			if len(rest) != 2 {
				return fd, pkgerrors.Errorf("field %s: malformed bit width", fd.Name)
			}
			n, err := parseInt(rest[1])
			if err != nil || n <= 0 {
				return fd, pkgerrors.Errorf("field %s: bit width %q is not a positive number", fd.Name, rest[1])
			}
			fd.BitWidth = n
			rest = nil
		default:
			return fd, pkgerrors.Errorf("field %s: unexpected %q", fd.Name, rest[0])
		}
	}
	return fd, nil
}

// parseInt accepts C integer literals with optional u/l suffixes.
func parseInt(s string) (int, error) {
	s = strings.TrimRight(s, "uUlL")
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func dropQualifiers(w []string) []string {
	out := w[:0:0]
	for _, t := range w {
		switch t {
		case "const", "volatile", "static", "extern", "register", "restrict":
			continue
		}
		out = append(out, t)
	}
	return out
}

func validIdent(s string) bool {
	if s == "" || ctype.IsKeyword(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isIdent(c) || (i == 0 && c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Parse parses header text into declarations.
func Parse(ctx context.Context, name, src string, opts ...Option) ([]layout.StructDecl, error) {
	p := NewParser(opts...)
	if err := p.Parse(ctx, name, src); err != nil {
		return nil, err
	}
	return p.Decls(), nil
}

// ParseFile parses a header and the headers it includes.
func ParseFile(ctx context.Context, path string, opts ...Option) ([]layout.StructDecl, error) {
	p := NewParser(opts...)
	if err := p.ParseFile(ctx, path); err != nil {
		return nil, err
	}
	return p.Decls(), nil
}

// ParseDir parses every .h file of dir in name order.
func ParseDir(ctx context.Context, dir string, opts ...Option) ([]layout.StructDecl, error) {
	p := NewParser(opts...)
	if err := p.ParseDir(ctx, dir); err != nil {
		return nil, err
	}
	return p.Decls(), nil
}
