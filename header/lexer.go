package header

import (
	"strings"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/ctype"
)

// normalized is header text rewritten as one statement per line with every
// token separated by a single space. lines maps each output line (0-based)
// to the source line it started on.
type normalized struct {
	text  string
	lines []int
}

// sourceLine returns the source line for a 0-based normalized line, as
// numbered by halfpike.
func (n *normalized) sourceLine(line int) int {
	if line < 0 || line >= len(n.lines) {
		return line + 1
	}
	return n.lines[line]
}

// normalize strips comments, keeps #include "..." directives, drops every
// other preprocessor line and splits the rest into statements. A statement
// ends after ';' or '{', and '}' always starts a new one, so that
// "} Name;" stays together.
func normalize(name, src string) (*normalized, error) {
	var (
		out       strings.Builder
		lines     []int
		stmt      []string
		stmtLine  int
		word      strings.Builder
		line      = 1
		lineStart = true
	)

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		if len(stmt) == 0 {
			stmtLine = line
		}
		stmt = append(stmt, word.String())
		word.Reset()
	}
	emit := func(toks []string, at int) {
		out.WriteString(strings.Join(toks, " "))
		out.WriteByte('\n')
		lines = append(lines, at)
	}
	flushStmt := func() {
		flushWord()
		if len(stmt) == 0 {
			return
		}
		// "}" closing a function or enum body followed by a new declaration
		if len(stmt) > 1 && stmt[0] == "}" && startsDeclaration(stmt[1], stmt[len(stmt)-1]) {
			emit(stmt[:1], stmtLine)
			emit(stmt[1:], stmtLine)
		} else {
			emit(stmt, stmtLine)
		}
		stmt = stmt[:0]
	}
	token := func(tok string) {
		flushWord()
		if len(stmt) == 0 {
			stmtLine = line
		}
		stmt = append(stmt, tok)
	}

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '\n':
			flushWord()
			line++
			lineStart = true
			continue

		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			flushWord()
			for i < len(src) && src[i] != '\n' {
				i++
			}
			i--
			continue

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			flushWord()
			start := line
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
					Detail("%s:%d: unterminated comment", name, start).
					Build()
			}
			body := src[i+2 : i+2+end]
			line += strings.Count(body, "\n")
			i += end + 3
			continue

		case c == '#' && lineStart:
			flushStmt()
			directive, consumed, nl := readDirective(src[i:])
			if path, ok := includePath(directive); ok {
				out.WriteString("#include " + path + "\n")
				lines = append(lines, line)
			}
			line += nl
			i += consumed - 1
			continue

		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			flushWord()
			continue
		}

		lineStart = false

		switch {
		case isIdent(c):
			word.WriteByte(c)
		case c == ';' || c == '{':
			token(string(c))
			flushStmt()
		case c == '}':
			flushStmt()
			token("}")
		default:
			token(string(c))
		}
	}
	flushStmt()

	return &normalized{text: out.String(), lines: lines}, nil
}

// readDirective returns a preprocessor line with continuations joined, the
// bytes consumed (up to but excluding the final newline) and the number of
// continuation newlines it spanned.
func readDirective(src string) (string, int, int) {
	var (
		b  strings.Builder
		nl int
		i  int
	)
	for i < len(src) {
		c := src[i]
		if c == '\\' && i+1 < len(src) && src[i+1] == '\n' {
			i += 2
			nl++
			continue
		}
		if c == '\n' {
			break
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i, nl
}

// includePath extracts the file of a #include "file" directive. Angle
// bracket includes are system headers and are not followed.
func includePath(directive string) (string, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(directive, "#"))
	if !strings.HasPrefix(rest, "include") {
		return "", false
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "include"))
	if len(rest) < 2 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end <= 0 {
		return "", false
	}
	path := rest[1 : end+1]
	if strings.ContainsAny(path, " \t") {
		return "", false
	}
	return path, true
}

// startsDeclaration reports whether the token after a "}" begins a new
// declaration rather than naming the structure being closed.
func startsDeclaration(next, last string) bool {
	if last == "{" {
		return true
	}
	switch next {
	case "typedef", "struct", "union", "enum", "static", "extern", "inline",
		"const", "volatile", "void", "auto", "register", "#include":
		return true
	}
	return ctype.IsKeyword(next) || ctype.IsPrimitive(next)
}

func isIdent(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
