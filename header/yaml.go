package header

import (
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/internal/layout"
)

// yamlFile is the YAML declaration format:
//
//	structs:
//	  - name: Flags
//	    fields:
//	      - {name: a, type: unsigned int, bits: 3}
//	      - {name: samples, type: uint16_t, dims: [2, 4]}
type yamlFile struct {
	Structs []yamlStruct `yaml:"structs"`
}

type yamlStruct struct {
	Name   string      `yaml:"name"`
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Len  int    `yaml:"len,omitempty"`
	Dims []int  `yaml:"dims,omitempty"`
	Bits int    `yaml:"bits,omitempty"`
}

// LoadYAML reads declarations in YAML form.
func LoadYAML(r io.Reader) ([]layout.StructDecl, error) {
	p := NewParser()
	if err := p.loadYAML(r, "<yaml>"); err != nil {
		return nil, err
	}
	return p.Decls(), nil
}

// LoadYAMLFile reads a YAML declaration file. Each file is read once.
func (p *Parser) LoadYAMLFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Load("resolve path "+path, pkgerrors.WithStack(err))
	}
	if p.seen[abs] {
		return nil
	}
	p.seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return errors.Load("open "+path, pkgerrors.WithStack(err))
	}
	defer f.Close()
	return p.loadYAML(f, path)
}

func (p *Parser) loadYAML(r io.Reader, name string) error {
	var doc yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return errors.ParseFailed(name, pkgerrors.Wrap(err, "decode declarations"))
	}

	for _, ys := range doc.Structs {
		decl := layout.StructDecl{Name: ys.Name, Fields: make([]layout.FieldDecl, 0, len(ys.Fields))}
		for _, yf := range ys.Fields {
			fd, err := yf.decl()
			if err != nil {
				return errors.New(errors.PhaseParse, errors.KindInvalidData).
					Struct(ys.Name).
					Path(yf.Name).
					Detail("%s: %s", name, err).
					Build()
			}
			decl.Fields = append(decl.Fields, fd)
		}
		p.decls = append(p.decls, decl)
	}

	p.logger.Debug("loaded yaml declarations",
		zap.String("file", name),
		zap.Int("structs", len(doc.Structs)))
	return nil
}

func (f yamlField) decl() (layout.FieldDecl, error) {
	fd := layout.FieldDecl{Name: f.Name, Type: f.Type, ArrayLen: f.Len, BitWidth: f.Bits}
	if len(f.Dims) > 0 {
		if f.Len != 0 {
			return fd, pkgerrors.New("len and dims are exclusive")
		}
		n := 1
		for _, d := range f.Dims {
			if d <= 0 {
				return fd, pkgerrors.Errorf("dimension %d is not positive", d)
			}
			n *= d
		}
		fd.ArrayLen = n
	}
	return fd, nil
}
