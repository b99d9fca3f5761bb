package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/zavdimka/cstruct"
	"github.com/zavdimka/cstruct/codec"
	"github.com/zavdimka/cstruct/config"
	"github.com/zavdimka/cstruct/dump"
	"github.com/zavdimka/cstruct/errors"
	"github.com/zavdimka/cstruct/header"
	"github.com/zavdimka/cstruct/internal/ctype"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configFile  string
	sources     stringList
	includeDirs stringList
	endian      string
	logLevel    string
	structName  string
	unpackFile  string
	packFile    string
	outFile     string
	list        bool
	types       bool
	dump        bool
	interactive bool
}

func main() {
	var o options
	flag.Var(&o.sources, "src", "Header file, header directory or YAML declaration file (repeatable)")
	flag.Var(&o.includeDirs, "I", "Extra include directory (repeatable)")
	flag.StringVar(&o.configFile, "config", "", "Path to cstruct.yaml")
	flag.StringVar(&o.endian, "endian", "", "Byte order: little or big")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&o.structName, "struct", "", "Structure to operate on")
	flag.StringVar(&o.unpackFile, "unpack", "", "Decode a binary file (- for stdin) and print YAML")
	flag.StringVar(&o.packFile, "pack", "", "Encode a YAML file (- for stdin)")
	flag.StringVar(&o.outFile, "o", "", "Output file (default stdout)")
	flag.BoolVar(&o.list, "list", false, "List structures and sizes")
	flag.BoolVar(&o.types, "types", false, "List primitive type names and sizes")
	flag.BoolVar(&o.dump, "dump", false, "Print the layout tree of -struct")
	flag.BoolVar(&o.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if o.types {
		if err := listTypes(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(o.sources) == 0 && o.configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: cstruct -src <dir|file.h|decls.yaml> [-src ...] [-config cstruct.yaml] [-endian little|big]")
		fmt.Fprintln(os.Stderr, "       cstruct -src ... -list")
		fmt.Fprintln(os.Stderr, "       cstruct -src ... -struct Name -dump")
		fmt.Fprintln(os.Stderr, "       cstruct -src ... -struct Name -unpack in.bin")
		fmt.Fprintln(os.Stderr, "       cstruct -src ... -struct Name -pack in.yaml -o out.bin")
		fmt.Fprintln(os.Stderr, "       cstruct -src ... -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       cstruct -types")
		os.Exit(1)
	}

	if err := run(context.Background(), o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if o.interactive {
		if err := interactiveGuard(isTerminal(os.Stdin) && isTerminal(os.Stdout)); err != nil {
			return err
		}
		var input []byte
		if o.unpackFile != "" {
			if input, err = readInput(o.unpackFile); err != nil {
				return err
			}
		}
		return runInteractive(reg, o.structName, input)
	}

	if o.list {
		return list(os.Stdout, reg)
	}

	if o.structName == "" {
		return errors.InvalidInput(errors.PhaseConfig, "-struct is required for -dump, -unpack and -pack")
	}

	switch {
	case o.dump:
		var opts []dump.Option
		if !isTerminal(os.Stdout) {
			opts = append(opts, dump.Plain())
		}
		return reg.Dump(os.Stdout, o.structName, opts...)

	case o.packFile != "":
		return pack(reg, o)

	default:
		src := o.unpackFile
		if src == "" {
			if isTerminal(os.Stdin) {
				return errors.InvalidInput(errors.PhaseConfig, "nothing to do: use -dump, -unpack or -pack")
			}
			src = "-"
		}
		return unpack(reg, o, src)
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return nil, err
		}
	}

	if o.endian != "" {
		cfg.Endian = o.endian
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	cfg.Sources = append(cfg.Sources, o.sources...)
	cfg.IncludeDirs = append(cfg.IncludeDirs, o.includeDirs...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cstruct.Registry, error) {
	p := header.NewParser(
		header.WithIncludeDirs(cfg.IncludeDirs...),
		header.WithLogger(logger),
	)
	for _, src := range cfg.Sources {
		if err := p.Load(ctx, src); err != nil {
			return nil, err
		}
	}

	reg := cstruct.New(
		cstruct.WithEndian(cfg.Endian),
		cstruct.WithLogger(logger),
	)
	if err := reg.Ingest(p.Decls()...); err != nil {
		return nil, err
	}
	if err := reg.Resolve(); err != nil {
		return nil, err
	}
	return reg, nil
}

func list(w io.Writer, reg *cstruct.Registry) error {
	names := reg.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		size, err := reg.Size(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-*s  %d bytes\n", width, name, size); err != nil {
			return err
		}
	}
	return nil
}

func listTypes(w io.Writer) error {
	names := ctype.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		p, _ := ctype.Lookup(name)
		if _, err := fmt.Fprintf(w, "%-*s  %d  %s\n", width, name, p.Size, p.Kind); err != nil {
			return err
		}
	}
	return nil
}

func unpack(reg *cstruct.Registry, o options, src string) error {
	data, err := readInput(src)
	if err != nil {
		return err
	}
	v, err := reg.Unpack(data, o.structName)
	if err != nil {
		return err
	}

	return writeOutput(o.outFile, func(out io.Writer) error {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.New(errors.PhaseUnpack, errors.KindInvalidData).
				Struct(o.structName).
				Detail("encode yaml").
				Cause(err).
				Build()
		}
		return enc.Close()
	})
}

func pack(reg *cstruct.Registry, o options) error {
	data, err := readInput(o.packFile)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.ParseFailed(o.packFile, err)
	}
	if len(doc.Content) == 0 {
		return errors.InvalidInput(errors.PhasePack, "empty value document")
	}
	v, err := codec.FromYAML(doc.Content[0])
	if err != nil {
		return err
	}
	st, ok := v.(codec.Struct)
	if !ok {
		return errors.TypeMismatch(errors.PhasePack, nil, codec.TypeName(v), "struct")
	}

	buf, err := reg.Pack(st, o.structName)
	if err != nil {
		return err
	}

	if o.outFile == "" && isTerminal(os.Stdout) {
		_, err := fmt.Fprint(os.Stdout, hex.Dump(buf))
		return err
	}
	return writeOutput(o.outFile, func(out io.Writer) error {
		_, err := out.Write(buf)
		return err
	})
}

func readInput(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return data, nil
}

// writeOutput runs write against path, or stdout when path is empty. A
// failed close is reported like a failed write.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Load("create "+path, err)
	}
	return finishOutput(f, path, write(f))
}

func finishOutput(c io.Closer, path string, err error) error {
	if cerr := c.Close(); cerr != nil && err == nil {
		return errors.Load("close "+path, cerr)
	}
	return err
}

// interactiveGuard rejects -i unless stdin and stdout are terminals.
func interactiveGuard(tty bool) error {
	if !tty {
		return errors.InvalidInput(errors.PhaseConfig, "-i needs a terminal on stdin and stdout")
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
