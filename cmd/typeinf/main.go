package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/typeinf"
	"github.com/wippyai/typeinf/codec"
	"github.com/wippyai/typeinf/config"
	"github.com/wippyai/typeinf/decl"
	"github.com/wippyai/typeinf/decl/witdecl"
	"github.com/wippyai/typeinf/hostval"
	"github.com/wippyai/typeinf/library"
	"github.com/wippyai/typeinf/memory"
	"github.com/wippyai/typeinf/transcoder"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to typeinf.toml")
		witFile     = flag.String("wit", "", "WIT resolve in JSON form (overrides config)")
		base        = flag.Uint64("base", 0, "Base address packed buffers are relocated to")
		follow      = flag.Bool("follow", false, "Unpack pointees instead of raw addresses")
		multi       = flag.Bool("multi", false, "Print aggregates one member per line")
		interactive = flag.Bool("i", false, "Interactive type browser")
	)
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		c, err := config.Load(*configFile)
		if err != nil {
			fatal(err)
		}
		cfg = c
	}
	if *witFile != "" {
		cfg.WIT.Path = *witFile
	}

	s, res, err := newSession(cfg)
	if err != nil {
		fatal(err)
	}
	defer s.Close()

	if *interactive {
		if err := runInteractive(s, res); err != nil {
			fatal(err)
		}
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	opts := runOpts{base: *base, multi: *multi}
	if *follow {
		opts.flags |= transcoder.FlagFollowPointers
	}
	if err := run(s, args[0], args[1:], opts, os.Stdin, os.Stdout); err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: typeinf [-config file] [-wit file.json] <command> [args]")
	fmt.Fprintln(os.Stderr, "       typeinf parse <decl>              serialize a declaration")
	fmt.Fprintln(os.Stderr, "       typeinf size <type-hex>           byte size of a serialized type")
	fmt.Fprintln(os.Stderr, "       typeinf print <type-hex> [fields] print a serialized type")
	fmt.Fprintln(os.Stderr, "       typeinf pack <decl> < value.cbor  pack a CBOR value")
	fmt.Fprintln(os.Stderr, "       typeinf unpack <decl> < data.bin  unpack raw bytes")
	fmt.Fprintln(os.Stderr, "       typeinf decls <decl>...           declare types and print them")
	fmt.Fprintln(os.Stderr, "       typeinf -wit file.json -i         interactive mode")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newSession(cfg *config.Config) (*typeinf.Session, *witdecl.Parser, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	codec.SetLogger(logger.Named("codec"))
	witdecl.SetLogger(logger.Named("witdecl"))
	transcoder.SetLogger(logger.Named("transcoder"))

	parser := witdecl.New(nil)
	if cfg.WIT.Path != "" {
		parser, err = witdecl.LoadJSON(cfg.WIT.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("loaded WIT", zap.String("path", cfg.WIT.Path), zap.Int("types", len(parser.Resolve.TypeDefs)))
	}

	s := typeinf.NewSession(library.New(cfg.Target.AddrSize),
		typeinf.WithLogger(logger),
		typeinf.WithParser(parser),
		typeinf.WithFullLayout(cfg.Codec.FullLayout),
		typeinf.WithTranscoder(cfg.TranscoderOptions()...),
	)
	return s, parser, nil
}

type runOpts struct {
	base  uint64
	flags transcoder.Flags
	multi bool
}

func (o runOpts) printFlags() decl.PrintFlags {
	if o.multi {
		return decl.PrintMulti
	}
	return decl.PrintOneLine
}

func run(s *typeinf.Session, cmd string, args []string, opts runOpts, in io.Reader, out io.Writer) error {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "parse":
		if err := need(1); err != nil {
			return err
		}
		name, tb, fb, err := s.ParseDecl(args[0], 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "name:   %s\n", name)
		fmt.Fprintf(out, "type:   %s\n", hex.EncodeToString(tb))
		fmt.Fprintf(out, "fields: %s\n", hex.EncodeToString(fb))
		if size, ok := s.CalcTypeSize(tb); ok {
			fmt.Fprintf(out, "size:   %d\n", size)
		}
		return nil

	case "size":
		if err := need(1); err != nil {
			return err
		}
		tb, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("type bytes: %w", err)
		}
		size, ok := s.CalcTypeSize(tb)
		if !ok {
			return fmt.Errorf("type has no known size")
		}
		fmt.Fprintln(out, size)
		return nil

	case "print":
		if err := need(1); err != nil {
			return err
		}
		tb, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("type bytes: %w", err)
		}
		var fb []byte
		if len(args) > 1 {
			if fb, err = hex.DecodeString(args[1]); err != nil {
				return fmt.Errorf("field bytes: %w", err)
			}
		}
		text, err := s.PrintType(tb, fb, "", opts.printFlags()|decl.PrintSemi)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil

	case "pack":
		if err := need(1); err != nil {
			return err
		}
		_, tb, fb, err := s.ParseDecl(args[0], 0)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		v, err := hostval.UnmarshalCBOR(data)
		if err != nil {
			return err
		}
		buf, err := s.PackToBytes(tb, fb, v, opts.base, opts.flags)
		if err != nil {
			return err
		}
		return writeBytes(out, buf)

	case "unpack":
		if err := need(1); err != nil {
			return err
		}
		_, tb, fb, err := s.ParseDecl(args[0], 0)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		mem := &memory.Bytes{Data: data, Base: opts.base}
		v, err := s.UnpackFromMemory(tb, fb, mem, opts.base, opts.flags)
		if err != nil {
			return err
		}
		if isTerminal(out) {
			fmt.Fprintln(out, v)
			return nil
		}
		enc, err := hostval.MarshalCBOR(v)
		if err != nil {
			return err
		}
		_, err = out.Write(enc)
		return err

	case "decls":
		if err := need(1); err != nil {
			return err
		}
		for _, arg := range args {
			for _, text := range splitDecls(arg) {
				if _, err := s.SetLocalType(0, text, 0); err != nil {
					return fmt.Errorf("%s: %w", text, err)
				}
			}
		}
		text, err := s.PrintDecls(nil, opts.printFlags())
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// writeBytes hex-dumps to terminals and writes raw bytes otherwise.
func writeBytes(out io.Writer, b []byte) error {
	if isTerminal(out) {
		_, err := io.WriteString(out, hex.Dump(b))
		return err
	}
	_, err := out.Write(b)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// splitDecls accepts declarations separated by ';' in one argument.
func splitDecls(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
