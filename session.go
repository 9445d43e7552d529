package typeinf

import (
	stderrors "errors"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/typeinf/codec"
	"github.com/wippyai/typeinf/decl"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/library"
	"github.com/wippyai/typeinf/registry"
	"github.com/wippyai/typeinf/tinfo"
	"github.com/wippyai/typeinf/transcoder"
	"github.com/wippyai/typeinf/value"
)

// Session binds a type library to the codec, transcoder, declaration
// boundary and lifecycle registry.
//
// Transcoding calls touch no shared mutable state and may run in
// parallel. Calls that change the library (SetLocalType) must be
// serialized by the caller.
type Session struct {
	lib      *library.Library
	reg      *registry.Registry
	logger   *zap.Logger
	parser   decl.Parser
	printer  decl.Printer
	packer   *transcoder.Packer
	unpacker *transcoder.Unpacker
	topts    []transcoder.Option
	full     bool
	closed   atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParser sets the declaration parser. Without one ParseDecl and
// SetLocalType fail.
func WithParser(p decl.Parser) Option {
	return func(s *Session) { s.parser = p }
}

// WithPrinter replaces the default decl.CPrinter.
func WithPrinter(p decl.Printer) Option {
	return func(s *Session) {
		if p != nil {
			s.printer = p
		}
	}
}

// WithRegistry shares a registry between sessions over one library.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Session) { s.reg = r }
}

// WithTranscoder passes options to the session's packer and unpacker.
func WithTranscoder(opts ...transcoder.Option) Option {
	return func(s *Session) { s.topts = append(s.topts, opts...) }
}

// WithFullLayout lets ParseDecl fall back to the full codec mode for
// declarations the fast mode cannot express.
func WithFullLayout(on bool) Option {
	return func(s *Session) { s.full = on }
}

// NewSession creates a session over lib. A nil lib gets a fresh library
// with default pointer size.
func NewSession(lib *library.Library, opts ...Option) *Session {
	if lib == nil {
		lib = library.New(0)
	}
	s := &Session{lib: lib, logger: zap.NewNop(), printer: decl.CPrinter{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = registry.New(s.logger.Named("registry"))
	}
	s.packer = transcoder.NewPacker(s.topts...)
	s.unpacker = transcoder.NewUnpacker(s.topts...)
	return s
}

func (s *Session) Library() *library.Library { return s.lib }
func (s *Session) Registry() *registry.Registry { return s.reg }

// Close clears every descriptor the session still tracks and then closes
// the library. It is safe to call more than once.
func (s *Session) Close() error {
	s.closed.Store(true)
	return s.reg.Shutdown(s.lib.Close)
}

func (s *Session) check(phase errors.Phase) error {
	if s.closed.Load() {
		return errors.Closed(phase, "session")
	}
	return nil
}

// track registers d for the lifetime of the session.
func (s *Session) track(phase errors.Phase, d *tinfo.Descriptor) error {
	if err := s.reg.Register(d); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) && e.Kind == errors.KindClosed {
			return errors.Closed(phase, "session")
		}
		return err
	}
	return nil
}

// decode rebuilds a descriptor for the duration of one call. The caller
// must Release it.
func (s *Session) decode(phase errors.Phase, typeBytes, fieldBytes []byte) (*tinfo.Descriptor, error) {
	if err := s.check(phase); err != nil {
		return nil, err
	}
	d, err := codec.Decode(typeBytes, fieldBytes, s.lib)
	if err != nil {
		return nil, err
	}
	if err := s.track(phase, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Release deregisters and clears a descriptor returned by NamedType. A nil
// or already released descriptor is ignored.
func (s *Session) Release(d *tinfo.Descriptor) {
	if d == nil {
		return
	}
	s.reg.Deregister(d)
}

func noType(phase errors.Phase) error {
	return errors.NoType(phase)
}

// ParseDecl parses a declaration and serializes it. The fast codec mode
// is used unless the result needs the full one and either the session or
// flags allow it.
func (s *Session) ParseDecl(text string, flags decl.ParseFlags) (name string, typeBytes, fieldBytes []byte, err error) {
	if err := s.check(errors.PhaseParse); err != nil {
		return "", nil, nil, err
	}
	if s.parser == nil {
		return "", nil, nil, errors.Unsupported(errors.PhaseParse, "no declaration parser configured")
	}
	name, d, err := s.parser.Parse(text, s.lib, flags)
	if err != nil {
		return "", nil, nil, err
	}
	if err := s.track(errors.PhaseParse, d); err != nil {
		return "", nil, nil, err
	}
	defer s.Release(d)

	typeBytes, fieldBytes, err = codec.Encode(d, codec.ModeFast)
	if err != nil && (s.full || flags.Has(decl.ParseFullLayout)) {
		s.logger.Debug("fast encoding failed, using full mode", zap.String("decl", name), zap.Error(err))
		typeBytes, fieldBytes, err = codec.Encode(d, codec.ModeFull)
	}
	if err != nil {
		return "", nil, nil, err
	}
	return name, typeBytes, fieldBytes, nil
}

// CalcTypeSize returns the byte size of the serialized type, or false
// when it has no known size.
func (s *Session) CalcTypeSize(typeBytes []byte) (uint64, bool) {
	if s.closed.Load() {
		return 0, false
	}
	return codec.CalcSize(typeBytes, s.lib)
}

// ApplyType records type metadata at addr. Empty type bytes clear the
// metadata instead and report whether there was any. The pair is
// validated by decoding before it is stored.
func (s *Session) ApplyType(store TypeStore, addr uint64, typeBytes, fieldBytes []byte) (bool, error) {
	if err := s.check(errors.PhaseApply); err != nil {
		return false, err
	}
	if len(typeBytes) == 0 {
		return store.DeleteType(addr), nil
	}
	d, err := s.decode(errors.PhaseApply, typeBytes, fieldBytes)
	if err != nil {
		return false, errors.New(errors.PhaseApply, errors.KindInvalidData).
			Offset(int64(addr)).Detail("type metadata does not decode").Cause(err).Build()
	}
	s.Release(d)
	if err := store.SetType(addr, typeBytes, fieldBytes); err != nil {
		return false, errors.Wrap(errors.PhaseApply, errors.KindInvalidInput, err, "store type")
	}
	return true, nil
}

// TypeRaw returns the metadata recorded at addr.
func (s *Session) TypeRaw(store TypeStore, addr uint64) (typeBytes, fieldBytes []byte, ok bool) {
	return store.Type(addr)
}

// LocalTypeRaw serializes the library type at ordinal. A missing ordinal
// yields empty type bytes.
func (s *Session) LocalTypeRaw(ordinal uint32) (typeBytes, fieldBytes []byte, err error) {
	if err := s.check(errors.PhaseLibrary); err != nil {
		return nil, nil, err
	}
	d, ok := s.lib.NumberedType(ordinal)
	if !ok {
		return nil, nil, nil
	}
	return codec.Encode(d, codec.ModeFull)
}

// SetLocalType parses text and stores it at ordinal. Ordinal 0 reuses the
// ordinal already bound to the parsed name or allocates a new one. Empty
// text deletes the entry. The ordinal written is returned.
func (s *Session) SetLocalType(ordinal uint32, text string, flags decl.ParseFlags) (uint32, error) {
	if err := s.check(errors.PhaseLibrary); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		if !s.lib.Delete(ordinal) {
			return 0, errors.NotFound(errors.PhaseLibrary, "ordinal", formatOrdinal(ordinal))
		}
		return ordinal, nil
	}
	if s.parser == nil {
		return 0, errors.Unsupported(errors.PhaseParse, "no declaration parser configured")
	}
	name, d, err := s.parser.Parse(text, s.lib, flags)
	if err != nil {
		return 0, err
	}
	if name == "" {
		return 0, errors.InvalidInput(errors.PhaseLibrary, "declaration has no name")
	}
	return s.lib.Set(library.Entry{Ordinal: ordinal, Name: name, Type: d, SClass: library.SCTypedef})
}

// LocalType prints the library type at ordinal under its name.
func (s *Session) LocalType(ordinal uint32, flags decl.PrintFlags) (string, error) {
	if err := s.check(errors.PhasePrint); err != nil {
		return "", err
	}
	e, ok := s.lib.Entry(ordinal)
	if !ok {
		return "", errors.NotFound(errors.PhasePrint, "ordinal", formatOrdinal(ordinal))
	}
	name, flags := entryDecl(e, flags)
	return s.printer.Print(e.Type, name, flags)
}

// entryDecl picks the declarator name for a library entry. Aggregates and
// enums whose body carries the entry name print without one; everything
// else becomes a typedef when printed as a declaration.
func entryDecl(e library.Entry, flags decl.PrintFlags) (string, decl.PrintFlags) {
	k := e.Type.Kind()
	if (k.IsAggregate() || k == tinfo.KindEnum) && e.Type.Name() == e.Name {
		return "", flags
	}
	if flags.Has(decl.PrintSemi) {
		flags |= decl.PrintTypedef
	}
	return e.Name, flags
}

func (s *Session) LocalTypeName(ordinal uint32) (string, bool) {
	return s.lib.Name(ordinal)
}

// PrintType decodes a serialized pair and prints it. Empty type bytes
// print as the empty string.
func (s *Session) PrintType(typeBytes, fieldBytes []byte, name string, flags decl.PrintFlags) (string, error) {
	if len(typeBytes) == 0 {
		return "", s.check(errors.PhasePrint)
	}
	d, err := s.decode(errors.PhasePrint, typeBytes, fieldBytes)
	if err != nil {
		return "", err
	}
	defer s.Release(d)
	return s.printer.Print(d, name, flags)
}

// PrintTypeAt prints the type recorded at addr. Addresses without
// metadata print as the empty string.
func (s *Session) PrintTypeAt(store TypeStore, addr uint64, oneLine bool) (string, error) {
	tb, fb, ok := store.Type(addr)
	if !ok {
		return "", s.check(errors.PhasePrint)
	}
	flags := decl.PrintMulti
	if oneLine {
		flags = decl.PrintOneLine
	}
	return s.PrintType(tb, fb, "", flags)
}

// NamedType looks up a library type by name. Every call returns a fresh
// copy tracked by the registry; Release it when done, otherwise it is
// cleared when the session closes.
func (s *Session) NamedType(name string) (*tinfo.Descriptor, bool) {
	if s.closed.Load() {
		return nil, false
	}
	d, ok := s.lib.NamedType(name)
	if !ok {
		return nil, false
	}
	if err := s.track(errors.PhaseLibrary, d); err != nil {
		return nil, false
	}
	return d, true
}

// PrintDecls prints the library types at ordinals, or all of them when
// ordinals is empty, as C declarations one per line.
func (s *Session) PrintDecls(ordinals []uint32, flags decl.PrintFlags) (string, error) {
	if err := s.check(errors.PhasePrint); err != nil {
		return "", err
	}
	if len(ordinals) == 0 {
		ordinals = s.lib.Ordinals()
	}
	var b strings.Builder
	for _, ord := range ordinals {
		e, ok := s.lib.Entry(ord)
		if !ok {
			return "", errors.NotFound(errors.PhasePrint, "ordinal", formatOrdinal(ord))
		}
		name, f := entryDecl(e, flags|decl.PrintSemi)
		text, err := s.printer.Print(e.Type, name, f)
		if err != nil {
			return "", err
		}
		if e.Comment != "" {
			b.WriteString("// ")
			b.WriteString(e.Comment)
			b.WriteByte('\n')
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// UnpackFromBytes unpacks the typed object at the start of data, which is
// taken to live at address base.
func (s *Session) UnpackFromBytes(typeBytes, fieldBytes, data []byte, base uint64, flags transcoder.Flags) (value.Value, error) {
	return s.unpack(typeBytes, fieldBytes, transcoder.BufferSource{Data: data, Base: base}, base, flags)
}

// UnpackFromMemory unpacks the typed object at addr in mem.
func (s *Session) UnpackFromMemory(typeBytes, fieldBytes []byte, mem MemoryRegion, addr uint64, flags transcoder.Flags) (value.Value, error) {
	return s.unpack(typeBytes, fieldBytes, regionSource{mem}, addr, flags)
}

func (s *Session) unpack(typeBytes, fieldBytes []byte, src transcoder.Source, addr uint64, flags transcoder.Flags) (value.Value, error) {
	if len(typeBytes) == 0 {
		if err := s.check(errors.PhaseUnpack); err != nil {
			return value.Nil, err
		}
		return value.Nil, noType(errors.PhaseUnpack)
	}
	d, err := s.decode(errors.PhaseUnpack, typeBytes, fieldBytes)
	if err != nil {
		return value.Nil, err
	}
	defer s.Release(d)
	return s.unpacker.Unpack(d, src, addr, flags)
}

// PackToBytes packs v and relocates its pointer slots to base.
func (s *Session) PackToBytes(typeBytes, fieldBytes []byte, v value.Value, base uint64, flags transcoder.Flags) ([]byte, error) {
	if len(typeBytes) == 0 {
		if err := s.check(errors.PhasePack); err != nil {
			return nil, err
		}
		return nil, noType(errors.PhasePack)
	}
	d, err := s.decode(errors.PhasePack, typeBytes, fieldBytes)
	if err != nil {
		return nil, err
	}
	defer s.Release(d)
	buf, err := s.packer.Pack(v, d, flags)
	if err != nil {
		return nil, err
	}
	return buf.Relocate(base)
}

// PackToMemory packs v, relocates it to addr and writes it to mem. It
// returns the number of bytes written.
func (s *Session) PackToMemory(typeBytes, fieldBytes []byte, v value.Value, mem MemoryRegion, addr uint64, flags transcoder.Flags) (int, error) {
	if len(typeBytes) == 0 {
		if err := s.check(errors.PhasePack); err != nil {
			return 0, err
		}
		return 0, noType(errors.PhasePack)
	}
	d, err := s.decode(errors.PhasePack, typeBytes, fieldBytes)
	if err != nil {
		return 0, err
	}
	defer s.Release(d)
	return s.packer.PackToMemory(v, d, mem, addr, flags)
}

// regionSource bounds reads to [0, Size()) unless the region reports its
// own bounds.
type regionSource struct {
	MemoryRegion
}

func (r regionSource) Bounds() (lo, hi uint64) {
	if b, ok := r.MemoryRegion.(transcoder.Bounded); ok {
		return b.Bounds()
	}
	return 0, r.Size()
}

func formatOrdinal(ord uint32) string {
	return "#" + strconv.FormatUint(uint64(ord), 10)
}
