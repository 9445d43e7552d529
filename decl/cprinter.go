package decl

import (
	"strconv"
	"strings"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
)

const maxPrintDepth = 64

var scalarNames = map[tinfo.Kind]string{
	tinfo.KindBool: "bool",
	tinfo.KindChar: "char",
	tinfo.KindS8:   "int8_t",
	tinfo.KindU8:   "uint8_t",
	tinfo.KindS16:  "int16_t",
	tinfo.KindU16:  "uint16_t",
	tinfo.KindS32:  "int32_t",
	tinfo.KindU32:  "uint32_t",
	tinfo.KindS64:  "int64_t",
	tinfo.KindU64:  "uint64_t",
	tinfo.KindF32:  "float",
	tinfo.KindF64:  "double",
}

// CPrinter renders descriptors as C declarations.
//
// The outermost struct, union or enum is printed with its body; nested
// ones that carry a declared name are printed by reference so recursive
// types terminate.
type CPrinter struct {
	// Indent is the per-level indentation of PrintMulti output. Empty
	// means two spaces.
	Indent string
}

// Print implements Printer.
func (p CPrinter) Print(d *tinfo.Descriptor, name string, flags PrintFlags) (string, error) {
	if d.IsNone() {
		return "", errors.InvalidInput(errors.PhasePrint, "no type to print")
	}
	w := &cwriter{flags: flags, indent: p.Indent}
	if w.indent == "" {
		w.indent = "  "
	}
	s, err := w.decl(d, name, 0, 0)
	if err != nil {
		return "", err
	}
	if flags.Has(PrintTypedef) {
		s = "typedef " + s
	}
	if flags.Has(PrintSemi) {
		s += ";"
	}
	return s, nil
}

// PrintOneLine renders d on a single line.
func PrintOneLine(d *tinfo.Descriptor, name string) (string, error) {
	return CPrinter{}.Print(d, name, PrintOneLine)
}

// PrintMulti renders d with one aggregate member per line.
func PrintMulti(d *tinfo.Descriptor, name string) (string, error) {
	return CPrinter{}.Print(d, name, PrintMulti)
}

// PrintSemi renders d on one line terminated by a semicolon.
func PrintSemi(d *tinfo.Descriptor, name string) (string, error) {
	return CPrinter{}.Print(d, name, PrintOneLine|PrintSemi)
}

type cwriter struct {
	indent string
	flags  PrintFlags
}

func (w *cwriter) multi() bool {
	return w.flags.Has(PrintMulti) && !w.flags.Has(PrintOneLine)
}

func (w *cwriter) decl(d *tinfo.Descriptor, name string, level, depth int) (string, error) {
	spec, inner, err := w.split(d, name, level, depth)
	if err != nil {
		return "", err
	}
	if inner == "" {
		return spec, nil
	}
	return spec + " " + inner, nil
}

// split peels declarator syntax off d from the outside in, returning the
// type specifier and the declarator wrapped around inner.
func (w *cwriter) split(d *tinfo.Descriptor, inner string, level, depth int) (string, string, error) {
	if depth > maxPrintDepth {
		return "", "", errors.LimitExceeded(errors.PhasePrint, nil, "declarator depth", maxPrintDepth)
	}
	quals := qualWords(d.Qualifiers())

	switch d.Kind() {
	case tinfo.KindPtr:
		pd, _ := d.PtrDetails()
		star := "*"
		if quals != "" {
			star += quals
			if inner != "" {
				star += " "
			}
		}
		inner = star + inner
		if k := pd.Pointee.Kind(); k == tinfo.KindArray || k == tinfo.KindFunc {
			inner = "(" + inner + ")"
		}
		return w.split(pd.Pointee, inner, level, depth+1)

	case tinfo.KindArray:
		ad, _ := d.ArrayDetails()
		return w.split(ad.Elem, inner+"["+strconv.FormatUint(ad.Len, 10)+"]", level, depth+1)

	case tinfo.KindFunc:
		fd, _ := d.FuncDetails()
		params, err := w.params(fd, level, depth)
		if err != nil {
			return "", "", err
		}
		switch fd.CC {
		case tinfo.CCCdecl, tinfo.CCStdcall, tinfo.CCFastcall, tinfo.CCThiscall:
			inner = fd.CC.String() + " " + inner
		}
		return w.split(fd.Ret, inner+"("+params+")", level, depth+1)

	case tinfo.KindUnknown:
		if size := d.UnknownSize(); size != 0 {
			inner += "[" + strconv.FormatUint(size, 10) + "]"
		}
		return withQuals(quals, "__unknown"), inner, nil
	}

	spec, err := w.base(d, level, depth)
	if err != nil {
		return "", "", err
	}
	return withQuals(quals, spec), inner, nil
}

func (w *cwriter) params(fd *tinfo.FuncDetail, level, depth int) (string, error) {
	parts := make([]string, 0, len(fd.Params)+1)
	for _, p := range fd.Params {
		s, err := w.decl(p.Type, p.Name, level+1, depth+1)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if fd.CC == tinfo.CCVariadic {
		parts = append(parts, "...")
	}
	if len(parts) == 0 {
		return "void", nil
	}
	return strings.Join(parts, ", "), nil
}

func (w *cwriter) base(d *tinfo.Descriptor, level, depth int) (string, error) {
	k := d.Kind()
	if s, ok := scalarNames[k]; ok {
		return s, nil
	}
	switch k {
	case tinfo.KindVoid:
		return "void", nil
	case tinfo.KindNamed:
		return refName(d), nil
	case tinfo.KindEnum:
		if d.Name() != "" && level > 0 {
			return "enum " + d.Name(), nil
		}
		return w.enumBody(d, level), nil
	case tinfo.KindStruct, tinfo.KindUnion:
		if d.Name() != "" && level > 0 {
			return k.String() + " " + d.Name(), nil
		}
		return w.udtBody(d, level, depth)
	}
	return "", errors.New(errors.PhasePrint, errors.KindUnsupported).
		Type(d.String()).Detail("kind %s has no C spelling", k).Build()
}

func refName(d *tinfo.Descriptor) string {
	name, ord, _ := d.Ref()
	if name != "" {
		return name
	}
	if r, ok := d.Resolve(); ok && r.Name() != "" {
		return r.Name()
	}
	return "#" + strconv.FormatUint(uint64(ord), 10)
}

func (w *cwriter) enumBody(d *tinfo.Descriptor, level int) string {
	ed, _ := d.EnumDetails()
	var b strings.Builder
	b.WriteString("enum")
	if d.Name() != "" {
		b.WriteByte(' ')
		b.WriteString(d.Name())
	}
	switch ed.Width {
	case 1:
		b.WriteString(" : uint8_t")
	case 2:
		b.WriteString(" : uint16_t")
	case 8:
		b.WriteString(" : uint64_t")
	}
	if len(ed.Cases) == 0 {
		b.WriteString(" {}")
		return b.String()
	}
	b.WriteString(" {")
	for i, c := range ed.Cases {
		if i > 0 {
			b.WriteByte(',')
		}
		w.open(&b, level+1)
		b.WriteString(c.Name)
		b.WriteString(" = ")
		b.WriteString(strconv.FormatInt(c.Value, 10))
	}
	w.close(&b, level)
	return b.String()
}

func (w *cwriter) udtBody(d *tinfo.Descriptor, level, depth int) (string, error) {
	ud, _ := d.UDTDetails()
	var b strings.Builder
	b.WriteString(d.Kind().String())
	if d.Name() != "" {
		b.WriteByte(' ')
		b.WriteString(d.Name())
	}
	if ud.Explicit {
		b.WriteString(" __layout(")
		b.WriteString(strconv.FormatUint(ud.Size, 10))
		b.WriteString(", ")
		b.WriteString(strconv.FormatUint(ud.Align, 10))
		b.WriteByte(')')
	}
	if len(ud.Members) == 0 {
		b.WriteString(" {}")
		return b.String(), nil
	}

	var offsets []uint64
	if w.flags.Has(PrintOffsets) || ud.Explicit {
		if l, err := d.Layout(); err == nil {
			offsets = make([]uint64, len(l.Members))
			for i, m := range l.Members {
				offsets[i] = m.Offset
			}
		}
	}

	b.WriteString(" {")
	for i, m := range ud.Members {
		s, err := w.decl(m.Type, m.Name, level+1, depth+1)
		if err != nil {
			return "", err
		}
		w.open(&b, level+1)
		b.WriteString(s)
		if m.BitWidth != 0 {
			b.WriteString(" : ")
			b.WriteString(strconv.FormatUint(m.BitWidth, 10))
		}
		b.WriteByte(';')
		if offsets != nil {
			b.WriteString(" /* 0x")
			b.WriteString(strconv.FormatUint(offsets[i], 16))
			b.WriteString(" */")
		}
	}
	w.close(&b, level)
	return b.String(), nil
}

// open starts a body element at the given nesting level.
func (w *cwriter) open(b *strings.Builder, level int) {
	if w.multi() {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(w.indent, level))
		return
	}
	b.WriteByte(' ')
}

func (w *cwriter) close(b *strings.Builder, level int) {
	if w.multi() {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(w.indent, level))
		b.WriteByte('}')
		return
	}
	b.WriteString(" }")
}

func qualWords(q tinfo.Qualifiers) string {
	switch {
	case q.IsConst() && q.IsVolatile():
		return "const volatile"
	case q.IsConst():
		return "const"
	case q.IsVolatile():
		return "volatile"
	}
	return ""
}

func withQuals(quals, spec string) string {
	if quals == "" {
		return spec
	}
	return quals + " " + spec
}
