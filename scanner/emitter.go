package scanner

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"strings"
)

const generatedHeader = "//! Generated by wlscan. Do not edit."

// bitfieldWidth is the backing width of every emitted bitfield record.
const bitfieldWidth = 32

// Emitter writes the source artifact for finalized protocols. Emission is
// deterministic: the same IR always produces byte-identical output. Write
// failures are collected by the buffered writer and surfaced from Flush as
// CodeWriteFailed.
type Emitter struct {
	w           *bufio.Writer
	wroteHeader bool
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

// Emit appends the given protocols to the output, writing the generated
// header before the first one.
func (e *Emitter) Emit(protocols []Protocol) error {
	for i := range protocols {
		if !e.wroteHeader {
			e.pf("%s\n", generatedHeader)
			e.wroteHeader = true
		}
		e.pf("\n")
		if err := e.protocol(&protocols[i]); err != nil {
			return err
		}
	}
	return e.Flush()
}

// Flush drains the buffer and reports any write failure.
func (e *Emitter) Flush() error {
	if err := e.w.Flush(); err != nil {
		return &ParseError{Code: CodeWriteFailed, Err: err}
	}
	return nil
}

func (e *Emitter) pf(format string, args ...any) {
	fmt.Fprintf(e.w, format, args...)
}

// doc writes summary and description as doc comment lines at the given
// indent, with a bare separator line between them when both are present.
func (e *Emitter) doc(indent, summary, description string) {
	if summary != "" {
		e.pf("%s/// %s\n", indent, summary)
	}
	if summary != "" && description != "" {
		e.pf("%s///\n", indent)
	}
	if description != "" {
		for _, line := range strings.Split(description, "\n") {
			if line == "" {
				e.pf("%s///\n", indent)
			} else {
				e.pf("%s/// %s\n", indent, line)
			}
		}
	}
}

func (e *Emitter) protocol(p *Protocol) error {
	if p.Copyright != "" {
		for _, line := range strings.Split(p.Copyright, "\n") {
			if line == "" {
				e.pf("//\n")
			} else {
				e.pf("// %s\n", line)
			}
		}
	}
	e.pf("pub const %s = struct {\n", p.Name)
	for i := range p.Interfaces {
		if i > 0 {
			e.pf("\n")
		}
		if err := e.iface(&p.Interfaces[i]); err != nil {
			return err
		}
	}
	e.pf("};\n")
	return nil
}

func (e *Emitter) iface(i *Interface) error {
	const ind = "    "
	const ind2 = ind + ind

	e.doc(ind, i.Summary, i.Description)
	e.pf("%spub const %s = struct {\n", ind, i.Name)
	e.pf("%spub const version: u32 = %d;\n", ind2, i.Version)

	requests := i.Requests()
	events := i.Events()

	e.pf("\n")
	e.opcodeEnum(ind2, "RequestCode", requestNames(requests))
	e.pf("\n")
	e.union(ind2, "Request", "RequestCode", requestNames(requests))
	e.pf("\n")
	e.opcodeEnum(ind2, "EventCode", eventNames(events))
	e.pf("\n")
	e.union(ind2, "Event", "EventCode", eventNames(events))

	for _, obj := range i.Objects {
		e.pf("\n")
		switch o := obj.(type) {
		case *Request:
			e.payload(ind2, &o.Message)
		case *Event:
			e.payload(ind2, &o.Message)
		case *Enum:
			if err := e.enum(ind2, o); err != nil {
				return err
			}
		}
	}

	e.pf("%s};\n", ind)
	return nil
}

func requestNames(rs []*Request) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name
	}
	return names
}

func eventNames(es []*Event) []string {
	names := make([]string, len(es))
	for i, ev := range es {
		names[i] = ev.Name
	}
	return names
}

// opcodeEnum writes the 0-based opcode enumeration in source order, with a
// trailing catch-all variant so unknown opcodes stay representable.
func (e *Emitter) opcodeEnum(indent, typeName string, names []string) {
	e.pf("%spub const %s = enum(u16) {\n", indent, typeName)
	for i, name := range names {
		e.pf("%s    %s = %d,\n", indent, name, i)
	}
	e.pf("%s    _,\n", indent)
	e.pf("%s};\n", indent)
}

// union writes the tagged union discriminated by the opcode enumeration.
func (e *Emitter) union(indent, typeName, codeName string, names []string) {
	e.pf("%spub const %s = union(%s) {\n", indent, typeName, codeName)
	for _, name := range names {
		e.pf("%s    %s: %s,\n", indent, name, camelCase(name))
	}
	e.pf("%s};\n", indent)
}

// payload writes the struct backing one request or event variant. The field
// layout of the arguments is deliberately left open; the struct records the
// since version and documents each argument.
func (e *Emitter) payload(indent string, m *Message) {
	e.doc(indent, m.Summary, m.Description)
	e.pf("%spub const %s = struct {\n", indent, camelCase(m.Name))
	if m.Since != nil {
		e.pf("%s    pub const since: ?u32 = %d;\n", indent, *m.Since)
	} else {
		e.pf("%s    pub const since: ?u32 = null;\n", indent)
	}
	for _, a := range m.Args {
		e.pf("%s    /// %s\n", indent, argDoc(&a))
	}
	e.pf("%s};\n", indent)
}

func argDoc(a *Arg) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "arg %s: %s", a.Name, a.Type)
	if a.Interface != "" {
		fmt.Fprintf(&sb, " interface=%s", a.Interface)
	}
	if a.AllowNull != nil {
		fmt.Fprintf(&sb, " allow-null=%t", *a.AllowNull)
	}
	if a.Summary != "" {
		fmt.Fprintf(&sb, " - %s", a.Summary)
	}
	return sb.String()
}

func (e *Emitter) enum(indent string, en *Enum) error {
	if en.Bitfield {
		return e.bitfield(indent, en)
	}

	backing := "u32"
	for _, entry := range en.Entries {
		if _, negative, _ := parseEntryValue(entry.Value); negative {
			backing = "i32"
			break
		}
	}

	e.doc(indent, en.Summary, en.Description)
	e.pf("%spub const %s = enum(%s) {\n", indent, camelCase(en.Name), backing)
	for _, entry := range en.Entries {
		if entry.Summary != "" {
			e.pf("%s    /// %s\n", indent, entry.Summary)
		}
		// The source literal is preserved verbatim.
		e.pf("%s    %s = %s,\n", indent, entry.Name, entry.Value)
	}
	e.pf("%s};\n", indent)
	return nil
}

// bitfield writes a packed record of the enum's backing width. Entries are
// sorted by value, each must be a distinct nonzero power of two, and every
// bit gap is covered by an exact-width padding field so the record always
// fills the full backing width.
func (e *Emitter) bitfield(indent string, en *Enum) error {
	type bitEntry struct {
		entry Entry
		bit   int
	}
	entries := make([]bitEntry, 0, len(en.Entries))
	for _, entry := range en.Entries {
		v, negative, ok := parseEntryValue(entry.Value)
		if !ok || negative || v == 0 || v&(v-1) != 0 {
			return &ParseError{Code: CodeInvalidEntryValue, Token: entry.Name + "=" + entry.Value}
		}
		entries = append(entries, bitEntry{entry: entry, bit: bits.TrailingZeros64(uint64(v))})
	}

	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].bit < entries[j-1].bit; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	e.doc(indent, en.Summary, en.Description)
	e.pf("%spub const %s = packed struct(u%d) {\n", indent, camelCase(en.Name), bitfieldWidth)

	nextBit := 0
	pad := 0
	for _, be := range entries {
		if be.bit < nextBit {
			return &ParseError{Code: CodeInvalidEntryValue, Token: be.entry.Name + "=" + be.entry.Value}
		}
		if gap := be.bit - nextBit; gap > 0 {
			e.pf("%s    _pad%d: u%d = 0,\n", indent, pad, gap)
			pad++
		}
		if be.entry.Summary != "" {
			e.pf("%s    /// %s\n", indent, be.entry.Summary)
		}
		e.pf("%s    %s: bool = false,\n", indent, be.entry.Name)
		nextBit = be.bit + 1
	}
	if gap := bitfieldWidth - nextBit; gap > 0 {
		e.pf("%s    _pad%d: u%d = 0,\n", indent, pad, gap)
	}

	e.pf("%s};\n", indent)
	return nil
}

// camelCase turns an underscore-separated identifier into its UpperCamel
// type name, set_window_title becoming SetWindowTitle.
func camelCase(name string) string {
	var sb strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	return sb.String()
}
