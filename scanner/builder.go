package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// nameRe is the identifier shape required of every name attribute. Names
// are emitted verbatim as identifiers, so nothing outside this set is
// allowed in.
var nameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// builder is the structural validator and IR builder. It mirrors the open
// element stack, enforces the schema's parent/child and attribute rules as
// events arrive, and finalizes each protocol tree when its root closes.
type builder struct {
	file      string
	stack     []tagKind
	protocols []Protocol

	proto *parsingProtocol
	iface *parsingInterface
	msg   *parsingMessage
	enum  *parsingEnum

	// summary attribute of the currently open <description>, applied to the
	// parent when the element closes.
	descSummary *string
}

func newBuilder(file string) *builder {
	return &builder{file: file}
}

func (b *builder) fail(code ErrorCode, pos Position, token string) *ParseError {
	return &ParseError{Code: code, File: b.file, Pos: pos, Token: token}
}

// checkParent enforces the nesting table before any attribute of the
// element is consumed.
func (b *builder) checkParent(kind tagKind, pos Position) error {
	var top tagKind = -1
	if len(b.stack) > 0 {
		top = b.stack[len(b.stack)-1]
	}

	switch kind {
	case tagProtocol:
		if top != -1 {
			return b.fail(CodeNonRootProtocol, pos, kind.String())
		}
	case tagInterface:
		if top != tagProtocol {
			return b.fail(CodeInterfaceNotProtocolChild, pos, kind.String())
		}
	case tagRequest, tagEvent, tagEnum:
		if top != tagInterface {
			return b.fail(CodeInterfaceChildNot, pos, kind.String())
		}
	case tagArg:
		if top != tagRequest && top != tagEvent {
			return b.fail(CodeInvalidArgParent, pos, kind.String())
		}
	case tagEntry:
		if top != tagEnum {
			return b.fail(CodeInvalidEntryParent, pos, kind.String())
		}
	case tagDescription:
		switch top {
		case tagInterface, tagRequest, tagEvent, tagEnum:
		default:
			return b.fail(CodeInvalidDescriptionParent, pos, kind.String())
		}
	case tagCopyright:
		if top != tagProtocol {
			return b.fail(CodeInvalidCopyrightParent, pos, kind.String())
		}
	}
	return nil
}

// open handles a StartElement event. The element's attributes are validated
// and a parsing node is appended to its parent.
func (b *builder) open(kind tagKind, attrs *attributes, pos Position) error {
	if err := b.create(kind, attrs, pos); err != nil {
		return err
	}
	b.stack = append(b.stack, kind)
	return nil
}

// empty handles an EmptyElement event: the element opens and closes in one
// step, so a root protocol finalizes immediately.
func (b *builder) empty(kind tagKind, attrs *attributes, pos Position) error {
	if err := b.create(kind, attrs, pos); err != nil {
		return err
	}
	switch kind {
	case tagProtocol:
		return b.finalizeProtocol(pos)
	case tagInterface:
		b.iface = nil
	case tagRequest, tagEvent:
		b.msg = nil
	case tagEnum:
		b.enum = nil
	case tagDescription:
		// Self-closing description carries only its summary attribute.
		if err := b.assignDescription(nil, pos); err != nil {
			return err
		}
	case tagCopyright:
		// Self-closing copyright has no content; the field stays absent.
	}
	return nil
}

// close handles an EndElement event, carrying the buffered literal text for
// description and copyright.
func (b *builder) close(kind tagKind, text []byte, pos Position) error {
	b.stack = b.stack[:len(b.stack)-1]

	switch kind {
	case tagProtocol:
		return b.finalizeProtocol(pos)
	case tagInterface:
		b.iface = nil
	case tagRequest, tagEvent:
		b.msg = nil
	case tagEnum:
		b.enum = nil
	case tagDescription:
		return b.assignDescription(text, pos)
	case tagCopyright:
		long, err := processLiteralText(text, b.file, pos)
		if err != nil {
			return err
		}
		if long != "" {
			if b.proto.copyright != nil {
				return b.fail(CodeClobber, pos, "copyright")
			}
			b.proto.copyright = &long
		}
	}
	return nil
}

func (b *builder) finalizeProtocol(pos Position) error {
	p, err := b.proto.finalize(b.file, pos)
	if err != nil {
		return err
	}
	b.protocols = append(b.protocols, p)
	b.proto = nil
	return nil
}

// assignDescription applies the open description's summary attribute and
// trimmed text body to the element the description belongs to.
func (b *builder) assignDescription(text []byte, pos Position) error {
	var summary, description **string
	switch {
	case b.enum != nil:
		summary, description = &b.enum.summary, &b.enum.description
	case b.msg != nil:
		summary, description = &b.msg.summary, &b.msg.description
	default:
		summary, description = &b.iface.summary, &b.iface.description
	}

	if b.descSummary != nil {
		if *summary != nil {
			return b.fail(CodeClobber, pos, "summary")
		}
		*summary = b.descSummary
		b.descSummary = nil
	}

	long, err := processLiteralText(text, b.file, pos)
	if err != nil {
		return err
	}
	if long != "" {
		if *description != nil {
			return b.fail(CodeClobber, pos, "description")
		}
		*description = &long
	}
	return nil
}

// processLiteralText normalizes the body of a literal-text tag: Unix
// newlines only, outer whitespace trimmed, every line trimmed, empty result
// means absent.
func processLiteralText(raw []byte, file string, pos Position) (string, error) {
	const asciiSpace = " \t\n\v\f"
	for _, c := range raw {
		if c == '\r' {
			return "", &ParseError{Code: CodeUnsupportedEncoding, File: file, Pos: pos, Byte: '\r'}
		}
	}
	s := strings.Trim(string(raw), asciiSpace)
	if s == "" {
		return "", nil
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, asciiSpace)
	}
	return strings.Join(lines, "\n"), nil
}

// create validates an element's attributes and attaches a new parsing node
// to the tree.
func (b *builder) create(kind tagKind, attrs *attributes, pos Position) error {
	switch kind {
	case tagProtocol:
		return b.createProtocol(attrs, pos)
	case tagInterface:
		return b.createInterface(attrs, pos)
	case tagRequest, tagEvent:
		return b.createMessage(kind, attrs, pos)
	case tagEnum:
		return b.createEnum(attrs, pos)
	case tagArg:
		return b.createArg(attrs, pos)
	case tagEntry:
		return b.createEntry(attrs, pos)
	case tagDescription:
		return b.createDescription(attrs, pos)
	case tagCopyright:
		if attrs.count() > 0 {
			return b.fail(CodeInvalidAttributes, attrs.pos(0), attrs.name(0))
		}
		return nil
	}
	return nil
}

// checkName validates a name attribute value against the identifier shape.
func (b *builder) checkName(value string, pos Position) error {
	if !nameRe.MatchString(value) {
		return b.fail(CodeInvalidName, pos, value)
	}
	return nil
}

func (b *builder) createProtocol(attrs *attributes, pos Position) error {
	node := &parsingProtocol{}
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.proto = node
	return nil
}

func (b *builder) createInterface(attrs *attributes, pos Position) error {
	node := &parsingInterface{}
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		case "version":
			if node.version != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			v, ok := parseUint32(value)
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.version = &v
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.proto.interfaces = append(b.proto.interfaces, node)
	b.iface = node
	return nil
}

func (b *builder) createMessage(kind tagKind, attrs *attributes, pos Position) error {
	node := &parsingMessage{}
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		case "since":
			if node.since != nil {
				return b.fail(CodeClobber, apos, name)
			}
			v, ok := parseUint32(value)
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.since = &v
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.iface.objects = append(b.iface.objects, &parsingObject{kind: kind, msg: node})
	b.msg = node
	return nil
}

func (b *builder) createEnum(attrs *attributes, pos Position) error {
	node := &parsingEnum{}
	var haveBitfield bool
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		case "since":
			if node.since != nil {
				return b.fail(CodeClobber, apos, name)
			}
			v, ok := parseUint32(value)
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.since = &v
		case "bitfield":
			if haveBitfield {
				return b.fail(CodeClobber, apos, name)
			}
			v, ok := parseBoolAttr(value)
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.bitfield = v
			haveBitfield = true
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.iface.objects = append(b.iface.objects, &parsingObject{kind: tagEnum, enum: node})
	b.enum = node
	return nil
}

func (b *builder) createArg(attrs *attributes, pos Position) error {
	node := &parsingArg{}
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		case "type":
			if node.typ != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			t, ok := argTypeNames[value]
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.typ = &t
		case "interface":
			if node.iface != nil {
				return b.fail(CodeClobber, apos, name)
			}
			node.iface = &value
		case "allow-null":
			if node.allowNull != nil {
				return b.fail(CodeClobber, apos, name)
			}
			v, ok := parseBoolAttr(value)
			if !ok {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			node.allowNull = &v
		case "summary":
			if node.summary != nil {
				return b.fail(CodeClobber, apos, name)
			}
			node.summary = &value
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.msg.args = append(b.msg.args, node)
	return nil
}

func (b *builder) createEntry(attrs *attributes, pos Position) error {
	node := &parsingEntry{}
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "name":
			if node.name != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if err := b.checkName(value, apos); err != nil {
				return err
			}
			node.name = &value
		case "value":
			if node.value != nil {
				return b.fail(CodeInvalidAttributes, apos, name)
			}
			if _, _, ok := parseEntryValue(value); !ok {
				return b.fail(CodeInvalidEntryValue, apos, value)
			}
			node.value = &value
		case "summary":
			if node.summary != nil {
				return b.fail(CodeClobber, apos, name)
			}
			node.summary = &value
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	b.enum.entries = append(b.enum.entries, node)
	return nil
}

func (b *builder) createDescription(attrs *attributes, pos Position) error {
	b.descSummary = nil
	for i := 0; i < attrs.count(); i++ {
		name, value, apos := attrs.name(i), attrs.value(i), attrs.pos(i)
		switch name {
		case "summary":
			if b.descSummary != nil {
				return b.fail(CodeClobber, apos, name)
			}
			b.descSummary = &value
		default:
			return b.fail(CodeInvalidAttributes, apos, name)
		}
	}
	return nil
}

func parseUint32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func parseBoolAttr(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// parseEntryValue accepts a decimal or 0x/0X hex literal that fits i32 or
// u32, returning the numeric value widened to int64.
func parseEntryValue(s string) (value int64, negative bool, ok bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, false, false
		}
		return int64(u), false, true
	}
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return i, i < 0, true
	}
	if u, err := strconv.ParseUint(s, 10, 32); err == nil {
		return int64(u), false, true
	}
	return 0, false, false
}
