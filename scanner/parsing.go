package scanner

// Parsing-form IR nodes. Every field that the schema requires is optional
// here and populated incrementally as attributes arrive; finalize proves the
// required fields present and produces the final form. A finalized tree
// therefore never carries a missing required field.

type parsingProtocol struct {
	name       *string
	copyright  *string
	interfaces []*parsingInterface
}

type parsingInterface struct {
	name        *string
	version     *uint32
	summary     *string
	description *string
	objects     []*parsingObject
}

// parsingObject is the tagged in-progress form of an interface child.
type parsingObject struct {
	kind tagKind // tagRequest, tagEvent or tagEnum
	msg  *parsingMessage
	enum *parsingEnum
}

type parsingMessage struct {
	name        *string
	since       *uint32
	summary     *string
	description *string
	args        []*parsingArg
}

type parsingEnum struct {
	name        *string
	since       *uint32
	summary     *string
	description *string
	bitfield    bool
	entries     []*parsingEntry
}

type parsingArg struct {
	name      *string
	typ       *ArgType
	iface     *string
	allowNull *bool
	summary   *string
}

type parsingEntry struct {
	name    *string
	value   *string
	summary *string
}

func missingAttribute(file string, pos Position, what string) *ParseError {
	return &ParseError{
		Code:  CodeMissingAttributeAtFinal,
		File:  file,
		Pos:   pos,
		Token: what,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (p *parsingProtocol) finalize(file string, pos Position) (Protocol, error) {
	if p.name == nil {
		return Protocol{}, missingAttribute(file, pos, "protocol name")
	}
	out := Protocol{
		Name:      *p.name,
		Copyright: deref(p.copyright),
	}
	for _, pi := range p.interfaces {
		iface, err := pi.finalize(file, pos)
		if err != nil {
			return Protocol{}, err
		}
		out.Interfaces = append(out.Interfaces, iface)
	}
	return out, nil
}

func (p *parsingInterface) finalize(file string, pos Position) (Interface, error) {
	if p.name == nil {
		return Interface{}, missingAttribute(file, pos, "interface name")
	}
	if p.version == nil {
		return Interface{}, missingAttribute(file, pos, "interface version")
	}
	out := Interface{
		Name:        *p.name,
		Version:     *p.version,
		Summary:     deref(p.summary),
		Description: deref(p.description),
	}
	for _, po := range p.objects {
		obj, err := po.finalize(file, pos)
		if err != nil {
			return Interface{}, err
		}
		out.Objects = append(out.Objects, obj)
	}
	return out, nil
}

func (p *parsingObject) finalize(file string, pos Position) (Object, error) {
	switch p.kind {
	case tagRequest:
		msg, err := p.msg.finalize(file, pos, "request")
		if err != nil {
			return nil, err
		}
		return &Request{Message: msg}, nil
	case tagEvent:
		msg, err := p.msg.finalize(file, pos, "event")
		if err != nil {
			return nil, err
		}
		return &Event{Message: msg}, nil
	default:
		return p.enum.finalize(file, pos)
	}
}

func (p *parsingMessage) finalize(file string, pos Position, what string) (Message, error) {
	if p.name == nil {
		return Message{}, missingAttribute(file, pos, what+" name")
	}
	out := Message{
		Name:        *p.name,
		Since:       p.since,
		Summary:     deref(p.summary),
		Description: deref(p.description),
	}
	for _, pa := range p.args {
		arg, err := pa.finalize(file, pos)
		if err != nil {
			return Message{}, err
		}
		out.Args = append(out.Args, arg)
	}
	return out, nil
}

func (p *parsingEnum) finalize(file string, pos Position) (*Enum, error) {
	if p.name == nil {
		return nil, missingAttribute(file, pos, "enum name")
	}
	out := &Enum{
		Name:        *p.name,
		Since:       p.since,
		Summary:     deref(p.summary),
		Description: deref(p.description),
		Bitfield:    p.bitfield,
	}
	for _, pe := range p.entries {
		entry, err := pe.finalize(file, pos)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func (p *parsingArg) finalize(file string, pos Position) (Arg, error) {
	if p.name == nil {
		return Arg{}, missingAttribute(file, pos, "arg name")
	}
	if p.typ == nil {
		return Arg{}, missingAttribute(file, pos, "arg type")
	}
	return Arg{
		Name:      *p.name,
		Type:      *p.typ,
		Interface: deref(p.iface),
		AllowNull: p.allowNull,
		Summary:   deref(p.summary),
	}, nil
}

func (p *parsingEntry) finalize(file string, pos Position) (Entry, error) {
	if p.name == nil {
		return Entry{}, missingAttribute(file, pos, "entry name")
	}
	if p.value == nil {
		return Entry{}, missingAttribute(file, pos, "entry value")
	}
	return Entry{
		Name:    *p.name,
		Value:   *p.value,
		Summary: deref(p.summary),
	}, nil
}
