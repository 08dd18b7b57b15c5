package scanner

import (
	"io"
)

// tagKind enumerates the element tags the schema recognizes. Anything else
// in tag position is an unsupported_tag failure.
type tagKind int

const (
	tagCopyright tagKind = iota
	tagProtocol
	tagInterface
	tagDescription
	tagRequest
	tagEvent
	tagEnum
	tagEntry
	tagArg
)

var tagNames = map[string]tagKind{
	"copyright":   tagCopyright,
	"protocol":    tagProtocol,
	"interface":   tagInterface,
	"description": tagDescription,
	"request":     tagRequest,
	"event":       tagEvent,
	"enum":        tagEnum,
	"entry":       tagEntry,
	"arg":         tagArg,
}

func (k tagKind) String() string {
	for name, kind := range tagNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// literalText reports whether the tag's body is raw text rather than markup.
func (k tagKind) literalText() bool {
	return k == tagDescription || k == tagCopyright
}

// mustSelfClose reports whether the tag has no legal body at all and must be
// written as an empty element.
func (k tagKind) mustSelfClose() bool {
	return k == tagArg || k == tagEntry
}

// Declaration is the parsed optional <?xml ... ?> header.
type Declaration struct {
	Major      uint8
	Minor      uint8
	Encoding   string // empty when absent
	Standalone *bool  // nil when absent
}

type state int

const (
	statePlaintext state = iota
	stateTagName
	stateEndTag
	stateAttributeName
	stateAttributeSep
	stateAttributeValue
	stateText
	stateComment
)

const doctypeWord = "DOCTYPE"

// Scanner is a pushdown recognizer over a byte stream. It classifies bytes
// into tag opens, closes, self-closings, attribute pairs, literal text,
// comments and the optional XML declaration, and feeds the resulting events
// to the structural validator.
type Scanner struct {
	src  *byteSource
	file string
	b    *builder

	state       state
	tagName     []byte
	attrName    []byte
	attrValue   []byte
	literalText []byte
	tagStack    []tagKind
	attrs       attributes

	kind     tagKind
	haveKind bool

	lastByte     byte
	lastLastByte byte

	firstTag                     bool
	readingDeclaration           bool
	lastOpeningWasLiteralTextTag bool
	decl                         *Declaration

	commentOpen   int // '-' bytes seen after "<!"; 2 means inside the body
	commentDashes int // consecutive '-' bytes inside the body
	doctypeIdx    int // bytes of "DOCTYPE" matched after "<!"
}

// NewScanner returns a scanner reading one protocol document stream from r.
// file is used in error messages only.
func NewScanner(r io.Reader, file string) *Scanner {
	return &Scanner{
		src:      newByteSource(r, file),
		file:     file,
		b:        newBuilder(file),
		firstTag: true,
	}
}

// Parse consumes the whole stream and returns the finalized protocols.
func Parse(r io.Reader, file string) ([]Protocol, error) {
	s := NewScanner(r, file)
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.b.protocols, nil
}

// Declaration returns the parsed XML declaration, or nil when the stream had
// none. Valid after run.
func (s *Scanner) Declaration() *Declaration {
	return s.decl
}

func (s *Scanner) errByte(code ErrorCode, b byte) *ParseError {
	return &ParseError{Code: code, File: s.file, Pos: s.src.pos(), Byte: b, Token: s.token()}
}

func (s *Scanner) err(code ErrorCode) *ParseError {
	return &ParseError{Code: code, File: s.file, Pos: s.src.pos(), Token: s.token()}
}

// token picks the buffered content most relevant to the current state.
func (s *Scanner) token() string {
	switch s.state {
	case stateAttributeName, stateAttributeSep, stateAttributeValue:
		if len(s.attrName) > 0 {
			return string(s.attrName)
		}
		return string(s.tagName)
	default:
		return string(s.tagName)
	}
}

func (s *Scanner) run() error {
	b, eof, err := s.src.next()
	if err != nil {
		return err
	}
	if eof {
		return nil
	}

	// Byte-order mark. UTF-16 marks are rejected, the UTF-8 mark is
	// consumed silently. No other encoding is accepted.
	switch b {
	case 0xFF, 0xFE:
		return s.err(CodeUnsupportedEncoding)
	case 0xEF:
		for _, want := range []byte{0xBB, 0xBF} {
			b, eof, err = s.src.next()
			if err != nil {
				return err
			}
			if eof || b != want {
				return s.err(CodeUnsupportedEncoding)
			}
		}
	default:
		if err := s.dispatch(b); err != nil {
			return err
		}
	}

	for {
		b, eof, err = s.src.next()
		if err != nil {
			return err
		}
		if eof {
			return s.atEOF()
		}
		if err := s.dispatch(b); err != nil {
			return err
		}
	}
}

func (s *Scanner) atEOF() error {
	if s.state != statePlaintext {
		return s.err(CodeBrokenTag)
	}
	if len(s.tagStack) > 0 {
		return s.err(CodeStreamIncomplete)
	}
	return nil
}

func (s *Scanner) dispatch(b byte) error {
	var err error
	switch s.state {
	case statePlaintext:
		err = s.inPlaintext(b)
	case stateTagName:
		err = s.inTagName(b)
	case stateEndTag:
		err = s.inEndTag(b)
	case stateAttributeName:
		err = s.inAttributeName(b)
	case stateAttributeSep:
		err = s.inAttributeSep(b)
	case stateAttributeValue:
		err = s.inAttributeValue(b)
	case stateText:
		err = s.inText(b)
	case stateComment:
		err = s.inComment(b)
	}
	s.lastLastByte = s.lastByte
	s.lastByte = b
	return err
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', 0x0B, 0x0C:
		return true
	}
	return false
}

func (s *Scanner) inPlaintext(b byte) error {
	if b == '<' {
		s.state = stateTagName
	}
	return nil
}

func (s *Scanner) inText(b byte) error {
	if b == '<' {
		s.state = stateTagName
		return nil
	}
	s.literalText = append(s.literalText, b)
	return nil
}

// classify resolves the buffered tag name and validates the parent/child
// relationship before any attribute is consumed.
func (s *Scanner) classify() error {
	if s.haveKind {
		return nil
	}
	name := string(s.tagName)
	kind, ok := tagNames[name]
	if !ok {
		return s.err(CodeUnsupportedTag)
	}
	if err := s.b.checkParent(kind, s.src.pos()); err != nil {
		return err
	}
	s.kind = kind
	s.haveKind = true
	return nil
}

func (s *Scanner) inTagName(b byte) error {
	if s.lastByte == '/' && len(s.tagName) > 0 && b != '>' {
		return s.errByte(CodeInvalidForwardSlash, b)
	}
	if s.readingDeclaration && s.lastByte == '?' && s.lastLastByte != '<' && b != '>' {
		return s.errByte(CodeInvalidDeclarationQuestionMark, b)
	}

	switch {
	case b == '<':
		return s.errByte(CodeDoubleOpenBracket, b)

	case b == '>':
		switch {
		case s.lastByte == '/':
			return s.emitEmpty()
		case s.readingDeclaration:
			if s.lastByte != '?' {
				return s.errByte(CodeInvalidNonSelfClosing, b)
			}
			if string(s.tagName) != "xml" {
				return s.err(CodeInvalidDeclarationName)
			}
			return s.finishDeclaration()
		case len(s.tagName) == 0:
			return s.errByte(CodeEmptyTagName, b)
		default:
			return s.emitStart()
		}

	case b == '/':
		if s.readingDeclaration {
			return s.errByte(CodeInvalidSelfClosing, b)
		}
		if len(s.tagName) == 0 {
			s.state = stateEndTag
		}
		// With a name buffered, the next byte must be '>'.
		return nil

	case b == '?':
		if s.lastByte == '<' {
			if s.decl != nil {
				return s.errByte(CodeDoubleDeclaration, b)
			}
			if !s.firstTag {
				return s.errByte(CodeInvalidDeclarationQuestionMark, b)
			}
			s.readingDeclaration = true
			return nil
		}
		if !s.readingDeclaration {
			return s.errByte(CodeInvalidDeclarationQuestionMark, b)
		}
		// Closing '?' of a declaration with no attributes.
		return nil

	case b == '!':
		if s.lastByte == '<' {
			s.state = stateComment
			s.commentOpen = 0
			s.commentDashes = 0
			s.doctypeIdx = 0
			return nil
		}
		s.tagName = append(s.tagName, b)
		return nil

	case isSpace(b):
		if len(s.tagName) == 0 {
			return s.errByte(CodeEmptyTagName, b)
		}
		if s.readingDeclaration {
			if string(s.tagName) != "xml" {
				return s.err(CodeInvalidDeclarationName)
			}
		} else if err := s.classify(); err != nil {
			return err
		}
		s.state = stateAttributeName
		return nil

	default:
		s.tagName = append(s.tagName, b)
		return nil
	}
}

func (s *Scanner) inEndTag(b byte) error {
	switch {
	case b == '>':
		return s.emitEnd()
	case b == '/':
		return s.errByte(CodeInvalidSelfClosing, b)
	case b == '<':
		return s.errByte(CodeDoubleOpenBracket, b)
	default:
		s.tagName = append(s.tagName, b)
		return nil
	}
}

func (s *Scanner) inAttributeName(b byte) error {
	if s.lastByte == '/' && b != '>' {
		return s.errByte(CodeInvalidForwardSlash, b)
	}
	if s.readingDeclaration && s.lastByte == '?' && b != '>' {
		return s.errByte(CodeInvalidDeclarationQuestionMark, b)
	}

	switch {
	case b == '=':
		if len(s.attrName) == 0 {
			return s.errByte(CodeEqualsBeforeAttributeName, b)
		}
		s.attrs.pushName(s.attrName)
		s.attrs.positions = append(s.attrs.positions, s.src.pos())
		s.attrName = s.attrName[:0]
		s.state = stateAttributeSep
		return nil

	case b == '>':
		switch {
		case s.lastByte == '/':
			return s.emitEmpty()
		case s.readingDeclaration:
			if s.lastByte != '?' {
				return s.errByte(CodeInvalidNonSelfClosing, b)
			}
			return s.finishDeclaration()
		case len(s.attrName) > 0:
			return s.errByte(CodeUnvaluedAttribute, b)
		default:
			return s.emitStart()
		}

	case b == '/':
		if s.readingDeclaration {
			return s.errByte(CodeInvalidSelfClosing, b)
		}
		if len(s.attrName) > 0 {
			return s.errByte(CodeInvalidForwardSlash, b)
		}
		return nil

	case b == '?':
		if s.readingDeclaration && len(s.attrName) == 0 {
			return nil
		}
		return s.errByte(CodeInvalidDeclarationQuestionMark, b)

	case b == '<':
		return s.errByte(CodeDoubleOpenBracket, b)

	case isSpace(b):
		if len(s.attrName) > 0 {
			return s.errByte(CodeUnvaluedAttribute, b)
		}
		return nil

	case b == '"' || b == '\'':
		return s.errByte(CodeInvalidAttributeNameChar, b)

	default:
		s.attrName = append(s.attrName, b)
		return nil
	}
}

func (s *Scanner) inAttributeSep(b byte) error {
	switch {
	case isSpace(b):
		return nil
	case b == '"':
		s.state = stateAttributeValue
		return nil
	default:
		return s.errByte(CodeInvalidBeforeAttributeValue, b)
	}
}

func (s *Scanner) inAttributeValue(b byte) error {
	if b == '"' {
		s.attrs.pushValue(s.attrValue)
		s.attrValue = s.attrValue[:0]
		s.state = stateAttributeName
		return nil
	}
	s.attrValue = append(s.attrValue, b)
	return nil
}

func (s *Scanner) inComment(b byte) error {
	if s.commentOpen < 2 {
		switch {
		case b == '-' && s.doctypeIdx == 0:
			s.commentOpen++
		case s.doctypeIdx == len(doctypeWord):
			return s.errByte(CodeDoctypeUnsupported, b)
		case s.commentOpen == 0 && b == doctypeWord[s.doctypeIdx]:
			s.doctypeIdx++
			if s.doctypeIdx == len(doctypeWord) {
				// The byte after the full keyword reports the error,
				// keeping the position just past "<!DOCTYPE".
				return nil
			}
		default:
			return s.errByte(CodeBrokenTag, b)
		}
		return nil
	}

	switch {
	case b == '-':
		s.commentDashes++
	case b == '>' && s.commentDashes >= 2:
		s.commentDashes = 0
		s.commentOpen = 0
		if s.lastOpeningWasLiteralTextTag {
			s.state = stateText
		} else {
			s.state = statePlaintext
		}
	default:
		s.commentDashes = 0
	}
	return nil
}

// consumedTag resets all per-tag state after an event is emitted.
func (s *Scanner) consumedTag() {
	s.tagName = s.tagName[:0]
	s.attrName = s.attrName[:0]
	s.attrValue = s.attrValue[:0]
	s.attrs.clear()
	s.haveKind = false
}

func (s *Scanner) emitStart() error {
	if err := s.classify(); err != nil {
		return err
	}
	if s.kind.mustSelfClose() {
		return s.err(CodeInvalidNonSelfClosing)
	}
	if err := s.b.open(s.kind, &s.attrs, s.src.pos()); err != nil {
		return err
	}
	s.tagStack = append(s.tagStack, s.kind)
	s.firstTag = false
	if s.kind.literalText() {
		s.state = stateText
		s.lastOpeningWasLiteralTextTag = true
	} else {
		s.state = statePlaintext
		s.lastOpeningWasLiteralTextTag = false
	}
	s.consumedTag()
	return nil
}

func (s *Scanner) emitEmpty() error {
	if len(s.tagName) == 0 {
		return s.err(CodeEmptyTagName)
	}
	if err := s.classify(); err != nil {
		return err
	}
	if err := s.b.empty(s.kind, &s.attrs, s.src.pos()); err != nil {
		return err
	}
	s.firstTag = false
	s.state = statePlaintext
	s.consumedTag()
	return nil
}

func (s *Scanner) emitEnd() error {
	name := string(s.tagName)
	if name == "" {
		return s.err(CodeEmptyTagName)
	}
	kind, ok := tagNames[name]
	if !ok {
		return s.err(CodeUnsupportedTag)
	}
	if len(s.tagStack) == 0 || s.tagStack[len(s.tagStack)-1] != kind {
		return s.err(CodeMismatchedTagClose)
	}
	s.tagStack = s.tagStack[:len(s.tagStack)-1]
	if err := s.b.close(kind, s.literalText, s.src.pos()); err != nil {
		return err
	}
	s.literalText = s.literalText[:0]
	s.lastOpeningWasLiteralTextTag = false
	s.state = statePlaintext
	s.consumedTag()
	return nil
}

func (s *Scanner) finishDeclaration() error {
	d, err := s.parseDeclarationAttributes()
	if err != nil {
		return err
	}
	s.decl = d
	s.readingDeclaration = false
	s.state = statePlaintext
	s.consumedTag()
	return nil
}
