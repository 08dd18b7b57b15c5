package scanner

import (
	"fmt"
	"strings"
)

// Position is a location in the input stream. Column counts consumed bytes
// on the current line, so an error triggered by a byte reports the column
// just past it.
type Position struct {
	Line   int
	Column int
}

// String returns a string representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ErrorCode identifies one of the invalid-source conditions the scanner can
// report. The set is closed: every failure mode of parsing and emission maps
// to exactly one code.
type ErrorCode int

const (
	// Transport failures, surfaced unchanged.
	CodeReadFailed ErrorCode = iota
	CodeWriteFailed

	// Encoding failures.
	CodeUnsupportedEncoding

	// Lexical failures.
	CodeBrokenTag
	CodeEmptyTagName
	CodeUnsupportedTag
	CodeDoubleOpenBracket
	CodeInvalidForwardSlash
	CodeInvalidAttributeNameChar
	CodeInvalidBeforeAttributeValue
	CodeEqualsBeforeAttributeName
	CodeMismatchedTagClose
	CodeUnvaluedAttribute
	CodeDoctypeUnsupported
	CodeInvalidDeclarationQuestionMark
	CodeDoubleDeclaration
	CodeInvalidDeclarationName
	CodeInvalidDeclarationAttributes
	CodeInvalidNonSelfClosing
	CodeInvalidSelfClosing
	CodeStreamIncomplete

	// Structural failures.
	CodeNonRootProtocol
	CodeInterfaceNotProtocolChild
	CodeInterfaceChildNot
	CodeInvalidArgParent
	CodeInvalidEntryParent
	CodeInvalidDescriptionParent
	CodeInvalidCopyrightParent
	CodeInvalidAttributes
	CodeInvalidName
	CodeInvalidEntryValue
	CodeClobber
	CodeMissingAttributeAtFinal
)

var errorMessages = map[ErrorCode]string{
	CodeReadFailed:                     "read failed",
	CodeWriteFailed:                    "write failed",
	CodeUnsupportedEncoding:            "unsupported encoding",
	CodeBrokenTag:                      "tag broken by end of stream or stray byte",
	CodeEmptyTagName:                   "tag has no name",
	CodeUnsupportedTag:                 "unsupported tag",
	CodeDoubleOpenBracket:              "'<' inside a tag",
	CodeInvalidForwardSlash:            "'/' must be immediately followed by '>'",
	CodeInvalidAttributeNameChar:       "invalid byte in attribute name",
	CodeInvalidBeforeAttributeValue:    "attribute value must start with '\"'",
	CodeEqualsBeforeAttributeName:      "'=' before attribute name",
	CodeMismatchedTagClose:             "closing tag does not match open tag",
	CodeUnvaluedAttribute:              "attribute has no value",
	CodeDoctypeUnsupported:             "DOCTYPE is not supported",
	CodeInvalidDeclarationQuestionMark: "unexpected '?'",
	CodeDoubleDeclaration:              "more than one XML declaration",
	CodeInvalidDeclarationName:         "XML declaration must be named xml",
	CodeInvalidDeclarationAttributes:   "invalid XML declaration attributes",
	CodeInvalidNonSelfClosing:          "tag must be self-closing",
	CodeInvalidSelfClosing:             "tag must not be self-closing",
	CodeStreamIncomplete:               "stream ended with open tags",
	CodeNonRootProtocol:                "protocol must be the root element",
	CodeInterfaceNotProtocolChild:      "interface must be a child of protocol",
	CodeInterfaceChildNot:              "element must be a child of interface",
	CodeInvalidArgParent:               "arg must be a child of request or event",
	CodeInvalidEntryParent:             "entry must be a child of enum",
	CodeInvalidDescriptionParent:       "description is not allowed here",
	CodeInvalidCopyrightParent:         "copyright must be a child of protocol",
	CodeInvalidAttributes:              "invalid attributes",
	CodeInvalidName:                    "name is not a valid identifier",
	CodeInvalidEntryValue:              "entry value is not a valid integer",
	CodeClobber:                        "value set more than once",
	CodeMissingAttributeAtFinal:        "required attribute missing",
}

// String returns the message template for the code.
func (c ErrorCode) String() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", int(c))
}

// ParseError is the error type returned for every failed parse or emit. It
// carries the position the scanner had reached and whatever buffered token
// content is relevant to the failure.
type ParseError struct {
	Code  ErrorCode
	File  string   // input path, or "<stdin>"
	Pos   Position // position just past the offending byte
	Byte  byte     // offending byte, when one triggered the failure
	Token string   // buffered tag or attribute name, when relevant
	Err   error    // wrapped transport error for read/write failures
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Code.String())
	if e.Token != "" {
		fmt.Fprintf(&sb, " %q", e.Token)
	}
	if e.Byte != 0 {
		fmt.Fprintf(&sb, " (byte %q)", e.Byte)
	}
	if e.Pos.Line != 0 {
		fmt.Fprintf(&sb, " at %s", e.Pos)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap exposes the underlying transport error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or ok=false when err is not a
// *ParseError.
func CodeOf(err error) (ErrorCode, bool) {
	if pe, ok := err.(*ParseError); ok {
		return pe.Code, true
	}
	return 0, false
}
