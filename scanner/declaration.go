package scanner

import (
	"strconv"
	"strings"
)

// parseDeclarationAttributes validates the attribute list of the XML
// declaration. version="M.N" is required with M and N decimal 0-255;
// encoding must be UTF-8 when present; standalone must be yes or no.
func (s *Scanner) parseDeclarationAttributes() (*Declaration, error) {
	var d Declaration
	var haveVersion, haveEncoding, haveStandalone bool

	for i := 0; i < s.attrs.count(); i++ {
		name := s.attrs.name(i)
		value := s.attrs.value(i)
		fail := func(code ErrorCode) *ParseError {
			return &ParseError{Code: code, File: s.file, Pos: s.attrs.pos(i), Token: name}
		}

		switch name {
		case "version":
			if haveVersion {
				return nil, fail(CodeInvalidDeclarationAttributes)
			}
			major, minor, ok := parseDeclarationVersion(value)
			if !ok {
				return nil, fail(CodeInvalidDeclarationAttributes)
			}
			d.Major, d.Minor = major, minor
			haveVersion = true

		case "encoding":
			if haveEncoding {
				return nil, fail(CodeInvalidDeclarationAttributes)
			}
			if value != "UTF-8" {
				return nil, fail(CodeUnsupportedEncoding)
			}
			d.Encoding = value
			haveEncoding = true

		case "standalone":
			if haveStandalone {
				return nil, fail(CodeInvalidDeclarationAttributes)
			}
			switch value {
			case "yes":
				yes := true
				d.Standalone = &yes
			case "no":
				no := false
				d.Standalone = &no
			default:
				return nil, fail(CodeInvalidDeclarationAttributes)
			}
			haveStandalone = true

		default:
			return nil, fail(CodeInvalidDeclarationAttributes)
		}
	}

	if !haveVersion {
		return nil, s.err(CodeInvalidDeclarationAttributes)
	}
	return &d, nil
}

func parseDeclarationVersion(value string) (major, minor uint8, ok bool) {
	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		return 0, 0, false
	}
	m, err := strconv.ParseUint(value[:dot], 10, 8)
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(value[dot+1:], 10, 8)
	if err != nil {
		return 0, 0, false
	}
	return uint8(m), uint8(n), true
}
