package scanner

import (
	"bufio"
	"io"
)

// byteSource wraps an opaque byte stream and yields one byte at a time while
// tracking line and column. A newline is '\r', or '\n' not preceded by
// '\r', so CRLF advances the line once.
type byteSource struct {
	r    *bufio.Reader
	file string
	line int
	col  int
	last byte
}

func newByteSource(r io.Reader, file string) *byteSource {
	return &byteSource{
		r:    bufio.NewReader(r),
		file: file,
		line: 1,
	}
}

func (s *byteSource) pos() Position {
	return Position{Line: s.line, Column: s.col}
}

// next returns the next byte of the stream. eof is true once the last byte
// has been consumed, and stays true on every later call. Transport failures
// surface as CodeReadFailed with the underlying error attached.
func (s *byteSource) next() (b byte, eof bool, err error) {
	b, rerr := s.r.ReadByte()
	if rerr == io.EOF {
		return 0, true, nil
	}
	if rerr != nil {
		return 0, false, &ParseError{
			Code: CodeReadFailed,
			File: s.file,
			Pos:  s.pos(),
			Err:  rerr,
		}
	}

	switch {
	case b == '\r':
		s.line++
		s.col = 0
	case b == '\n':
		if s.last != '\r' {
			s.line++
			s.col = 0
		}
	default:
		s.col++
	}
	s.last = b

	return b, false, nil
}
