package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteSourcePositions(t *testing.T) {
	src := newByteSource(strings.NewReader("ab\ncd\r\nef"), "test.xml")

	want := []struct {
		b    byte
		line int
		col  int
	}{
		{'a', 1, 1},
		{'b', 1, 2},
		{'\n', 2, 0},
		{'c', 2, 1},
		{'d', 2, 2},
		{'\r', 3, 0},
		{'\n', 3, 0}, // LF after CR is the same newline
		{'e', 3, 1},
		{'f', 3, 2},
	}

	for _, w := range want {
		b, eof, err := src.next()
		require.NoError(t, err)
		require.False(t, eof)
		assert.Equal(t, w.b, b)
		assert.Equal(t, Position{Line: w.line, Column: w.col}, src.pos(), "after byte %q", w.b)
	}

	_, eof, err := src.next()
	require.NoError(t, err)
	assert.True(t, eof)
}

func TestByteSourceLoneCarriageReturnIsNewline(t *testing.T) {
	src := newByteSource(strings.NewReader("a\rb"), "test.xml")
	for i := 0; i < 2; i++ {
		_, _, err := src.next()
		require.NoError(t, err)
	}
	b, _, err := src.next()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), b)
	assert.Equal(t, Position{Line: 2, Column: 1}, src.pos())
}

func TestByteSourceReadFailure(t *testing.T) {
	src := newByteSource(failingReader{}, "test.xml")
	_, _, err := src.next()
	requireCode(t, err, CodeReadFailed)
}
