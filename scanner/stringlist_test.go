package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringListArena(t *testing.T) {
	var l stringList
	l.push([]byte("name"))
	l.push([]byte(""))
	l.push([]byte("value"))

	assert.Equal(t, 3, l.count())
	assert.Equal(t, "name", string(l.at(0)))
	assert.Equal(t, "", string(l.at(1)))
	assert.Equal(t, "value", string(l.at(2)))
}

func TestStringListClearReusesArena(t *testing.T) {
	var l stringList
	l.push([]byte("abcdef"))
	l.clear()

	assert.Zero(t, l.count())
	assert.Zero(t, len(l.arena))

	// The backing array survives the clear.
	assert.GreaterOrEqual(t, cap(l.arena), 6)

	l.push([]byte("xy"))
	assert.Equal(t, "xy", string(l.at(0)))
}

func TestAttributesPending(t *testing.T) {
	var a attributes
	assert.False(t, a.pending())

	a.pushName([]byte("version"))
	assert.True(t, a.pending())

	a.pushValue([]byte("1"))
	assert.False(t, a.pending())
	assert.Equal(t, 1, a.count())
	assert.Equal(t, "version", a.name(0))
	assert.Equal(t, "1", a.value(0))
}

func TestAttributesPushedBuffersAreCopied(t *testing.T) {
	var a attributes
	buf := []byte("name")
	a.pushName(buf)
	buf[0] = 'X'
	assert.Equal(t, "name", a.name(0))
}
