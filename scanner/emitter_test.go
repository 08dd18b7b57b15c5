package scanner

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitString(t *testing.T, protocols []Protocol) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(&buf).Emit(protocols))
	return buf.String()
}

func TestEmitDeterministic(t *testing.T) {
	protocols := mustParse(t, `<protocol name="p"><interface name="i" version="2">`+
		`<request name="set_window_title"><arg name="title" type="string"/></request>`+
		`<event name="closed"/>`+
		`<enum name="mode"><entry name="windowed" value="0"/><entry name="full" value="1"/></enum>`+
		`</interface></protocol>`)

	first := emitString(t, protocols)
	second := emitString(t, protocols)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestEmitOpcodesNumberedFromZeroInSourceOrder(t *testing.T) {
	protocols := mustParse(t, `<protocol name="p"><interface name="i" version="1">`+
		`<request name="alpha"/><request name="beta"/><request name="gamma"/>`+
		`<event name="ping"/><event name="pong"/>`+
		`</interface></protocol>`)

	out := emitString(t, protocols)

	assert.Contains(t, out, "pub const RequestCode = enum(u16) {\n"+
		"            alpha = 0,\n"+
		"            beta = 1,\n"+
		"            gamma = 2,\n"+
		"            _,\n"+
		"        };\n")
	assert.Contains(t, out, "pub const EventCode = enum(u16) {\n"+
		"            ping = 0,\n"+
		"            pong = 1,\n"+
		"            _,\n"+
		"        };\n")
	assert.Contains(t, out, "pub const Request = union(RequestCode) {\n"+
		"            alpha: Alpha,\n"+
		"            beta: Beta,\n"+
		"            gamma: Gamma,\n"+
		"        };\n")
}

func TestEmitVersionConstant(t *testing.T) {
	out := emitString(t, mustParse(t, `<protocol name="p"><interface name="i" version="42"/></protocol>`))
	assert.Contains(t, out, "pub const version: u32 = 42;")
}

func TestEmitSinceConstant(t *testing.T) {
	out := emitString(t, mustParse(t,
		`<protocol name="p"><interface name="i" version="3"><request name="a" since="3"/><request name="b"/></interface></protocol>`))
	assert.Contains(t, out, "pub const A = struct {\n            pub const since: ?u32 = 3;\n        };")
	assert.Contains(t, out, "pub const B = struct {\n            pub const since: ?u32 = null;\n        };")
}

func TestEmitBitfieldPadding(t *testing.T) {
	protocols := []Protocol{{
		Name: "p",
		Interfaces: []Interface{{
			Name:    "i",
			Version: 1,
			Objects: []Object{&Enum{
				Name:     "flags",
				Bitfield: true,
				Entries: []Entry{
					{Name: "one", Value: "1"},
					{Name: "four", Value: "4"},
				},
			}},
		}},
	}}

	out := emitString(t, protocols)
	assert.Contains(t, out, "pub const Flags = packed struct(u32) {\n"+
		"            one: bool = false,\n"+
		"            _pad0: u1 = 0,\n"+
		"            four: bool = false,\n"+
		"            _pad1: u29 = 0,\n"+
		"        };\n")
}

func TestEmitBitfieldSortsEntries(t *testing.T) {
	protocols := []Protocol{{
		Name: "p",
		Interfaces: []Interface{{
			Name:    "i",
			Version: 1,
			Objects: []Object{&Enum{
				Name:     "flags",
				Bitfield: true,
				Entries: []Entry{
					{Name: "high", Value: "0x80000000"},
					{Name: "low", Value: "1"},
				},
			}},
		}},
	}}

	out := emitString(t, protocols)
	assert.Contains(t, out, "            low: bool = false,\n"+
		"            _pad0: u30 = 0,\n"+
		"            high: bool = false,\n"+
		"        };\n")
}

func TestEmitBitfieldRejectsNonPowerOfTwo(t *testing.T) {
	for _, value := range []string{"0", "3", "-1"} {
		protocols := []Protocol{{
			Name: "p",
			Interfaces: []Interface{{
				Name:    "i",
				Version: 1,
				Objects: []Object{&Enum{
					Name:     "flags",
					Bitfield: true,
					Entries:  []Entry{{Name: "bad", Value: value}},
				}},
			}},
		}}

		var buf bytes.Buffer
		err := NewEmitter(&buf).Emit(protocols)
		requireCode(t, err, CodeInvalidEntryValue)
	}
}

func TestEmitBitfieldRejectsOverlappingBits(t *testing.T) {
	protocols := []Protocol{{
		Name: "p",
		Interfaces: []Interface{{
			Name:    "i",
			Version: 1,
			Objects: []Object{&Enum{
				Name:     "flags",
				Bitfield: true,
				Entries: []Entry{
					{Name: "a", Value: "2"},
					{Name: "b", Value: "0x2"},
				},
			}},
		}},
	}}

	var buf bytes.Buffer
	err := NewEmitter(&buf).Emit(protocols)
	requireCode(t, err, CodeInvalidEntryValue)
}

func TestEmitEnumPreservesValueLiterals(t *testing.T) {
	out := emitString(t, mustParse(t, `<protocol name="p"><interface name="i" version="1">`+
		`<enum name="error"><entry name="bad_surface" value="0x2"/><entry name="bad_size" value="3"/></enum>`+
		`</interface></protocol>`))

	assert.Contains(t, out, "pub const Error = enum(u32) {\n"+
		"            bad_surface = 0x2,\n"+
		"            bad_size = 3,\n"+
		"        };\n")
}

func TestEmitEnumNegativeValuesUseSignedBacking(t *testing.T) {
	out := emitString(t, mustParse(t, `<protocol name="p"><interface name="i" version="1">`+
		`<enum name="delta"><entry name="down" value="-1"/><entry name="up" value="1"/></enum>`+
		`</interface></protocol>`))

	assert.Contains(t, out, "pub const Delta = enum(i32) {")
}

func TestEmitDocComments(t *testing.T) {
	out := emitString(t, mustParse(t,
		"<protocol name=\"p\"><interface name=\"i\" version=\"1\"><request name=\"go\">"+
			"<description summary=\"start moving\">\n  Starts the move.\n  Cannot be stopped.\n</description>"+
			"</request></interface></protocol>"))

	assert.Contains(t, out, "        /// start moving\n"+
		"        ///\n"+
		"        /// Starts the move.\n"+
		"        /// Cannot be stopped.\n"+
		"        pub const Go = struct {\n")
}

func TestEmitArgDocLines(t *testing.T) {
	out := emitString(t, mustParse(t, `<protocol name="p"><interface name="i" version="1"><request name="bind">`+
		`<arg name="id" type="new_id" interface="i" summary="bound object"/>`+
		`<arg name="target" type="object" allow-null="true"/>`+
		`</request></interface></protocol>`))

	assert.Contains(t, out, "/// arg id: new_id interface=i - bound object\n")
	assert.Contains(t, out, "/// arg target: object allow-null=true\n")
}

func TestEmitHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	em := NewEmitter(&buf)
	protocols := mustParse(t, `<protocol name="a"/>`)
	require.NoError(t, em.Emit(protocols))
	require.NoError(t, em.Emit(mustParse(t, `<protocol name="b"/>`)))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, generatedHeader))
	assert.Contains(t, out, "pub const a = struct {")
	assert.Contains(t, out, "pub const b = struct {")
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"set_window_title": "SetWindowTitle",
		"sync":             "Sync",
		"get_registry":     "GetRegistry",
		"_private":         "Private",
		"a__b":             "AB",
	}
	for in, want := range tests {
		if got := camelCase(in); got != want {
			t.Errorf("camelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("pipe closed")
}

func TestEmitWriteFailureSurfaced(t *testing.T) {
	em := NewEmitter(failingWriter{})
	err := em.Emit(mustParse(t, `<protocol name="p"/>`))
	pe := requireCode(t, err, CodeWriteFailed)
	assert.EqualError(t, pe.Unwrap(), "pipe closed")
}
