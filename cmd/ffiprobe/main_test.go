package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ffi-bridge/binding"
	"github.com/wippyai/ffi-bridge/handle"
	"github.com/wippyai/ffi-bridge/native"
	"github.com/wippyai/ffi-bridge/signal"
	"github.com/wippyai/ffi-bridge/surface"
)

// sumWASM imports ffi.add and exports it as sum next to one page of
// memory.
var sumWASM = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // type: (i32, i32) -> i32
	0x02, 0x0b, 0x01, 0x03, 'f', 'f', 'i', 0x03, 'a', 'd', 'd', 0x00, 0x00, // import ffi.add
	0x03, 0x02, 0x01, 0x00, // function section
	0x05, 0x03, 0x01, 0x00, 0x01, // memory: 1 page
	0x07, 0x10, 0x02, // export section
	0x03, 's', 'u', 'm', 0x00, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x20, 0x00, 0x20, 0x01, 0x10, 0x00, 0x0b, // local.get 0; local.get 1; call 0
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "reverse_string")
	assert.Contains(t, out, "sentinel")
	assert.Contains(t, out, "(input: cstring) -> owned cstring")

	out, err = run(t, "list", "--convention", "tagged")
	require.NoError(t, err)
	assert.Contains(t, out, "divide")
	assert.NotContains(t, out, "reverse_string")

	_, err = run(t, "list", "--convention", "bogus")
	assert.Error(t, err)
}

func TestCall(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"add", "2", "3"}, "5\n"},
		{[]string{"reverse_string", "Rust"}, "\"tsuR\"\n"},
		{[]string{"sorted_copy", "3,1,2"}, "[1, 2, 3]\n"},
		{[]string{"point_midpoint", "0,0", "2,4"}, "(1, 2)\n"},
		{[]string{"get_version"}, "1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			out, err := run(t, append([]string{"call"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCall_Errors(t *testing.T) {
	_, err := run(t, "call", "divide", "1", "0")
	assert.Equal(t, signal.DomainError, signal.CodeOf(err))

	_, err = run(t, "call", "missing")
	assert.Error(t, err)

	_, err = run(t, "call", "add", "1")
	assert.Error(t, err)

	_, err = run(t, "call")
	assert.Error(t, err)
}

func TestHeader(t *testing.T) {
	out, err := run(t, "header", "--library", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "#ifndef DEMO_H")
	assert.Contains(t, out, "char* reverse_string(const char* input);")
}

func TestManifest_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffi.json")
	out, err := run(t, "manifest", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m struct {
		Library   string            `json:"library"`
		Functions []json.RawMessage `json:"functions"`
	}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "ffibridge", m.Library)
	assert.Len(t, m.Functions, surface.Default().Len())
}

func TestGuest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.wasm")
	require.NoError(t, os.WriteFile(path, sumWASM, 0o600))

	out, err := run(t, "guest", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sum(i32, i32) -> (i32)")
	assert.Contains(t, out, "import ffi.add")

	out, err = run(t, "guest", path, "sum", "40", "2")
	require.NoError(t, err)
	assert.Equal(t, "42 (0x2a)\n", out)

	out, err = run(t, "guest", path, "sum", "2147483647", "1")
	require.NoError(t, err)
	assert.Equal(t, "2147483647 (0x7fffffff)\n", out)

	_, err = run(t, "guest", path, "missing")
	assert.Error(t, err)
	_, err = run(t, "guest", path, "sum", "1")
	assert.Error(t, err)
}

func TestLogFlags(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "list")
	assert.Error(t, err)
	_, err = run(t, "--log-format", "json", "--log-level", "debug", "list")
	assert.NoError(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, `"a\nb"`, formatValue("a\nb"))
	assert.Equal(t, "handle 0x1", formatValue(handle.Handle(1)))
	assert.Equal(t, "(1.5, -2)", formatValue(&native.Point{X: 1.5, Y: -2}))
	assert.Equal(t, "[]", formatValue([]int32{}))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, "ok", formatResults(nil))
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestProbeModel(t *testing.T) {
	s, err := binding.NewSession(binding.Options{})
	require.NoError(t, err)
	defer s.Close()

	m := newProbeModel(s)
	for m.funcs[m.selected].Name != "add" {
		m.Update(key("down"))
	}

	m.Update(key("enter"))
	require.Equal(t, stateArgs, m.state)
	require.Len(t, m.inputs, 2)
	m.inputs[0].SetValue("20")
	m.inputs[1].SetValue("22")

	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, stateOutcome, m.state)
	assert.Equal(t, "42", m.result)
	assert.NoError(t, m.err)
	assert.Contains(t, m.View(), "42")

	m.Update(key("enter"))
	assert.Equal(t, statePick, m.state)
	assert.Nil(t, m.inputs)

	// q is typed into a field, not treated as quit.
	m.Update(key("enter"))
	_, cmd = m.Update(key("q"))
	assert.Equal(t, stateArgs, m.state)
	assert.Equal(t, "q", m.inputs[0].Value())
	_ = cmd

	m.Update(key("esc"))
	assert.Equal(t, statePick, m.state)
}

func TestProbeModel_ShowsFailures(t *testing.T) {
	s, err := binding.NewSession(binding.Options{})
	require.NoError(t, err)
	defer s.Close()

	m := newProbeModel(s)
	for m.funcs[m.selected].Name != "parse_int" {
		m.Update(key("down"))
	}
	m.Update(key("enter"))
	m.inputs[0].SetValue("twelve")
	_, cmd := m.Update(key("enter"))
	m.Update(cmd())

	assert.Equal(t, stateOutcome, m.state)
	assert.Equal(t, signal.InvalidInput, signal.CodeOf(m.err))
	assert.Contains(t, m.View(), "last_error_code: invalid_input")
}
