package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/binding"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/surface"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	sigStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// pageSize is the number of symbols shown at once in the picker.
const pageSize = 16

type modelState int

const (
	statePick modelState = iota
	stateArgs
	stateOutcome
)

type probeModel struct {
	err      error
	session  *binding.Session
	funcs    []*surface.Function
	params   []abi.Param
	inputs   []textinput.Model
	result   string
	selected int
	focus int
	state    modelState
}

type outcomeMsg struct {
	err    error
	result string
}

func newProbeModel(s *binding.Session) *probeModel {
	return &probeModel{
		session: s,
		funcs:   s.Registry().Functions(),
		state:   statePick,
	}
}

func (m *probeModel) Init() tea.Cmd { return nil }

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == statePick && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == statePick && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case statePick:
				m.editArgs()
				if len(m.inputs) == 0 {
					return m, m.invoke
				}
				m.state = stateArgs
				return m, textinput.Blink

			case stateArgs:
				return m, m.invoke

			case stateOutcome:
				m.reset()
			}
			return m, nil

		case "tab", "shift+tab":
			if m.state == stateArgs && len(m.inputs) > 1 {
				step := 1
				if msg.String() == "shift+tab" {
					step = len(m.inputs) - 1
				}
				m.inputs[m.focus].Blur()
				m.focus = (m.focus + step) % len(m.inputs)
				return m, m.inputs[m.focus].Focus()
			}

		case "esc":
			if m.state != statePick {
				m.reset()
				return m, nil
			}
		}

	case outcomeMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateOutcome
		return m, nil
	}

	if m.state == stateArgs {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *probeModel) reset() {
	m.state = statePick
	m.inputs = nil
	m.params = nil
	m.result = ""
	m.err = nil
}

func (m *probeModel) editArgs() {
	m.params = binding.Inputs(m.funcs[m.selected])
	m.inputs = make([]textinput.Model, len(m.params))
	for i, p := range m.params {
		ti := textinput.New()
		ti.Placeholder = placeholder(p.Type)
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focus = 0
}

// placeholder hints at the textual form binding.ParseArgs accepts.
func placeholder(t abi.Type) string {
	switch {
	case t.Kind == abi.KindStruct, t.Pointee == abi.PointeeStruct:
		return "x,y"
	case t.Pointee == abi.PointeeArray:
		return "1,2,3"
	case t.Pointee == abi.PointeeBytes && !t.Owned():
		return "buffer size"
	case t.IsPointer() && t.Owned():
		return "address"
	default:
		return t.String()
	}
}

func (m *probeModel) invoke() tea.Msg {
	f := m.funcs[m.selected]
	raw := make([]string, len(m.inputs))
	for i := range m.inputs {
		raw[i] = m.inputs[i].Value()
	}

	args, err := binding.ParseArgs(f, raw)
	if err != nil {
		return outcomeMsg{err: err}
	}
	results, err := m.session.Call(context.Background(), f.Name, args...)
	return outcomeMsg{result: formatResults(results), err: err}
}

func (m *probeModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d symbols\n\n", headerStyle.Render("ffiprobe"), len(m.funcs))

	switch m.state {
	case statePick:
		start := max(0, min(m.selected-pageSize/2, len(m.funcs)-pageSize))
		end := min(len(m.funcs), start+pageSize)
		for i := start; i < end; i++ {
			if i == m.selected {
				b.WriteString(cursorStyle.Render("> " + m.funcs[i].Name))
				b.WriteString(" " + sigStyle.Render(m.funcs[i].Signature.String()))
			} else {
				b.WriteString("  " + formatFunc(m.funcs[i]))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.funcs[m.selected].Doc))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("j/k move · enter call · q quit"))

	case stateArgs:
		f := m.funcs[m.selected]
		fmt.Fprintf(&b, "%s(\n", nameStyle.Render(f.Name))
		for i, field := range m.inputs {
			fmt.Fprintf(&b, "  %s %s\n", field.View(), sigStyle.Render(m.params[i].Type.String()))
		}
		b.WriteString(")\n")
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("tab/shift+tab field · enter call · esc cancel"))

	case stateOutcome:
		f := m.funcs[m.selected]
		fmt.Fprintf(&b, "%s => ", nameStyle.Render(f.Name))
		if m.err != nil {
			b.WriteString(failStyle.Render("failed: " + m.err.Error()))
		} else {
			b.WriteString(okStyle.Render(m.result))
		}
		fmt.Fprintf(&b, "\n%s", dimStyle.Render("last_error_code: "+m.session.LastErrorCode().String()))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter back to list · q quit"))
	}

	return b.String()
}

func formatFunc(f *surface.Function) string {
	return nameStyle.Render(f.Name) + " " + sigStyle.Render(f.Signature.String())
}

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Browse and call the surface in a terminal UI",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(cmd.OutOrStdout()) {
				return errors.InvalidInput(errors.PhaseConfig, "interactive mode needs a terminal")
			}

			s, err := binding.NewSession(a.cfg.Session())
			if err != nil {
				return err
			}
			defer s.Close()

			p := tea.NewProgram(newProbeModel(s), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}
