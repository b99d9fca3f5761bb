package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zavdimka/cstruct"
	"github.com/zavdimka/cstruct/dump"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	reg      *cstruct.Registry
	input    []byte
	result   string
	structs  []structInfo
	hexInput textinput.Model
	selected int
	state    modelState
}

type structInfo struct {
	name string
	size int
}

type modelState int

const (
	stateSelectStruct modelState = iota
	stateLayout
	stateInputHex
	stateShowResult
)

func newInteractiveModel(reg *cstruct.Registry, initial string, input []byte) *interactiveModel {
	m := &interactiveModel{
		reg:   reg,
		input: input,
		state: stateSelectStruct,
	}
	for i, name := range reg.Names() {
		size, _ := reg.Size(name)
		m.structs = append(m.structs, structInfo{name: name, size: size})
		if name == initial {
			m.selected = i
			m.state = stateLayout
		}
	}
	return m
}

type decodedMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateInputHex {
			return m.updateHexInput(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectStruct && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectStruct && m.selected < len(m.structs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectStruct:
				if len(m.structs) > 0 {
					m.state = stateLayout
				}
			case stateLayout:
				if len(m.input) > 0 {
					return m, m.decode(m.input)
				}
				m.prepareHexInput()
			case stateShowResult:
				m.state = stateLayout
				m.result = ""
				m.err = nil
			}

		case "x":
			if m.state == stateLayout || m.state == stateShowResult {
				m.prepareHexInput()
			}

		case "esc":
			switch m.state {
			case stateLayout:
				m.state = stateSelectStruct
			case stateShowResult:
				m.state = stateLayout
				m.result = ""
				m.err = nil
			}
		}

	case decodedMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	return m, nil
}

func (m *interactiveModel) updateHexInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateLayout
		return m, nil
	case "enter":
		text := strings.Join(strings.Fields(m.hexInput.Value()), "")
		data, err := hex.DecodeString(text)
		if err != nil {
			return m, func() tea.Msg { return decodedMsg{err: fmt.Errorf("invalid hex: %w", err)} }
		}
		return m, m.decode(data)
	}

	var cmd tea.Cmd
	m.hexInput, cmd = m.hexInput.Update(msg)
	return m, cmd
}

func (m *interactiveModel) prepareHexInput() {
	s := m.structs[m.selected]
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("%d bytes as hex", s.size)
	ti.Prompt = "bytes: "
	ti.Width = 60
	ti.Focus()
	m.hexInput = ti
	m.state = stateInputHex
}

func (m *interactiveModel) decode(data []byte) tea.Cmd {
	name := m.structs[m.selected].name
	return func() tea.Msg {
		v, err := m.reg.Unpack(data, name)
		if err != nil {
			return decodedMsg{err: err}
		}
		return decodedMsg{result: dump.ValueString(v)}
	}
}

func (m *interactiveModel) View() string {
	if len(m.structs) == 0 {
		return errorStyle.Render("No structures declared.\n\nPress q to quit.")
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("cstruct"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%d structures", len(m.structs)))
	b.WriteString("\n\n")

	s := m.structs[m.selected]

	switch m.state {
	case stateSelectStruct:
		b.WriteString("Select a structure:\n\n")
		for i, st := range m.structs {
			line := m.formatStruct(st)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + st.name + fmt.Sprintf(" (%d bytes)", st.size)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter layout • q quit"))

	case stateLayout:
		b.WriteString(m.layout(s.name))
		b.WriteString("\n")
		if len(m.input) > 0 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("enter decode input (%d bytes) • x enter hex • esc back • q quit", len(m.input))))
		} else {
			b.WriteString(helpStyle.Render("enter/x enter hex • esc back • q quit"))
		}

	case stateInputHex:
		b.WriteString(fmt.Sprintf("Decode %s\n\n", nameStyle.Render(s.name)))
		b.WriteString(m.hexInput.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter decode • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Decoded %s:\n\n", nameStyle.Render(s.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.result)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • x enter hex • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) layout(name string) string {
	var b strings.Builder
	if err := m.reg.Dump(&b, name, dump.WithRenderer(lipgloss.DefaultRenderer())); err != nil {
		return errorStyle.Render(err.Error())
	}
	return b.String()
}

func (m *interactiveModel) formatStruct(s structInfo) string {
	return nameStyle.Render(s.name) + " " + sizeStyle.Render(fmt.Sprintf("(%d bytes)", s.size))
}

func runInteractive(reg *cstruct.Registry, initial string, input []byte) error {
	p := tea.NewProgram(newInteractiveModel(reg, initial, input), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
