package main

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/typeinf"
	"github.com/wippyai/typeinf/decl"
	"github.com/wippyai/typeinf/decl/witdecl"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectType modelState = iota
	stateInputExpr
	stateShowResult
)

type interactiveModel struct {
	err      error
	session  *typeinf.Session
	subject  string
	result   typeResult
	names    []string
	input    textinput.Model
	selected int
	state    modelState
}

type typeResult struct {
	decl   string
	size   string
	types  string
	fields string
}

type resultMsg struct {
	err     error
	subject string
	result  typeResult
}

func runInteractive(s *typeinf.Session, p *witdecl.Parser) error {
	prog := tea.NewProgram(newInteractiveModel(s, witNames(p)), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// witNames lists the named typedefs of the loaded resolve.
func witNames(p *witdecl.Parser) []string {
	if p == nil || p.Resolve == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, td := range p.Resolve.TypeDefs {
		if td == nil || td.Name == nil || seen[*td.Name] {
			continue
		}
		seen[*td.Name] = true
		names = append(names, *td.Name)
	}
	sort.Strings(names)
	return names
}

func newInteractiveModel(s *typeinf.Session, names []string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "list<tuple<u32, string>>"
	ti.Prompt = "type: "
	ti.Width = 60
	return &interactiveModel{
		session: s,
		names:   names,
		input:   ti,
		state:   stateSelectType,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) describe(text string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		_, tb, fb, err := s.ParseDecl(text, 0)
		if err != nil {
			return resultMsg{subject: text, err: err}
		}
		printed, err := s.PrintType(tb, fb, "", decl.PrintMulti|decl.PrintSemi)
		if err != nil {
			return resultMsg{subject: text, err: err}
		}
		r := typeResult{
			decl:   printed,
			size:   "unknown",
			types:  hex.EncodeToString(tb),
			fields: hex.EncodeToString(fb),
		}
		if size, ok := s.CalcTypeSize(tb); ok {
			r.size = fmt.Sprintf("%d bytes", size)
		}
		return resultMsg{subject: text, result: r}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if m.state == stateInputExpr {
			switch key {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				text := strings.TrimSpace(m.input.Value())
				if text == "" {
					return m, nil
				}
				return m, m.describe(text)
			case "esc":
				m.input.Blur()
				m.state = stateSelectType
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				if len(m.names) > 0 {
					return m, m.describe(m.names[m.selected])
				}
			case stateShowResult:
				m.state = stateSelectType
				m.err = nil
			}

		case "tab", "e":
			m.state = stateInputExpr
			return m, m.input.Focus()

		case "esc":
			if m.state == stateShowResult {
				m.state = stateSelectType
				m.err = nil
			}
		}

	case resultMsg:
		m.subject = msg.subject
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		m.input.Blur()
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Type Browser"))
	b.WriteString(fmt.Sprintf(" %d WIT types\n\n", len(m.names)))

	switch m.state {
	case stateSelectType:
		if len(m.names) == 0 {
			b.WriteString("No named WIT types loaded. Press tab to enter an expression.\n")
		}
		for i, name := range m.names {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + nameStyle.Render(name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter describe • tab expression • q quit"))

	case stateInputExpr:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter describe • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("%s\n\n", nameStyle.Render(m.subject)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(typeStyle.Render(m.result.decl))
			b.WriteString("\n\n")
			b.WriteString(resultStyle.Render("size:   " + m.result.size))
			b.WriteString("\n")
			b.WriteString(resultStyle.Render("type:   " + m.result.types))
			b.WriteString("\n")
			b.WriteString(resultStyle.Render("fields: " + m.result.fields))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • tab expression • q quit"))
	}

	return b.String()
}
