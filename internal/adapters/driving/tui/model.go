// Package tui provides an interactive query console built on Bubble
// Tea. It drives the same query pipeline as the query command:
// questions are embedded, retrieval results are browsable, and the
// grounded answer is shown with its citations.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	answerStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// answerMsg carries an Ask result back into the update loop.
type answerMsg struct {
	query  string
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the query console.
type Model struct {
	service   driving.QueryService
	opts      domain.QueryOptions
	input     textinput.Model
	viewport  viewport.Model
	answer    *domain.Answer
	status    string
	cursor    int
	ready     bool
	waiting   bool
	lastQuery string
}

// New creates a query console over the given service.
func New(service driving.QueryService, summary string, opts domain.QueryOptions) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		opts:     opts,
		input:    ti,
		viewport: vp,
		status:   summary,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, query box, spacer
		vh := msg.Height - reserved - ah
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = errorStyle.Render("Error: " + msg.err.Error())
			// A degraded answer still carries retrieval results.
			if msg.answer != nil {
				m.answer = msg.answer
				m.cursor = 0
			}
		} else {
			m.answer = msg.answer
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = statusStyle.Render(fmt.Sprintf("Answer for %q (%d sources)", msg.query, len(msg.answer.Results)))
		}
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.String() == "esc" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = statusStyle.Render("Thinking...")
				return m, m.ask(q)
			}
		case "down":
			if m.answer != nil && len(m.answer.Results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answer.Results)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.answer.Results)) % len(m.answer.Results)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the query pipeline off the update loop.
func (m Model) ask(query string) tea.Cmd {
	service, opts := m.service, m.opts
	return func() tea.Msg {
		answer, err := service.Ask(context.Background(), query, opts)
		return answerMsg{query: query, answer: answer, err: err}
	}
}

// View renders the console layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("corpora query console")
	answer := answerStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	return header + "\n" + answer + "\n" + input + "\n" + m.status
}

// renderAnswer renders the answer text plus the selected source.
func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "Ask a question to search the corpus."
	}

	var b strings.Builder
	b.WriteString(m.answer.Text)

	if len(m.answer.Results) > 0 {
		r := m.answer.Results[m.cursor]
		b.WriteString("\n\n")
		b.WriteString(citationStyle.Render(fmt.Sprintf("Source %d/%d  %s  score=%.3f",
			m.cursor+1, len(m.answer.Results), r.Citation, r.Score)))
		b.WriteString("\n")
		b.WriteString(summaryStyle.Render(r.Content))
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
