package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenReader returns the latest completed screen, nil when none exists.
type ScreenReader interface {
	LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

// AdvisorQuerier answers free-form questions with the screen as context.
type AdvisorQuerier interface {
	Ask(ctx context.Context, chatID int64, userMessage string) (string, error)
}

// Services bundles everything a TUI session needs.
type Services struct {
	Screens  ScreenReader
	Advisor  AdvisorQuerier
	UserID   int64
	Username string
}

type screenLoadedMsg struct {
	snap *domain.ScreenSnapshot
	err  error
}

type advisorReplyMsg struct {
	reply string
	err   error
}

type focusArea int

const (
	focusTable focusArea = iota
	focusAsk
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	replyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	tableStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// AppModel renders the latest sentiment screen as a navigable table with an
// optional advisor prompt below it.
type AppModel struct {
	svc   Services
	table table.Model
	ask   textinput.Model

	snap      *domain.ScreenSnapshot
	focus     focusArea
	reply     string
	statusMsg string
	asking    bool

	width  int
	height int
}

func NewAppModel(svc Services) *AppModel {
	columns := []table.Column{
		{Title: "Symbol", Width: 10},
		{Title: "Score", Width: 10},
		{Title: "Evidence", Width: 10},
		{Title: "Updated", Width: 20},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	ask := textinput.New()
	ask.Placeholder = "ask about the screen..."
	ask.CharLimit = 280

	return &AppModel{
		svc:       svc,
		table:     t,
		ask:       ask,
		statusMsg: "loading screen...",
	}
}

func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if height > 10 {
		m.table.SetHeight(height - 8)
	}
}

func (m *AppModel) Init() tea.Cmd {
	return m.loadScreen
}

func (m *AppModel) loadScreen() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := m.svc.Screens.LatestScreen(ctx)
	return screenLoadedMsg{snap: snap, err: err}
}

func (m *AppModel) askAdvisor(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		reply, err := m.svc.Advisor.Ask(ctx, m.svc.UserID, question)
		return advisorReplyMsg{reply: reply, err: err}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case screenLoadedMsg:
		if msg.err != nil {
			m.statusMsg = errStyle.Render(fmt.Sprintf("load failed: %v", msg.err))
			return m, nil
		}
		if msg.snap == nil {
			m.statusMsg = "no screen has completed yet"
			return m, nil
		}
		m.snap = msg.snap
		m.table.SetRows(screenRows(msg.snap))
		m.statusMsg = fmt.Sprintf("run %d, %d rows", msg.snap.RunID, len(msg.snap.Rows))
		return m, nil

	case advisorReplyMsg:
		m.asking = false
		if msg.err != nil {
			m.reply = errStyle.Render(fmt.Sprintf("advisor: %v", msg.err))
		} else {
			m.reply = msg.reply
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.focus == focusTable || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		case "r":
			if m.focus == focusTable {
				m.statusMsg = "refreshing..."
				return m, m.loadScreen
			}
		case "tab":
			if m.svc.Advisor == nil {
				return m, nil
			}
			if m.focus == focusTable {
				m.focus = focusAsk
				m.table.Blur()
				m.ask.Focus()
			} else {
				m.focus = focusTable
				m.ask.Blur()
				m.table.Focus()
			}
			return m, nil
		case "enter":
			if m.focus == focusAsk && !m.asking {
				question := strings.TrimSpace(m.ask.Value())
				if question == "" {
					return m, nil
				}
				m.asking = true
				m.reply = ""
				m.ask.SetValue("")
				return m, m.askAdvisor(question)
			}
		}
	}

	var cmd tea.Cmd
	if m.focus == focusAsk {
		m.ask, cmd = m.ask.Update(msg)
	} else {
		m.table, cmd = m.table.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Kraken Screener"))
	if m.svc.Username != "" {
		sb.WriteString(dimStyle.Render("  " + m.svc.Username))
	}
	sb.WriteString("\n")
	sb.WriteString(tableStyle.Render(m.table.View()))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(m.statusMsg))
	sb.WriteString("\n")

	if m.svc.Advisor != nil {
		sb.WriteString(m.ask.View())
		sb.WriteString("\n")
		if m.asking {
			sb.WriteString(dimStyle.Render("thinking..."))
		} else if m.reply != "" {
			sb.WriteString(replyStyle.Render(m.reply))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(dimStyle.Render("r refresh · tab ask · q quit"))
	return sb.String()
}

func screenRows(snap *domain.ScreenSnapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		score := "-"
		if row.Score != nil {
			score = fmt.Sprintf("%+.4f", *row.Score)
		}
		rows = append(rows, table.Row{
			screener.Normalize(row.Symbol),
			score,
			fmt.Sprintf("%d", row.EvidenceCount),
			row.UpdatedAtUTC.UTC().Format("2006-01-02 15:04"),
		})
	}
	return rows
}
