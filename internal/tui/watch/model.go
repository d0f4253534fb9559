package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattjoyce/openphone-gw/internal/storage"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	store     *storage.Store
	healthURL string

	width  int
	height int

	// State
	gateway        GatewayState
	contacts       int64
	communications int64
	lastSeenID     int64

	// Live indicators
	ticker  Ticker
	spinner Spinner

	// UI state
	theme Theme
	table table.Model

	// Error display
	lastError string
}

// New creates a watch model over the mirror database. healthURL points at
// the gateway's /health endpoint.
func New(store *storage.Store, healthURL string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: " ", Width: 2},
			{Title: "From", Width: 16},
			{Title: "Name", Width: 18},
			{Title: "Text / Duration", Width: 38},
			{Title: "At", Width: 15},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		store:     store,
		healthURL: healthURL,
		ticker:    NewTicker(),
		spinner:   NewSpinner(),
		theme:     NewDefaultTheme(),
		table:     t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return fetchSnapshot(m.store) },
		func() tea.Msg { return fetchHealth(m.healthURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(m.width - 6)

	case tickMsg:
		m.ticker.Tick()
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case snapshotMsg:
		m.contacts = msg.contacts
		m.communications = msg.communications
		if len(msg.recent) > 0 && msg.recent[0].ID > m.lastSeenID {
			// Rows present before the first snapshot are history, not
			// activity; only later arrivals light the spinner.
			if m.lastSeenID != 0 {
				m.spinner.OnDelivery()
			}
			m.lastSeenID = msg.recent[0].ID
		}
		m.table.SetRows(m.summaryRows(msg.recent))
		m.lastError = ""

		return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
			return fetchSnapshot(m.store)
		})

	case healthMsg:
		m.gateway.Status = msg.Status
		m.gateway.Connected = true
		m.gateway.LastCheck = time.Now()

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.healthURL)
		})

	case gatewayDownMsg:
		m.gateway.Connected = false

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.healthURL)
		})

	case errMsg:
		m.lastError = msg.Error()
		// Retry the mirror read in 5s
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchSnapshot(m.store)
		})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) summaryRows(recent []storage.CommunicationSummary) []table.Row {
	rows := make([]table.Row, 0, len(recent))
	for _, cs := range recent {
		kind := m.theme.Message.Render("✉")
		detail := cs.Text
		if cs.Type == "call" {
			kind = m.theme.Call.Render("☎")
			detail = "-"
			if cs.Duration != nil {
				detail = formatDuration(time.Duration(*cs.Duration) * time.Second)
			}
		}

		at := cs.Timestamp
		if ts, err := time.Parse(time.RFC3339Nano, cs.Timestamp); err == nil {
			at = ts.Local().Format("Jan 02 15:04:05")
		}

		rows = append(rows, table.Row{kind, cs.PhoneNumber, cs.Name, detail, at})
	}
	return rows
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := renderHeader(m.gateway, m.contacts, m.communications, m.ticker, m.spinner, m.theme, m.width)

	communications := m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("COMMUNICATIONS"),
			m.table.View(),
		),
	)

	// Error bar
	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Scroll Communications")

	parts := []string{header, communications}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}
