package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/burakkaraceylan/vessel/wire"
)

// maxMonitorEvents bounds the scrollback kept in memory.
const maxMonitorEvents = 200

var (
	monitorTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	moduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	eventNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	payloadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	monitorHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))
)

type monitorModel struct {
	url          string
	conn         *websocket.Conn
	spin         spinner.Model
	lines        []string
	count        int
	disconnected bool
	width        int
	height       int
}

type eventMsg struct {
	event *wire.Event
}

type disconnectedMsg struct{}

func newMonitorModel(url string, conn *websocket.Conn) *monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &monitorModel{url: url, conn: conn, spin: sp}
}

func (m *monitorModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.conn.Close()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		m.count++
		m.lines = append(m.lines, formatEvent(msg.event))
		if len(m.lines) > maxMonitorEvents {
			m.lines = m.lines[len(m.lines)-maxMonitorEvents:]
		}

	case disconnectedMsg:
		m.disconnected = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(monitorTitleStyle.Render("vessel events"))
	b.WriteString("  " + payloadStyle.Render(m.url))
	if m.disconnected {
		b.WriteString("  " + monitorHelpStyle.Render("(disconnected)"))
	} else {
		b.WriteString("  " + m.spin.View())
	}
	b.WriteString(fmt.Sprintf("  %d events\n\n", m.count))

	visible := m.lines
	if m.height > 6 && len(visible) > m.height-4 {
		visible = visible[len(visible)-(m.height-4):]
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\n" + monitorHelpStyle.Render("q: quit"))
	return b.String()
}

func formatEvent(e *wire.Event) string {
	ts := time.Unix(e.Timestamp, 0).Format("15:04:05")
	payload := ""
	if e.Data != nil {
		if raw, err := json.Marshal(e.Data); err == nil {
			payload = string(raw)
		}
	}
	return fmt.Sprintf("%s  %s%s%s  %s",
		monitorHelpStyle.Render(ts),
		moduleStyle.Render(e.Module),
		eventNameStyle.Render("."),
		eventNameStyle.Render(e.Name),
		payloadStyle.Render(payload))
}
