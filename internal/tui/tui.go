// Package tui shows the relayed control stream in a terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/gesture"
	"github.com/ayusman/handpilot/internal/steering"
)

const (
	headerHeight = 4 // title, status, badge row, blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	angleSeries  = "angle"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	badgeStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("0"))
	goStyle     = badgeStyle.Background(lipgloss.Color("46"))
	stopStyle   = badgeStyle.Background(lipgloss.Color("196"))
	angleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
)

// Messages from the client
type recordMsg control.Record
type logMsg string

// Model is the dashboard state.
type Model struct {
	records  <-chan control.Record
	logCh    <-chan string
	chart    *streamlinechart.Model
	latest   control.Record
	seen     bool
	count    int
	status   string
	width    int
	height   int
	logs     []string
	quitting bool
}

// New creates a dashboard reading records and log lines from the channels.
func New(records <-chan control.Record, logs <-chan string) Model {
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(steering.Min, steering.Max),
	)
	chart.SetDataSetStyles(angleSeries, runes.ThinLineStyle,
		lipgloss.NewStyle().Foreground(lipgloss.Color("51")))

	return Model{
		records: records,
		logCh:   logs,
		chart:   &chart,
		latest:  control.NewState().Record(),
		status:  "waiting for relay",
	}
}

func waitForRecord(ch <-chan control.Record) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return logMsg("stream closed")
		}
		return recordMsg(rec)
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(msg)
	}
}

func (m *Model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *Model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12
	}
	width = max(40, m.width-borderSize-2)
	height = max(6, m.height-headerHeight-footerHeight-borderSize)
	return width, height
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForRecord(m.records),
		waitForLog(m.logCh),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case recordMsg:
		m.latest = control.Record(msg)
		m.seen = true
		m.count++
		m.status = "streaming"
		m.chart.PushDataSet(angleSeries, float64(m.latest.Angle))
		m.chart.DrawAll()
		return m, waitForRecord(m.records)

	case logMsg:
		m.status = string(msg)
		m.addLog(string(msg))
		return m, waitForLog(m.logCh)
	}

	return m, nil
}

// Latest returns the last record shown and whether any arrived.
func (m Model) Latest() (control.Record, bool) {
	return m.latest, m.seen
}

func (m Model) View() string {
	if m.quitting {
		return "Dashboard closed.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Handpilot"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  %s  [%d records]", m.status, m.count)))
	sb.WriteString("\n\n")

	sb.WriteString(Badge(m.latest.State))
	sb.WriteString("  ")
	sb.WriteString(angleStyle.Render(fmt.Sprintf("%3d°", m.latest.Angle)))
	sb.WriteString("\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	if m.width > 4 {
		logStyle = logStyle.Width(m.width - 4)
	}

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

// Badge renders the drive state in its colour.
func Badge(state string) string {
	if state == string(gesture.Go) {
		return goStyle.Render(state)
	}
	return stopStyle.Render(state)
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
