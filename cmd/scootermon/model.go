package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"scooterble/session"
)

const pollInterval = 2 * time.Second

// Styles, grounded on the teacher's ui.go header/footer/panel palette.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#34D399")).
			Padding(0, 2).
			Bold(true).
			Width(60)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2).
			Width(60)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1).
			Width(56)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true)
)

type telemetry struct {
	capacityMah    uint16
	percentCharged uint16
	currentCentiA  int16
	voltageCentiV  uint16
	speedKmh       float64
	avgSpeedKmh    float64
	totalDistanceM uint32
	remainingKm    float64
	batteryPercent uint16
	errorCode      uint16
	warningCode    uint16
}

type telemetryMsg struct {
	data telemetry
	err  error
}

type resourceMsg struct {
	cpuPercent float64
	memPercent float64
}

type hideCopyNoticeMsg struct{}

// Model is scootermon's single Bubble Tea model: one Session, last-polled
// telemetry, and a host resource footer. Grounded on the teacher's Model in
// internal/cli/ui/ui.go.
type Model struct {
	session *session.Session
	token   [12]byte

	data     telemetry
	fetchErr error
	ready    bool

	cpuPercent float64
	memPercent float64

	width      int
	height     int
	copyNotice string
	quitting   bool
}

func newModel(sess *session.Session, token [12]byte) Model {
	return Model{session: sess, token: token}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollTelemetry(), m.pollResources())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "c":
			return m, m.copySnapshot()
		}
		return m, nil

	case telemetryMsg:
		m.ready = true
		m.fetchErr = msg.err
		if msg.err == nil {
			m.data = msg.data
		}
		return m, tea.Tick(pollInterval, func(time.Time) tea.Msg { return m.fetchTelemetry() })

	case resourceMsg:
		m.cpuPercent = msg.cpuPercent
		m.memPercent = msg.memPercent
		return m, tea.Tick(time.Second, func(time.Time) tea.Msg { return m.fetchResources() })

	case copyResultMsg:
		if msg.ok {
			m.copyNotice = "copied pairing token to clipboard"
		} else {
			m.copyNotice = "clipboard copy failed"
		}
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg { return hideCopyNoticeMsg{} })

	case hideCopyNoticeMsg:
		m.copyNotice = ""
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("scootermon") + "\n\n")

	if !m.ready {
		b.WriteString(panelStyle.Render("waiting for first telemetry poll...") + "\n")
	} else if m.fetchErr != nil {
		b.WriteString(panelStyle.Render(errorStyle.Render("poll failed: "+m.fetchErr.Error())) + "\n")
	} else {
		b.WriteString(panelStyle.Render(m.renderBattery()) + "\n")
		b.WriteString(panelStyle.Render(m.renderMotor()) + "\n")
	}

	if m.copyNotice != "" {
		b.WriteString(copyNoticeStyle.Render(m.copyNotice) + "\n")
	}

	b.WriteString(helpStyle.Render("q: quit  c: copy pairing token") + "\n")
	b.WriteString(footerStyle.Render(fmt.Sprintf("cpu %.1f%%  mem %.1f%%", m.cpuPercent, m.memPercent)))
	return b.String()
}

func (m Model) renderBattery() string {
	d := m.data
	return fmt.Sprintf(
		"%s\n%s %s   %s %s\n%s %s   %s %s",
		labelStyle.Render("battery"),
		labelStyle.Render("charge:"), valueStyle.Render(fmt.Sprintf("%d%%", d.percentCharged)),
		labelStyle.Render("voltage:"), valueStyle.Render(fmt.Sprintf("%.2fV", float64(d.voltageCentiV)/100)),
		labelStyle.Render("current:"), valueStyle.Render(fmt.Sprintf("%.2fA", float64(d.currentCentiA)/100)),
		labelStyle.Render("capacity:"), valueStyle.Render(fmt.Sprintf("%dmAh", d.capacityMah)),
	)
}

func (m Model) renderMotor() string {
	d := m.data
	return fmt.Sprintf(
		"%s\n%s %s   %s %s\n%s %s   %s %s",
		labelStyle.Render("motor"),
		labelStyle.Render("speed:"), valueStyle.Render(fmt.Sprintf("%.1f km/h", d.speedKmh)),
		labelStyle.Render("avg:"), valueStyle.Render(fmt.Sprintf("%.1f km/h", d.avgSpeedKmh)),
		labelStyle.Render("range:"), valueStyle.Render(fmt.Sprintf("%.1f km", d.remainingKm)),
		labelStyle.Render("total:"), valueStyle.Render(fmt.Sprintf("%.2f km", float64(d.totalDistanceM)/1000)),
	)
}

func (m Model) pollTelemetry() tea.Cmd {
	return func() tea.Msg { return m.fetchTelemetry() }
}

func (m Model) fetchTelemetry() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	basic, err := m.session.BatteryBasic(ctx)
	if err != nil {
		return telemetryMsg{err: err}
	}
	motor, err := m.session.MotorStatus(ctx)
	if err != nil {
		return telemetryMsg{err: err}
	}
	km, err := m.session.RemainingKm(ctx)
	if err != nil {
		return telemetryMsg{err: err}
	}

	return telemetryMsg{data: telemetry{
		capacityMah:    basic.CapacityMah,
		percentCharged: basic.PercentCharged,
		currentCentiA:  basic.CurrentCentiA,
		voltageCentiV:  basic.VoltageCentiV,
		speedKmh:       motor.SpeedKmh,
		avgSpeedKmh:    motor.AvgSpeedKmh,
		totalDistanceM: motor.TotalDistanceM,
		remainingKm:    km,
		batteryPercent: motor.BatteryPercent,
		errorCode:      motor.Error,
		warningCode:    motor.Warning,
	}}
}

// pollResources mirrors the teacher's updateResourceData gopsutil footer.
func (m Model) pollResources() tea.Cmd {
	return func() tea.Msg { return m.fetchResources() }
}

func (m Model) fetchResources() tea.Msg {
	cpuPercent, _ := psutil.Percent(0, false)
	memInfo, _ := psmem.VirtualMemory()

	var cpu float64
	if len(cpuPercent) > 0 {
		cpu = cpuPercent[0]
	}
	var mem float64
	if memInfo != nil {
		mem = memInfo.UsedPercent
	}
	return resourceMsg{cpuPercent: cpu, memPercent: mem}
}

type copyResultMsg struct{ ok bool }

// copySnapshot copies the hex-encoded pairing token to the clipboard, in
// the style of the teacher's clipboard.WriteAll keybindings — the caller
// is responsible for persisting the token (spec.md §6), and the terminal
// is a poor place to hand-copy 12 raw bytes out of a hex dump.
func (m Model) copySnapshot() tea.Cmd {
	tokenHex := fmt.Sprintf("%x", m.token)
	return func() tea.Msg {
		return copyResultMsg{ok: clipboard.WriteAll(tokenHex) == nil}
	}
}
