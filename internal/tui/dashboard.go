// Package tui implements the live watch dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"amdmon/internal/logging"
	"amdmon/internal/telemetry"
)

// Observer receives each completed sampling pass.
type Observer interface {
	Observe(source string, records []telemetry.Record)
}

type tickMsg time.Time

type sourceSamples struct {
	name    string
	records []telemetry.Record
}

type samplesMsg []sourceSamples

// Model represents the dashboard state.
type Model struct {
	startTime time.Time
	quitting  bool
	paused    bool

	logger   *logging.Logger
	sources  []telemetry.Source
	interval time.Duration
	observer Observer

	latest []sourceSamples
	passes int
}

// NewModel creates a dashboard over the given active sources.
func NewModel(logger *logging.Logger, sources []telemetry.Source, interval time.Duration) Model {
	return Model{
		startTime: time.Now(),
		logger:    logger,
		sources:   sources,
		interval:  interval,
	}
}

// WithObserver forwards every sampling pass to obs.
func (m Model) WithObserver(obs Observer) Model {
	m.observer = obs
	return m
}

// Init starts the first sample and the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sampleCmd(), tickCmd(m.interval))
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) sampleCmd() tea.Cmd {
	sources := m.sources
	return func() tea.Msg {
		results := make([]sourceSamples, 0, len(sources))
		for _, src := range sources {
			results = append(results, sourceSamples{
				name:    src.Name(),
				records: src.Sample(),
			})
		}
		return samplesMsg(results)
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tickMsg:
		if m.paused {
			return m, tickCmd(m.interval)
		}
		return m, tea.Batch(m.sampleCmd(), tickCmd(m.interval))

	case samplesMsg:
		m.latest = msg
		m.passes++
		if m.observer != nil {
			for _, s := range msg {
				m.observer.Observe(s.name, s.records)
			}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "p", " ":
		m.paused = !m.paused
		return m, nil
	case "r":
		return m, m.sampleCmd()
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd700")).MarginTop(1)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)

	var b strings.Builder

	b.WriteString(titleStyle.Render("amdmon — GPU Watch"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Uptime: "))
	b.WriteString(valueStyle.Render(time.Since(m.startTime).Round(time.Second).String()))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  (interval %s, %d passes)", m.interval, m.passes)))
	if m.paused {
		b.WriteString("  ")
		b.WriteString(sectionStyle.Render("[paused]"))
	}
	b.WriteString("\n")

	if len(m.latest) == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Waiting for first sample..."))
		b.WriteString("\n")
	}

	for _, s := range m.latest {
		b.WriteString(sectionStyle.Render("Source: " + s.name))
		b.WriteString("\n")

		if len(s.records) == 0 {
			b.WriteString(dimStyle.Render("  no devices reported"))
			b.WriteString("\n")
			continue
		}

		for _, r := range s.records {
			b.WriteString(labelStyle.Render(fmt.Sprintf("  GPU %d: ", r.DeviceID)))
			b.WriteString(valueStyle.Render(fmt.Sprintf("%sW, %s°C, %s%% util, %s%% VRAM",
				formatValue(r.PowerWatts),
				formatValue(r.TemperatureCelsius),
				formatValue(r.UtilizationPercent),
				formatValue(r.VRAMUsagePercent))))
			b.WriteString("\n")
		}

		if watts, devices := telemetry.TotalPower(s.records); devices > 0 {
			b.WriteString(labelStyle.Render("  Total: "))
			b.WriteString(valueStyle.Render(fmt.Sprintf("%.1fW (%d GPUs)", watts, devices)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Pause: p/Space | Refresh: r | Quit: q"))
	b.WriteString("\n")

	return b.String()
}

func formatValue(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

// Run blocks until the dashboard exits.
func Run(m Model) error {
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch dashboard failed: %w", err)
	}
	return nil
}
