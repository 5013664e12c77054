// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lm75top is a live terminal monitor for an LM75 temperature sensor.
//
// It samples the device once per interval and renders the current reading,
// session statistics and a threshold colored sparkline. Press p to pause
// sampling, q to quit.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/hardwarelibs/devices/internal/history"
	"github.com/hardwarelibs/devices/internal/sparkline"
	"github.com/hardwarelibs/devices/lm75"
)

var (
	busName  = flag.String("bus", "", "i2c bus name, empty selects the first available")
	addr     = flag.Uint("addr", uint(lm75.DefaultSensorAddress), "i2c device address")
	interval = flag.Duration("interval", time.Second, "sample interval")
	capacity = flag.Int("history", 600, "number of readings kept for the chart")
)

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorName     = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorValue    = lipgloss.Color("250")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

type tickMsg time.Time

type readingMsg struct {
	temperature physic.Temperature
	at          time.Time
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	dev        *lm75.Dev
	ring       *history.Ring
	hysteresis physic.Temperature
	setpoint   physic.Temperature
	interval   time.Duration

	current physic.Temperature
	last    time.Time
	start   time.Time
	err     error
	width   int
	height  int
	paused  bool
}

func newModel(dev *lm75.Dev, hysteresis, setpoint physic.Temperature, interval time.Duration, capacity int) model {
	return model{
		dev:        dev,
		ring:       history.New(capacity),
		hysteresis: hysteresis,
		setpoint:   setpoint,
		interval:   interval,
		start:      time.Now(),
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) read() tea.Msg {
	t, err := m.dev.Temperature()
	if err != nil {
		return errMsg{err}
	}
	return readingMsg{temperature: t, at: time.Now()}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.read, m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.paused {
			return m, m.tick()
		}
		return m, tea.Batch(m.read, m.tick())

	case readingMsg:
		m.current = msg.temperature
		m.last = msg.at
		m.err = nil
		m.ring.Push(msg.temperature, msg.at)

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if m.ring.Len() == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for the first reading...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("LM75 MONITOR")

	var statusParts []string

	uptime := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.start))))
	statusParts = append(statusParts, uptime)

	if !m.last.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.last.Format("15:04:05"))
		statusParts = append(statusParts, ts)
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func (m model) renderPanel(totalWidth int) string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := innerWidth - 44
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(colorValue)

	var rows []string

	name := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorName).
		Render("lm75")
	rows = append(rows, name+"  "+dimS.Render(m.dev.String()))

	current := sparkline.Value(m.current, m.hysteresis, m.setpoint)

	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	spark := sparkline.Render(m.ring.LastN(chartWidth), chartWidth, m.hysteresis, m.setpoint)

	stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", m.ring.Avg().Celsius())) +
		dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", m.ring.Min().Celsius())) +
		dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", m.ring.Peak().Celsius()))

	thresholds := " " + lipgloss.NewStyle().Foreground(colorWarn).Render(fmt.Sprintf("H:%.0f°", m.hysteresis.Celsius())) +
		" " + lipgloss.NewStyle().Foreground(colorCrit).Render(fmt.Sprintf("OS:%.0f°", m.setpoint.Celsius()))

	rows = append(rows, current+" "+frameL+spark+frameR+stats+thresholds)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	highS := lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" warm ") +
		highS + dimS.Render(" above hyst ") +
		critS + dimS.Render(" above os ") +
		tickS + dimS.Render(" 1min")

	keys := dimS.Render("q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit") +
		dimS.Render("  p") + lipgloss.NewStyle().Foreground(colorLabel).Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("lm75top: ")

	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}
	b, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatalf("open i2c bus: %v", err)
	}
	defer b.Close()

	dev, err := lm75.NewI2C(b, uint16(*addr), nil)
	if err != nil {
		log.Fatal(err)
	}
	hysteresis, err := dev.Hysteresis()
	if err != nil {
		log.Fatal(err)
	}
	setpoint, err := dev.Setpoint()
	if err != nil {
		log.Fatal(err)
	}

	p := tea.NewProgram(newModel(dev, hysteresis, setpoint, *interval, *capacity), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
