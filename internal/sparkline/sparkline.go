// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sparkline renders a temperature series as a row of colored
// unicode block cells for terminal display.
package sparkline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"periph.io/x/conn/v3/physic"

	"github.com/hardwarelibs/devices/internal/history"
)

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	colorOK   = lipgloss.Color("78")
	colorWarm = lipgloss.Color("220")
	colorHigh = lipgloss.Color("208")
	colorCrit = lipgloss.Color("196")
	colorDim  = lipgloss.Color("236")
	colorTick = lipgloss.Color("239")
)

// Color picks a display color for a reading relative to the alert
// thresholds: green well below hysteresis, yellow within 5°C of it, orange
// between the thresholds and red at or above the set-point.
func Color(t, hysteresis, setpoint physic.Temperature) lipgloss.Color {
	switch {
	case t >= setpoint:
		return colorCrit
	case t >= hysteresis:
		return colorHigh
	case t >= hysteresis-5*physic.Celsius:
		return colorWarm
	default:
		return colorOK
	}
}

// Render draws the points as one row of width cells, newest at the right.
// Leading cells without data render as dim dashes, and a dim pipe marks
// each minute boundary. The vertical range spans the series padded by one
// degree on each side.
func Render(points []history.Point, width int, hysteresis, setpoint physic.Temperature) string {
	if width <= 0 {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(colorDim)
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}

	lo, hi := points[0].Temperature, points[0].Temperature
	for _, p := range points[1:] {
		if p.Temperature < lo {
			lo = p.Temperature
		}
		if p.Temperature > hi {
			hi = p.Temperature
		}
	}
	lo -= physic.Celsius
	hi += physic.Celsius
	span := float64(hi - lo)

	tick := lipgloss.NewStyle().Foreground(colorTick)
	var sb strings.Builder
	for i := 0; i < width-len(points); i++ {
		sb.WriteString(dim.Render("╌"))
	}
	for i, p := range points {
		if minuteTick(points, i) {
			sb.WriteString(tick.Render("│"))
			continue
		}
		norm := float64(p.Temperature-lo) / span
		idx := int(norm * 7)
		if idx < 0 {
			idx = 0
		}
		if idx > 7 {
			idx = 7
		}
		style := lipgloss.NewStyle().Foreground(Color(p.Temperature, hysteresis, setpoint))
		if p.Temperature >= setpoint {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(blocks[idx])))
	}
	return sb.String()
}

// Value renders a reading as a fixed width colored figure.
func Value(t, hysteresis, setpoint physic.Temperature) string {
	style := lipgloss.NewStyle().Foreground(Color(t, hysteresis, setpoint))
	if t >= setpoint {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%6.1f°C", t.Celsius()))
}

// minuteTick reports whether the point at i sits on a minute boundary.
func minuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && p.Time.Minute() != points[i-1].Time.Minute()
}
