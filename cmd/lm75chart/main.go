// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lm75chart renders recorded temperature samples as a PNG line chart.
//
// It reads a time window from the sample log written by lm75d and draws the
// series with a grid, axis labels and a title.
//
//	lm75chart -store lm75d.db -since 24h -out chart.png
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/hardwarelibs/devices/internal/store"
)

var (
	storePath = flag.String("store", "lm75d.db", "path of the sample log")
	out       = flag.String("out", "lm75.png", "output PNG path")
	since     = flag.Duration("since", 24*time.Hour, "chart window, ending now")
	width     = flag.Int("width", 800, "image width in pixels")
	height    = flag.Int("height", 400, "image height in pixels")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("lm75chart: ")

	samples, from, to, err := load(*storePath, *since)
	if err != nil {
		log.Fatal(err)
	}
	if err := render(samples, from, to, *width, *height, *out); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d samples)\n", *out, len(samples))
}

func load(path string, window time.Duration) ([]store.Sample, time.Time, time.Time, error) {
	l, err := store.Open(path)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	defer l.Close()

	to := time.Now()
	from := to.Add(-window)
	samples, err := l.Range(from, to)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	if len(samples) == 0 {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("no samples since %s", from.Format(time.RFC3339))
	}
	return samples, from, to, nil
}

const margin = 48.0

func render(samples []store.Sample, from, to time.Time, w, h int, path string) error {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	labelFace := truetype.NewFace(f, &truetype.Options{Size: 12})
	titleFace := truetype.NewFace(f, &truetype.Options{Size: 16})

	lo, hi := tempRange(samples)

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(w) - 2*margin
	plotH := float64(h) - 2*margin
	x := func(t time.Time) float64 {
		return margin + plotW*t.Sub(from).Seconds()/to.Sub(from).Seconds()
	}
	y := func(c float64) float64 {
		return margin + plotH*(1-(c-lo)/(hi-lo))
	}

	dc.SetFontFace(labelFace)
	for _, level := range gridLevels(lo, hi) {
		gy := y(level)
		dc.SetRGB255(222, 222, 222)
		dc.SetLineWidth(1)
		dc.DrawLine(margin, gy, margin+plotW, gy)
		dc.Stroke()
		dc.SetRGB255(70, 70, 70)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f°C", level), margin-6, gy, 1, 0.35)
	}

	step, format := timeStep(to.Sub(from))
	for t := from.Truncate(step).Add(step); t.Before(to); t = t.Add(step) {
		tx := x(t)
		dc.SetRGB255(222, 222, 222)
		dc.SetLineWidth(1)
		dc.DrawLine(tx, margin, tx, margin+plotH)
		dc.Stroke()
		dc.SetRGB255(70, 70, 70)
		dc.DrawStringAnchored(t.Format(format), tx, margin+plotH+6, 0.5, 1)
	}

	dc.SetRGB255(64, 64, 64)
	dc.SetLineWidth(1)
	dc.DrawRectangle(margin, margin, plotW, plotH)
	dc.Stroke()

	dc.SetRGB255(196, 30, 58)
	dc.SetLineWidth(1.5)
	dc.MoveTo(x(samples[0].Time), y(samples[0].Celsius))
	for _, s := range samples[1:] {
		dc.LineTo(x(s.Time), y(s.Celsius))
	}
	dc.Stroke()

	dc.SetFontFace(titleFace)
	dc.SetRGB255(30, 30, 30)
	title := fmt.Sprintf("LM75  %s to %s", from.Format("2006-01-02 15:04"), to.Format("2006-01-02 15:04"))
	dc.DrawStringAnchored(title, float64(w)/2, margin/2, 0.5, 0.5)

	return dc.SavePNG(path)
}

// tempRange returns the vertical plot range, the sample extremes padded by
// a degree and snapped to whole degrees.
func tempRange(samples []store.Sample) (float64, float64) {
	lo, hi := samples[0].Celsius, samples[0].Celsius
	for _, s := range samples[1:] {
		lo = math.Min(lo, s.Celsius)
		hi = math.Max(hi, s.Celsius)
	}
	return math.Floor(lo) - 1, math.Ceil(hi) + 1
}

// gridLevels picks horizontal grid lines at the smallest round step that
// yields at most six of them.
func gridLevels(lo, hi float64) []float64 {
	steps := []float64{0.5, 1, 2, 5, 10, 20, 50}
	step := steps[len(steps)-1]
	for _, s := range steps {
		if (hi-lo)/s <= 6 {
			step = s
			break
		}
	}
	var levels []float64
	for l := math.Ceil(lo/step) * step; l <= hi; l += step {
		levels = append(levels, l)
	}
	return levels
}

// timeStep picks the vertical grid spacing and the label format for a
// window of the given length.
func timeStep(window time.Duration) (time.Duration, string) {
	steps := []time.Duration{
		time.Minute, 5 * time.Minute, 15 * time.Minute,
		time.Hour, 3 * time.Hour, 6 * time.Hour, 24 * time.Hour,
	}
	step := steps[len(steps)-1]
	for _, s := range steps {
		if window/s <= 8 {
			step = s
			break
		}
	}
	if step >= 24*time.Hour {
		return step, "01-02"
	}
	return step, "15:04"
}
