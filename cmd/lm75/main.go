// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lm75 reads and configures an LM75 temperature sensor.
//
// Without flags it prints the current temperature, the alert thresholds and
// the decoded configuration register. Opening the device rewrites the
// configuration register and both thresholds with the power-on defaults, so
// configuration flags describe the complete desired state.
//
//	lm75 -bus /dev/i2c-1 -addr 0x48
//	lm75 -queue 4 -polarity high -hyst 60 -os 65
//	lm75 -watch 1s
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/hardwarelibs/devices/lm75"
)

var (
	busName  = flag.String("bus", "", "i2c bus name, empty selects the first available")
	addr     = flag.Uint("addr", uint(lm75.DefaultSensorAddress), "i2c device address")
	watch    = flag.Duration("watch", 0, "keep reading at this interval, rendering a colored strip")
	demo     = flag.Bool("demo", false, "exercise shutdown and wake while sampling for 20s each")
	shutdown = flag.Bool("shutdown", false, "stop conversions")
	wake     = flag.Bool("wake", false, "resume conversions")
	osMode   = flag.String("mode", "", "OS output mode: comparator or interrupt")
	polarity = flag.String("polarity", "", "OS output polarity: high or low")
	queue    = flag.Int("queue", 0, "fault queue depth: 1, 2, 4 or 6")
	hyst     = flag.Float64("hyst", 0, "hysteresis threshold in °C")
	osLimit  = flag.Float64("os", 0, "overtemperature set-point in °C")
)

var queueDepths = map[int]lm75.FaultQueue{
	1: lm75.FaultQueue1,
	2: lm75.FaultQueue2,
	4: lm75.FaultQueue4,
	6: lm75.FaultQueue6,
}

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("lm75: ")

	given := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { given[f.Name] = true })

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

	if *osMode != "" {
		m, err := parseMode(*osMode)
		if err != nil {
			log.Fatal(err)
		}
		if err := dev.SetAlertMode(m); err != nil {
			log.Fatal(err)
		}
	}
	if *polarity != "" {
		high, err := parsePolarity(*polarity)
		if err != nil {
			log.Fatal(err)
		}
		if err := dev.SetPolarity(high); err != nil {
			log.Fatal(err)
		}
	}
	if given["queue"] {
		q, ok := queueDepths[*queue]
		if !ok {
			log.Fatalf("invalid fault queue depth %d (valid: 1, 2, 4, 6)", *queue)
		}
		if err := dev.SetFaultQueue(q); err != nil {
			log.Fatal(err)
		}
	}
	if given["hyst"] || given["os"] {
		hysteresis, setpoint := lm75.DefaultHysteresis, lm75.DefaultSetpoint
		if given["hyst"] {
			hysteresis = fromCelsius(*hyst)
		}
		if given["os"] {
			setpoint = fromCelsius(*osLimit)
		}
		if err := dev.SetAlertLimits(hysteresis, setpoint); err != nil {
			log.Fatal(err)
		}
	}
	if *shutdown {
		if err := dev.Shutdown(); err != nil {
			log.Fatal(err)
		}
	}
	if *wake {
		if err := dev.Wake(); err != nil {
			log.Fatal(err)
		}
	}

	switch {
	case *demo:
		err = runDemo(dev)
	case *watch > 0:
		err = runWatch(dev, *watch)
	default:
		err = printStatus(dev)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func parseMode(s string) (lm75.AlertMode, error) {
	switch s {
	case "comparator":
		return lm75.ModeComparator, nil
	case "interrupt":
		return lm75.ModeInterrupt, nil
	}
	return 0, fmt.Errorf("invalid mode %q (valid: comparator, interrupt)", s)
}

func parsePolarity(s string) (bool, error) {
	switch s {
	case "high":
		return true, nil
	case "low":
		return false, nil
	}
	return false, fmt.Errorf("invalid polarity %q (valid: high, low)", s)
}

func fromCelsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

func printStatus(dev *lm75.Dev) error {
	t, err := dev.Temperature()
	if err != nil {
		return err
	}
	hysteresis, err := dev.Hysteresis()
	if err != nil {
		return err
	}
	setpoint, err := dev.Setpoint()
	if err != nil {
		return err
	}
	cfg, err := dev.Configuration()
	if err != nil {
		return err
	}
	fmt.Printf("temperature: %s\n", t)
	fmt.Printf("hysteresis:  %s\n", hysteresis)
	fmt.Printf("set-point:   %s\n", setpoint)
	fmt.Printf("config:      %s\n", cfg)
	return nil
}

// runWatch renders the recent readings as a strip of colored cells, coolest
// blue and hottest red relative to the alert thresholds.
func runWatch(dev *lm75.Dev, interval time.Duration) error {
	hysteresis, err := dev.Hysteresis()
	if err != nil {
		return err
	}
	setpoint, err := dev.Setpoint()
	if err != nil {
		return err
	}
	env, err := dev.SenseContinuous(interval)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	const strip = 32
	w := colorable.NewColorableStdout()
	var recent []physic.Temperature
	var buf bytes.Buffer
	for {
		select {
		case e := <-env:
			recent = append(recent, e.Temperature)
			if len(recent) > strip {
				recent = recent[1:]
			}
			buf.Reset()
			buf.WriteString("\r\033[0m")
			for _, t := range recent {
				buf.WriteString(ansi256.Default.Block(tempColor(t, hysteresis, setpoint)))
			}
			fmt.Fprintf(w, "%s\033[0m %s ", buf.String(), e.Temperature)
		case <-sig:
			fmt.Fprint(w, "\n\033[0m")
			return dev.Halt()
		}
	}
}

// tempColor maps a reading onto a blue to red ramp spanning the two alert
// thresholds.
func tempColor(t, low, high physic.Temperature) color.NRGBA {
	if high <= low {
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	f := float64(t-low) / float64(high-low)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return color.NRGBA{R: uint8(0xff * f), B: uint8(0xff * (1 - f)), A: 0xff}
}

// runDemo walks the checks run on a freshly wired board: dump the state,
// stop conversions and confirm the reading freezes, then resume and confirm
// it tracks again.
func runDemo(dev *lm75.Dev) error {
	if err := printStatus(dev); err != nil {
		return err
	}
	fmt.Println("shutting down")
	if err := dev.Shutdown(); err != nil {
		return err
	}
	if err := sampleFor(dev, 20); err != nil {
		return err
	}
	fmt.Println("waking up")
	if err := dev.Wake(); err != nil {
		return err
	}
	return sampleFor(dev, 20)
}

func sampleFor(dev *lm75.Dev, seconds int) error {
	for i := 0; i < seconds; i++ {
		time.Sleep(time.Second)
		t, err := dev.Temperature()
		if err != nil {
			return err
		}
		fmt.Printf("%2ds: %s\n", i+1, t)
	}
	return nil
}
