// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lm75

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Config is the raw 8 bit CONF register of the device. Bits 0-4 select the
// operating mode, bits 5-7 are reserved. The bit level helpers on Dev
// preserve the reserved bits on every write.
type Config byte

// AlertMode selects the behaviour of the OS output pin.
type AlertMode byte

// FaultQueue selects how many consecutive out-of-limit conversions are
// required before the OS output activates.
type FaultQueue byte

// Dev represents an LM75 sensor.
//
// Dev serializes its own register transactions. The bus is a resource
// shared with whatever else sits on it; coordinating that sharing is the
// responsibility of the bus owner, not of this driver.
type Dev struct {
	d        *i2c.Dev
	mu       sync.Mutex
	shutdown chan struct{}
}

const (
	// DefaultSensorAddress is the device address with the A0-A2 pins tied
	// low. The address pins select the 0x48-0x4f range.
	DefaultSensorAddress uint16 = 0x48

	// ModeComparator makes the OS output behave like a thermostat: active
	// above the setpoint, released below the hysteresis.
	ModeComparator AlertMode = 0
	// ModeInterrupt makes the OS output signal once per limit crossing.
	// Reading any register releases it.
	ModeInterrupt AlertMode = 1

	// Fault queue depths. The device requires this many consecutive
	// out-of-limit conversions before it activates the OS output.
	FaultQueue1 FaultQueue = 0
	FaultQueue2 FaultQueue = 1
	FaultQueue4 FaultQueue = 2
	FaultQueue6 FaultQueue = 3

	// Bits of the CONF register.
	ConfigShutdown   Config = 1 << 0
	ConfigInterrupt  Config = 1 << 1
	ConfigActiveHigh Config = 1 << 2

	// Addresses of registers to read/write.
	_REGISTER_TEMPERATURE   byte = 0x00
	_REGISTER_CONFIGURATION byte = 0x01
	_REGISTER_HYSTERESIS    byte = 0x02
	_REGISTER_SETPOINT      byte = 0x03

	// Position of the fault queue field within the CONF register.
	_FAULT_QUEUE_POS  int    = 3
	_FAULT_QUEUE_MASK Config = 0x3 << 3

	_DEGREES_RESOLUTION physic.Temperature = 500 * physic.MilliKelvin

	// DefaultHysteresis is the power-on THYST value of the device.
	DefaultHysteresis physic.Temperature = physic.ZeroCelsius + 75*physic.Celsius
	// DefaultSetpoint is the power-on TOS value of the device.
	DefaultSetpoint physic.Temperature = physic.ZeroCelsius + 80*physic.Celsius

	// The minimum temperature the 9 bit register encoding can represent.
	MinimumTemperature physic.Temperature = physic.ZeroCelsius - 127_500*physic.MilliKelvin
	// The maximum temperature the 9 bit register encoding can represent.
	MaximumTemperature physic.Temperature = physic.ZeroCelsius + 127_500*physic.MilliKelvin
)

// ErrInvalidRange is returned by SetAlertLimits when the thresholds are
// inverted or outside what the 9 bit register encoding can represent.
var ErrInvalidRange = errors.New("lm75: invalid temperature range")

// Opts holds the configuration written to the device by NewI2C.
type Opts struct {
	// Config is the initial CONF register value. The zero value selects
	// comparator mode, active low output, a fault queue of one and
	// continuous conversion.
	Config Config
	// Hysteresis is the alert release threshold written to THYST. The
	// zero value selects the 75°C device default.
	Hysteresis physic.Temperature
	// Setpoint is the alert trip threshold written to TOS. The zero value
	// selects the 80°C device default.
	Setpoint physic.Temperature
}

// DefaultOpts spells out the power-on defaults of the device: comparator
// mode, active low output, a fault queue of one and 75/80°C thresholds.
var DefaultOpts = Opts{
	Hysteresis: DefaultHysteresis,
	Setpoint:   DefaultSetpoint,
}

// NewI2C returns a handle to an LM75 on the specified bus and address and
// writes the initial configuration to it: the CONF register first, then the
// hysteresis and setpoint words. If opts is nil the device power-on defaults
// are written. A write failure is returned as-is, nothing is retried.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	hysteresis := opts.Hysteresis
	if hysteresis == 0 {
		hysteresis = DefaultHysteresis
	}
	setpoint := opts.Setpoint
	if setpoint == 0 {
		setpoint = DefaultSetpoint
	}
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	if err := dev.writeReg8(_REGISTER_CONFIGURATION, byte(opts.Config)); err != nil {
		return nil, err
	}
	if err := dev.writeReg16(_REGISTER_HYSTERESIS, EncodeTemperature(hysteresis)); err != nil {
		return nil, err
	}
	if err := dev.writeReg16(_REGISTER_SETPOINT, EncodeTemperature(setpoint)); err != nil {
		return nil, err
	}
	return dev, nil
}

// Temperature returns the result of the most recent conversion. The device
// converts about every 100ms. While shut down it holds the result of the
// conversion that preceded the shutdown; reading remains a live bus
// transaction either way.
func (dev *Dev) Temperature() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w, err := dev.readReg16(_REGISTER_TEMPERATURE)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(w), nil
}

// Hysteresis returns the alert release threshold from the THYST register.
func (dev *Dev) Hysteresis() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w, err := dev.readReg16(_REGISTER_HYSTERESIS)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(w), nil
}

// Setpoint returns the alert trip threshold from the TOS register.
func (dev *Dev) Setpoint() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w, err := dev.readReg16(_REGISTER_SETPOINT)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(w), nil
}

// Configuration returns the raw CONF register.
func (dev *Dev) Configuration() (Config, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	c, err := dev.readReg8(_REGISTER_CONFIGURATION)
	return Config(c), err
}

// SetConfiguration writes the CONF register verbatim. The value is not
// validated; most callers are better served by the bit level helpers.
func (dev *Dev) SetConfiguration(c Config) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeReg8(_REGISTER_CONFIGURATION, byte(c))
}

// SetHysteresis writes a raw word to the THYST register. The value passes
// through unchecked; see EncodeTemperature for the expected layout.
func (dev *Dev) SetHysteresis(raw uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeReg16(_REGISTER_HYSTERESIS, raw)
}

// SetSetpoint writes a raw word to the TOS register. The value passes
// through unchecked; see EncodeTemperature for the expected layout.
func (dev *Dev) SetSetpoint(raw uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeReg16(_REGISTER_SETPOINT, raw)
}

// SetAlertLimits encodes and writes both alert thresholds. The OS output
// activates above setpoint and releases below hysteresis, so hysteresis must
// not exceed setpoint.
func (dev *Dev) SetAlertLimits(hysteresis, setpoint physic.Temperature) error {
	if hysteresis > setpoint ||
		hysteresis < MinimumTemperature ||
		setpoint > MaximumTemperature {
		return ErrInvalidRange
	}
	if err := dev.SetHysteresis(EncodeTemperature(hysteresis)); err != nil {
		return err
	}
	return dev.SetSetpoint(EncodeTemperature(setpoint))
}

// SetFaultQueue selects how many consecutive out-of-limit conversions
// activate the OS output. Values outside FaultQueue1..FaultQueue6 are
// rejected without touching the device.
func (dev *Dev) SetFaultQueue(q FaultQueue) error {
	if q > FaultQueue6 {
		return fmt.Errorf("lm75: invalid value for fault queue: %d", q)
	}
	return dev.updateConfiguration(_FAULT_QUEUE_MASK, Config(q)<<_FAULT_QUEUE_POS)
}

// SetPolarity sets the OS output to active high or active low.
func (dev *Dev) SetPolarity(activeHigh bool) error {
	if activeHigh {
		return dev.updateConfiguration(0, ConfigActiveHigh)
	}
	return dev.updateConfiguration(ConfigActiveHigh, 0)
}

// SetAlertMode selects comparator or interrupt behaviour for the OS output.
func (dev *Dev) SetAlertMode(mode AlertMode) error {
	if mode == ModeInterrupt {
		return dev.updateConfiguration(0, ConfigInterrupt)
	}
	return dev.updateConfiguration(ConfigInterrupt, 0)
}

// Shutdown stops the conversions. The temperature register keeps its last
// value and all registers stay accessible; supply current drops to a few µA.
func (dev *Dev) Shutdown() error {
	return dev.updateConfiguration(0, ConfigShutdown)
}

// Wake resumes continuous conversion after a Shutdown.
func (dev *Dev) Wake() error {
	return dev.updateConfiguration(ConfigShutdown, 0)
}

// Sense reads the temperature. Implements physic.SenseEnv.
func (dev *Dev) Sense(env *physic.Env) error {
	t, err := dev.Temperature()
	if err != nil {
		return err
	}
	env.Temperature = t
	env.Pressure = 0
	env.Humidity = 0
	return nil
}

// SenseContinuous returns a channel producing a reading every interval. The
// interval must be at least the 100ms conversion time of the device. To end
// the readings, call Halt().
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < 100*time.Millisecond {
		return nil, errors.New("lm75: invalid interval. minimum 100ms")
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New("lm75: SenseContinuous already running")
	}
	dev.shutdown = make(chan struct{})
	ch := make(chan physic.Env, 16)
	go func(stop <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				close(ch)
				return
			case <-ticker.C:
				e := physic.Env{}
				// Drop the reading when the consumer lags so Halt
				// is never blocked behind a full channel.
				if err := dev.Sense(&e); err == nil && len(ch) < cap(ch) {
					ch <- e
				}
			}
		}
	}(dev.shutdown)
	return ch, nil
}

// Halt interrupts a running SenseContinuous and puts the device in shutdown
// mode. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	dev.mu.Unlock()
	return dev.Shutdown()
}

// Precision returns the 0.5°C resolution of the temperature register.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = _DEGREES_RESOLUTION
	env.Pressure = 0
	env.Humidity = 0
}

func (dev *Dev) String() string {
	return fmt.Sprintf("lm75: %s", dev.d.String())
}

// updateConfiguration reads the CONF register, clears then sets the given
// bits and writes the result back. Bits outside clear and set, including the
// reserved bits 5-7, keep whatever value the device reported.
func (dev *Dev) updateConfiguration(clear, set Config) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	current, err := dev.readReg8(_REGISTER_CONFIGURATION)
	if err != nil {
		return err
	}
	next := (Config(current) &^ clear) | set
	return dev.writeReg8(_REGISTER_CONFIGURATION, byte(next))
}

func (dev *Dev) readReg8(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := dev.d.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("lm75: read register 0x%02x: %w", reg, err)
	}
	return r[0], nil
}

func (dev *Dev) writeReg8(reg, value byte) error {
	if err := dev.d.Tx([]byte{reg, value}, nil); err != nil {
		return fmt.Errorf("lm75: write register 0x%02x: %w", reg, err)
	}
	return nil
}

// The word registers transfer their high byte first on the wire. The uint16
// values used throughout this package instead follow the SMBus convention
// where the first byte on the wire is the low byte of the word, which is the
// layout DecodeTemperature documents.
func (dev *Dev) readReg16(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.d.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("lm75: read register 0x%02x: %w", reg, err)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

func (dev *Dev) writeReg16(reg byte, value uint16) error {
	if err := dev.d.Tx([]byte{reg, byte(value), byte(value >> 8)}, nil); err != nil {
		return fmt.Errorf("lm75: write register 0x%02x: %w", reg, err)
	}
	return nil
}

// DecodeTemperature converts a raw register word to a temperature.
//
// In the word, bit 15 is the half degree flag, bit 7 the sign and bits 0-6
// the whole degrees. The sign applies by negating the magnitude; this is not
// a two's complement encoding. All other bits are ignored, every 16 bit
// pattern decodes to a value.
func DecodeTemperature(word uint16) physic.Temperature {
	delta := physic.Temperature(word&0x007f) * physic.Celsius
	if word&0x8000 != 0 {
		delta += 500 * physic.MilliKelvin
	}
	if word&0x0080 != 0 {
		delta = -delta
	}
	return physic.ZeroCelsius + delta
}

// EncodeTemperature converts a temperature to a raw register word in the
// layout DecodeTemperature describes, rounding to the nearest half degree
// and clamping to [MinimumTemperature, MaximumTemperature].
func EncodeTemperature(t physic.Temperature) uint16 {
	delta := t - physic.ZeroCelsius
	var word uint16
	if delta < 0 {
		delta = -delta
		word = 0x0080
	}
	halves := int64((delta + _DEGREES_RESOLUTION/2) / _DEGREES_RESOLUTION)
	if halves > 255 {
		halves = 255
	}
	word |= uint16(halves >> 1)
	if halves&1 != 0 {
		word |= 0x8000
	}
	return word
}

// Shutdown returns true if the shutdown bit is set.
func (c Config) Shutdown() bool { return c&ConfigShutdown != 0 }

// ActiveHigh returns true if the OS output is configured active high.
func (c Config) ActiveHigh() bool { return c&ConfigActiveHigh != 0 }

// Mode returns the OS output mode the configuration selects.
func (c Config) Mode() AlertMode {
	if c&ConfigInterrupt != 0 {
		return ModeInterrupt
	}
	return ModeComparator
}

// FaultQueue returns the fault queue depth the configuration selects.
func (c Config) FaultQueue() FaultQueue {
	return FaultQueue((c & _FAULT_QUEUE_MASK) >> _FAULT_QUEUE_POS)
}

func (c Config) String() string {
	power := "running"
	if c.Shutdown() {
		power = "shutdown"
	}
	polarity := "active-low"
	if c.ActiveHigh() {
		polarity = "active-high"
	}
	return fmt.Sprintf("%s %s %s %s", power, c.Mode(), polarity, c.FaultQueue())
}

func (m AlertMode) String() string {
	if m == ModeInterrupt {
		return "interrupt"
	}
	return "comparator"
}

// Faults returns the number of consecutive out-of-limit conversions the
// queue value stands for.
func (q FaultQueue) Faults() int {
	return []int{1, 2, 4, 6}[q&0x03]
}

func (q FaultQueue) String() string {
	return fmt.Sprintf("%d faults", q.Faults())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
