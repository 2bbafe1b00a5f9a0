// Package device holds the in-memory device model shared by the poll loops,
// the command issuer and the central aggregator.
package device

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies the behaviour of a device.
type Kind string

const (
	KindRadiator       Kind = "radiator"
	KindRemote         Kind = "remote"
	KindBoiler         Kind = "boiler"
	KindCentral        Kind = "central"
	KindOccupancy      Kind = "occupancy"
	KindWeather        Kind = "weather"
	KindExternalSensor Kind = "external_sensor"
	KindWindow         Kind = "window"
	KindSolar          Kind = "solar"
)

var knownKinds = []Kind{
	KindRadiator, KindRemote, KindBoiler, KindCentral, KindOccupancy,
	KindWeather, KindExternalSensor, KindWindow, KindSolar,
}

// ParseKind validates a configured kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range knownKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown device kind %q", s)
}

// IsThermostat reports whether the kind accepts heating commands.
func (k Kind) IsThermostat() bool {
	return k == KindRadiator || k == KindRemote || k == KindBoiler
}

// IsAggregated reports whether the central switch counts devices of this kind.
func (k Kind) IsAggregated() bool {
	return k == KindRadiator || k == KindBoiler
}

// UsesZone reports whether the kind is fed by a zone state.
func (k Kind) UsesZone() bool {
	switch k {
	case KindRadiator, KindRemote, KindBoiler, KindExternalSensor, KindWindow:
		return true
	}
	return false
}

// Bounds returns the valid target temperature range for the kind in the given unit.
func (k Kind) Bounds(u Unit) Bounds {
	if k == KindBoiler {
		if u == Fahrenheit {
			return Bounds{Min: 86, Max: 149}
		}
		return Bounds{Min: 30, Max: 65}
	}
	if u == Fahrenheit {
		return Bounds{Min: 41, Max: 71}
	}
	return Bounds{Min: 5, Max: 25}
}

// MaxStep is the upper limit of the heat and cool step for the kind.
func (k Kind) MaxStep() float64 {
	if k == KindBoiler {
		return 20
	}
	return 10
}

// Bounds is an inclusive temperature range.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Unit is the temperature unit a device reads and writes in.
type Unit int

const (
	Celsius Unit = iota
	Fahrenheit
)

// ParseUnit accepts CELSIUS/FAHRENHEIT in any case, or their first letter.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "C", "CELSIUS":
		return Celsius, nil
	case "F", "FAHRENHEIT":
		return Fahrenheit, nil
	}
	return Celsius, fmt.Errorf("unknown temperature unit %q", s)
}

func (u Unit) String() string {
	if u == Fahrenheit {
		return "fahrenheit"
	}
	return "celsius"
}

// Symbol is the display unit string.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// OpenWeatherUnits is the units query value for the third-party weather provider.
func (u Unit) OpenWeatherUnits() string {
	if u == Fahrenheit {
		return "imperial"
	}
	return "metric"
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// Mode is a heating/cooling state. The numeric values follow the usual
// accessory convention: off, heat, cool, auto.
type Mode int

const (
	Off Mode = iota
	Heat
	Cool
	Auto
)

// ParseMode parses off/heat/cool/auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "0":
		return Off, nil
	case "heat", "1":
		return Heat, nil
	case "cool", "2":
		return Cool, nil
	case "auto", "3":
		return Auto, nil
	}
	return Off, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case Heat:
		return "heat"
	case Cool:
		return "cool"
	case Auto:
		return "auto"
	}
	return "off"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
