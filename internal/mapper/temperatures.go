package mapper

import (
	"math"

	"tado_bridge/internal/device"
	"tado_bridge/internal/types"
)

// ToUnit picks the rendition of t matching the unit.
func ToUnit(t types.Temperature, u device.Unit) float64 {
	if u == device.Fahrenheit {
		return t.Fahrenheit
	}
	return t.Celsius
}

// Round rounds half up to the nearest integer.
func Round(f float64) float64 {
	return math.Floor(f + 0.5)
}

// CelsiusToUnit converts a Celsius value into the unit, rounded to whole degrees.
func CelsiusToUnit(c float64, u device.Unit) float64 {
	if u == device.Fahrenheit {
		return Round(c*9/5 + 32)
	}
	return Round(c)
}

// round1 rounds a float to 1 decimal place.
func round1(f float64) float64 {
	return math.Floor(f*10+0.5) / 10
}
