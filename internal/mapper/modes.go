package mapper

import (
	"fmt"

	"tado_bridge/internal/device"
	"tado_bridge/internal/types"
)

// thermostatTranslator serves radiator and remote thermostats.
type thermostatTranslator struct {
	kind device.Kind
}

func (t thermostatTranslator) Translate(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error) {
	z, err := zoneOf(p)
	if err != nil {
		return prior, err
	}
	inside := z.SensorDataPoints.InsideTemperature
	if inside == nil {
		return prior, fmt.Errorf("%w: inside temperature", ErrIncompletePayload)
	}

	bounds := t.kind.Bounds(unit)
	next := prior
	next.CurrentTemperature = ToUnit(*inside, unit)
	if h := z.SensorDataPoints.Humidity; h != nil {
		next.Humidity = h.Percentage
	}

	if z.Setting.Power == types.PowerOff {
		next.CurrentState, next.TargetState = device.Off, device.Off
		next.TargetTemperature = bounds.Clamp(Round(next.CurrentTemperature))
		return next, nil
	}

	set := z.Setting.Temperature
	if set == nil {
		return prior, fmt.Errorf("%w: setting temperature", ErrIncompletePayload)
	}
	next.TargetTemperature = bounds.Clamp(Round(ToUnit(*set, unit)))

	if z.OverlayType == types.OverlayManual {
		next.CurrentState, next.TargetState = ManualModes(inside.Celsius, set.Celsius)
		return next, nil
	}

	next.CurrentState, next.TargetState = device.Off, device.Auto
	next.AutoSetpoint = set.Celsius
	return next, nil
}

// boilerTranslator serves hot water zones, which usually carry no inside
// sensor. While powered the reported current temperature is the setpoint.
type boilerTranslator struct{}

func (boilerTranslator) Translate(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error) {
	z, err := zoneOf(p)
	if err != nil {
		return prior, err
	}

	bounds := device.KindBoiler.Bounds(unit)
	inside := z.SensorDataPoints.InsideTemperature
	next := prior

	if z.Setting.Power == types.PowerOff {
		sensed := prior.CurrentTemperature
		if inside != nil {
			sensed = ToUnit(*inside, unit)
			next.CurrentTemperature = sensed
		}
		next.CurrentState, next.TargetState = device.Off, device.Off
		next.TargetTemperature = bounds.Clamp(Round(sensed))
		return next, nil
	}

	set := z.Setting.Temperature
	if set == nil {
		return prior, fmt.Errorf("%w: setting temperature", ErrIncompletePayload)
	}
	next.CurrentTemperature = ToUnit(*set, unit)
	next.TargetTemperature = bounds.Clamp(Round(next.CurrentTemperature))

	if z.OverlayType == types.OverlayManual {
		if inside != nil {
			next.CurrentState, next.TargetState = ManualModes(inside.Celsius, set.Celsius)
		} else {
			next.CurrentState, next.TargetState = device.Heat, device.Heat
		}
		return next, nil
	}

	next.CurrentState, next.TargetState = device.Off, device.Auto
	next.AutoSetpoint = set.Celsius
	return next, nil
}

// ManualModes derives the current and target state of a manual override:
// heating while the sensed temperature is below the setpoint, cooling otherwise.
func ManualModes(sensed, setpoint float64) (current, target device.Mode) {
	if Round(sensed) < Round(setpoint) {
		return device.Heat, device.Heat
	}
	return device.Cool, device.Cool
}
