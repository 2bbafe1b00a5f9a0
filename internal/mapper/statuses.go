package mapper

import (
	"fmt"
	"time"

	"tado_bridge/internal/device"
)

func translateExternalSensor(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error) {
	z, err := zoneOf(p)
	if err != nil {
		return prior, err
	}
	inside := z.SensorDataPoints.InsideTemperature
	if inside == nil {
		return prior, fmt.Errorf("%w: inside temperature", ErrIncompletePayload)
	}
	next := prior
	next.CurrentTemperature = ToUnit(*inside, unit)
	if h := z.SensorDataPoints.Humidity; h != nil {
		next.Humidity = h.Percentage
	}
	return next, nil
}

func translateWindow(p Payload, prior device.LocalState, _ device.Unit) (device.LocalState, error) {
	z, err := zoneOf(p)
	if err != nil {
		return prior, err
	}
	next := prior
	if z.OpenWindow != nil {
		next.WindowOpen = true
		next.WindowDuration = z.OpenWindow.DurationInSeconds
	} else {
		next.WindowOpen = false
		next.WindowDuration = 0
	}
	return next, nil
}

func translateWeather(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error) {
	if p.Weather == nil {
		return prior, fmt.Errorf("%w: weather", ErrMissingPayload)
	}
	if p.Weather.OutsideTemperature == nil {
		return prior, fmt.Errorf("%w: outside temperature", ErrIncompletePayload)
	}
	next := prior
	next.CurrentTemperature = round1(ToUnit(*p.Weather.OutsideTemperature, unit))
	return next, nil
}

func translateSolar(p Payload, prior device.LocalState, _ device.Unit) (device.LocalState, error) {
	if p.Weather == nil {
		return prior, fmt.Errorf("%w: weather", ErrMissingPayload)
	}
	if p.Weather.SolarIntensity == nil {
		return prior, fmt.Errorf("%w: solar intensity", ErrIncompletePayload)
	}
	pct := p.Weather.SolarIntensity.Percentage
	next := prior
	next.SolarOn = pct > 0
	switch {
	case pct <= 0:
		next.SolarBrightness = 0
	case pct < 1:
		next.SolarBrightness = 1
	default:
		next.SolarBrightness = pct
	}
	return next, nil
}

// translateOccupancy takes presence from the payload when one is given and
// otherwise keeps the presence set through commands.
func translateOccupancy(p Payload, prior device.LocalState, _ device.Unit) (device.LocalState, error) {
	next := prior
	if p.Presence != nil {
		next.Occupied = *p.Presence
	}
	if next.Occupied && !p.At.IsZero() {
		next.LastActivation = p.At
	}
	return next, nil
}

// OpenWeatherTranslator maps the third-party weather payload onto a weather
// device. Sunrise and sunset are rendered in loc.
type OpenWeatherTranslator struct {
	loc *time.Location
}

// NewOpenWeatherTranslator creates a translator rendering times in loc, or in local time when loc is nil.
func NewOpenWeatherTranslator(loc *time.Location) *OpenWeatherTranslator {
	if loc == nil {
		loc = time.Local
	}
	return &OpenWeatherTranslator{loc: loc}
}

// Translate implements Translator.
func (t *OpenWeatherTranslator) Translate(p Payload, prior device.LocalState, _ device.Unit) (device.LocalState, error) {
	w := p.OpenWeather
	if w == nil {
		return prior, fmt.Errorf("%w: openweather", ErrMissingPayload)
	}
	next := prior
	next.Humidity = w.Main.Humidity
	next.Pressure = w.Main.Pressure
	next.Condition = ""
	if len(w.Weather) > 0 {
		next.Condition = w.Weather[0].Main
	}
	next.Sunrise = time.Unix(w.Sys.Sunrise, 0).In(t.loc).Format(sunTimeLayout)
	next.Sunset = time.Unix(w.Sys.Sunset, 0).In(t.loc).Format(sunTimeLayout)
	return next, nil
}
