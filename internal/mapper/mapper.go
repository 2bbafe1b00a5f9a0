package mapper

import (
	"errors"
	"fmt"
	"time"

	"tado_bridge/internal/device"
	"tado_bridge/internal/types"
)

var (
	// ErrMissingPayload means the payload for the device kind was not fetched.
	ErrMissingPayload = errors.New("payload missing")
	// ErrIncompletePayload means a field the kind depends on is absent.
	ErrIncompletePayload = errors.New("payload incomplete")
)

// Payload is the decoded input of one poll cycle. Only the member matching
// the device kind is set.
type Payload struct {
	Zone        *types.ZoneState
	Weather     *types.Weather
	OpenWeather *types.OpenWeather
	Presence    *bool
	At          time.Time
}

// Translator derives a new local state from a payload and the prior state.
// Implementations are pure: the same inputs always give the same state.
type Translator interface {
	Translate(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error)

// Translate implements Translator.
func (f TranslatorFunc) Translate(p Payload, prior device.LocalState, unit device.Unit) (device.LocalState, error) {
	return f(p, prior, unit)
}

// For returns the translator of a kind fed by the Tado API or by presence.
func For(kind device.Kind) (Translator, error) {
	switch kind {
	case device.KindRadiator, device.KindRemote:
		return thermostatTranslator{kind: kind}, nil
	case device.KindBoiler:
		return boilerTranslator{}, nil
	case device.KindExternalSensor:
		return TranslatorFunc(translateExternalSensor), nil
	case device.KindWindow:
		return TranslatorFunc(translateWindow), nil
	case device.KindWeather:
		return TranslatorFunc(translateWeather), nil
	case device.KindSolar:
		return TranslatorFunc(translateSolar), nil
	case device.KindOccupancy:
		return TranslatorFunc(translateOccupancy), nil
	}
	return nil, fmt.Errorf("%w: no translator for %s", device.ErrUnsupported, kind)
}

func zoneOf(p Payload) (*types.ZoneState, error) {
	if p.Zone == nil {
		return nil, fmt.Errorf("%w: zone state", ErrMissingPayload)
	}
	return p.Zone, nil
}
