// Package types contains the wire types exchanged with the Tado and OpenWeatherMap APIs.
package types

// Power values used by zone settings.
const (
	PowerOn  = "ON"
	PowerOff = "OFF"
)

// Setting types used by overlays.
const (
	SettingHeating  = "HEATING"
	SettingHotWater = "HOT_WATER"
)

// OverlayManual is both the overlayType reported for manual overrides and the termination type we write.
const OverlayManual = "MANUAL"

// ZoneState is the response of GET homes/{home}/zones/{zone}/state.
type ZoneState struct {
	TadoMode         string           `json:"tadoMode"`
	Setting          Setting          `json:"setting"`
	OverlayType      string           `json:"overlayType"`
	Overlay          *Overlay         `json:"overlay"`
	OpenWindow       *OpenWindow      `json:"openWindow"`
	SensorDataPoints SensorDataPoints `json:"sensorDataPoints"`
}

// Setting is the effective zone setting, either from the schedule or from an overlay.
type Setting struct {
	Type        string       `json:"type"`
	Power       string       `json:"power"`
	Temperature *Temperature `json:"temperature"`
}

// Temperature carries both unit renditions as the API reports them.
type Temperature struct {
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
}

// Overlay is a manual override as reported inside a zone state.
type Overlay struct {
	Type        string      `json:"type"`
	Setting     Setting     `json:"setting"`
	Termination Termination `json:"termination"`
}

// Termination describes when an overlay ends.
type Termination struct {
	Type string `json:"type"`
}

// OpenWindow is present in a zone state while an open window is detected.
type OpenWindow struct {
	DetectedTime           string `json:"detectedTime"`
	DurationInSeconds      int    `json:"durationInSeconds"`
	Expiry                 string `json:"expiry"`
	RemainingTimeInSeconds int    `json:"remainingTimeInSeconds"`
}

// SensorDataPoints holds the sensed values of a zone.
type SensorDataPoints struct {
	InsideTemperature *Temperature `json:"insideTemperature"`
	Humidity          *Percentage  `json:"humidity"`
}

// Percentage is a generic percentage reading.
type Percentage struct {
	Percentage float64 `json:"percentage"`
}

// Weather is the response of GET homes/{home}/weather.
type Weather struct {
	OutsideTemperature *Temperature `json:"outsideTemperature"`
	SolarIntensity     *Percentage  `json:"solarIntensity"`
	WeatherState       struct {
		Value string `json:"value"`
	} `json:"weatherState"`
}

// OverlayRequest is the body of PUT homes/{home}/zones/{zone}/overlay.
type OverlayRequest struct {
	Setting     OverlaySetting `json:"setting"`
	Termination Termination    `json:"termination"`
}

// OverlaySetting carries only the temperature key of the active unit.
type OverlaySetting struct {
	Type        string              `json:"type"`
	Power       string              `json:"power"`
	Temperature *OverlayTemperature `json:"temperature,omitempty"`
}

// OverlayTemperature sets exactly one of its fields.
type OverlayTemperature struct {
	Celsius    *float64 `json:"celsius,omitempty"`
	Fahrenheit *float64 `json:"fahrenheit,omitempty"`
}

// OpenWeather is the subset of the OpenWeatherMap current weather response we use.
type OpenWeather struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Name string `json:"name"`
}
