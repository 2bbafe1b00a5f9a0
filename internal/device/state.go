package device

import "time"

// LocalState is the last known state of a device. Fields that do not apply
// to a kind keep their zero value.
type LocalState struct {
	CurrentState       Mode    `json:"current_state"`
	TargetState        Mode    `json:"target_state"`
	CurrentTemperature float64 `json:"current_temperature"`
	TargetTemperature  float64 `json:"target_temperature"`
	Humidity           float64 `json:"humidity"`
	DisplayUnit        Unit    `json:"display_unit"`

	// AutoSetpoint is the last schedule driven setpoint, always in Celsius.
	AutoSetpoint float64 `json:"auto_setpoint"`

	BatteryLevel int  `json:"battery_level"`
	BatteryLow   bool `json:"battery_low"`

	// DelayActive is the extended delay switch.
	DelayActive bool `json:"delay_active,omitempty"`

	WindowOpen     bool `json:"window_open,omitempty"`
	WindowDuration int  `json:"window_duration_seconds,omitempty"`

	SolarOn         bool    `json:"solar_on,omitempty"`
	SolarBrightness float64 `json:"solar_brightness,omitempty"`

	Occupied       bool      `json:"occupied,omitempty"`
	LastActivation time.Time `json:"last_activation,omitempty"`

	Pressure  float64 `json:"pressure,omitempty"`
	Condition string  `json:"condition,omitempty"`
	Sunrise   string  `json:"sunrise,omitempty"`
	Sunset    string  `json:"sunset,omitempty"`

	Aggregate    *AggregateView `json:"aggregate,omitempty"`
	WindowSwitch bool           `json:"window_switch,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AggregateView is the derived state of the central switch.
type AggregateView struct {
	CountAuto    int  `json:"count_auto"`
	CountManual  int  `json:"count_manual"`
	CountOff     int  `json:"count_off"`
	MaxCount     int  `json:"max_count"`
	MainSwitchOn bool `json:"main_switch_on"`
}

// Settings are the adjustable per-device parameters. They start from
// configuration and change through commands or a configuration reload.
type Settings struct {
	Room         string
	HeatStep     float64
	CoolStep     float64
	DelaySeconds int
	BatteryState string
}

// BatteryNormal is the battery state reported for healthy batteries.
const BatteryNormal = "NORMAL"

// BatteryFromState maps a battery state to a level and low flag.
func BatteryFromState(state string) (level int, low bool) {
	if state == "" || state == BatteryNormal {
		return 100, false
	}
	return 10, true
}
