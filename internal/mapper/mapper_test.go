package mapper

import (
	"errors"
	"testing"
	"time"

	"tado_bridge/internal/device"
	"tado_bridge/internal/types"
)

func ptr(f float64) *float64 {
	return &f
}

func temp(c float64) *types.Temperature {
	return &types.Temperature{Celsius: c, Fahrenheit: c*9/5 + 32}
}

func zone(power, overlay string, inside, setpoint *types.Temperature) Payload {
	z := &types.ZoneState{
		Setting:     types.Setting{Type: types.SettingHeating, Power: power, Temperature: setpoint},
		OverlayType: overlay,
	}
	z.SensorDataPoints.InsideTemperature = inside
	z.SensorDataPoints.Humidity = &types.Percentage{Percentage: 45.5}
	return Payload{Zone: z}
}

func TestThermostatTranslate(t *testing.T) {
	tr, err := For(device.KindRadiator)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}

	tests := []struct {
		name        string
		payload     Payload
		unit        device.Unit
		wantCurrent device.Mode
		wantTarget  device.Mode
		wantTemp    float64
		wantCurTemp float64
		wantAuto    float64
	}{
		{
			name:        "power off snaps target to sensed",
			payload:     zone(types.PowerOff, "", temp(19.6), nil),
			wantCurrent: device.Off,
			wantTarget:  device.Off,
			wantTemp:    20,
			wantCurTemp: 19.6,
			wantAuto:    7,
		},
		{
			name:        "manual below setpoint heats",
			payload:     zone(types.PowerOn, types.OverlayManual, temp(19.4), temp(22)),
			wantCurrent: device.Heat,
			wantTarget:  device.Heat,
			wantTemp:    22,
			wantCurTemp: 19.4,
			wantAuto:    7,
		},
		{
			name:        "manual at setpoint after rounding cools",
			payload:     zone(types.PowerOn, types.OverlayManual, temp(21.6), temp(22)),
			wantCurrent: device.Cool,
			wantTarget:  device.Cool,
			wantTemp:    22,
			wantCurTemp: 21.6,
			wantAuto:    7,
		},
		{
			name:        "schedule driven is auto",
			payload:     zone(types.PowerOn, "", temp(20), temp(21.5)),
			wantCurrent: device.Off,
			wantTarget:  device.Auto,
			wantTemp:    22,
			wantCurTemp: 20,
			wantAuto:    21.5,
		},
		{
			name:        "setpoint above range is clamped",
			payload:     zone(types.PowerOn, types.OverlayManual, temp(20), temp(30)),
			wantCurrent: device.Heat,
			wantTarget:  device.Heat,
			wantTemp:    25,
			wantCurTemp: 20,
			wantAuto:    7,
		},
		{
			name:        "fahrenheit mode",
			payload:     zone(types.PowerOn, "", temp(20), temp(21)),
			unit:        device.Fahrenheit,
			wantCurrent: device.Off,
			wantTarget:  device.Auto,
			wantTemp:    70,
			wantCurTemp: 68,
			wantAuto:    21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := device.LocalState{AutoSetpoint: 7}
			got, err := tr.Translate(tt.payload, prior, tt.unit)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if got.CurrentState != tt.wantCurrent {
				t.Errorf("CurrentState = %v, want %v", got.CurrentState, tt.wantCurrent)
			}
			if got.TargetState != tt.wantTarget {
				t.Errorf("TargetState = %v, want %v", got.TargetState, tt.wantTarget)
			}
			if got.TargetTemperature != tt.wantTemp {
				t.Errorf("TargetTemperature = %v, want %v", got.TargetTemperature, tt.wantTemp)
			}
			if got.CurrentTemperature != tt.wantCurTemp {
				t.Errorf("CurrentTemperature = %v, want %v", got.CurrentTemperature, tt.wantCurTemp)
			}
			if got.AutoSetpoint != tt.wantAuto {
				t.Errorf("AutoSetpoint = %v, want %v", got.AutoSetpoint, tt.wantAuto)
			}
			if got.Humidity != 45.5 {
				t.Errorf("Humidity = %v, want 45.5", got.Humidity)
			}
		})
	}
}

func TestThermostatTranslate_Idempotent(t *testing.T) {
	tr, _ := For(device.KindRemote)
	payload := zone(types.PowerOn, types.OverlayManual, temp(18.2), temp(21))
	prior := device.LocalState{TargetState: device.Auto, AutoSetpoint: 20}

	first, err := tr.Translate(payload, prior, device.Celsius)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	second, err := tr.Translate(payload, prior, device.Celsius)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if first != second {
		t.Errorf("Translate() not idempotent: %+v != %+v", first, second)
	}
}

func TestThermostatTranslate_Errors(t *testing.T) {
	tr, _ := For(device.KindRadiator)
	prior := device.LocalState{CurrentTemperature: 18}

	got, err := tr.Translate(Payload{}, prior, device.Celsius)
	if !errors.Is(err, ErrMissingPayload) {
		t.Errorf("error = %v, want ErrMissingPayload", err)
	}
	if got != prior {
		t.Error("prior state should be returned on error")
	}

	_, err = tr.Translate(zone(types.PowerOn, "", nil, temp(20)), prior, device.Celsius)
	if !errors.Is(err, ErrIncompletePayload) {
		t.Errorf("error = %v, want ErrIncompletePayload", err)
	}
}

func TestBoilerTranslate(t *testing.T) {
	tr, _ := For(device.KindBoiler)

	on, err := tr.Translate(zone(types.PowerOn, "", nil, temp(50)), device.LocalState{}, device.Celsius)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if on.TargetState != device.Auto || on.CurrentState != device.Off {
		t.Errorf("states = %v/%v, want off/auto", on.CurrentState, on.TargetState)
	}
	if on.CurrentTemperature != 50 || on.TargetTemperature != 50 || on.AutoSetpoint != 50 {
		t.Errorf("temps = %+v", on)
	}

	manual, _ := tr.Translate(zone(types.PowerOn, types.OverlayManual, nil, temp(55)), on, device.Celsius)
	if manual.TargetState != device.Heat || manual.CurrentState != device.Heat {
		t.Errorf("manual states = %v/%v, want heat/heat", manual.CurrentState, manual.TargetState)
	}

	off, _ := tr.Translate(zone(types.PowerOff, "", nil, nil), manual, device.Celsius)
	if off.TargetState != device.Off || off.CurrentState != device.Off {
		t.Errorf("off states = %v/%v", off.CurrentState, off.TargetState)
	}
	if off.TargetTemperature != 55 {
		t.Errorf("off TargetTemperature = %v, want 55", off.TargetTemperature)
	}

	low, _ := tr.Translate(zone(types.PowerOff, "", temp(12), nil), manual, device.Celsius)
	if low.TargetTemperature != 30 {
		t.Errorf("TargetTemperature = %v, want clamp to 30", low.TargetTemperature)
	}
}

func TestTranslateWindow(t *testing.T) {
	tr, _ := For(device.KindWindow)

	open := Payload{Zone: &types.ZoneState{OpenWindow: &types.OpenWindow{DurationInSeconds: 900}}}
	got, err := tr.Translate(open, device.LocalState{}, device.Celsius)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if !got.WindowOpen || got.WindowDuration != 900 {
		t.Errorf("open window = %v/%d", got.WindowOpen, got.WindowDuration)
	}

	closed, _ := tr.Translate(Payload{Zone: &types.ZoneState{}}, got, device.Celsius)
	if closed.WindowOpen || closed.WindowDuration != 0 {
		t.Errorf("closed window = %v/%d", closed.WindowOpen, closed.WindowDuration)
	}
}

func TestTranslateSolar(t *testing.T) {
	tr, _ := For(device.KindSolar)

	tests := []struct {
		pct            float64
		wantOn         bool
		wantBrightness float64
	}{
		{0, false, 0},
		{0.4, true, 1},
		{1, true, 1},
		{63.5, true, 63.5},
	}

	for _, tt := range tests {
		p := Payload{Weather: &types.Weather{SolarIntensity: &types.Percentage{Percentage: tt.pct}}}
		got, err := tr.Translate(p, device.LocalState{}, device.Celsius)
		if err != nil {
			t.Fatalf("Translate(%v) error = %v", tt.pct, err)
		}
		if got.SolarOn != tt.wantOn || got.SolarBrightness != tt.wantBrightness {
			t.Errorf("Translate(%v) = %v/%v, want %v/%v", tt.pct, got.SolarOn, got.SolarBrightness, tt.wantOn, tt.wantBrightness)
		}
	}
}

func TestTranslateWeather(t *testing.T) {
	tr, _ := For(device.KindWeather)
	p := Payload{Weather: &types.Weather{OutsideTemperature: &types.Temperature{Celsius: 4.27, Fahrenheit: 39.69}}}

	c, _ := tr.Translate(p, device.LocalState{}, device.Celsius)
	if c.CurrentTemperature != 4.3 {
		t.Errorf("celsius = %v, want 4.3", c.CurrentTemperature)
	}
	f, _ := tr.Translate(p, device.LocalState{}, device.Fahrenheit)
	if f.CurrentTemperature != 39.7 {
		t.Errorf("fahrenheit = %v, want 39.7", f.CurrentTemperature)
	}
}

func TestOpenWeatherTranslate(t *testing.T) {
	tr := NewOpenWeatherTranslator(time.FixedZone("CET", 3600))

	w := &types.OpenWeather{}
	w.Main.Humidity = 80
	w.Main.Pressure = 1009
	w.Weather = append(w.Weather, struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	}{Main: "Rain"})
	w.Sys.Sunrise = time.Date(2024, 3, 1, 6, 5, 0, 0, time.UTC).Unix()
	w.Sys.Sunset = time.Date(2024, 3, 1, 17, 42, 0, 0, time.UTC).Unix()

	prior := device.LocalState{CurrentTemperature: 5}
	got, err := tr.Translate(Payload{OpenWeather: w}, prior, device.Celsius)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.Humidity != 80 || got.Pressure != 1009 || got.Condition != "Rain" {
		t.Errorf("got %+v", got)
	}
	if got.Sunrise != "07:05" || got.Sunset != "18:42" {
		t.Errorf("sun = %s/%s, want 07:05/18:42", got.Sunrise, got.Sunset)
	}
	if got.CurrentTemperature != 5 {
		t.Error("outside temperature must be left to the tado weather translator")
	}
}

func TestTranslateOccupancy(t *testing.T) {
	tr, _ := For(device.KindOccupancy)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	home := true

	got, _ := tr.Translate(Payload{Presence: &home, At: at}, device.LocalState{}, device.Celsius)
	if !got.Occupied || !got.LastActivation.Equal(at) {
		t.Errorf("got %v/%v", got.Occupied, got.LastActivation)
	}

	kept, _ := tr.Translate(Payload{}, got, device.Celsius)
	if !kept.Occupied {
		t.Error("presence must be kept when the payload carries none")
	}
}

func TestFor_Unsupported(t *testing.T) {
	if _, err := For(device.KindCentral); !errors.Is(err, device.ErrUnsupported) {
		t.Errorf("For(central) error = %v, want ErrUnsupported", err)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{21.5, 22},
		{21.49, 21},
		{-2.5, -2},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round(tt.in); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := CelsiusToUnit(21, device.Fahrenheit); got != 70 {
		t.Errorf("CelsiusToUnit(21, F) = %v, want 70", got)
	}
	if got := round1(*ptr(4.25)); got != 4.3 {
		t.Errorf("round1(4.25) = %v, want 4.3", got)
	}
}
