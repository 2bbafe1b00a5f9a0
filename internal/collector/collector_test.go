package collector

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tado_bridge/internal/device"
)

func newTestCollector(t *testing.T) (*BridgeCollector, *device.Registry) {
	t.Helper()
	radiator := device.New(device.Spec{Name: "Living", Kind: device.KindRadiator, Settings: device.Settings{BatteryState: "LOW"}})
	radiator.Update(func(s *device.LocalState) {
		s.CurrentState = device.Heat
		s.TargetState = device.Heat
		s.CurrentTemperature = 19
		s.TargetTemperature = 21
	})
	central := device.New(device.Spec{Name: "Central", Kind: device.KindCentral})
	central.Update(func(s *device.LocalState) {
		s.Aggregate = &device.AggregateView{CountAuto: 2, CountManual: 1, MaxCount: 3, MainSwitchOn: true}
	})
	window := device.New(device.Spec{Name: "Window", Kind: device.KindWindow})
	window.Update(func(s *device.LocalState) {
		s.WindowOpen = true
		s.WindowDuration = 900
	})

	reg, err := device.NewRegistry(radiator, central, window)
	if err != nil {
		t.Fatal(err)
	}
	return NewBridgeCollector(reg, slog.New(slog.NewTextHandler(io.Discard, nil))), reg
}

func TestCollect_OneHotStates(t *testing.T) {
	c, _ := newTestCollector(t)

	if n := testutil.CollectAndCount(c, "tado_target_state"); n != 4 {
		t.Errorf("tado_target_state series = %d, want 4", n)
	}

	expected := `
# HELP tado_target_state Target heating state one-hot (1 for current, 0 for others)
# TYPE tado_target_state gauge
tado_target_state{device="Living",kind="radiator",mode="auto"} 0
tado_target_state{device="Living",kind="radiator",mode="cool"} 0
tado_target_state{device="Living",kind="radiator",mode="heat"} 1
tado_target_state{device="Living",kind="radiator",mode="off"} 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "tado_target_state"); err != nil {
		t.Error(err)
	}
}

func TestCollect_BatteryAndWindow(t *testing.T) {
	c, _ := newTestCollector(t)

	expected := `
# HELP tado_battery_low Battery low (1) / normal (0)
# TYPE tado_battery_low gauge
tado_battery_low{device="Living",kind="radiator"} 1
# HELP tado_window_open_duration_seconds Duration of the open window detection
# TYPE tado_window_open_duration_seconds gauge
tado_window_open_duration_seconds{device="Window",kind="window"} 900
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tado_battery_low", "tado_window_open_duration_seconds"); err != nil {
		t.Error(err)
	}
}

func TestCollect_Central(t *testing.T) {
	c, _ := newTestCollector(t)

	expected := `
# HELP tado_central_switch_on Central switch state (0/1)
# TYPE tado_central_switch_on gauge
tado_central_switch_on{device="Central",kind="central"} 1
# HELP tado_central_thermostats Number of thermostats per target state group
# TYPE tado_central_thermostats gauge
tado_central_thermostats{device="Central",group="auto",kind="central"} 2
tado_central_thermostats{device="Central",group="manual",kind="central"} 1
tado_central_thermostats{device="Central",group="off",kind="central"} 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tado_central_switch_on", "tado_central_thermostats"); err != nil {
		t.Error(err)
	}
}

func TestObservePoll(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ObservePoll("thermostats", 200*time.Millisecond, nil)
	c.ObservePoll("thermostats", time.Second, errors.New("timeout"))
	c.ObservePoll("weather", time.Second, errors.New("timeout"))

	if got := testutil.ToFloat64(c.metrics.pollErrors.WithLabelValues("thermostats")); got != 1 {
		t.Errorf("thermostats errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c, "tado_poll_duration_seconds"); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}
