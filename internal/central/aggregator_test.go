package central

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"tado_bridge/internal/device"
)

type fakeCommander struct {
	registry *device.Registry
	calls    map[string]device.Mode
	fail     map[string]bool
}

func (f *fakeCommander) SetTargetState(_ context.Context, name string, mode device.Mode) (device.LocalState, error) {
	if f.fail[name] {
		return device.LocalState{}, errors.New("write failed")
	}
	f.calls[name] = mode
	d, _ := f.registry.GetByName(name)
	return d.Update(func(s *device.LocalState) { s.TargetState = mode }), nil
}

func thermostat(name string, kind device.Kind, current, target device.Mode) *device.Device {
	d := device.New(device.Spec{Name: name, Kind: kind})
	d.Update(func(s *device.LocalState) {
		s.CurrentState = current
		s.TargetState = target
	})
	return d
}

func setup(t *testing.T, devs ...*device.Device) (*Aggregator, *device.Device, *fakeCommander) {
	t.Helper()
	c := device.New(device.Spec{Name: "Central", Kind: device.KindCentral})
	reg, err := device.NewRegistry(append([]*device.Device{c}, devs...)...)
	if err != nil {
		t.Fatal(err)
	}
	cmd := &fakeCommander{registry: reg, calls: map[string]device.Mode{}, fail: map[string]bool{}}
	agg, err := NewAggregator(reg, c, cmd, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return agg, c, cmd
}

func TestAggregate(t *testing.T) {
	view := Aggregate([]device.LocalState{
		{TargetState: device.Auto},
		{TargetState: device.Heat, CurrentState: device.Heat},
		{TargetState: device.Off},
		{TargetState: device.Auto},
	})
	want := device.AggregateView{CountAuto: 2, CountManual: 1, CountOff: 1, MaxCount: 4, MainSwitchOn: true}
	if view != want {
		t.Errorf("Aggregate() = %+v, want %+v", view, want)
	}

	if v := Aggregate(nil); v.MainSwitchOn || v.MaxCount != 0 {
		t.Errorf("Aggregate(nil) = %+v", v)
	}
}

func TestRecompute_ScansRadiatorsAndBoilers(t *testing.T) {
	agg, c, _ := setup(t,
		thermostat("Living", device.KindRadiator, device.Off, device.Auto),
		thermostat("Hot water", device.KindBoiler, device.Off, device.Off),
		thermostat("Remote", device.KindRemote, device.Off, device.Auto),
	)

	view := agg.Recompute()
	if view.MaxCount != 2 || view.CountAuto != 1 || view.CountOff != 1 {
		t.Errorf("view = %+v", view)
	}
	if got := c.State().Aggregate; got == nil || *got != view {
		t.Errorf("central aggregate = %+v, want %+v", got, view)
	}
}

func TestSet_CascadeOffGuard(t *testing.T) {
	agg, _, cmd := setup(t,
		thermostat("Heating", device.KindRadiator, device.Heat, device.Heat),
		thermostat("Idle manual", device.KindRadiator, device.Off, device.Heat),
		thermostat("Scheduled", device.KindRadiator, device.Off, device.Auto),
		thermostat("Already off", device.KindBoiler, device.Off, device.Off),
	)

	if err := agg.Set(context.Background(), false); err != nil {
		t.Fatalf("Set(false) error = %v", err)
	}
	if _, ok := cmd.calls["Heating"]; ok {
		t.Error("thermostat mid-action must not be altered")
	}
	if cmd.calls["Idle manual"] != device.Off {
		t.Error("idle manual thermostat must be switched off")
	}
	if cmd.calls["Scheduled"] != device.Off {
		t.Error("scheduled thermostat must be switched off")
	}
	if _, ok := cmd.calls["Already off"]; ok {
		t.Error("thermostat already off must not be written")
	}
}

func TestSet_CascadeOn(t *testing.T) {
	agg, c, cmd := setup(t,
		thermostat("Off", device.KindRadiator, device.Off, device.Off),
		thermostat("Cooling", device.KindRadiator, device.Cool, device.Cool),
		thermostat("Scheduled", device.KindRadiator, device.Off, device.Auto),
	)

	if err := agg.Set(context.Background(), true); err != nil {
		t.Fatalf("Set(true) error = %v", err)
	}
	if len(cmd.calls) != 1 || cmd.calls["Off"] != device.Auto {
		t.Errorf("calls = %v", cmd.calls)
	}
	if !c.State().Aggregate.MainSwitchOn {
		t.Error("main switch should be on after cascade")
	}
}

func TestSet_PartialFailure(t *testing.T) {
	agg, _, cmd := setup(t,
		thermostat("A", device.KindRadiator, device.Off, device.Auto),
		thermostat("B", device.KindRadiator, device.Off, device.Auto),
	)
	cmd.fail["A"] = true

	if err := agg.Set(context.Background(), false); err == nil {
		t.Error("Set() should report the failed thermostat")
	}
	if cmd.calls["B"] != device.Off {
		t.Error("cascade must continue past a failure")
	}
}

func TestSetWindowSwitch(t *testing.T) {
	agg, c, _ := setup(t)
	agg.SetWindowSwitch(true)
	if !c.State().WindowSwitch {
		t.Error("WindowSwitch = false, want true")
	}
}

func TestNewAggregator_RequiresCentral(t *testing.T) {
	d := device.New(device.Spec{Name: "Radiator", Kind: device.KindRadiator})
	reg, _ := device.NewRegistry(d)
	_, err := NewAggregator(reg, d, nil, nil, slog.Default())
	if !errors.Is(err, device.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
