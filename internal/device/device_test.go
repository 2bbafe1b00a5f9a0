package device

import (
	"errors"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Living Room":      "living-room",
		"  Hot  Water!! ":  "hot-water",
		"Büro 2":           "b-ro-2",
		"central":          "central",
		"--Window--Sensor": "window-sensor",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKindBounds(t *testing.T) {
	tests := []struct {
		kind Kind
		unit Unit
		want Bounds
	}{
		{KindRadiator, Celsius, Bounds{Min: 5, Max: 25}},
		{KindRemote, Fahrenheit, Bounds{Min: 41, Max: 71}},
		{KindBoiler, Celsius, Bounds{Min: 30, Max: 65}},
		{KindBoiler, Fahrenheit, Bounds{Min: 86, Max: 149}},
	}
	for _, tt := range tests {
		if got := tt.kind.Bounds(tt.unit); got != tt.want {
			t.Errorf("%s/%s Bounds() = %+v, want %+v", tt.kind, tt.unit, got, tt.want)
		}
	}

	b := Bounds{Min: 5, Max: 25}
	for in, want := range map[float64]float64{2: 5, 5: 5, 18: 18, 25: 25, 31: 25} {
		if got := b.Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	if k, err := ParseKind(" External_Sensor "); err != nil || k != KindExternalSensor {
		t.Errorf("ParseKind() = %v, %v", k, err)
	}
	if _, err := ParseKind("toaster"); err == nil {
		t.Error("ParseKind(toaster) expected error")
	}
	if m, err := ParseMode("COOL"); err != nil || m != Cool {
		t.Errorf("ParseMode() = %v, %v", m, err)
	}
	if u, err := ParseUnit("f"); err != nil || u != Fahrenheit {
		t.Errorf("ParseUnit() = %v, %v", u, err)
	}
	if _, err := ParseUnit("kelvin"); err == nil {
		t.Error("ParseUnit(kelvin) expected error")
	}
}

func TestNew_InitialState(t *testing.T) {
	d := New(Spec{Name: "Hot Water", Kind: KindBoiler, Unit: Fahrenheit, Settings: Settings{BatteryState: "LOW"}})
	s := d.State()

	if s.TargetTemperature != 86 {
		t.Errorf("TargetTemperature = %v, want 86", s.TargetTemperature)
	}
	if s.AutoSetpoint != 30 {
		t.Errorf("AutoSetpoint = %v, want 30 (Celsius)", s.AutoSetpoint)
	}
	if !s.BatteryLow || s.BatteryLevel != 10 {
		t.Errorf("battery = %v/%d, want low/10", s.BatteryLow, s.BatteryLevel)
	}
	if s.DisplayUnit != Fahrenheit {
		t.Errorf("DisplayUnit = %v", s.DisplayUnit)
	}

	c := New(Spec{Name: "Central", Kind: KindCentral})
	if c.State().Aggregate == nil {
		t.Error("central device must start with an aggregate view")
	}
}

func TestStateIsCopied(t *testing.T) {
	d := New(Spec{Name: "Central", Kind: KindCentral})
	s := d.State()
	s.Aggregate.CountAuto = 7

	if d.State().Aggregate.CountAuto != 0 {
		t.Error("State() must not expose internal aggregate")
	}
}

func TestApply_ErrorKeepsState(t *testing.T) {
	d := New(Spec{Name: "Living", Kind: KindRadiator})
	d.Update(func(s *LocalState) { s.CurrentTemperature = 19 })

	_, err := d.Apply(func(prior LocalState) (LocalState, error) {
		prior.CurrentTemperature = 99
		return prior, errors.New("decode failed")
	})
	if err == nil {
		t.Fatal("Apply() expected error")
	}
	if got := d.State().CurrentTemperature; got != 19 {
		t.Errorf("CurrentTemperature = %v, want 19", got)
	}
}

func TestSchedule(t *testing.T) {
	d := New(Spec{Name: "Living", Kind: KindRadiator})
	fired := make(chan string, 2)

	d.Schedule(time.Hour, func() { fired <- "first" })
	d.Schedule(10*time.Millisecond, func() { fired <- "second" })
	if !d.HasScheduled() {
		t.Fatal("HasScheduled() = false")
	}

	select {
	case got := <-fired:
		if got != "second" {
			t.Errorf("fired %q, want second", got)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled action did not fire")
	}
	if d.HasScheduled() {
		t.Error("HasScheduled() = true after firing")
	}
}

func TestCancelScheduled(t *testing.T) {
	d := New(Spec{Name: "Living", Kind: KindRadiator})
	fired := make(chan struct{}, 1)

	if d.CancelScheduled() {
		t.Error("CancelScheduled() = true with nothing pending")
	}
	d.Schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	if !d.CancelScheduled() {
		t.Error("CancelScheduled() = false with a pending action")
	}

	select {
	case <-fired:
		t.Error("cancelled action fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestRegistry(t *testing.T) {
	living := New(Spec{Name: "Living Room", Kind: KindRadiator})
	boiler := New(Spec{Name: "Hot Water", Kind: KindBoiler})
	alice := New(Spec{Name: "Alice", Kind: KindOccupancy})

	reg, err := NewRegistry(living, boiler, alice)
	if err != nil {
		t.Fatal(err)
	}

	if d, err := reg.GetBySlug("hot-water"); err != nil || d != boiler {
		t.Errorf("GetBySlug() = %v, %v", d, err)
	}
	if _, err := reg.GetByName("Kitchen"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("GetByName() error = %v, want ErrUnknownDevice", err)
	}
	if got := reg.ListByKind(KindRadiator, KindBoiler); len(got) != 2 || got[0] != living || got[1] != boiler {
		t.Errorf("ListByKind() = %v", got)
	}
	if len(reg.All()) != 3 {
		t.Errorf("All() = %d devices, want 3", len(reg.All()))
	}

	if err := reg.Add(New(Spec{Name: "Alice", Kind: KindOccupancy})); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("Add(duplicate name) error = %v", err)
	}
	if err := reg.Add(New(Spec{Name: "living room", Kind: KindRemote})); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("Add(duplicate slug) error = %v", err)
	}
}

func TestBatteryFromState(t *testing.T) {
	tests := []struct {
		state string
		level int
		low   bool
	}{
		{"", 100, false},
		{BatteryNormal, 100, false},
		{"LOW", 10, true},
	}
	for _, tt := range tests {
		level, low := BatteryFromState(tt.state)
		if level != tt.level || low != tt.low {
			t.Errorf("BatteryFromState(%q) = %d, %v", tt.state, level, low)
		}
	}
}

type recordingPublisher struct {
	names []string
}

func (p *recordingPublisher) Publish(d *Device, _ LocalState) {
	p.names = append(p.names, d.Name)
}

func TestPublishersFanOut(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	d := New(Spec{Name: "Living", Kind: KindRadiator})

	Publishers{a, b}.Publish(d, d.State())
	Publishers(nil).Publish(d, d.State())

	if len(a.names) != 1 || len(b.names) != 1 {
		t.Errorf("published %v / %v, want one each", a.names, b.names)
	}
}

func TestUpdateSettings(t *testing.T) {
	d := New(Spec{Name: "Living", Kind: KindRadiator, Settings: Settings{Room: "Living", HeatStep: 5}})

	prev, next := d.UpdateSettings(func(s *Settings) { s.Room = "Lounge" })
	if prev.Room != "Living" || next.Room != "Lounge" || next.HeatStep != 5 {
		t.Errorf("UpdateSettings() = %+v, %+v", prev, next)
	}
	if d.Settings().Room != "Lounge" {
		t.Errorf("Settings().Room = %q", d.Settings().Room)
	}
}
