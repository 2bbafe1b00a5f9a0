package device

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrDuplicateDevice = errors.New("duplicate device name")
	ErrUnsupported     = errors.New("operation not supported by device kind")
)

// Spec describes a device at creation time.
type Spec struct {
	Name     string
	Kind     Kind
	Unit     Unit
	HomeID   int64
	ZoneID   int64
	Serial   string
	Anyone   bool
	Settings Settings
}

// Device is one physical or logical entity. Identity fields are immutable;
// state and settings are guarded by the device mutex so that writes to a
// single device are totally ordered.
type Device struct {
	Name   string
	Kind   Kind
	Unit   Unit
	HomeID int64
	ZoneID int64
	Serial string
	// Anyone marks the occupancy device that mirrors every other occupancy device.
	Anyone bool

	mu       sync.RWMutex
	state    LocalState
	settings Settings
	pending  *time.Timer
	delay    *time.Timer
}

// New creates a device and derives its initial state from s.
func New(s Spec) *Device {
	level, low := BatteryFromState(s.Settings.BatteryState)
	d := &Device{
		Name:     s.Name,
		Kind:     s.Kind,
		Unit:     s.Unit,
		HomeID:   s.HomeID,
		ZoneID:   s.ZoneID,
		Serial:   s.Serial,
		Anyone:   s.Anyone,
		settings: s.Settings,
	}
	d.state = LocalState{
		DisplayUnit:  s.Unit,
		BatteryLevel: level,
		BatteryLow:   low,
	}
	if s.Kind.IsThermostat() {
		b := d.Bounds()
		d.state.TargetTemperature = b.Min
		d.state.AutoSetpoint = b.Min
		if s.Unit == Fahrenheit {
			d.state.AutoSetpoint = (b.Min - 32) * 5 / 9
		}
	}
	if s.Kind == KindCentral {
		d.state.Aggregate = &AggregateView{}
	}
	return d
}

// Bounds returns the valid target temperature range of the device.
func (d *Device) Bounds() Bounds {
	return d.Kind.Bounds(d.Unit)
}

// State returns a copy of the current state.
func (d *Device) State() LocalState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.clone()
}

// Update mutates the state under the device lock and returns the result.
func (d *Device) Update(fn func(*LocalState)) LocalState {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.state)
	return d.state.clone()
}

// Apply replaces the state with the result of fn, computed from the current
// state under the device lock. On error the state is left untouched.
func (d *Device) Apply(fn func(prior LocalState) (LocalState, error)) (LocalState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := fn(d.state.clone())
	if err != nil {
		return d.state.clone(), err
	}
	d.state = next
	return d.state.clone(), nil
}

// Settings returns the current settings.
func (d *Device) Settings() Settings {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.settings
}

// UpdateSettings mutates the settings and returns the previous and new values.
func (d *Device) UpdateSettings(fn func(*Settings)) (prev, next Settings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev = d.settings
	fn(&d.settings)
	return prev, d.settings
}

// Schedule arms the deferred state action, replacing any previous one.
func (d *Device) Schedule(after time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(after, func() {
		d.mu.Lock()
		if d.pending != t {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		fn()
	})
	d.pending = t
}

// CancelScheduled stops the deferred state action. It reports whether one was pending.
func (d *Device) CancelScheduled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return false
	}
	d.pending.Stop()
	d.pending = nil
	return true
}

// HasScheduled reports whether a deferred state action is armed.
func (d *Device) HasScheduled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pending != nil
}

// ArmDelay starts the extended delay timer. fn runs once it expires unless
// the timer is re-armed or disarmed first.
func (d *Device) ArmDelay(after time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delay != nil {
		d.delay.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(after, func() {
		d.mu.Lock()
		if d.delay != t {
			d.mu.Unlock()
			return
		}
		d.delay = nil
		d.mu.Unlock()
		fn()
	})
	d.delay = t
}

// DisarmDelay stops the extended delay timer.
func (d *Device) DisarmDelay() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delay != nil {
		d.delay.Stop()
		d.delay = nil
	}
}

func (s LocalState) clone() LocalState {
	if s.Aggregate != nil {
		agg := *s.Aggregate
		s.Aggregate = &agg
	}
	return s
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a device name into a topic-safe identifier.
func Slug(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
