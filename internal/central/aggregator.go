// Package central derives the central switch from the thermostats and
// cascades central commands back to them.
package central

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tado_bridge/internal/device"
)

// DefaultInterval is the aggregation cycle.
const DefaultInterval = time.Second

// Commander issues target state writes to a single thermostat.
type Commander interface {
	SetTargetState(ctx context.Context, name string, mode device.Mode) (device.LocalState, error)
}

// Aggregator owns the central switch device.
type Aggregator struct {
	registry  *device.Registry
	central   *device.Device
	commander Commander
	publisher device.Publisher
	logger    *slog.Logger
	interval  time.Duration
}

// NewAggregator creates an aggregator for the central device.
func NewAggregator(registry *device.Registry, central *device.Device, commander Commander, publisher device.Publisher, logger *slog.Logger) (*Aggregator, error) {
	if central.Kind != device.KindCentral {
		return nil, fmt.Errorf("%w: %s is not a central switch", device.ErrUnsupported, central.Name)
	}
	if publisher == nil {
		publisher = device.Publishers(nil)
	}
	return &Aggregator{
		registry:  registry,
		central:   central,
		commander: commander,
		publisher: publisher,
		logger:    logger.With("device", central.Name, "kind", string(central.Kind)),
		interval:  DefaultInterval,
	}, nil
}

// Aggregate classifies thermostat states by target state.
func Aggregate(states []device.LocalState) device.AggregateView {
	var v device.AggregateView
	for _, s := range states {
		switch s.TargetState {
		case device.Auto:
			v.CountAuto++
		case device.Heat, device.Cool:
			v.CountManual++
		default:
			v.CountOff++
		}
	}
	v.MaxCount = len(states)
	v.MainSwitchOn = v.CountAuto > 0
	return v
}

func (a *Aggregator) thermostats() []*device.Device {
	return a.registry.ListByKind(device.KindRadiator, device.KindBoiler)
}

// Recompute rebuilds the aggregate view from the current thermostat states
// and stores it on the central device.
func (a *Aggregator) Recompute() device.AggregateView {
	devs := a.thermostats()
	states := make([]device.LocalState, 0, len(devs))
	for _, d := range devs {
		states = append(states, d.State())
	}
	view := Aggregate(states)

	var prev device.AggregateView
	now := time.Now()
	state := a.central.Update(func(s *device.LocalState) {
		if s.Aggregate != nil {
			prev = *s.Aggregate
		}
		agg := view
		s.Aggregate = &agg
		s.UpdatedAt = now
	})
	if prev != view {
		a.logger.Debug("Aggregate changed",
			"auto", view.CountAuto, "manual", view.CountManual, "off", view.CountOff, "on", view.MainSwitchOn)
	}
	a.publisher.Publish(a.central, state)
	return view
}

// Run recomputes the aggregate until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.Recompute()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Recompute()
		}
	}
}

// Set cascades the central switch to every thermostat that is idle.
// Turning on moves thermostats that are off to Auto; turning off moves every
// thermostat that is not off to Off. Thermostats actively heating or cooling
// are skipped. Failures do not stop the cascade and are not rolled back.
func (a *Aggregator) Set(ctx context.Context, on bool) error {
	target := device.Off
	if on {
		target = device.Auto
	}
	a.logger.Info("Central switch cascade", "on", on)

	var errs []error
	applied := 0
	for _, d := range a.thermostats() {
		s := d.State()
		if s.CurrentState != device.Off {
			continue
		}
		if on && s.TargetState != device.Off {
			continue
		}
		if !on && s.TargetState == device.Off {
			continue
		}
		if _, err := a.commander.SetTargetState(ctx, d.Name, target); err != nil {
			a.logger.Error("Cascade failed for thermostat", "thermostat", d.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		applied++
	}
	a.logger.Info("Central switch cascade done", "applied", applied, "failed", len(errs))

	a.Recompute()
	return errors.Join(errs...)
}

// SetWindowSwitch toggles the window switch shown on the central device.
func (a *Aggregator) SetWindowSwitch(on bool) device.LocalState {
	var changed bool
	state := a.central.Update(func(s *device.LocalState) {
		changed = s.WindowSwitch != on
		s.WindowSwitch = on
	})
	if changed {
		a.logger.Info("Window switch changed", "on", on)
	}
	a.publisher.Publish(a.central, state)
	return state
}
