package command

import (
	"context"
	"fmt"
	"time"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
)

// SetDisplayUnit changes the unit the presentation layer shows. The unit used
// to read and write the remote API is fixed at creation.
func (i *Issuer) SetDisplayUnit(name string, unit device.Unit) (device.LocalState, error) {
	d, err := i.registry.GetByName(name)
	if err != nil {
		return device.LocalState{}, err
	}
	state := d.Update(func(s *device.LocalState) { s.DisplayUnit = unit })
	i.log(d, "set_display_unit").Info("Display unit changed", "unit", unit.String())
	i.publisher.Publish(d, state)
	return state, nil
}

// SetDelay switches the extended delay switch. Turning it on with a delay
// configured arms a timer that turns it off again.
func (i *Issuer) SetDelay(name string, on bool) (device.LocalState, error) {
	d, err := i.thermostat(name)
	if err != nil {
		return device.LocalState{}, err
	}
	if !i.extendedDelay {
		return d.State(), fmt.Errorf("%w: extended delay is disabled", device.ErrUnsupported)
	}
	logger := i.log(d, "set_delay")

	seconds := d.Settings().DelaySeconds
	if !on || seconds <= 0 {
		d.DisarmDelay()
		state := d.Update(func(s *device.LocalState) { s.DelayActive = false })
		if on {
			logger.Info("No delay configured, delay switch reset")
		} else {
			logger.Info("Delay switch off")
		}
		i.publisher.Publish(d, state)
		return state, nil
	}

	state := d.Update(func(s *device.LocalState) { s.DelayActive = true })
	d.ArmDelay(time.Duration(seconds)*time.Second, func() {
		expired := d.Update(func(s *device.LocalState) { s.DelayActive = false })
		logger.Info("Delay expired")
		i.publisher.Publish(d, expired)
	})
	logger.Info("Delay switch on", "delay_seconds", seconds)
	i.publisher.Publish(d, state)
	return state, nil
}

// CancelDelay cancels a pending deferred Auto switch and the delay switch.
func (i *Issuer) CancelDelay(name string) (bool, error) {
	d, err := i.thermostat(name)
	if err != nil {
		return false, err
	}
	cancelled := d.CancelScheduled()
	d.DisarmDelay()
	state := d.Update(func(s *device.LocalState) { s.DelayActive = false })
	if cancelled {
		i.log(d, "cancel_delay").Info("Pending auto switch cancelled")
	}
	i.publisher.Publish(d, state)
	return cancelled, nil
}

// SetHeatStep sets the offset added to the sensed temperature by Heat.
func (i *Issuer) SetHeatStep(name string, step float64) error {
	return i.setStep(name, step, "set_heat_step", func(s *device.Settings) { s.HeatStep = step })
}

// SetCoolStep sets the offset subtracted from the sensed temperature by Cool.
func (i *Issuer) SetCoolStep(name string, step float64) error {
	return i.setStep(name, step, "set_cool_step", func(s *device.Settings) { s.CoolStep = step })
}

func (i *Issuer) setStep(name string, step float64, op string, fn func(*device.Settings)) error {
	d, err := i.thermostat(name)
	if err != nil {
		return err
	}
	if step < 0 || step > d.Kind.MaxStep() {
		return fmt.Errorf("step %v out of range 0-%v", step, d.Kind.MaxStep())
	}
	d.UpdateSettings(fn)
	i.log(d, op).Info("Step changed", "step", step, "unit", d.Unit.Symbol())
	return nil
}

// SetDelaySeconds sets the delay used by Auto or by the delay switch. Zero
// resets the delay switch.
func (i *Issuer) SetDelaySeconds(name string, seconds int) error {
	d, err := i.thermostat(name)
	if err != nil {
		return err
	}
	if seconds < 0 || seconds > MaxDelaySeconds {
		return fmt.Errorf("delay %d out of range 0-%d", seconds, MaxDelaySeconds)
	}
	d.UpdateSettings(func(s *device.Settings) { s.DelaySeconds = seconds })
	if seconds == 0 {
		d.DisarmDelay()
		i.publisher.Publish(d, d.Update(func(s *device.LocalState) { s.DelayActive = false }))
	}
	i.log(d, "set_delay_seconds").Info("Delay changed", "delay_seconds", seconds)
	return nil
}

// SetPresence sets the presence of a non-aggregate occupancy device.
func (i *Issuer) SetPresence(name string, present bool) (device.LocalState, error) {
	d, err := i.registry.GetByName(name)
	if err != nil {
		return device.LocalState{}, err
	}
	if d.Kind != device.KindOccupancy || d.Anyone {
		return d.State(), fmt.Errorf("%w: presence of %s is derived", device.ErrUnsupported, name)
	}

	now := i.now()
	var changed bool
	state := d.Update(func(s *device.LocalState) {
		changed = s.Occupied != present
		s.Occupied = present
		if present {
			s.LastActivation = now
		}
	})

	if changed {
		logger := i.log(d, "set_presence")
		status := 0.0
		if present {
			status = 1
			logger.Info("Welcome at home " + d.Name)
		} else {
			logger.Info("Bye bye " + d.Name)
		}
		i.sink.AppendSample(d, now, map[string]float64{mapper.FieldStatus: status})
	}
	i.publisher.Publish(d, state)
	return state, nil
}

// Identify asks the device to identify itself. Devices without a serial only log.
func (i *Issuer) Identify(ctx context.Context, name string) error {
	d, err := i.registry.GetByName(name)
	if err != nil {
		return err
	}
	logger := i.log(d, "identify")
	if d.Serial == "" {
		logger.Info("Hi!")
		return nil
	}
	if err := i.remote.Identify(ctx, d.Serial); err != nil {
		logger.Error("Identify failed", "error", err)
		return err
	}
	logger.Info("Identify sent", "serial", d.Serial)
	return nil
}

// ApplySettings replaces the settings of a device, as after a configuration
// reload, and logs what changed.
func (i *Issuer) ApplySettings(name string, next device.Settings) error {
	d, err := i.registry.GetByName(name)
	if err != nil {
		return err
	}
	prev, _ := d.UpdateSettings(func(s *device.Settings) { *s = next })
	logger := i.log(d, "apply_settings")

	if prev.Room != next.Room {
		logger.Info("Room changed", "from", prev.Room, "to", next.Room)
	}
	if prev.HeatStep != next.HeatStep || prev.CoolStep != next.CoolStep {
		logger.Info("Steps changed", "heat", next.HeatStep, "cool", next.CoolStep)
	}
	if prev.DelaySeconds != next.DelaySeconds {
		logger.Info("Delay changed", "delay_seconds", next.DelaySeconds)
	}
	if prev.BatteryState != next.BatteryState {
		level, low := device.BatteryFromState(next.BatteryState)
		state := d.Update(func(s *device.LocalState) {
			s.BatteryLevel = level
			s.BatteryLow = low
		})
		if low {
			logger.Warn("Battery LOW!", "state", next.BatteryState)
		} else {
			logger.Info("Battery OK")
		}
		i.publisher.Publish(d, state)
	}
	return nil
}
