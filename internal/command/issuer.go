// Package command turns requested state changes into remote overlay writes.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
	"tado_bridge/internal/types"
)

// Defaults for the issuer.
const (
	DefaultStep         = 5
	DefaultRevertGrace  = 300 * time.Millisecond
	DefaultWriteTimeout = 30 * time.Second
	MaxDelaySeconds     = 600
)

// Remote is the write side of the Tado API.
type Remote interface {
	SetOverlay(ctx context.Context, homeID, zoneID int64, overlay types.OverlayRequest) error
	DeleteOverlay(ctx context.Context, homeID, zoneID int64) error
	Identify(ctx context.Context, serial string) error
}

// Issuer applies commands to devices. State is updated optimistically before
// the remote write completes; failed writes are logged and left for the next
// poll cycle to reconcile.
type Issuer struct {
	remote        Remote
	registry      *device.Registry
	publisher     device.Publisher
	sink          device.SampleSink
	logger        *slog.Logger
	extendedDelay bool
	revertGrace   time.Duration
	writeTimeout  time.Duration
	now           func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithExtendedDelay turns the delay seconds into a standalone delay switch
// instead of a deferral of the Auto command.
func WithExtendedDelay(on bool) Option {
	return func(i *Issuer) { i.extendedDelay = on }
}

// WithRevertGrace sets how long a rejected temperature stays displayed before it is reverted.
func WithRevertGrace(d time.Duration) Option {
	return func(i *Issuer) { i.revertGrace = d }
}

// WithPublisher sets where state changes are published.
func WithPublisher(p device.Publisher) Option {
	return func(i *Issuer) { i.publisher = p }
}

// WithSampleSink sets where presence samples go.
func WithSampleSink(s device.SampleSink) Option {
	return func(i *Issuer) { i.sink = s }
}

// WithWriteTimeout bounds remote writes issued from timers.
func WithWriteTimeout(d time.Duration) Option {
	return func(i *Issuer) { i.writeTimeout = d }
}

// NewIssuer creates an issuer over the registry.
func NewIssuer(remote Remote, registry *device.Registry, logger *slog.Logger, opts ...Option) *Issuer {
	i := &Issuer{
		remote:       remote,
		registry:     registry,
		publisher:    device.Publishers(nil),
		sink:         device.NopSampleSink{},
		logger:       logger,
		revertGrace:  DefaultRevertGrace,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// thermostat resolves a device that accepts heating commands.
func (i *Issuer) thermostat(name string) (*device.Device, error) {
	d, err := i.registry.GetByName(name)
	if err != nil {
		return nil, err
	}
	if !d.Kind.IsThermostat() {
		return nil, fmt.Errorf("%w: %s is a %s", device.ErrUnsupported, name, d.Kind)
	}
	return d, nil
}

func (i *Issuer) log(d *device.Device, op string) *slog.Logger {
	return i.logger.With("device", d.Name, "kind", string(d.Kind), "op", op, "cmd_id", uuid.NewString())
}

// SetTargetState handles off, heat, cool and auto requests.
func (i *Issuer) SetTargetState(ctx context.Context, name string, mode device.Mode) (device.LocalState, error) {
	d, err := i.thermostat(name)
	if err != nil {
		return device.LocalState{}, err
	}
	logger := i.log(d, "set_target_state").With("mode", mode.String())

	// An explicit state write supersedes a pending deferred Auto.
	if d.CancelScheduled() {
		logger.Info("Pending auto switch cancelled")
	}

	switch mode {
	case device.Heat, device.Cool:
		return i.manual(ctx, d, mode, logger), nil
	case device.Off:
		return i.off(ctx, d, logger), nil
	case device.Auto:
		return i.auto(ctx, d, logger), nil
	}
	return d.State(), fmt.Errorf("%w: mode %d", device.ErrUnsupported, mode)
}

func (i *Issuer) manual(ctx context.Context, d *device.Device, mode device.Mode, logger *slog.Logger) device.LocalState {
	settings := d.Settings()
	bounds := d.Bounds()

	var setpoint float64
	state := d.Update(func(s *device.LocalState) {
		if mode == device.Heat {
			setpoint = bounds.Clamp(s.CurrentTemperature + settings.HeatStep)
		} else {
			setpoint = bounds.Clamp(s.CurrentTemperature - settings.CoolStep)
		}
		s.CurrentState, s.TargetState = mode, mode
		s.TargetTemperature = setpoint
	})
	i.publisher.Publish(d, state)

	logger.Info("Switching to manual mode", "setpoint", setpoint, "unit", d.Unit.Symbol())
	i.write(ctx, d, logger, func(ctx context.Context) error {
		return i.remote.SetOverlay(ctx, d.HomeID, d.ZoneID, BuildOverlay(d, types.PowerOn, setpoint))
	})
	return state
}

func (i *Issuer) off(ctx context.Context, d *device.Device, logger *slog.Logger) device.LocalState {
	bounds := d.Bounds()
	state := d.Update(func(s *device.LocalState) {
		s.CurrentState, s.TargetState = device.Off, device.Off
		s.TargetTemperature = bounds.Clamp(s.CurrentTemperature)
	})
	i.publisher.Publish(d, state)

	logger.Info("Turning off")
	i.write(ctx, d, logger, func(ctx context.Context) error {
		return i.remote.SetOverlay(ctx, d.HomeID, d.ZoneID, BuildOverlay(d, types.PowerOff, 0))
	})
	return state
}

func (i *Issuer) auto(ctx context.Context, d *device.Device, logger *slog.Logger) device.LocalState {
	delay := d.Settings().DelaySeconds
	if delay > 0 && !i.extendedDelay {
		logger.Info("Switching to automatic mode after delay", "delay_seconds", delay)
		d.Schedule(time.Duration(delay)*time.Second, func() {
			ctx, cancel := context.WithTimeout(context.Background(), i.writeTimeout)
			defer cancel()
			i.applyAuto(ctx, d, logger)
		})
		return d.State()
	}
	return i.applyAuto(ctx, d, logger)
}

func (i *Issuer) applyAuto(ctx context.Context, d *device.Device, logger *slog.Logger) device.LocalState {
	bounds := d.Bounds()
	state := d.Update(func(s *device.LocalState) {
		s.CurrentState, s.TargetState = device.Off, device.Auto
		s.TargetTemperature = bounds.Clamp(mapper.CelsiusToUnit(s.AutoSetpoint, d.Unit))
	})
	i.publisher.Publish(d, state)

	logger.Info("Switching to automatic mode", "setpoint", state.TargetTemperature, "unit", d.Unit.Symbol())
	i.write(ctx, d, logger, func(ctx context.Context) error {
		return i.remote.DeleteOverlay(ctx, d.HomeID, d.ZoneID)
	})
	return state
}

// SetTargetTemperature writes a setpoint. While the device is off or
// following its schedule the request is not sent and the displayed value
// reverts to the schedule setpoint after the grace period.
func (i *Issuer) SetTargetTemperature(ctx context.Context, name string, value float64) (device.LocalState, error) {
	d, err := i.thermostat(name)
	if err != nil {
		return device.LocalState{}, err
	}
	logger := i.log(d, "set_target_temperature").With("value", value)
	bounds := d.Bounds()

	current := d.State()
	if current.TargetState == device.Off || current.TargetState == device.Auto {
		auto := bounds.Clamp(mapper.CelsiusToUnit(current.AutoSetpoint, d.Unit))
		if value == auto {
			return current, nil
		}
		logger.Warn("Temperature can only be changed in manual mode, reverting",
			"mode", current.TargetState.String(), "restore", auto)
		state := d.Update(func(s *device.LocalState) { s.TargetTemperature = auto })
		time.AfterFunc(i.revertGrace, func() { i.publisher.Publish(d, d.State()) })
		return state, nil
	}

	setpoint := bounds.Clamp(value)
	state := d.Update(func(s *device.LocalState) {
		s.TargetTemperature = setpoint
		s.CurrentState, s.TargetState = mapper.ManualModes(s.CurrentTemperature, setpoint)
	})
	i.publisher.Publish(d, state)

	logger.Info("Setting temperature", "setpoint", setpoint, "unit", d.Unit.Symbol(), "mode", state.TargetState.String())
	i.write(ctx, d, logger, func(ctx context.Context) error {
		return i.remote.SetOverlay(ctx, d.HomeID, d.ZoneID, BuildOverlay(d, types.PowerOn, setpoint))
	})
	return state, nil
}

// write performs a remote write. Failures are logged, never retried.
func (i *Issuer) write(ctx context.Context, d *device.Device, logger *slog.Logger, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Error("Remote write failed, next poll will reconcile", "error", err)
		return
	}
	logger.Debug("Remote write accepted")
}

// BuildOverlay builds the overlay body for a device. The setpoint is only
// sent when the power is on and always in the device's unit.
func BuildOverlay(d *device.Device, power string, setpoint float64) types.OverlayRequest {
	settingType := types.SettingHeating
	if d.Kind == device.KindBoiler {
		settingType = types.SettingHotWater
	}
	req := types.OverlayRequest{
		Setting:     types.OverlaySetting{Type: settingType, Power: power},
		Termination: types.Termination{Type: types.OverlayManual},
	}
	if power == types.PowerOn {
		v := setpoint
		if d.Unit == device.Fahrenheit {
			req.Setting.Temperature = &types.OverlayTemperature{Fahrenheit: &v}
		} else {
			req.Setting.Temperature = &types.OverlayTemperature{Celsius: &v}
		}
	}
	return req
}
