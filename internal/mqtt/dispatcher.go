package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tado_bridge/internal/device"
)

// Issuer is the set of device commands reachable over MQTT.
type Issuer interface {
	SetTargetState(ctx context.Context, name string, mode device.Mode) (device.LocalState, error)
	SetTargetTemperature(ctx context.Context, name string, value float64) (device.LocalState, error)
	SetDisplayUnit(name string, unit device.Unit) (device.LocalState, error)
	SetDelay(name string, on bool) (device.LocalState, error)
	CancelDelay(name string) (bool, error)
	SetHeatStep(name string, step float64) error
	SetCoolStep(name string, step float64) error
	SetDelaySeconds(name string, seconds int) error
	SetPresence(name string, present bool) (device.LocalState, error)
	Identify(ctx context.Context, name string) error
}

// Central is the central switch.
type Central interface {
	Set(ctx context.Context, on bool) error
	SetWindowSwitch(on bool) device.LocalState
}

// Dispatcher maps command topics to issuer and central operations.
type Dispatcher struct {
	topics   Topics
	registry *device.Registry
	issuer   Issuer
	central  Central
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. central may be nil when no central
// device is configured.
func NewDispatcher(prefix string, registry *device.Registry, issuer Issuer, central Central, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		topics:   Topics{Prefix: prefix},
		registry: registry,
		issuer:   issuer,
		central:  central,
		logger:   logger,
	}
}

// Handle executes the command addressed by topic.
func (d *Dispatcher) Handle(ctx context.Context, topic string, payload []byte) error {
	slug, command, ok := d.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, topic)
	}
	dev, err := d.registry.GetBySlug(slug)
	if err != nil {
		return err
	}
	value := normalize(payload)
	d.logger.Debug("MQTT command", "device", dev.Name, "command", command, "value", value)

	if dev.Kind == device.KindCentral {
		return d.handleCentral(ctx, command, value)
	}

	switch command {
	case CmdTargetState:
		mode, err := device.ParseMode(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		_, err = d.issuer.SetTargetState(ctx, dev.Name, mode)
		return err
	case CmdTargetTemperature:
		v, err := parseFloat(value)
		if err != nil {
			return err
		}
		_, err = d.issuer.SetTargetTemperature(ctx, dev.Name, v)
		return err
	case CmdDisplayUnit:
		unit, err := device.ParseUnit(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		_, err = d.issuer.SetDisplayUnit(dev.Name, unit)
		return err
	case CmdDelay:
		on, err := parseBool(value)
		if err != nil {
			return err
		}
		_, err = d.issuer.SetDelay(dev.Name, on)
		return err
	case CmdCancelDelay:
		_, err := d.issuer.CancelDelay(dev.Name)
		return err
	case CmdHeatStep, CmdCoolStep:
		v, err := parseFloat(value)
		if err != nil {
			return err
		}
		if command == CmdHeatStep {
			return d.issuer.SetHeatStep(dev.Name, v)
		}
		return d.issuer.SetCoolStep(dev.Name, v)
	case CmdDelaySeconds:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidPayload, value)
		}
		return d.issuer.SetDelaySeconds(dev.Name, v)
	case CmdPresence:
		on, err := parseBool(value)
		if err != nil {
			return err
		}
		_, err = d.issuer.SetPresence(dev.Name, on)
		return err
	case CmdIdentify:
		return d.issuer.Identify(ctx, dev.Name)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

func (d *Dispatcher) handleCentral(ctx context.Context, command, value string) error {
	if d.central == nil {
		return fmt.Errorf("%w: no central switch", device.ErrUnsupported)
	}
	switch command {
	case CmdSwitch:
		on, err := parseBool(value)
		if err != nil {
			return err
		}
		return d.central.Set(ctx, on)
	case CmdWindowSwitch:
		on, err := parseBool(value)
		if err != nil {
			return err
		}
		d.central.SetWindowSwitch(on)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

// normalize strips whitespace and JSON string quotes.
func normalize(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidPayload, s)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPayload, s)
	}
	return v, nil
}
