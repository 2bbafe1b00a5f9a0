package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
)

// Observer records the outcome of poll cycles.
type Observer interface {
	ObservePoll(class string, took time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObservePoll(string, time.Duration, error) {}

// Task polls one device for the lifetime of the process. A cycle fetches,
// translates and publishes before the next one is scheduled, so there is
// never more than one fetch in flight for a device.
type Task struct {
	Device     *device.Device
	Class      string
	Fetch      Fetcher
	Translator mapper.Translator
	Interval   time.Duration

	backoff   *Backoff
	publisher device.Publisher
	sink      device.SampleSink
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// Run polls until ctx is cancelled. It only returns nil.
func (t *Task) Run(ctx context.Context) error {
	t.logger.Debug("Poll task started", "interval", t.Interval)
	for ctx.Err() == nil {
		delay := t.cycle(ctx)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Debug("Poll task stopped")
			return nil
		case <-timer.C:
		}
	}
	return nil
}

// cycle runs one fetch and apply step and returns the delay before the next.
func (t *Task) cycle(ctx context.Context) time.Duration {
	start := t.now()
	prior := t.Device.State()

	payload, err := t.Fetch(ctx, t.Device)
	var next device.LocalState
	if err == nil {
		payload.At = start
		next, err = t.Device.Apply(func(p device.LocalState) (device.LocalState, error) {
			s, err := t.Translator.Translate(payload, p, t.Device.Unit)
			if err != nil {
				return p, fmt.Errorf("translate: %w", err)
			}
			s.UpdatedAt = start
			return s, nil
		})
	}
	t.observer.ObservePoll(t.Class, t.now().Sub(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		delay, escalated := t.backoff.Failure(t.Class)
		if escalated {
			t.logger.Error("Polling failed repeatedly, backing off", "retry_in", delay, "error", err)
		} else {
			t.logger.Debug("Poll failed", "retry_in", delay, "error", err)
		}
		// Keep consumers fed with the last known state.
		t.publisher.Publish(t.Device, t.Device.State())
		return delay
	}

	t.backoff.Success(t.Class)
	t.report(prior, next)
	t.publisher.Publish(t.Device, next)
	return t.Interval
}

// report logs transitions and emits a historical sample when a tracked value changed.
func (t *Task) report(prior, next device.LocalState) {
	first := prior.UpdatedAt.IsZero()

	switch t.Device.Kind {
	case device.KindWindow:
		if !first && !prior.WindowOpen && next.WindowOpen {
			t.logger.Info("Open window detected, heating paused",
				"room", t.Device.Settings().Room, "minutes", next.WindowDuration/60)
		}
		if !first && prior.WindowOpen && !next.WindowOpen {
			t.logger.Info("Window closed", "room", t.Device.Settings().Room)
		}
		return
	case device.KindOccupancy:
		if prior.Occupied != next.Occupied {
			if t.Device.Anyone && !next.Occupied && !first {
				t.logger.Info("Nobody at home!")
			}
			status := 0.0
			if next.Occupied {
				status = 1
			}
			t.sink.AppendSample(t.Device, next.UpdatedAt, map[string]float64{mapper.FieldStatus: status})
		}
		return
	case device.KindSolar, device.KindCentral:
		return
	}

	changed := prior.CurrentTemperature != next.CurrentTemperature ||
		prior.Humidity != next.Humidity ||
		prior.Pressure != next.Pressure
	if !changed {
		return
	}
	if !first && prior.CurrentTemperature != next.CurrentTemperature {
		t.logger.Debug("Temperature changed",
			"from", prior.CurrentTemperature, "to", next.CurrentTemperature, "unit", t.Device.Unit.Symbol())
	}

	fields := map[string]float64{mapper.FieldTemperature: next.CurrentTemperature}
	if next.Humidity != 0 {
		fields[mapper.FieldHumidity] = next.Humidity
	}
	if next.Pressure != 0 {
		fields[mapper.FieldPressure] = next.Pressure
	}
	t.sink.AppendSample(t.Device, next.UpdatedAt, fields)
}
