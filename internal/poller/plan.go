package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
)

// Backoff classes. Devices of one class share a failure counter.
const (
	ClassThermostats    = "thermostats"
	ClassBoiler         = "boiler"
	ClassOccupancy      = "occupancy"
	ClassWeather        = "weather"
	ClassOpenWeather    = "openweather"
	ClassExternalSensor = "external_sensor"
	ClassWindowSensor   = "window_sensor"
	ClassSolar          = "solar"
)

// DefaultPresenceInterval is the recompute interval of occupancy devices.
const DefaultPresenceInterval = time.Second

// ClassFor returns the backoff class of a kind.
func ClassFor(k device.Kind) string {
	switch k {
	case device.KindRadiator, device.KindRemote:
		return ClassThermostats
	case device.KindBoiler:
		return ClassBoiler
	case device.KindOccupancy:
		return ClassOccupancy
	case device.KindWeather:
		return ClassWeather
	case device.KindExternalSensor:
		return ClassExternalSensor
	case device.KindWindow:
		return ClassWindowSensor
	case device.KindSolar:
		return ClassSolar
	}
	return string(k)
}

// Sources are the remote readers the tasks fetch from.
type Sources struct {
	Zones   ZoneReader
	Weather WeatherReader
	// OpenWeather enables the extended weather task when set.
	OpenWeather OpenWeatherReader
	// TimeZone renders sunrise and sunset. Nil means local time.
	TimeZone *time.Location
}

// Options configure the planned tasks.
type Options struct {
	Interval         time.Duration
	PresenceInterval time.Duration
	Backoff          *Backoff
	Publisher        device.Publisher
	Sink             device.SampleSink
	Observer         Observer
	Logger           *slog.Logger
	Now              func() time.Time
}

// Plan creates the poll tasks for every device in the registry. The central
// switch has no task; it belongs to the aggregator.
func Plan(reg *device.Registry, src Sources, opts Options) ([]*Task, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	if opts.PresenceInterval <= 0 {
		opts.PresenceInterval = DefaultPresenceInterval
	}
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff()
	}
	if opts.Publisher == nil {
		opts.Publisher = device.Publishers(nil)
	}
	if opts.Sink == nil {
		opts.Sink = device.NopSampleSink{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var tasks []*Task
	add := func(d *device.Device, class string, fetch Fetcher, tr mapper.Translator, interval time.Duration) {
		tasks = append(tasks, &Task{
			Device:     d,
			Class:      class,
			Fetch:      fetch,
			Translator: tr,
			Interval:   interval,
			backoff:    opts.Backoff,
			publisher:  opts.Publisher,
			sink:       opts.Sink,
			observer:   opts.Observer,
			logger:     opts.Logger.With("device", d.Name, "kind", string(d.Kind), "class", class),
			now:        opts.Now,
		})
	}

	for _, d := range reg.All() {
		if d.Kind == device.KindCentral {
			continue
		}
		tr, err := mapper.For(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", d.Name, err)
		}

		switch {
		case d.Kind.UsesZone():
			if src.Zones == nil {
				return nil, fmt.Errorf("device %s: no zone source", d.Name)
			}
			add(d, ClassFor(d.Kind), ZoneFetcher(src.Zones), tr, opts.Interval)
		case d.Kind == device.KindWeather || d.Kind == device.KindSolar:
			if src.Weather == nil {
				return nil, fmt.Errorf("device %s: no weather source", d.Name)
			}
			add(d, ClassFor(d.Kind), WeatherFetcher(src.Weather), tr, opts.Interval)
			if d.Kind == device.KindWeather && src.OpenWeather != nil {
				add(d, ClassOpenWeather, OpenWeatherFetcher(src.OpenWeather),
					mapper.NewOpenWeatherTranslator(src.TimeZone), opts.Interval)
			}
		case d.Kind == device.KindOccupancy:
			add(d, ClassOccupancy, PresenceFetcher(reg), tr, opts.PresenceInterval)
		}
	}

	return tasks, nil
}
