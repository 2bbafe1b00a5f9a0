package poller

import (
	"context"

	"tado_bridge/internal/device"
	"tado_bridge/internal/mapper"
	"tado_bridge/internal/types"
)

// Fetcher pulls the raw input of one poll cycle for a device.
type Fetcher func(ctx context.Context, d *device.Device) (mapper.Payload, error)

// ZoneReader reads zone states.
type ZoneReader interface {
	GetZoneState(ctx context.Context, homeID, zoneID int64) (*types.ZoneState, error)
}

// WeatherReader reads the home weather.
type WeatherReader interface {
	GetWeather(ctx context.Context, homeID int64) (*types.Weather, error)
}

// OpenWeatherReader reads third-party weather.
type OpenWeatherReader interface {
	Current(ctx context.Context, units string) (*types.OpenWeather, error)
}

// ZoneFetcher fetches the zone state addressed by the device.
func ZoneFetcher(r ZoneReader) Fetcher {
	return func(ctx context.Context, d *device.Device) (mapper.Payload, error) {
		z, err := r.GetZoneState(ctx, d.HomeID, d.ZoneID)
		if err != nil {
			return mapper.Payload{}, err
		}
		return mapper.Payload{Zone: z}, nil
	}
}

// WeatherFetcher fetches the weather of the device's home.
func WeatherFetcher(r WeatherReader) Fetcher {
	return func(ctx context.Context, d *device.Device) (mapper.Payload, error) {
		w, err := r.GetWeather(ctx, d.HomeID)
		if err != nil {
			return mapper.Payload{}, err
		}
		return mapper.Payload{Weather: w}, nil
	}
}

// OpenWeatherFetcher fetches third-party weather in the device's unit system.
func OpenWeatherFetcher(r OpenWeatherReader) Fetcher {
	return func(ctx context.Context, d *device.Device) (mapper.Payload, error) {
		w, err := r.Current(ctx, d.Unit.OpenWeatherUnits())
		if err != nil {
			return mapper.Payload{}, err
		}
		return mapper.Payload{OpenWeather: w}, nil
	}
}

// PresenceFetcher computes presence locally. The aggregate device is present
// when any other occupancy device is; other occupancy devices carry no
// payload and keep the presence set through commands.
func PresenceFetcher(reg *device.Registry) Fetcher {
	return func(_ context.Context, d *device.Device) (mapper.Payload, error) {
		if !d.Anyone {
			return mapper.Payload{}, nil
		}
		present := AnyonePresent(reg)
		return mapper.Payload{Presence: &present}, nil
	}
}

// AnyonePresent reports whether any non-aggregate occupancy device is occupied.
func AnyonePresent(reg *device.Registry) bool {
	for _, o := range reg.ListByKind(device.KindOccupancy) {
		if o.Anyone {
			continue
		}
		if o.State().Occupied {
			return true
		}
	}
	return false
}
