package api

import (
	"context"
	"fmt"
	"net/http"

	"tado_bridge/internal/types"
)

// GetWeather retrieves outside temperature and solar intensity for a home.
func (c *Client) GetWeather(ctx context.Context, homeID int64) (*types.Weather, error) {
	path := fmt.Sprintf("homes/%d/weather", homeID)

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var weather types.Weather
	if err := decode("weather", data, &weather); err != nil {
		return nil, err
	}

	return &weather, nil
}
