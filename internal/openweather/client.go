// Package openweather fetches current conditions from OpenWeatherMap.
package openweather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"tado_bridge/internal/api"
	"tado_bridge/internal/types"
)

// DefaultBaseURL is the current weather endpoint.
const DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// Client queries the current weather of one location.
type Client struct {
	gate     *api.Gate
	baseURL  string
	apiKey   string
	location string
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(gate *api.Gate, baseURL, apiKey, location string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		gate:     gate,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		location: location,
	}
}

// Current returns the current conditions. units is "metric" or "imperial".
func (c *Client) Current(ctx context.Context, units string) (*types.OpenWeather, error) {
	q := url.Values{}
	q.Set("q", c.location)
	q.Set("appid", c.apiKey)
	q.Set("units", units)

	data, err := c.gate.Do(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var w types.OpenWeather
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &api.DecodeError{What: "openweather", Err: err}
	}

	return &w, nil
}
