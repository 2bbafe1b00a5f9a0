package api

import (
	"context"
	"fmt"
	"net/http"

	"tado_bridge/internal/types"
)

// GetZoneState retrieves the current state of a zone.
func (c *Client) GetZoneState(ctx context.Context, homeID, zoneID int64) (*types.ZoneState, error) {
	path := fmt.Sprintf("homes/%d/zones/%d/state", homeID, zoneID)

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var state types.ZoneState
	if err := decode("zone state", data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// SetOverlay places a manual overlay on a zone.
func (c *Client) SetOverlay(ctx context.Context, homeID, zoneID int64, overlay types.OverlayRequest) error {
	path := fmt.Sprintf("homes/%d/zones/%d/overlay", homeID, zoneID)
	_, err := c.doRequest(ctx, http.MethodPut, path, overlay)
	return err
}

// DeleteOverlay removes the manual overlay so the zone follows its schedule again.
func (c *Client) DeleteOverlay(ctx context.Context, homeID, zoneID int64) error {
	path := fmt.Sprintf("homes/%d/zones/%d/overlay", homeID, zoneID)
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}
