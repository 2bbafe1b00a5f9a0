package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Identify makes the device with the given serial number flash its display.
func (c *Client) Identify(ctx context.Context, serial string) error {
	path := fmt.Sprintf("devices/%s/identify", url.PathEscape(serial))
	_, err := c.doRequest(ctx, http.MethodPost, path, nil)
	return err
}
