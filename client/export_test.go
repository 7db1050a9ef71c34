package client

import "context"

// SharedRefresh exposes the refresh flight to the external tests.
func (c *Client) SharedRefresh(ctx context.Context, refreshToken string) error {
	return c.sharedRefresh(ctx, refreshToken)
}
