package api

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

const (
	pathBulletPublic  = "/api/v1/bullet-public"
	pathBulletPrivate = "/api/v1/bullet-private"
)

// BulletPublic requests a token for public channels.
func (c *Client) BulletPublic(ctx context.Context) (*InstanceServers, error) {
	var out InstanceServers
	if err := c.post(ctx, pathBulletPublic, false, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("bullet token issued", "private", false, "servers", len(out.InstanceServers))
	return &out, nil
}

// BulletPrivate requests a token that also authorises private channels.
// The request is signed.
func (c *Client) BulletPrivate(ctx context.Context) (*InstanceServers, error) {
	var out InstanceServers
	if err := c.post(ctx, pathBulletPrivate, true, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("bullet token issued", "private", true, "servers", len(out.InstanceServers))
	return &out, nil
}

// Bullet picks BulletPrivate when private is set, BulletPublic otherwise.
func (c *Client) Bullet(ctx context.Context, private bool) (*InstanceServers, error) {
	if private {
		return c.BulletPrivate(ctx)
	}
	return c.BulletPublic(ctx)
}

// ConnectURL builds the websocket URL for a server:
// <endpoint>?token=<token>&connectId=<unix ms>.
func ConnectURL(server InstanceServer, token string, now time.Time) string {
	return server.Endpoint +
		"?token=" + url.QueryEscape(token) +
		"&connectId=" + strconv.FormatInt(now.UnixMilli(), 10)
}
