package websocket

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fws "github.com/gofiber/websocket/v2"
)

// UpgradeRequired rejects plain HTTP requests to the ingestion endpoint.
func UpgradeRequired(c *fiber.Ctx) error {
	if fws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves producer connections on a fiber route.
func (g *Gateway) Handler(ctx context.Context) fiber.Handler {
	return fws.New(func(c *fws.Conn) {
		g.Serve(ctx, c, c.RemoteAddr().String())
	}, fws.Config{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 16 * 1024,
	})
}
