package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	startedAt time.Time
	storage   string
}

func NewHealthController(storage string) IHealthController {
	return &healthController{startedAt: time.Now(), storage: storage}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":         "ok",
		"storage":        c.storage,
		"uptime_seconds": time.Since(c.startedAt).Seconds(),
	})
}
