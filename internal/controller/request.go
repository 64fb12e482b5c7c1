package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// userFrom prefers an explicit user id and falls back to the JWT subject.
func userFrom(ctx *fiber.Ctx, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, ok := ctx.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

func paramUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryUUID(ctx *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func queryTime(ctx *fiber.Ctx, name string) (time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" must be an RFC3339 timestamp")
	}
	return t, nil
}
