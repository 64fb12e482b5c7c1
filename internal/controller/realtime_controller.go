package controller

import (
	"errors"

	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/pkg/cache"

	"github.com/gofiber/fiber/v2"
)

type IRealtimeController interface {
	RegisterRoutes(r fiber.Router)
	CurrentLoad(ctx *fiber.Ctx) error
	CognitiveState(ctx *fiber.Ctx) error
	Trend(ctx *fiber.Ctx) error
	Buffers(ctx *fiber.Ctx) error
}

type realtimeController struct {
	service service.IRealtimeService
	// cache answers for users streaming into another instance. May be nil.
	cache  *cache.WorkloadCache
	logger logger.ILogger
}

func NewRealtimeController(service service.IRealtimeService, cache *cache.WorkloadCache, log logger.ILogger) IRealtimeController {
	return &realtimeController{service: service, cache: cache, logger: log}
}

func (c *realtimeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/realtime")
	h.Get("/load", c.CurrentLoad)
	h.Get("/state", c.CognitiveState)
	h.Get("/trend", c.Trend)
	h.Get("/buffers", c.Buffers)
}

func (c *realtimeController) CurrentLoad(ctx *fiber.Ctx) error {
	var req dto.RealtimeRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	userId := userFrom(ctx, req.UserId)

	res, err := c.service.CurrentLoad(userId)
	if err == nil {
		return ctx.JSON(serverutils.SuccessResponse("Current workload", res))
	}
	if c.cache == nil || userId == "" || !(errors.Is(err, service.ErrNoActiveSessions) || errors.Is(err, service.ErrNoPredictions)) {
		return err
	}

	ev, ok, cerr := c.cache.Latest(ctx.UserContext(), userId)
	if cerr != nil {
		c.logger.Warn("RealtimeController", "Workload cache lookup failed", map[string]interface{}{
			"user_id": userId,
			"error":   cerr.Error(),
		})
		return err
	}
	if !ok {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Current workload", &dto.CurrentLoadResponse{
		UserId:     ev.UserID,
		SessionId:  ev.SessionID,
		Timestamp:  ev.OccurredAt,
		Workload:   ev.Workload,
		Confidence: ev.Confidence,
		Trend:      service.TrendUnknown,
		Features:   ev.Features,
	}))
}

func (c *realtimeController) CognitiveState(ctx *fiber.Ctx) error {
	var req dto.RealtimeRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CognitiveState(userFrom(ctx, req.UserId))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cognitive state", res))
}

func (c *realtimeController) Trend(ctx *fiber.Ctx) error {
	var req dto.TrendRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Trend(userFrom(ctx, req.UserId), req.Minutes)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Workload trend", res))
}

func (c *realtimeController) Buffers(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Buffer status", c.service.BufferStatus()))
}
