package controller

import (
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type logController struct {
	app     logger.ILogger
	gateway logger.ILogger
}

// NewLogController serves the application log and the gateway's isolated log.
func NewLogController(app, gateway logger.ILogger) ILogController {
	return &logController{app: app, gateway: gateway}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/logs")
	h.Get("", c.GetLogs)
	h.Get("/:id", c.GetLogDetail)
}

func (c *logController) source(ctx *fiber.Ctx) logger.ILogger {
	if ctx.Query("source") == "gateway" {
		return c.gateway
	}
	return c.app
}

func (c *logController) GetLogs(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)
	if limit < 1 || limit > 1000 || offset < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be 1-1000 and offset non-negative")
	}

	logs, err := c.source(ctx).GetLogs(ctx.Query("level"), limit, offset)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *logController) GetLogDetail(ctx *fiber.Ctx) error {
	l, err := c.source(ctx).GetLogById(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}
