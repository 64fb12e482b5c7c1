package controller

import (
	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHistoryController interface {
	RegisterRoutes(r fiber.Router)
	Workload(ctx *fiber.Ctx) error
	Patterns(ctx *fiber.Ctx) error
	SimilarFeatures(ctx *fiber.Ctx) error
}

type historyController struct {
	service service.IHistoryService
}

func NewHistoryController(service service.IHistoryService) IHistoryController {
	return &historyController{service: service}
}

func (c *historyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/history")
	h.Get("/workload", c.Workload)
	h.Get("/patterns", c.Patterns)
	h.Post("/features/similar", c.SimilarFeatures)
}

func (c *historyController) Workload(ctx *fiber.Ctx) error {
	sessionId, err := queryUUID(ctx, "session_id")
	if err != nil {
		return err
	}
	req := dto.WorkloadHistoryRequest{
		UserId:    userFrom(ctx, ctx.Query("user_id")),
		SessionId: sessionId,
		Minutes:   ctx.QueryInt("minutes"),
		Limit:     ctx.QueryInt("limit"),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.WorkloadHistory(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Workload history", res))
}

func (c *historyController) Patterns(ctx *fiber.Ctx) error {
	start, err := queryTime(ctx, "start")
	if err != nil {
		return err
	}
	end, err := queryTime(ctx, "end")
	if err != nil {
		return err
	}
	req := dto.PatternAnalysisRequest{
		UserId: userFrom(ctx, ctx.Query("user_id")),
		Start:  start,
		End:    end,
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AnalyzePatterns(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Workload patterns", res))
}

func (c *historyController) SimilarFeatures(ctx *fiber.Ctx) error {
	var req dto.SimilarFeaturesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SimilarFeatures(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Similar feature vectors", res))
}
