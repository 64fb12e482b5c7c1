package controller

import (
	"eeg-workload-be/internal/dto"
	"eeg-workload-be/internal/pkg/serverutils"
	"eeg-workload-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	UpdateNotes(ctx *fiber.Ctx) error
	AddEvent(ctx *fiber.Ctx) error
	Events(ctx *fiber.Ctx) error
	Predictions(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Get("/events", c.Events)
	h.Post("/events", c.AddEvent)
	h.Post("/:id/end", c.End)
	h.Patch("/:id/notes", c.UpdateNotes)
	h.Post("/:id/events", c.AddEvent)
	h.Get("/:id/predictions", c.Predictions)
	h.Get("/:id/summary", c.Summary)
	h.Get("/:id/export", c.Export)
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	var req dto.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.UserId = userFrom(ctx, req.UserId)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.UserId = userFrom(ctx, req.UserId)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.EndSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	req.SessionId = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.End(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success end session", res))
}

func (c *sessionController) UpdateNotes(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateSessionNotesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.SessionId = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateNotes(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update notes", res))
}

// AddEvent serves both /sessions/:id/events and /sessions/events; the latter
// annotates the user's open session.
func (c *sessionController) AddEvent(ctx *fiber.Ctx) error {
	var req dto.AddEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if ctx.Params("id") != "" {
		id, err := paramUUID(ctx, "id")
		if err != nil {
			return err
		}
		req.SessionId = &id
	}
	req.UserId = userFrom(ctx, req.UserId)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AddEvent(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add event", res))
}

func (c *sessionController) Events(ctx *fiber.Ctx) error {
	sessionId, err := queryUUID(ctx, "session_id")
	if err != nil {
		return err
	}
	req := dto.ListEventsRequest{
		SessionId: sessionId,
		UserId:    userFrom(ctx, ctx.Query("user_id")),
		Limit:     ctx.QueryInt("limit"),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Events(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get events", res))
}

func (c *sessionController) Predictions(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}
	limit := ctx.QueryInt("limit")
	if limit < 0 || limit > 10000 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 10000")
	}

	res, err := c.service.Predictions(ctx.UserContext(), id, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get predictions", res))
}

func (c *sessionController) Summary(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Summary(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session summary", res))
}

func (c *sessionController) Export(ctx *fiber.Ctx) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Export(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="session-`+id.String()+`.json"`)
	return ctx.JSON(res)
}
