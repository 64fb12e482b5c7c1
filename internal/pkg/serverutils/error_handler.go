package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// statusCoder is implemented by service and validation errors.
type statusCoder interface {
	StatusCode() int
}

func ErrorHandlerMiddleware() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var sc statusCoder
		var fe *fiber.Error
		switch {
		case errors.As(err, &sc):
			code = sc.StatusCode()
			message = err.Error()
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			return ctx.Status(code).JSON(fiber.Map{
				"success": false,
				"code":    code,
				"message": "validation failed",
				"errors":  ve.Fields,
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
