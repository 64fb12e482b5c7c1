package serverutils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notFound struct{}

func (notFound) Error() string   { return "session not found" }
func (notFound) StatusCode() int { return 404 }

type createReq struct {
	UserId string `json:"user_id" validate:"required,max=5"`
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandlerMiddleware()})
	app.Get("/missing", func(c *fiber.Ctx) error { return notFound{} })
	app.Get("/boom", func(c *fiber.Ctx) error { return io.ErrUnexpectedEOF })
	app.Post("/validate", func(c *fiber.Ctx) error {
		var req createReq
		if err := c.BodyParser(&req); err != nil {
			return err
		}
		if err := ValidateRequest(req); err != nil {
			return err
		}
		return c.JSON(SuccessResponse("ok", req))
	})
	return app
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandlerMapsStatusCodes(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "session not found", decode(t, resp.Body)["message"])

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "internal server error", decode(t, resp.Body)["message"])

	resp, err = app.Test(httptest.NewRequest("GET", "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestValidationErrors(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("POST", "/validate", strings.NewReader(`{"user_id":"much-too-long"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, map[string]interface{}{"UserId": "must be at most 5"}, body["errors"])

	req = httptest.NewRequest("POST", "/validate", strings.NewReader(`{"user_id":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body = decode(t, resp.Body)
	assert.Equal(t, true, body["success"])
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JwtMiddleware("secret"), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})

	sign := func(key string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "alice",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign("secret"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "alice", string(b))

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+sign("other"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

