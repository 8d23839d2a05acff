package middlewares

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	t_token "campus_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTMiddleware())
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(TokenMemberID).(string) + "|" + c.Locals(TokenMemberName).(string))
	})
	return app
}

func TestJWTMiddlewareSources(t *testing.T) {
	tok, err := t_token.GenerateJWT("u-7", "Bob", "student", "test")
	require.NoError(t, err)

	cases := map[string]func() *http.Request{
		"bearer header": func() *http.Request {
			r := httptest.NewRequest("GET", "/me", nil)
			r.Header.Set("Authorization", "Bearer "+tok)
			return r
		},
		"query": func() *http.Request {
			return httptest.NewRequest("GET", "/me?auth="+tok, nil)
		},
		"cookie": func() *http.Request {
			r := httptest.NewRequest("GET", "/me", nil)
			r.Header.Set("Cookie", CookieToken+"="+tok)
			return r
		},
	}

	app := newApp()
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(build())
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "u-7|Bob", string(body))
		})
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me?auth=garbage", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
