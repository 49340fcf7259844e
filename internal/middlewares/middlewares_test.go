package middlewares

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	v, err := auth.NewJWTValidator("", secret)
	require.NoError(t, err)
	app := fiber.New()
	app.Use(Recovery(zap.NewNop().Sugar()))
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/me", JWTAuth(v), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c) + "|" + Identity(c).Role)
	})
	return app
}

func TestJWTAuth(t *testing.T) {
	app := newApp(t)
	tok := signed(t, jwt.MapClaims{"user_id": "u1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me?token="+tok, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRecovery(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core).Sugar()))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/v1/chats/:peer_id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/broken", func(c *fiber.Ctx) error { return errors.New("db down") })

	for _, path := range []string{"/healthz", "/v1/chats/u2", "/missing", "/broken"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	entries := logs.AllUntimed()
	require.Len(t, entries, 3, "successful health checks are not logged")

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "u2", fields["peer_id"])
	assert.Equal(t, "/v1/chats/:peer_id", fields["route"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, fiber.StatusNotFound, entries[1].ContextMap()["status"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.EqualValues(t, fiber.StatusInternalServerError, entries[2].ContextMap()["status"])
}
