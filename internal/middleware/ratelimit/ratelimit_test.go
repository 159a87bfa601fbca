package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(l *Limiter) *fiber.App {
	app := fiber.New()
	app.Use(l.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	l := New(Config{MaxRequestsPerMinute: 5})
	defer l.Stop()
	app := testApp(l)

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestLimiterRejectsOverBudget(t *testing.T) {
	l := New(Config{MaxRequestsPerMinute: 2})
	defer l.Stop()
	app := testApp(l)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestLimiterKeysByBearerToken(t *testing.T) {
	l := New(Config{MaxRequestsPerMinute: 1})
	defer l.Stop()
	app := testApp(l)

	reqA := httptest.NewRequest("GET", "/ping", nil)
	reqA.Header.Set("Authorization", "Bearer token-a")
	reqB := httptest.NewRequest("GET", "/ping", nil)
	reqB.Header.Set("Authorization", "Bearer token-b")

	respA, err := app.Test(reqA)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, respA.StatusCode)

	// A different caller still has budget.
	respB, err := app.Test(reqB)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, respB.StatusCode)

	// The first caller is spent.
	reqA2 := httptest.NewRequest("GET", "/ping", nil)
	reqA2.Header.Set("Authorization", "Bearer token-a")
	respA2, err := app.Test(reqA2)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, respA2.StatusCode)
}

func TestLimiterRefills(t *testing.T) {
	l := New(Config{MaxRequestsPerMinute: 2, WindowDuration: 100 * time.Millisecond})
	defer l.Stop()

	require.True(t, l.allow("k"))
	require.True(t, l.allow("k"))
	require.False(t, l.allow("k"))

	time.Sleep(120 * time.Millisecond)
	assert.True(t, l.allow("k"))
}
