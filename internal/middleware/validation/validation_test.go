package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/conversations/:id/chat", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/api/v1/documents/ingest", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/v1/documents", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestValidationPassesCleanChatMessage(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/api/v1/conversations/c1/chat", strings.NewReader(`{"message":"what changed in 2020?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidationRejectsScriptContent(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/api/v1/conversations/c1/chat", strings.NewReader(`{"message":"<script>alert(1)</script>"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationRejectsMissingMessage(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/api/v1/conversations/c1/chat", strings.NewReader(`{"other":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationRejectsWrongContentType(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("POST", "/api/v1/conversations/c1/chat", strings.NewReader("message=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestValidationRejectsOversizedBody(t *testing.T) {
	app := testApp(Config{MaxBodyBytes: 32})

	body := `{"message":"` + strings.Repeat("a", 100) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/conversations/c1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestValidationIngestURLChecks(t *testing.T) {
	app := testApp(Config{})

	cases := []struct {
		body   string
		status int
	}{
		{`{"url":"https://example.gov/report.pdf","id":"a","doc_type":"VLR"}`, fiber.StatusOK},
		{`{"url":"ftp://example.gov/report.pdf"}`, fiber.StatusBadRequest},
		{`{"url":""}`, fiber.StatusBadRequest},
		{`{"id":"a"}`, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/api/v1/documents/ingest", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, "body: %s", tc.body)
	}
}

func TestValidationSkipsReads(t *testing.T) {
	app := testApp(Config{})

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
