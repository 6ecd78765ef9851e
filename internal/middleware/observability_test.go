package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/puertonuevo/portal-api/internal/observability"
)

func TestObservabilityCountsPrefixedRoutes(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.New(io.Discard), "/api/v1"))
	app.Get("/api/v1/activities/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	requests := observability.APIRequests().WithLabelValues(http.MethodGet, "/api/v1/activities/:id", "404")
	errors := observability.APIErrors().WithLabelValues(http.MethodGet, "/api/v1/activities/:id", "404")
	beforeRequests := testutil.ToFloat64(requests)
	beforeErrors := testutil.ToFloat64(errors)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/activities/abc", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	require.Equal(t, beforeRequests+1, testutil.ToFloat64(requests))
	require.Equal(t, beforeErrors+1, testutil.ToFloat64(errors))
}

func TestCorrelationIDKeepsIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "req-42", string(body))
	require.Equal(t, "req-42", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDReplacesUnsafeHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, GetCorrelationID(c), CorrelationIDFromContext(c.UserContext()))
		return c.SendString(GetCorrelationID(c))
	})

	for _, header := range []string{"id with spaces", "<script>", strings.Repeat("a", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", header)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NotEqual(t, header, string(body))
		_, err = uuid.Parse(string(body))
		require.NoError(t, err)
	}
}
