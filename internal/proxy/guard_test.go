package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/resolver"
	"github.com/any-hub/api-replay/internal/server"
)

const requestIDKey = "_apireplay_request_id"

func TestGuardHandlerPanic(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()

	ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
	defer app.ReleaseCtx(ctx)
	ctx.Locals(requestIDKey, "panic-req")

	logger := logrus.New()
	logBuf := &bytes.Buffer{}
	logger.SetOutput(logBuf)

	guard := NewGuard(server.ProxyHandlerFunc(func(fiber.Ctx) error {
		panic("boom")
	}), logger)

	if err := guard.Handle(ctx); err != nil {
		t.Fatalf("guard.Handle returned unexpected error: %v", err)
	}
	if status := ctx.Response().StatusCode(); status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 for handler panic, got %d", status)
	}
	if body := string(ctx.Response().Body()); !strings.Contains(body, "handler_panic") {
		t.Fatalf("expected error body to mention handler_panic, got %s", body)
	}
	if !strings.Contains(logBuf.String(), "handler_panic") || !strings.Contains(logBuf.String(), "boom") {
		t.Fatalf("expected log to mention the panic, got %s", logBuf.String())
	}
	if got := string(ctx.Response().Header.Peek("X-Request-ID")); got != "panic-req" {
		t.Fatalf("expected request id header panic-req, got %s", got)
	}
}

func TestGuardMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "cache miss", err: fmt.Errorf("lookup: %w", resolver.ErrCacheMiss), status: fiber.StatusNotFound, code: "cache_miss"},
		{name: "invalid request", err: fingerprint.ErrInvalidRequest, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "other", err: errors.New("dial failed"), status: fiber.StatusBadGateway, code: "proxy_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			defer app.Shutdown()
			ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
			defer app.ReleaseCtx(ctx)

			logger := logrus.New()
			logBuf := &bytes.Buffer{}
			logger.SetOutput(logBuf)
			logger.SetFormatter(&logrus.JSONFormatter{})

			guard := NewGuard(server.ProxyHandlerFunc(func(fiber.Ctx) error {
				return tc.err
			}), logger)
			if err := guard.Handle(ctx); err != nil {
				t.Fatalf("guard.Handle returned unexpected error: %v", err)
			}
			if status := ctx.Response().StatusCode(); status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
			if body := string(ctx.Response().Body()); !strings.Contains(body, tc.code) {
				t.Fatalf("expected body to mention %s, got %s", tc.code, body)
			}
			if !strings.Contains(logBuf.String(), `"action":"proxy_failed"`) {
				t.Fatalf("expected proxy_failed log, got %s", logBuf.String())
			}
		})
	}
}

func TestGuardPassesThroughSuccess(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()
	ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
	defer app.ReleaseCtx(ctx)

	guard := NewGuard(server.ProxyHandlerFunc(func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}), nil)
	if err := guard.Handle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status := ctx.Response().StatusCode(); status != fiber.StatusNoContent {
		t.Fatalf("expected handler status to survive, got %d", status)
	}
}
