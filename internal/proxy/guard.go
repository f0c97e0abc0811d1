package proxy

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/resolver"
	"github.com/any-hub/api-replay/internal/server"
)

// Guard 包装代理 handler：捕获 panic，并把已知错误渲染为 {"error": code} JSON。
type Guard struct {
	handler server.ProxyHandler
	logger  *logrus.Logger
}

// NewGuard 创建 Guard，handler 不能为空。
func NewGuard(handler server.ProxyHandler, logger *logrus.Logger) *Guard {
	return &Guard{
		handler: handler,
		logger:  logger,
	}
}

// Handle 实现 server.ProxyHandler。
func (g *Guard) Handle(c fiber.Ctx) error {
	requestID := server.RequestID(c)
	err := g.invoke(c)
	if err == nil {
		return nil
	}
	status, code := classifyError(err)
	g.logFailure(c, code, err, requestID)
	setRequestIDHeader(c, requestID)
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (g *Guard) invoke(c fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return g.handler.Handle(c)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// classifyError 将错误映射为 HTTP 状态与错误代码。
func classifyError(err error) (int, string) {
	var panicked *panicError
	switch {
	case errors.As(err, &panicked):
		return fiber.StatusInternalServerError, "handler_panic"
	case errors.Is(err, resolver.ErrCacheMiss):
		return fiber.StatusNotFound, "cache_miss"
	case errors.Is(err, fingerprint.ErrInvalidRequest):
		return fiber.StatusBadRequest, "invalid_request"
	default:
		return fiber.StatusBadGateway, "proxy_failed"
	}
}

func setRequestIDHeader(c fiber.Ctx, requestID string) {
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
}

func (g *Guard) logFailure(c fiber.Ctx, code string, err error, requestID string) {
	if g.logger == nil {
		return
	}
	fields := logrus.Fields{
		"action":     "proxy_failed",
		"error":      code,
		"method":     c.Method(),
		"url":        c.OriginalURL(),
		"request_id": requestID,
	}
	if code == "cache_miss" {
		g.logger.WithFields(fields).Warn(err.Error())
		return
	}
	g.logger.WithFields(fields).Error(err.Error())
}
