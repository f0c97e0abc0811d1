package proxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/api-replay/internal/cache"
	"github.com/any-hub/api-replay/internal/diagnostics"
	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/logging"
	"github.com/any-hub/api-replay/internal/models"
	"github.com/any-hub/api-replay/internal/resolver"
	"github.com/any-hub/api-replay/internal/server"
	"github.com/any-hub/api-replay/internal/state"
	"github.com/any-hub/api-replay/internal/upstream"
)

// handle 执行 “指纹 → 策略决策 → 回源写缓存 → 诊断 → 回复” 的全流程。
// 返回的错误交由 Guard 渲染。
func (s *Service) handle(c fiber.Ctx) error {
	started := time.Now()
	settings := s.settings.Get()

	req, err := models.NewRequest(c.Method(), c.OriginalURL(), requestHeaders(c), requestBody(c))
	if err != nil {
		return err
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := resolver.Resolve(ctx, resolver.Input{
		ID:         req.ID,
		Behavior:   settings.ProxyBehavior,
		Overwrites: s.overwrites,
		Cache:      s.cache,
		Fetch: func(ctx context.Context) (*models.Response, error) {
			return s.fetch(ctx, req, settings)
		},
	})
	if err != nil {
		if errors.Is(err, resolver.ErrCacheMiss) {
			s.metrics.ObserveCacheMiss()
		}
		return err
	}
	s.metrics.ObserveResolution(string(result.Source), string(settings.ProxyBehavior))

	if result.Fetched() {
		report := s.cache.SaveResponse(req, result.Response)
		for _, failed := range []*cache.PersistenceError{report.DirErr, report.LogErr, report.WriteErr} {
			if failed != nil {
				s.metrics.ObservePersistenceFailure(failed.Op)
			}
		}
		if err := report.Err(); err != nil {
			s.logger.WithError(err).
				WithFields(logging.RequestFields(server.RequestID(c), req.ID, req.Method, req.URL)).
				Warn("cache_save_failed")
		}
	}

	s.report(c, req, result.Response, settings)

	s.logger.WithFields(logging.Merge(
		logging.RequestFields(server.RequestID(c), req.ID, req.Method, req.URL),
		logging.ResolutionFields(string(settings.ProxyBehavior), string(result.Source), result.Response.Status),
		logrus.Fields{"action": "proxy_complete", "elapsed_ms": time.Since(started).Milliseconds()},
	)).Info("proxy_complete")

	return reply(c, result.Response)
}

// fetch 请求上游；没有可用响应时合成一条错误响应，使其与普通回源结果一样被缓存与回放。
func (s *Service) fetch(ctx context.Context, req *models.Request, settings state.Settings) (*models.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, req, settings.SourceHost, settings.SourcePort)
	if err == nil {
		return resp, nil
	}
	var upstreamErr *upstream.Error
	if !errors.As(err, &upstreamErr) {
		return nil, err
	}
	s.metrics.ObserveUpstreamFailure(upstreamErr.Code)
	s.sink.Notify(diagnostics.UpstreamFailureNotice(upstreamErr.Code, upstreamErr.Message))
	return failureResponse(settings.SourceHost, upstreamErr), nil
}

func failureResponse(host string, err *upstream.Error) *models.Response {
	status := err.Status
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	body := jsonvalue.Object(jsonvalue.Member{
		Key: "errors",
		Value: jsonvalue.Array(
			jsonvalue.Object(jsonvalue.Member{
				Key:   "message",
				Value: jsonvalue.String("[" + DefaultName + "] No successful response from " + host),
			}),
			err.Detail(),
		),
	})
	return &models.Response{Status: status, Headers: models.FallbackHeaders(), Body: body}
}

// report 发出只读的诊断通知，不影响回复内容。
func (s *Service) report(c fiber.Ctx, req *models.Request, resp *models.Response, settings state.Settings) {
	filePath := s.cache.PathForRequest(req)

	if !s.cache.GetMetaInfo(req.ID).IgnoreBrokenChars() {
		if notice, ok := diagnostics.ReplacementCharNotice(resp.Body.String(), filePath); ok {
			s.sink.Notify(notice)
		}
	}

	diagnostics.DeveloperHelp(s.sink, diagnostics.HelpInput{
		ID:        req.ID,
		Body:      resp.Body,
		FilePath:  filePath,
		Find:      settings.Find,
		AdminBase: c.BaseURL(),
	})

	if !settings.HideErrors {
		for _, notice := range diagnostics.ErrorNotices(resp, filePath) {
			s.sink.Notify(notice)
		}
	}

	if settings.LogsResponse(req.ID) {
		s.sink.Notify(diagnostics.ResponseLogNotice(req.ID, resp))
	}
}

func reply(c fiber.Ctx, resp *models.Response) error {
	for key, value := range resp.Headers {
		if upstream.IsStoredHeader(key) {
			c.Set(key, value)
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	return c.Status(resp.Status).Send(resp.Body.Encode())
}

// requestBody 只为 POST/PUT/PATCH 读取正文；其它方法的正文不参与指纹。
func requestBody(c fiber.Ctx) *string {
	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		body := string(c.Body())
		return &body
	default:
		return nil
	}
}

func requestHeaders(c fiber.Ctx) http.Header {
	headers := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})
	return headers
}
