package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/api-replay/internal/cache"
	"github.com/any-hub/api-replay/internal/diagnostics"
	"github.com/any-hub/api-replay/internal/metrics"
	"github.com/any-hub/api-replay/internal/models"
	"github.com/any-hub/api-replay/internal/server"
	"github.com/any-hub/api-replay/internal/server/routes"
	"github.com/any-hub/api-replay/internal/state"
)

// DefaultName 出现在启动/停止失败的通知中。
const DefaultName = "api-replay"

var (
	// ErrAlreadyRunning 表示重复调用 Start。
	ErrAlreadyRunning = errors.New("proxy already running")
	// ErrNotRunning 表示在未启动时调用 Stop。
	ErrNotRunning = errors.New("proxy is not running")
)

// Fetcher 向真实上游发送请求，由 upstream.Fetcher 实现。
type Fetcher interface {
	Fetch(ctx context.Context, req *models.Request, host string, port int) (*models.Response, error)
}

// Options 描述构造 Service 所需的依赖。Settings 与 Overwrites 同时作为 Reset 的目标。
type Options struct {
	Name       string
	Settings   state.Settings
	Overwrites state.ResponseTable
	Cache      *cache.ResponseCache
	Fetcher    Fetcher
	Logger     *logrus.Logger
	Sink       diagnostics.Sink
	Metrics    *metrics.Recorder
	AdminAPI   bool
}

// Service 是一个可启动/停止的记录回放代理实例，拥有独立的设置与覆盖表。
type Service struct {
	name       string
	logger     *logrus.Logger
	sink       diagnostics.Sink
	settings   *state.LiveSettings
	overwrites *state.Overwrites
	cache      *cache.ResponseCache
	fetcher    Fetcher
	metrics    *metrics.Recorder
	adminAPI   bool

	mu       sync.Mutex
	app      *fiber.App
	listener net.Listener
	served   chan error
}

// New 校验依赖并构建 fiber 应用，但不监听端口。
func New(opts Options) (*Service, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("response cache is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	live, err := state.NewLiveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}

	s := &Service{
		name:       opts.Name,
		logger:     opts.Logger,
		sink:       opts.Sink,
		settings:   live,
		overwrites: state.NewOverwrites(opts.Overwrites),
		cache:      opts.Cache,
		fetcher:    opts.Fetcher,
		metrics:    opts.Metrics,
		adminAPI:   opts.AdminAPI,
	}
	if s.name == "" {
		s.name = DefaultName
	}
	if s.sink == nil {
		s.sink = diagnostics.NewLogSink(opts.Logger)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}

	app, err := s.buildApp()
	if err != nil {
		return nil, err
	}
	s.app = app
	return s, nil
}

func (s *Service) buildApp() (*fiber.App, error) {
	app, err := server.NewApp(server.AppOptions{
		Logger: s.logger,
		Proxy:  NewGuard(server.ProxyHandlerFunc(s.handle), s.logger),
	})
	if err != nil {
		return nil, err
	}
	if s.adminAPI {
		routes.RegisterAdminRoutes(app, s)
	}
	return app, nil
}

// Start 在 proxyPort 上监听，fiber 进入服务循环后才返回；失败时发出通知并返回错误。
// proxyPort 为 0 时由系统分配端口，可通过 Addr 查询。
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	port := s.settings.Get().ProxyPort
	if s.listener != nil {
		s.sink.Notify(diagnostics.StartFailedNotice(s.name, port))
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		s.sink.Notify(diagnostics.StartFailedNotice(s.name, port))
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	ready := make(chan struct{})
	served := make(chan error, 1)
	app := s.app
	go func() {
		served <- app.Listener(ln, fiber.ListenConfig{
			DisableStartupMessage: true,
			BeforeServeFunc:       func(*fiber.App) error {
				close(ready)
				return nil
			},
		})
	}()

	select {
	case <-ready:
	case err := <-served:
		_ = ln.Close()
		s.resetApp()
		s.sink.Notify(diagnostics.StartFailedNotice(s.name, port))
		if err == nil {
			err = errors.New("listener exited before serving")
		}
		return fmt.Errorf("serve on port %d: %w", port, err)
	case <-ctx.Done():
		_ = ln.Close()
		<-served
		s.resetApp()
		s.sink.Notify(diagnostics.StartFailedNotice(s.name, port))
		return ctx.Err()
	}
	s.listener = ln
	s.served = served

	s.logger.WithFields(logrus.Fields{
		"action": "proxy_started",
		"addr":   ln.Addr().String(),
	}).Info("api-replay listening")
	return nil
}

// Stop 优雅关闭监听；未启动或关闭失败时发出通知并返回错误。Stop 之后可再次 Start。
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		s.sink.Notify(diagnostics.StopFailedNotice(s.name))
		return ErrNotRunning
	}
	shutdownErr := s.app.ShutdownWithContext(ctx)
	// fasthttp 尚未登记监听器时 Shutdown 不会关闭它，这里兜底关闭以保证 Serve 退出。
	_ = s.listener.Close()
	if shutdownErr != nil {
		s.sink.Notify(diagnostics.StopFailedNotice(s.name))
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}
	select {
	case err := <-s.served:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.WithError(err).WithField("action", "proxy_stopped").Warn("listener exited with error")
		}
	case <-ctx.Done():
		s.sink.Notify(diagnostics.StopFailedNotice(s.name))
		return ctx.Err()
	}

	addr := s.listener.Addr().String()
	s.listener = nil
	s.served = nil
	s.resetApp()

	s.logger.WithFields(logrus.Fields{
		"action": "proxy_stopped",
		"addr":   addr,
	}).Info("api-replay stopped")
	return nil
}

// resetApp 为下一次 Start 准备新的 fiber 应用；fasthttp server 不支持关闭后再次 Serve。
func (s *Service) resetApp() {
	app, err := s.buildApp()
	if err != nil {
		s.logger.WithError(err).WithField("action", "proxy_rebuild").Error("rebuild app failed")
		return
	}
	s.app = app
}

// Addr 返回当前监听地址，未启动时为空。
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// App 返回当前 fiber 应用，便于测试直接调用 app.Test。
func (s *Service) App() *fiber.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app
}

// Settings 返回当前设置的副本。
func (s *Service) Settings() state.Settings { return s.settings.Get() }

// MergeSettings 覆盖 partial 中出现的键；proxyPort 的变化在下一次 Start 时生效。
func (s *Service) MergeSettings(partial map[string]any) error {
	if err := s.settings.Merge(partial); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"action": "settings_merged", "keys": len(partial)}).Info("settings updated")
	return nil
}

// ResetSettings 恢复构造时的设置。
func (s *Service) ResetSettings() { s.settings.Reset() }

// Overwrites 返回覆盖表副本。
func (s *Service) Overwrites() state.ResponseTable { return s.overwrites.All() }

// MergeOverwrites 浅合并覆盖表。
func (s *Service) MergeOverwrites(partial state.ResponseTable) {
	s.overwrites.Merge(partial)
	s.logger.WithFields(logrus.Fields{"action": "overwrites_merged", "count": len(partial)}).Info("overwrites updated")
}

// ResetOverwrites 恢复构造时的覆盖表。
func (s *Service) ResetOverwrites() { s.overwrites.Reset() }

// MetricsHandler 暴露本实例的 Prometheus 指标。
func (s *Service) MetricsHandler() http.Handler { return s.metrics.Handler() }
