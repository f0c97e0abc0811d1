package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/api-replay/internal/cache"
	"github.com/any-hub/api-replay/internal/models"
)

const supportedBackendList = "fs|leveldb|sqlite"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别 "+g.LogLevel)
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	switch cache.Backend(g.StorageBackend) {
	case cache.BackendFS, cache.BackendLevelDB, cache.BackendSQLite:
	default:
		return newFieldError("Global.StorageBackend", "仅支持 "+supportedBackendList)
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if len(g.CacheDir) == 0 {
		return newFieldError("Global.CacheDir", "至少需要一个目录段")
	}
	for _, segment := range g.CacheDir {
		if err := validateSegment(segment); err != nil {
			return newFieldError("Global.CacheDir", err.Error())
		}
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	return c.Proxy.validate()
}

func (p ProxyConfig) validate() error {
	settings := p.Settings()
	if !settings.ProxyBehavior.Valid() {
		names := make([]string, 0, 4)
		for _, b := range models.Behaviors() {
			names = append(names, string(b))
		}
		return newFieldError(proxyField("ProxyBehavior"), "仅支持 "+strings.Join(names, "|"))
	}
	if settings.SourceHost == "" {
		return newFieldError(proxyField("SourceHost"), "不能为空")
	}
	if settings.SourcePort <= 0 || settings.SourcePort > 65535 {
		return newFieldError(proxyField("SourcePort"), "必须在 1-65535")
	}
	if settings.ProxyPort < 0 || settings.ProxyPort > 65535 {
		return newFieldError(proxyField("ProxyPort"), "必须在 0-65535")
	}
	if strings.Contains(settings.SourceHost, "/") {
		return newFieldError(proxyField("SourceHost"), "只能是主机名，不能包含协议或路径")
	}
	return nil
}

func validateSegment(segment string) error {
	trimmed := strings.TrimSpace(segment)
	switch {
	case trimmed == "":
		return errors.New("目录段不能为空")
	case trimmed == "." || trimmed == "..":
		return errors.New("目录段不能是 . 或 ..")
	case strings.ContainsAny(trimmed, `/\`):
		return errors.New("目录段不能包含路径分隔符: " + trimmed)
	}
	return nil
}
