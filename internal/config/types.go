package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/api-replay/internal/models"
	"github.com/any-hub/api-replay/internal/state"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级参数：日志、缓存存储与上游客户端。
type GlobalConfig struct {
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	CacheDir        []string `mapstructure:"CacheDir"`
	StorageBackend  string   `mapstructure:"StorageBackend"`
	StoragePath     string   `mapstructure:"StoragePath"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	OverwritesFile  string   `mapstructure:"OverwritesFile"`
	AdminAPI        bool     `mapstructure:"AdminAPI"`
}

// ProxyConfig 对应 [Proxy] 表，即代理服务的初始设置。
type ProxyConfig struct {
	ProxyBehavior  string   `mapstructure:"ProxyBehavior"`
	SourceHost     string   `mapstructure:"SourceHost"`
	SourcePort     int      `mapstructure:"SourcePort"`
	ProxyPort      int      `mapstructure:"ProxyPort"`
	Find           string   `mapstructure:"Find"`
	HideErrors     bool     `mapstructure:"HideErrors"`
	ResponsesToLog []string `mapstructure:"ResponsesToLog"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Proxy  ProxyConfig  `mapstructure:"Proxy"`
}

// Settings 将 [Proxy] 表转换为代理服务的初始设置。
func (p ProxyConfig) Settings() state.Settings {
	return state.Settings{
		ProxyBehavior:  models.Behavior(p.ProxyBehavior),
		SourceHost:     p.SourceHost,
		SourcePort:     p.SourcePort,
		ProxyPort:      p.ProxyPort,
		Find:           p.Find,
		HideErrors:     p.HideErrors,
		ResponsesToLog: append([]string{}, p.ResponsesToLog...),
	}.Normalize()
}

// LoadOverwrites 读取 OverwritesFile；未配置时返回空表。
func (c *Config) LoadOverwrites() (state.ResponseTable, error) {
	if c == nil || c.Global.OverwritesFile == "" {
		return state.ResponseTable{}, nil
	}
	table, err := state.LoadOverwritesFile(c.Global.OverwritesFile)
	if err != nil {
		return nil, newFieldError("Global.OverwritesFile", err.Error())
	}
	return table, nil
}
