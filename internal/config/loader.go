package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/api-replay/internal/cache"
	"github.com/any-hub/api-replay/internal/state"
)

// DefaultPath 是未显式指定配置文件时读取的位置。
const DefaultPath = "config.toml"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyProxyDefaults(&cfg.Proxy)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.OverwritesFile != "" && !filepath.IsAbs(cfg.Global.OverwritesFile) {
		cfg.Global.OverwritesFile = filepath.Join(filepath.Dir(path), cfg.Global.OverwritesFile)
	}
	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

// Default 返回不读取文件时使用的配置，等价于一个空的 config.toml。
func Default() *Config {
	cfg := &Config{
		Global: GlobalConfig{
			LogLevel:      "info",
			LogMaxSize:    100,
			LogMaxBackups: 10,
			LogCompress:   true,
			AdminAPI:      true,
		},
	}
	cfg.Proxy.ProxyPort = state.DefaultSettings().ProxyPort
	applyGlobalDefaults(&cfg.Global)
	applyProxyDefaults(&cfg.Proxy)
	return cfg
}

func setDefaults(v *viper.Viper) {
	defaults := state.DefaultSettings()
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", cache.DefaultSegments)
	v.SetDefault("StorageBackend", string(cache.BackendFS))
	v.SetDefault("StoragePath", "")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("AdminAPI", true)
	v.SetDefault("Proxy.ProxyBehavior", string(defaults.ProxyBehavior))
	v.SetDefault("Proxy.SourceHost", defaults.SourceHost)
	v.SetDefault("Proxy.SourcePort", defaults.SourcePort)
	v.SetDefault("Proxy.ProxyPort", defaults.ProxyPort)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if len(g.CacheDir) == 0 {
		g.CacheDir = append([]string{}, cache.DefaultSegments...)
	}
	g.StorageBackend = strings.ToLower(strings.TrimSpace(g.StorageBackend))
	if g.StorageBackend == "" {
		g.StorageBackend = string(cache.BackendFS)
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		switch cache.Backend(g.StorageBackend) {
		case cache.BackendLevelDB:
			g.StoragePath = "./responses.ldb"
		case cache.BackendSQLite:
			g.StoragePath = "./responses.db"
		default:
			g.StoragePath = "."
		}
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
}

func applyProxyDefaults(p *ProxyConfig) {
	defaults := state.DefaultSettings()
	if strings.TrimSpace(p.ProxyBehavior) == "" {
		p.ProxyBehavior = string(defaults.ProxyBehavior)
	}
	if strings.TrimSpace(p.SourceHost) == "" {
		p.SourceHost = defaults.SourceHost
	}
	if p.SourcePort == 0 {
		p.SourcePort = defaults.SourcePort
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
