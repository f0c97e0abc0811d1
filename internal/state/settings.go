package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/any-hub/api-replay/internal/models"
)

// ErrInvalidSettings 表示合并后的设置未通过校验。
var ErrInvalidSettings = errors.New("invalid settings")

// Settings 控制代理行为，字段名与管理接口/配置文件中的键一致。
type Settings struct {
	ProxyBehavior  models.Behavior `mapstructure:"proxyBehavior" json:"proxyBehavior"`
	SourceHost     string          `mapstructure:"sourceHost" json:"sourceHost"`
	SourcePort     int             `mapstructure:"sourcePort" json:"sourcePort"`
	ProxyPort      int             `mapstructure:"proxyPort" json:"proxyPort"`
	Find           string          `mapstructure:"find" json:"find,omitempty"`
	HideErrors     bool            `mapstructure:"hideErrors" json:"hideErrors"`
	ResponsesToLog []string        `mapstructure:"responsesToLog" json:"responsesToLog"`
}

// DefaultSettings 返回内置默认值。
func DefaultSettings() Settings {
	return Settings{
		ProxyBehavior:  models.DefaultBehavior,
		SourceHost:     "www.example.com",
		SourcePort:     443,
		ProxyPort:      8080,
		ResponsesToLog: []string{},
	}
}

// Clone 拷贝切片字段。
func (s Settings) Clone() Settings {
	s.ResponsesToLog = slices.Clone(s.ResponsesToLog)
	if s.ResponsesToLog == nil {
		s.ResponsesToLog = []string{}
	}
	return s
}

// Normalize 统一策略写法。
func (s Settings) Normalize() Settings {
	s.ProxyBehavior = s.ProxyBehavior.Normalize()
	s.SourceHost = strings.TrimSpace(s.SourceHost)
	return s
}

// Validate 校验字段取值。
func (s Settings) Validate() error {
	if !s.ProxyBehavior.Valid() {
		return fmt.Errorf("%w: proxyBehavior %q is not one of %v", ErrInvalidSettings, s.ProxyBehavior, models.Behaviors())
	}
	if s.SourceHost == "" {
		return fmt.Errorf("%w: sourceHost is required", ErrInvalidSettings)
	}
	if s.SourcePort <= 0 || s.SourcePort > 65535 {
		return fmt.Errorf("%w: sourcePort %d out of range", ErrInvalidSettings, s.SourcePort)
	}
	if s.ProxyPort < 0 || s.ProxyPort > 65535 {
		return fmt.Errorf("%w: proxyPort %d out of range", ErrInvalidSettings, s.ProxyPort)
	}
	return nil
}

// LogsResponse 判断指纹是否在 responsesToLog 名单中。
func (s Settings) LogsResponse(id string) bool {
	return slices.Contains(s.ResponsesToLog, id)
}

// LiveSettings 持有初始设置与当前设置。
type LiveSettings struct {
	table *snapshot[Settings]
}

// NewLiveSettings 规整并校验初始设置。
func NewLiveSettings(initial Settings) (*LiveSettings, error) {
	initial = initial.Normalize()
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &LiveSettings{table: newSnapshot(initial, Settings.Clone)}, nil
}

// Get 返回当前设置的副本。
func (l *LiveSettings) Get() Settings {
	return l.table.load()
}

// Merge 将 partial 中出现的键覆盖到当前设置；未知键或非法值会整体拒绝，当前值保持不变。
func (l *LiveSettings) Merge(partial map[string]any) error {
	return l.table.update(func(next Settings) (Settings, error) {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &next,
			TagName:          "mapstructure",
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			ZeroFields:       true,
		})
		if err != nil {
			return next, err
		}
		if err := decoder.Decode(partial); err != nil {
			return next, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		next = next.Normalize()
		if err := next.Validate(); err != nil {
			return next, err
		}
		return next, nil
	})
}

// Reset 恢复为构造时的设置。
func (l *LiveSettings) Reset() {
	l.table.reset()
}
