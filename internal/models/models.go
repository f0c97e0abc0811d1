// Package models holds the value types shared by the cache, the resolver and
// the proxy service.
package models

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/jsonvalue"
)

// Behavior 控制缓存与上游之间的取舍策略。
type Behavior string

const (
	BehaviorForceUpdateAll            Behavior = "FORCE_UPDATE_ALL"
	BehaviorSaveResponsesForNewQuery  Behavior = "SAVE_RESPONSES_FOR_NEW_QUERIES"
	BehaviorReloadResponsesWithErrors Behavior = "RELOAD_RESPONSES_WITH_ERRORS"
	BehaviorNoRequestForwarding       Behavior = "NO_REQUEST_FORWARDING"
)

// DefaultBehavior 是未配置时的策略。
const DefaultBehavior = BehaviorSaveResponsesForNewQuery

// Behaviors 列出所有合法策略，用于校验与提示。
func Behaviors() []Behavior {
	return []Behavior{
		BehaviorForceUpdateAll,
		BehaviorSaveResponsesForNewQuery,
		BehaviorReloadResponsesWithErrors,
		BehaviorNoRequestForwarding,
	}
}

// Normalize 将空值映射为默认策略并统一大小写。
func (b Behavior) Normalize() Behavior {
	trimmed := strings.ToUpper(strings.TrimSpace(string(b)))
	if trimmed == "" {
		return DefaultBehavior
	}
	return Behavior(trimmed)
}

// Valid 判断策略是否受支持（空值视为默认策略）。
func (b Behavior) Valid() bool {
	n := b.Normalize()
	for _, known := range Behaviors() {
		if n == known {
			return true
		}
	}
	return false
}

// Request 是一次入站请求的不可变快照，ID 即指纹。
type Request struct {
	ID      string
	Method  string
	URL     string
	Headers http.Header
	Body    *string
}

// NewRequest 计算指纹并冻结请求；URL 为空时返回包装了 fingerprint.ErrInvalidRequest 的错误。
func NewRequest(method, url string, headers http.Header, body *string) (*Request, error) {
	id, err := fingerprint.Compute(url, body)
	if err != nil {
		return nil, err
	}
	var frozen *string
	if body != nil {
		copied := *body
		frozen = &copied
	}
	return &Request{
		ID:      id,
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers.Clone(),
		Body:    frozen,
	}, nil
}

// FallbackHeaders 在响应未携带头部时使用。
func FallbackHeaders() map[string]string {
	return map[string]string{"content-type": "application/json"}
}

// Response 与缓存文件的 JSON 结构一一对应。
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    jsonvalue.Value   `json:"body"`
}

// Clone 返回互不共享底层数据的副本。
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{Status: r.Status, Body: r.Body.Clone()}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// WithFallbackHeaders 返回副本，头部缺失时补上默认 content-type。
func (r *Response) WithFallbackHeaders() *Response {
	out := r.Clone()
	if out != nil && len(out.Headers) == 0 {
		out.Headers = FallbackHeaders()
	}
	return out
}

// Equal 仅比较状态码与序列化后的正文。
func (r *Response) Equal(other *Response) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Status == other.Status && r.Body.Equal(other.Body)
}

// String 便于日志输出。
func (r *Response) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf(`{"status":%d,"body":%s}`, r.Status, r.Body)
}

// IsError 判断响应是否需要视为错误：状态码非 200，或正文对象包含 errors 键（值不限）。
func IsError(r *Response) bool {
	if r == nil {
		return true
	}
	return r.Status != http.StatusOK || r.Body.Has("errors")
}

// MetaKeyIgnoreBrokenChars 关闭替换字符告警；拼写与既有缓存目录保持一致。
const MetaKeyIgnoreBrokenChars = "ignoreBrockenChars"

// MetaRecord 是与缓存条目并存的开关集合。
type MetaRecord map[string]bool

// IgnoreBrokenChars 读取替换字符告警开关。
func (m MetaRecord) IgnoreBrokenChars() bool {
	return m[MetaKeyIgnoreBrokenChars]
}
