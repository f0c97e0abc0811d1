// Package diagnostics renders the human-readable notices the proxy emits
// while serving requests. Notices are observational: emitting them never
// changes which response a client receives.
package diagnostics

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink 接收单向通知文本，实现不得阻塞或影响请求结果。
type Sink interface {
	Notify(text string)
}

// SinkFunc 允许直接使用函数作为 Sink。
type SinkFunc func(text string)

// Notify 调用底层函数。
func (f SinkFunc) Notify(text string) {
	if f != nil {
		f(text)
	}
}

// Discard 丢弃全部通知。
var Discard Sink = SinkFunc(nil)

// NewLogSink 通过 logrus 输出通知，统一打上 action=api_notice 字段。
func NewLogSink(logger logrus.FieldLogger) Sink {
	if logger == nil {
		return Discard
	}
	entry := logger.WithField("action", "api_notice")
	return SinkFunc(func(text string) {
		entry.Info(text)
	})
}

// Collector 在内存中记录通知，供测试与诊断接口读取。
type Collector struct {
	mu      sync.Mutex
	notices []string
}

// Notify 追加一条通知。
func (c *Collector) Notify(text string) {
	c.mu.Lock()
	c.notices = append(c.notices, text)
	c.mu.Unlock()
}

// Notices 返回已记录通知的副本。
func (c *Collector) Notices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.notices))
	copy(out, c.notices)
	return out
}

// Reset 清空记录。
func (c *Collector) Reset() {
	c.mu.Lock()
	c.notices = nil
	c.mu.Unlock()
}
