package state

import (
	"github.com/any-hub/api-replay/internal/models"
)

// ResponseTable 是指纹到响应的映射。
type ResponseTable map[string]*models.Response

// Clone 深拷贝整张表。
func (t ResponseTable) Clone() ResponseTable {
	out := make(ResponseTable, len(t))
	for id, resp := range t {
		if resp != nil {
			out[id] = resp.Clone()
		}
	}
	return out
}

// Overwrites 是优先级高于缓存的响应覆盖表。
type Overwrites struct {
	table *snapshot[ResponseTable]
}

// NewOverwrites 以 initial 作为 Reset 的目标快照。
func NewOverwrites(initial ResponseTable) *Overwrites {
	return &Overwrites{table: newSnapshot(initial, ResponseTable.Clone)}
}

// Get 返回覆盖响应的副本；未提供头部时补上默认头部。
func (o *Overwrites) Get(id string) (*models.Response, bool) {
	o.table.mu.RLock()
	resp, ok := o.table.live[id]
	o.table.mu.RUnlock()
	if !ok || resp == nil {
		return nil, false
	}
	return resp.WithFallbackHeaders(), true
}

// All 返回当前表的副本。
func (o *Overwrites) All() ResponseTable {
	return o.table.load()
}

// Merge 浅合并：同名指纹被替换，其余保持不变。
func (o *Overwrites) Merge(partial ResponseTable) {
	incoming := partial.Clone()
	_ = o.table.update(func(next ResponseTable) (ResponseTable, error) {
		for id, resp := range incoming {
			next[id] = resp
		}
		return next, nil
	})
}

// Reset 恢复为构造时的快照。
func (o *Overwrites) Reset() {
	o.table.reset()
}
