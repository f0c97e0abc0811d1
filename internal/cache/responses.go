package cache

import (
	"encoding/json"
	"net/url"
	"path"

	"github.com/any-hub/api-replay/internal/diagnostics"
	"github.com/any-hub/api-replay/internal/models"
)

// DefaultSegments 是未配置缓存目录时使用的目录段。
var DefaultSegments = []string{"responses"}

const auditLogName = "apiQuery.log"

// ResponseCache 以指纹为键在 BlobStore 上读写响应条目与元信息。
// 写入均为尽力而为：失败只会体现在 WriteReport 与通知中。
type ResponseCache struct {
	blobs    BlobStore
	segments []string
	sink     diagnostics.Sink
}

// NewResponseCache 构造缓存；segments 为空时使用 DefaultSegments，sink 为空时丢弃通知。
func NewResponseCache(blobs BlobStore, segments []string, sink diagnostics.Sink) *ResponseCache {
	if len(segments) == 0 {
		segments = DefaultSegments
	}
	if sink == nil {
		sink = diagnostics.Discard
	}
	copied := make([]string, len(segments))
	copy(copied, segments)
	return &ResponseCache{blobs: blobs, segments: copied, sink: sink}
}

// Dir 返回缓存目录（相对 BlobStore 根）。
func (c *ResponseCache) Dir() string {
	return path.Join(c.segments...)
}

// PathForID 返回条目路径，不做任何 I/O。
func (c *ResponseCache) PathForID(id string) string {
	return path.Join(c.Dir(), id+".json")
}

// PathForRequest 返回请求对应的条目路径。
func (c *ResponseCache) PathForRequest(req *models.Request) string {
	return c.PathForID(req.ID)
}

// MetaPathForID 返回元信息文件路径。
func (c *ResponseCache) MetaPathForID(id string) string {
	return path.Join(c.Dir(), id+".meta.json")
}

// LogPath 返回共享审计日志路径。
func (c *ResponseCache) LogPath() string {
	return path.Join(c.Dir(), auditLogName)
}

// GetResponse 读取条目；不存在返回 false。文件损坏时发出通知并同样视为不存在。
func (c *ResponseCache) GetResponse(id string) (*models.Response, bool) {
	p := c.PathForID(id)
	if !c.blobs.Exists(p) {
		return nil, false
	}
	data, err := c.blobs.Read(p)
	if err != nil {
		c.sink.Notify("FAILED to read response:        " + p + ": " + err.Error())
		return nil, false
	}
	var resp models.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.sink.Notify("FAILED to parse response:       " + p + ": " + err.Error())
		return nil, false
	}
	if len(resp.Headers) == 0 {
		resp.Headers = models.FallbackHeaders()
	}
	return &resp, true
}

// SaveResponse 逐级创建目录、追加审计日志并写入条目，三个步骤互不阻断。
func (c *ResponseCache) SaveResponse(req *models.Request, resp *models.Response) WriteReport {
	p := c.PathForRequest(req)
	report := WriteReport{Path: p}
	report.DirErr = c.ensureDir()

	logLine := p + ", " + decodeURL(req.URL) + "\n\n"
	if err := c.blobs.Append(c.LogPath(), []byte(logLine)); err != nil {
		report.LogErr = &PersistenceError{Op: "append", Path: c.LogPath(), Err: err}
		c.sink.Notify("FAILED to append log info for:  " + p)
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = c.blobs.Write(p, data)
	}
	if err != nil {
		report.WriteErr = &PersistenceError{Op: "write", Path: p, Err: err}
		c.sink.Notify("FAILED to save response:        " + p)
	} else {
		c.sink.Notify("Saved query response to:        " + p)
	}
	return report
}

// GetMetaInfo 读取元信息，缺失或不可读时返回空记录。
func (c *ResponseCache) GetMetaInfo(id string) models.MetaRecord {
	p := c.MetaPathForID(id)
	if !c.blobs.Exists(p) {
		return models.MetaRecord{}
	}
	data, err := c.blobs.Read(p)
	if err != nil {
		return models.MetaRecord{}
	}
	rec := models.MetaRecord{}
	if err := json.Unmarshal(data, &rec); err != nil {
		c.sink.Notify("FAILED to parse metaInfo:       " + p + ": " + err.Error())
		return models.MetaRecord{}
	}
	return rec
}

// SaveMetaInfo 写入元信息，语义与 SaveResponse 相同（不写审计日志）。
func (c *ResponseCache) SaveMetaInfo(id string, rec models.MetaRecord) WriteReport {
	p := c.MetaPathForID(id)
	report := WriteReport{Path: p}
	report.DirErr = c.ensureDir()

	if rec == nil {
		rec = models.MetaRecord{}
	}
	data, err := json.Marshal(rec)
	if err == nil {
		err = c.blobs.Write(p, data)
	}
	if err != nil {
		report.WriteErr = &PersistenceError{Op: "write", Path: p, Err: err}
		c.sink.Notify("FAILED to save response:        " + p)
	} else {
		c.sink.Notify("Saved metaInfo for response to: " + p)
	}
	return report
}

// ensureDir 从根开始逐段创建缺失目录。
func (c *ResponseCache) ensureDir() *PersistenceError {
	current := ""
	for _, segment := range c.segments {
		current = path.Join(current, segment)
		if c.blobs.Exists(current) {
			continue
		}
		if err := c.blobs.Mkdir(current); err != nil {
			return &PersistenceError{Op: "mkdir", Path: current, Err: err}
		}
	}
	return nil
}

func decodeURL(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
