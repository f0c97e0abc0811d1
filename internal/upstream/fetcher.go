package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/models"
)

// 与常见 HTTP 客户端一致的失败代码。
const (
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeBadResponse  = "ERR_BAD_RESPONSE"
	CodeTimeout      = "ETIMEDOUT"
	CodeRefused      = "ECONNREFUSED"
	CodeCanceled     = "ERR_CANCELED"
	CodeNetwork      = "ERR_NETWORK"
	CodeInvalidInput = "ERR_INVALID_URL"
)

// Error 描述一次未能得到可用响应的上游调用。Status 为 0 表示没有收到 HTTP 响应。
type Error struct {
	Status  int
	Code    string
	Message string
	Method  string
	URL     string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream %s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail 以 JSON 对象形式描述失败，嵌入合成的错误响应中。
func (e *Error) Detail() jsonvalue.Value {
	status := jsonvalue.Null()
	if e.Status > 0 {
		status = jsonvalue.Int(int64(e.Status))
	}
	return jsonvalue.Object(
		jsonvalue.Member{Key: "message", Value: jsonvalue.String(e.Message)},
		jsonvalue.Member{Key: "name", Value: jsonvalue.String("UpstreamError")},
		jsonvalue.Member{Key: "code", Value: jsonvalue.String(e.Code)},
		jsonvalue.Member{Key: "status", Value: status},
		jsonvalue.Member{Key: "method", Value: jsonvalue.String(e.Method)},
		jsonvalue.Member{Key: "url", Value: jsonvalue.String(e.URL)},
	)
}

// Fetcher 将入站请求转发到真实上游。
type Fetcher struct {
	client *http.Client
}

// NewFetcher 使用给定 client；nil 时使用 NewClient(0)。
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient(0)
	}
	return &Fetcher{client: client}
}

// TargetURL 拼接上游地址：443 端口使用 https，其余使用 http，默认端口不写入 URL。
func TargetURL(host string, port int, requestURL string) string {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	authority := host
	if port > 0 && port != 443 && port != 80 {
		authority = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if !strings.HasPrefix(requestURL, "/") {
		requestURL = "/" + requestURL
	}
	return scheme + "://" + authority + requestURL
}

// Fetch 发送请求。2xx 与 4xx 视为有效结果，其它状态码与传输失败返回 *Error。
func (f *Fetcher) Fetch(ctx context.Context, req *models.Request, host string, port int) (*models.Response, error) {
	target := TargetURL(host, port, req.URL)

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}
	outReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Code: CodeInvalidInput, Message: err.Error(), Method: req.Method, URL: target, Err: err}
	}
	CopyHeaders(outReq.Header, req.Headers)
	outReq.Header.Del("Host")
	outReq.Header.Del("Content-Length")
	// Transport 自动协商 gzip 并透明解压。
	outReq.Header.Del("Accept-Encoding")

	resp, err := f.client.Do(outReq)
	if err != nil {
		return nil, &Error{Code: classify(err), Message: err.Error(), Method: req.Method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if !acceptedStatus(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		code := CodeBadResponse
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = CodeBadRequest
		}
		return nil, &Error{
			Status:  resp.StatusCode,
			Code:    code,
			Message: "Request failed with status code " + strconv.Itoa(resp.StatusCode),
			Method:  req.Method,
			URL:     target,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Code: classify(err), Message: err.Error(), Method: req.Method, URL: target, Err: err}
	}

	return &models.Response{
		Status:  resp.StatusCode,
		Headers: storedHeaders(resp.Header),
		Body:    decodeBody(raw),
	}, nil
}

func acceptedStatus(code int) bool {
	return (code >= 200 && code < 300) || (code >= 400 && code < 500)
}

// decodeBody 优先按 JSON 解析，失败时保留原文为字符串。
func decodeBody(raw []byte) jsonvalue.Value {
	if v, err := jsonvalue.Parse(raw); err == nil {
		return v
	}
	return jsonvalue.String(string(raw))
}

func storedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) == 0 || !IsStoredHeader(key) {
			continue
		}
		out[strings.ToLower(key)] = values[0]
	}
	return out
}

func classify(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeRefused
	default:
		return CodeNetwork
	}
}
