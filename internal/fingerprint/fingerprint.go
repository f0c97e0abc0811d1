// Package fingerprint derives the deterministic identifier that names a cached
// response. The identifier only contains [A-Za-z0-9_] so it is safe as a file
// name, and it is stable across processes for the same (url, body) pair.
package fingerprint

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/any-hub/api-replay/internal/jsonvalue"
)

// Prefix 是所有指纹的固定前缀。
const Prefix = "responseFor"

// ErrInvalidRequest 表示请求缺少可用于计算指纹的 URL。
var ErrInvalidRequest = errors.New("invalid request")

// Compute 计算 (url, body) 的指纹。body 为 nil 表示请求没有正文；空字符串视为存在的正文。
func Compute(url string, body *string) (string, error) {
	if url == "" {
		return "", errInvalid("url is empty")
	}
	return Prefix + render(hash(Canonical(url, body))), nil
}

// Canonical 返回参与哈希的规范化文本：{"url":...} 或 {"url":...,"body":...}。
func Canonical(url string, body *string) string {
	var b strings.Builder
	b.WriteString(`{"url":`)
	b.WriteString(jsonvalue.Quote(url))
	if body != nil {
		b.WriteString(`,"body":`)
		b.WriteString(jsonvalue.Quote(*body))
	}
	b.WriteByte('}')
	return b.String()
}

// hash 按 UTF-16 码元折叠 31*h + c，溢出按 int32 回绕。
func hash(text string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(text)) {
		h = 31*h + int32(unit)
	}
	return h
}

func render(h int32) string {
	return strings.Replace(strconv.FormatInt(int64(h), 10), "-", "0", 1)
}

func errInvalid(reason string) error {
	return &invalidError{reason: reason}
}

type invalidError struct {
	reason string
}

func (e *invalidError) Error() string {
	return "fingerprint: " + ErrInvalidRequest.Error() + ": " + e.reason
}

func (e *invalidError) Unwrap() error { return ErrInvalidRequest }
