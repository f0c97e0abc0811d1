package diagnostics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/models"
)

const (
	replacementChar     = '\uFFFD'
	replacementListMax  = 99
	serverErrorFallback = "Server Error"
)

// NoMatchNotice 在搜索词没有命中任何路径时使用。
func NoMatchNotice(search, filePath string) string {
	return fmt.Sprintf("No path in the API response stored in %q found for %q", filePath, search)
}

// TooManyNotice 在命中数量超过上限时使用。
func TooManyNotice(count int, search string, ceiling int, filePath string) string {
	return fmt.Sprintf(
		"%d paths in the API response stored in %q found for %q (For under %d matches you'll see paths listed here)",
		count, filePath, search, ceiling,
	)
}

// ErrorNotice 描述一条错误响应，并给出重新拉取与隐藏错误的设置方式。
func ErrorNotice(status int, message, filePath string) string {
	return fmt.Sprintf(`Error! Status %d %s in %s
    Try reloading behavior : PATCH /-/settings {"proxyBehavior":%q}
    Hide intended errors   : PATCH /-/settings {"hideErrors":true}`,
		status, message, filePath, models.BehaviorReloadResponsesWithErrors)
}

// ErrorNotices 对每个 errors[].message 生成一条通知；没有 errors 字段时生成 "Server Error"。
// 非错误响应返回 nil。
func ErrorNotices(resp *models.Response, filePath string) []string {
	if resp == nil || !models.IsError(resp) {
		return nil
	}
	errs, ok := resp.Body.Get("errors")
	if !ok || errs.Kind() != jsonvalue.KindArray {
		return []string{ErrorNotice(resp.Status, serverErrorFallback, filePath)}
	}
	items := errs.Items()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, ErrorNotice(resp.Status, messageOf(item), filePath))
	}
	return out
}

func messageOf(item jsonvalue.Value) string {
	msg, ok := item.Get("message")
	if !ok || msg.IsNull() {
		return ""
	}
	if s, isString := msg.StringValue(); isString {
		return s
	}
	return msg.String()
}

// ResponseLogNotice 输出被关注指纹的完整响应。
func ResponseLogNotice(id string, resp *models.Response) string {
	return id + ": " + resp.String()
}

// ReplacementCharNotice 检查序列化正文中的 U+FFFD，存在时返回告警文本。
func ReplacementCharNotice(encodedBody, filePath string) (string, bool) {
	count := strings.Count(encodedBody, string(replacementChar))
	if count == 0 {
		return "", false
	}
	label := "char"
	if count > 1 {
		label = "chars"
	}
	list := []rune(strings.TrimSuffix(strings.Repeat(string(replacementChar)+", ", count), ", "))
	rendered := string(list)
	if count > replacementListMax {
		rendered = string(list[:replacementListMax]) + "..."
	}
	return fmt.Sprintf("WARNING replacement-%s %s in %s", label, rendered, filePath), true
}

// UpstreamFailureNotice 在上游请求失败时使用。
func UpstreamFailureNotice(code, message string) string {
	return fmt.Sprintf("Error %s: %s", code, message)
}

// StartFailedNotice 在监听端口失败时使用。
func StartFailedNotice(name string, port int) string {
	return name + " failed to start on Port " + strconv.Itoa(port)
}

// StopFailedNotice 在关闭失败时使用。
func StopFailedNotice(name string) string {
	return name + " failed to stop!"
}
