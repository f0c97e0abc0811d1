package diagnostics

import (
	"fmt"
	"strings"

	"github.com/any-hub/api-replay/internal/jsonvalue"
)

// MatchCeiling 是生成覆盖代码片段的命中上限。
const MatchCeiling = 80

// HelpKind 标识 DeveloperHelp 发出的通知类型。
type HelpKind int

const (
	HelpNone HelpKind = iota
	HelpNoMatch
	HelpSnippet
	HelpTooMany
)

func (k HelpKind) String() string {
	switch k {
	case HelpNoMatch:
		return "no_match"
	case HelpSnippet:
		return "snippet"
	case HelpTooMany:
		return "too_many"
	default:
		return "none"
	}
}

// HelpInput 汇总生成开发者帮助所需的上下文。
type HelpInput struct {
	ID        string
	Body      jsonvalue.Value
	FilePath  string
	Find      string
	AdminBase string
}

// FindPaths 返回正文中序列化文本包含 term 的标量路径。
func FindPaths(body jsonvalue.Value, term string) []jsonvalue.Match {
	return body.Find(term)
}

// DeveloperHelp 按命中数量恰好发出一条通知；Find 为空时什么也不做。
func DeveloperHelp(sink Sink, in HelpInput) HelpKind {
	if in.Find == "" || sink == nil {
		return HelpNone
	}
	matches := FindPaths(in.Body, in.Find)
	switch {
	case len(matches) == 0:
		sink.Notify(NoMatchNotice(in.Find, in.FilePath))
		return HelpNoMatch
	case len(matches) > MatchCeiling:
		sink.Notify(TooManyNotice(len(matches), in.Find, MatchCeiling, in.FilePath))
		return HelpTooMany
	default:
		sink.Notify(OverwriteSnippet(in, matches))
		return HelpSnippet
	}
}

// OverwriteSnippet 生成修改命中值并通过管理接口载入覆盖的示例。
func OverwriteSnippet(in HelpInput, matches []jsonvalue.Match) string {
	base := in.AdminBase
	if base == "" {
		base = "http://127.0.0.1:8080"
	}
	var lines strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&lines, "    %s.body%s = %s\n", in.ID, m.Path, m.Value)
	}
	return fmt.Sprintf(`You can change values containing %q as follows:

    # edit a copy of %s
%s
    # then load it as an overwrite while the proxy runs:
    curl -X PATCH %s/-/overwrites -H 'Content-Type: application/json' \
      -d "{\"%s\": $(cat %s)}"
`, in.Find, in.FilePath, lines.String(), strings.TrimSuffix(base, "/"), in.ID, in.FilePath)
}
