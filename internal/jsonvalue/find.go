package jsonvalue

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Match 描述一次路径搜索命中：Path 形如 `.data.items[0].name`，Value 为命中的标量。
type Match struct {
	Path  string
	Value Value
}

// Find 深度优先遍历 v，返回序列化文本包含 search 的所有标量路径。
// 数字形式的键与数组下标渲染为 `[n]`，其它键渲染为 `.key`；null 永不命中；
// 标量根节点没有路径，因此返回空结果。
func (v Value) Find(search string) []Match {
	if !v.IsContainer() {
		return nil
	}
	var out []Match
	v.find(search, "", &out)
	return out
}

func (v Value) find(search, prefix string, out *[]Match) {
	visit := func(segment string, child Value) {
		path := prefix + segment
		switch {
		case child.IsContainer():
			child.find(search, path, out)
		case child.IsNull():
		default:
			if strings.Contains(child.String(), search) {
				*out = append(*out, Match{Path: path, Value: child})
			}
		}
	}

	switch v.kind {
	case KindArray:
		for i, item := range v.items {
			visit("["+strconv.Itoa(i)+"]", item)
		}
	case KindObject:
		for _, m := range enumerationOrder(v.members) {
			visit(PathSegment(m.Key), m.Value)
		}
	}
}

// enumerationOrder 先按数值升序给出数组下标形式的键，其余键保持原有顺序。
func enumerationOrder(members []Member) []Member {
	var indexed, named []Member
	for _, m := range members {
		if _, ok := arrayIndex(m.Key); ok {
			indexed = append(indexed, m)
		} else {
			named = append(named, m)
		}
	}
	if len(indexed) == 0 {
		return members
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, _ := arrayIndex(indexed[i].Key)
		b, _ := arrayIndex(indexed[j].Key)
		return a < b
	})
	return append(indexed, named...)
}

// arrayIndex 识别规范的数组下标键："0" 或不以 0 开头、小于 2^32-1 的十进制整数。
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return n, true
}

// PathSegment 渲染单个对象键对应的路径片段。
func PathSegment(key string) string {
	if isNumberString(key) {
		return "[" + key + "]"
	}
	return "." + key
}

var numericLiteral = regexp.MustCompile(
	`^(?:[+-]?(?:Infinity|(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?)|0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+)$`,
)

// isNumberString 判断键能否被当作数字读取：允许首尾空白、十进制、Infinity 以及 0x/0o/0b 整数。
func isNumberString(s string) bool {
	trimmed := strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
	return trimmed != "" && numericLiteral.MatchString(trimmed)
}
