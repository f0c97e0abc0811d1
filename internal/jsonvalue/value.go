// Package jsonvalue models arbitrary JSON response bodies as a recursive tagged
// union. Objects keep their key-encounter order, so path searches and
// re-serialization are stable across runs.
package jsonvalue

import (
	"encoding/json"
	"strconv"
)

// Kind 标识 Value 当前承载的分支。
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member 是对象中的一个键值对，保持解析时的顺序。
type Member struct {
	Key   string
	Value Value
}

// Value 是 JSON 值的不可变表示，零值即 null。
type Value struct {
	kind    Kind
	boolean bool
	number  json.Number
	str     string
	items   []Value
	members []Member
}

// Null 返回 JSON null。
func Null() Value { return Value{} }

// Bool 构造布尔标量。
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number 构造数字标量，保留原始文本以避免浮点误差。
func Number(n json.Number) Value { return Value{kind: KindNumber, number: n} }

// Int 是 Number 的便捷写法。
func Int(n int64) Value { return Number(json.Number(strconv.FormatInt(n, 10))) }

// String 构造字符串标量。
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array 构造数组，items 会被拷贝。
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, items: out}
}

// Object 构造对象；重复键以最后一次出现的值为准，但保留首次出现的位置。
func Object(members ...Member) Value {
	v := Value{kind: KindObject, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.members = v.set(m.Key, m.Value)
	}
	return v
}

func (v Value) set(key string, val Value) []Member {
	for i := range v.members {
		if v.members[i].Key == key {
			v.members[i].Value = val
			return v.members
		}
	}
	return append(v.members, Member{Key: key, Value: val})
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsContainer 表示对象或数组。
func (v Value) IsContainer() bool { return v.kind == KindObject || v.kind == KindArray }

func (v Value) BoolValue() (bool, bool) { return v.boolean, v.kind == KindBool }

func (v Value) NumberValue() (json.Number, bool) { return v.number, v.kind == KindNumber }

func (v Value) StringValue() (string, bool) { return v.str, v.kind == KindString }

// Len 返回数组元素或对象成员数量，标量为 0。
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Items 返回数组元素的副本。
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Members 返回对象成员的副本（按出现顺序）。
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// Get 查找对象成员；非对象或键不存在时返回 false。
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Has 仅判断键是否存在，值为 null 也视为存在。
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Clone 深拷贝，保证快照之间不共享底层切片。
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = item.Clone()
		}
		return Value{kind: KindArray, items: items}
	case KindObject:
		members := make([]Member, len(v.members))
		for i, m := range v.members {
			members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
		}
		return Value{kind: KindObject, members: members}
	default:
		return v
	}
}

// Equal 以序列化结果判断两个值是否相同。
func (v Value) Equal(other Value) bool {
	return string(v.Encode()) == string(other.Encode())
}
