package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAML 将 yaml.v3 节点树转换为 Value，映射键顺序保持文档中的顺序。
func FromYAML(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.MappingNode:
		obj := Value{kind: KindObject, members: []Member{}}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("jsonvalue: line %d: mapping key must be a scalar", keyNode.Line)
			}
			val, err := FromYAML(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			obj.members = obj.set(keyNode.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := Value{kind: KindArray, items: make([]Value, 0, len(node.Content))}
		for _, child := range node.Content {
			val, err := FromYAML(child)
			if err != nil {
				return Value{}, err
			}
			arr.items = append(arr.items, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	default:
		return Value{}, fmt.Errorf("jsonvalue: line %d: unsupported yaml node kind %d", node.Line, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return Value{}, err
		}
		return Int(n), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("jsonvalue: line %d: %q is not representable in JSON", node.Line, node.Value)
		}
		return Number(json.Number(strconv.FormatFloat(f, 'g', -1, 64))), nil
	default:
		return String(node.Value), nil
	}
}
