package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/models"
)

// LoadOverwritesFile 读取 id → {status, headers?, body} 的覆盖文件。
// .json 文件按 JSON 解析，其它扩展名按 YAML 解析；两种格式都保持正文键的书写顺序。
func LoadOverwritesFile(path string) (ResponseTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overwrites file: %w", err)
	}

	var doc jsonvalue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err = jsonvalue.Parse(data)
	default:
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err == nil {
			doc, err = jsonvalue.FromYAML(&node)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse overwrites file %s: %w", path, err)
	}
	return DecodeResponseTable(doc)
}

// DecodeResponseTable 将对象形式的文档转换为覆盖表；null 文档视为空表。
func DecodeResponseTable(doc jsonvalue.Value) (ResponseTable, error) {
	table := ResponseTable{}
	if doc.IsNull() {
		return table, nil
	}
	if doc.Kind() != jsonvalue.KindObject {
		return nil, fmt.Errorf("overwrites must be an object keyed by fingerprint, got %s", doc.Kind())
	}
	for _, m := range doc.Members() {
		resp, err := decodeResponse(m.Value)
		if err != nil {
			return nil, fmt.Errorf("overwrite %s: %w", m.Key, err)
		}
		table[m.Key] = resp
	}
	return table, nil
}

func decodeResponse(v jsonvalue.Value) (*models.Response, error) {
	if v.Kind() != jsonvalue.KindObject {
		return nil, fmt.Errorf("expected object, got %s", v.Kind())
	}
	if _, ok := v.Get("status"); !ok {
		return nil, fmt.Errorf("status is required")
	}
	var resp models.Response
	if err := json.Unmarshal(v.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status < 100 || resp.Status > 599 {
		return nil, fmt.Errorf("status %d out of range", resp.Status)
	}
	return &resp, nil
}
