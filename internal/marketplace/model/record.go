package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	IdentityField    = "identity"
	DisplayNameField = "itemDisplayName"
	IDField          = "id"
)

// Record 是 feed 返回的单条条目，保持字段原始顺序
type Record struct {
	doc bson.D
}

// NewRecord 包装一个已解析的文档
func NewRecord(doc bson.D) Record {
	return Record{doc: doc}
}

// ParseRecord 从一个 JSON 对象解析出 Record。
// 按普通 JSON 逐 token 解析，不做 Extended JSON 解释：$oid/$date 等键原样保留。
// 整数解析为 int64，其余数字为 float64。
func ParseRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Record{}, fmt.Errorf("element is not a JSON object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, errors.New("element is not a JSON object")
	}
	doc, err := decodeObject(dec)
	if err != nil {
		return Record{}, fmt.Errorf("decode object: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, errors.New("trailing data after JSON object")
	}
	return Record{doc: doc}, nil
}

// decodeObject 读取 '{' 之后的键值对直到 '}'
func decodeObject(dec *json.Decoder) (bson.D, error) {
	doc := bson.D{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		doc = append(doc, bson.E{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeArray(dec *json.Decoder) (bson.A, error) {
	arr := bson.A{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", v, err)
		}
		return f, nil
	default:
		// string, bool, nil
		return v, nil
	}
}

// Lookup 按字段名取值，不存在时返回 false
func (r Record) Lookup(key string) (any, bool) {
	for _, e := range r.doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// String 取字符串字段；类型不是 string 时返回 false
func (r Record) String(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (r Record) Identity() (string, bool) {
	return r.String(IdentityField)
}

// DisplayName 返回展示名，缺失时退回 identity
func (r Record) DisplayName() string {
	if name, ok := r.String(DisplayNameField); ok {
		return name
	}
	if id, ok := r.Identity(); ok {
		return id
	}
	return ""
}

func (r Record) Len() int {
	return len(r.doc)
}

// WithID 返回带有 id 字段的副本；原有 id 字段原位替换，否则追加在末尾
func (r Record) WithID(id string) bson.D {
	out := make(bson.D, 0, len(r.doc)+1)
	replaced := false
	for _, e := range r.doc {
		if e.Key == IDField {
			out = append(out, bson.E{Key: IDField, Value: id})
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, bson.E{Key: IDField, Value: id})
	}
	return out
}

func (r Record) Doc() bson.D {
	return r.doc
}
