// Package model defines the uniform, statically-typed record shape the
// correlated generation engine passes between the field generator, the
// entity generator, and the format encoders.
package model

import (
	"bytes"
	"fmt"
)

// Kind enumerates the scalar and structured variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindList
	KindMap
)

// Value is a tagged variant over the JSON-compatible value space. It exists
// so the engine never passes bare interface{} between layers: every
// producer and consumer of a Value knows exactly which field is live.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    *Record
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(v bool) Value       { return Value{kind: KindBool, b: v} }
func Int64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func String(v string) Value   { return Value{kind: KindString, s: v} }
func List(v []Value) Value    { return Value{kind: KindList, list: v} }
func Map(v *Record) Value     { return Value{kind: KindMap, m: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Int64() (int64, bool)     { return v.i, v.kind == KindInt64 }
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat64 }
func (v Value) String() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) List() ([]Value, bool)    { return v.list, v.kind == KindList }
func (v Value) Map() (*Record, bool)     { return v.m, v.kind == KindMap }

// AsString renders the value for contexts that need a plain string (e.g.
// partition key derivation, template substitution), regardless of kind.
func (v Value) AsString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	default:
		return fmt.Sprintf("%v", v.native())
	}
}

// native converts a Value into a plain Go value, used when handing data to
// encoders (encoding/json, goavro) that expect interface{}.
func (v Value) native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.native()
		}
		return out
	case KindMap:
		if v.m == nil {
			return map[string]any{}
		}
		return v.m.Native()
	default:
		return nil
	}
}

// Native is the exported form of native, used by encoders outside the
// package.
func (v Value) Native() any { return v.native() }

// MarshalJSON renders the value using encoding/json-compatible output,
// preserving field order for maps via Record.MarshalJSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMap:
		if v.m == nil {
			return []byte("null"), nil
		}
		return v.m.MarshalJSON()
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return jsonMarshalNative(v.native())
	}
}
