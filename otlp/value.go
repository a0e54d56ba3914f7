package otlp

import (
	"encoding/base64"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// ValueKind discriminates the variants of a Value.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueStr
	ValueInt
	ValueDouble
	ValueBool
	ValueBytes
	ValueSlice
	ValueKVList
)

// Value is the OTLP attribute value union: string, int64, double, bool,
// bytes, array, or nested key/value list. The zero Value is the empty value.
type Value struct {
	Kind   ValueKind
	Str    string
	Int    int64
	Double float64
	Bool   bool
	Bytes  []byte
	Slice  []Value
	KVList []KeyValue
}

// KeyValue is one attribute entry.
type KeyValue struct {
	Key   string
	Value Value
}

// StringValue returns a string-kinded Value.
func StringValue(s string) Value { return Value{Kind: ValueStr, Str: s} }

// IntValue returns an int-kinded Value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// DoubleValue returns a double-kinded Value.
func DoubleValue(f float64) Value { return Value{Kind: ValueDouble, Double: f} }

// BoolValue returns a bool-kinded Value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// valueFromPdata converts a pcommon.Value into the explicit tagged variant.
func valueFromPdata(v pcommon.Value) Value {
	switch v.Type() {
	case pcommon.ValueTypeStr:
		return StringValue(v.Str())
	case pcommon.ValueTypeInt:
		return IntValue(v.Int())
	case pcommon.ValueTypeDouble:
		return DoubleValue(v.Double())
	case pcommon.ValueTypeBool:
		return BoolValue(v.Bool())
	case pcommon.ValueTypeBytes:
		b := v.Bytes().AsRaw()
		cp := make([]byte, len(b))
		copy(cp, b)
		return Value{Kind: ValueBytes, Bytes: cp}
	case pcommon.ValueTypeSlice:
		s := v.Slice()
		out := make([]Value, 0, s.Len())
		for i := 0; i < s.Len(); i++ {
			out = append(out, valueFromPdata(s.At(i)))
		}
		return Value{Kind: ValueSlice, Slice: out}
	case pcommon.ValueTypeMap:
		return Value{Kind: ValueKVList, KVList: attrsFromPdata(v.Map())}
	default:
		return Value{}
	}
}

// attrsFromPdata converts a pcommon.Map into a KeyValue slice, preserving
// the wire order.
func attrsFromPdata(m pcommon.Map) []KeyValue {
	if m.Len() == 0 {
		return nil
	}
	out := make([]KeyValue, 0, m.Len())
	m.Range(func(k string, v pcommon.Value) bool {
		out = append(out, KeyValue{Key: k, Value: valueFromPdata(v)})
		return true
	})
	return out
}

// EncodeJSON serializes the value to JSON. The encoding is explicit and
// deterministic: nested key/value lists are deduplicated (last value wins)
// and sorted by key, so identical input always yields identical bytes.
func (v Value) EncodeJSON() string {
	return string(v.appendJSON(make([]byte, 0, 64)))
}

func (v Value) appendJSON(dst []byte) []byte {
	switch v.Kind {
	case ValueStr:
		return appendJSONString(dst, v.Str)
	case ValueInt:
		return strconv.AppendInt(dst, v.Int, 10)
	case ValueDouble:
		return appendJSONFloat(dst, v.Double)
	case ValueBool:
		return strconv.AppendBool(dst, v.Bool)
	case ValueBytes:
		return appendJSONString(dst, base64.StdEncoding.EncodeToString(v.Bytes))
	case ValueSlice:
		dst = append(dst, '[')
		for i, item := range v.Slice {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = item.appendJSON(dst)
		}
		return append(dst, ']')
	case ValueKVList:
		return appendJSONObject(dst, v.KVList)
	default:
		return append(dst, "null"...)
	}
}

// EncodeAttributes serializes an attribute list to a JSON object string.
// Duplicate keys resolve last-value-wins and keys are emitted sorted, making
// the column value independent of wire order.
func EncodeAttributes(attrs []KeyValue) string {
	if len(attrs) == 0 {
		return "{}"
	}
	return string(appendJSONObject(make([]byte, 0, 64*len(attrs)), attrs))
}

func appendJSONObject(dst []byte, attrs []KeyValue) []byte {
	last := make(map[string]Value, len(attrs))
	keys := make([]string, 0, len(attrs))
	for _, kv := range attrs {
		if _, seen := last[kv.Key]; !seen {
			keys = append(keys, kv.Key)
		}
		last[kv.Key] = kv.Value
	}
	sort.Strings(keys)

	dst = append(dst, '{')
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendJSONString(dst, k)
		dst = append(dst, ':')
		dst = last[k].appendJSON(dst)
	}
	return append(dst, '}')
}

func appendJSONString(dst []byte, s string) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		// Strings cannot fail to marshal; keep the column well-formed anyway.
		return append(dst, `""`...)
	}
	return append(dst, b...)
}

func appendJSONFloat(dst []byte, f float64) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		// NaN or infinity: not representable in JSON, encode as null.
		return append(dst, "null"...)
	}
	return append(dst, b...)
}
