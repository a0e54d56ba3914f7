package otlp

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// normalizeJSON rewrites an OTLP JSON export request into the canonical form
// the pdata unmarshaler accepts. Payloads in the wild arrive with snake_case
// or lowerCamelCase keys, trace/span ids encoded as hex or base64, and enum
// fields carrying symbolic names. The normalizer converts keys to camelCase,
// ids to hex of the exact byte width, and enum names to their wire numbers.
// Any id or enum value outside the known set fails the whole payload.
func normalizeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &DecodeError{Field: "payload", Reason: "invalid JSON: " + err.Error()}
	}

	normalized, err := normalizeValue(doc, "")
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, &DecodeError{Field: "payload", Reason: "re-encode: " + err.Error()}
	}
	return out, nil
}

func normalizeValue(v any, key string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			ck := camelKey(k)
			norm, err := normalizeValue(item, ck)
			if err != nil {
				return nil, err
			}
			out[ck] = norm
		}
		return out, nil
	case []any:
		for i, item := range val {
			norm, err := normalizeValue(item, key)
			if err != nil {
				return nil, err
			}
			val[i] = norm
		}
		return val, nil
	case string:
		return normalizeString(val, key)
	default:
		return v, nil
	}
}

// idByteLen maps id-carrying field names to their required byte width.
var idByteLen = map[string]int{
	"traceId":      16,
	"spanId":       8,
	"parentSpanId": 8,
}

func normalizeString(s, key string) (any, error) {
	if want, ok := idByteLen[key]; ok {
		return normalizeID(s, key, want)
	}

	switch key {
	case "severityNumber":
		return normalizeEnum(s, key, severityNumberNames)
	case "kind":
		return normalizeEnum(s, key, spanKindNames)
	case "code":
		return normalizeEnum(s, key, statusCodeNames)
	case "aggregationTemporality":
		return normalizeEnum(s, key, temporalityNames)
	default:
		return s, nil
	}
}

// normalizeID decodes a hex- or base64-encoded id and re-encodes it as hex.
// A value that is neither valid hex nor valid base64 of the exact byte width
// is a decode failure.
func normalizeID(s, key string, want int) (string, error) {
	if s == "" {
		return "", nil
	}

	var raw []byte
	if len(s)%2 == 0 && isHex(s) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return "", &DecodeError{Field: key, Reason: "invalid hex id " + strconv.Quote(s)}
		}
		raw = b
	} else {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			b, err = base64.RawStdEncoding.DecodeString(s)
		}
		if err != nil {
			return "", &DecodeError{Field: key, Reason: "id " + strconv.Quote(s) + " is neither hex nor base64"}
		}
		raw = b
	}

	if len(raw) != want {
		return "", &DecodeError{
			Field:  key,
			Reason: "id decodes to " + strconv.Itoa(len(raw)) + " bytes, want " + strconv.Itoa(want),
		}
	}
	return hex.EncodeToString(raw), nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// normalizeEnum maps a symbolic enum name to its wire number. Plain decimal
// strings pass through as numbers; range validation happens after decode so
// both JSON and protobuf payloads are checked identically.
func normalizeEnum(s, key string, names map[string]int32) (any, error) {
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return json.Number(strconv.FormatInt(n, 10)), nil
	}
	n, ok := names[s]
	if !ok {
		return nil, &DecodeError{Field: key, Reason: "unknown enum value " + strconv.Quote(s)}
	}
	return json.Number(strconv.FormatInt(int64(n), 10)), nil
}

// camelKey converts a snake_case object key to lowerCamelCase. Keys without
// underscores are returned unchanged.
func camelKey(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}
	var b strings.Builder
	b.Grow(len(k))
	upper := false
	for _, c := range k {
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(c)
	}
	return b.String()
}

var severityNumberNames = map[string]int32{
	"SEVERITY_NUMBER_UNSPECIFIED": 0,
	"SEVERITY_NUMBER_TRACE":       1,
	"SEVERITY_NUMBER_TRACE2":      2,
	"SEVERITY_NUMBER_TRACE3":      3,
	"SEVERITY_NUMBER_TRACE4":      4,
	"SEVERITY_NUMBER_DEBUG":       5,
	"SEVERITY_NUMBER_DEBUG2":      6,
	"SEVERITY_NUMBER_DEBUG3":      7,
	"SEVERITY_NUMBER_DEBUG4":      8,
	"SEVERITY_NUMBER_INFO":        9,
	"SEVERITY_NUMBER_INFO2":       10,
	"SEVERITY_NUMBER_INFO3":       11,
	"SEVERITY_NUMBER_INFO4":       12,
	"SEVERITY_NUMBER_WARN":        13,
	"SEVERITY_NUMBER_WARN2":       14,
	"SEVERITY_NUMBER_WARN3":       15,
	"SEVERITY_NUMBER_WARN4":       16,
	"SEVERITY_NUMBER_ERROR":       17,
	"SEVERITY_NUMBER_ERROR2":      18,
	"SEVERITY_NUMBER_ERROR3":      19,
	"SEVERITY_NUMBER_ERROR4":      20,
	"SEVERITY_NUMBER_FATAL":       21,
	"SEVERITY_NUMBER_FATAL2":      22,
	"SEVERITY_NUMBER_FATAL3":      23,
	"SEVERITY_NUMBER_FATAL4":      24,
}

var spanKindNames = map[string]int32{
	"SPAN_KIND_UNSPECIFIED": 0,
	"SPAN_KIND_INTERNAL":    1,
	"SPAN_KIND_SERVER":      2,
	"SPAN_KIND_CLIENT":      3,
	"SPAN_KIND_PRODUCER":    4,
	"SPAN_KIND_CONSUMER":    5,
}

var statusCodeNames = map[string]int32{
	"STATUS_CODE_UNSET": 0,
	"STATUS_CODE_OK":    1,
	"STATUS_CODE_ERROR": 2,
}

var temporalityNames = map[string]int32{
	"AGGREGATION_TEMPORALITY_UNSPECIFIED": 0,
	"AGGREGATION_TEMPORALITY_DELTA":       1,
	"AGGREGATION_TEMPORALITY_CUMULATIVE":  2,
}
