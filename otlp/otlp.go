// Package otlp decodes OpenTelemetry protocol payloads into intermediate,
// strongly typed per-signal records.
//
// A payload arrives as an Envelope: raw bytes plus the declared encoding and
// signal. Decode parses the envelope and returns one Records value holding
// every log record, span, or metric data point in the payload. Decoding is
// atomic: a payload that fails to decode produces zero records.
package otlp

import "strings"

// Signal identifies the telemetry signal carried by a payload.
type Signal int

const (
	SignalLogs Signal = iota
	SignalTraces
	SignalMetrics
)

// String returns the lowercase name used in URLs and partition paths.
func (s Signal) String() string {
	switch s {
	case SignalLogs:
		return "logs"
	case SignalTraces:
		return "traces"
	case SignalMetrics:
		return "metrics"
	default:
		return "unknown"
	}
}

// ParseSignal parses a signal path segment ("logs", "traces", "metrics").
func ParseSignal(s string) (Signal, bool) {
	switch s {
	case "logs":
		return SignalLogs, true
	case "traces":
		return SignalTraces, true
	case "metrics":
		return SignalMetrics, true
	default:
		return 0, false
	}
}

// MetricKind is the OTLP metric data point kind. It selects one of the five
// metric columnar schemas.
type MetricKind int

const (
	MetricGauge MetricKind = iota
	MetricSum
	MetricHistogram
	MetricExponentialHistogram
	MetricSummary
)

// String returns the name used in file paths and table names.
func (k MetricKind) String() string {
	switch k {
	case MetricGauge:
		return "gauge"
	case MetricSum:
		return "sum"
	case MetricHistogram:
		return "histogram"
	case MetricExponentialHistogram:
		return "exponential_histogram"
	case MetricSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Encoding is the wire encoding of a payload.
type Encoding int

const (
	// EncodingProtobuf is binary protobuf, the OTLP default.
	EncodingProtobuf Encoding = iota
	// EncodingJSON is canonical OTLP JSON.
	EncodingJSON
	// EncodingNDJSON is newline-delimited JSON; each line is a complete
	// export request. Used for bulk ingestion.
	EncodingNDJSON
)

// String returns the canonical Content-Type for the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "application/json"
	case EncodingNDJSON:
		return "application/x-ndjson"
	default:
		return "application/x-protobuf"
	}
}

// EncodingFromContentType maps a Content-Type header to an Encoding.
// Missing or unrecognized content types default to protobuf.
func EncodingFromContentType(contentType string) Encoding {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/x-ndjson"), strings.Contains(ct, "application/jsonl"):
		return EncodingNDJSON
	case strings.Contains(ct, "application/json"):
		return EncodingJSON
	default:
		return EncodingProtobuf
	}
}

// Envelope is one inbound request: raw payload bytes plus the declared
// encoding and signal. It is consumed exactly once by Decode.
type Envelope struct {
	Bytes    []byte
	Encoding Encoding
	Signal   Signal
}
