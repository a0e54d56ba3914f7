package otlp

// Resource is the resource-level context shared by every record decoded from
// one resource group. Records reference it by pointer; it is never mutated
// after decode.
type Resource struct {
	Attrs     []KeyValue
	SchemaURL string
}

// Scope is the instrumentation scope shared by records of one scope group.
type Scope struct {
	Name    string
	Version string
	Attrs   []KeyValue
}

// LogRecord is one decoded OTLP log record.
type LogRecord struct {
	TimeUnixNano         uint64
	ObservedTimeUnixNano uint64
	TraceID              [16]byte
	SpanID               [8]byte
	Flags                uint32
	SeverityText         string
	SeverityNumber       int32
	Body                 Value
	Attrs                []KeyValue
	Resource             *Resource
	Scope                *Scope
}

// SpanStatus is the decoded span status.
type SpanStatus struct {
	Code    int32
	Message string
}

// SpanEvent is one span event.
type SpanEvent struct {
	TimeUnixNano uint64
	Name         string
	Attrs        []KeyValue
}

// SpanLink is one span link.
type SpanLink struct {
	TraceID    [16]byte
	SpanID     [8]byte
	TraceState string
	Attrs      []KeyValue
}

// SpanRecord is one decoded OTLP span.
type SpanRecord struct {
	TraceID           [16]byte
	SpanID            [8]byte
	ParentSpanID      [8]byte
	TraceState        string
	Name              string
	Kind              int32
	StartTimeUnixNano uint64
	EndTimeUnixNano   uint64
	Attrs             []KeyValue
	Status            SpanStatus
	Events            []SpanEvent
	Links             []SpanLink
	Resource          *Resource
	Scope             *Scope
}

// MetricPoint is one decoded metric data point, tagged with its Kind. Only
// the fields belonging to the kind are populated.
type MetricPoint struct {
	Kind        MetricKind
	Name        string
	Description string
	Unit        string

	TimeUnixNano      uint64
	StartTimeUnixNano uint64
	Attrs             []KeyValue
	Resource          *Resource
	Scope             *Scope

	// Gauge and sum. Integer data points are widened to float64.
	Value float64

	// Sum.
	Temporality int32
	IsMonotonic bool

	// Histogram, exponential histogram, and summary.
	Count uint64
	Sum   float64

	// Histogram.
	BucketCounts   []uint64
	ExplicitBounds []float64
	Min            *float64
	Max            *float64

	// Exponential histogram.
	Scale           int32
	ZeroCount       uint64
	PositiveOffset  int32
	PositiveBuckets []uint64
	NegativeOffset  int32
	NegativeBuckets []uint64

	// Summary.
	QuantileLevels []float64
	QuantileValues []float64
}

// Records is a decoded payload: every record of a single envelope. Exactly
// one of the per-signal slices is populated, matching Signal.
type Records struct {
	Signal Signal
	Logs   []LogRecord
	Spans  []SpanRecord
	Points []MetricPoint
}

// Len returns the total number of decoded records.
func (r *Records) Len() int {
	return len(r.Logs) + len(r.Spans) + len(r.Points)
}
