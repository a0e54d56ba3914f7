package columnar

// Row structs define the seven fixed schemas through parquet struct tags,
// one field per column. Attribute maps, bodies, and event attribute lists
// are deterministic JSON-encoded strings; timestamps are nanoseconds since
// the Unix epoch; trace and span ids are fixed-width binary.

// LogRow is one row of the logs schema (15 columns).
type LogRow struct {
	Timestamp          int64    `parquet:"Timestamp"`
	ObservedTimestamp  int64    `parquet:"ObservedTimestamp"`
	TraceID            [16]byte `parquet:"TraceId"`
	SpanID             [8]byte  `parquet:"SpanId"`
	TraceFlags         uint32   `parquet:"TraceFlags"`
	SeverityText       string   `parquet:"SeverityText,zstd"`
	SeverityNumber     int32    `parquet:"SeverityNumber"`
	ServiceName        string   `parquet:"ServiceName,zstd"`
	ServiceNamespace   string   `parquet:"ServiceNamespace,optional,zstd"`
	ServiceInstanceID  string   `parquet:"ServiceInstanceId,optional,zstd"`
	Body               string   `parquet:"Body,optional,zstd"`
	ScopeName          string   `parquet:"ScopeName,optional,zstd"`
	ScopeVersion       string   `parquet:"ScopeVersion,optional,zstd"`
	ResourceAttributes string   `parquet:"ResourceAttributes,zstd"`
	LogAttributes      string   `parquet:"LogAttributes,zstd"`
}

// SpanRow is one row of the traces schema (24 columns). Span events and
// links are stored as parallel list columns; link ids are hex strings since
// lists of fixed-width binary do not survive every storage engine.
type SpanRow struct {
	Timestamp          int64    `parquet:"Timestamp"`
	TraceID            [16]byte `parquet:"TraceId"`
	SpanID             [8]byte  `parquet:"SpanId"`
	ParentSpanID       [8]byte  `parquet:"ParentSpanId"`
	TraceState         string   `parquet:"TraceState,optional,zstd"`
	SpanName           string   `parquet:"SpanName,zstd"`
	SpanKind           string   `parquet:"SpanKind,zstd"`
	ServiceName        string   `parquet:"ServiceName,zstd"`
	ServiceNamespace   string   `parquet:"ServiceNamespace,optional,zstd"`
	ServiceInstanceID  string   `parquet:"ServiceInstanceId,optional,zstd"`
	ResourceAttributes string   `parquet:"ResourceAttributes,zstd"`
	ScopeName          string   `parquet:"ScopeName,optional,zstd"`
	ScopeVersion       string   `parquet:"ScopeVersion,optional,zstd"`
	SpanAttributes     string   `parquet:"SpanAttributes,zstd"`
	Duration           int64    `parquet:"Duration"`
	StatusCode         string   `parquet:"StatusCode,optional,zstd"`
	StatusMessage      string   `parquet:"StatusMessage,optional,zstd"`
	EventsTimestamp    []int64  `parquet:"EventsTimestamp,list"`
	EventsName         []string `parquet:"EventsName,list,zstd"`
	EventsAttributes   []string `parquet:"EventsAttributes,list,zstd"`
	LinksTraceID       []string `parquet:"LinksTraceId,list,zstd"`
	LinksSpanID        []string `parquet:"LinksSpanId,list,zstd"`
	LinksTraceState    []string `parquet:"LinksTraceState,list,zstd"`
	LinksAttributes    []string `parquet:"LinksAttributes,list,zstd"`
}

// MetricBase carries the nine columns shared by all five metric schemas.
type MetricBase struct {
	Timestamp          int64  `parquet:"Timestamp"`
	ServiceName        string `parquet:"ServiceName,zstd"`
	ResourceAttributes string `parquet:"ResourceAttributes,zstd"`
	ScopeName          string `parquet:"ScopeName,optional,zstd"`
	ScopeVersion       string `parquet:"ScopeVersion,optional,zstd"`
	MetricName         string `parquet:"MetricName,zstd"`
	MetricDescription  string `parquet:"MetricDescription,optional,zstd"`
	MetricUnit         string `parquet:"MetricUnit,optional,zstd"`
	Attributes         string `parquet:"Attributes,zstd"`
}

// GaugeRow is one row of the gauge metrics schema.
type GaugeRow struct {
	MetricBase
	Value float64 `parquet:"Value"`
}

// SumRow is one row of the sum metrics schema.
type SumRow struct {
	MetricBase
	Value                  float64 `parquet:"Value"`
	AggregationTemporality int32   `parquet:"AggregationTemporality"`
	IsMonotonic            bool    `parquet:"IsMonotonic"`
}

// HistogramRow is one row of the histogram metrics schema.
type HistogramRow struct {
	MetricBase
	Count          int64     `parquet:"Count"`
	Sum            float64   `parquet:"Sum"`
	BucketCounts   []int64   `parquet:"BucketCounts,list"`
	ExplicitBounds []float64 `parquet:"ExplicitBounds,list"`
	Min            *float64  `parquet:"Min,optional"`
	Max            *float64  `parquet:"Max,optional"`
}

// ExpHistogramRow is one row of the exponential histogram metrics schema.
type ExpHistogramRow struct {
	MetricBase
	Count                int64    `parquet:"Count"`
	Sum                  float64  `parquet:"Sum"`
	Scale                int32    `parquet:"Scale"`
	ZeroCount            int64    `parquet:"ZeroCount"`
	PositiveOffset       int32    `parquet:"PositiveOffset"`
	PositiveBucketCounts []int64  `parquet:"PositiveBucketCounts,list"`
	NegativeOffset       int32    `parquet:"NegativeOffset"`
	NegativeBucketCounts []int64  `parquet:"NegativeBucketCounts,list"`
	Min                  *float64 `parquet:"Min,optional"`
	Max                  *float64 `parquet:"Max,optional"`
}

// SummaryRow is one row of the summary metrics schema.
type SummaryRow struct {
	MetricBase
	Count          int64     `parquet:"Count"`
	Sum            float64   `parquet:"Sum"`
	QuantileValues []float64 `parquet:"QuantileValues,list"`
	QuantileLevels []float64 `parquet:"QuantileLevels,list"`
}
