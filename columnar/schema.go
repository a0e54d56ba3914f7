// Package columnar maps decoded OTLP records onto seven fixed columnar
// schemas: one for logs, one for traces, and one per metric point kind.
//
// A schema is defined once by a parquet-tagged row struct; the column set and
// types are determined entirely by the SchemaID and never vary at runtime.
// Column names follow the ClickHouse OTel exporter convention.
package columnar

import (
	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/coldtel/otlp"
)

// SchemaID identifies one of the seven fixed columnar schemas.
type SchemaID int

const (
	SchemaLogs SchemaID = iota
	SchemaTraces
	SchemaMetricsGauge
	SchemaMetricsSum
	SchemaMetricsHistogram
	SchemaMetricsExpHistogram
	SchemaMetricsSummary
)

// String returns the name used in logs and file paths.
func (id SchemaID) String() string {
	switch id {
	case SchemaLogs:
		return "logs"
	case SchemaTraces:
		return "traces"
	case SchemaMetricsGauge:
		return "metrics_gauge"
	case SchemaMetricsSum:
		return "metrics_sum"
	case SchemaMetricsHistogram:
		return "metrics_histogram"
	case SchemaMetricsExpHistogram:
		return "metrics_exponential_histogram"
	case SchemaMetricsSummary:
		return "metrics_summary"
	default:
		return "unknown"
	}
}

// TableName returns the catalog table name for this schema.
func (id SchemaID) TableName() string {
	switch id {
	case SchemaLogs:
		return "otel_logs"
	case SchemaTraces:
		return "otel_traces"
	default:
		return "otel_" + id.String()
	}
}

// Signal returns the signal this schema stores.
func (id SchemaID) Signal() otlp.Signal {
	switch id {
	case SchemaLogs:
		return otlp.SignalLogs
	case SchemaTraces:
		return otlp.SignalTraces
	default:
		return otlp.SignalMetrics
	}
}

// MetricKind returns the metric kind for a metrics schema. The second return
// value is false for the logs and traces schemas.
func (id SchemaID) MetricKind() (otlp.MetricKind, bool) {
	switch id {
	case SchemaMetricsGauge:
		return otlp.MetricGauge, true
	case SchemaMetricsSum:
		return otlp.MetricSum, true
	case SchemaMetricsHistogram:
		return otlp.MetricHistogram, true
	case SchemaMetricsExpHistogram:
		return otlp.MetricExponentialHistogram, true
	case SchemaMetricsSummary:
		return otlp.MetricSummary, true
	default:
		return 0, false
	}
}

// SchemaForMetric returns the schema storing points of the given kind.
func SchemaForMetric(kind otlp.MetricKind) SchemaID {
	switch kind {
	case otlp.MetricSum:
		return SchemaMetricsSum
	case otlp.MetricHistogram:
		return SchemaMetricsHistogram
	case otlp.MetricExponentialHistogram:
		return SchemaMetricsExpHistogram
	case otlp.MetricSummary:
		return SchemaMetricsSummary
	default:
		return SchemaMetricsGauge
	}
}

// AllSchemas lists every schema in stable order.
func AllSchemas() []SchemaID {
	return []SchemaID{
		SchemaLogs,
		SchemaTraces,
		SchemaMetricsGauge,
		SchemaMetricsSum,
		SchemaMetricsHistogram,
		SchemaMetricsExpHistogram,
		SchemaMetricsSummary,
	}
}

// ParquetSchema returns the parquet schema derived from the row struct.
func (id SchemaID) ParquetSchema() *parquet.Schema {
	switch id {
	case SchemaLogs:
		return logsSchema
	case SchemaTraces:
		return tracesSchema
	case SchemaMetricsGauge:
		return gaugeSchema
	case SchemaMetricsSum:
		return sumSchema
	case SchemaMetricsHistogram:
		return histogramSchema
	case SchemaMetricsExpHistogram:
		return expHistogramSchema
	default:
		return summarySchema
	}
}

var (
	logsSchema         = parquet.SchemaOf(LogRow{})
	tracesSchema       = parquet.SchemaOf(SpanRow{})
	gaugeSchema        = parquet.SchemaOf(GaugeRow{})
	sumSchema          = parquet.SchemaOf(SumRow{})
	histogramSchema    = parquet.SchemaOf(HistogramRow{})
	expHistogramSchema = parquet.SchemaOf(ExpHistogramRow{})
	summarySchema      = parquet.SchemaOf(SummaryRow{})
)
