package columnar

import (
	"encoding/hex"
	"fmt"

	"github.com/xtxerr/coldtel/otlp"
)

// Well-known resource attributes promoted to dedicated columns. The keys are
// removed from the generic ResourceAttributes map column.
const (
	attrServiceName       = "service.name"
	attrServiceNamespace  = "service.namespace"
	attrServiceInstanceID = "service.instance.id"
)

// Map converts decoded records into columnar batches, one batch per schema
// present in the payload, in stable schema order. Mapping is pure and
// deterministic: identical records yield byte-identical batches.
func Map(recs *otlp.Records) ([]Batch, error) {
	switch recs.Signal {
	case otlp.SignalLogs:
		if len(recs.Logs) == 0 {
			return nil, nil
		}
		return []Batch{MapLogs(recs.Logs)}, nil
	case otlp.SignalTraces:
		if len(recs.Spans) == 0 {
			return nil, nil
		}
		return []Batch{MapSpans(recs.Spans)}, nil
	case otlp.SignalMetrics:
		return MapMetrics(recs.Points), nil
	default:
		return nil, fmt.Errorf("columnar: unknown signal %d", recs.Signal)
	}
}

// resourceCols is the per-resource portion of a row, computed once per
// decoded resource group and shared by its records.
type resourceCols struct {
	serviceName       string
	serviceNamespace  string
	serviceInstanceID string

	// attrsJSON has all three promoted keys removed. metricAttrsJSON
	// removes only service.name: the metric schemas have no namespace or
	// instance columns, so those keys stay in the map there.
	attrsJSON       string
	metricAttrsJSON string
}

// splitResource promotes the well-known service attributes and encodes the
// remainder. Duplicate occurrences of a promoted key resolve last-value-wins.
func splitResource(res *otlp.Resource) resourceCols {
	var cols resourceCols
	rest := make([]otlp.KeyValue, 0, len(res.Attrs))
	metricRest := make([]otlp.KeyValue, 0, len(res.Attrs))
	for _, kv := range res.Attrs {
		switch kv.Key {
		case attrServiceName:
			cols.serviceName = kv.Value.Str
			continue
		case attrServiceNamespace:
			cols.serviceNamespace = kv.Value.Str
			metricRest = append(metricRest, kv)
			continue
		case attrServiceInstanceID:
			cols.serviceInstanceID = kv.Value.Str
			metricRest = append(metricRest, kv)
			continue
		}
		rest = append(rest, kv)
		metricRest = append(metricRest, kv)
	}
	cols.attrsJSON = otlp.EncodeAttributes(rest)
	cols.metricAttrsJSON = otlp.EncodeAttributes(metricRest)
	return cols
}

// resourceCache memoizes splitResource per resource group within one payload.
type resourceCache map[*otlp.Resource]resourceCols

func (c resourceCache) get(res *otlp.Resource) resourceCols {
	if cols, ok := c[res]; ok {
		return cols
	}
	cols := splitResource(res)
	c[res] = cols
	return cols
}

// MapLogs maps log records onto the 15-column logs schema.
func MapLogs(logs []otlp.LogRecord) *Rows[LogRow] {
	cache := resourceCache{}
	rows := make([]LogRow, 0, len(logs))
	var size, firstTS int64
	var service string
	for i := range logs {
		lr := &logs[i]
		res := cache.get(lr.Resource)

		row := LogRow{
			Timestamp:          int64(lr.TimeUnixNano),
			ObservedTimestamp:  int64(lr.ObservedTimeUnixNano),
			TraceID:            lr.TraceID,
			SpanID:             lr.SpanID,
			TraceFlags:         lr.Flags,
			SeverityText:       lr.SeverityText,
			SeverityNumber:     lr.SeverityNumber,
			ServiceName:        res.serviceName,
			ServiceNamespace:   res.serviceNamespace,
			ServiceInstanceID:  res.serviceInstanceID,
			ScopeName:          lr.Scope.Name,
			ScopeVersion:       lr.Scope.Version,
			ResourceAttributes: res.attrsJSON,
			LogAttributes:      otlp.EncodeAttributes(lr.Attrs),
		}
		if lr.Body.Kind != otlp.ValueEmpty {
			row.Body = lr.Body.EncodeJSON()
		}

		size += logRowSize(&row)
		firstTS = earliest(firstTS, row.Timestamp)
		if service == "" {
			service = res.serviceName
		}
		rows = append(rows, row)
	}
	return NewRows(SchemaLogs, rows, size, firstTS, service)
}

// MapSpans maps span records onto the 24-column traces schema.
func MapSpans(spans []otlp.SpanRecord) *Rows[SpanRow] {
	cache := resourceCache{}
	rows := make([]SpanRow, 0, len(spans))
	var size, firstTS int64
	var service string
	for i := range spans {
		sp := &spans[i]
		res := cache.get(sp.Resource)

		row := SpanRow{
			Timestamp:          int64(sp.StartTimeUnixNano),
			TraceID:            sp.TraceID,
			SpanID:             sp.SpanID,
			ParentSpanID:       sp.ParentSpanID,
			TraceState:         sp.TraceState,
			SpanName:           sp.Name,
			SpanKind:           spanKindName(sp.Kind),
			ServiceName:        res.serviceName,
			ServiceNamespace:   res.serviceNamespace,
			ServiceInstanceID:  res.serviceInstanceID,
			ResourceAttributes: res.attrsJSON,
			ScopeName:          sp.Scope.Name,
			ScopeVersion:       sp.Scope.Version,
			SpanAttributes:     otlp.EncodeAttributes(sp.Attrs),
			Duration:           int64(sp.EndTimeUnixNano) - int64(sp.StartTimeUnixNano),
			StatusCode:         statusCodeName(sp.Status.Code),
			StatusMessage:      sp.Status.Message,
		}
		for _, ev := range sp.Events {
			row.EventsTimestamp = append(row.EventsTimestamp, int64(ev.TimeUnixNano))
			row.EventsName = append(row.EventsName, ev.Name)
			row.EventsAttributes = append(row.EventsAttributes, otlp.EncodeAttributes(ev.Attrs))
		}
		for _, ln := range sp.Links {
			row.LinksTraceID = append(row.LinksTraceID, hex.EncodeToString(ln.TraceID[:]))
			row.LinksSpanID = append(row.LinksSpanID, hex.EncodeToString(ln.SpanID[:]))
			row.LinksTraceState = append(row.LinksTraceState, ln.TraceState)
			row.LinksAttributes = append(row.LinksAttributes, otlp.EncodeAttributes(ln.Attrs))
		}

		size += spanRowSize(&row)
		firstTS = earliest(firstTS, row.Timestamp)
		if service == "" {
			service = res.serviceName
		}
		rows = append(rows, row)
	}
	return NewRows(SchemaTraces, rows, size, firstTS, service)
}

// MapMetrics maps metric points onto their subtype schemas, returning one
// batch per kind present, in stable schema order.
func MapMetrics(points []otlp.MetricPoint) []Batch {
	cache := resourceCache{}
	var (
		gauges    []GaugeRow
		sums      []SumRow
		hists     []HistogramRow
		expHists  []ExpHistogramRow
		summaries []SummaryRow
	)
	sizes := map[SchemaID]int64{}
	firsts := map[SchemaID]int64{}
	services := map[SchemaID]string{}

	for i := range points {
		p := &points[i]
		res := cache.get(p.Resource)
		base := MetricBase{
			Timestamp:          int64(p.TimeUnixNano),
			ServiceName:        res.serviceName,
			ResourceAttributes: res.metricAttrsJSON,
			ScopeName:          p.Scope.Name,
			ScopeVersion:       p.Scope.Version,
			MetricName:         p.Name,
			MetricDescription:  p.Description,
			MetricUnit:         p.Unit,
			Attributes:         otlp.EncodeAttributes(p.Attrs),
		}
		schema := SchemaForMetric(p.Kind)
		sizes[schema] += metricBaseSize(&base)
		firsts[schema] = earliest(firsts[schema], base.Timestamp)
		if services[schema] == "" {
			services[schema] = res.serviceName
		}

		switch p.Kind {
		case otlp.MetricGauge:
			gauges = append(gauges, GaugeRow{MetricBase: base, Value: p.Value})
			sizes[schema] += 8
		case otlp.MetricSum:
			sums = append(sums, SumRow{
				MetricBase:             base,
				Value:                  p.Value,
				AggregationTemporality: p.Temporality,
				IsMonotonic:            p.IsMonotonic,
			})
			sizes[schema] += 16
		case otlp.MetricHistogram:
			hists = append(hists, HistogramRow{
				MetricBase:     base,
				Count:          int64(p.Count),
				Sum:            p.Sum,
				BucketCounts:   toInt64(p.BucketCounts),
				ExplicitBounds: p.ExplicitBounds,
				Min:            p.Min,
				Max:            p.Max,
			})
			sizes[schema] += 32 + 8*int64(len(p.BucketCounts)+len(p.ExplicitBounds))
		case otlp.MetricExponentialHistogram:
			expHists = append(expHists, ExpHistogramRow{
				MetricBase:           base,
				Count:                int64(p.Count),
				Sum:                  p.Sum,
				Scale:                p.Scale,
				ZeroCount:            int64(p.ZeroCount),
				PositiveOffset:       p.PositiveOffset,
				PositiveBucketCounts: toInt64(p.PositiveBuckets),
				NegativeOffset:       p.NegativeOffset,
				NegativeBucketCounts: toInt64(p.NegativeBuckets),
				Min:                  p.Min,
				Max:                  p.Max,
			})
			sizes[schema] += 48 + 8*int64(len(p.PositiveBuckets)+len(p.NegativeBuckets))
		case otlp.MetricSummary:
			summaries = append(summaries, SummaryRow{
				MetricBase:     base,
				Count:          int64(p.Count),
				Sum:            p.Sum,
				QuantileValues: p.QuantileValues,
				QuantileLevels: p.QuantileLevels,
			})
			sizes[schema] += 16 + 16*int64(len(p.QuantileValues))
		}
	}

	var out []Batch
	if len(gauges) > 0 {
		out = append(out, NewRows(SchemaMetricsGauge, gauges, sizes[SchemaMetricsGauge], firsts[SchemaMetricsGauge], services[SchemaMetricsGauge]))
	}
	if len(sums) > 0 {
		out = append(out, NewRows(SchemaMetricsSum, sums, sizes[SchemaMetricsSum], firsts[SchemaMetricsSum], services[SchemaMetricsSum]))
	}
	if len(hists) > 0 {
		out = append(out, NewRows(SchemaMetricsHistogram, hists, sizes[SchemaMetricsHistogram], firsts[SchemaMetricsHistogram], services[SchemaMetricsHistogram]))
	}
	if len(expHists) > 0 {
		out = append(out, NewRows(SchemaMetricsExpHistogram, expHists, sizes[SchemaMetricsExpHistogram], firsts[SchemaMetricsExpHistogram], services[SchemaMetricsExpHistogram]))
	}
	if len(summaries) > 0 {
		out = append(out, NewRows(SchemaMetricsSummary, summaries, sizes[SchemaMetricsSummary], firsts[SchemaMetricsSummary], services[SchemaMetricsSummary]))
	}
	return out
}

func earliest(cur, ts int64) int64 {
	if ts <= 0 {
		return cur
	}
	if cur == 0 || ts < cur {
		return ts
	}
	return cur
}

func toInt64(in []uint64) []int64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func spanKindName(kind int32) string {
	switch kind {
	case 1:
		return "SPAN_KIND_INTERNAL"
	case 2:
		return "SPAN_KIND_SERVER"
	case 3:
		return "SPAN_KIND_CLIENT"
	case 4:
		return "SPAN_KIND_PRODUCER"
	case 5:
		return "SPAN_KIND_CONSUMER"
	default:
		return "SPAN_KIND_UNSPECIFIED"
	}
}

func statusCodeName(code int32) string {
	switch code {
	case 1:
		return "STATUS_CODE_OK"
	case 2:
		return "STATUS_CODE_ERROR"
	default:
		return "STATUS_CODE_UNSET"
	}
}

// Size estimates are deliberately cheap: string payload bytes plus a fixed
// per-row overhead for the numeric columns.

const rowOverhead = 64

func logRowSize(r *LogRow) int64 {
	return rowOverhead + int64(len(r.SeverityText)+len(r.ServiceName)+len(r.ServiceNamespace)+
		len(r.ServiceInstanceID)+len(r.Body)+len(r.ScopeName)+len(r.ScopeVersion)+
		len(r.ResourceAttributes)+len(r.LogAttributes))
}

func spanRowSize(r *SpanRow) int64 {
	n := rowOverhead + len(r.TraceState) + len(r.SpanName) + len(r.SpanKind) + len(r.ServiceName) +
		len(r.ServiceNamespace) + len(r.ServiceInstanceID) + len(r.ResourceAttributes) +
		len(r.ScopeName) + len(r.ScopeVersion) + len(r.SpanAttributes) + len(r.StatusCode) +
		len(r.StatusMessage)
	for _, s := range r.EventsName {
		n += len(s) + 8
	}
	for _, s := range r.EventsAttributes {
		n += len(s)
	}
	for i := range r.LinksTraceID {
		n += len(r.LinksTraceID[i]) + len(r.LinksSpanID[i]) + len(r.LinksTraceState[i]) + len(r.LinksAttributes[i])
	}
	return int64(n)
}

func metricBaseSize(b *MetricBase) int64 {
	return rowOverhead + int64(len(b.ServiceName)+len(b.ResourceAttributes)+len(b.ScopeName)+
		len(b.ScopeVersion)+len(b.MetricName)+len(b.MetricDescription)+len(b.MetricUnit)+
		len(b.Attributes))
}
