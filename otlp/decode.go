package otlp

import (
	"bytes"
	"fmt"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

// DecodeError is a request-scoped rejection: the payload could not be
// decoded and zero records were emitted. It is the only error class Decode
// returns for malformed input.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode " + e.Field + ": " + e.Reason
}

// Decode parses an envelope into intermediate records. Decoding is atomic:
// on any error the payload is rejected whole and no records are returned.
// Decode performs no I/O.
func Decode(env Envelope) (*Records, error) {
	switch env.Encoding {
	case EncodingProtobuf:
		return decodeOne(env.Bytes, env.Signal, false)
	case EncodingJSON:
		return decodeOne(env.Bytes, env.Signal, true)
	case EncodingNDJSON:
		return decodeLines(env.Bytes, env.Signal)
	default:
		return nil, &DecodeError{Field: "encoding", Reason: fmt.Sprintf("unknown encoding %d", env.Encoding)}
	}
}

// decodeLines decodes a newline-delimited payload where every line is a
// complete export request. A single bad line rejects the whole payload.
func decodeLines(raw []byte, signal Signal) (*Records, error) {
	out := &Records{Signal: signal}
	for i, line := range bytes.Split(raw, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		recs, err := decodeOne(line, signal, true)
		if err != nil {
			return nil, &DecodeError{Field: fmt.Sprintf("line %d", i+1), Reason: err.Error()}
		}
		out.Logs = append(out.Logs, recs.Logs...)
		out.Spans = append(out.Spans, recs.Spans...)
		out.Points = append(out.Points, recs.Points...)
	}
	return out, nil
}

func decodeOne(raw []byte, signal Signal, isJSON bool) (*Records, error) {
	if isJSON {
		normalized, err := normalizeJSON(raw)
		if err != nil {
			return nil, err
		}
		raw = normalized
	}

	out := &Records{Signal: signal}
	switch signal {
	case SignalLogs:
		ld, err := unmarshalLogs(raw, isJSON)
		if err != nil {
			return nil, err
		}
		logs, err := logRecords(ld)
		if err != nil {
			return nil, err
		}
		out.Logs = logs
	case SignalTraces:
		td, err := unmarshalTraces(raw, isJSON)
		if err != nil {
			return nil, err
		}
		spans, err := spanRecords(td)
		if err != nil {
			return nil, err
		}
		out.Spans = spans
	case SignalMetrics:
		md, err := unmarshalMetrics(raw, isJSON)
		if err != nil {
			return nil, err
		}
		points, err := metricPoints(md)
		if err != nil {
			return nil, err
		}
		out.Points = points
	default:
		return nil, &DecodeError{Field: "signal", Reason: fmt.Sprintf("unknown signal %d", signal)}
	}
	return out, nil
}

func unmarshalLogs(raw []byte, isJSON bool) (plog.Logs, error) {
	var (
		ld  plog.Logs
		err error
	)
	if isJSON {
		ld, err = (&plog.JSONUnmarshaler{}).UnmarshalLogs(raw)
	} else {
		ld, err = (&plog.ProtoUnmarshaler{}).UnmarshalLogs(raw)
	}
	if err != nil {
		return plog.Logs{}, &DecodeError{Field: "payload", Reason: err.Error()}
	}
	return ld, nil
}

func unmarshalTraces(raw []byte, isJSON bool) (ptrace.Traces, error) {
	var (
		td  ptrace.Traces
		err error
	)
	if isJSON {
		td, err = (&ptrace.JSONUnmarshaler{}).UnmarshalTraces(raw)
	} else {
		td, err = (&ptrace.ProtoUnmarshaler{}).UnmarshalTraces(raw)
	}
	if err != nil {
		return ptrace.Traces{}, &DecodeError{Field: "payload", Reason: err.Error()}
	}
	return td, nil
}

func unmarshalMetrics(raw []byte, isJSON bool) (pmetric.Metrics, error) {
	var (
		md  pmetric.Metrics
		err error
	)
	if isJSON {
		md, err = (&pmetric.JSONUnmarshaler{}).UnmarshalMetrics(raw)
	} else {
		md, err = (&pmetric.ProtoUnmarshaler{}).UnmarshalMetrics(raw)
	}
	if err != nil {
		return pmetric.Metrics{}, &DecodeError{Field: "payload", Reason: err.Error()}
	}
	return md, nil
}

func logRecords(ld plog.Logs) ([]LogRecord, error) {
	var out []LogRecord
	rls := ld.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		rl := rls.At(i)
		res := &Resource{
			Attrs:     attrsFromPdata(rl.Resource().Attributes()),
			SchemaURL: rl.SchemaUrl(),
		}
		sls := rl.ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			sl := sls.At(j)
			scope := scopeFromPdata(sl.Scope())
			lrs := sl.LogRecords()
			for k := 0; k < lrs.Len(); k++ {
				lr := lrs.At(k)
				sev := int32(lr.SeverityNumber())
				if sev < 0 || sev > 24 {
					return nil, &DecodeError{Field: "severityNumber", Reason: fmt.Sprintf("value %d outside known set", sev)}
				}
				out = append(out, LogRecord{
					TimeUnixNano:         uint64(lr.Timestamp()),
					ObservedTimeUnixNano: uint64(lr.ObservedTimestamp()),
					TraceID:              lr.TraceID(),
					SpanID:               lr.SpanID(),
					Flags:                uint32(lr.Flags()),
					SeverityText:         lr.SeverityText(),
					SeverityNumber:       sev,
					Body:                 valueFromPdata(lr.Body()),
					Attrs:                attrsFromPdata(lr.Attributes()),
					Resource:             res,
					Scope:                scope,
				})
			}
		}
	}
	return out, nil
}

func spanRecords(td ptrace.Traces) ([]SpanRecord, error) {
	var out []SpanRecord
	rss := td.ResourceSpans()
	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		res := &Resource{
			Attrs:     attrsFromPdata(rs.Resource().Attributes()),
			SchemaURL: rs.SchemaUrl(),
		}
		sss := rs.ScopeSpans()
		for j := 0; j < sss.Len(); j++ {
			ss := sss.At(j)
			scope := scopeFromPdata(ss.Scope())
			spans := ss.Spans()
			for k := 0; k < spans.Len(); k++ {
				sp := spans.At(k)
				kind := int32(sp.Kind())
				if kind < 0 || kind > 5 {
					return nil, &DecodeError{Field: "kind", Reason: fmt.Sprintf("span kind %d outside known set", kind)}
				}
				code := int32(sp.Status().Code())
				if code < 0 || code > 2 {
					return nil, &DecodeError{Field: "code", Reason: fmt.Sprintf("status code %d outside known set", code)}
				}

				rec := SpanRecord{
					TraceID:           sp.TraceID(),
					SpanID:            sp.SpanID(),
					ParentSpanID:      sp.ParentSpanID(),
					TraceState:        sp.TraceState().AsRaw(),
					Name:              sp.Name(),
					Kind:              kind,
					StartTimeUnixNano: uint64(sp.StartTimestamp()),
					EndTimeUnixNano:   uint64(sp.EndTimestamp()),
					Attrs:             attrsFromPdata(sp.Attributes()),
					Status:            SpanStatus{Code: code, Message: sp.Status().Message()},
					Resource:          res,
					Scope:             scope,
				}

				events := sp.Events()
				for e := 0; e < events.Len(); e++ {
					ev := events.At(e)
					rec.Events = append(rec.Events, SpanEvent{
						TimeUnixNano: uint64(ev.Timestamp()),
						Name:         ev.Name(),
						Attrs:        attrsFromPdata(ev.Attributes()),
					})
				}
				links := sp.Links()
				for l := 0; l < links.Len(); l++ {
					ln := links.At(l)
					rec.Links = append(rec.Links, SpanLink{
						TraceID:    ln.TraceID(),
						SpanID:     ln.SpanID(),
						TraceState: ln.TraceState().AsRaw(),
						Attrs:      attrsFromPdata(ln.Attributes()),
					})
				}
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func metricPoints(md pmetric.Metrics) ([]MetricPoint, error) {
	var out []MetricPoint
	rms := md.ResourceMetrics()
	for i := 0; i < rms.Len(); i++ {
		rm := rms.At(i)
		res := &Resource{
			Attrs:     attrsFromPdata(rm.Resource().Attributes()),
			SchemaURL: rm.SchemaUrl(),
		}
		sms := rm.ScopeMetrics()
		for j := 0; j < sms.Len(); j++ {
			sm := sms.At(j)
			scope := scopeFromPdata(sm.Scope())
			metrics := sm.Metrics()
			for k := 0; k < metrics.Len(); k++ {
				points, err := pointsFromMetric(metrics.At(k), res, scope)
				if err != nil {
					return nil, err
				}
				out = append(out, points...)
			}
		}
	}
	return out, nil
}

// pointsFromMetric dispatches on the metric's own discriminator to one of
// the five point kinds.
func pointsFromMetric(m pmetric.Metric, res *Resource, scope *Scope) ([]MetricPoint, error) {
	base := MetricPoint{
		Name:        m.Name(),
		Description: m.Description(),
		Unit:        m.Unit(),
		Resource:    res,
		Scope:       scope,
	}

	switch m.Type() {
	case pmetric.MetricTypeGauge:
		return numberPoints(base, MetricGauge, m.Gauge().DataPoints(), 0, false)

	case pmetric.MetricTypeSum:
		sum := m.Sum()
		temporality := int32(sum.AggregationTemporality())
		if temporality < 0 || temporality > 2 {
			return nil, &DecodeError{Field: "aggregationTemporality", Reason: fmt.Sprintf("value %d outside known set", temporality)}
		}
		points, err := numberPoints(base, MetricSum, sum.DataPoints(), temporality, sum.IsMonotonic())
		if err != nil {
			return nil, err
		}
		return points, nil

	case pmetric.MetricTypeHistogram:
		h := m.Histogram()
		temporality := int32(h.AggregationTemporality())
		if temporality < 0 || temporality > 2 {
			return nil, &DecodeError{Field: "aggregationTemporality", Reason: fmt.Sprintf("value %d outside known set", temporality)}
		}
		dps := h.DataPoints()
		out := make([]MetricPoint, 0, dps.Len())
		for i := 0; i < dps.Len(); i++ {
			dp := dps.At(i)
			p := base
			p.Kind = MetricHistogram
			p.Temporality = temporality
			p.TimeUnixNano = uint64(dp.Timestamp())
			p.StartTimeUnixNano = uint64(dp.StartTimestamp())
			p.Attrs = attrsFromPdata(dp.Attributes())
			p.Count = dp.Count()
			p.Sum = dp.Sum()
			p.BucketCounts = dp.BucketCounts().AsRaw()
			p.ExplicitBounds = dp.ExplicitBounds().AsRaw()
			if dp.HasMin() {
				v := dp.Min()
				p.Min = &v
			}
			if dp.HasMax() {
				v := dp.Max()
				p.Max = &v
			}
			out = append(out, p)
		}
		return out, nil

	case pmetric.MetricTypeExponentialHistogram:
		h := m.ExponentialHistogram()
		temporality := int32(h.AggregationTemporality())
		if temporality < 0 || temporality > 2 {
			return nil, &DecodeError{Field: "aggregationTemporality", Reason: fmt.Sprintf("value %d outside known set", temporality)}
		}
		dps := h.DataPoints()
		out := make([]MetricPoint, 0, dps.Len())
		for i := 0; i < dps.Len(); i++ {
			dp := dps.At(i)
			p := base
			p.Kind = MetricExponentialHistogram
			p.Temporality = temporality
			p.TimeUnixNano = uint64(dp.Timestamp())
			p.StartTimeUnixNano = uint64(dp.StartTimestamp())
			p.Attrs = attrsFromPdata(dp.Attributes())
			p.Count = dp.Count()
			p.Sum = dp.Sum()
			p.Scale = dp.Scale()
			p.ZeroCount = dp.ZeroCount()
			p.PositiveOffset = dp.Positive().Offset()
			p.PositiveBuckets = dp.Positive().BucketCounts().AsRaw()
			p.NegativeOffset = dp.Negative().Offset()
			p.NegativeBuckets = dp.Negative().BucketCounts().AsRaw()
			if dp.HasMin() {
				v := dp.Min()
				p.Min = &v
			}
			if dp.HasMax() {
				v := dp.Max()
				p.Max = &v
			}
			out = append(out, p)
		}
		return out, nil

	case pmetric.MetricTypeSummary:
		dps := m.Summary().DataPoints()
		out := make([]MetricPoint, 0, dps.Len())
		for i := 0; i < dps.Len(); i++ {
			dp := dps.At(i)
			p := base
			p.Kind = MetricSummary
			p.TimeUnixNano = uint64(dp.Timestamp())
			p.StartTimeUnixNano = uint64(dp.StartTimestamp())
			p.Attrs = attrsFromPdata(dp.Attributes())
			p.Count = dp.Count()
			p.Sum = dp.Sum()
			qs := dp.QuantileValues()
			p.QuantileLevels = make([]float64, 0, qs.Len())
			p.QuantileValues = make([]float64, 0, qs.Len())
			for q := 0; q < qs.Len(); q++ {
				qv := qs.At(q)
				p.QuantileLevels = append(p.QuantileLevels, qv.Quantile())
				p.QuantileValues = append(p.QuantileValues, qv.Value())
			}
			out = append(out, p)
		}
		return out, nil

	default:
		return nil, &DecodeError{Field: "metric", Reason: fmt.Sprintf("metric %q has no data", m.Name())}
	}
}

func numberPoints(base MetricPoint, kind MetricKind, dps pmetric.NumberDataPointSlice, temporality int32, monotonic bool) ([]MetricPoint, error) {
	out := make([]MetricPoint, 0, dps.Len())
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)
		p := base
		p.Kind = kind
		p.Temporality = temporality
		p.IsMonotonic = monotonic
		p.TimeUnixNano = uint64(dp.Timestamp())
		p.StartTimeUnixNano = uint64(dp.StartTimestamp())
		p.Attrs = attrsFromPdata(dp.Attributes())
		switch dp.ValueType() {
		case pmetric.NumberDataPointValueTypeInt:
			p.Value = float64(dp.IntValue())
		default:
			p.Value = dp.DoubleValue()
		}
		out = append(out, p)
	}
	return out, nil
}

func scopeFromPdata(s pcommon.InstrumentationScope) *Scope {
	return &Scope{
		Name:    s.Name(),
		Version: s.Version(),
		Attrs:   attrsFromPdata(s.Attributes()),
	}
}
