package otlp

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

func buildLogs(n int) plog.Logs {
	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr("service.name", "checkout")
	rl.Resource().Attributes().PutStr("host.name", "node-1")
	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName("example/lib")
	sl.Scope().SetVersion("1.2.3")
	for i := 0; i < n; i++ {
		lr := sl.LogRecords().AppendEmpty()
		lr.SetTimestamp(pcommon.Timestamp(1700000000000000000 + int64(i)))
		lr.SetObservedTimestamp(pcommon.Timestamp(1700000000000000001 + int64(i)))
		lr.SetSeverityNumber(plog.SeverityNumberInfo)
		lr.SetSeverityText("INFO")
		lr.Body().SetStr("request handled")
		lr.Attributes().PutInt("http.status_code", 200)
		lr.SetTraceID(pcommon.TraceID([16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))
		lr.SetSpanID(pcommon.SpanID([8]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	}
	return ld
}

func marshalLogsProto(t *testing.T, ld plog.Logs) []byte {
	t.Helper()
	data, err := (&plog.ProtoMarshaler{}).MarshalLogs(ld)
	if err != nil {
		t.Fatalf("marshal logs: %v", err)
	}
	return data
}

func TestDecodeLogsProtobuf(t *testing.T) {
	data := marshalLogsProto(t, buildLogs(3))

	recs, err := Decode(Envelope{Bytes: data, Encoding: EncodingProtobuf, Signal: SignalLogs})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recs.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", recs.Len())
	}

	lr := recs.Logs[0]
	if lr.SeverityNumber != 9 {
		t.Errorf("expected severity 9, got %d", lr.SeverityNumber)
	}
	if lr.SeverityText != "INFO" {
		t.Errorf("expected severity text INFO, got %q", lr.SeverityText)
	}
	if lr.TraceID != [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16} {
		t.Errorf("unexpected trace id %x", lr.TraceID)
	}
	if lr.Body.Kind != ValueStr || lr.Body.Str != "request handled" {
		t.Errorf("unexpected body %+v", lr.Body)
	}
	if lr.Resource == nil || len(lr.Resource.Attrs) != 2 {
		t.Fatalf("expected 2 resource attrs, got %+v", lr.Resource)
	}
	if lr.Scope == nil || lr.Scope.Name != "example/lib" {
		t.Errorf("unexpected scope %+v", lr.Scope)
	}
}

func TestDecodeLogsJSONSnakeCase(t *testing.T) {
	// snake_case keys, symbolic severity, base64 ids: the normalizer must
	// accept all of these.
	payload := `{
		"resource_logs": [{
			"resource": {"attributes": [{"key": "service.name", "value": {"string_value": "checkout"}}]},
			"scope_logs": [{
				"scope": {"name": "lib"},
				"log_records": [{
					"time_unix_nano": "1700000000000000000",
					"severity_number": "SEVERITY_NUMBER_WARN",
					"severity_text": "WARN",
					"trace_id": "AQIDBAUGBwgJCgsMDQ4PEA==",
					"span_id": "AQIDBAUGBwg=",
					"body": {"string_value": "slow request"}
				}]
			}]
		}]
	}`

	recs, err := Decode(Envelope{Bytes: []byte(payload), Encoding: EncodingJSON, Signal: SignalLogs})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recs.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", recs.Len())
	}

	lr := recs.Logs[0]
	if lr.SeverityNumber != 13 {
		t.Errorf("expected severity 13, got %d", lr.SeverityNumber)
	}
	if lr.TimeUnixNano != 1700000000000000000 {
		t.Errorf("unexpected timestamp %d", lr.TimeUnixNano)
	}
	if lr.TraceID != [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16} {
		t.Errorf("unexpected trace id %x", lr.TraceID)
	}
	if lr.SpanID != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("unexpected span id %x", lr.SpanID)
	}
}

func TestDecodeInvalidTraceID(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{"not hex not base64", "zzz"},
		{"hex too short", "0102"},
		{"base64 wrong length", "AQID"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := `{"resourceLogs": [{"scopeLogs": [{"logRecords": [{"traceId": "` + tc.id + `"}]}]}]}`
			recs, err := Decode(Envelope{Bytes: []byte(payload), Encoding: EncodingJSON, Signal: SignalLogs})
			if err == nil {
				t.Fatal("expected decode failure")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if recs != nil {
				t.Errorf("expected zero records on failure, got %d", recs.Len())
			}
		})
	}
}

func TestDecodeUnknownEnum(t *testing.T) {
	payload := `{"resourceLogs": [{"scopeLogs": [{"logRecords": [{"severityNumber": "SEVERITY_NUMBER_BOGUS"}]}]}]}`
	_, err := Decode(Envelope{Bytes: []byte(payload), Encoding: EncodingJSON, Signal: SignalLogs})
	if err == nil {
		t.Fatal("expected decode failure for unknown enum")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if de.Field != "severityNumber" {
		t.Errorf("expected field severityNumber, got %q", de.Field)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
	}{
		{"truncated protobuf", Envelope{Bytes: []byte{0xff, 0x01, 0x02}, Encoding: EncodingProtobuf, Signal: SignalLogs}},
		{"invalid json", Envelope{Bytes: []byte(`{"resourceLogs": [`), Encoding: EncodingJSON, Signal: SignalLogs}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := Decode(tc.env)
			if err == nil {
				t.Fatal("expected decode failure")
			}
			if recs != nil {
				t.Errorf("expected zero records, got %d", recs.Len())
			}
		})
	}
}

func TestDecodeNDJSON(t *testing.T) {
	line := `{"resourceLogs": [{"scopeLogs": [{"logRecords": [{"body": {"stringValue": "a"}}, {"body": {"stringValue": "b"}}]}]}]}`
	payload := line + "\n\n" + line + "\n"

	recs, err := Decode(Envelope{Bytes: []byte(payload), Encoding: EncodingNDJSON, Signal: SignalLogs})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recs.Len() != 4 {
		t.Errorf("expected 4 records across lines, got %d", recs.Len())
	}
}

func TestDecodeNDJSONBadLineRejectsWhole(t *testing.T) {
	good := `{"resourceLogs": [{"scopeLogs": [{"logRecords": [{"body": {"stringValue": "a"}}]}]}]}`
	bad := `{"resourceLogs": [{"scopeLogs": [{"logRecords": [{"traceId": "zzz"}]}]}]}`

	recs, err := Decode(Envelope{Bytes: []byte(good + "\n" + bad), Encoding: EncodingNDJSON, Signal: SignalLogs})
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error to name line 2, got %v", err)
	}
	if recs != nil {
		t.Errorf("expected zero records, got %d", recs.Len())
	}
}

func TestDecodeTracesProtobuf(t *testing.T) {
	td := ptrace.NewTraces()
	rs := td.ResourceSpans().AppendEmpty()
	rs.Resource().Attributes().PutStr("service.name", "payments")
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName("tracer")

	sp := ss.Spans().AppendEmpty()
	sp.SetTraceID(pcommon.TraceID([16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))
	sp.SetSpanID(pcommon.SpanID([8]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	sp.SetParentSpanID(pcommon.SpanID([8]byte{8, 7, 6, 5, 4, 3, 2, 1}))
	sp.SetName("GET /pay")
	sp.SetKind(ptrace.SpanKindServer)
	sp.SetStartTimestamp(pcommon.Timestamp(1700000000000000000))
	sp.SetEndTimestamp(pcommon.Timestamp(1700000000000500000))
	sp.Status().SetCode(ptrace.StatusCodeOk)
	sp.Status().SetMessage("ok")
	sp.Attributes().PutStr("http.method", "GET")

	ev := sp.Events().AppendEmpty()
	ev.SetName("cache.miss")
	ev.SetTimestamp(pcommon.Timestamp(1700000000000100000))

	ln := sp.Links().AppendEmpty()
	ln.SetTraceID(pcommon.TraceID([16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}))
	ln.SetSpanID(pcommon.SpanID([8]byte{9, 9, 9, 9, 9, 9, 9, 9}))

	data, err := (&ptrace.ProtoMarshaler{}).MarshalTraces(td)
	if err != nil {
		t.Fatalf("marshal traces: %v", err)
	}

	recs, err := Decode(Envelope{Bytes: data, Encoding: EncodingProtobuf, Signal: SignalTraces})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs.Spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(recs.Spans))
	}

	rec := recs.Spans[0]
	if rec.Kind != 2 {
		t.Errorf("expected kind 2, got %d", rec.Kind)
	}
	if rec.Status.Code != 1 || rec.Status.Message != "ok" {
		t.Errorf("unexpected status %+v", rec.Status)
	}
	if rec.EndTimeUnixNano-rec.StartTimeUnixNano != 500000 {
		t.Errorf("unexpected duration %d", rec.EndTimeUnixNano-rec.StartTimeUnixNano)
	}
	if len(rec.Events) != 1 || rec.Events[0].Name != "cache.miss" {
		t.Errorf("unexpected events %+v", rec.Events)
	}
	if len(rec.Links) != 1 || rec.Links[0].TraceID[0] != 9 {
		t.Errorf("unexpected links %+v", rec.Links)
	}
}

func TestDecodeMetricsProtobuf(t *testing.T) {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	rm.Resource().Attributes().PutStr("service.name", "worker")
	sm := rm.ScopeMetrics().AppendEmpty()
	sm.Scope().SetName("meter")

	g := sm.Metrics().AppendEmpty()
	g.SetName("cpu.usage")
	g.SetUnit("1")
	g.SetEmptyGauge().DataPoints().AppendEmpty().SetDoubleValue(0.75)

	s := sm.Metrics().AppendEmpty()
	s.SetName("requests.total")
	sum := s.SetEmptySum()
	sum.SetAggregationTemporality(pmetric.AggregationTemporalityCumulative)
	sum.SetIsMonotonic(true)
	sum.DataPoints().AppendEmpty().SetIntValue(42)

	h := sm.Metrics().AppendEmpty()
	h.SetName("latency")
	hist := h.SetEmptyHistogram()
	hist.SetAggregationTemporality(pmetric.AggregationTemporalityDelta)
	hdp := hist.DataPoints().AppendEmpty()
	hdp.SetCount(10)
	hdp.SetSum(123.4)
	hdp.BucketCounts().FromRaw([]uint64{1, 4, 5})
	hdp.ExplicitBounds().FromRaw([]float64{0.1, 1})
	hdp.SetMin(0.01)
	hdp.SetMax(3.2)

	e := sm.Metrics().AppendEmpty()
	e.SetName("latency.exp")
	eh := e.SetEmptyExponentialHistogram()
	eh.SetAggregationTemporality(pmetric.AggregationTemporalityDelta)
	edp := eh.DataPoints().AppendEmpty()
	edp.SetCount(7)
	edp.SetScale(2)
	edp.SetZeroCount(1)
	edp.Positive().SetOffset(1)
	edp.Positive().BucketCounts().FromRaw([]uint64{2, 4})

	q := sm.Metrics().AppendEmpty()
	q.SetName("gc.pause")
	sdp := q.SetEmptySummary().DataPoints().AppendEmpty()
	sdp.SetCount(5)
	sdp.SetSum(1.5)
	qv := sdp.QuantileValues().AppendEmpty()
	qv.SetQuantile(0.5)
	qv.SetValue(0.2)

	data, err := (&pmetric.ProtoMarshaler{}).MarshalMetrics(md)
	if err != nil {
		t.Fatalf("marshal metrics: %v", err)
	}

	recs, err := Decode(Envelope{Bytes: data, Encoding: EncodingProtobuf, Signal: SignalMetrics})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(recs.Points))
	}

	kinds := make(map[MetricKind]int)
	for _, p := range recs.Points {
		kinds[p.Kind]++
	}
	for _, k := range []MetricKind{MetricGauge, MetricSum, MetricHistogram, MetricExponentialHistogram, MetricSummary} {
		if kinds[k] != 1 {
			t.Errorf("expected 1 %s point, got %d", k, kinds[k])
		}
	}

	for _, p := range recs.Points {
		switch p.Kind {
		case MetricGauge:
			if p.Value != 0.75 {
				t.Errorf("gauge: expected 0.75, got %f", p.Value)
			}
		case MetricSum:
			if p.Value != 42 || !p.IsMonotonic || p.Temporality != 2 {
				t.Errorf("sum: unexpected point %+v", p)
			}
		case MetricHistogram:
			if p.Count != 10 || len(p.BucketCounts) != 3 || p.Min == nil || *p.Min != 0.01 {
				t.Errorf("histogram: unexpected point %+v", p)
			}
		case MetricExponentialHistogram:
			if p.Scale != 2 || p.PositiveOffset != 1 || len(p.PositiveBuckets) != 2 {
				t.Errorf("exp histogram: unexpected point %+v", p)
			}
		case MetricSummary:
			if p.Count != 5 || len(p.QuantileLevels) != 1 || p.QuantileLevels[0] != 0.5 {
				t.Errorf("summary: unexpected point %+v", p)
			}
		}
	}
}

func TestDecodeMetricWithoutData(t *testing.T) {
	md := pmetric.NewMetrics()
	m := md.ResourceMetrics().AppendEmpty().ScopeMetrics().AppendEmpty().Metrics().AppendEmpty()
	m.SetName("empty.metric")

	data, err := (&pmetric.ProtoMarshaler{}).MarshalMetrics(md)
	if err != nil {
		t.Fatalf("marshal metrics: %v", err)
	}

	_, err = Decode(Envelope{Bytes: data, Encoding: EncodingProtobuf, Signal: SignalMetrics})
	if err == nil {
		t.Fatal("expected decode failure for metric without data")
	}
}

func TestEncodingFromContentType(t *testing.T) {
	cases := []struct {
		ct   string
		want Encoding
	}{
		{"application/x-protobuf", EncodingProtobuf},
		{"", EncodingProtobuf},
		{"application/json", EncodingJSON},
		{"application/json; charset=utf-8", EncodingJSON},
		{"application/x-ndjson", EncodingNDJSON},
		{"application/jsonl", EncodingNDJSON},
	}

	for _, tc := range cases {
		if got := EncodingFromContentType(tc.ct); got != tc.want {
			t.Errorf("content type %q: expected %v, got %v", tc.ct, tc.want, got)
		}
	}
}
