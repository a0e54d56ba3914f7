package columnar

import (
	"reflect"
	"strings"
	"testing"

	"github.com/xtxerr/coldtel/otlp"
)

func logFixture(n int) []otlp.LogRecord {
	res := &otlp.Resource{Attrs: []otlp.KeyValue{
		{Key: "service.name", Value: otlp.StringValue("checkout")},
		{Key: "service.namespace", Value: otlp.StringValue("shop")},
		{Key: "host.name", Value: otlp.StringValue("node-1")},
	}}
	scope := &otlp.Scope{Name: "example/lib", Version: "1.2.3"}

	logs := make([]otlp.LogRecord, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, otlp.LogRecord{
			TimeUnixNano:         uint64(1700000000000000000 + i),
			ObservedTimeUnixNano: uint64(1700000000000000001 + i),
			TraceID:              [16]byte{byte(i)},
			SpanID:               [8]byte{byte(i)},
			SeverityText:         "INFO",
			SeverityNumber:       9,
			Body:                 otlp.StringValue("event"),
			Attrs: []otlp.KeyValue{
				{Key: "http.status_code", Value: otlp.IntValue(200)},
			},
			Resource: res,
			Scope:    scope,
		})
	}
	return logs
}

func TestMapLogsFixture(t *testing.T) {
	batch := MapLogs(logFixture(81))

	if batch.Schema() != SchemaLogs {
		t.Errorf("expected schema %v, got %v", SchemaLogs, batch.Schema())
	}
	if batch.Len() != 81 {
		t.Errorf("expected 81 rows, got %d", batch.Len())
	}
	if fields := SchemaLogs.ParquetSchema().Fields(); len(fields) != 15 {
		t.Errorf("expected 15 columns, got %d", len(fields))
	}
	if batch.FirstTimestamp() != 1700000000000000000 {
		t.Errorf("unexpected first timestamp %d", batch.FirstTimestamp())
	}
	if batch.Service() != "checkout" {
		t.Errorf("expected service checkout, got %q", batch.Service())
	}
	if batch.Size() <= 0 {
		t.Error("expected positive size estimate")
	}
}

func TestMapLogsServicePromotion(t *testing.T) {
	logs := logFixture(1)
	row := MapLogs(logs).Rows()[0]

	if row.ServiceName != "checkout" {
		t.Errorf("expected ServiceName checkout, got %q", row.ServiceName)
	}
	if row.ServiceNamespace != "shop" {
		t.Errorf("expected ServiceNamespace shop, got %q", row.ServiceNamespace)
	}
	if strings.Contains(row.ResourceAttributes, "service.name") {
		t.Errorf("service.name must not remain in ResourceAttributes: %s", row.ResourceAttributes)
	}
	if strings.Contains(row.ResourceAttributes, "service.namespace") {
		t.Errorf("service.namespace must not remain in ResourceAttributes: %s", row.ResourceAttributes)
	}
	if !strings.Contains(row.ResourceAttributes, "host.name") {
		t.Errorf("host.name missing from ResourceAttributes: %s", row.ResourceAttributes)
	}
	if row.LogAttributes != `{"http.status_code":200}` {
		t.Errorf("unexpected LogAttributes %s", row.LogAttributes)
	}
}

func TestMapLogsIdempotent(t *testing.T) {
	logs := logFixture(10)

	a := MapLogs(logs)
	b := MapLogs(logs)

	if !reflect.DeepEqual(a.Rows(), b.Rows()) {
		t.Error("mapping identical input twice must yield identical rows")
	}
	if a.Size() != b.Size() || a.FirstTimestamp() != b.FirstTimestamp() {
		t.Errorf("expected identical metadata, got size %d/%d first %d/%d",
			a.Size(), b.Size(), a.FirstTimestamp(), b.FirstTimestamp())
	}
}

func TestMapSpans(t *testing.T) {
	res := &otlp.Resource{Attrs: []otlp.KeyValue{
		{Key: "service.name", Value: otlp.StringValue("payments")},
	}}
	scope := &otlp.Scope{Name: "tracer"}

	spans := []otlp.SpanRecord{{
		TraceID:           [16]byte{0xab},
		SpanID:            [8]byte{0xcd},
		ParentSpanID:      [8]byte{0xef},
		Name:              "GET /pay",
		Kind:              2,
		StartTimeUnixNano: 1700000000000000000,
		EndTimeUnixNano:   1700000000000500000,
		Status:            otlp.SpanStatus{Code: 1, Message: "ok"},
		Attrs: []otlp.KeyValue{
			{Key: "http.method", Value: otlp.StringValue("GET")},
		},
		Events: []otlp.SpanEvent{
			{TimeUnixNano: 1700000000000100000, Name: "cache.miss"},
		},
		Links: []otlp.SpanLink{
			{TraceID: [16]byte{0x01}, SpanID: [8]byte{0x02}},
		},
		Resource: res,
		Scope:    scope,
	}}

	batch := MapSpans(spans)
	if batch.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", batch.Len())
	}
	if fields := SchemaTraces.ParquetSchema().Fields(); len(fields) != 24 {
		t.Errorf("expected 24 columns, got %d", len(fields))
	}

	row := batch.Rows()[0]
	if row.Duration != 500000 {
		t.Errorf("expected duration 500000, got %d", row.Duration)
	}
	if row.SpanKind != "SPAN_KIND_SERVER" {
		t.Errorf("unexpected span kind %q", row.SpanKind)
	}
	if row.StatusCode != "STATUS_CODE_OK" {
		t.Errorf("unexpected status code %q", row.StatusCode)
	}
	if len(row.EventsName) != 1 || row.EventsName[0] != "cache.miss" {
		t.Errorf("unexpected events %v", row.EventsName)
	}
	wantLink := "01000000000000000000000000000000"
	if len(row.LinksTraceID) != 1 || row.LinksTraceID[0] != wantLink {
		t.Errorf("expected link trace id %s, got %v", wantLink, row.LinksTraceID)
	}
}

func TestMapMetricsByKind(t *testing.T) {
	res := &otlp.Resource{Attrs: []otlp.KeyValue{
		{Key: "service.name", Value: otlp.StringValue("worker")},
		{Key: "service.namespace", Value: otlp.StringValue("jobs")},
	}}
	scope := &otlp.Scope{Name: "meter"}

	mkPoint := func(kind otlp.MetricKind, ts uint64) otlp.MetricPoint {
		return otlp.MetricPoint{
			Kind:         kind,
			Name:         "m",
			TimeUnixNano: ts,
			Resource:     res,
			Scope:        scope,
		}
	}

	points := []otlp.MetricPoint{
		mkPoint(otlp.MetricSum, 30),
		mkPoint(otlp.MetricGauge, 20),
		mkPoint(otlp.MetricGauge, 10),
		mkPoint(otlp.MetricSummary, 40),
	}

	batches := MapMetrics(points)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	// Stable schema order regardless of input order.
	wantOrder := []SchemaID{SchemaMetricsGauge, SchemaMetricsSum, SchemaMetricsSummary}
	for i, b := range batches {
		if b.Schema() != wantOrder[i] {
			t.Errorf("batch %d: expected schema %v, got %v", i, wantOrder[i], b.Schema())
		}
	}

	gauges := batches[0].(*Rows[GaugeRow])
	if gauges.Len() != 2 {
		t.Errorf("expected 2 gauge rows, got %d", gauges.Len())
	}
	if gauges.FirstTimestamp() != 10 {
		t.Errorf("expected first timestamp 10, got %d", gauges.FirstTimestamp())
	}

	// Metric schemas promote only service.name; the namespace stays in
	// the attributes map.
	row := gauges.Rows()[0]
	if row.ServiceName != "worker" {
		t.Errorf("expected ServiceName worker, got %q", row.ServiceName)
	}
	if strings.Contains(row.ResourceAttributes, `"service.name"`) {
		t.Errorf("service.name must not remain in ResourceAttributes: %s", row.ResourceAttributes)
	}
	if !strings.Contains(row.ResourceAttributes, `"service.namespace"`) {
		t.Errorf("service.namespace missing from metric ResourceAttributes: %s", row.ResourceAttributes)
	}
}

func TestMapEmptyRecords(t *testing.T) {
	batches, err := Map(&otlp.Records{Signal: otlp.SignalLogs})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if batches != nil {
		t.Errorf("expected no batches for empty records, got %d", len(batches))
	}
}
