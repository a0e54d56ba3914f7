// Package ingest orchestrates the pipeline: decode an OTLP payload,
// map it to columnar batches, accumulate per schema, and hand flushed
// batches to the writer port. Decode and map are pure and run freely in
// parallel per request; the accumulator is the only shared-mutable
// boundary.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/coldtel/batcher"
	"github.com/xtxerr/coldtel/columnar"
	"github.com/xtxerr/coldtel/config"
	"github.com/xtxerr/coldtel/internal/logging"
	"github.com/xtxerr/coldtel/otlp"
	"github.com/xtxerr/coldtel/partition"
	"github.com/xtxerr/coldtel/writer"
)

// ErrNotRunning is returned by Ingest before Start or after Stop.
var ErrNotRunning = errors.New("ingest: pipeline not running")

// Stats holds pipeline counters.
type Stats struct {
	PayloadsDecoded  atomic.Int64
	PayloadsRejected atomic.Int64
	RowsMapped       atomic.Int64
	FlushesRows      atomic.Int64
	FlushesBytes     atomic.Int64
	FlushesAge       atomic.Int64
	FlushesForced    atomic.Int64
	WriteFailures    atomic.Int64
	CatalogWarnings  atomic.Int64
}

func (s *Stats) countFlush(t batcher.Trigger) {
	switch t {
	case batcher.TriggerRows:
		s.FlushesRows.Add(1)
	case batcher.TriggerBytes:
		s.FlushesBytes.Add(1)
	case batcher.TriggerAge:
		s.FlushesAge.Add(1)
	default:
		s.FlushesForced.Add(1)
	}
}

// Pipeline is the ingestion orchestrator. Construct once per process in
// server mode, or per invocation in stateless mode with batching
// disabled (every payload then flushes synchronously and write failures
// surface to the caller).
type Pipeline struct {
	cfg  *config.Config
	acc  *batcher.Accumulator
	port writer.Port
	log  *slog.Logger

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stats Stats
}

// New creates a pipeline writing flushed batches to port.
func New(cfg *config.Config, port writer.Port) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	limits := batcher.Limits{
		MaxRows:  cfg.Batching.MaxRows,
		MaxBytes: cfg.Batching.MaxBytes,
		MaxAge:   cfg.Batching.MaxAge,
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:    cfg,
		acc:    batcher.New(limits, cfg.Batching.Enabled),
		port:   port,
		log:    logging.Component("ingest"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Accumulator exposes the batch accumulator. For tests.
func (p *Pipeline) Accumulator() *batcher.Accumulator { return p.acc }

// Start begins accepting payloads and launches the age sweeper when
// batching with a max age is configured.
func (p *Pipeline) Start() error {
	if p.running.Load() {
		return fmt.Errorf("ingest: pipeline already running")
	}
	p.running.Store(true)

	if p.cfg.Batching.Enabled && p.cfg.Batching.MaxAge > 0 {
		p.wg.Add(1)
		go p.sweepWorker()
	}
	return nil
}

// Stop drains every pending batch to the writer and waits for in-flight
// detached writes. Returns the first drain write error; accepted rows
// are written out even on shutdown.
func (p *Pipeline) Stop() error {
	if !p.running.Load() {
		return nil
	}
	p.running.Store(false)
	p.cancel()
	p.wg.Wait()

	g, ctx := errgroup.WithContext(context.Background())
	for _, f := range p.acc.DrainAll() {
		f := f
		g.Go(func() error {
			return p.writeSync(ctx, f)
		})
	}
	return g.Wait()
}

// Ingest decodes one payload, maps it, and accumulates the resulting
// batches. A decode failure rejects the whole payload with zero side
// effects. In forced-flush mode the write happens synchronously and its
// durability failure is the caller's to retry; threshold flushes are
// detached and never delay the return.
func (p *Pipeline) Ingest(ctx context.Context, env otlp.Envelope) error {
	if !p.running.Load() {
		return ErrNotRunning
	}

	recs, err := otlp.Decode(env)
	if err != nil {
		p.stats.PayloadsRejected.Add(1)
		return fmt.Errorf("decode %s payload: %w", env.Signal, err)
	}

	batches, err := columnar.Map(recs)
	if err != nil {
		p.stats.PayloadsRejected.Add(1)
		return fmt.Errorf("map %s payload: %w", env.Signal, err)
	}

	p.stats.PayloadsDecoded.Add(1)
	p.stats.RowsMapped.Add(int64(recs.Len()))

	for _, b := range batches {
		flush, err := p.acc.Append(b)
		if err != nil {
			// Schema mismatch here is an internal bug, not bad input.
			p.log.Error("accumulator append failed", "schema", b.Schema(), "error", err)
			return err
		}
		if flush == nil {
			continue
		}
		p.stats.countFlush(flush.Trigger)

		if flush.Trigger == batcher.TriggerForced {
			if err := p.writeSync(ctx, flush); err != nil {
				return err
			}
			continue
		}
		p.wg.Add(1)
		go func(f *batcher.Flush) {
			defer p.wg.Done()
			p.writeDetached(f)
		}(flush)
	}
	return nil
}

// writeSync writes a flush and propagates durability failure to the
// caller. A catalog failure after a durable write only logs a warning.
func (p *Pipeline) writeSync(ctx context.Context, f *batcher.Flush) error {
	rec, err := p.port.Write(ctx, f.Batch, p.resolve(f))
	if err != nil {
		p.stats.WriteFailures.Add(1)
		return fmt.Errorf("write %s batch (%d rows): %w", f.Schema, f.Batch.Len(), err)
	}
	p.noteCatalog(f, rec)
	return nil
}

// writeDetached writes a flush off the append path. On durability
// failure the batch is restored into the accumulator so accepted rows
// are never silently dropped.
func (p *Pipeline) writeDetached(f *batcher.Flush) {
	rec, err := p.port.Write(p.ctx, f.Batch, p.resolve(f))
	if err != nil {
		p.stats.WriteFailures.Add(1)
		p.log.Error("batch write failed, requeueing",
			"schema", f.Schema, "rows", f.Batch.Len(), "trigger", f.Trigger, "error", err)
		if rerr := p.acc.Restore(f); rerr != nil {
			p.log.Error("requeue failed, rows lost", "schema", f.Schema, "error", rerr)
		}
		return
	}
	p.noteCatalog(f, rec)
	p.log.Debug("batch written",
		"schema", f.Schema, "rows", rec.Rows, "trigger", f.Trigger, "location", rec.Location)
}

// noteCatalog applies the warn-and-succeed policy for catalog commits.
func (p *Pipeline) noteCatalog(f *batcher.Flush, rec writer.Receipt) {
	if rec.CatalogErr != nil {
		p.stats.CatalogWarnings.Add(1)
		p.log.Warn("catalog commit failed after durable write",
			"schema", f.Schema, "location", rec.Location, "error", rec.CatalogErr)
	}
}

// resolve derives the partition path from the flush's first row
// timestamp and extracted service name.
func (p *Pipeline) resolve(f *batcher.Flush) partition.Path {
	return partition.Resolve(f.Schema, f.Batch.Service(), time.Unix(0, f.Batch.FirstTimestamp()))
}

// sweepWorker periodically flushes pending batches that aged past the
// configured maximum with no further traffic.
func (p *Pipeline) sweepWorker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Batching.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			for _, f := range p.acc.SweepExpired() {
				p.stats.countFlush(f.Trigger)
				p.wg.Add(1)
				go func(f *batcher.Flush) {
					defer p.wg.Done()
					p.writeDetached(f)
				}(f)
			}
		}
	}
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() *Stats {
	return &p.stats
}
