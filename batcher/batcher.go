// Package batcher accumulates columnar batches per schema until a soft
// row, byte, or age threshold fires, then hands the whole accumulated
// batch off for writing. Thresholds are evaluated only after a complete
// merge, so a single oversized payload is never split and a batch may
// exceed its configured limit by one append.
package batcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/coldtel/columnar"
)

// Trigger records why a batch was flushed. It is observability metadata,
// not part of correctness.
type Trigger int

const (
	TriggerRows Trigger = iota
	TriggerBytes
	TriggerAge
	TriggerForced
)

func (t Trigger) String() string {
	switch t {
	case TriggerRows:
		return "rows"
	case TriggerBytes:
		return "bytes"
	case TriggerAge:
		return "age"
	case TriggerForced:
		return "forced"
	default:
		return "unknown"
	}
}

// Limits are the soft flush thresholds. A zero value disables the
// corresponding check.
type Limits struct {
	MaxRows  int64
	MaxBytes int64
	MaxAge   time.Duration
}

// Flush is a batch swapped out of the accumulator. From the moment of
// the swap it is owned solely by the caller; concurrent appends land in
// the fresh pending batch installed in its place.
type Flush struct {
	Schema  columnar.SchemaID
	Trigger Trigger
	Batch   columnar.Batch
	Created time.Time
}

// shard holds the single live pending batch for one schema.
type shard struct {
	mu      sync.Mutex
	batch   columnar.Batch
	created time.Time
}

// Accumulator merges incoming batches per schema and yields flush
// decisions. The key space is bounded by construction (one shard per
// fixed schema), and access is serialized per shard, never globally.
type Accumulator struct {
	limits  Limits
	enabled bool
	now     func() time.Time

	shards [schemaCount]shard

	appendCount atomic.Int64
	flushCount  atomic.Int64
	rowCount    atomic.Int64
}

const schemaCount = int(columnar.SchemaMetricsSummary) + 1

// New creates an Accumulator. With enabled=false every append is its own
// Forced flush and the limits are inert; this is the mode for stateless
// hosts that cannot retain pending rows across invocations.
func New(limits Limits, enabled bool) *Accumulator {
	return &Accumulator{
		limits:  limits,
		enabled: enabled,
		now:     time.Now,
	}
}

// SetClock replaces the time source. For tests.
func (a *Accumulator) SetClock(now func() time.Time) {
	a.now = now
}

// Append merges b into the pending batch for its schema and returns a
// non-nil Flush when a threshold fired (or always, in forced mode).
// The returned batch is fully detached: a concurrent Append for the
// same schema starts a fresh pending batch.
func (a *Accumulator) Append(b columnar.Batch) (*Flush, error) {
	if b == nil || b.Len() == 0 {
		return nil, nil
	}
	a.appendCount.Add(1)
	a.rowCount.Add(int64(b.Len()))

	if !a.enabled {
		a.flushCount.Add(1)
		return &Flush{
			Schema:  b.Schema(),
			Trigger: TriggerForced,
			Batch:   b,
			Created: a.now(),
		}, nil
	}

	sh := &a.shards[b.Schema()]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.batch == nil {
		sh.batch = b
		sh.created = a.now()
	} else if err := sh.batch.Append(b); err != nil {
		return nil, fmt.Errorf("append %s: %w", b.Schema(), err)
	}

	if trigger, ok := a.exceeded(sh); ok {
		return a.swapLocked(sh, b.Schema(), trigger), nil
	}
	return nil, nil
}

// exceeded checks the soft limits against the current pending batch.
// Caller holds the shard lock.
func (a *Accumulator) exceeded(sh *shard) (Trigger, bool) {
	if a.limits.MaxRows > 0 && int64(sh.batch.Len()) >= a.limits.MaxRows {
		return TriggerRows, true
	}
	if a.limits.MaxBytes > 0 && sh.batch.Size() >= a.limits.MaxBytes {
		return TriggerBytes, true
	}
	if a.limits.MaxAge > 0 && a.now().Sub(sh.created) >= a.limits.MaxAge {
		return TriggerAge, true
	}
	return 0, false
}

// swapLocked detaches the pending batch. Caller holds the shard lock.
func (a *Accumulator) swapLocked(sh *shard, schema columnar.SchemaID, trigger Trigger) *Flush {
	a.flushCount.Add(1)
	f := &Flush{
		Schema:  schema,
		Trigger: trigger,
		Batch:   sh.batch,
		Created: sh.created,
	}
	sh.batch = nil
	sh.created = time.Time{}
	return f
}

// SweepExpired flushes every pending batch whose age reached MaxAge.
// It exists so an idle batch is flushed even with no further traffic.
func (a *Accumulator) SweepExpired() []*Flush {
	if !a.enabled || a.limits.MaxAge <= 0 {
		return nil
	}
	var out []*Flush
	now := a.now()
	for i := range a.shards {
		sh := &a.shards[i]
		sh.mu.Lock()
		if sh.batch != nil && now.Sub(sh.created) >= a.limits.MaxAge {
			out = append(out, a.swapLocked(sh, columnar.SchemaID(i), TriggerAge))
		}
		sh.mu.Unlock()
	}
	return out
}

// DrainAll flushes every pending batch regardless of thresholds.
// Used at shutdown so accepted rows reach the writer.
func (a *Accumulator) DrainAll() []*Flush {
	var out []*Flush
	for i := range a.shards {
		sh := &a.shards[i]
		sh.mu.Lock()
		if sh.batch != nil {
			out = append(out, a.swapLocked(sh, columnar.SchemaID(i), TriggerForced))
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore puts a flushed batch back into its shard after a failed
// write. Rows merge into whatever accumulated meanwhile; the shard
// keeps the earlier creation time so the age sweep retries promptly.
// Restore never evaluates thresholds.
func (a *Accumulator) Restore(f *Flush) error {
	if f == nil || f.Batch == nil || f.Batch.Len() == 0 {
		return nil
	}
	sh := &a.shards[f.Schema]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.batch == nil {
		sh.batch = f.Batch
		sh.created = f.Created
		if sh.created.IsZero() {
			sh.created = a.now()
		}
		return nil
	}
	if err := sh.batch.Append(f.Batch); err != nil {
		return fmt.Errorf("restore %s: %w", f.Schema, err)
	}
	if !f.Created.IsZero() && f.Created.Before(sh.created) {
		sh.created = f.Created
	}
	return nil
}

// PendingRows returns the row count currently accumulated for schema.
func (a *Accumulator) PendingRows(schema columnar.SchemaID) int {
	sh := &a.shards[schema]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.batch == nil {
		return 0
	}
	return sh.batch.Len()
}

// Stats holds accumulator counters.
type Stats struct {
	Appends int64
	Flushes int64
	Rows    int64
}

func (a *Accumulator) Stats() Stats {
	return Stats{
		Appends: a.appendCount.Load(),
		Flushes: a.flushCount.Load(),
		Rows:    a.rowCount.Load(),
	}
}
