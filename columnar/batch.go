package columnar

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch is an internal invariant violation: two batches with
// different schemas were combined. It indicates a bug in the caller, not bad
// user input, and is logged distinctly from decode rejections.
var ErrSchemaMismatch = errors.New("columnar: schema mismatch")

// Batch is an in-memory columnar batch: same-length column values for one
// schema, one row per telemetry record.
type Batch interface {
	// Schema identifies the fixed column set of every row in the batch.
	Schema() SchemaID
	// Len returns the row count.
	Len() int
	// Size returns a cheap byte-size estimate for flush decisions.
	Size() int64
	// FirstTimestamp returns the first non-zero row timestamp in
	// nanoseconds, or zero if no row carried one. It is the representative
	// time for partitioning the flushed batch.
	FirstTimestamp() int64
	// Service returns the first non-empty extracted service name, the
	// representative service for partitioning the flushed batch.
	Service() string
	// Append concatenates another batch of the same schema onto this one.
	Append(other Batch) error
}

// Rows is the concrete Batch: an ordered slice of schema rows. Row insertion
// order is preserved across appends for time locality.
type Rows[T any] struct {
	schema  SchemaID
	rows    []T
	size    int64
	firstTS int64
	service string
}

// NewRows builds a batch from mapped rows. The size estimate, first
// timestamp, and representative service are computed by the mapper.
func NewRows[T any](schema SchemaID, rows []T, size, firstTS int64, service string) *Rows[T] {
	return &Rows[T]{schema: schema, rows: rows, size: size, firstTS: firstTS, service: service}
}

func (r *Rows[T]) Schema() SchemaID      { return r.schema }
func (r *Rows[T]) Len() int              { return len(r.rows) }
func (r *Rows[T]) Size() int64           { return r.size }
func (r *Rows[T]) FirstTimestamp() int64 { return r.firstTS }
func (r *Rows[T]) Service() string       { return r.service }

// Rows returns the row slice. The slice is owned by the batch; callers must
// not retain it across an Append.
func (r *Rows[T]) Rows() []T { return r.rows }

func (r *Rows[T]) Append(other Batch) error {
	o, ok := other.(*Rows[T])
	if !ok || o.schema != r.schema {
		return fmt.Errorf("%w: cannot append %s batch to %s batch", ErrSchemaMismatch, other.Schema(), r.schema)
	}
	r.rows = append(r.rows, o.rows...)
	r.size += o.size
	if r.firstTS == 0 || (o.firstTS != 0 && o.firstTS < r.firstTS) {
		r.firstTS = o.firstTS
	}
	if r.service == "" {
		r.service = o.service
	}
	return nil
}
