// Package writer defines the storage boundary consumed by the ingestion
// core, plus a reference implementation that encodes flushed batches as
// local parquet files. Object-storage and catalog-backed writers live
// outside this module and only need to satisfy Port.
package writer

import (
	"context"
	"errors"

	"github.com/xtxerr/coldtel/columnar"
	"github.com/xtxerr/coldtel/partition"
)

// ErrUnsupportedBatch indicates a batch whose concrete row type the
// writer does not know. This is an internal invariant violation, not an
// input error.
var ErrUnsupportedBatch = errors.New("writer: unsupported batch type")

// Receipt reports the two independent outcomes of a write. Durable is
// set only once the batch has been irrevocably persisted. CatalogErr
// records a failed metadata commit; Durable=true with a non-nil
// CatalogErr is a valid outcome under the warn-and-succeed policy.
type Receipt struct {
	Durable    bool
	Location   string
	Rows       int64
	CatalogErr error
}

// Port is the interface the ingestion core hands flushed batches to.
// A nil error with Durable=false never occurs; a non-nil error means
// the rows are not durable and the caller must retry or requeue.
type Port interface {
	Write(ctx context.Context, b columnar.Batch, p partition.Path) (Receipt, error)
}

// Catalog is an optional transactional metadata hook invoked after a
// durable write. Failures are reported through Receipt.CatalogErr and
// never revoke durability.
type Catalog interface {
	Commit(ctx context.Context, location string, schema columnar.SchemaID, rows int64) error
}
