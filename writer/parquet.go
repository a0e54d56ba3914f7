package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/coldtel/columnar"
	"github.com/xtxerr/coldtel/partition"
)

// CompressionType selects the parquet column compression codec.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Options configures the parquet writer.
type Options struct {
	// Root directory partition paths are created under.
	Root string

	// Compression algorithm for all columns.
	Compression CompressionType

	// Optional metadata hook, invoked after each durable write.
	Catalog Catalog
}

// DefaultOptions returns default parquet options rooted at dir.
func DefaultOptions(dir string) Options {
	return Options{
		Root:        dir,
		Compression: CompressionZstd,
	}
}

// Parquet writes flushed batches as local parquet files under
// Root/{partition path}/{uuid}-{firstTimestampNanos}.parquet.
type Parquet struct {
	opts Options
}

// NewParquet creates the reference local writer.
func NewParquet(opts Options) *Parquet {
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Parquet{opts: opts}
}

// Write persists b under the partition path. Durability is claimed only
// after the file is fully written, synced, and closed; any earlier
// failure removes the partial file so readers never observe it.
func (w *Parquet) Write(ctx context.Context, b columnar.Batch, p partition.Path) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	name := fmt.Sprintf("%s-%d.parquet", uuid.NewString(), b.FirstTimestamp())
	path := filepath.Join(w.opts.Root, filepath.FromSlash(p.File(name)))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create partition dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("create file: %w", err)
	}

	if err := w.encode(f, b); err != nil {
		f.Close()
		os.Remove(path)
		return Receipt{}, fmt.Errorf("encode %s: %w", b.Schema(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return Receipt{}, fmt.Errorf("sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Receipt{}, fmt.Errorf("close file: %w", err)
	}

	rec := Receipt{Durable: true, Location: path, Rows: int64(b.Len())}
	if w.opts.Catalog != nil {
		rec.CatalogErr = w.opts.Catalog.Commit(ctx, path, b.Schema(), rec.Rows)
	}
	return rec, nil
}

// encode dispatches on the concrete row type behind the Batch interface.
func (w *Parquet) encode(f *os.File, b columnar.Batch) error {
	opt := parquet.Compression(getCompression(w.opts.Compression))

	switch rows := b.(type) {
	case *columnar.Rows[columnar.LogRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.SpanRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.GaugeRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.SumRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.HistogramRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.ExpHistogramRow]:
		return writeRows(f, rows.Rows(), opt)
	case *columnar.Rows[columnar.SummaryRow]:
		return writeRows(f, rows.Rows(), opt)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedBatch, b)
	}
}

func writeRows[T any](f *os.File, rows []T, opts ...parquet.WriterOption) error {
	pw := parquet.NewGenericWriter[T](f, opts...)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}
