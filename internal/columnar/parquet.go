package columnar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ErrUnknownCompression is returned by ParseCompression.
var ErrUnknownCompression = errors.New("unknown compression")

// ParseCompression maps a codec name ("zstd", "snappy", "gzip", "none") to a
// parquet codec. The empty name selects zstd.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "zstd":
		return compress.Codecs.Zstd, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// WriteParquet writes the frame as a parquet file to w. w is not closed.
func WriteParquet(w io.Writer, f *Frame, mem memory.Allocator, codec compress.Compression) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	rec, err := f.Record(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	// The parquet writer closes sinks that implement io.Closer.
	fw, err := pqarrow.NewFileWriter(rec.Schema(), struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet: %w", err)
	}
	return nil
}

// ReadParquet reads a whole parquet file into a frame.
func ReadParquet(ctx context.Context, path string, mem memory.Allocator) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadParquetFrom(ctx, fh, mem)
}

// ReadParquetFrom reads parquet data from r into a frame.
func ReadParquetFrom(ctx context.Context, r parquet.ReaderAtSeeker, mem memory.Allocator) (*Frame, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}
	defer tbl.Release()
	return FromTable(tbl), nil
}

// ParquetInfo reads the row count and column names from a parquet footer
// without loading data pages.
func ParquetInfo(path string) (rows int64, columns []string, err error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read parquet schema: %w", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read parquet schema: %w", err)
	}

	columns = make([]string, 0, schema.NumFields())
	for _, field := range schema.Fields() {
		columns = append(columns, field.Name)
	}
	return rdr.NumRows(), columns, nil
}
