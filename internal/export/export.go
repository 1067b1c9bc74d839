// Package export writes converted frames to parquet, CSV or JSON files.
//
// CSV and JSON output may be zstd-compressed by giving the output path a
// ".zst" suffix. Parquet files use their own internal codec instead.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/hugr-lab/robolake/internal/columnar"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
)

// ZstdSuffix marks compressed CSV/JSON output.
const ZstdSuffix = ".zst"

var (
	// ErrUnknownFormat is returned for unsupported format names.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrCompressedParquet is returned for a parquet output path ending in ".zst".
	ErrCompressedParquet = errors.New("parquet output cannot be zstd-wrapped; parquet uses internal compression")

	// ErrNoColumns is returned when writing a frame without columns to parquet.
	ErrNoColumns = errors.New("nothing to export: no columns")
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatParquet, FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (expected parquet, csv or json)", ErrUnknownFormat, name)
}

// Options configures an export.
type Options struct {
	// Compression is the parquet codec. Ignored for CSV and JSON.
	// OPTIONAL: Defaults to uncompressed.
	Compression compress.Compression

	// Allocator for Arrow buffers.
	// OPTIONAL: Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

// DefaultPath returns the output path used when none is given: the input
// path with its extension replaced by the format name.
func DefaultPath(input string, format Format) string {
	input = strings.TrimRight(input, string(filepath.Separator))
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + string(format)
}

// WriteFile writes frame to path. A ".zst" suffix compresses CSV and JSON
// output with zstd.
func WriteFile(path string, frame *columnar.Frame, format Format, opts Options) (err error) {
	compressed := strings.HasSuffix(path, ZstdSuffix)
	if compressed && format == FormatParquet {
		return ErrCompressedParquet
	}

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if closeErr := fh.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close output: %w", closeErr)
		}
	}()

	if !compressed {
		return Write(fh, frame, format, opts)
	}

	enc, err := zstd.NewWriter(fh, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if err := Write(enc, frame, format, opts); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}

// Write writes frame to w in the given format.
func Write(w io.Writer, frame *columnar.Frame, format Format, opts Options) error {
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}

	switch format {
	case FormatParquet:
		if frame.NumColumns() == 0 {
			return ErrNoColumns
		}
		return columnar.WriteParquet(w, frame, opts.Allocator, opts.Compression)
	case FormatCSV:
		return writeCSV(w, frame, opts.Allocator)
	case FormatJSON:
		return writeJSON(w, frame)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeCSV(w io.Writer, frame *columnar.Frame, mem memory.Allocator) error {
	if frame.NumColumns() == 0 {
		return nil
	}

	rec, err := frame.Record(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	cw := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// writeJSON writes an array of row objects. Keys follow column order and
// nulls are written explicitly.
func writeJSON(w io.Writer, frame *columnar.Frame) error {
	bw := bufio.NewWriter(w)
	names := frame.ColumnNames()

	keys := make([][]byte, len(names))
	for j, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[j] = k
	}

	bw.WriteByte('[')
	for i := 0; i < frame.NumRows(); i++ {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString("\n  {")
		for j := range names {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.Write(keys[j])
			bw.WriteByte(':')
			v, err := jsonValue(frame.Value(i, j))
			if err != nil {
				return fmt.Errorf("failed to encode column %q: %w", names[j], err)
			}
			bw.Write(v)
		}
		bw.WriteByte('}')
	}
	if frame.NumRows() > 0 {
		bw.WriteByte('\n')
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func jsonValue(v any) ([]byte, error) {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
