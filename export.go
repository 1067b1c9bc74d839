package robolake

import (
	"github.com/hugr-lab/robolake/internal/columnar"
	"github.com/hugr-lab/robolake/internal/export"
	"github.com/hugr-lab/robolake/record"
)

// Export writes rows to path as "parquet", "csv" or "json". CSV and JSON
// output is zstd-compressed when path ends in ".zst".
func (c *Converter) Export(rows []record.Row, path, format string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	codec, err := columnar.ParseCompression(c.cfg.Compression)
	if err != nil {
		return err
	}

	frame := columnar.FromRows(rows)
	if err := export.WriteFile(path, frame, f, export.Options{
		Compression: codec,
		Allocator:   c.cfg.allocator(),
	}); err != nil {
		return err
	}

	c.logger.Info("Exported rows",
		"path", path,
		"format", f,
		"rows", frame.NumRows(),
		"columns", frame.NumColumns(),
	)
	return nil
}

// DefaultOutputPath returns the export path used when none is given.
func DefaultOutputPath(input, format string) string {
	return export.DefaultPath(input, export.Format(format))
}
