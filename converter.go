package robolake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/hugr-lab/robolake/bag"
	"github.com/hugr-lab/robolake/bag/rosbag2"
	"github.com/hugr-lab/robolake/flatten"
	"github.com/hugr-lab/robolake/record"
	"github.com/hugr-lab/robolake/typestore"
)

// Converter turns recordings into rows.
type Converter struct {
	cfg     Config
	builder *record.Builder
	logger  *slog.Logger
}

// NewConverter creates a Converter. Returns ErrInvalidConfig if cfg does not validate.
func NewConverter(cfg Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger()
	return &Converter{
		cfg:     cfg,
		builder: record.NewBuilder(flatten.New(cfg.flattenOptions()), logger),
		logger:  logger,
	}, nil
}

// Config returns the converter configuration.
func (c *Converter) Config() Config { return c.cfg }

// OpenBag opens a recording with a fresh type store.
//
// Returns ErrInputNotFound if path does not exist and ErrUnsupportedInput if
// no reader handles it.
func OpenBag(path string, logger *slog.Logger) (bag.Reader, error) {
	r, err := rosbag2.Open(path, typestore.New(), logger)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	case errors.Is(err, rosbag2.ErrUnsupportedStorage):
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	default:
		return nil, err
	}
}

// ConvertFile opens the recording at path and converts it.
func (c *Converter) ConvertFile(ctx context.Context, path string, topics []string) ([]record.Row, error) {
	r, err := OpenBag(path, c.logger)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return c.Convert(ctx, r, topics)
}

// Convert builds one row per message on the selected topics, in recording
// order. An empty topic list selects every topic; unknown topics are
// ignored. Messages that fail to deserialize produce degraded rows.
func (c *Converter) Convert(ctx context.Context, r bag.Reader, topics []string) ([]record.Row, error) {
	conns := bag.FilterTopics(r.Connections(), topics)
	if len(topics) > 0 && len(conns) == 0 {
		c.logger.Warn("No matching topics in recording", "topics", topics)
	}

	var (
		rows     []record.Row
		degraded int
	)
	err := r.Messages(ctx, conns, func(m bag.Message) error {
		row := c.builder.Build(m.Connection, m.Timestamp, m.Data, r.Deserialize)
		if row.Degraded() {
			degraded++
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	c.logger.Info("Converted recording",
		"rows", len(rows),
		"degraded", degraded,
		"topics", len(bag.Topics(conns)),
	)
	return rows, nil
}
