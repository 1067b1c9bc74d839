package robolake

import (
	"context"
	"errors"

	"github.com/hugr-lab/robolake/bag"
)

// TopicInfo describes one topic of a recording.
type TopicInfo struct {
	Name         string
	Type         string
	MessageCount int64
}

// Metadata summarizes a recording.
type Metadata struct {
	Path         string
	Topics       []TopicInfo
	MessageCount int64

	// Duration is End - Start in seconds.
	Duration float64

	// Start and End are the first and last receive times in nanoseconds.
	Start int64
	End   int64

	// Error is set when the recording could not be read. All other fields
	// except Path are then zero.
	Error string
}

// Inspect reads recording metadata.
//
// A missing input returns ErrInputNotFound. Any other failure to read the
// recording is reported through Metadata.Error with a nil error.
func (c *Converter) Inspect(ctx context.Context, path string) (Metadata, error) {
	meta := Metadata{Path: path, Topics: []TopicInfo{}}

	r, err := OpenBag(path, c.logger)
	if errors.Is(err, ErrInputNotFound) {
		return meta, err
	}
	if err != nil {
		c.logger.Warn("Failed to read recording metadata", "path", path, "error", err)
		meta.Error = err.Error()
		return meta, nil
	}
	defer r.Close()

	stats, err := r.Stats(ctx)
	if err != nil {
		c.logger.Warn("Failed to read recording metadata", "path", path, "error", err)
		meta.Error = err.Error()
		return meta, nil
	}

	for _, conn := range r.Connections() {
		meta.Topics = append(meta.Topics, TopicInfo{
			Name:         conn.Topic,
			Type:         conn.MsgType,
			MessageCount: conn.MessageCount,
		})
	}
	meta.MessageCount = stats.MessageCount
	meta.Start = stats.Start
	meta.End = stats.End
	meta.Duration = float64(stats.End-stats.Start) / 1e9
	return meta, nil
}

// TopicNames returns the topic names of a recording's metadata.
func (m Metadata) TopicNames() []string {
	conns := make([]bag.Connection, 0, len(m.Topics))
	for _, t := range m.Topics {
		conns = append(conns, bag.Connection{Topic: t.Name})
	}
	return bag.Topics(conns)
}
