package rosbag2

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MetadataFile is the bag directory index written by rosbag2.
const MetadataFile = "metadata.yaml"

// Metadata is the subset of metadata.yaml used by the reader.
type Metadata struct {
	Version           int              `yaml:"version"`
	StorageIdentifier string           `yaml:"storage_identifier"`
	RelativeFilePaths []string         `yaml:"relative_file_paths"`
	Duration          Nanoseconds      `yaml:"duration"`
	StartingTime      NanosecondsEpoch `yaml:"starting_time"`
	MessageCount      int64            `yaml:"message_count"`
	Topics            []TopicWithCount `yaml:"topics_with_message_count"`
}

// Nanoseconds is a duration as written by rosbag2.
type Nanoseconds struct {
	Nanoseconds int64 `yaml:"nanoseconds"`
}

// NanosecondsEpoch is a point in time as written by rosbag2.
type NanosecondsEpoch struct {
	NanosecondsSinceEpoch int64 `yaml:"nanoseconds_since_epoch"`
}

// TopicWithCount describes one topic in metadata.yaml.
type TopicWithCount struct {
	TopicMetadata struct {
		Name                string `yaml:"name"`
		Type                string `yaml:"type"`
		SerializationFormat string `yaml:"serialization_format"`
	} `yaml:"topic_metadata"`
	MessageCount int64 `yaml:"message_count"`
}

type metadataDocument struct {
	Info Metadata `yaml:"rosbag2_bagfile_information"`
}

// ReadMetadata parses a metadata.yaml file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc metadataDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc.Info, nil
}
