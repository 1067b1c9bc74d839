package robolake

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/robolake/catalog"
	"github.com/hugr-lab/robolake/flatten"
	"github.com/hugr-lab/robolake/internal/columnar"
)

// EnvCatalogDir overrides Config.CatalogDir when set.
const EnvCatalogDir = "ROBOLAKE_CATALOG"

// Config contains configuration for conversions and catalogs.
type Config struct {
	// CatalogDir is the default catalog directory for commands that take one.
	// OPTIONAL: Defaults to "catalog". Overridden by $ROBOLAKE_CATALOG.
	CatalogDir string `yaml:"catalog_dir"`

	// MaxSequenceExpand is the longest sequence flattened element by element.
	// Longer sequences are stored as one JSON string.
	// OPTIONAL: Defaults to 5. A negative value stores every non-empty sequence as JSON.
	MaxSequenceExpand int `yaml:"max_sequence_expand"`

	// MaxDepth bounds message nesting during flattening.
	// OPTIONAL: Defaults to 64. MUST be positive.
	MaxDepth int `yaml:"max_depth"`

	// Compression is the parquet codec for catalog tables and parquet exports.
	// OPTIONAL: Defaults to "zstd".
	// Valid values: "zstd", "snappy", "gzip", "none"
	Compression string `yaml:"compression"`

	// LogLevel sets the logging level.
	// OPTIONAL: Defaults to "info".
	// Valid values: "debug", "info", "warn", "error"
	// Ignored if Logger is set.
	LogLevel string `yaml:"log_level"`

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator `yaml:"-"`

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger `yaml:"-"`
}

// Standard errors returned by robolake package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInputNotFound indicates the input recording does not exist.
	ErrInputNotFound = errors.New("input not found")

	// ErrUnsupportedInput indicates no reader is available for the input.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		CatalogDir:        "catalog",
		MaxSequenceExpand: flatten.DefaultMaxSequenceExpand,
		MaxDepth:          flatten.DefaultMaxDepth,
		Compression:       "zstd",
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML config file over DefaultConfig. An empty path
// skips the file. $ROBOLAKE_CATALOG is applied last.
//
// Example file:
//
//	catalog_dir: /data/robolake
//	max_sequence_expand: 5
//	compression: snappy
//	log_level: debug
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if dir := os.Getenv(EnvCatalogDir); dir != "" {
		cfg.CatalogDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max_depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if _, err := columnar.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Level parses LogLevel. An empty level is Info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// NewLogger creates a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) allocator() memory.Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return memory.DefaultAllocator
}

func (c Config) flattenOptions() flatten.Options {
	return flatten.Options{
		MaxSequenceExpand: c.MaxSequenceExpand,
		MaxDepth:          c.MaxDepth,
		Logger:            c.logger(),
	}
}

// CatalogOptions returns catalog options derived from the config.
func (c Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		Compression: c.Compression,
		Allocator:   c.allocator(),
		Logger:      c.logger(),
	}
}
