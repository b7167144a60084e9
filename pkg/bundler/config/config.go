package config

import (
	"fmt"
	"time"

	"github.com/aumtech/logbundle/pkg/defaults"
)

// Config provides immutable settings for one collection run.
// All fields are read-only after creation; build a new Config to change them.
type Config struct {
	// outputDir is where the archive is written.
	outputDir string

	// sizeLimit is the largest archive in bytes. Zero or less disables the guard.
	sizeLimit int64

	// qualifyNames stores entries as <source>/<basename> instead of <basename>.
	qualifyNames bool

	// includeChecksums appends a checksums.txt entry to the archive.
	includeChecksums bool

	// store writes entries uncompressed.
	store bool

	// concurrency is the number of sources matched at once.
	concurrency int

	// toolTimeout bounds each external tool invocation. Zero disables it.
	toolTimeout time.Duration

	// toolRate caps external tool launches per second. Zero means unlimited.
	toolRate float64

	// version is recorded in the run summary.
	version string
}

// OutputDir returns the archive directory.
func (c *Config) OutputDir() string {
	return c.outputDir
}

// SizeLimit returns the archive size ceiling in bytes.
func (c *Config) SizeLimit() int64 {
	return c.sizeLimit
}

// QualifyNames returns whether entry names carry their source name.
func (c *Config) QualifyNames() bool {
	return c.qualifyNames
}

// IncludeChecksums returns the include checksums setting.
func (c *Config) IncludeChecksums() bool {
	return c.includeChecksums
}

// Store returns whether entries are stored uncompressed.
func (c *Config) Store() bool {
	return c.store
}

// Concurrency returns the number of sources matched at once.
func (c *Config) Concurrency() int {
	return c.concurrency
}

// ToolTimeout returns the per-invocation bound for external tools.
func (c *Config) ToolTimeout() time.Duration {
	return c.toolTimeout
}

// ToolRate returns the external tool launch rate.
func (c *Config) ToolRate() float64 {
	return c.toolRate
}

// Version returns the collector version.
func (c *Config) Version() string {
	return c.version
}

// Validate checks if the Config has valid settings.
func (c *Config) Validate() error {
	if c.outputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.sizeLimit < 0 {
		return fmt.Errorf("invalid size limit: %d (must not be negative, 0 disables the check)", c.sizeLimit)
	}
	if c.concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d (must be at least 1)", c.concurrency)
	}
	if c.toolTimeout < 0 {
		return fmt.Errorf("invalid tool timeout: %v (must not be negative)", c.toolTimeout)
	}
	if c.toolRate < 0 {
		return fmt.Errorf("invalid tool rate: %v (must not be negative)", c.toolRate)
	}
	return nil
}

type Option func(*Config)

// WithOutputDir sets the directory the archive is written to.
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.outputDir = dir
	}
}

// WithSizeLimit sets the archive size ceiling in bytes.
func WithSizeLimit(limit int64) Option {
	return func(c *Config) {
		c.sizeLimit = limit
	}
}

// WithQualifyNames sets whether entries are named <source>/<basename>.
func WithQualifyNames(enabled bool) Option {
	return func(c *Config) {
		c.qualifyNames = enabled
	}
}

// WithIncludeChecksums sets whether a checksums file should be included in the archive.
func WithIncludeChecksums(enabled bool) Option {
	return func(c *Config) {
		c.includeChecksums = enabled
	}
}

// WithStore sets whether entries are stored without compression.
func WithStore(enabled bool) Option {
	return func(c *Config) {
		c.store = enabled
	}
}

// WithConcurrency sets how many sources are matched at once.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.concurrency = n
	}
}

// WithToolTimeout sets the bound for each external tool invocation.
func WithToolTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.toolTimeout = d
	}
}

// WithToolRate sets the maximum external tool launches per second.
func WithToolRate(perSecond float64) Option {
	return func(c *Config) {
		c.toolRate = perSecond
	}
}

// WithVersion sets the version for the collector.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.version = version
	}
}

// NewConfig returns a Config with default values.
func NewConfig(options ...Option) *Config {
	c := &Config{
		outputDir:        ".",
		sizeLimit:        defaults.ArchiveSizeLimit,
		qualifyNames:     false,
		includeChecksums: false,
		store:            false,
		concurrency:      defaults.MatchConcurrency,
		toolTimeout:      defaults.ToolTimeout,
		toolRate:         0,
		version:          "dev",
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}
