// Package config loads the indexer settings once at start-up: defaults,
// then an optional properties/YAML/TOML file, then MGIINDEXER_* environment
// variables, then command-line flags.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mgiindexer/internal/blob"
	"mgiindexer/internal/sink"
	"mgiindexer/internal/source"
)

// EnvPrefix prefixes every environment override, e.g. MGIINDEXER_DB_URL.
const EnvPrefix = "MGIINDEXER"

// Config is the full process configuration.
type Config struct {
	DB        DB                   `mapstructure:"db"`
	Index     Index                `mapstructure:"index"`
	Blob      Blob                 `mapstructure:"blob"`
	Log       Log                  `mapstructure:"log"`
	Metrics   Metrics              `mapstructure:"metrics"`
	ChunkSize int                  `mapstructure:"chunk_size"`
	BatchSize int                  `mapstructure:"batch_size"`
	Parallel  int                  `mapstructure:"parallel"`
	Jobs      map[string]JobConfig `mapstructure:"jobs"`
}

// DB is the source database connection.
type DB struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// LogValue keeps the password out of logs.
func (d DB) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", d.Driver),
		slog.String("url", source.Redact(d.URL)),
		slog.String("user", d.User),
	)
}

// Index selects the search index backend.
type Index struct {
	Backend string `mapstructure:"backend"`
	URL     string `mapstructure:"url"`
	Prefix  string `mapstructure:"prefix"`
}

// Blob configures the archive backend's object store.
type Blob struct {
	Driver string `mapstructure:"driver"`
	Root   string `mapstructure:"root"`
	S3     S3     `mapstructure:"s3"`
}

// S3 configures the s3 blob driver.
type S3 struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Metrics configures metric delivery.
type Metrics struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

// JobConfig overrides sizes for one job.
type JobConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	BatchSize int `mapstructure:"batch_size"`
}

var defaults = map[string]any{
	"db.driver":                 "",
	"db.url":                    "",
	"db.user":                   "",
	"db.password":               "",
	"index.backend":             string(sink.BackendSolr),
	"index.url":                 "",
	"index.prefix":              "indexes",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.root":                 "./indexdata",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "us-east-1",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.s3.path_style":        false,
	"log.level":                 "info",
	"log.format":                "text",
	"metrics.pushgateway":       "",
	"metrics.job":               "mgiindexer",
	"chunk_size":                10000,
	"batch_size":                1000,
	"parallel":                  1,
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"parallel":   "parallel",
	"log-level":  "log.level",
	"log-format": "log.format",
	"backend":    "index.backend",
}

// Load builds the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".properties", ".props", ".prop", "":
			v.SetConfigType("properties")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read configuration file %q: %w", path, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	jobs := make(map[string]JobConfig, len(cfg.Jobs))
	for name, jc := range cfg.Jobs {
		jobs[strings.ToLower(name)] = jc
	}
	cfg.Jobs = jobs
	return &cfg, nil
}

// Validate checks the configuration before anything connects.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}
	if _, _, err := c.SourceOptions().Resolve(); err != nil {
		return fmt.Errorf("db.url: %w", err)
	}
	switch sink.Backend(c.Index.Backend) {
	case sink.BackendSolr:
		if c.Index.URL == "" {
			return fmt.Errorf("index.url is required for the solr backend")
		}
	case sink.BackendArchive:
		switch blob.Driver(c.Blob.Driver) {
		case blob.DriverFilesystem, blob.DriverMemory:
		case blob.DriverS3:
			if c.Blob.S3.Bucket == "" {
				return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
			}
		default:
			return fmt.Errorf("unknown blob.driver %q", c.Blob.Driver)
		}
	case sink.BackendMemory:
	default:
		return fmt.Errorf("unknown index.backend %q", c.Index.Backend)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	for name, jc := range c.Jobs {
		if jc.ChunkSize < 0 || jc.BatchSize < 0 {
			return fmt.Errorf("jobs.%s: sizes must not be negative", name)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SourceOptions returns the source database options.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Driver:   source.Driver(c.DB.Driver),
		URL:      c.DB.URL,
		User:     c.DB.User,
		Password: c.DB.Password,
	}
}

// JobSizes returns the chunk and batch size of a job, after overrides.
func (c *Config) JobSizes(job string) (chunkSize, batchSize int) {
	chunkSize, batchSize = c.ChunkSize, c.BatchSize
	if jc, ok := c.Jobs[strings.ToLower(job)]; ok {
		if jc.ChunkSize > 0 {
			chunkSize = jc.ChunkSize
		}
		if jc.BatchSize > 0 {
			batchSize = jc.BatchSize
		}
	}
	return chunkSize, batchSize
}

// SinkConfig returns the index backend configuration, opening the blob
// store when the archive backend is selected.
func (c *Config) SinkConfig(ctx context.Context) (sink.Config, error) {
	sc := sink.Config{Backend: sink.Backend(c.Index.Backend), URL: c.Index.URL, Prefix: c.Index.Prefix}
	if sc.Backend != sink.BackendArchive {
		return sc, nil
	}
	store, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		Root:   c.Blob.Root,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return sink.Config{}, fmt.Errorf("open blob store: %w", err)
	}
	sc.Store = store
	return sc, nil
}
