// Package config builds a fully wired field-model engine from declarative
// settings: store, cache, and media backends are selected by URL, and the
// result bundles a ModelConfig plus a model Registry ready for content type
// registration.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	cachememory "github.com/tendant/simple-fields/pkg/simplefields/cache/memory"
	cacheredis "github.com/tendant/simple-fields/pkg/simplefields/cache/redis"
	hostmemory "github.com/tendant/simple-fields/pkg/simplefields/host/memory"
	storememory "github.com/tendant/simple-fields/pkg/simplefields/store/memory"
	storepg "github.com/tendant/simple-fields/pkg/simplefields/store/postgres"
	fsstorage "github.com/tendant/simple-fields/pkg/simplefields/storage/fs"
	memorystorage "github.com/tendant/simple-fields/pkg/simplefields/storage/memory"
	s3storage "github.com/tendant/simple-fields/pkg/simplefields/storage/s3"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Config represents engine configuration for the simple-fields service.
type Config struct {
	Environment string // development, production, testing

	// DatabaseURL selects the content store: "memory" (default) or a
	// postgresql:// connection string.
	DatabaseURL string

	// CacheURL selects the cache provider: "memory" (default) or a
	// redis:// connection string.
	CacheURL string

	// MediaURL selects the media resolver (one of):
	//   "memory://"                     - in-memory (default)
	//   "file:///path/to/dir?base=URL"  - filesystem
	//   "s3://bucket?region=us-east-1"  - S3
	MediaURL string

	CacheEnabled bool
	CacheTTL     time.Duration

	Capabilities []string // capability grants for the static checker

	Logger *slog.Logger
}

// Load constructs a Config by applying the supplied options on top of library
// defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		Environment:  "development",
		DatabaseURL:  "memory",
		CacheURL:     "memory",
		MediaURL:     "memory://",
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
		Capabilities: []string{"edit_item"},
	}
}

// WithDatabase sets the content store URL.
func WithDatabase(u string) Option {
	return func(c *Config) error {
		if u != "" {
			c.DatabaseURL = u
		}
		return nil
	}
}

// WithCache sets the cache provider URL.
func WithCache(u string) Option {
	return func(c *Config) error {
		if u != "" {
			c.CacheURL = u
		}
		return nil
	}
}

// WithMedia sets the media resolver URL.
func WithMedia(u string) Option {
	return func(c *Config) error {
		if u != "" {
			c.MediaURL = u
		}
		return nil
	}
}

// WithCachePolicy sets the cache enabled flag and TTL.
func WithCachePolicy(enabled bool, ttl time.Duration) Option {
	return func(c *Config) error {
		c.CacheEnabled = enabled
		if ttl > 0 {
			c.CacheTTL = ttl
		}
		return nil
	}
}

// WithCapabilities sets the capability grants for the static checker.
func WithCapabilities(caps ...string) Option {
	return func(c *Config) error {
		c.Capabilities = caps
		return nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// Engine bundles the wired collaborators and the model registry.
type Engine struct {
	ModelConfig simplefields.ModelConfig
	Registry    *simplefields.Registry
	Bus         *hostmemory.Bus
	Registrar   *hostmemory.Registrar

	pool *pgxpool.Pool
	rdb  *goredis.Client
}

// Close releases pooled connections.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.rdb != nil {
		e.rdb.Close()
	}
}

// Build wires the configured backends into an Engine.
func (c *Config) Build(ctx context.Context) (*Engine, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng := &Engine{
		Bus:       hostmemory.NewBus(),
		Registrar: hostmemory.NewRegistrar(),
		Registry:  simplefields.NewRegistry(),
	}

	store, pool, err := c.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	eng.pool = pool

	cache, rdb, err := c.buildCache()
	if err != nil {
		eng.Close()
		return nil, err
	}
	eng.rdb = rdb

	media, err := c.buildMedia()
	if err != nil {
		eng.Close()
		return nil, err
	}

	eng.ModelConfig = simplefields.ModelConfig{
		Store:        store,
		Cache:        cache,
		Bus:          eng.Bus,
		Registrar:    eng.Registrar,
		Capabilities: hostmemory.NewCapabilities(c.Capabilities...),
		Media:        media,
		Logger:       logger,
		CacheEnabled: c.CacheEnabled,
		CacheTTL:     c.CacheTTL,
	}
	return eng, nil
}

func (c *Config) buildStore(ctx context.Context) (simplefields.ContentStore, *pgxpool.Pool, error) {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		return storememory.New(), nil, nil
	case strings.HasPrefix(c.DatabaseURL, "postgres://"),
		strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return storepg.NewWithPool(pool), pool, nil
	}
	return nil, nil, fmt.Errorf("unsupported database URL: %s", c.DatabaseURL)
}

func (c *Config) buildCache() (simplefields.Cache, *goredis.Client, error) {
	switch {
	case c.CacheURL == "" || c.CacheURL == "memory":
		return cachememory.New(), nil, nil
	case strings.HasPrefix(c.CacheURL, "redis://"):
		opts, err := goredis.ParseURL(c.CacheURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		client := goredis.NewClient(opts)
		return cacheredis.New(client), client, nil
	}
	return nil, nil, fmt.Errorf("unsupported cache URL: %s", c.CacheURL)
}

func (c *Config) buildMedia() (simplefields.MediaResolver, error) {
	u, err := url.Parse(c.MediaURL)
	if err != nil {
		return nil, fmt.Errorf("parsing media URL: %w", err)
	}
	switch u.Scheme {
	case "", "memory":
		return memorystorage.New(), nil
	case "file":
		base := u.Query().Get("base")
		if base == "" {
			return nil, errors.New("file media URL requires a base query parameter")
		}
		return fsstorage.New(fsstorage.Config{BaseDir: u.Path, BaseURL: base})
	case "s3":
		return s3storage.New(s3storage.Config{
			Bucket:       u.Host,
			Region:       u.Query().Get("region"),
			Endpoint:     u.Query().Get("endpoint"),
			UsePathStyle: u.Query().Get("path_style") == "true",
			KeyPrefix:    strings.TrimPrefix(u.Path, "/"),
		})
	}
	return nil, fmt.Errorf("unsupported media URL scheme: %s", u.Scheme)
}
