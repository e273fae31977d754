package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/conduit-lang/serializer/pkg/adapter"
	"github.com/conduit-lang/serializer/pkg/cache"
	"github.com/conduit-lang/serializer/pkg/serializer"
)

// Config represents the serializer configuration
type Config struct {
	Adapter               string        `mapstructure:"adapter"`
	KeyTransform          string        `mapstructure:"key_transform"`
	DefaultIncludes       string        `mapstructure:"default_includes"`
	MaxDepth              int           `mapstructure:"max_depth"`
	AllowWildcardIncludes bool          `mapstructure:"allow_wildcard_includes"`
	JSONAPI               JSONAPIConfig `mapstructure:"jsonapi"`
	Cache                 CacheConfig   `mapstructure:"cache"`
	Log                   LogConfig     `mapstructure:"log"`
}

// JSONAPIConfig represents json_api adapter configuration
type JSONAPIConfig struct {
	IncludeToplevelObject bool           `mapstructure:"include_toplevel_object"`
	Version               string         `mapstructure:"version"`
	ToplevelMeta          map[string]any `mapstructure:"toplevel_meta"`
	PaginationLinks       bool           `mapstructure:"pagination_links"`
	ResourceType          string         `mapstructure:"resource_type"`
	IncludeData           bool           `mapstructure:"include_data"`
}

// CacheConfig represents fragment cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Store    string        `mapstructure:"store"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Compress bool          `mapstructure:"compress"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the Redis fragment store connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Cache store names
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Load loads the configuration from path, or from serializer.yml or
// serializer.yaml in the current directory when path is empty. Environment
// variables prefixed with SERIALIZER_ override file values, e.g.
// SERIALIZER_CACHE_STORE=redis.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("adapter", adapter.Attributes)
	v.SetDefault("key_transform", "")
	v.SetDefault("default_includes", "*")
	v.SetDefault("max_depth", 10)
	v.SetDefault("allow_wildcard_includes", true)
	v.SetDefault("jsonapi.include_toplevel_object", false)
	v.SetDefault("jsonapi.version", "1.0")
	v.SetDefault("jsonapi.pagination_links", true)
	v.SetDefault("jsonapi.resource_type", string(adapter.PluralTypes))
	v.SetDefault("jsonapi.include_data", true)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.store", StoreMemory)
	v.SetDefault("cache.prefix", "serializer:")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.compress", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("serializer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix("SERIALIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile walks up from the working directory looking for
// serializer.yml or serializer.yaml. It returns "" when there is none.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"serializer.yml", "serializer.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// SerializerConfig converts the file configuration into a serializer.Config
func (c *Config) SerializerConfig() (serializer.Config, error) {
	cfg := serializer.DefaultConfig()
	cfg.Adapter = c.Adapter
	cfg.AllowWildcardIncludes = c.AllowWildcardIncludes
	cfg.Adapters.DefaultIncludes = c.DefaultIncludes
	cfg.Adapters.MaxDepth = c.MaxDepth

	if c.KeyTransform != "" {
		t, err := adapter.ParseKeyTransform(c.KeyTransform)
		if err != nil {
			return serializer.Config{}, err
		}
		cfg.Adapters.KeyTransform = t
	}

	inflection, err := adapter.ParseResourceTypeInflection(c.JSONAPI.ResourceType)
	if err != nil {
		return serializer.Config{}, err
	}
	cfg.Adapters.JSONAPI = adapter.JSONAPIConfig{
		IncludeToplevelObject: c.JSONAPI.IncludeToplevelObject,
		Version:               c.JSONAPI.Version,
		ToplevelMeta:          c.JSONAPI.ToplevelMeta,
		PaginationLinks:       c.JSONAPI.PaginationLinks,
		ResourceType:          inflection,
		IncludeDataDefault:    c.JSONAPI.IncludeData,
	}
	return cfg, nil
}

// NewStore creates the configured fragment store. It returns nil when
// caching is disabled. Stores returned here must be closed by the caller.
func (c *Config) NewStore(ctx context.Context) (cache.Store, error) {
	if !c.Cache.Enabled {
		return nil, nil
	}

	storeConfig := cache.StoreConfig{DefaultTTL: c.Cache.TTL, Prefix: c.Cache.Prefix}
	switch c.Cache.Store {
	case StoreRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:        c.Cache.Redis.Addr,
			Password:    c.Cache.Redis.Password,
			DB:          c.Cache.Redis.DB,
			StoreConfig: storeConfig,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return cache.NewMemoryStoreWithConfig(storeConfig), nil
	}
}

// NewFragments wraps store in a fragment cache using the configured codec.
// opts are applied after the configured ones.
func (c *Config) NewFragments(store cache.Store, logger *zap.Logger, opts ...cache.FragmentOption) *cache.Fragments {
	if store == nil {
		return nil
	}
	return cache.NewFragments(store, append([]cache.FragmentOption{
		cache.WithLogger(logger),
		cache.WithCodec(cache.NewJSONCodec(c.Cache.Compress)),
	}, opts...)...)
}

// NewLogger builds a zap logger at the configured level
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	zapConfig := zap.NewProductionConfig()
	if c.Log.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level
	return zapConfig.Build()
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := adapter.ParseName(cfg.Adapter); err != nil {
		return fmt.Errorf("adapter: %w", err)
	}
	if cfg.KeyTransform != "" {
		if _, err := adapter.ParseKeyTransform(cfg.KeyTransform); err != nil {
			return fmt.Errorf("key_transform: %w", err)
		}
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got: %d", cfg.MaxDepth)
	}
	if _, err := adapter.ParseResourceTypeInflection(cfg.JSONAPI.ResourceType); err != nil {
		return fmt.Errorf("jsonapi.resource_type: %w", err)
	}

	switch cfg.Cache.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("cache.store must be %q or %q, got: %s", StoreMemory, StoreRedis, cfg.Cache.Store)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}
	if cfg.Cache.Store == StoreRedis && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis store")
	}

	if _, err := zap.ParseAtomicLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
