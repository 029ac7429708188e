package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/proxy"
	"go.uber.org/multierr"
)

// Cache kinds accepted in EngineConfig.CacheKind.
const (
	CacheKindMemory    = "memory"
	CacheKindRistretto = "ristretto"
)

// EngineConfig holds the process-level engine settings.
type EngineConfig struct {
	Workers         int    `env:"CALCGRAPH_WORKERS" envDefault:"4"`
	QueueSize       int    `env:"CALCGRAPH_QUEUE_SIZE" envDefault:"256"`
	Services        string `env:"CALCGRAPH_SERVICES" envDefault:"all"`
	CacheKind       string `env:"CALCGRAPH_CACHE_KIND" envDefault:"memory"`
	CacheMaxEntries int64  `env:"CALCGRAPH_CACHE_MAX_ENTRIES" envDefault:"100000"`
	LogLevel        string `env:"CALCGRAPH_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint    string `env:"CALCGRAPH_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEngineConfig reads and validates the engine settings.
func LoadEngineConfig() (EngineConfig, error) {
	var cfg EngineConfig
	if err := ParseEnv(&cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, cfg.Validate()
}

var ErrInvalidSetting = errors.New("invalid setting")

// Validate reports every out-of-range setting.
func (c EngineConfig) Validate() error {
	var err error
	if _, perr := proxy.ParseServices(c.Services); perr != nil {
		err = multierr.Append(err, fmt.Errorf("services: %w: %w", ErrInvalidSetting, perr))
	}
	if c.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("workers %d: %w", c.Workers, ErrInvalidSetting))
	}
	if c.QueueSize < 0 {
		err = multierr.Append(err, fmt.Errorf("queue size %d: %w", c.QueueSize, ErrInvalidSetting))
	}
	switch strings.ToLower(c.CacheKind) {
	case CacheKindMemory:
	case CacheKindRistretto:
		if c.CacheMaxEntries <= 0 {
			err = multierr.Append(err, fmt.Errorf("ristretto cache needs max entries, got %d: %w", c.CacheMaxEntries, ErrInvalidSetting))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("cache kind %q: %w", c.CacheKind, ErrInvalidSetting))
	}
	return err
}

// ParsedServices returns the decorator services named in Services.
func (c EngineConfig) ParsedServices() (proxy.Services, error) {
	return proxy.ParseServices(c.Services)
}

// CacheProvider returns the cycle cache provider selected by CacheKind.
func (c EngineConfig) CacheProvider() cache.Provider {
	if strings.EqualFold(c.CacheKind, CacheKindRistretto) {
		return cache.RistrettoProvider{MaxEntries: c.CacheMaxEntries}
	}
	return cache.MemoryProvider{MaxEntries: int(c.CacheMaxEntries)}
}
