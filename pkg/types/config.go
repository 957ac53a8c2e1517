// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig is the sentinel matched by every configuration error.
var ErrConfig = errors.New("invalid configuration")

// ConfigError reports an invalid configuration value. It is fatal and is
// returned before any network activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

// MaxWorkers bounds the worker pool regardless of configuration.
const MaxWorkers = 8

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-attempt network timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// LimiterConfig selects the per-host request spacing backend.
type LimiterConfig struct {
	// RedisAddr enables the Redis-backed limiter when non-empty, so that
	// several processes share host spacing.
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string `json:"-" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty" mapstructure:"redis_db"`

	// KeyPrefix namespaces limiter keys in Redis (default "refverify:host:").
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty" mapstructure:"key_prefix"`
}

// VerifyConfig holds settings for identifier verification and batch runs.
type VerifyConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DelayMin and DelayMax bound the randomized pause between records.
	DelayMin time.Duration `json:"delay_min" yaml:"delay_min" mapstructure:"delay_min"`
	DelayMax time.Duration `json:"delay_max" yaml:"delay_max" mapstructure:"delay_max"`

	// MaxAttempts is the retry budget per candidate URL (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseBackoff is the wait after the first retryable failure; it doubles
	// per attempt up to MaxBackoff.
	BaseBackoff time.Duration `json:"base_backoff" yaml:"base_backoff" mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`

	// Workers is the number of records verified concurrently (1 = sequential).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// HostInterval is the minimum spacing between requests to the same host.
	HostInterval time.Duration `json:"host_interval" yaml:"host_interval" mapstructure:"host_interval"`

	// RecordTimeout bounds the whole verification of one record (0 = none).
	RecordTimeout time.Duration `json:"record_timeout" yaml:"record_timeout" mapstructure:"record_timeout"`

	Limiter LimiterConfig `json:"limiter" yaml:"limiter" mapstructure:"limiter"`
}

// SearchBackend names an alternative-search endpoint.
type SearchBackend string

const (
	BackendCrossref        SearchBackend = "crossref"
	BackendOpenAlex        SearchBackend = "openalex"
	BackendSemanticScholar SearchBackend = "semantic_scholar"
)

// SearchConfig holds settings for the alternative search.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled controls whether INVALID records trigger a search.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	Backend SearchBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Metadata enables the Crossref works lookup that attaches registry
	// metadata to every DOI verdict (default true).
	Metadata bool `json:"metadata" yaml:"metadata" mapstructure:"metadata"`

	// MaxAttempts is the smaller retry budget for the best-effort search (default 2).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// Mailto is sent to Crossref and OpenAlex for polite pool access.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"-" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// DefaultVerifyConfig returns the documented defaults.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		HTTPConfig:    HTTPConfig{Timeout: 10 * time.Second},
		DelayMin:      1 * time.Second,
		DelayMax:      3 * time.Second,
		MaxAttempts:   3,
		BaseBackoff:   1 * time.Second,
		MaxBackoff:    30 * time.Second,
		Workers:       1,
		HostInterval:  1 * time.Second,
		RecordTimeout: 2 * time.Minute,
		Limiter:       LimiterConfig{KeyPrefix: "refverify:host:"},
	}
}

// DefaultSearchConfig returns the documented defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		HTTPConfig:  HTTPConfig{Timeout: 10 * time.Second},
		Enabled:     true,
		Metadata:    true,
		Backend:     BackendCrossref,
		MaxAttempts: 2,
	}
}

// Validate checks the configuration and returns a *ConfigError for the
// first invalid field.
func (c VerifyConfig) Validate() error {
	switch {
	case c.Timeout <= 0:
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	case c.DelayMin < 0 || c.DelayMax < 0:
		return &ConfigError{Field: "delay_min/delay_max", Reason: "must not be negative"}
	case c.DelayMin > c.DelayMax:
		return &ConfigError{Field: "delay_min", Reason: fmt.Sprintf("%v exceeds delay_max %v", c.DelayMin, c.DelayMax)}
	case c.MaxAttempts < 1:
		return &ConfigError{Field: "max_attempts", Reason: "must be at least 1"}
	case c.BaseBackoff < 0 || c.MaxBackoff < 0:
		return &ConfigError{Field: "base_backoff/max_backoff", Reason: "must not be negative"}
	case c.Workers < 1 || c.Workers > MaxWorkers:
		return &ConfigError{Field: "workers", Reason: fmt.Sprintf("must be between 1 and %d", MaxWorkers)}
	case c.HostInterval < 0:
		return &ConfigError{Field: "host_interval", Reason: "must not be negative"}
	case c.RecordTimeout < 0:
		return &ConfigError{Field: "record_timeout", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the search configuration.
func (c SearchConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case BackendCrossref, BackendOpenAlex, BackendSemanticScholar:
	default:
		return &ConfigError{Field: "search_backend", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "search timeout", Reason: "must be positive"}
	}
	if c.MaxAttempts < 1 {
		return &ConfigError{Field: "search_max_attempts", Reason: "must be at least 1"}
	}
	return nil
}
