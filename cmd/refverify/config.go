// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/refverify/pkg/types"
)

// envKeyReplacer maps nested keys such as limiter.redis_addr to
// REFVERIFY_LIMITER_REDIS_ADDR.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// settings is the resolved configuration for one command run.
type settings struct {
	Verify      types.VerifyConfig
	Search      types.SearchConfig
	Archive     string
	MetricsAddr string
}

// flagKeys binds persistent flags to configuration keys.
var flagKeys = map[string]string{
	"timeout":             "timeout",
	"delay-min":           "delay_min",
	"delay-max":           "delay_max",
	"max-attempts":        "max_attempts",
	"base-backoff":        "base_backoff",
	"max-backoff":         "max_backoff",
	"workers":             "workers",
	"host-interval":       "host_interval",
	"record-timeout":      "record_timeout",
	"search-backend":      "search_backend",
	"search-max-attempts": "search_max_attempts",
	"search-alternatives": "search_alternatives",
	"crossref-metadata":   "crossref_metadata",
	"mailto":              "mailto",
	"redis-addr":          "limiter.redis_addr",
	"archive":             "archive",
	"metrics-addr":        "metrics_addr",
}

func addSettingsFlags(cmd *cobra.Command) {
	d := types.DefaultVerifyConfig()
	s := types.DefaultSearchConfig()

	pf := cmd.PersistentFlags()
	pf.Duration("timeout", d.Timeout, "per-attempt network timeout")
	pf.Duration("delay-min", d.DelayMin, "minimum pause between records")
	pf.Duration("delay-max", d.DelayMax, "maximum pause between records")
	pf.Int("max-attempts", d.MaxAttempts, "attempts per resolver URL")
	pf.Duration("base-backoff", d.BaseBackoff, "wait after the first retryable failure")
	pf.Duration("max-backoff", d.MaxBackoff, "cap on a single backoff wait")
	pf.Int("workers", d.Workers, fmt.Sprintf("records verified concurrently (1-%d)", types.MaxWorkers))
	pf.Duration("host-interval", d.HostInterval, "minimum spacing between requests to one host")
	pf.Duration("record-timeout", d.RecordTimeout, "deadline for verifying one record (0 = none)")
	pf.String("search-backend", string(s.Backend), "alternative search backend: crossref, openalex, semantic_scholar")
	pf.Int("search-max-attempts", s.MaxAttempts, "attempts for one alternative search")
	pf.Bool("search-alternatives", s.Enabled, "search for replacements of invalid references")
	pf.Bool("crossref-metadata", s.Metadata, "attach Crossref metadata to every DOI in the report")
	pf.String("mailto", "", "contact email for the Crossref and OpenAlex polite pools")
	pf.String("redis-addr", "", "Redis address for host spacing shared across processes")
	pf.String("archive", "", "SQLite file that records every run (empty = off)")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address (empty = off)")

	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func setDefaults(v *viper.Viper) {
	d := types.DefaultVerifyConfig()
	s := types.DefaultSearchConfig()
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("delay_min", d.DelayMin)
	v.SetDefault("delay_max", d.DelayMax)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("base_backoff", d.BaseBackoff)
	v.SetDefault("max_backoff", d.MaxBackoff)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("host_interval", d.HostInterval)
	v.SetDefault("record_timeout", d.RecordTimeout)
	v.SetDefault("limiter.key_prefix", d.Limiter.KeyPrefix)
	v.SetDefault("search_backend", string(s.Backend))
	v.SetDefault("search_max_attempts", s.MaxAttempts)
	v.SetDefault("search_alternatives", s.Enabled)
	v.SetDefault("crossref_metadata", s.Metadata)
}

// loadSettings resolves configuration from v, lets fill supply search
// credentials the configuration left empty, and validates the result.
func loadSettings(v *viper.Viper, fill func(*types.SearchConfig)) (settings, error) {
	var st settings
	var err error

	vc := types.DefaultVerifyConfig()
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"timeout", &vc.Timeout},
		{"delay_min", &vc.DelayMin},
		{"delay_max", &vc.DelayMax},
		{"base_backoff", &vc.BaseBackoff},
		{"max_backoff", &vc.MaxBackoff},
		{"host_interval", &vc.HostInterval},
		{"record_timeout", &vc.RecordTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationSetting(v, d.key); err != nil {
			return st, err
		}
	}
	vc.MaxAttempts = v.GetInt("max_attempts")
	vc.Workers = v.GetInt("workers")
	vc.Limiter = types.LimiterConfig{
		RedisAddr:     v.GetString("limiter.redis_addr"),
		RedisPassword: v.GetString("limiter.redis_password"),
		RedisDB:       v.GetInt("limiter.redis_db"),
		KeyPrefix:     v.GetString("limiter.key_prefix"),
	}
	if err := vc.Validate(); err != nil {
		return st, err
	}

	sc := types.DefaultSearchConfig()
	sc.Timeout = vc.Timeout
	sc.Enabled = v.GetBool("search_alternatives")
	sc.Metadata = v.GetBool("crossref_metadata")
	sc.Backend = types.SearchBackend(strings.ToLower(v.GetString("search_backend")))
	sc.MaxAttempts = v.GetInt("search_max_attempts")
	sc.Mailto = v.GetString("mailto")
	sc.SemanticScholarAPIKey = v.GetString("semantic_scholar_api_key")
	if fill != nil {
		fill(&sc)
	}
	if err := sc.Validate(); err != nil {
		return st, err
	}

	st.Verify = vc
	st.Search = sc
	st.Archive = v.GetString("archive")
	st.MetricsAddr = v.GetString("metrics_addr")
	return st, nil
}

// durationSetting reads key as a duration. Go duration strings are parsed
// as such and bare numbers are seconds. A key_seconds alias, when set,
// takes precedence.
func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	if alias := key + "_seconds"; v.IsSet(alias) {
		return secondsValue(alias, v.Get(alias))
	}
	raw := v.Get(key)
	switch val := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return val, nil
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d, nil
		}
		return secondsValue(key, val)
	default:
		return secondsValue(key, raw)
	}
}

func secondsValue(key string, raw any) (time.Duration, error) {
	var secs float64
	switch val := raw.(type) {
	case int:
		secs = float64(val)
	case int64:
		secs = float64(val)
	case float64:
		secs = val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, &types.ConfigError{Field: key, Reason: fmt.Sprintf("cannot parse %q as a duration", val)}
		}
		secs = f
	default:
		return 0, &types.ConfigError{Field: key, Reason: fmt.Sprintf("unsupported value %v", raw)}
	}
	return time.Duration(secs * float64(time.Second)), nil
}
