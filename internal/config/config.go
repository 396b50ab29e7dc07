// Package config loads service settings from flags, the environment and an
// optional .env file.
package config

import (
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ANISTREAM_ADDR.
const EnvPrefix = "ANISTREAM"

// EnvKeyReplacer maps configuration keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Default holds the factory value of every key.
var Default = map[string]any{
	"addr":                ":8080",
	"debug":               false,
	"public_base_url":     "",
	"search_timeout":      5 * time.Second,
	"search_limit":        40,
	"resolve_deadline":    45 * time.Second,
	"upstream_timeout":    15 * time.Second,
	"metadata_source":     "anilist",
	"metadata_rps":        1.5,
	"title_cache_size":    512,
	"title_cache_ttl":     6 * time.Hour,
	"tls_fingerprint":     false,
	"proxy_allow_private": false,
	"allanime_api":        "",
	"hianime_base":        "",
	"aniwatch_base":       "",
	"anikai_base":         "",
}

// Config is the resolved service configuration.
type Config struct {
	Addr          string
	Debug         bool
	PublicBaseURL string

	SearchTimeout   time.Duration
	SearchLimit     int
	ResolveDeadline time.Duration
	UpstreamTimeout time.Duration

	MetadataSource string
	MetadataRPS    float64
	TitleCacheSize int
	TitleCacheTTL  time.Duration

	TLSFingerprint    bool
	ProxyAllowPrivate bool

	// Mirror overrides; empty selects the public default.
	AllAnimeAPI  string
	HiAnimeBase  string
	AniWatchBase string
	AnikaiBase   string
}

// Load reads .env files (the default ".env" when none are given; missing
// files are skipped), then resolves every key from flags, environment and
// defaults, in that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "loading %s", file)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()
	for key, value := range Default {
		v.SetDefault(key, value)
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := Default[key]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, errors.Wrap(bindErr, "binding flags")
		}
	}

	cfg := &Config{
		Addr:              v.GetString("addr"),
		Debug:             v.GetBool("debug"),
		PublicBaseURL:     strings.TrimSuffix(v.GetString("public_base_url"), "/"),
		SearchTimeout:     v.GetDuration("search_timeout"),
		SearchLimit:       v.GetInt("search_limit"),
		ResolveDeadline:   v.GetDuration("resolve_deadline"),
		UpstreamTimeout:   v.GetDuration("upstream_timeout"),
		MetadataSource:    strings.ToLower(v.GetString("metadata_source")),
		MetadataRPS:       v.GetFloat64("metadata_rps"),
		TitleCacheSize:    v.GetInt("title_cache_size"),
		TitleCacheTTL:     v.GetDuration("title_cache_ttl"),
		TLSFingerprint:    v.GetBool("tls_fingerprint"),
		ProxyAllowPrivate: v.GetBool("proxy_allow_private"),
		AllAnimeAPI:       v.GetString("allanime_api"),
		HiAnimeBase:       v.GetString("hianime_base"),
		AniWatchBase:      v.GetString("aniwatch_base"),
		AnikaiBase:        v.GetString("anikai_base"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.MetadataSource {
	case "anilist", "jikan", "mal":
	default:
		return errors.Errorf("metadata_source must be anilist or jikan, got %q", c.MetadataSource)
	}
	if c.SearchTimeout <= 0 || c.ResolveDeadline <= 0 || c.UpstreamTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.SearchLimit <= 0 {
		return errors.Errorf("search_limit must be positive, got %d", c.SearchLimit)
	}
	if c.TitleCacheSize <= 0 || c.TitleCacheTTL <= 0 {
		return errors.New("title cache size and ttl must be positive")
	}
	if c.MetadataRPS < 0 {
		return errors.Errorf("metadata_rps must not be negative, got %v", c.MetadataRPS)
	}
	return nil
}
