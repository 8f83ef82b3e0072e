package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Scraper     ScraperConfig
	Marketplace MarketplaceConfig
	RateLimit   RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig controls the global zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// ScraperConfig holds the outbound fetch policy and extraction tuning
type ScraperConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRedirects    int           `mapstructure:"max_redirects"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	UserAgent       string        `mapstructure:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"`
	HeadingKeywords []string      `mapstructure:"heading_keywords"`
}

// MarketplaceConfig describes the marketplace that gets site-specific extraction
type MarketplaceConfig struct {
	SiteName        string   `mapstructure:"site_name"`
	Domain          string   `mapstructure:"domain"`
	AlternateHosts  []string `mapstructure:"alternate_hosts"`
	ShortLinkHosts  []string `mapstructure:"short_link_hosts"`
	CountrySuffixes []string `mapstructure:"country_suffixes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP   int           `mapstructure:"per_ip"` // requests per minute, 0 disables
	Burst   int           `mapstructure:"burst"`
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

// DefaultUserAgent is a current desktop Chrome signature
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultHeadingKeywords are matched against section headings to find feature lists
var DefaultHeadingKeywords = []string{
	"specifications", "features", "highlights", "attributes",
	"المواصفات", "الميزات", "المميزات", "أبرز", "الخصائص", "السمات",
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tallaby/")

	v.SetEnvPrefix("TALLABY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := validate(&config); err != nil {
		return nil, eris.Wrap(err, "config: invalid")
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Scraper defaults
	v.SetDefault("scraper.timeout", "15s")
	v.SetDefault("scraper.max_redirects", 10)
	v.SetDefault("scraper.max_body_bytes", 5<<20)
	v.SetDefault("scraper.user_agent", DefaultUserAgent)
	v.SetDefault("scraper.accept_language", "en-US,en;q=0.9,ar;q=0.8")
	v.SetDefault("scraper.heading_keywords", DefaultHeadingKeywords)

	// Marketplace defaults
	v.SetDefault("marketplace.site_name", "Amazon")
	v.SetDefault("marketplace.domain", "amazon.com")
	v.SetDefault("marketplace.alternate_hosts", []string{
		"amazon.ae", "www.amazon.ae",
		"amazon.sa", "www.amazon.sa",
		"amazon.eg", "www.amazon.eg",
	})
	v.SetDefault("marketplace.short_link_hosts", []string{"amzn.to", "amzn.eu", "a.co"})
	v.SetDefault("marketplace.country_suffixes", []string{".ae", ".sa", ".eg", ".com"})

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 30)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("ratelimit.idle_ttl", "10m")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Log.Format != "json" && config.Log.Format != "console" {
		return eris.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}
	if config.Scraper.Timeout <= 0 {
		return eris.New("scraper timeout must be positive")
	}
	if config.Scraper.MaxRedirects < 0 {
		return eris.Errorf("scraper max_redirects must not be negative, got: %d", config.Scraper.MaxRedirects)
	}
	if config.Scraper.MaxBodyBytes <= 0 {
		return eris.New("scraper max_body_bytes must be positive")
	}
	if config.Marketplace.Domain == "" {
		return eris.New("marketplace domain is required (set TALLABY_MARKETPLACE_DOMAIN)")
	}
	if config.RateLimit.PerIP < 0 {
		return eris.Errorf("ratelimit per_ip must not be negative, got: %d", config.RateLimit.PerIP)
	}
	if config.RateLimit.PerIP > 0 && config.RateLimit.Burst <= 0 {
		return eris.New("ratelimit burst must be positive when rate limiting is enabled")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
