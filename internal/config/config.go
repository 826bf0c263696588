package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Chroma   ChromaConfig   `yaml:"chroma" mapstructure:"chroma"`
	Attio    AttioConfig    `yaml:"attio" mapstructure:"attio"`
	HubSpot  HubSpotConfig  `yaml:"hubspot" mapstructure:"hubspot"`
	Slack    SlackConfig    `yaml:"slack" mapstructure:"slack"`
	FindAll  FindAllConfig  `yaml:"findall" mapstructure:"findall"`
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	Scorer   ScorerConfig   `yaml:"scorer" mapstructure:"scorer"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ChromaConfig configures the Chroma vector store.
type ChromaConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Tenant     string `yaml:"tenant" mapstructure:"tenant"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
}

// AttioConfig holds Attio API credentials and target ids.
type AttioConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	ListID    string  `yaml:"list_id" mapstructure:"list_id"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// HubSpotConfig holds HubSpot API credentials.
type HubSpotConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SlackConfig holds the incoming-webhook URL for lead notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// FindAllConfig configures the entity-discovery API.
type FindAllConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	PollTimeout int    `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
}

// GoogleConfig holds OAuth settings for Gmail and the YouTube Data API key.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
	YouTubeAPIKey   string `yaml:"youtube_api_key" mapstructure:"youtube_api_key"`
}

// FilterConfig overrides the embedded block-lists.
type FilterConfig struct {
	Match            string   `yaml:"match" mapstructure:"match"`           // substring | token
	ListsFile        string   `yaml:"lists_file" mapstructure:"lists_file"` // YAML file replacing the embedded lists
	ExtraCompetitors []string `yaml:"extra_competitors" mapstructure:"extra_competitors"`
	ExtraEnterprises []string `yaml:"extra_enterprises" mapstructure:"extra_enterprises"`
	Competitors      []string `yaml:"competitors" mapstructure:"competitors"` // full replacement when set
	Enterprises      []string `yaml:"enterprises" mapstructure:"enterprises"`
}

// ScorerConfig holds ICP scoring knobs (0-100 scale).
type ScorerConfig struct {
	CompetitorBonus int `yaml:"competitor_bonus" mapstructure:"competitor_bonus"`
}

// PipelineConfig configures driver behavior.
type PipelineConfig struct {
	RateIntervalMS int    `yaml:"rate_interval_ms" mapstructure:"rate_interval_ms"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	OnConflict     string `yaml:"on_conflict" mapstructure:"on_conflict"` // skip | merge
	CacheDir       string `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// RateInterval returns the fixed delay between driver iterations.
func (p PipelineConfig) RateInterval() time.Duration {
	return time.Duration(p.RateIntervalMS) * time.Millisecond
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GTM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gtm.db")
	v.SetDefault("chroma.base_url", "http://localhost:8000")
	v.SetDefault("chroma.tenant", "default_tenant")
	v.SetDefault("chroma.database", "default_database")
	v.SetDefault("chroma.collection", "gtm_leads")
	v.SetDefault("attio.rate_limit", 4)
	v.SetDefault("hubspot.rate_limit", 4)
	v.SetDefault("findall.base_url", "https://api.parallel.ai")
	v.SetDefault("findall.poll_timeout_secs", 600)
	v.SetDefault("google.credentials_file", "credentials.json")
	v.SetDefault("google.token_file", "token.json")
	v.SetDefault("filter.match", "substring")
	v.SetDefault("scorer.competitor_bonus", 20)
	v.SetDefault("pipeline.rate_interval_ms", 500)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.on_conflict", "skip")
	v.SetDefault("pipeline.cache_dir", ".gtm-cache")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
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
