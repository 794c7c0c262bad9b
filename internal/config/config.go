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
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Match         MatchConfig         `yaml:"match" mapstructure:"match"`
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI        OpenAIConfig        `yaml:"openai" mapstructure:"openai"`
	Systembolaget SystembolagetConfig `yaml:"systembolaget" mapstructure:"systembolaget"`
	Vivino        VivinoConfig        `yaml:"vivino" mapstructure:"vivino"`
	Telegram      TelegramConfig      `yaml:"telegram" mapstructure:"telegram"`
	Site          SiteConfig          `yaml:"site" mapstructure:"site"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend. Driver is one of
// "json", "sqlite", "postgres".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MatchConfig holds the matching engine tunables. The numeric bands are
// production defaults and deliberately overridable.
type MatchConfig struct {
	Threshold       float64 `yaml:"threshold" mapstructure:"threshold"`
	ExactBand       float64 `yaml:"exact_band" mapstructure:"exact_band"`
	PartialBand     float64 `yaml:"partial_band" mapstructure:"partial_band"`
	FuzzyBand       float64 `yaml:"fuzzy_band" mapstructure:"fuzzy_band"`
	UncertainFloor  float64 `yaml:"uncertain_floor" mapstructure:"uncertain_floor"`
	VintagePenalty  float64 `yaml:"vintage_penalty" mapstructure:"vintage_penalty"`
	TokenWeight     float64 `yaml:"token_weight" mapstructure:"token_weight"`
	TopCandidates   int     `yaml:"top_candidates" mapstructure:"top_candidates"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
	AITimeoutSecs   int     `yaml:"ai_timeout_secs" mapstructure:"ai_timeout_secs"`
	PrefilterByWine bool    `yaml:"prefilter_by_wine" mapstructure:"prefilter_by_wine"`
}

// AITimeout returns the per-call adjudication timeout.
func (m MatchConfig) AITimeout() time.Duration {
	return time.Duration(m.AITimeoutSecs) * time.Second
}

// AnthropicConfig holds the primary AI backend settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds the secondary AI backend settings, used as an
// automatic retry target when the primary backend fails.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SystembolagetConfig holds the retailer catalog API settings.
type SystembolagetConfig struct {
	SubscriptionKey string  `yaml:"subscription_key" mapstructure:"subscription_key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec      float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	PageSize        int     `yaml:"page_size" mapstructure:"page_size"`
}

// VivinoConfig holds the toplist scraper settings.
type VivinoConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ToplistsFile string  `yaml:"toplists_file" mapstructure:"toplists_file"`
}

// TelegramConfig holds notification settings. Empty token or chat id
// disables notifications without failing runs.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
	SiteURL  string `yaml:"site_url" mapstructure:"site_url"`
}

// SiteConfig configures static site generation.
type SiteConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Title     string `yaml:"title" mapstructure:"title"`
}

// ServerConfig configures the read-only query API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("BESTWINES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.data_dir", "data")
	// Secrets default to empty so AutomaticEnv sees the keys during Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("systembolaget.subscription_key", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("match.threshold", 70.0)
	v.SetDefault("match.exact_band", 95.0)
	v.SetDefault("match.partial_band", 80.0)
	v.SetDefault("match.fuzzy_band", 60.0)
	v.SetDefault("match.uncertain_floor", 40.0)
	v.SetDefault("match.vintage_penalty", 15.0)
	v.SetDefault("match.token_weight", 0.6)
	v.SetDefault("match.top_candidates", 8)
	v.SetDefault("match.workers", 4)
	v.SetDefault("match.ai_timeout_secs", 30)
	v.SetDefault("match.prefilter_by_wine", true)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("systembolaget.base_url", "https://api-extern.systembolaget.se/sb-api-ecommerce/v1")
	v.SetDefault("systembolaget.rate_per_sec", 3.0)
	v.SetDefault("systembolaget.page_size", 30)
	v.SetDefault("vivino.base_url", "https://www.vivino.com")
	v.SetDefault("vivino.rate_per_sec", 1.0)
	v.SetDefault("vivino.toplists_file", "toplists.yaml")
	v.SetDefault("telegram.site_url", "https://wines.tokyo3.eu")
	v.SetDefault("site.output_dir", "public")
	v.SetDefault("site.title", "Best Wines Sweden")

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
