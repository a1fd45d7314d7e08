// Package config handles loading and validating the echoline configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the echoline daemon.
//
// It is loaded once at startup and handed by value to each client
// constructor; clients never read the environment themselves.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Deepgram   DeepgramConfig   `mapstructure:"deepgram"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Cartesia   CartesiaConfig   `mapstructure:"cartesia"`
	Voices     VoicesConfig     `mapstructure:"voices"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DeepgramConfig holds speech-to-text settings.
type DeepgramConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`

	// SendLanguage forwards the caller's language hint as the "language"
	// query parameter. Off by default: the provider request then carries
	// only model, smart_format and punctuate.
	SendLanguage bool `mapstructure:"send_language"`
}

// GeminiConfig holds language-model settings.
type GeminiConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	SystemStyle string `mapstructure:"system_style"`
}

// CartesiaConfig holds text-to-speech settings.
type CartesiaConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Version    string `mapstructure:"version"`  // Cartesia-Version header
	ModelID    string `mapstructure:"model_id"` // e.g. "sonic-2"
	VoiceID    string `mapstructure:"voice_id"` // default voice; may be empty
	Language   string `mapstructure:"language"`
	BitRate    int    `mapstructure:"bit_rate"`
	SampleRate int    `mapstructure:"sample_rate"`
}

// VoicesConfig controls the voice catalog cache.
type VoicesConfig struct {
	TTL   time.Duration `mapstructure:"ttl"`
	Cache string        `mapstructure:"cache"` // "memory" or "redis"
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the connection settings for the shared voice cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PipelineConfig holds per-turn defaults.
type PipelineConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"` // empty means cartesia.language
	Languages       []string `mapstructure:"languages"`        // offered to the language picker
	PreviewText     string   `mapstructure:"preview_text"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./echoline.yaml, ./configs/echoline.yaml, /etc/echoline/echoline.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("deepgram.base_url", "https://api.deepgram.com")
	v.SetDefault("deepgram.model", "nova-3")
	v.SetDefault("deepgram.send_language", false)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.system_style", "You are a concise, helpful assistant.")
	v.SetDefault("cartesia.base_url", "https://api.cartesia.ai")
	v.SetDefault("cartesia.version", "2025-04-16")
	v.SetDefault("cartesia.model_id", "sonic-2")
	v.SetDefault("cartesia.voice_id", "")
	v.SetDefault("cartesia.language", "en")
	v.SetDefault("cartesia.bit_rate", 128000)
	v.SetDefault("cartesia.sample_rate", 44100)
	v.SetDefault("voices.ttl", "10m")
	v.SetDefault("voices.cache", "memory")
	v.SetDefault("voices.redis.addr", "localhost:6379")
	v.SetDefault("voices.redis.username", "")
	v.SetDefault("voices.redis.password", "")
	v.SetDefault("voices.redis.db", 0)
	v.SetDefault("pipeline.default_language", "") // falls back to cartesia.language
	v.SetDefault("pipeline.languages", []string{"en", "es", "hi", "fr", "de"})
	v.SetDefault("pipeline.preview_text", "Hi! This is a quick voice check.")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("echoline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/echoline")
	}

	// Environment variables: ECHOLINE_TRANSPORTS_HTTP_PORT, ECHOLINE_VOICES_TTL, etc.
	v.SetEnvPrefix("ECHOLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The provider SDKs' conventional variable names are honoured as well.
	for key, names := range providerEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Deepgram.APIKey = resolveEnvRef(cfg.Deepgram.APIKey)
	cfg.Gemini.APIKey = resolveEnvRef(cfg.Gemini.APIKey)
	cfg.Cartesia.APIKey = resolveEnvRef(cfg.Cartesia.APIKey)
	cfg.Voices.Redis.Password = resolveEnvRef(cfg.Voices.Redis.Password)

	if cfg.Pipeline.DefaultLanguage == "" {
		cfg.Pipeline.DefaultLanguage = cfg.Cartesia.Language
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// providerEnv maps config keys to extra environment variable names, checked
// in order. The ECHOLINE_-prefixed name always comes first.
var providerEnv = map[string][]string{
	"deepgram.api_key":  {"ECHOLINE_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY"},
	"gemini.api_key":    {"ECHOLINE_GEMINI_API_KEY", "GEMINI_API_KEY"},
	"gemini.model":      {"ECHOLINE_GEMINI_MODEL", "GEMINI_MODEL"},
	"cartesia.api_key":  {"ECHOLINE_CARTESIA_API_KEY", "CARTESIA_API_KEY"},
	"cartesia.version":  {"ECHOLINE_CARTESIA_VERSION", "CARTESIA_VERSION"},
	"cartesia.model_id": {"ECHOLINE_CARTESIA_MODEL_ID", "CARTESIA_MODEL_ID"},
	"cartesia.voice_id": {"ECHOLINE_CARTESIA_VOICE_ID", "CARTESIA_VOICE_ID"},
	"cartesia.language": {"ECHOLINE_CARTESIA_LANGUAGE", "CARTESIA_LANGUAGE"},
}

// Validate checks structural settings. Missing credentials are not checked:
// each client reports its own at point of use.
func (c *Config) Validate() error {
	if c.Voices.TTL <= 0 {
		return fmt.Errorf("voices.ttl must be positive, got %s", c.Voices.TTL)
	}
	switch c.Voices.Cache {
	case "memory", "redis":
	default:
		return fmt.Errorf("voices.cache must be \"memory\" or \"redis\", got %q", c.Voices.Cache)
	}
	if c.Cartesia.BitRate <= 0 || c.Cartesia.SampleRate <= 0 {
		return fmt.Errorf("cartesia bit_rate and sample_rate must be positive")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(slog.New(NewLogHandler(cfg, os.Stdout)))
}

// NewLogHandler builds the slog handler described by cfg, writing to w.
func NewLogHandler(cfg LoggingConfig, w io.Writer) slog.Handler {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
