package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the analysis system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig describes the generative text provider used by agents and
// the plan generator.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, stub
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AgentsConfig contains tunables shared by all analysis agents
type AgentsConfig struct {
	MaxConcurrentRuns int `mapstructure:"max_concurrent_runs"`
	MaxInsights       int `mapstructure:"max_insights"`
	MinInsightLength  int `mapstructure:"min_insight_length"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// RateLimitConfig controls the API-level request window. The counters are
// process-wide (or redis-backed) and live entirely in the server layer.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Requests      int           `mapstructure:"requests"`
	Window        time.Duration `mapstructure:"window"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// LoadConfig reads configuration from file and environment (SITESCOPE_*)
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.max_processing_time", 5*time.Minute)
	viper.SetDefault("general.default_timeout", 60*time.Second)
	viper.SetDefault("server.address", ":10030")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_retries", 1)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("agents.max_concurrent_runs", 4)
	viper.SetDefault("agents.max_insights", 12)
	viper.SetDefault("agents.min_insight_length", 10)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.namespace", "sitescope")
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 30)
	viper.SetDefault("rate_limit.window", time.Minute)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SITESCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: error reading config file: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	return &config
}
