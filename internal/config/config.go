package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	CORS     CORSConfig
	Extract  ExtractConfig
	Zhipu    ZhipuConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MinerUConfig holds settings for the MinerU online extraction API.
type MinerUConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	Token              string `mapstructure:"token"`
	PollIntervalSecs   int    `mapstructure:"poll_interval_secs"`
	PollTimeoutSecs    int    `mapstructure:"poll_timeout_secs"`
	RequestTimeoutSecs int    `mapstructure:"request_timeout_secs"`
}

// PollInterval returns the poll interval as a duration.
func (c *MinerUConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// PollTimeout returns the batch poll deadline as a duration.
func (c *MinerUConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSecs) * time.Second
}

// ExtractConfig holds extraction backend settings with provider selection.
type ExtractConfig struct {
	Provider string       `mapstructure:"provider"`
	MinerU   MinerUConfig `mapstructure:"mineru"`
}

// ZhipuConfig holds settings for the Zhipu GLM structuring API.
type ZhipuConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSecs    int     `mapstructure:"timeout_secs"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
}

// PipelineConfig holds conversion pipeline settings.
type PipelineConfig struct {
	Concurrency   int   `mapstructure:"concurrency"`
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// Load reads configuration from environment variables with the MEDPARSE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDPARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (Vite dev server origins)
	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://127.0.0.1:5173")

	// Extraction defaults
	v.SetDefault("extract.provider", "mineru")
	v.SetDefault("extract.mineru.base_url", "https://mineru.net/api/v4")
	v.SetDefault("extract.mineru.token", "")
	v.SetDefault("extract.mineru.poll_interval_secs", 5)
	v.SetDefault("extract.mineru.poll_timeout_secs", 300)
	v.SetDefault("extract.mineru.request_timeout_secs", 60)

	// Zhipu defaults
	v.SetDefault("zhipu.api_key", "")
	v.SetDefault("zhipu.base_url", "https://open.bigmodel.cn/api/paas/v4")
	v.SetDefault("zhipu.model", "glm-4-flash")
	v.SetDefault("zhipu.temperature", 0.1)
	v.SetDefault("zhipu.timeout_secs", 120)
	v.SetDefault("zhipu.requests_per_sec", 2)

	// Pipeline defaults
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.max_file_size_mb", 20)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                         "MEDPARSE_SERVER_PORT",
		"server.read_timeout":                 "MEDPARSE_SERVER_READ_TIMEOUT",
		"server.write_timeout":                "MEDPARSE_SERVER_WRITE_TIMEOUT",
		"server.environment":                  "MEDPARSE_SERVER_ENVIRONMENT",
		"log.level":                           "MEDPARSE_LOG_LEVEL",
		"log.format":                          "MEDPARSE_LOG_FORMAT",
		"cors.allowed_origins":                "MEDPARSE_CORS_ALLOWED_ORIGINS",
		"extract.provider":                    "MEDPARSE_EXTRACT_PROVIDER",
		"extract.mineru.base_url":             "MEDPARSE_EXTRACT_MINERU_BASE_URL",
		"extract.mineru.token":                "MEDPARSE_EXTRACT_MINERU_TOKEN",
		"extract.mineru.poll_interval_secs":   "MEDPARSE_EXTRACT_MINERU_POLL_INTERVAL_SECS",
		"extract.mineru.poll_timeout_secs":    "MEDPARSE_EXTRACT_MINERU_POLL_TIMEOUT_SECS",
		"extract.mineru.request_timeout_secs": "MEDPARSE_EXTRACT_MINERU_REQUEST_TIMEOUT_SECS",
		"zhipu.api_key":                       "MEDPARSE_ZHIPU_API_KEY",
		"zhipu.base_url":                      "MEDPARSE_ZHIPU_BASE_URL",
		"zhipu.model":                         "MEDPARSE_ZHIPU_MODEL",
		"zhipu.temperature":                   "MEDPARSE_ZHIPU_TEMPERATURE",
		"zhipu.timeout_secs":                  "MEDPARSE_ZHIPU_TIMEOUT_SECS",
		"zhipu.requests_per_sec":              "MEDPARSE_ZHIPU_REQUESTS_PER_SEC",
		"pipeline.concurrency":                "MEDPARSE_PIPELINE_CONCURRENCY",
		"pipeline.max_file_size_mb":           "MEDPARSE_PIPELINE_MAX_FILE_SIZE_MB",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if MEDPARSE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MEDPARSE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Extract = ExtractConfig{
		Provider: v.GetString("extract.provider"),
		MinerU: MinerUConfig{
			BaseURL:            v.GetString("extract.mineru.base_url"),
			Token:              v.GetString("extract.mineru.token"),
			PollIntervalSecs:   v.GetInt("extract.mineru.poll_interval_secs"),
			PollTimeoutSecs:    v.GetInt("extract.mineru.poll_timeout_secs"),
			RequestTimeoutSecs: v.GetInt("extract.mineru.request_timeout_secs"),
		},
	}

	cfg.Zhipu = ZhipuConfig{
		APIKey:         v.GetString("zhipu.api_key"),
		BaseURL:        v.GetString("zhipu.base_url"),
		Model:          v.GetString("zhipu.model"),
		Temperature:    v.GetFloat64("zhipu.temperature"),
		TimeoutSecs:    v.GetInt("zhipu.timeout_secs"),
		RequestsPerSec: v.GetFloat64("zhipu.requests_per_sec"),
	}

	cfg.Pipeline = PipelineConfig{
		Concurrency:   v.GetInt("pipeline.concurrency"),
		MaxFileSizeMB: v.GetInt64("pipeline.max_file_size_mb"),
	}

	return cfg, nil
}
