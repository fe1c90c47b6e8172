// Package config loads settings from flags, the environment and an optional
// .env file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	APIKey         string
	Model          string
	Temperature    float32
	Addr           string
	MaxUploadMB    int64
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	UploadDir      string
	LogLevel       string
	LogFormat      string
}

const (
	KeyAPIKey         = "api_key"
	KeyModel          = "model"
	KeyTemperature    = "temperature"
	KeyAddr           = "addr"
	KeyMaxUploadMB    = "max_upload_mb"
	KeyRequestTimeout = "request_timeout"
	KeySessionTTL     = "session_ttl"
	KeyUploadDir      = "upload_dir"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// New returns a viper instance with defaults and environment bindings.
// Every key is also read from SCHOLARREFINE_<KEY>; the API key additionally
// from API_KEY, GEMINI_API_KEY and GOOGLE_API_KEY.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyModel, "gemini-2.5-flash")
	v.SetDefault(KeyTemperature, 0.1)
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyMaxUploadMB, 50)
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeySessionTTL, 2*time.Hour)
	v.SetDefault(KeyUploadDir, filepath.Join(os.TempDir(), "scholarrefine"))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix("SCHOLARREFINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindEnv(KeyAPIKey, "SCHOLARREFINE_API_KEY", "API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	return v
}

// BindFlags lets command-line flags override env and defaults. Flag names
// use dashes; keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		err = v.BindPFlag(key, f)
	})
	return err
}

// LoadDotEnv loads .env files if present; a missing file is not an error.
func LoadDotEnv(files ...string) error {
	var existing []string
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads the resolved configuration out of v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIKey:         strings.TrimSpace(v.GetString(KeyAPIKey)),
		Model:          v.GetString(KeyModel),
		Temperature:    float32(v.GetFloat64(KeyTemperature)),
		Addr:           v.GetString(KeyAddr),
		MaxUploadMB:    v.GetInt64(KeyMaxUploadMB),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		SessionTTL:     v.GetDuration(KeySessionTTL),
		UploadDir:      v.GetString(KeyUploadDir),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:      strings.ToLower(v.GetString(KeyLogFormat)),
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", KeyMaxUploadMB, cfg.MaxUploadMB)
	}
	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyRequestTimeout)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("%s must be within [0, 2], got %v", KeyTemperature, cfg.Temperature)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, cfg.LogFormat)
	}
	return cfg, nil
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return l, nil
}
