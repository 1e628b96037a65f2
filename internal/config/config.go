package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	PredictionAPIURL  string        `mapstructure:"PREDICTION_API_URL"`
	PredictionTimeout time.Duration `mapstructure:"PREDICTION_TIMEOUT"`
	MeasurementSchema string        `mapstructure:"MEASUREMENT_SCHEMA"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SessionCapacity   int64         `mapstructure:"SESSION_CAPACITY"`
	StatsdAddr        string        `mapstructure:"STATSD_ADDR"`
	StatsdNamespace   string        `mapstructure:"STATSD_NAMESPACE"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("PREDICTION_API_URL", "http://localhost:8000/api")
	v.SetDefault("PREDICTION_TIMEOUT", "10s")
	v.SetDefault("MEASUREMENT_SCHEMA", "hemoglobin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_CAPACITY", 10000)
	v.SetDefault("STATSD_NAMESPACE", "nutripredict")
	v.SetDefault("BODY_LIMIT", "64K")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("PREDICTION_API_URL")
	v.BindEnv("PREDICTION_TIMEOUT")
	v.BindEnv("MEASUREMENT_SCHEMA")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SESSION_TTL")
	v.BindEnv("SESSION_CAPACITY")
	v.BindEnv("STATSD_ADDR")
	v.BindEnv("STATSD_NAMESPACE")
	v.BindEnv("BODY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is usable before anything is
// started. The measurement schema itself is resolved by the nutrition
// package; here it only has to be one of the two known names.
func (c *Config) Validate() error {
	u, err := url.Parse(c.PredictionAPIURL)
	if err != nil {
		return fmt.Errorf("PREDICTION_API_URL is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PREDICTION_API_URL must be an absolute http(s) URL, got %q", c.PredictionAPIURL)
	}
	if c.PredictionTimeout <= 0 {
		return fmt.Errorf("PREDICTION_TIMEOUT must be positive, got %s", c.PredictionTimeout)
	}

	switch strings.ToLower(strings.TrimSpace(c.MeasurementSchema)) {
	case "hemoglobin", "arm_circumference":
	default:
		return fmt.Errorf("MEASUREMENT_SCHEMA must be \"hemoglobin\" or \"arm_circumference\", got %q", c.MeasurementSchema)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("SESSION_CAPACITY must be positive, got %d", c.SessionCapacity)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}
