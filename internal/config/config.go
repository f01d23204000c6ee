package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	JWTTTLHours    int      `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Clinic-wide defaults for slot generation; individual doctors can
	// override them through their weekly schedules.
	ClinicOpenHour  int `mapstructure:"CLINIC_OPEN_HOUR"`
	ClinicCloseHour int `mapstructure:"CLINIC_CLOSE_HOUR"`
	SlotMinutes     int `mapstructure:"SLOT_MINUTES"`

	PaymentAPIURL string `mapstructure:"PAYMENT_API_URL"`
	PaymentAPIKey string `mapstructure:"PAYMENT_API_KEY"`
	SMSAPIURL     string `mapstructure:"SMS_API_URL"`
	SMSAPIKey     string `mapstructure:"SMS_API_KEY"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CLINIC_OPEN_HOUR", 9)
	v.SetDefault("CLINIC_CLOSE_HOUR", 17)
	v.SetDefault("SLOT_MINUTES", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("CLINIC_OPEN_HOUR")
	v.BindEnv("CLINIC_CLOSE_HOUR")
	v.BindEnv("SLOT_MINUTES")
	v.BindEnv("PAYMENT_API_URL")
	v.BindEnv("PAYMENT_API_KEY")
	v.BindEnv("SMS_API_URL")
	v.BindEnv("SMS_API_KEY")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
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

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be configured so tokens cannot be forged, and the clinic
// hours must describe a non-empty day that the slot step divides evenly.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q. Refusing to start without a signing secret", c.Env)
	}
	if c.ClinicOpenHour < 0 || c.ClinicCloseHour > 24 || c.ClinicOpenHour >= c.ClinicCloseHour {
		return fmt.Errorf("invalid clinic hours: open=%d close=%d", c.ClinicOpenHour, c.ClinicCloseHour)
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 24*60 {
		return fmt.Errorf("SLOT_MINUTES must be between 1 and 1440, got %d", c.SlotMinutes)
	}
	if ((c.ClinicCloseHour-c.ClinicOpenHour)*60)%c.SlotMinutes != 0 {
		return fmt.Errorf("SLOT_MINUTES=%d does not evenly divide clinic hours %d:00-%d:00",
			c.SlotMinutes, c.ClinicOpenHour, c.ClinicCloseHour)
	}
	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive, got %d", c.JWTTTLHours)
	}
	return nil
}
