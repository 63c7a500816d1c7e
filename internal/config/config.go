// Package config loads service configuration from defaults, an optional
// config file and the environment.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Addr      string `mapstructure:"ADDR"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	DataDir   string `mapstructure:"DATA_DIR"`
	StaticDir string `mapstructure:"STATIC_DIR"`

	// Slot template.
	TimeZone            string `mapstructure:"TIME_ZONE"`
	WorkingHours        string `mapstructure:"WORKING_HOURS"`
	SlotDurationMin     int    `mapstructure:"SLOT_DURATION_MIN"`
	DefaultBookingTitle string `mapstructure:"DEFAULT_BOOKING_TITLE"`

	// Dialogue sessions.
	SessionStore   string        `mapstructure:"SESSION_STORE"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	ConfirmTimeout time.Duration `mapstructure:"CONFIRM_TIMEOUT"`
	ExpirySweep    string        `mapstructure:"EXPIRY_SWEEP"`

	// Remote calendar.
	CalendarAPIURL  string        `mapstructure:"CALENDAR_API_URL"`
	CalendarID      string        `mapstructure:"CALENDAR_ID"`
	CalendarTimeout time.Duration `mapstructure:"CALENDAR_TIMEOUT"`

	RateLimitPerMin int `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurst  int `mapstructure:"RATE_LIMIT_BURST"`
	// TrustProxy keys rate limits on X-Forwarded-For; only safe behind a
	// proxy that sets it.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`
}

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Load reads configuration. path may name a config file; when empty, a file
// called config.yaml is looked up in the working directory and ./config.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; the environment and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8099")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", "/data")
	v.SetDefault("STATIC_DIR", "./static")

	v.SetDefault("TIME_ZONE", "Local")
	v.SetDefault("WORKING_HOURS", "9,10,11,13,14,15,16,17")
	v.SetDefault("SLOT_DURATION_MIN", 60)
	v.SetDefault("DEFAULT_BOOKING_TITLE", "Meeting")

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("CONFIRM_TIMEOUT", "10m")
	v.SetDefault("EXPIRY_SWEEP", "@every 1m")

	v.SetDefault("CALENDAR_API_URL", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIMEOUT", "10s")

	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("TRUST_PROXY", false)
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if _, err := c.Hours(); err != nil {
		return err
	}
	if c.SlotDurationMin <= 0 {
		return fmt.Errorf("SLOT_DURATION_MIN must be positive, got %d", c.SlotDurationMin)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT must be positive, got %s", c.ConfirmTimeout)
	}
	return nil
}

// Hours parses WORKING_HOURS into a strictly increasing list of hours.
func (c Config) Hours() ([]int, error) {
	parts := strings.Split(c.WorkingHours, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		h, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKING_HOURS entry %q: %w", p, err)
		}
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("WORKING_HOURS entry %d out of range", h)
		}
		hours = append(hours, h)
	}
	if len(hours) == 0 {
		return nil, fmt.Errorf("WORKING_HOURS is empty")
	}
	if !sort.IntsAreSorted(hours) {
		return nil, fmt.Errorf("WORKING_HOURS must be ascending: %q", c.WorkingHours)
	}
	for i := 1; i < len(hours); i++ {
		if hours[i] == hours[i-1] {
			return nil, fmt.Errorf("WORKING_HOURS contains duplicate hour %d", hours[i])
		}
	}
	return hours, nil
}

// Location resolves TIME_ZONE.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
