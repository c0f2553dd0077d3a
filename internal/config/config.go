package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// BackendType identifies which object backend holds the polygon table.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendGCS    BackendType = "gcs"
	BackendSQL    BackendType = "sql"
)

// SessionType identifies where workflow state is kept between requests.
type SessionType string

const (
	SessionMemory SessionType = "memory"
	SessionRedis  SessionType = "redis"
)

var (
	ErrUnknownBackend     = errors.New("unknown store backend")
	ErrMissingBucket      = errors.New("STORE_BUCKET is required for the gcs backend")
	ErrMissingObjectKey   = errors.New("STORE_OBJECT_KEY must not be empty")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the sql backend")
	ErrUnknownSQLDriver   = errors.New("unknown sql driver")
	ErrUnknownSession     = errors.New("unknown session store")
	ErrMissingRedisURL    = errors.New("REDIS_URL is required for the redis session store")
	ErrMissingDevToken    = errors.New("DEV_RESET_TOKEN_HASH is required when DEV_MODE is on")
)

// Defaults: one CSV object in the napoligis bucket.
const (
	DefaultBucket       = "napoligis"
	DefaultObjectKey    = "napoli_polygon_data.csv"
	DefaultOverpassURL  = "https://overpass-api.de/api/interpreter"
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/reverse"
	DefaultUserAgent    = "Napoli-GIS-App/1.0"
	DefaultPort         = "5050"
)

type Store struct {
	Backend         BackendType `yaml:"backend"`
	Bucket          string      `yaml:"bucket"`
	ObjectKey       string      `yaml:"object_key"`
	CredentialsFile string      `yaml:"credentials_file"`
	SQLDriver       string      `yaml:"sql_driver"`
	DatabaseURL     string      `yaml:"database_url"`
}

type Gateway struct {
	OverpassURL  string        `yaml:"overpass_url"`
	NominatimURL string        `yaml:"nominatim_url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	// RequestsPerSecond is shared by both services.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type Session struct {
	Store    SessionType   `yaml:"store"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	// SecureCookie marks the session cookie Secure; set it behind HTTPS.
	SecureCookie bool `yaml:"secure_cookie"`
}

type Map struct {
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	Zoom      int     `yaml:"zoom"`
	Title     string  `yaml:"title"`
}

// Config holds everything main needs to wire the service.
type Config struct {
	Port           string   `yaml:"port"`
	LogMode        string   `yaml:"log_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// DevMode exposes the destructive reset action.
	DevMode bool `yaml:"dev_mode"`
	// DevResetTokenHash is the bcrypt hash of the reset token. Required when
	// DevMode is on.
	DevResetTokenHash string `yaml:"dev_reset_token_hash"`

	Store   Store   `yaml:"store"`
	Gateway Gateway `yaml:"gateway"`
	Session Session `yaml:"session"`
	Map     Map     `yaml:"map"`
}

// Default returns the configuration used when neither file nor env says otherwise.
func Default() Config {
	return Config{
		Port:    DefaultPort,
		LogMode: "development",
		Store: Store{
			Backend:   BackendMemory,
			Bucket:    DefaultBucket,
			ObjectKey: DefaultObjectKey,
			SQLDriver: "postgres",
		},
		Gateway: Gateway{
			OverpassURL:       DefaultOverpassURL,
			NominatimURL:      DefaultNominatimURL,
			UserAgent:         DefaultUserAgent,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
		},
		Session: Session{
			Store: SessionMemory,
			TTL:   24 * time.Hour,
		},
		Map: Map{
			CenterLat: 40.8518,
			CenterLon: 14.2681,
			Zoom:      13,
			Title:     "Napoli Map Platform",
		},
	}
}

// Load reads the optional YAML file at path, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
//
// Environment variables:
//   - PORT, LOG_MODE, ALLOWED_ORIGINS (comma separated)
//   - DEV_MODE, DEV_RESET_TOKEN_HASH
//   - STORE_BACKEND: "memory", "gcs" or "sql"
//   - STORE_BUCKET, STORE_OBJECT_KEY, GOOGLE_APPLICATION_CREDENTIALS
//   - SQL_DRIVER ("postgres" or "sqlite"), DATABASE_URL
//   - OVERPASS_URL, NOMINATIM_URL, GATEWAY_USER_AGENT, GATEWAY_TIMEOUT, GATEWAY_RPS
//   - SESSION_STORE ("memory" or "redis"), REDIS_URL, SESSION_TTL
func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.LogMode, "LOG_MODE")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEV_MODE")); v != "" {
		c.DevMode, _ = strconv.ParseBool(v)
	}
	setString(&c.DevResetTokenHash, "DEV_RESET_TOKEN_HASH")

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); v != "" {
		c.Store.Backend = BackendType(v)
	}
	setString(&c.Store.Bucket, "STORE_BUCKET")
	setString(&c.Store.ObjectKey, "STORE_OBJECT_KEY")
	setString(&c.Store.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Store.SQLDriver, "SQL_DRIVER")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")

	setString(&c.Gateway.OverpassURL, "OVERPASS_URL")
	setString(&c.Gateway.NominatimURL, "NOMINATIM_URL")
	setString(&c.Gateway.UserAgent, "GATEWAY_USER_AGENT")
	setDuration(&c.Gateway.Timeout, "GATEWAY_TIMEOUT")
	if v := strings.TrimSpace(os.Getenv("GATEWAY_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Gateway.RequestsPerSecond = f
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("SESSION_STORE"))); v != "" {
		c.Session.Store = SessionType(v)
	}
	setString(&c.Session.RedisURL, "REDIS_URL")
	setDuration(&c.Session.TTL, "SESSION_TTL")
	if v := strings.TrimSpace(os.Getenv("SESSION_SECURE_COOKIE")); v != "" {
		c.Session.SecureCookie, _ = strconv.ParseBool(v)
	}
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Store.ObjectKey) == "" {
		return ErrMissingObjectKey
	}
	if c.DevMode && c.DevResetTokenHash == "" {
		return ErrMissingDevToken
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendGCS:
		if c.Store.Bucket == "" {
			return ErrMissingBucket
		}
	case BackendSQL:
		switch c.Store.SQLDriver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSQLDriver, c.Store.SQLDriver)
		}
		if c.Store.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Store.Backend)
	}

	switch c.Session.Store {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSession, c.Session.Store)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
