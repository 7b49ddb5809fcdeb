package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ROOMBOOK_"

// DefaultRoomsFile is used when ROOMBOOK_ROOMS_FILE is unset.
const DefaultRoomsFile = "configs/rooms.yaml"

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort    int
	MetricsPort int
	// Storage selects the repository backend: "sqlite" or "memory".
	Storage   string
	SQLiteDSN string

	SessionTTL time.Duration
	RoomsFile  string
	Location   *time.Location

	// LoginAttempts is the per email login budget per minute. Zero disables
	// throttling.
	LoginAttempts int

	EnforceRoomExclusivity bool
	LockTTL                time.Duration
	Redis                  RedisConfig

	SMTP     SMTPConfig
	MailFrom string
	Notify   NotifyConfig

	LogLevel slog.Level
}

// RedisConfig enables the distributed date lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig selects the SMTP sender when Host is set.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      string
}

// NotifyConfig sizes the notification pipeline.
type NotifyConfig struct {
	QueueSize   int
	Workers     int
	Rate        float64
	MaxAttempts int
}

// Load parses configuration values from the process environment, falling
// back to the dotenv file named by ROOMBOOK_ENV_FILE (default ".env").
// Variables already present in the environment win over the file.
func Load() (Config, error) {
	path := strings.TrimSpace(os.Getenv(envPrefix + "ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	file, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read env file %s: %w", path, err)
		}
		file = nil
	}
	return parse(func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return file[key]
	})
}

func parse(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:               8080,
		MetricsPort:            9090,
		Storage:                "sqlite",
		SQLiteDSN:              "roombook.db",
		SessionTTL:             24 * time.Hour,
		LoginAttempts:          10,
		RoomsFile:              DefaultRoomsFile,
		Location:               time.UTC,
		EnforceRoomExclusivity: true,
		LockTTL:                10 * time.Second,
		SMTP:                   SMTPConfig{Port: 587, TLS: "opportunistic"},
		MailFrom:               `"BOC Meeting System" <meetings@boc.com>`,
		Notify:                 NotifyConfig{QueueSize: 256, Workers: 2, Rate: 5, MaxAttempts: 3},
		LogLevel:               slog.LevelInfo,
	}

	r := &reader{getenv: getenv}

	r.port("HTTP_PORT", &cfg.HTTPPort, false)
	r.port("METRICS_PORT", &cfg.MetricsPort, true)

	if storage := r.value("STORAGE"); storage != "" {
		switch strings.ToLower(storage) {
		case "sqlite", "memory":
			cfg.Storage = strings.ToLower(storage)
		default:
			r.invalid = append(r.invalid, envPrefix+"STORAGE")
		}
	}
	r.str("SQLITE_DSN", &cfg.SQLiteDSN)
	r.duration("SESSION_TTL", &cfg.SessionTTL)
	r.integer("LOGIN_ATTEMPTS_PER_MINUTE", &cfg.LoginAttempts, 0)
	r.str("ROOMS_FILE", &cfg.RoomsFile)

	if zone := r.value("TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			r.invalid = append(r.invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	r.boolean("ENFORCE_ROOM_EXCLUSIVITY", &cfg.EnforceRoomExclusivity)
	r.duration("LOCK_TTL", &cfg.LockTTL)
	r.str("REDIS_ADDR", &cfg.Redis.Addr)
	r.str("REDIS_PASSWORD", &cfg.Redis.Password)
	r.integer("REDIS_DB", &cfg.Redis.DB, 0)

	r.str("SMTP_HOST", &cfg.SMTP.Host)
	r.port("SMTP_PORT", &cfg.SMTP.Port, false)
	r.str("SMTP_USERNAME", &cfg.SMTP.Username)
	r.str("SMTP_PASSWORD", &cfg.SMTP.Password)
	if tls := r.value("SMTP_TLS"); tls != "" {
		switch strings.ToLower(tls) {
		case "mandatory", "opportunistic", "ssl", "none":
			cfg.SMTP.TLS = strings.ToLower(tls)
		default:
			r.invalid = append(r.invalid, envPrefix+"SMTP_TLS")
		}
	}
	if cfg.SMTP.Username != "" && cfg.SMTP.Password == "" {
		r.missing = append(r.missing, envPrefix+"SMTP_PASSWORD")
	}
	r.str("MAIL_FROM", &cfg.MailFrom)

	r.integer("NOTIFY_QUEUE_SIZE", &cfg.Notify.QueueSize, 1)
	r.integer("NOTIFY_WORKERS", &cfg.Notify.Workers, 1)
	r.integer("NOTIFY_MAX_ATTEMPTS", &cfg.Notify.MaxAttempts, 1)
	if value := r.value("NOTIFY_RATE"); value != "" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			r.invalid = append(r.invalid, envPrefix+"NOTIFY_RATE")
		} else {
			cfg.Notify.Rate = rate
		}
	}

	if value := r.value("LOG_LEVEL"); value != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(value)); err != nil {
			r.invalid = append(r.invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if len(r.missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(r.invalid, ", "))
	}

	return cfg, nil
}

// reader collects missing and invalid keys so every problem is reported at once.
type reader struct {
	getenv  func(string) string
	missing []string
	invalid []string
}

func (r *reader) value(key string) string {
	return strings.TrimSpace(r.getenv(envPrefix + key))
}

func (r *reader) str(key string, dst *string) {
	if value := r.value(key); value != "" {
		*dst = value
	}
}

func (r *reader) port(key string, dst *int, allowZero bool) {
	value := r.value(key)
	if value == "" {
		return
	}
	port, err := strconv.Atoi(value)
	if err != nil || port < 0 || port > 65535 || (port == 0 && !allowZero) {
		r.invalid = append(r.invalid, envPrefix+key)
		return
	}
	*dst = port
}

func (r *reader) integer(key string, dst *int, min int) {
	value := r.value(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < min {
		r.invalid = append(r.invalid, envPrefix+key)
		return
	}
	*dst = n
}

func (r *reader) duration(key string, dst *time.Duration) {
	value := r.value(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, envPrefix+key)
		return
	}
	*dst = d
}

func (r *reader) boolean(key string, dst *bool) {
	value := r.value(key)
	if value == "" {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.invalid = append(r.invalid, envPrefix+key)
		return
	}
	*dst = b
}
