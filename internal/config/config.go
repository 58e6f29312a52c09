package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	FICS           FICS     `yaml:"fics"`
	Log            Log      `yaml:"log"`
	Redis          Redis    `yaml:"redis"`
	Database       Database `yaml:"database"`
	Uplink         Uplink   `yaml:"uplink"`
	EventQueueSize int      `yaml:"event-queue-size" env:"EVENT_QUEUE_SIZE" env-default:"256"`
	MessagesDir    string   `yaml:"messages-dir" env:"MESSAGES_DIR"`
}

type FICS struct {
	Host           string        `yaml:"host" env:"FICS_HOST" env-default:"freechess.org"`
	Port           int           `yaml:"port" env:"FICS_PORT" env-default:"5000"`
	Username       string        `yaml:"username" env:"FICS_USERNAME" env-default:"guest"`
	Password       string        `yaml:"password" env:"FICS_PASSWORD"`
	Interface      string        `yaml:"interface" env:"FICS_INTERFACE" env-default:"cheese-fics"`
	DialTimeout    time.Duration `yaml:"dial-timeout" env:"FICS_DIAL_TIMEOUT" env-default:"10s"`
	LoginTimeout   time.Duration `yaml:"login-timeout" env:"FICS_LOGIN_TIMEOUT" env-default:"30s"`
	CommandTimeout time.Duration `yaml:"command-timeout" env:"FICS_COMMAND_TIMEOUT" env-default:"30s"`
	// Observe is a game ID to observe after login; 0 disables.
	Observe int `yaml:"observe" env:"FICS_OBSERVE"`
}

type Log struct {
	Level     string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format    string `yaml:"format" env:"LOG_FORMAT" env-default:"legacy"`
	ToConsole bool   `yaml:"to-console" env:"LOG_TO_CONSOLE" env-default:"true"`
	ToFile    bool   `yaml:"to-file" env:"LOG_TO_FILE" env-default:"false"`
	File      string `yaml:"file" env:"LOG_FILE" env-default:"logs/ficswatch.log"`
	Caller    bool   `yaml:"caller" env:"LOG_CALLER" env-default:"false"`
}

type Redis struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

type Database struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type Uplink struct {
	Mode         string        `yaml:"mode" env:"UPLINK_MODE" env-default:"auto"`
	BaseURL      string        `yaml:"base-url" env:"UPLINK_BASE_URL"`
	WSURL        string        `yaml:"ws-url" env:"UPLINK_WS_URL"`
	Token        string        `yaml:"token" env:"UPLINK_TOKEN"`
	Timeout      time.Duration `yaml:"timeout" env:"UPLINK_TIMEOUT" env-default:"5s"`
	Retry        int           `yaml:"retry" env:"UPLINK_RETRY" env-default:"3"`
	MaxReconnect int           `yaml:"max-reconnect" env:"UPLINK_MAX_RECONNECT" env-default:"10"`
	DryRun       bool          `yaml:"dryrun" env:"UPLINK_DRYRUN" env-default:"false"`
}

// Enabled reports whether any uplink endpoint is configured.
func (u Uplink) Enabled() bool {
	return u.BaseURL != "" || u.WSURL != ""
}

// Address is the host:port to dial.
func (f FICS) Address() string {
	return net.JoinHostPort(f.Host, strconv.Itoa(f.Port))
}

// IsGuest reports a guest login (no password).
func (f FICS) IsGuest() bool {
	return f.Password == "" || strings.EqualFold(f.Username, "guest")
}

// Load reads path when it names an existing YAML file, then the environment.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("stat config file: %w", err)
			}
			path = ""
		}
	}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.FICS.Host = strings.TrimSpace(c.FICS.Host)
	c.FICS.Username = strings.TrimSpace(c.FICS.Username)
	c.FICS.Interface = strings.TrimSpace(c.FICS.Interface)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	c.Database.URL = strings.TrimSpace(c.Database.URL)
	c.Uplink.Mode = strings.ToLower(strings.TrimSpace(c.Uplink.Mode))
	c.Uplink.BaseURL = strings.TrimRight(strings.TrimSpace(c.Uplink.BaseURL), "/")
	c.Uplink.WSURL = strings.TrimSpace(c.Uplink.WSURL)
}

func (c *Config) Validate() error {
	var errs []error
	if c.FICS.Host == "" {
		errs = append(errs, errors.New("FICS_HOST is required"))
	}
	if c.FICS.Port <= 0 || c.FICS.Port > 65535 {
		errs = append(errs, fmt.Errorf("FICS_PORT out of range: %d", c.FICS.Port))
	}
	if c.FICS.Username == "" {
		errs = append(errs, errors.New("FICS_USERNAME is required"))
	}
	if c.FICS.DialTimeout <= 0 || c.FICS.LoginTimeout <= 0 || c.FICS.CommandTimeout <= 0 {
		errs = append(errs, errors.New("FICS timeouts must be positive"))
	}
	if c.FICS.Observe < 0 {
		errs = append(errs, fmt.Errorf("FICS_OBSERVE must not be negative: %d", c.FICS.Observe))
	}
	if c.EventQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("EVENT_QUEUE_SIZE must be positive: %d", c.EventQueueSize))
	}
	switch c.Log.Format {
	case "legacy", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be legacy, json or console: %q", c.Log.Format))
	}

	if c.Uplink.Enabled() {
		switch c.Uplink.Mode {
		case "http":
			if c.Uplink.BaseURL == "" {
				errs = append(errs, errors.New("UPLINK_BASE_URL is required for http mode"))
			}
		case "ws":
			if c.Uplink.WSURL == "" {
				errs = append(errs, errors.New("UPLINK_WS_URL is required for ws mode"))
			}
		case "auto":
			if c.Uplink.BaseURL == "" || c.Uplink.WSURL == "" {
				errs = append(errs, errors.New("UPLINK_BASE_URL and UPLINK_WS_URL are required for auto mode"))
			}
		default:
			errs = append(errs, fmt.Errorf("UPLINK_MODE must be http, ws or auto: %q", c.Uplink.Mode))
		}
	}
	return errors.Join(errs...)
}
