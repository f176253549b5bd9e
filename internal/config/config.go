package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	StockfishPath  string `yaml:"stockfish_path"`
	EnginePoolSize int    `yaml:"engine_pool_size"`
	// OpeningBook is an optional Polyglot file consulted before the engine.
	OpeningBook string `yaml:"opening_book"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`

	Difficulty DifficultyConfig  `yaml:"difficulty"`
	Tags       map[string]string `yaml:"tags"`
	Notify     NotifyConfig      `yaml:"notify"`
}

type DifficultyConfig struct {
	Default  string `yaml:"default"`
	EasyMS   int    `yaml:"easy_ms"`
	MediumMS int    `yaml:"medium_ms"`
	HardMS   int    `yaml:"hard_ms"`
}

type NotifyConfig struct {
	// Mode is off, http, ws or auto.
	Mode    string        `yaml:"mode"`
	HTTPURL string        `yaml:"http_url"`
	WSURL   string        `yaml:"ws_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Token is sent as a bearer token on webhook posts and the WS handshake.
	Token   string `yaml:"token"`
	Retries int    `yaml:"retries"`
}

func defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:    ":8080",
		SessionTTL:  time.Hour,
		MaxSessions: 200,
		Difficulty: DifficultyConfig{
			Default:  "easy",
			EasyMS:   5,
			MediumMS: 100,
			HardMS:   200,
		},
		Notify: NotifyConfig{Mode: "off", Timeout: 5 * time.Second, Retries: 3},
	}
}

// Load builds the config from defaults, the YAML file named by
// BOARDSYNC_CONFIG (if any), then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("BOARDSYNC_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (*AppConfig, error) {
	cfg := defaults()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		c.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		c.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.EnginePoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OPENING_BOOK_PATH")); v != "" {
		c.OpeningBook = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if d, ok := parseDuration(v); ok {
			c.SessionTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxSessions = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("DIFFICULTY_DEFAULT")); v != "" {
		c.Difficulty.Default = v
	}
	envMillis("DIFFICULTY_EASY_MS", &c.Difficulty.EasyMS)
	envMillis("DIFFICULTY_MEDIUM_MS", &c.Difficulty.MediumMS)
	envMillis("DIFFICULTY_HARD_MS", &c.Difficulty.HardMS)

	if v := strings.TrimSpace(os.Getenv("NOTIFY_MODE")); v != "" {
		c.Notify.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_HTTP_URL")); v != "" {
		c.Notify.HTTPURL = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_WS_URL")); v != "" {
		c.Notify.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_TOKEN")); v != "" {
		c.Notify.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Notify.Retries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("NOTIFY_TIMEOUT")); v != "" {
		if d, ok := parseDuration(v); ok {
			c.Notify.Timeout = d
		}
	}

	for _, name := range []string{"Event", "Site", "Round"} {
		if v := strings.TrimSpace(os.Getenv("PGN_" + strings.ToUpper(name))); v != "" {
			if c.Tags == nil {
				c.Tags = make(map[string]string)
			}
			c.Tags[name] = v
		}
	}
}

func envMillis(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// parseDuration accepts a Go duration or a plain number of seconds.
func parseDuration(v string) (time.Duration, bool) {
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d, true
	}
	return 0, false
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if c.Difficulty.EasyMS <= 0 || c.Difficulty.MediumMS <= 0 || c.Difficulty.HardMS <= 0 {
		return errors.New("difficulty move times must be > 0")
	}
	switch c.Notify.Mode {
	case "", "off":
	case "http":
		if c.Notify.HTTPURL == "" {
			return errors.New("NOTIFY_HTTP_URL is required for notify mode http")
		}
	case "ws":
		if c.Notify.WSURL == "" {
			return errors.New("NOTIFY_WS_URL is required for notify mode ws")
		}
	case "auto":
		if c.Notify.HTTPURL == "" || c.Notify.WSURL == "" {
			return errors.New("notify mode auto needs both NOTIFY_HTTP_URL and NOTIFY_WS_URL")
		}
	default:
		return fmt.Errorf("unknown notify mode %q", c.Notify.Mode)
	}
	return nil
}

// MoveTimes returns the per-level budgets keyed by level name.
func (c *AppConfig) MoveTimes() map[string]time.Duration {
	return map[string]time.Duration{
		"easy":   time.Duration(c.Difficulty.EasyMS) * time.Millisecond,
		"medium": time.Duration(c.Difficulty.MediumMS) * time.Millisecond,
		"hard":   time.Duration(c.Difficulty.HardMS) * time.Millisecond,
	}
}
