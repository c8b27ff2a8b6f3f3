package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Scraper  ScraperConfig  `yaml:"scraper"`
	Browser  BrowserConfig  `yaml:"browser"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ScraperConfig struct {
	BaseURL              string        `yaml:"base_url"`
	SearchEndpoint       string        `yaml:"search_endpoint"`
	MaxPages             int           `yaml:"max_pages"`
	DelayBetweenRequests time.Duration `yaml:"delay_between_requests"`
	NavigationTimeout    time.Duration `yaml:"navigation_timeout"`
	ReadinessTimeout     time.Duration `yaml:"readiness_timeout"`
	SelectorsFile        string        `yaml:"selectors_file"`
}

type BrowserConfig struct {
	Driver         string        `yaml:"driver"`
	Headless       bool          `yaml:"headless"`
	DisableSandbox bool          `yaml:"disable_sandbox"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	BinaryPath     string        `yaml:"binary_path"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	FilePath string `yaml:"file_path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:              "https://www.flipkart.com",
			SearchEndpoint:       "/search",
			MaxPages:             3,
			DelayBetweenRequests: 2 * time.Second,
			NavigationTimeout:    30 * time.Second,
			ReadinessTimeout:     20 * time.Second,
		},
		Browser: BrowserConfig{
			Driver:         "playwright",
			Headless:       true,
			DisableSandbox: true,
			Timeout:        30 * time.Second,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Name:     "flipkart_products.db",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			SSLMode:  "disable",
			MaxConns: 5,
			FilePath: "data/products.json",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "flipkart-scraper-events",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    5,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:*", "https://localhost:*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			File:       "logs/flipkart_scraper.log",
			MaxSizeMB:  10,
			MaxAgeDays: 7,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// it exists), then environment variables. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc.Kind == 0 {
		return nil
	}

	secondsToDurations(&doc)
	if err := doc.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Scraper.BaseURL = getEnvOrDefault("SCRAPER_BASE_URL", c.Scraper.BaseURL)
	c.Scraper.SearchEndpoint = getEnvOrDefault("SCRAPER_SEARCH_ENDPOINT", c.Scraper.SearchEndpoint)
	c.Scraper.MaxPages = getIntOrDefault("SCRAPER_MAX_PAGES", c.Scraper.MaxPages)
	c.Scraper.DelayBetweenRequests = getDurationOrDefault("SCRAPER_DELAY", c.Scraper.DelayBetweenRequests)
	c.Scraper.NavigationTimeout = getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", c.Scraper.NavigationTimeout)
	c.Scraper.ReadinessTimeout = getDurationOrDefault("SCRAPER_READINESS_TIMEOUT", c.Scraper.ReadinessTimeout)
	c.Scraper.SelectorsFile = getEnvOrDefault("SCRAPER_SELECTORS_FILE", c.Scraper.SelectorsFile)

	c.Browser.Driver = getEnvOrDefault("BROWSER_DRIVER", c.Browser.Driver)
	c.Browser.Headless = getBoolOrDefault("BROWSER_HEADLESS", c.Browser.Headless)
	c.Browser.DisableSandbox = getBoolOrDefault("BROWSER_DISABLE_SANDBOX", c.Browser.DisableSandbox)
	c.Browser.Timeout = getDurationOrDefault("BROWSER_TIMEOUT", c.Browser.Timeout)
	c.Browser.UserAgent = getEnvOrDefault("BROWSER_USER_AGENT", c.Browser.UserAgent)
	c.Browser.BinaryPath = getEnvOrDefault("BROWSER_BINARY_PATH", c.Browser.BinaryPath)

	c.Database.Driver = getEnvOrDefault("DB_DRIVER", c.Database.Driver)
	c.Database.Name = getEnvOrDefault("DB_NAME", c.Database.Name)
	c.Database.Host = getEnvOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getIntOrDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvOrDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnvOrDefault("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.FilePath = getEnvOrDefault("DB_FILE_PATH", c.Database.FilePath)

	c.Redis.Enabled = getBoolOrDefault("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntOrDefault("REDIS_DB", c.Redis.DB)
	c.Redis.Stream = getEnvOrDefault("REDIS_STREAM", c.Redis.Stream)

	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getIntOrDefault("SERVER_PORT", c.Server.Port)
	c.Server.AllowedOrigins = getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnvOrDefault("LOG_FILE", c.Logging.File)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scraper.base_url must be an absolute URL, got %q", c.Scraper.BaseURL)
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("scraper.max_pages must be at least 1")
	}

	if c.Scraper.DelayBetweenRequests < 0 {
		return fmt.Errorf("scraper.delay_between_requests cannot be negative")
	}

	if c.Scraper.NavigationTimeout <= 0 || c.Scraper.ReadinessTimeout <= 0 {
		return fmt.Errorf("scraper timeouts must be positive")
	}

	switch c.Browser.Driver {
	case "playwright", "rod":
	default:
		return fmt.Errorf("browser.driver must be playwright or rod, got %q", c.Browser.Driver)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "file":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or file, got %q", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("redis.stream is required when redis is enabled")
	}

	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("server rate limit must be positive")
	}

	return nil
}

// durationKeys are the YAML keys decoded into time.Duration fields.
var durationKeys = map[string]bool{
	"delay_between_requests": true,
	"navigation_timeout":     true,
	"readiness_timeout":      true,
	"timeout":                true,
	"read_timeout":           true,
	"write_timeout":          true,
	"shutdown_timeout":       true,
}

// secondsToDurations rewrites bare numbers under duration keys as seconds,
// so "delay_between_requests: 2" means the same as the SCRAPER_DELAY=2
// environment override.
func secondsToDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if durationKeys[key.Value] && value.Kind == yaml.ScalarNode &&
				(value.Tag == "!!int" || value.Tag == "!!float") {
				value.Value += "s"
				value.Tag = "!!str"
			}
		}
	}
	for _, child := range n.Content {
		secondsToDurations(child)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationOrDefault accepts Go durations ("2s") and bare numbers, which
// are read as seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
