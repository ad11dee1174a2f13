package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	// URL is either a postgres:// DSN or a sqlite file path / file: DSN.
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxLifetime  time.Duration `yaml:"max_lifetime"`
	ConnRetries  int           `yaml:"conn_retries"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ScraperConfig struct {
	CalendarURL  string        `yaml:"calendar_url"`
	SiteOrigin   string        `yaml:"site_origin"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	TodayHeading string        `yaml:"today_heading"`
	ListHeading  string        `yaml:"list_heading"`
}

type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Spec     string `yaml:"spec"`
	Timezone string `yaml:"timezone"`
}

type SecurityConfig struct {
	ScrapeAPIKey string `yaml:"scrape_api_key"`
}

type CORSConfig struct {
	FrontendURL string `yaml:"frontend_url"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

const (
	DefaultCalendarURL = "https://www.uwindsor.ca/science/computerscience/event-calendar"
	DefaultSiteOrigin  = "https://www.uwindsor.ca"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Defaults returns the configuration used when neither a config file nor
// environment variables override a value.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":5000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			URL:          "instance/app.db",
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxLifetime:  5 * time.Minute,
			ConnRetries:  5,
		},
		Redis: RedisConfig{
			LockTTL: 30 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic: "csevents.scrape.completed",
		},
		Scraper: ScraperConfig{
			CalendarURL:  DefaultCalendarURL,
			SiteOrigin:   DefaultSiteOrigin,
			UserAgent:    DefaultUserAgent,
			Timeout:      15 * time.Second,
			TodayHeading: "Today's CS Events",
			ListHeading:  "CS Events",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "0 2 * * *",
		},
		CORS: CORSConfig{
			FrontendURL: "http://localhost:4200",
		},
		Log: LogConfig{
			Dir:   "logs",
			Level: "INFO",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
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

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = normalizePort(getEnv("PORT", c.Server.Port))

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", int(c.Database.MaxLifetime/time.Minute))) * time.Minute
	c.Database.ConnRetries = getEnvInt("DB_CONN_RETRIES", c.Database.ConnRetries)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.LockTTL = getEnvDuration("SCRAPE_LOCK_TTL", c.Redis.LockTTL)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
		c.Kafka.Enabled = true
	}
	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC_SCRAPE_COMPLETED", c.Kafka.Topic)

	c.Scraper.CalendarURL = getEnv("CS_EVENTS_URL", c.Scraper.CalendarURL)
	c.Scraper.SiteOrigin = getEnv("CS_EVENTS_ORIGIN", c.Scraper.SiteOrigin)
	c.Scraper.UserAgent = getEnv("SCRAPER_USER_AGENT", c.Scraper.UserAgent)
	c.Scraper.Timeout = getEnvDuration("SCRAPER_TIMEOUT", c.Scraper.Timeout)
	c.Scraper.TodayHeading = getEnv("CS_EVENTS_TODAY_HEADING", c.Scraper.TodayHeading)
	c.Scraper.ListHeading = getEnv("CS_EVENTS_LIST_HEADING", c.Scraper.ListHeading)

	c.Scheduler.Enabled = getEnvBool("SCHEDULER_ENABLED", c.Scheduler.Enabled)
	c.Scheduler.Spec = getEnv("SCHEDULER_SPEC", c.Scheduler.Spec)
	c.Scheduler.Timezone = getEnv("SCHEDULER_TZ", c.Scheduler.Timezone)

	c.Security.ScrapeAPIKey = getEnv("CS_SCRAPE_API_KEY", c.Security.ScrapeAPIKey)
	c.CORS.FrontendURL = getEnv("FRONTEND_URL", c.CORS.FrontendURL)

	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Scraper.CalendarURL == "" {
		return fmt.Errorf("scraper calendar url is required")
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive, got %s", c.Scraper.Timeout)
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return fmt.Errorf("scheduler spec is required when the scheduler is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	return nil
}

// AllowedOrigins returns the CORS origins for the frontend, without duplicates.
func (c *Config) AllowedOrigins() []string {
	frontend := strings.TrimRight(c.CORS.FrontendURL, "/")
	candidates := []string{frontend, "http://localhost:4200"}

	seen := make(map[string]bool)
	var origins []string
	for _, o := range candidates {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func normalizePort(port string) string {
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
