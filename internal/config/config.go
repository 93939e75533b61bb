// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	DatabaseURL     string
	Port            string
	RedisURL        string
	OverdueCacheTTL time.Duration
	Location        *time.Location
	LLMCommand      string
	LLMArgs         []string
	LLMTimeout      time.Duration
	Debug           bool
}

// Load reads the configuration using getenv (usually os.Getenv).
func Load(getenv func(string) string) (*Config, error) {
	c := &Config{
		DatabaseURL:     getenv("DATABASE_URL"),
		Port:            getenv("PORT"),
		RedisURL:        getenv("REDIS_URL"),
		OverdueCacheTTL: 10 * time.Minute,
		Location:        time.Local,
		LLMCommand:      getenv("LLM_COMMAND"),
		LLMArgs:         []string{"-p", "--output-format", "json"},
		LLMTimeout:      2 * time.Minute,
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LLMCommand == "" {
		c.LLMCommand = "claude"
	}
	if v := getenv("LLM_ARGS"); v != "" {
		c.LLMArgs = strings.Fields(v)
	}
	if v := getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LLM_TIMEOUT %q", v)
		}
		c.LLMTimeout = d
	}
	if v := getenv("OVERDUE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid OVERDUE_CACHE_TTL %q", v)
		}
		c.OverdueCacheTTL = d
	}
	if v := getenv("PLAN_TZ"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PLAN_TZ: %w", err)
		}
		c.Location = loc
	}
	if v := getenv("DEBUG"); v != "" {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG %q", v)
		}
		c.Debug = dbg
	}
	return c, nil
}

// Logger returns a JSON logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if c.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// Redis returns a client for REDIS_URL, or nil when caching is not configured.
func (c *Config) Redis() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
