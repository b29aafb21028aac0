package main

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"founder-dashboard/storage"
	"founder-dashboard/upstream"
)

type config struct {
	Debug          bool
	Port           string
	TasksFile      string
	WeatherURL     string
	QuoteURL       string
	HTTPTimeout    time.Duration
	RedisConn      string
	SessionTTL     time.Duration
	FormTokenTTL   time.Duration
	SessionSecret  string
	StorageConn    string
	TasksTable     string
	TasksPartition string
}

// loadConfig reads the dashboard configuration through getenv.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		Port:           "8080",
		TasksFile:      storage.DefaultTasksFile,
		WeatherURL:     getenv("WEATHER_API_URL"),
		QuoteURL:       getenv("QUOTE_API_URL"),
		HTTPTimeout:    upstream.DefaultTimeout,
		RedisConn:      getenv("REDIS_CONNECTION_STRING"),
		SessionTTL:     storage.DefaultSessionTTL,
		FormTokenTTL:   time.Hour,
		SessionSecret:  getenv("SESSION_SECRET"),
		StorageConn:    getenv("STORAGE_CONNECTION_STRING"),
		TasksTable:     getenv("TASKS_TABLE"),
		TasksPartition: getenv("TASKS_PARTITION"),
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil && dbg {
		cfg.Debug = true
	}
	if v := getenv("DASHBOARD_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return config{}, fmt.Errorf("invalid DASHBOARD_PORT: %q", v)
		}
		cfg.Port = v
	}
	if v := getenv("TASKS_FILE"); v != "" {
		cfg.TasksFile = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"FORM_TOKEN_TTL", &cfg.FormTokenTTL},
	}
	for _, d := range durations {
		v := getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return config{}, fmt.Errorf("invalid %s: %q", d.name, v)
		}
		*d.dst = parsed
	}

	if cfg.StorageConn != "" && cfg.TasksTable == "" {
		return config{}, fmt.Errorf("missing TASKS_TABLE for table storage")
	}
	return cfg, nil
}

// parseRedisOptions accepts a redis:// URL or the Azure style
// "host:port,password=...,ssl=true" form.
func parseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
