package main

import (
	"context"
	"crypto/rand"
	"os"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"founder-dashboard/api"
	"founder-dashboard/observability"
	"founder-dashboard/storage"
	"founder-dashboard/upstream"
)

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	tp := observability.NewTracerProvider(logger)
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tasks, err := newTaskStore(cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}

	var (
		sessionStore api.SessionStore
		deduper      api.Deduper
	)
	if cfg.RedisConn != "" {
		rc := redis.NewClient(parseRedisOptions(cfg.RedisConn))
		sessionStore = storage.NewRedisSessions(rc, cfg.SessionTTL)
		deduper = api.NewRedisDeduper(rc, cfg.FormTokenTTL)
		logger.Info("session state stored in redis")
	} else {
		sessionStore = storage.NewMemorySessions(cfg.SessionTTL)
		deduper = api.NewMemoryDeduper(cfg.FormTokenTTL)
		logger.Info("session state stored in memory")
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatalf("session secret: %v", err)
		}
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(api.RequestLogger(logger))

	api.Register(e, api.Deps{
		Tasks:    tasks,
		Sessions: sessionStore,
		Cookies:  sessions.NewCookieStore(secret),
		Weather:  upstream.NewWeatherClient(upstream.Options{BaseURL: cfg.WeatherURL, Timeout: cfg.HTTPTimeout}),
		Quotes:   upstream.NewQuoteClient(upstream.Options{BaseURL: cfg.QuoteURL, Timeout: cfg.HTTPTimeout}),
		Deduper:  deduper,
		Logger:   logger,
	})

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func newTaskStore(cfg config, logger *log.Logger) (api.TaskStore, error) {
	if cfg.StorageConn == "" {
		store := storage.NewFileStore(cfg.TasksFile, logger)
		logger.WithField("path", store.Path()).Info("tasks stored in file")
		return store, nil
	}
	store, err := storage.NewTableStore(cfg.StorageConn, cfg.TasksTable, cfg.TasksPartition)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureTable(ctx); err != nil {
		return nil, err
	}
	logger.WithField("table", cfg.TasksTable).Info("tasks stored in table storage")
	return store, nil
}
