package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/api"
	"github.com/nkitajim/task-collabo/auth"
	"github.com/nkitajim/task-collabo/realtime"
	"github.com/nkitajim/task-collabo/storage"
)

type config struct {
	Port      string        `envconfig:"PORT" default:"8080"`
	DBPath    string        `envconfig:"DB_PATH" default:"db.sqlite"`
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`

	RedisConnectionString string        `envconfig:"REDIS_CONNECTION_STRING"`
	BoardCacheTTL         time.Duration `envconfig:"BOARD_CACHE_TTL" default:"5m"`

	DispatchBuffer  int           `envconfig:"DISPATCH_BUFFER" default:"1024"`
	SubscriberQueue int           `envconfig:"SUBSCRIBER_QUEUE" default:"64"`
	SendTimeout     time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	AdmitTimeout    time.Duration `envconfig:"ADMIT_TIMEOUT" default:"5s"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	var apiStore api.Storage = store
	var cache api.Invalidator
	if cfg.RedisConnectionString != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisConnectionString)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		rc := redis.NewClient(redisOpts)
		boardCache := storage.NewBoardCache(store, rc, cfg.BoardCacheTTL)
		apiStore = boardCache
		cache = boardCache
		log.Info("board projection cache enabled")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	logger := log.New()
	logger.SetLevel(log.GetLevel())

	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub, logger, cfg.DispatchBuffer)
	defer dispatcher.Stop()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	rt := api.Realtime{
		Hub:          hub,
		Dispatcher:   dispatcher,
		SendBuffer:   cfg.SubscriberQueue,
		WriteTimeout: cfg.SendTimeout,
		AdmitTimeout: cfg.AdmitTimeout,
	}
	api.Register(e, apiStore, tokens, rt, cache, logger)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
