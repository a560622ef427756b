package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"shorturl/internal/auth"
	"shorturl/internal/cache"
	"shorturl/internal/config"
	"shorturl/internal/enrich"
	"shorturl/internal/handler"
	"shorturl/internal/logging"
	"shorturl/internal/repository"
	"shorturl/internal/service"
)

// recoveryLogger routes panics caught by gorilla/handlers into zerolog.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logging.Error().Interface("panic", v).Msg("recovered from panic")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		logging.Fatal().Err(err).Msg("db ping")
	}
	repo := repository.NewRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("migrate schema")
	}
	cancel()

	// Redis optional
	var urlCache *cache.URLCache
	if cfg.Redis.Addr != "" {
		urlCache = cache.New(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.TTL)
		if err := urlCache.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("redis ping failed, redirect cache disabled")
			_ = urlCache.Close()
			urlCache = nil
		} else {
			logging.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	var geo enrich.GeoLookup = enrich.NoGeoLookup{}
	if geoDB, err := enrich.OpenGeoIP2(cfg.GeoIP.DBPath); err != nil {
		logging.Warn().Err(err).Str("path", cfg.GeoIP.DBPath).Msg("geoip database unavailable, locations will be Unknown")
	} else {
		defer geoDB.Close()
		geo = geoDB
	}
	enricher := enrich.NewEnricher(enrich.NewUAPParser(), geo, cfg.Enrich.Timeout)

	svc := service.NewService(repo, urlCache, enricher, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), service.Options{
		CodeLength:    cfg.Shortener.CodeLength,
		MaxAttempts:   cfg.Shortener.MaxAttempts,
		StatsLocation: cfg.StatsLocation(),
	})
	h := handler.NewHandler(svc,
		handler.NewRateLimiter(cfg.RateLimit.RedirectRPS, cfg.RateLimit.RedirectBurst),
		handler.NewRateLimiter(cfg.RateLimit.APIRPS, cfg.RateLimit.APIBurst),
	)
	if h.TrustedProxies, err = cfg.TrustedProxyList(); err != nil {
		logging.Fatal().Err(err).Msg("parse trusted proxies")
	}

	r := h.Routes()

	// CORS
	allowed := handlers.AllowedOrigins(cfg.CORSOriginList())
	allowedHeaders := handlers.AllowedHeaders([]string{"Content-Type", "Authorization"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      recovery(handlers.CORS(allowed, allowedHeaders, allowedMethods, handlers.AllowCredentials())(handlers.CompressHandler(r))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// graceful shutdown
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown")
	}

	_ = urlCache.Close()
	_ = db.Close()
	logging.Info().Msg("server gracefully stopped")
}
