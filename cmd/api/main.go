package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"reviewscout/internal/adapters/fetch"
	server "reviewscout/internal/adapters/http_server"
	"reviewscout/internal/adapters/observability"
	redisad "reviewscout/internal/adapters/redis"
	"reviewscout/internal/adapters/sources"
	"reviewscout/internal/app"
	"reviewscout/internal/shared"
	mysqlrepo "reviewscout/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	repo, err := mysqlrepo.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql open failed")
	}
	defer repo.Close()
	log.Info().Msg("database connection ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	fetcher := fetch.New(fetch.Config{
		Retries:       cfg.Retries,
		BackoffBase:   time.Duration(cfg.BackoffMS) * time.Millisecond,
		PolitenessMin: time.Duration(cfg.PoliteMinMS) * time.Millisecond,
		PolitenessMax: time.Duration(cfg.PoliteMaxMS) * time.Millisecond,
		RPS:           cfg.ScrapeRPS,
		Relay: fetch.RelayConfig{
			URL:    cfg.RelayURL,
			APIKey: cfg.RelayKey,
			Params: cfg.RelayParams(),
		},
	})

	srcOpts := sources.Options{PageDelay: time.Duration(cfg.PageDelayMS) * time.Millisecond}
	scrapes := app.NewScrapeService(sources.Factory(fetcher, srcOpts), repo, cache)
	queries := app.NewQueryService(repo, cache)

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.Routes(server.NewHandlers(scrapes, queries).Routes)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
