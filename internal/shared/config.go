package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	// Anti-bot relay. Real-site scraping works without it but gets
	// blocked far more often. The key is only ever read from the
	// environment.
	RelayURL     string
	RelayKey     string
	RelayCountry string

	Retries      int
	BackoffMS    int
	ScrapeRPS    int
	MaxPages     int
	Workers      int
	CacheTTL     time.Duration
	PageDelayMS  int
	PoliteMinMS  int
	PoliteMaxMS  int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviewscout?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RelayURL:     env("RELAY_URL", "https://api.zenrows.com/v1/"),
		RelayKey:     env("RELAY_API_KEY", ""),
		RelayCountry: env("RELAY_PROXY_COUNTRY", "us"),
		Retries:      atoi("SCRAPE_RETRIES", 3),
		BackoffMS:    atoi("SCRAPE_BACKOFF_MS", 2000),
		ScrapeRPS:    atoi("SCRAPE_RPS", 5),
		MaxPages:     atoi("SCRAPE_MAX_PAGES", 5),
		Workers:      atoi("SCRAPE_WORKERS", 4),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		PageDelayMS:  atoi("SCRAPE_PAGE_DELAY_MS", 800),
		PoliteMinMS:  atoi("SCRAPE_POLITE_MIN_MS", 500),
		PoliteMaxMS:  atoi("SCRAPE_POLITE_MAX_MS", 1500),
	}
	if c.RelayKey == "" {
		log.Warn().Msg("RELAY_API_KEY is empty; real-site scraping will go direct and may be blocked")
	}
	return c
}

// RelayParams are the relay defaults sent with every relayed fetch.
func (c Config) RelayParams() map[string]string {
	return map[string]string{
		"js_render":     "true",
		"premium_proxy": "true",
		"antibot":       "true",
		"proxy_country": c.RelayCountry,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
