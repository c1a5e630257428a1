package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reviewscout/internal/adapters/fetch"
	"reviewscout/internal/adapters/observability"
	"reviewscout/internal/adapters/sources"
	"reviewscout/internal/app"
	"reviewscout/internal/domain"
	"reviewscout/internal/shared"
	mysqlrepo "reviewscout/internal/storage/mysql"
)

// Exit codes: 0 success, 1 usage or validation error, 2 runtime failure.
const (
	exitOK    = 0
	exitUsage = 1
	exitError = 2
)

type companyResult struct {
	Company string           `json:"company"`
	Result  *app.ScrapeResult `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		companies = flag.String("company", "", "company name(s), comma-separated (required)")
		start     = flag.String("start", "", "start date YYYY-MM-DD (required)")
		end       = flag.String("end", "", "end date YYYY-MM-DD (required)")
		source    = flag.String("source", domain.SourceMock, "review source: "+strings.Join(domain.SupportedSources, ", "))
		out       = flag.String("out", "", "output file (default stdout)")
		maxPages  = flag.Int("max-pages", 0, "pagination cap (0 = source default)")
		store     = flag.Bool("store", false, "persist results to mysql")
	)
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if *companies == "" || *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "error: --company, --start and --end are required")
		flag.Usage()
		return exitUsage
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: --start %q is not YYYY-MM-DD\n", *start)
		return exitUsage
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: --end %q is not YYYY-MM-DD\n", *end)
		return exitUsage
	}
	if endDate.Before(startDate) {
		fmt.Fprintln(os.Stderr, "error: --end is before --start")
		return exitUsage
	}
	if !domain.IsSupportedSource(*source) {
		fmt.Fprintf(os.Stderr, "error: unsupported source %q (valid: %s)\n",
			*source, strings.Join(domain.SupportedSources, ", "))
		return exitUsage
	}

	var repo domain.ReviewRepository
	if *store {
		r, err := mysqlrepo.Open(cfg.MySQLDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: mysql open: %v\n", err)
			return exitError
		}
		defer r.Close()
		repo = r
	}

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
	svc := app.NewScrapeService(sources.Factory(fetcher, srcOpts), repo, nil)

	names := splitCompanies(*companies)
	results := make([]companyResult, len(names))

	// Bounded fan-out across companies.
	ctx := context.Background()
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	for i, name := range names {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := svc.Scrape(ctx, app.ScrapeRequest{
				Company:  name,
				Source:   *source,
				Start:    startDate,
				End:      endDate,
				MaxPages: *maxPages,
			})
			if err != nil {
				log.Error().Err(err).Str("company", name).Msg("scrape failed")
				results[i] = companyResult{Company: name, Error: err.Error()}
				return
			}
			results[i] = companyResult{Company: name, Result: &res}
		}(i, name)
	}
	wg.Wait()

	if err := writeResults(*out, names, results); err != nil {
		fmt.Fprintf(os.Stderr, "error: write output: %v\n", err)
		return exitError
	}

	for _, r := range results {
		if r.Error != "" {
			return exitError
		}
	}
	return exitOK
}

func splitCompanies(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// writeResults emits a single result bare for one company, a list for
// several. --out writes a file, otherwise stdout.
func writeResults(path string, names []string, results []companyResult) error {
	var payload any = results
	if len(names) == 1 {
		payload = results[0]
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
