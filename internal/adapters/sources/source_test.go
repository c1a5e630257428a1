package sources_test

import (
	"errors"
	"strings"
	"testing"

	"reviewscout/internal/adapters/sources"
	"reviewscout/internal/domain"
)

func TestNewRejectsUnknownSource(t *testing.T) {
	_, err := sources.New("glassdoor", &fakeFetcher{}, noDelay())
	if !errors.Is(err, domain.ErrUnsupportedSource) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "mock") {
		t.Fatalf("error should list valid sources: %v", err)
	}
}

func TestNewBuildsEverySupportedSource(t *testing.T) {
	for _, key := range domain.SupportedSources {
		src, err := sources.New(key, &fakeFetcher{}, noDelay())
		if err != nil {
			t.Fatalf("New(%q): %v", key, err)
		}
		if src.Name() != key {
			t.Fatalf("New(%q).Name() = %q", key, src.Name())
		}
	}
}
