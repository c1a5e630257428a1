package sources_test

import (
	"context"
	"fmt"

	"reviewscout/internal/domain"
)

// fakeFetcher serves canned pages by URL and records every request.
type fakeFetcher struct {
	pages map[string]string
	calls []string
	err   error
}

func (f *fakeFetcher) FetchText(_ context.Context, url string, _ *domain.FetchOptions) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return "", fmt.Errorf("unexpected fetch: %s", url)
}
