package provider

import (
	"context"
	"fmt"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Page is one chunk of records from a paginated platform API. An empty
// NextToken means the page is the last one.
type Page struct {
	Records   []metric.RawRecord
	NextToken string
}

// PageFetcher fetches one page of provider records. The empty token requests
// the first page.
type PageFetcher interface {
	Origin() string
	Available() bool
	FetchPage(ctx context.Context, category metric.Category, r metric.TimeRange, token string) (Page, error)
}

// PagedReader adapts a PageFetcher into a Reader. It follows continuation
// tokens until the fetcher stops returning one, or until it sees a token it
// has already observed in this call. The cycle guard protects against
// platform APIs that hand back a stale token forever.
type PagedReader struct {
	fetcher PageFetcher
}

// NewPagedReader wraps fetcher.
func NewPagedReader(fetcher PageFetcher) *PagedReader {
	return &PagedReader{fetcher: fetcher}
}

// Origin reports the wrapped fetcher's origin.
func (p *PagedReader) Origin() string { return p.fetcher.Origin() }

// Available reports whether the wrapped fetcher can serve reads.
func (p *PagedReader) Available() bool { return p.fetcher.Available() }

// Read drains every page for the request into a single slice.
func (p *PagedReader) Read(ctx context.Context, category metric.Category, r metric.TimeRange) ([]metric.RawRecord, error) {
	if !p.fetcher.Available() {
		return nil, fmt.Errorf("origin %s: %w", p.fetcher.Origin(), ErrUnavailable)
	}

	seen := make(map[string]struct{})
	token := ""
	records := make([]metric.RawRecord, 0)

	for {
		page, err := p.fetcher.FetchPage(ctx, category, r, token)
		if err != nil {
			return nil, &ReadError{OriginID: p.fetcher.Origin(), Err: err}
		}
		records = append(records, page.Records...)

		if page.NextToken == "" {
			return records, nil
		}
		if _, repeated := seen[page.NextToken]; repeated {
			// Cycle guard: the platform keeps returning the same token.
			return records, nil
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}
}
