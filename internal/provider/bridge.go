package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// HTTPBridge fetches record pages from a local platform bridge process
// (the native health-store binding exposes a small HTTP surface). It
// implements PageFetcher; wrap it in a PagedReader to get a Reader.
type HTTPBridge struct {
	client  *http.Client
	baseURL string
	origin  string
}

// NewHTTPBridge constructs a bridge client for one origin.
func NewHTTPBridge(origin, baseURL string, timeout time.Duration) *HTTPBridge {
	return &HTTPBridge{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		origin:  origin,
	}
}

// Origin identifies the physical provider behind the bridge.
func (b *HTTPBridge) Origin() string { return b.origin }

// Available probes the bridge status endpoint. A bridge that is not
// running, or not yet initialized, reports unavailable.
func (b *HTTPBridge) Available() bool {
	req, err := http.NewRequest(http.MethodGet, b.baseURL+"/v1/status", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// FetchPage requests one page of records and normalizes the envelope.
func (b *HTTPBridge) FetchPage(ctx context.Context, category metric.Category, r metric.TimeRange, token string) (Page, error) {
	query := url.Values{}
	query.Set("category", string(category))
	query.Set("start", r.Start.UTC().Format(time.RFC3339))
	query.Set("end", r.End.UTC().Format(time.RFC3339))
	if token != "" {
		query.Set("page_token", token)
	}

	endpoint := b.baseURL + "/v1/records?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, err
	}

	return Normalize(b.origin, category, payload)
}
