package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// HTTPSource reads granted categories from the platform bridge's
// permission endpoint.
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

// NewHTTPSource constructs a source against the bridge base URL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GrantedCategories fetches the current grant set.
func (s *HTTPSource) GrantedCategories(ctx context.Context) ([]metric.Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/permissions", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("permission endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Granted []string `json:"granted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]metric.Category, 0, len(body.Granted))
	for _, raw := range body.Granted {
		out = append(out, metric.Category(raw))
	}
	return out, nil
}

// StaticSource serves a fixed grant set for local development and tests.
type StaticSource struct {
	mu      sync.RWMutex
	granted []metric.Category
}

// NewStaticSource constructs a source with the given grants.
func NewStaticSource(granted ...metric.Category) *StaticSource {
	return &StaticSource{granted: granted}
}

// Set replaces the grant set.
func (s *StaticSource) Set(granted ...metric.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = granted
}

// GrantedCategories returns a copy of the configured grants.
func (s *StaticSource) GrantedCategories(context.Context) ([]metric.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]metric.Category, len(s.granted))
	copy(out, s.granted)
	return out, nil
}
