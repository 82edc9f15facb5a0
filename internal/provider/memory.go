package provider

import (
	"context"
	"sync"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// MemoryProvider serves scripted records for local development and tests.
type MemoryProvider struct {
	mu        sync.RWMutex
	origin    string
	available bool
	records   map[metric.Category][]metric.RawRecord
}

// NewMemoryProvider constructs an available provider with no records.
func NewMemoryProvider(origin string) *MemoryProvider {
	return &MemoryProvider{
		origin:    origin,
		available: true,
		records:   make(map[metric.Category][]metric.RawRecord),
	}
}

// Origin returns the configured origin identifier.
func (m *MemoryProvider) Origin() string { return m.origin }

// Available reports the scripted availability flag.
func (m *MemoryProvider) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// SetAvailable toggles availability.
func (m *MemoryProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// Add appends records for the given category.
func (m *MemoryProvider) Add(category metric.Category, records ...metric.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[category] = append(m.records[category], records...)
}

// Reset removes all scripted records.
func (m *MemoryProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[metric.Category][]metric.RawRecord)
}

// Read returns the scripted records whose interval overlaps the range.
func (m *MemoryProvider) Read(_ context.Context, category metric.Category, r metric.TimeRange) ([]metric.RawRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.available {
		return nil, ErrUnavailable
	}

	out := make([]metric.RawRecord, 0)
	for _, record := range m.records[category] {
		if r.Overlaps(metric.TimeRange{Start: record.Start, End: record.End}) || r.Contains(record.Start) {
			out = append(out, record)
		}
	}
	return out, nil
}
