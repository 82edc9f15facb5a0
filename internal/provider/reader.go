// Package provider defines the boundary to external on-device health data
// stores. Each physical provider (phone sensors, a paired wearable surfaced
// through the platform health store) is one origin; multiple origins may
// answer for the same record type and their results are not pre-merged.
package provider

import (
	"context"
	"errors"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// ErrUnavailable is returned when the underlying platform API is absent or
// uninitialized. "No data" is never an error: readers return an empty slice.
var ErrUnavailable = errors.New("health data provider unavailable")

// Reader is the narrow read interface over one provider origin.
//
// Read returns every raw record of the given category inside the range. The
// result is finite and restartable: calling Read again with the same
// arguments re-fetches from the platform.
type Reader interface {
	Origin() string
	Available() bool
	Read(ctx context.Context, category metric.Category, r metric.TimeRange) ([]metric.RawRecord, error)
}

// ReadError wraps a transient failure from a specific provider call. The
// sync coordinator logs it and keeps going with the remaining providers and
// categories.
type ReadError struct {
	OriginID string
	Err      error
}

func (e *ReadError) Error() string {
	return "provider read failed (origin=" + e.OriginID + "): " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }
