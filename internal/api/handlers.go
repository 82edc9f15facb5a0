// Package api exposes HTTP handlers for the health metrics engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/auth"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/engine"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// Engine is the slice of the sync coordinator the handlers need.
type Engine interface {
	GetSnapshot(ctx context.Context, force bool) (engine.Result, error)
	RefreshPermissions(ctx context.Context) error
	IsMetricAvailable(category metric.Category) bool
}

// Handler coordinates HTTP requests with the engine.
type Handler struct {
	engine Engine
}

// NewHandler builds a Handler.
func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes wires endpoints to the mux. Reads accept either health
// scope; refreshing permissions costs a platform round trip and needs the
// write scope.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/snapshot", auth.RequireScope(h.snapshot, auth.ScopeHealthRead, auth.ScopeHealthWrite))
	mux.HandleFunc("/v1/permissions/refresh", auth.RequireScope(h.refreshPermissions, auth.ScopeHealthWrite))
	mux.HandleFunc("/v1/metrics/availability", auth.RequireScope(h.metricAvailability, auth.ScopeHealthRead, auth.ScopeHealthWrite))
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	result, err := h.engine.GetSnapshot(r.Context(), force)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusGatewayTimeout, "sync_timeout", "sync did not complete in time")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSnapshotResponse(result))
}

func (h *Handler) refreshPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	if err := h.engine.RefreshPermissions(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) metricAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	category := metric.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown metric category")
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Category:  string(category),
		Available: h.engine.IsMetricAvailable(category),
	})
}

// SleepView is the sleep portion of a snapshot response.
type SleepView struct {
	TotalMinutes int  `json:"total_minutes"`
	DeepMinutes  int  `json:"deep_minutes"`
	RemMinutes   int  `json:"rem_minutes"`
	LightMinutes int  `json:"light_minutes"`
	Quality      *int `json:"quality,omitempty"`
}

// SnapshotView exposes the aggregated daily snapshot.
type SnapshotView struct {
	Day              string    `json:"day"`
	Steps            int       `json:"steps"`
	DistanceKM       float64   `json:"distance_km"`
	Calories         float64   `json:"calories"`
	HeartRateBPM     *float64  `json:"heart_rate_bpm,omitempty"`
	RestingHeartRate *float64  `json:"resting_heart_rate,omitempty"`
	HRVMillis        *float64  `json:"hrv_ms,omitempty"`
	HRVAverage       *float64  `json:"hrv_avg_ms,omitempty"`
	Sleep            SleepView `json:"sleep"`
	WeightKG         *float64  `json:"weight_kg,omitempty"`
	BodyFatPercent   *float64  `json:"body_fat_percent,omitempty"`
	HydrationML      float64   `json:"hydration_ml"`
	MindfulMinutes   int       `json:"mindful_minutes"`
}

// SnapshotResponse packages the snapshot with its provenance so the caller
// can always tell placeholder data from real measurements.
type SnapshotResponse struct {
	Snapshot   SnapshotView `json:"snapshot"`
	Provenance string       `json:"provenance"`
	SyncedAt   *time.Time   `json:"synced_at,omitempty"`
}

// AvailabilityResponse reports whether one metric category can be served.
type AvailabilityResponse struct {
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

func toSnapshotResponse(result engine.Result) SnapshotResponse {
	snap := result.Snapshot
	view := SnapshotView{
		Day:              snap.Day.Format("2006-01-02"),
		Steps:            snap.Steps,
		DistanceKM:       snap.DistanceKM,
		Calories:         snap.Calories,
		HeartRateBPM:     snap.HeartRateBPM,
		RestingHeartRate: snap.RestingHeartRate,
		HRVMillis:        snap.HRVMillis,
		HRVAverage:       snap.HRVAverage,
		Sleep: SleepView{
			TotalMinutes: snap.Sleep.TotalMinutes,
			DeepMinutes:  snap.Sleep.DeepMinutes,
			RemMinutes:   snap.Sleep.RemMinutes,
			LightMinutes: snap.Sleep.LightMinutes,
			Quality:      snap.Sleep.Quality,
		},
		WeightKG:       snap.WeightKG,
		BodyFatPercent: snap.BodyFatPercent,
		HydrationML:    snap.HydrationML,
		MindfulMinutes: snap.MindfulMinutes,
	}

	resp := SnapshotResponse{
		Snapshot:   view,
		Provenance: string(result.Provenance),
	}
	if !result.SyncedAt.IsZero() {
		at := result.SyncedAt
		resp.SyncedAt = &at
	}
	return resp
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
