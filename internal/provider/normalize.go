package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
)

// The platform bridges do not agree on a response envelope. Older bridge
// builds return a flat record list, the aggregated endpoints return
// time-bucketed points, and sleep endpoints return sessions with stage
// sub-intervals. Normalize is the single place all of those shapes are
// mapped into canonical RawRecords so the aggregator never sees the
// variability.

type envelope struct {
	Records       []wireRecord  `json:"records"`
	Buckets       []wireBucket  `json:"buckets"`
	Sessions      []wireSession `json:"sessions"`
	NextPageToken string        `json:"next_page_token"`
	PageToken     string        `json:"page_token"`
}

type wireRecord struct {
	Origin     string        `json:"origin"`
	Package    string        `json:"package_name"`
	Start      *time.Time    `json:"start_time"`
	End        *time.Time    `json:"end_time"`
	Value      *float64      `json:"value"`
	Count      *float64      `json:"count"`
	BPM        *float64      `json:"bpm"`
	Metadata   *wireMetadata `json:"metadata"`
	MetadataID string        `json:"metadata_id"`
}

type wireMetadata struct {
	ID string `json:"id"`
}

type wireBucket struct {
	Origin string       `json:"origin"`
	Points []wireRecord `json:"points"`
}

type wireSession struct {
	Origin     string        `json:"origin"`
	Start      *time.Time    `json:"start_time"`
	End        *time.Time    `json:"end_time"`
	MetadataID string        `json:"metadata_id"`
	Stages     []wireStage   `json:"stages"`
	Metadata   *wireMetadata `json:"metadata"`
}

type wireStage struct {
	Stage string     `json:"stage"`
	Label string     `json:"label"`
	Start *time.Time `json:"start_time"`
	End   *time.Time `json:"end_time"`
}

// Normalize parses one bridge response payload into a Page of canonical
// records. originID is used when the envelope does not carry a per-record
// origin. Records without both timestamps are dropped rather than guessed.
func Normalize(originID string, category metric.Category, payload []byte) (Page, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Page{}, fmt.Errorf("malformed provider envelope: %w", err)
	}

	page := Page{NextToken: env.NextPageToken}
	if page.NextToken == "" {
		page.NextToken = env.PageToken
	}

	for _, rec := range env.Records {
		if normalized, ok := normalizeRecord(originID, category, rec); ok {
			page.Records = append(page.Records, normalized)
		}
	}

	for _, bucket := range env.Buckets {
		for _, point := range bucket.Points {
			if point.Origin == "" {
				point.Origin = bucket.Origin
			}
			if normalized, ok := normalizeRecord(originID, category, point); ok {
				page.Records = append(page.Records, normalized)
			}
		}
	}

	for _, session := range env.Sessions {
		if normalized, ok := normalizeSession(originID, session); ok {
			page.Records = append(page.Records, normalized)
		}
	}

	return page, nil
}

func normalizeRecord(fallbackOrigin string, category metric.Category, rec wireRecord) (metric.RawRecord, bool) {
	if rec.Start == nil || rec.End == nil {
		return metric.RawRecord{}, false
	}

	value := 0.0
	switch {
	case rec.Value != nil:
		value = *rec.Value
	case rec.Count != nil:
		value = *rec.Count
	case rec.BPM != nil:
		value = *rec.BPM
	}

	origin := rec.Origin
	if origin == "" {
		origin = rec.Package
	}
	if origin == "" {
		origin = fallbackOrigin
	}

	metadataID := rec.MetadataID
	if metadataID == "" && rec.Metadata != nil {
		metadataID = rec.Metadata.ID
	}

	return metric.RawRecord{
		OriginID:   origin,
		Type:       category,
		Start:      rec.Start.UTC(),
		End:        rec.End.UTC(),
		Value:      value,
		MetadataID: metadataID,
	}, true
}

func normalizeSession(fallbackOrigin string, session wireSession) (metric.RawRecord, bool) {
	if session.Start == nil || session.End == nil {
		return metric.RawRecord{}, false
	}

	origin := session.Origin
	if origin == "" {
		origin = fallbackOrigin
	}

	metadataID := session.MetadataID
	if metadataID == "" && session.Metadata != nil {
		metadataID = session.Metadata.ID
	}

	record := metric.RawRecord{
		OriginID:   origin,
		Type:       metric.CategorySleep,
		Start:      session.Start.UTC(),
		End:        session.End.UTC(),
		Value:      session.End.Sub(*session.Start).Minutes(),
		MetadataID: metadataID,
	}

	for _, stage := range session.Stages {
		if stage.Start == nil || stage.End == nil {
			continue
		}
		label := stage.Stage
		if label == "" {
			label = stage.Label
		}
		record.Stages = append(record.Stages, metric.StageInterval{
			Stage: label,
			Start: stage.Start.UTC(),
			End:   stage.End.UTC(),
		})
	}

	return record, true
}
