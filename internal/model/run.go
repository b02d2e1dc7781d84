package model

import "time"

// RunStatus represents the current state of an attribution run. Transitions
// are strictly sequential; Failed is reachable from any in-progress state.
type RunStatus string

const (
	RunStatusIdle                RunStatus = "idle"
	RunStatusDescribingMedia     RunStatus = "describing_media"
	RunStatusMatchingCandidates  RunStatus = "matching_candidates"
	RunStatusSelectingBestMatch  RunStatus = "selecting_best_match"
	RunStatusAnalyzingConfidence RunStatus = "analyzing_confidence"
	RunStatusComplete            RunStatus = "complete"
	RunStatusFailed              RunStatus = "failed"
)

// Run represents a single attribution run.
type Run struct {
	ID        string             `json:"id"`
	MimeType  string             `json:"mime_type"`
	Status    RunStatus          `json:"status"`
	Result    *AttributionResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
