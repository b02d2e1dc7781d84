package model

import "time"

// DatasetRecord is a known prior post supplied by the dataset store. Records
// are read-only for the duration of a pipeline run; the pipeline never
// mutates them.
type DatasetRecord struct {
	ID              int64     `json:"id"`
	CreatorUsername string    `json:"creator_username"`
	UploadDate      string    `json:"upload_date"`
	ImageURL        string    `json:"image_url"`
	PostLink        string    `json:"post_link"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}

// SentinelRecord returns the placeholder record used when no candidate
// exists. Carries zeroed/empty fields instead of null so downstream
// consumers always see a structurally complete record.
func SentinelRecord() DatasetRecord {
	return DatasetRecord{
		ID:              -1,
		CreatorUsername: "",
		Description:     "No match found",
	}
}

// IsSentinel reports whether the record is the no-match placeholder. A
// record without a creator identity cannot be analyzed for attribution.
func (r DatasetRecord) IsSentinel() bool {
	return r.ID < 0 || r.CreatorUsername == ""
}

// MatchSummary is the public projection of a candidate record returned to
// API consumers.
type MatchSummary struct {
	ID         int64  `json:"id"`
	Creator    string `json:"creator"`
	UploadDate string `json:"upload_date"`
	ImageURL   string `json:"image_url"`
	PostLink   string `json:"post_link"`
}

// Summary projects the record to its public fields.
func (r DatasetRecord) Summary() MatchSummary {
	return MatchSummary{
		ID:         r.ID,
		Creator:    r.CreatorUsername,
		UploadDate: r.UploadDate,
		ImageURL:   r.ImageURL,
		PostLink:   r.PostLink,
	}
}
