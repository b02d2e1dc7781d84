package model

// MediaPayload is the transport-safe encoding of an uploaded file. Created
// per request, consumed by the describe stage, then discarded.
type MediaPayload struct {
	Base64Data string `json:"-"`
	MimeType   string `json:"mime_type"`
}

// ContentDescription is the validated output of the describe stage.
// Immutable once produced; later stages read it but never write it. All four
// fields are non-empty after validation — absent fields are replaced by
// explicit placeholders, never propagated as zero values.
type ContentDescription struct {
	Description    string   `json:"description"`
	TextContent    string   `json:"text_content"`
	VisualElements []string `json:"visual_elements"`
	Theme          string   `json:"theme"`
}

// CandidateSet is the ordered subset of dataset records selected by the
// match stage. Explanations are keyed by the candidate's 1-based position in
// the wire format exchanged with the model; keys always reference an entry
// present in Candidates.
type CandidateSet struct {
	Candidates   []DatasetRecord   `json:"candidates"`
	Explanations map[string]string `json:"explanations"`
}

// Len returns the number of candidates.
func (c CandidateSet) Len() int { return len(c.Candidates) }

// SelectedMatch is the single best match chosen by the selector stage, or
// the sentinel when the candidate set was empty.
type SelectedMatch struct {
	Match           DatasetRecord `json:"match"`
	Explanation     string        `json:"explanation"`
	SimilarityScore float64       `json:"similarity_score"`
}

// ConfidenceReport is the output of the confidence stage.
type ConfidenceReport struct {
	MatchPercentage       float64  `json:"match_percentage"`
	MatchingFeatures      []string `json:"matching_features"`
	CreatorStyle          string   `json:"creator_style"`
	ConfidenceExplanation string   `json:"confidence_explanation"`
}

// FinalMatch is the public projection of the selected match.
type FinalMatch struct {
	ID              int64   `json:"id"`
	Creator         string  `json:"creator"`
	Description     string  `json:"description"`
	UploadDate      string  `json:"upload_date"`
	ImageURL        string  `json:"image_url"`
	PostLink        string  `json:"post_link"`
	Explanation     string  `json:"explanation"`
	SimilarityScore float64 `json:"similarity_score"`
}

// MatchResult is the public projection of the confidence report.
type MatchResult struct {
	Percentage   float64  `json:"percentage"`
	Features     []string `json:"features"`
	CreatorStyle string   `json:"creator_style"`
	Explanation  string   `json:"explanation"`
}

// AttributionResult is the composite output of one pipeline run. Assembled
// once by the orchestrator, immutable, not persisted by the pipeline itself
// (the run store keeps an audit copy).
type AttributionResult struct {
	RunID            string             `json:"run_id"`
	OriginalAnalysis ContentDescription `json:"original_analysis"`
	Matches          []MatchSummary     `json:"matches"`
	FinalMatch       FinalMatch         `json:"final_match"`
	MatchResult      MatchResult        `json:"match_result"`
	TotalTokens      int                `json:"total_tokens"`
	TotalCost        float64            `json:"total_cost"`
}

// ClaimDraft is a drafted copyright-claim email derived from an analysis.
type ClaimDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Note    string `json:"_error,omitempty"`
}
