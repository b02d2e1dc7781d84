package pipeline

// Fallback values substituted when model output fails validation. Kept in one
// place so the degradation policy of every stage is auditable and testable
// without a network call. Fallback values are well-formed domain data; fatal
// transport errors are never converted into these.
const (
	// Stage 1 — describe
	fallbackDescription = "Analysis failed or returned empty response."
	fallbackTextContent = "Text extraction failed"
	fallbackUnknown     = "Unknown"

	// Stage 2 — match
	fallbackMatchExplanation = "Automatic fallback match due to processing error"

	// Stage 3 — select
	noCandidatesExplanation   = "No potential matches were identified in the previous step."
	fallbackSelectExplanation = "Automatic fallback to first match due to processing error"
	fallbackSimilarityScore   = 70
	defaultSelectExplanation  = "No explanation provided."

	// Stage 4 — confidence
	missingMatchExplanation       = "Analysis could not be performed due to missing match data."
	fallbackCreatorStyle          = "Analysis failed due to processing error."
	fallbackConfidenceExplanation = "Could not determine confidence due to processing error."
	defaultCreatorStyle           = "Style analysis unavailable."
	defaultConfidenceExplanation  = "Confidence explanation unavailable."
)

// fallbackCandidateCount is how many leading dataset records stand in for a
// candidate set when Stage-2 output cannot be parsed.
const fallbackCandidateCount = 3
