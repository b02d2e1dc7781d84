package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

const selectPromptTemplate = `You are an AI specialized in analyzing meme similarity. I have a meme description and several potential matches.

Original meme description:
"%s"

Potential matches:
%s

Analyze these matches and determine which ONE is the closest match to the original.
Consider visual elements, text content, theme, and style. Provide a detailed explanation of why this is the best match.

Format your response as structured JSON with the following fields:
- matchIndex: The index (starting from 1) of the best match from the list provided above.
- explanation: Detailed explanation of why this is the best match.
- similarityScore: A score from 0-100 representing how similar they are.`

// SelectBestMatch runs Stage 3: narrows the candidate set to exactly one
// record. An empty candidate set short-circuits to the sentinel without an
// inference call. An out-of-range matchIndex from the model is a parse
// failure, degrading to the first candidate with a fixed score.
func SelectBestMatch(ctx context.Context, description string, candidates model.CandidateSet, client anthropic.Client, cfg config.AnthropicConfig) (model.SelectedMatch, anthropic.TokenUsage, error) {
	if candidates.Len() == 0 {
		zap.L().Warn("select: empty candidate set, returning sentinel match")
		return model.SelectedMatch{
			Match:           model.SentinelRecord(),
			Explanation:     noCandidatesExplanation,
			SimilarityScore: 0,
		}, anthropic.TokenUsage{}, nil
	}

	prompt := fmt.Sprintf(selectPromptTemplate, description, candidateDetails(candidates.Candidates))

	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.TextModel,
		MaxTokens: cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		return model.SelectedMatch{}, anthropic.TokenUsage{}, stageFailed(StageSelect, err)
	}

	usage := resp.Usage
	usage.LogCost(cfg.TextModel, string(StageSelect))

	return parseSelection(extractText(resp), candidates.Candidates), usage, nil
}

// candidateDetails renders the full per-candidate summary. Unlike the
// dataset summary in the match stage, descriptions are not truncated here;
// the candidate set is small.
func candidateDetails(candidates []model.DatasetRecord) string {
	var b strings.Builder
	for i, rec := range candidates {
		creator := rec.CreatorUsername
		if creator == "" {
			creator = "Unknown"
		}
		desc := rec.Description
		if desc == "" {
			desc = "No description"
		}
		date := rec.UploadDate
		if date == "" {
			date = "Unknown"
		}
		imageURL := rec.ImageURL
		if imageURL == "" {
			imageURL = "N/A"
		}
		fmt.Fprintf(&b, "Match %d:\n- Creator: %s\n- Description: %s\n- Upload Date: %s\n- Image URL: %s\n\n",
			i+1, creator, desc, date, imageURL)
	}
	return b.String()
}

func parseSelection(text string, candidates []model.DatasetRecord) model.SelectedMatch {
	var wire struct {
		MatchIndex      any    `json:"matchIndex"`
		Explanation     string `json:"explanation"`
		SimilarityScore any    `json:"similarityScore"`
	}

	fallback := model.SelectedMatch{
		Match:           candidates[0],
		Explanation:     fallbackSelectExplanation,
		SimilarityScore: fallbackSimilarityScore,
	}

	if err := unmarshalModelJSON(text, &wire); err != nil {
		zap.L().Warn("select: failed to parse selection JSON, using first candidate", zap.Error(err))
		return fallback
	}

	idx, ok := toIndex(wire.MatchIndex)
	if !ok || idx < 1 || idx > len(candidates) {
		zap.L().Warn("select: invalid matchIndex, using first candidate", zap.Any("index", wire.MatchIndex))
		return fallback
	}

	explanation := wire.Explanation
	if explanation == "" {
		explanation = defaultSelectExplanation
	}

	score, ok := toFloat64(wire.SimilarityScore)
	if !ok {
		score = 0
	}

	return model.SelectedMatch{
		Match:           candidates[idx-1],
		Explanation:     explanation,
		SimilarityScore: clampScore(score),
	}
}
