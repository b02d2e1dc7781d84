package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

const matchPromptTemplate = `You are an AI specialized in matching meme descriptions. I have a meme description and a dataset of known memes.

Here's the description of the meme we're trying to match:
"%s"

Here's a summary of my dataset:
%s

From this dataset, identify the 2-5 most likely matches based on similarity of content, style, and theme.
Explain why each is a potential match.

Format your response as structured JSON with the following fields:
- matches: Array of indices (starting from 1) of the best matches
- explanations: Object with indices as keys and explanation strings as values`

// MatchCandidates runs Stage 2: asks the model to shortlist dataset records
// plausibly related to the described media. Indices in model output are
// 1-based into the dataset summary; out-of-range or non-integral indices are
// dropped silently. Parse failures degrade to the leading dataset records.
func MatchCandidates(ctx context.Context, description string, dataset []model.DatasetRecord, client anthropic.Client, cfg config.AnthropicConfig, pcfg config.PipelineConfig) (model.CandidateSet, anthropic.TokenUsage, error) {
	prompt := fmt.Sprintf(matchPromptTemplate, description, datasetSummary(dataset, pcfg.SummaryTruncateChars))

	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.TextModel,
		MaxTokens: cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		return model.CandidateSet{}, anthropic.TokenUsage{}, stageFailed(StageMatch, err)
	}

	usage := resp.Usage
	usage.LogCost(cfg.TextModel, string(StageMatch))

	return parseCandidates(extractText(resp), dataset, pcfg.FallbackCandidates), usage, nil
}

// datasetSummary renders one numbered entry per record with the description
// bounded to truncateChars so large datasets stay within the prompt budget.
func datasetSummary(dataset []model.DatasetRecord, truncateChars int) string {
	var b strings.Builder
	for i, rec := range dataset {
		creator := rec.CreatorUsername
		if creator == "" {
			creator = "Unknown"
		}
		desc := rec.Description
		if desc == "" {
			desc = "No description available"
		}
		date := rec.UploadDate
		if date == "" {
			date = "Unknown"
		}
		fmt.Fprintf(&b, "Item %d:\n- Creator: %s\n- Description: %s\n- Upload Date: %s\n\n",
			i+1, creator, truncate(desc, truncateChars), date)
	}
	return b.String()
}

func parseCandidates(text string, dataset []model.DatasetRecord, fallbackCount int) model.CandidateSet {
	var wire struct {
		Matches      any `json:"matches"`
		Explanations any `json:"explanations"`
	}

	if err := unmarshalModelJSON(text, &wire); err != nil {
		zap.L().Warn("match: failed to parse candidate JSON, using leading records",
			zap.Error(err), zap.Int("dataset_size", len(dataset)))
		return fallbackCandidates(dataset, fallbackCount)
	}

	rawMatches, _ := wire.Matches.([]any)
	rawExplanations := toStringMap(wire.Explanations)

	// Validate 1-based indices against the dataset; anything else is dropped.
	// Repeated indices keep only their first occurrence.
	var candidates []model.DatasetRecord
	explanations := make(map[string]string)
	seen := make(map[int]bool)
	pos := 0
	for _, raw := range rawMatches {
		idx, ok := toIndex(raw)
		if !ok || idx < 1 || idx > len(dataset) {
			zap.L().Debug("match: dropping invalid candidate index", zap.Any("index", raw))
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		pos++
		candidates = append(candidates, dataset[idx-1])
		// Re-key explanations from dataset indices to candidate positions so
		// every key references an entry present in the set.
		if expl, ok := rawExplanations[strconv.Itoa(idx)]; ok {
			explanations[strconv.Itoa(pos)] = expl
		}
	}

	return model.CandidateSet{Candidates: candidates, Explanations: explanations}
}

// fallbackCandidates selects up to n leading dataset records with a single
// synthetic explanation.
func fallbackCandidates(dataset []model.DatasetRecord, n int) model.CandidateSet {
	if n > len(dataset) {
		n = len(dataset)
	}
	set := model.CandidateSet{
		Candidates:   append([]model.DatasetRecord(nil), dataset[:n]...),
		Explanations: map[string]string{},
	}
	if n > 0 {
		set.Explanations["1"] = fallbackMatchExplanation
	}
	return set
}
