package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

const confidencePromptTemplate = `You are an AI specialized in analyzing meme attribution. I have a meme and a potential creator match.

Original meme description:
"%s"

Matched creator and post:
- Creator: %s
- Post Description: %s
- Upload Date: %s

Generate a detailed analysis of how well this meme matches the creator's style.
Calculate a confident match percentage based on:
- Visual style similarities
- Text formatting and language patterns
- Theme and humor approach
- Any unique identifiers or watermarks

Format your response as structured JSON with the following fields:
- matchPercentage: A number between 0-100 representing confidence
- matchingFeatures: Array of specific features that match
- creatorStyle: Description of the creator's typical style
- confidenceExplanation: Detailed explanation of the match confidence`

// AnalyzeConfidence runs Stage 4: scores how well the selected match fits
// the creator's style. A sentinel match (no creator identity) short-circuits
// to a zeroed report without an inference call.
func AnalyzeConfidence(ctx context.Context, description string, selected model.SelectedMatch, client anthropic.Client, cfg config.AnthropicConfig) (model.ConfidenceReport, anthropic.TokenUsage, error) {
	if selected.Match.IsSentinel() {
		zap.L().Warn("confidence: sentinel match, skipping analysis")
		return model.ConfidenceReport{
			MatchPercentage:       0,
			MatchingFeatures:      []string{},
			CreatorStyle:          fallbackUnknown,
			ConfidenceExplanation: missingMatchExplanation,
		}, anthropic.TokenUsage{}, nil
	}

	rec := selected.Match
	desc := rec.Description
	if desc == "" {
		desc = "No description"
	}
	date := rec.UploadDate
	if date == "" {
		date = "Unknown"
	}
	prompt := fmt.Sprintf(confidencePromptTemplate, description, rec.CreatorUsername, desc, date)

	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.TextModel,
		MaxTokens: cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		return model.ConfidenceReport{}, anthropic.TokenUsage{}, stageFailed(StageConfidence, err)
	}

	usage := resp.Usage
	usage.LogCost(cfg.TextModel, string(StageConfidence))

	return parseConfidence(extractText(resp)), usage, nil
}

func parseConfidence(text string) model.ConfidenceReport {
	var wire struct {
		MatchPercentage       any    `json:"matchPercentage"`
		MatchingFeatures      any    `json:"matchingFeatures"`
		CreatorStyle          string `json:"creatorStyle"`
		ConfidenceExplanation string `json:"confidenceExplanation"`
	}

	if err := unmarshalModelJSON(text, &wire); err != nil {
		zap.L().Warn("confidence: failed to parse analysis JSON", zap.Error(err))
		return model.ConfidenceReport{
			MatchPercentage:       0,
			MatchingFeatures:      []string{},
			CreatorStyle:          fallbackCreatorStyle,
			ConfidenceExplanation: fallbackConfidenceExplanation,
		}
	}

	pct, ok := toFloat64(wire.MatchPercentage)
	if !ok {
		pct = 0
	}
	features := toStringSlice(wire.MatchingFeatures)
	style := wire.CreatorStyle
	if style == "" {
		style = defaultCreatorStyle
	}
	explanation := wire.ConfidenceExplanation
	if explanation == "" {
		explanation = defaultConfidenceExplanation
	}

	return model.ConfidenceReport{
		MatchPercentage:       clampScore(pct),
		MatchingFeatures:      features,
		CreatorStyle:          style,
		ConfidenceExplanation: explanation,
	}
}
