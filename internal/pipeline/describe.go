package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

const describePrompt = `You are an AI specialized in analyzing memes. Examine this image and provide:

1. A detailed description of what's in the image
2. Any text found in the image
3. Visual elements present (people, objects, etc.)
4. The overall theme or joke of the meme

Format your response as structured JSON with the following fields:
- description: A detailed paragraph describing the whole meme
- textContent: All text found in the image
- visualElements: Array of key visual elements
- theme: The main subject or joke of the meme`

// DescribeMedia runs Stage 1: one vision inference call producing a
// structured content description of the uploaded media. Parse failures
// degrade to a structurally complete fallback description; a failed
// inference call is fatal.
func DescribeMedia(ctx context.Context, payload model.MediaPayload, client anthropic.Client, cfg config.AnthropicConfig) (model.ContentDescription, anthropic.TokenUsage, error) {
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.VisionModel,
		MaxTokens: cfg.MaxTokens,
		Messages: []anthropic.Message{
			{
				Role: "user",
				Text: describePrompt,
				Image: &anthropic.ImageBlock{
					MediaType: payload.MimeType,
					Data:      payload.Base64Data,
				},
			},
		},
	})
	if err != nil {
		return model.ContentDescription{}, anthropic.TokenUsage{}, stageFailed(StageDescribe, err)
	}

	usage := resp.Usage
	usage.LogCost(cfg.VisionModel, string(StageDescribe))

	return parseDescription(extractText(resp)), usage, nil
}

// parseDescription extracts the description JSON from raw model output,
// substituting placeholders for anything absent so every field is non-empty.
func parseDescription(text string) model.ContentDescription {
	var wire struct {
		Description    string   `json:"description"`
		TextContent    string   `json:"textContent"`
		VisualElements []string `json:"visualElements"`
		Theme          string   `json:"theme"`
	}

	if err := unmarshalModelJSON(text, &wire); err != nil {
		zap.L().Warn("describe: failed to parse description JSON", zap.Error(err))
		desc := text
		if desc == "" {
			desc = fallbackDescription
		}
		return model.ContentDescription{
			Description:    desc,
			TextContent:    fallbackTextContent,
			VisualElements: []string{fallbackUnknown},
			Theme:          fallbackUnknown,
		}
	}

	if wire.Description == "" {
		if text != "" {
			wire.Description = text
		} else {
			wire.Description = fallbackDescription
		}
	}
	if wire.TextContent == "" {
		wire.TextContent = fallbackUnknown
	}
	if len(wire.VisualElements) == 0 {
		wire.VisualElements = []string{fallbackUnknown}
	}
	if wire.Theme == "" {
		wire.Theme = fallbackUnknown
	}

	return model.ContentDescription{
		Description:    wire.Description,
		TextContent:    wire.TextContent,
		VisualElements: wire.VisualElements,
		Theme:          wire.Theme,
	}
}
