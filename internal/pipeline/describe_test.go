package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

func TestParseDescriptionWellFormed(t *testing.T) {
	text := "```json\n" + `{
		"description": "A cat sitting at a dinner table",
		"textContent": "WOMAN YELLING AT CAT",
		"visualElements": ["cat", "table", "salad"],
		"theme": "confusion"
	}` + "\n```"

	got := parseDescription(text)
	assert.Equal(t, "A cat sitting at a dinner table", got.Description)
	assert.Equal(t, "WOMAN YELLING AT CAT", got.TextContent)
	assert.Equal(t, []string{"cat", "table", "salad"}, got.VisualElements)
	assert.Equal(t, "confusion", got.Theme)
}

func TestParseDescriptionPlainProseFallsBack(t *testing.T) {
	text := "This appears to be a meme about cats but I cannot produce JSON."

	got := parseDescription(text)
	// Raw response text stands in for the description.
	assert.Equal(t, text, got.Description)
	assert.Equal(t, "Text extraction failed", got.TextContent)
	assert.Equal(t, []string{"Unknown"}, got.VisualElements)
	assert.Equal(t, "Unknown", got.Theme)
}

func TestParseDescriptionEmptyResponse(t *testing.T) {
	got := parseDescription("")
	assert.Equal(t, "Analysis failed or returned empty response.", got.Description)
	assert.NotEmpty(t, got.TextContent)
	assert.NotEmpty(t, got.VisualElements)
	assert.NotEmpty(t, got.Theme)
}

// No field is ever empty after validation, whatever the model omits.
func TestParseDescriptionMissingFieldsPlaceheld(t *testing.T) {
	got := parseDescription(`{"description": "just a description"}`)
	assert.Equal(t, "just a description", got.Description)
	assert.Equal(t, "Unknown", got.TextContent)
	assert.Equal(t, []string{"Unknown"}, got.VisualElements)
	assert.Equal(t, "Unknown", got.Theme)
}

func TestDescribeMediaSendsImageBlock(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		if len(req.Messages) != 1 || req.Messages[0].Image == nil {
			return false
		}
		img := req.Messages[0].Image
		return img.MediaType == "image/png" && img.Data == "aGVsbG8="
	})).Return(textResponse(`{"description":"d","textContent":"t","visualElements":["v"],"theme":"th"}`), nil)

	payload := model.MediaPayload{Base64Data: "aGVsbG8=", MimeType: "image/png"}
	got, usage, err := DescribeMedia(context.Background(), payload, client, testModelConfig())
	require.NoError(t, err)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, int64(100), usage.InputTokens)
	client.AssertExpectations(t)
}

func TestDescribeMediaFatalOnCallError(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, _, err := DescribeMedia(context.Background(), model.MediaPayload{MimeType: "image/jpeg"}, client, testModelConfig())
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDescribe, stageErr.Stage)
}
