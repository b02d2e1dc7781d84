package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func testCfg() config.AnthropicConfig {
	return config.AnthropicConfig{TextModel: "claude-haiku-4-5-20251001", MaxTokens: 2048}
}

func validInputs() (model.ContentDescription, model.FinalMatch) {
	return model.ContentDescription{Description: "a reposted cat meme"},
		model.FinalMatch{
			ID:         7,
			Creator:    "catlord",
			UploadDate: "2024-03-01",
			PostLink:   "https://example.com/p/1",
		}
}

func TestDraftWellFormed(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "```json\n{\"subject\": \"Copyright Claim\", \"body\": \"Dear team, ...\"}\n```"}},
	}, nil)

	analysis, match := validInputs()
	draft := NewDrafter(client, testCfg()).Draft(context.Background(), analysis, match)
	assert.Equal(t, "Copyright Claim", draft.Subject)
	assert.Equal(t, "Dear team, ...", draft.Body)
	assert.Empty(t, draft.Note)
}

func TestDraftMissingInputsSkipsInference(t *testing.T) {
	client := new(mockClient)

	draft := NewDrafter(client, testCfg()).Draft(context.Background(), model.ContentDescription{}, model.FinalMatch{ID: -1})
	assert.Equal(t, fallbackSubject, draft.Subject)
	assert.Equal(t, fallbackBody, draft.Body)
	assert.Equal(t, "Missing required analysis data", draft.Note)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDraftInferenceErrorFallsBack(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	analysis, match := validInputs()
	draft := NewDrafter(client, testCfg()).Draft(context.Background(), analysis, match)
	assert.Equal(t, fallbackSubject, draft.Subject)
	assert.Contains(t, draft.Note, "rate limited")
}

func TestDraftMalformedResponseFallsBack(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"subject": "s only, no body"}`}},
	}, nil)

	analysis, match := validInputs()
	draft := NewDrafter(client, testCfg()).Draft(context.Background(), analysis, match)
	require.Equal(t, fallbackSubject, draft.Subject)
	assert.NotEmpty(t, draft.Note)
}
