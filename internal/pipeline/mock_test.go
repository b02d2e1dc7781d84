package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

// mockClient is a testify mock of the inference client.
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

// textResponse builds a single-block response, the shape every stage parses.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// mockStore is a testify mock of the persistence layer.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListDatasetRecords(ctx context.Context) ([]model.DatasetRecord, error) {
	args := m.Called(ctx)
	if recs := args.Get(0); recs != nil {
		return recs.([]model.DatasetRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CountDatasetRecords(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) InsertDatasetRecords(ctx context.Context, records []model.DatasetRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, mimeType string) (*model.Run, error) {
	args := m.Called(ctx, mimeType)
	if run := args.Get(0); run != nil {
		return run.(*model.Run), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, result *model.AttributionResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, cause string) error {
	args := m.Called(ctx, runID, cause)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if run := args.Get(0); run != nil {
		return run.(*model.Run), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// sampleDataset returns n distinct records for index-validation tests.
func sampleDataset(n int) []model.DatasetRecord {
	recs := make([]model.DatasetRecord, n)
	for i := range recs {
		recs[i] = model.DatasetRecord{
			ID:              int64(i + 1),
			CreatorUsername: "creator" + string(rune('a'+i)),
			UploadDate:      "2024-01-01",
			ImageURL:        "https://example.com/img.jpg",
			PostLink:        "https://example.com/post",
			Description:     "sample meme description",
		}
	}
	return recs
}

func testModelConfig() config.AnthropicConfig {
	return config.AnthropicConfig{
		VisionModel: "claude-sonnet-4-5-20250929",
		TextModel:   "claude-haiku-4-5-20251001",
		MaxTokens:   2048,
	}
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		StageTimeoutSecs:     60,
		SummaryTruncateChars: 300,
		FallbackCandidates:   3,
	}
}
