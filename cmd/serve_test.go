package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memetrace/attribution/internal/claim"
	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/internal/pipeline"
	"github.com/memetrace/attribution/pkg/anthropic"
)

// stubClient returns canned responses keyed by prompt content.
type stubClient struct {
	fn func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (c *stubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return c.fn(req)
}

func textResp(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 10},
	}
}

// stubStore is an in-memory store for handler tests.
type stubStore struct {
	records []model.DatasetRecord
	runs    map[string]*model.Run
	listErr error
}

func newStubStore(records ...model.DatasetRecord) *stubStore {
	return &stubStore{records: records, runs: map[string]*model.Run{}}
}

func (s *stubStore) ListDatasetRecords(context.Context) ([]model.DatasetRecord, error) {
	return s.records, s.listErr
}

func (s *stubStore) CountDatasetRecords(context.Context) (int, error) {
	return len(s.records), nil
}

func (s *stubStore) InsertDatasetRecords(_ context.Context, records []model.DatasetRecord) (int, error) {
	s.records = append(s.records, records...)
	return len(records), nil
}

func (s *stubStore) CreateRun(_ context.Context, mimeType string) (*model.Run, error) {
	run := &model.Run{ID: "test-run", MimeType: mimeType, Status: model.RunStatusIdle, CreatedAt: time.Now()}
	s.runs[run.ID] = run
	return run, nil
}

func (s *stubStore) UpdateRunStatus(_ context.Context, runID string, status model.RunStatus) error {
	if run, ok := s.runs[runID]; ok {
		run.Status = status
	}
	return nil
}

func (s *stubStore) CompleteRun(_ context.Context, runID string, result *model.AttributionResult) error {
	if run, ok := s.runs[runID]; ok {
		run.Status = model.RunStatusComplete
		run.Result = result
	}
	return nil
}

func (s *stubStore) FailRun(_ context.Context, runID string, cause string) error {
	if run, ok := s.runs[runID]; ok {
		run.Status = model.RunStatusFailed
		run.Error = cause
	}
	return nil
}

func (s *stubStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	if run, ok := s.runs[runID]; ok {
		return run, nil
	}
	return nil, errors.New("run not found")
}

func (s *stubStore) Migrate(context.Context) error { return nil }
func (s *stubStore) Close() error                  { return nil }

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func setupTestEnv(t *testing.T, st *stubStore, client anthropic.Client) *appEnv {
	t.Helper()
	cfg = &config.Config{
		Anthropic: config.AnthropicConfig{
			VisionModel: "claude-sonnet-4-5-20250929",
			TextModel:   "claude-haiku-4-5-20251001",
			MaxTokens:   1024,
		},
		Pipeline: config.PipelineConfig{StageTimeoutSecs: 10, SummaryTruncateChars: 300, FallbackCandidates: 3},
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}, MaxUploadBytes: 1 << 20},
	}
	return &appEnv{
		Store:    st,
		Pipeline: pipeline.New(client, st, cfg),
		Drafter:  claim.NewDrafter(client, cfg.Anthropic),
	}
}

// stagedClient answers each pipeline stage in a happy-path run.
func stagedClient() *stubClient {
	return &stubClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		msg := req.Messages[0]
		switch {
		case msg.Image != nil:
			return textResp(`{"description":"a cat meme","textContent":"CAT","visualElements":["cat"],"theme":"cats"}`), nil
		case strings.Contains(msg.Text, "matching meme descriptions"):
			return textResp(`{"matches":[1],"explanations":{"1":"same cat"}}`), nil
		case strings.Contains(msg.Text, "analyzing meme similarity"):
			return textResp(`{"matchIndex":1,"explanation":"closest","similarityScore":91}`), nil
		default:
			return textResp(`{"matchPercentage":85,"matchingFeatures":["cat"],"creatorStyle":"chaotic","confidenceExplanation":"high overlap"}`), nil
		}
	}}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t, newStubStore(), stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeMultipartUpload(t *testing.T) {
	st := newStubStore(model.DatasetRecord{
		ID: 1, CreatorUsername: "catlord", UploadDate: "2024-03-01", Description: "cat meme",
	})
	env := setupTestEnv(t, st, stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "meme.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/analyze", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result model.AttributionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "test-run", result.RunID)
	assert.Equal(t, "catlord", result.FinalMatch.Creator)
	assert.Equal(t, float64(91), result.FinalMatch.SimilarityScore)
	assert.Equal(t, float64(85), result.MatchResult.Percentage)

	run, err := st.GetRun(context.Background(), "test-run")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	env := setupTestEnv(t, newStubStore(), stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeInferenceFailure(t *testing.T) {
	client := &stubClient{fn: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return nil, errors.New("upstream unavailable")
	}}
	st := newStubStore()
	env := setupTestEnv(t, st, client)
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("image", "meme.png")
	_, _ = part.Write(pngBytes)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/analyze", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	run, err := st.GetRun(context.Background(), "test-run")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestClaimEndpointFallsBackOnMissingData(t *testing.T) {
	env := setupTestEnv(t, newStubStore(), stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/claim", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var draft model.ClaimDraft
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&draft))
	assert.NotEmpty(t, draft.Subject)
	assert.NotEmpty(t, draft.Body)
	assert.Equal(t, "Missing required analysis data", draft.Note)
}

func TestDatasetEndpoint(t *testing.T) {
	st := newStubStore(
		model.DatasetRecord{ID: 1, CreatorUsername: "a"},
		model.DatasetRecord{ID: 2, CreatorUsername: "b"},
	)
	env := setupTestEnv(t, st, stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/dataset")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Count   int                   `json:"count"`
		Records []model.DatasetRecord `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out.Count)
	assert.Len(t, out.Records, 2)
}

func TestGetRunEndpoint(t *testing.T) {
	st := newStubStore()
	_, err := st.CreateRun(context.Background(), "image/png")
	require.NoError(t, err)

	env := setupTestEnv(t, st, stagedClient())
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs/test-run")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/runs/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
