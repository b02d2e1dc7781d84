package fetcher

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/memetrace/attribution/internal/config"
)

// pngHeader is the 8-byte PNG signature plus padding so content sniffing
// identifies the payload as image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		TimeoutSecs:   5,
		MaxRetries:    3,
		RatePerSec:    100,
		MaxMediaBytes: 1 << 20,
		UserAgent:     "attribution-test/1.0",
	}
}

func TestFetchMediaSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "attribution-test/1.0", r.UserAgent())
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testFetchConfig())
	payload, err := f.FetchMedia(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), payload.Base64Data)
}

func TestFetchMediaRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testFetchConfig())
	payload, err := f.FetchMedia(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MimeType)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchMediaNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewHTTPFetcher(testFetchConfig())
	_, err := f.FetchMedia(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchMediaSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngHeader)
		_, _ = w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxMediaBytes = 16
	f := NewHTTPFetcher(cfg)
	_, err := f.FetchMedia(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestAdaptiveLimiterAdjustsRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnRateLimit()
	assert.Equal(t, rate.Limit(5), lim.Limit())

	lim.OnRateLimit()
	lim.OnRateLimit()
	// Never drops below a quarter of the initial rate.
	assert.Equal(t, rate.Limit(2.5), lim.Limit())

	for range 20 {
		lim.OnSuccess()
	}
	// Never climbs above twice the initial rate.
	assert.Equal(t, rate.Limit(20), lim.Limit())
}
