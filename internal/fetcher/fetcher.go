// Package fetcher retrieves remote media and encodes it for the
// attribution pipeline.
package fetcher

import (
	"context"

	"github.com/memetrace/attribution/internal/model"
)

// MediaFetcher retrieves media by URL and returns it as a pipeline payload.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, rawURL string) (model.MediaPayload, error)
}
