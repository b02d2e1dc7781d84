package fetcher

import (
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/memetrace/attribution/internal/model"
)

// EncodeMedia converts raw media bytes into a pipeline payload. The MIME
// type is sniffed from content, never trusted from headers or extensions.
func EncodeMedia(data []byte) (model.MediaPayload, error) {
	if len(data) == 0 {
		return model.MediaPayload{}, eris.New("fetcher: empty media")
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return model.MediaPayload{}, eris.Errorf("fetcher: unsupported media type %s", mimeType)
	}

	return model.MediaPayload{
		Base64Data: base64.StdEncoding.EncodeToString(data),
		MimeType:   mimeType,
	}, nil
}

// EncodeFile reads and encodes a local media file.
func EncodeFile(path string) (model.MediaPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.MediaPayload{}, eris.Wrapf(err, "fetcher: read %s", path)
	}
	return EncodeMedia(data)
}
