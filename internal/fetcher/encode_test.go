package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMediaSniffsJPEG(t *testing.T) {
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...)

	payload, err := EncodeMedia(jpeg)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", payload.MimeType)
	assert.NotEmpty(t, payload.Base64Data)
}

func TestEncodeMediaRejectsNonImage(t *testing.T) {
	_, err := EncodeMedia([]byte("just some text, not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported media type")
}

func TestEncodeMediaRejectsEmpty(t *testing.T) {
	_, err := EncodeMedia(nil)
	assert.Error(t, err)
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	payload, err := EncodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MimeType)

	_, err = EncodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
