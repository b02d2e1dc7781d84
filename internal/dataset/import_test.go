package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memetrace/attribution/internal/model"
)

const sampleCSV = `creator_username,upload_date,image_url,post_link,description
catlord,2024-03-01,https://example.com/1.jpg,https://example.com/p/1,original cat meme
dogfan,2024-04-12,https://example.com/2.jpg,https://example.com/p/2,"a dog, confused"
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "catlord", records[0].CreatorUsername)
	assert.Equal(t, "a dog, confused", records[1].Description)
}

func TestParseCSVColumnOrderFree(t *testing.T) {
	csv := "description,creator_username,upload_date,image_url,post_link\nd,c,2024-01-01,i,p\n"
	records, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c", records[0].CreatorUsername)
	assert.Equal(t, "d", records[0].Description)
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("creator_username,upload_date\nx,y\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestParseCSVOptionalID(t *testing.T) {
	csv := "id,creator_username,upload_date,image_url,post_link,description\n42,c,2024-01-01,i,p,d\n"
	records, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, int64(42), records[0].ID)
}

const sampleYAML = `
records:
  - id: 1
    creator_username: catlord
    upload_date: "2024-03-01"
    image_url: https://example.com/1.jpg
    post_link: https://example.com/p/1
    description: original cat meme
  - creator_username: dogfan
    upload_date: "2024-04-12"
    image_url: https://example.com/2.jpg
    post_link: https://example.com/p/2
    description: a confused dog
`

func TestParseYAML(t *testing.T) {
	records, err := ParseYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "dogfan", records[1].CreatorUsername)
}

func TestNormalizeComposesText(t *testing.T) {
	// "é" as 'e' + combining acute accent normalizes to the composed form.
	decomposed := "caf" + "é"
	rec := Normalize(model.DatasetRecord{CreatorUsername: decomposed, Description: decomposed})
	assert.Equal(t, "café", rec.CreatorUsername)
	assert.Equal(t, "café", rec.Description)
}

func TestLoadFileDispatch(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	records, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	yamlPath := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))
	records, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	txtPath := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.Error(t, err)
}
