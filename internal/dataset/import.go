// Package dataset loads known-post records from CSV or YAML files into the
// store. Text fields are Unicode-normalized on the way in so prompt
// summaries and model output compare consistently.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/memetrace/attribution/internal/model"
)

// csvColumns is the required header set, in any order.
var csvColumns = []string{"creator_username", "upload_date", "image_url", "post_link", "description"}

// LoadFile parses records from a CSV or YAML file based on extension.
func LoadFile(path string) ([]model.DatasetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(f)
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return nil, eris.Errorf("dataset: unsupported file type %s", filepath.Ext(path))
	}
}

// ParseCSV reads records from CSV. The first row is a header; column order
// is free but all of csvColumns must be present.
func ParseCSV(r io.Reader) ([]model.DatasetRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv header")
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvColumns {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("dataset: csv missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.DatasetRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read csv line %d", line)
		}

		rec := model.DatasetRecord{
			CreatorUsername: field(row, "creator_username"),
			UploadDate:      field(row, "upload_date"),
			ImageURL:        field(row, "image_url"),
			PostLink:        field(row, "post_link"),
			Description:     field(row, "description"),
		}
		if idCol, ok := cols["id"]; ok && idCol < len(row) && row[idCol] != "" {
			id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "dataset: csv line %d: bad id", line)
			}
			rec.ID = id
		}
		records = append(records, Normalize(rec))
	}

	return records, nil
}

// yamlFile is the on-disk YAML shape.
type yamlFile struct {
	Records []yamlRecord `yaml:"records"`
}

type yamlRecord struct {
	ID              int64  `yaml:"id"`
	CreatorUsername string `yaml:"creator_username"`
	UploadDate      string `yaml:"upload_date"`
	ImageURL        string `yaml:"image_url"`
	PostLink        string `yaml:"post_link"`
	Description     string `yaml:"description"`
}

// ParseYAML reads records from a YAML document with a top-level records list.
func ParseYAML(r io.Reader) ([]model.DatasetRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read yaml")
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "dataset: parse yaml")
	}

	records := make([]model.DatasetRecord, 0, len(file.Records))
	for _, y := range file.Records {
		records = append(records, Normalize(model.DatasetRecord{
			ID:              y.ID,
			CreatorUsername: y.CreatorUsername,
			UploadDate:      y.UploadDate,
			ImageURL:        y.ImageURL,
			PostLink:        y.PostLink,
			Description:     y.Description,
		}))
	}

	return records, nil
}

// Normalize applies NFC normalization to the record's text fields. Source
// files come from scrapes and exports with mixed composition forms.
func Normalize(rec model.DatasetRecord) model.DatasetRecord {
	rec.CreatorUsername = norm.NFC.String(rec.CreatorUsername)
	rec.Description = norm.NFC.String(rec.Description)
	return rec
}
