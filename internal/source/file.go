package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/trychroma/gtm-cli/internal/model"
)

// FileSource reads leads from a CSV, XLSX, or JSON file. The format is
// inferred from the file extension.
type FileSource struct {
	path string
}

// NewFileSource creates a file adapter for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.path)
}

func (s *FileSource) Fetch(_ context.Context) ([]model.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".csv":
		return s.fetchCSV()
	case ".xlsx":
		return s.fetchXLSX()
	case ".json":
		return s.fetchJSON()
	default:
		return nil, eris.Errorf("source: unsupported file type %q", filepath.Ext(s.path))
	}
}

func (s *FileSource) fetchCSV() ([]model.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv header")
	}

	var records []model.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "source: read csv row")
		}
		records = append(records, rowRecord(s.Name(), header, row))
	}
	return records, nil
}

func (s *FileSource) fetchXLSX() ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "source: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("source: xlsx file has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	var records []model.RawRecord
	for _, row := range sheet.Rows[1:] {
		records = append(records, rowRecord(s.Name(), header, rowToStrings(row)))
	}
	return records, nil
}

func (s *FileSource) fetchJSON() ([]model.RawRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "source: read json")
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		// Allow a single top-level object as well as an array.
		var row map[string]any
		if err2 := json.Unmarshal(data, &row); err2 != nil {
			return nil, eris.Wrap(err, "source: parse json")
		}
		rows = []map[string]any{row}
	}

	records := make([]model.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.RawRecord{Source: s.Name(), Fields: row})
	}
	return records, nil
}

// rowRecord zips a header row and a data row into a field map. Short rows
// leave trailing columns unset; extra cells are dropped.
func rowRecord(source string, header, row []string) model.RawRecord {
	fields := make(map[string]any, len(header))
	for i, key := range header {
		if key == "" || i >= len(row) {
			continue
		}
		fields[key] = row[i]
	}
	return model.RawRecord{Source: source, Fields: fields}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
