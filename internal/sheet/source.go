// Package sheet reads tables of game records from Google Sheets or local CSV files.
package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source produces rows of cells for a named range. The first row is a header.
type Source interface {
	Rows(ctx context.Context, rangeSpec string) ([][]string, error)
}

// SheetsSource reads ranges from one Google spreadsheet.
type SheetsSource struct {
	Service       *sheets.Service
	SpreadsheetID string
}

// NewSheetsSource connects to the Sheets API with read-only scope.
// An empty credentials path falls back to application default credentials.
func NewSheetsSource(ctx context.Context, spreadsheetID, credentials string) (*SheetsSource, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsSource{Service: srv, SpreadsheetID: spreadsheetID}, nil
}

// Rows fetches the unformatted values of a range, such as "Training!A1:H".
func (s *SheetsSource) Rows(ctx context.Context, rangeSpec string) ([][]string, error) {
	resp, err := s.Service.Spreadsheets.Values.Get(s.SpreadsheetID, rangeSpec).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading range \"%s\" of sheet %s: %w", rangeSpec, s.SpreadsheetID, err)
	}
	log.Debugf("read %d rows from %s!%s", len(resp.Values), s.SpreadsheetID, rangeSpec)
	return Strings(resp.Values), nil
}

// Strings converts API cell values to strings.
func Strings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			switch x := v.(type) {
			case nil:
				out[i][j] = ""
			case string:
				out[i][j] = x
			case float64:
				out[i][j] = strconv.FormatFloat(x, 'g', -1, 64)
			case bool:
				out[i][j] = strconv.FormatBool(x)
			default:
				out[i][j] = fmt.Sprint(x)
			}
		}
	}
	return out
}

// CSVSource reads a whole local CSV file. The range is ignored.
type CSVSource struct {
	Path string
}

// Rows reads every record of the file. Records may have differing lengths.
func (s CSVSource) Rows(_ context.Context, _ string) ([][]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// Open picks a source for an identifier: paths ending in .csv are local files, anything else is a spreadsheet ID.
func Open(ctx context.Context, id, credentials string) (Source, error) {
	if id == "" {
		return nil, fmt.Errorf("empty data source identifier")
	}
	if strings.HasSuffix(strings.ToLower(id), ".csv") {
		return CSVSource{Path: id}, nil
	}
	return NewSheetsSource(ctx, id, credentials)
}
