package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// googleClient implements interfaces.SheetsClient on the Google Sheets API.
// Spreadsheets are opened by document name via a Drive metadata query, the
// way operators reference them (IDs are never configured directly).
type googleClient struct {
	sheets *sheets.Service
	drive  *drive.Service
}

var _ interfaces.SheetsClient = &googleClient{}

// NewGoogle creates a Sheets client authenticated with a service account
// credentials file.
func NewGoogle(ctx context.Context, credentialsFile string) (interfaces.SheetsClient, error) {
	if credentialsFile == "" {
		return nil, goerr.New("Google credentials file is required")
	}

	sheetsSvc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create sheets service")
	}

	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveMetadataReadonlyScope),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create drive service")
	}

	return &googleClient{
		sheets: sheetsSvc,
		drive:  driveSvc,
	}, nil
}

func (c *googleClient) OpenSpreadsheet(ctx context.Context, name string) (interfaces.Spreadsheet, error) {
	query := fmt.Sprintf(
		"name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`),
	)

	list, err := c.drive.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(2).
		Context(ctx).
		Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query drive for spreadsheet",
			goerr.V(types.SpreadsheetKey, name))
	}

	if len(list.Files) == 0 {
		return nil, goerr.Wrap(types.ErrSpreadsheetNotFound, "no spreadsheet with that name",
			goerr.V(types.SpreadsheetKey, name))
	}

	return &googleSpreadsheet{
		client: c,
		id:     list.Files[0].Id,
		name:   name,
	}, nil
}

type googleSpreadsheet struct {
	client *googleClient
	id     string
	name   string
}

func (s *googleSpreadsheet) Name() string { return s.name }

func (s *googleSpreadsheet) Worksheet(ctx context.Context, title string) (interfaces.Worksheet, error) {
	doc, err := s.client.sheets.Spreadsheets.Get(s.id).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get spreadsheet",
			goerr.V(types.SpreadsheetKey, s.name))
	}

	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return &googleWorksheet{
				client:        s.client,
				spreadsheetID: s.id,
				sheetID:       sheet.Properties.SheetId,
				title:         title,
			}, nil
		}
	}

	return nil, goerr.Wrap(types.ErrWorksheetNotFound, "no worksheet with that title",
		goerr.V(types.SpreadsheetKey, s.name), goerr.V(types.WorksheetKey, title))
}

func (s *googleSpreadsheet) AddWorksheet(ctx context.Context, title string, rows, cols int64) (interfaces.Worksheet, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}

	resp, err := s.client.sheets.Spreadsheets.BatchUpdate(s.id, req).Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(types.ErrWorksheetProvision, "failed to add worksheet",
			goerr.V(types.SpreadsheetKey, s.name), goerr.V(types.WorksheetKey, title),
			goerr.V("cause", err.Error()))
	}

	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, goerr.Wrap(types.ErrWorksheetProvision, "addSheet reply missing properties",
			goerr.V(types.WorksheetKey, title))
	}

	return &googleWorksheet{
		client:        s.client,
		spreadsheetID: s.id,
		sheetID:       resp.Replies[0].AddSheet.Properties.SheetId,
		title:         title,
	}, nil
}

type googleWorksheet struct {
	client        *googleClient
	spreadsheetID string
	sheetID       int64
	title         string
}

func (w *googleWorksheet) Title() string { return w.title }

func (w *googleWorksheet) RowCount(ctx context.Context) (int64, error) {
	doc, err := w.client.sheets.Spreadsheets.Get(w.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get worksheet grid size",
			goerr.V(types.WorksheetKey, w.title))
	}

	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.SheetId == w.sheetID {
			if sheet.Properties.GridProperties == nil {
				return 0, nil
			}
			return sheet.Properties.GridProperties.RowCount, nil
		}
	}

	return 0, goerr.Wrap(types.ErrWorksheetNotFound, "worksheet disappeared",
		goerr.V(types.WorksheetKey, w.title))
}

func (w *googleWorksheet) RowValues(ctx context.Context, row int64) ([]string, error) {
	rng := fmt.Sprintf("'%s'!%d:%d", w.title, row, row)
	resp, err := w.client.sheets.Spreadsheets.Values.Get(w.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read row",
			goerr.V(types.WorksheetKey, w.title), goerr.V("row", row))
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}

	values := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		values[i] = fmt.Sprint(v)
	}
	return trimTrailingEmpty(values), nil
}

func (w *googleWorksheet) InsertRow(ctx context.Context, row int64, values []string) error {
	rowCount, err := w.RowCount(ctx)
	if err != nil {
		return err
	}

	// InsertDimension cannot extend the grid; grow it instead when the
	// target row is past the last grid row.
	var req *sheets.Request
	if row > rowCount {
		req = &sheets.Request{
			AppendDimension: &sheets.AppendDimensionRequest{
				SheetId:   w.sheetID,
				Dimension: "ROWS",
				Length:    row - rowCount,
			},
		}
	} else {
		req = &sheets.Request{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    w.sheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1,
					EndIndex:   row,
				},
				InheritFromBefore: false,
			},
		}
	}

	batch := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{req}}
	if _, err := w.client.sheets.Spreadsheets.BatchUpdate(w.spreadsheetID, batch).Context(ctx).Do(); err != nil {
		return goerr.Wrap(err, "failed to insert row",
			goerr.V(types.WorksheetKey, w.title), goerr.V("row", row))
	}

	if len(values) == 0 {
		return nil
	}

	return w.writeRow(ctx, row, values)
}

func (w *googleWorksheet) writeRow(ctx context.Context, row int64, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	rng := fmt.Sprintf("'%s'!A%d", w.title, row)
	vr := &sheets.ValueRange{Values: [][]interface{}{cells}}

	_, err := w.client.sheets.Spreadsheets.Values.Update(w.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to write row values",
			goerr.V(types.WorksheetKey, w.title), goerr.V("row", row))
	}
	return nil
}

func (w *googleWorksheet) UpdateCell(ctx context.Context, row, col int64, value string) error {
	rng := fmt.Sprintf("'%s'!%s%d", w.title, colToA1(col), row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}

	_, err := w.client.sheets.Spreadsheets.Values.Update(w.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to update cell",
			goerr.V(types.WorksheetKey, w.title), goerr.V("row", row), goerr.V("col", col))
	}
	return nil
}

func (w *googleWorksheet) DeleteRow(ctx context.Context, row int64) error {
	batch := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    w.sheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1,
					EndIndex:   row,
				},
			},
		}},
	}

	if _, err := w.client.sheets.Spreadsheets.BatchUpdate(w.spreadsheetID, batch).Context(ctx).Do(); err != nil {
		return goerr.Wrap(err, "failed to delete row",
			goerr.V(types.WorksheetKey, w.title), goerr.V("row", row))
	}
	return nil
}

func (w *googleWorksheet) FindRows(ctx context.Context, col int64, value string) ([]int64, error) {
	// Scan from row 2 so the header row never matches
	colA1 := colToA1(col)
	rng := fmt.Sprintf("'%s'!%s2:%s", w.title, colA1, colA1)

	resp, err := w.client.sheets.Spreadsheets.Values.Get(w.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan column",
			goerr.V(types.WorksheetKey, w.title), goerr.V("col", col))
	}

	var rows []int64
	for i, cells := range resp.Values {
		if len(cells) > 0 && fmt.Sprint(cells[0]) == value {
			rows = append(rows, int64(i)+2)
		}
	}
	return rows, nil
}

// colToA1 converts a 1-based column number to its A1 letter form
func colToA1(col int64) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func trimTrailingEmpty(values []string) []string {
	end := len(values)
	for end > 0 && values[end-1] == "" {
		end--
	}
	return values[:end]
}
