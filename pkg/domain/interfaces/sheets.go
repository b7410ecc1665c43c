package interfaces

import "context"

// SheetsClient opens spreadsheets by name. Spreadsheets are provisioned out
// of band; a missing spreadsheet is types.ErrSpreadsheetNotFound.
type SheetsClient interface {
	OpenSpreadsheet(ctx context.Context, name string) (Spreadsheet, error)
}

// Spreadsheet is one spreadsheet document holding named worksheets.
type Spreadsheet interface {
	Name() string

	// Worksheet opens an existing worksheet by title; a missing worksheet
	// is types.ErrWorksheetNotFound.
	Worksheet(ctx context.Context, title string) (Worksheet, error)

	// AddWorksheet creates a worksheet sized rows x cols.
	AddWorksheet(ctx context.Context, title string, rows, cols int64) (Worksheet, error)
}

// Worksheet is a 2-D grid of cells. All row and column indices are 1-based.
type Worksheet interface {
	Title() string

	RowCount(ctx context.Context) (int64, error)

	// RowValues reads one row; trailing empty cells are trimmed.
	RowValues(ctx context.Context, row int64) ([]string, error)

	// InsertRow inserts values as a new row at the given position, shifting
	// existing rows down.
	InsertRow(ctx context.Context, row int64, values []string) error

	UpdateCell(ctx context.Context, row, col int64, value string) error

	DeleteRow(ctx context.Context, row int64) error

	// FindRows returns the rows whose cell in the given column equals value
	// exactly. The header row is excluded.
	FindRows(ctx context.Context, col int64, value string) ([]int64, error)
}
