package sheets

import (
	"context"
	"sync"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// MemoryClient is an in-memory SheetsClient for development mode and tests.
// Spreadsheets must be provisioned explicitly, matching the real backend
// where documents are created out of band.
type MemoryClient struct {
	mu           sync.Mutex
	spreadsheets map[string]*memorySpreadsheet
}

var _ interfaces.SheetsClient = &MemoryClient{}

func NewMemory() *MemoryClient {
	return &MemoryClient{
		spreadsheets: make(map[string]*memorySpreadsheet),
	}
}

// AddSpreadsheet provisions an empty spreadsheet document
func (c *MemoryClient) AddSpreadsheet(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.spreadsheets[name]; !ok {
		c.spreadsheets[name] = &memorySpreadsheet{
			name:       name,
			worksheets: make(map[string]*MemoryWorksheet),
		}
	}
}

func (c *MemoryClient) OpenSpreadsheet(ctx context.Context, name string) (interfaces.Spreadsheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.spreadsheets[name]
	if !ok {
		return nil, goerr.Wrap(types.ErrSpreadsheetNotFound, "no spreadsheet with that name",
			goerr.V(types.SpreadsheetKey, name))
	}
	return s, nil
}

type memorySpreadsheet struct {
	mu         sync.Mutex
	name       string
	worksheets map[string]*MemoryWorksheet
}

var _ interfaces.Spreadsheet = &memorySpreadsheet{}

func (s *memorySpreadsheet) Name() string { return s.name }

func (s *memorySpreadsheet) Worksheet(ctx context.Context, title string) (interfaces.Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.worksheets[title]
	if !ok {
		return nil, goerr.Wrap(types.ErrWorksheetNotFound, "no worksheet with that title",
			goerr.V(types.SpreadsheetKey, s.name), goerr.V(types.WorksheetKey, title))
	}
	return ws, nil
}

func (s *memorySpreadsheet) AddWorksheet(ctx context.Context, title string, rows, cols int64) (interfaces.Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.worksheets[title]; ok {
		return nil, goerr.Wrap(types.ErrWorksheetProvision, "worksheet already exists",
			goerr.V(types.WorksheetKey, title))
	}

	ws := &MemoryWorksheet{
		title: title,
		cols:  cols,
		rows:  make([][]string, rows),
	}
	s.worksheets[title] = ws
	return ws, nil
}

// MemoryWorksheet is an in-memory grid. Exported so tests can seed and
// inspect rows directly.
type MemoryWorksheet struct {
	mu    sync.Mutex
	title string
	cols  int64
	rows  [][]string
}

var _ interfaces.Worksheet = &MemoryWorksheet{}

func (w *MemoryWorksheet) Title() string { return w.title }

func (w *MemoryWorksheet) RowCount(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(len(w.rows)), nil
}

func (w *MemoryWorksheet) RowValues(ctx context.Context, row int64) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if row < 1 || row > int64(len(w.rows)) {
		return nil, nil
	}

	values := make([]string, len(w.rows[row-1]))
	copy(values, w.rows[row-1])
	return trimTrailingEmpty(values), nil
}

func (w *MemoryWorksheet) InsertRow(ctx context.Context, row int64, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if row < 1 {
		return goerr.New("row index out of range", goerr.V("row", row))
	}

	newRow := make([]string, len(values))
	copy(newRow, values)

	idx := int(row - 1)
	for len(w.rows) < idx {
		w.rows = append(w.rows, nil)
	}
	w.rows = append(w.rows, nil)
	copy(w.rows[idx+1:], w.rows[idx:])
	w.rows[idx] = newRow
	return nil
}

func (w *MemoryWorksheet) UpdateCell(ctx context.Context, row, col int64, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if row < 1 || row > int64(len(w.rows)) {
		return goerr.New("row index out of range", goerr.V("row", row))
	}

	for int64(len(w.rows[row-1])) < col {
		w.rows[row-1] = append(w.rows[row-1], "")
	}
	w.rows[row-1][col-1] = value
	return nil
}

func (w *MemoryWorksheet) DeleteRow(ctx context.Context, row int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if row < 1 || row > int64(len(w.rows)) {
		return goerr.New("row index out of range", goerr.V("row", row))
	}

	w.rows = append(w.rows[:row-1], w.rows[row:]...)
	return nil
}

func (w *MemoryWorksheet) FindRows(ctx context.Context, col int64, value string) ([]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var rows []int64
	for i := 1; i < len(w.rows); i++ { // skip header row
		cells := w.rows[i]
		if int64(len(cells)) >= col && cells[col-1] == value {
			rows = append(rows, int64(i)+1)
		}
	}
	return rows, nil
}

// Rows returns a copy of the grid for test inspection
func (w *MemoryWorksheet) Rows() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		row := make([]string, len(r))
		copy(row, r)
		out[i] = row
	}
	return out
}
