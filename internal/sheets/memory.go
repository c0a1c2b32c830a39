package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/playlog/internal/shared"
)

// MemoryOpener implements [Opener] over a fixed set of in-memory
// spreadsheets, creating them on first open. Used by tests and dry runs.
type MemoryOpener struct {
	mu     sync.Mutex
	sheets map[string]*MemorySpreadsheet
}

// NewMemoryOpener creates an empty MemoryOpener.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{sheets: make(map[string]*MemorySpreadsheet)}
}

// Open returns the in-memory spreadsheet with the given id, creating it when
// absent so a dry run can exercise the full schema path.
func (o *MemoryOpener) Open(ctx context.Context, sheetID string) (Spreadsheet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ss, ok := o.sheets[sheetID]; ok {
		return ss, nil
	}
	ss := NewMemorySpreadsheet(sheetID)
	o.sheets[sheetID] = ss
	return ss, nil
}

// MemorySpreadsheet is an in-memory [Spreadsheet].
type MemorySpreadsheet struct {
	id     string
	mu     sync.Mutex
	order  []string
	tabs   map[string]*MemoryWorksheet
	hidden map[string]bool
}

// NewMemorySpreadsheet creates an empty in-memory spreadsheet.
func NewMemorySpreadsheet(id string) *MemorySpreadsheet {
	return &MemorySpreadsheet{
		id:     id,
		tabs:   make(map[string]*MemoryWorksheet),
		hidden: make(map[string]bool),
	}
}

func (s *MemorySpreadsheet) ID() string { return s.id }

func (s *MemorySpreadsheet) Worksheet(ctx context.Context, title string) (Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.tabs[title]
	if !ok {
		return nil, fmt.Errorf("%w: %q in spreadsheet %s", shared.ErrWorksheetNotFound, title, s.id)
	}
	return ws, nil
}

func (s *MemorySpreadsheet) AddWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tabs[title]; ok {
		return nil, fmt.Errorf("worksheet %q already exists", title)
	}

	ws := &MemoryWorksheet{title: title}
	s.tabs[title] = ws
	s.order = append(s.order, title)
	return ws, nil
}

func (s *MemorySpreadsheet) SetHidden(ctx context.Context, title string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tabs[title]; !ok {
		return fmt.Errorf("%w: %q in spreadsheet %s", shared.ErrWorksheetNotFound, title, s.id)
	}
	s.hidden[title] = hidden
	return nil
}

// Hidden reports whether the named worksheet is hidden.
func (s *MemorySpreadsheet) Hidden(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden[title]
}

// Titles returns worksheet titles in creation order.
func (s *MemorySpreadsheet) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// MemoryWorksheet is an in-memory [Worksheet] backed by a row grid.
type MemoryWorksheet struct {
	mu    sync.Mutex
	title string
	grid  [][]string
}

func (w *MemoryWorksheet) Title() string { return w.title }

func (w *MemoryWorksheet) RowValues(ctx context.Context, row int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if row < 1 || row > len(w.grid) {
		return nil, nil
	}
	return append([]string(nil), w.grid[row-1]...), nil
}

func (w *MemoryWorksheet) ColValues(ctx context.Context, col int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Trailing empty cells are trimmed like the live API does.
	last := -1
	column := make([]string, 0, len(w.grid))
	for i, row := range w.grid {
		cell := ""
		if col >= 1 && col <= len(row) {
			cell = row[col-1]
		}
		column = append(column, cell)
		if cell != "" {
			last = i
		}
	}
	return column[:last+1], nil
}

func (w *MemoryWorksheet) Rows(ctx context.Context) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := make([][]string, len(w.grid))
	for i, row := range w.grid {
		rows[i] = append([]string(nil), row...)
	}
	return rows, nil
}

func (w *MemoryWorksheet) UpdateRow(ctx context.Context, row int, values []string) error {
	return w.UpdateRows(ctx, row, [][]string{values})
}

func (w *MemoryWorksheet) UpdateRows(ctx context.Context, startRow int, rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if startRow < 1 {
		return fmt.Errorf("row index must be positive, got %d", startRow)
	}

	for i, values := range rows {
		idx := startRow - 1 + i
		for len(w.grid) <= idx {
			w.grid = append(w.grid, nil)
		}
		w.grid[idx] = append([]string(nil), values...)
	}
	return nil
}

func (w *MemoryWorksheet) AppendRows(ctx context.Context, rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, values := range rows {
		w.grid = append(w.grid, append([]string(nil), values...))
	}
	return nil
}

func (w *MemoryWorksheet) Resize(ctx context.Context, rows, cols int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rows < len(w.grid) {
		w.grid = w.grid[:rows]
	}
	return nil
}
