// package sheets defines narrow interfaces over a spreadsheet backend and two
// implementations: an HTTP client for the Google Sheets v4 API and an
// in-memory backend for tests and dry runs.
//
// The backend exposes only whole-row reads and whole-row replacement. There
// is no column-level atomicity and no optimistic locking; concurrent writers
// to the same spreadsheet can lose updates. The repositories package
// documents where that matters.
package sheets

import (
	"context"
	"fmt"
)

// Worksheet is one tab of a spreadsheet. Rows and columns are 1-based,
// matching the A1 notation of the underlying API.
type Worksheet interface {
	// Title returns the worksheet's tab title.
	Title() string

	// RowValues returns the cells of the given row. Trailing empty cells may
	// be omitted; callers pad as needed.
	RowValues(ctx context.Context, row int) ([]string, error)

	// ColValues returns the cells of the given column, top to bottom.
	ColValues(ctx context.Context, col int) ([]string, error)

	// Rows returns every populated row including the header.
	Rows(ctx context.Context) ([][]string, error)

	// UpdateRow replaces the cells of the given row.
	UpdateRow(ctx context.Context, row int, values []string) error

	// UpdateRows replaces a contiguous block of rows starting at startRow.
	UpdateRows(ctx context.Context, startRow int, rows [][]string) error

	// AppendRows appends rows after the last populated row.
	AppendRows(ctx context.Context, rows [][]string) error

	// Resize sets the worksheet's grid dimensions.
	Resize(ctx context.Context, rows, cols int) error
}

// Spreadsheet is one spreadsheet document containing named worksheets.
type Spreadsheet interface {
	// ID returns the spreadsheet's opaque identifier.
	ID() string

	// Worksheet returns the worksheet with the given title, or an error
	// wrapping [shared.ErrWorksheetNotFound].
	Worksheet(ctx context.Context, title string) (Worksheet, error)

	// AddWorksheet creates a new worksheet with the given title and grid size.
	AddWorksheet(ctx context.Context, title string, rows, cols int) (Worksheet, error)

	// SetHidden toggles a worksheet's visibility. Implementations that cannot
	// hide tabs return an error the caller is expected to treat as advisory.
	SetHidden(ctx context.Context, title string, hidden bool) error
}

// Opener resolves a spreadsheet identifier to a live [Spreadsheet], so the
// sync engine can open tenant sheets without knowing the backend.
type Opener interface {
	Open(ctx context.Context, sheetID string) (Spreadsheet, error)
}

// GetOrCreate returns the worksheet with the given title, creating it with
// the given grid size when missing.
func GetOrCreate(ctx context.Context, ss Spreadsheet, title string, rows, cols int) (Worksheet, error) {
	ws, err := ss.Worksheet(ctx, title)
	if err == nil {
		return ws, nil
	}

	ws, err = ss.AddWorksheet(ctx, title, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to create worksheet %q: %w", title, err)
	}
	return ws, nil
}

// colLetter converts a 1-based column index to its A1 letter form.
func colLetter(col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}
