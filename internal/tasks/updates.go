package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Preparing Phase = iota
	Authenticating
	Fetching
	Deduplicating
	Appending
	Committing
	Enriching
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Authenticating:
		return "authenticating"
	case Fetching:
		return "fetching"
	case Deduplicating:
		return "deduplicating"
	case Appending:
		return "appending"
	case Committing:
		return "committing"
	case Enriching:
		return "enriching"
	default:
		return ""
	}
}

func preparingUpdate(sheetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Preparing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Preparing sheet %s...", sheetID),
	}
}

func authenticatingUpdate(accountID string) ProgressUpdate {
	msg := "Refreshing provider access token..."
	if accountID != "" {
		msg = fmt.Sprintf("Refreshing provider access token for %s...", accountID)
	}
	return ProgressUpdate{
		Phase:   Authenticating,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func fetchingUpdate(afterMs int64) ProgressUpdate {
	msg := "Fetching listening history..."
	if afterMs > 0 {
		msg = fmt.Sprintf("Fetching listening history after %d...", afterMs)
	}
	return ProgressUpdate{
		Phase:   Fetching,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func deduplicatingUpdate(fetched, windowSize int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Deduplicating,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking %d plays against %d recent keys...", fetched, windowSize),
	}
}

func appendingUpdate(rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Appending,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Appending %d new rows...", rows),
	}
}

func committingUpdate(cursor int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Committing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Advancing cursor to %d...", cursor),
	}
}

func enrichingUpdate(step, total int, kind string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enriching,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s metadata...", step, total, kind),
	}
}
