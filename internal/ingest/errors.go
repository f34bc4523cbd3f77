package ingest

import "fmt"

// IngestError reports the stage that aborted a run. Symbol is empty unless
// the failure belongs to one symbol's fetch.
type IngestError struct {
	Mode   Mode
	Stage  string // "symbols", "fetch" or "upsert"
	Symbol string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("ingest %s: %s %s: %v", e.Mode, e.Stage, e.Symbol, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s: %v", e.Mode, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
