package ingest

import "fmt"

// Mode selects which fetch a run performs for every symbol.
type Mode int

const (
	Latest Mode = iota
	Historical
)

func (m Mode) String() string {
	switch m {
	case Latest:
		return "latest"
	case Historical:
		return "historical"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}
