package memorystore

import (
	"context"
	"fmt"
	"sync"

	"coinprices/internal/model"
)

// MappingStore is an in-memory snapshot of the mapping table. It resolves
// symbols without touching the database and is refreshed once per run.
type MappingStore struct {
	mu      sync.RWMutex
	names   map[string]string
	symbols []string
}

func NewMappingStore() *MappingStore {
	return &MappingStore{
		names:   make(map[string]string),
		symbols: make([]string, 0),
	}
}

// Replace swaps the whole snapshot. When a symbol appears twice the first row wins,
// matching a LIMIT 1 lookup against the table.
func (s *MappingStore) Replace(mappings []model.Mapping) {
	names := make(map[string]string, len(mappings))
	symbols := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if _, dup := names[m.Symbol]; dup {
			continue
		}
		names[m.Symbol] = m.Name
		symbols = append(symbols, m.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = names
	s.symbols = symbols
}

// Resolve returns the provider name for symbol or wraps model.ErrSymbolNotFound.
func (s *MappingStore) Resolve(_ context.Context, symbol string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[symbol]
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", symbol, model.ErrSymbolNotFound)
	}
	return name, nil
}

// Symbols returns the mapped symbols in load order.
func (s *MappingStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s *MappingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
