// Package knowledge implements the learned-override table: an exact-match
// mapping from normalized user input to a fixed response, consulted before
// any model call.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kalambet/awarebot/internal/docstore"
)

// ErrEmptyEntry is returned when learning an empty key or response.
var ErrEmptyEntry = errors.New("knowledge key and response must be non-empty")

// defaultEntries is the fixed entry set the table starts from (and returns
// to on Reset).
func defaultEntries() map[string]string {
	return map[string]string{
		"help": "I'm an AI assistant. Ask me anything! Use the operator commands for error analysis and log management.",
	}
}

// Normalize folds case and trims surrounding whitespace, the canonical key
// form for the table.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Base is the override table, persisted to its document after every
// mutation. Lookup has no observable side effects.
type Base struct {
	store *docstore.Store
	name  string

	mu      sync.RWMutex
	entries map[string]string
}

// Open loads the table from its document in store, seeding the default
// entry set if the document is missing or corrupt.
func Open(store *docstore.Store, name string) *Base {
	return &Base{
		store:   store,
		name:    name,
		entries: docstore.Load(store, name, defaultEntries()),
	}
}

// Lookup normalizes input and returns the stored response if present.
func (b *Base) Lookup(input string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	resp, ok := b.entries[Normalize(input)]
	return resp, ok
}

// Learn stores (or overwrites) the response for the normalized key and
// persists the table. Empty keys or responses are rejected without
// mutation.
func (b *Base) Learn(key, response string) error {
	key = Normalize(key)
	response = strings.TrimSpace(response)
	if key == "" || response == "" {
		return ErrEmptyEntry
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = response
	if err := b.store.Save(b.name, b.entries); err != nil {
		return fmt.Errorf("persisting knowledge: %w", err)
	}
	return nil
}

// Reset replaces the table with the default entry set and persists.
func (b *Base) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = defaultEntries()
	if err := b.store.Save(b.name, b.entries); err != nil {
		return fmt.Errorf("persisting knowledge reset: %w", err)
	}
	return nil
}

// Entries returns a copy of the table for display.
func (b *Base) Entries() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
