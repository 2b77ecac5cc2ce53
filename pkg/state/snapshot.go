package state

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Snapshot serializes the current tree to JSON. Used to seed a client-side
// tree from server-computed state (hydration).
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.tree)
}

// Hydrate replaces the tree with the decoded snapshot. No subscribers are
// notified: hydration runs before any binding exists.
func (s *Store) Hydrate(data []byte) error {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	return nil
}
