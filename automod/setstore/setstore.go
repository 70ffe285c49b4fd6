package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	ForbiddenWords = "forbidden-words"
	ScamKeywords   = "scam-keywords"
)

// Named lists of terms used by content rules. Lists are matched by substring, so order is preserved and duplicates are dropped.
type SetStore interface {
	// Returns the terms in the named list. An unknown list is empty, not an error.
	Terms(ctx context.Context, name string) ([]string, error)
}

type MemSetStore struct {
	mu   sync.RWMutex
	Sets map[string][]string
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string][]string),
	}
}

// Store pre-populated with the built-in forbidden-word and scam-keyword lists.
func NewDefaultSetStore() *MemSetStore {
	s := NewMemSetStore()
	s.Replace(ForbiddenWords, []string{"badword1", "badword2", "anotherbadword"})
	s.Replace(ScamKeywords, []string{
		"discord-nitro",
		"free-nitro",
		"gift",
		"giveaway",
		"steam-community",
		"discord-gift",
	})
	return s
}

func (s *MemSetStore) Terms(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.Sets[name]
	if !ok {
		// NOTE: currently returns empty when entire set isn't found
		return []string{}, nil
	}
	out := make([]string, len(l))
	copy(out, l)
	return out, nil
}

// Replaces the named list. Terms are lower-cased and trimmed; empty terms are dropped.
func (s *MemSetStore) Replace(name string, terms []string) {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sets[name] = out
}

// Loads a JSON object mapping list names to arrays of terms. Lists present in the file replace existing lists of the same name; other lists are untouched.
func (s *MemSetStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return err
	}

	for name, l := range sets {
		s.Replace(name, l)
	}
	return nil
}
