package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Seen tracks order keys that were already attempted so restarts do not
// retry them. It is safe for concurrent use.
type Seen struct {
	mu   sync.Mutex
	path string
	keys map[string]int64
}

type seenFile struct {
	ChainID int64            `json:"chain_id"`
	Orders  map[string]int64 `json:"orders"`
}

// LoadSeen reads the set stored at path. A blank path keeps the set in memory
// only; a missing file yields an empty set.
func LoadSeen(path string, chainID int64) (*Seen, error) {
	s := &Seen{path: path, keys: make(map[string]int64)}
	if path == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}

	var f seenFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seen orders %s: %w", path, err)
	}
	if f.ChainID != 0 && f.ChainID != chainID {
		return nil, fmt.Errorf("seen orders %s belong to chain %d, running on %d", path, f.ChainID, chainID)
	}
	for k, ts := range f.Orders {
		s.keys[k] = ts
	}
	return s, nil
}

// Mark records key at tsMs and reports whether it was new.
func (s *Seen) Mark(key string, tsMs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = tsMs
	return true
}

// Forget drops key, for an order that was marked but never sent.
func (s *Seen) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *Seen) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Keys returns the recorded keys in sorted order.
func (s *Seen) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Save writes the set atomically (tmp file + rename).
func (s *Seen) Save(chainID int64) error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	f := seenFile{ChainID: chainID, Orders: make(map[string]int64, len(s.keys))}
	for k, ts := range s.keys {
		f.Orders[k] = ts
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
