// Package levels serves per-phone task status overrides read from a JSON
// file maintained outside the application. The overrides are presentation
// data only and are never written into the completion ledger.
package levels

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"payskill/internal/models"
)

// DefaultKey holds the overrides that apply to every phone.
const DefaultKey = "default"

// Override replaces the displayed status of one task.
type Override struct {
	Status        models.CompletionStatus `json:"status,omitempty"`
	PaymentStatus models.PaymentStatus    `json:"paymentStatus,omitempty"`
}

// File is the on-disk shape: phone (or "default") to task id to override.
type File map[string]map[string]Override

// Store holds the most recently loaded overrides.
type Store struct {
	path string

	mu       sync.RWMutex
	entries  File
	onReload func()
}

// NewStore creates an empty store bound to path. Call Load to read it.
func NewStore(path string) *Store {
	return &Store{path: path, entries: File{}}
}

// Path returns the file the store reads from.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file and replaces the current overrides. A missing file
// leaves the store empty; a malformed one keeps the previous contents.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.replace(File{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read levels file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse levels file: %w", err)
	}
	if err := f.validate(); err != nil {
		return err
	}
	s.replace(f)
	return nil
}

func (s *Store) replace(f File) {
	if f == nil {
		f = File{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = f
}

// OnReload registers fn to run after every successful reload by Watch.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = fn
}

func (s *Store) reloaded() {
	s.mu.RLock()
	fn := s.onReload
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Resolve returns the overrides for phone: the default entries with the
// phone's own entries applied on top, per task.
func (s *Store) Resolve(phone string) map[string]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Override)
	for taskID, o := range s.entries[DefaultKey] {
		out[taskID] = o
	}
	if phone != DefaultKey {
		for taskID, o := range s.entries[phone] {
			out[taskID] = o
		}
	}
	return out
}

// Len returns the number of keys in the file, including the default.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (f File) validate() error {
	for key, tasks := range f {
		for taskID, o := range tasks {
			if o.Status != "" && !o.Status.Valid() {
				return fmt.Errorf("levels file: %s/%s: unknown status %q", key, taskID, o.Status)
			}
			if o.PaymentStatus != "" && !o.PaymentStatus.Valid() {
				return fmt.Errorf("levels file: %s/%s: unknown payment status %q", key, taskID, o.PaymentStatus)
			}
		}
	}
	return nil
}
