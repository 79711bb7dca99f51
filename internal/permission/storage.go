package permission

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/cortexsh/cortexrun/pkg/fileutil"
)

// Store holds granted/denied Permissions in memory and persists the
// Always-scoped subset to disk. Session-scoped entries live only in the
// in-memory slice and are dropped by ClearSession; Once-scoped entries are
// never passed to Grant/Deny in the first place.
type Store struct {
	mu          sync.RWMutex
	path        string
	permissions []Permission
}

// NewStore returns a Store that persists Always-scoped grants to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// StorePath returns the path this Store persists to.
func (s *Store) StorePath() string {
	return s.path
}

// Load reads previously persisted Always-scoped permissions from disk. A
// missing file is not an error: a fresh store simply starts empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded []Permission
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = loaded
	return nil
}

// save persists only the Always-scoped permissions, at 0600. Caller must
// hold s.mu.
func (s *Store) save() error {
	persisted := make([]Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if p.Scope == Always {
			persisted = append(persisted, p)
		}
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o600)
}

// Check returns the stored Permission for an exact (tool, pattern) match,
// if any.
func (s *Store) Check(tool, pattern string) *Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.permissions {
		if s.permissions[i].Tool == tool && s.permissions[i].Pattern == pattern {
			p := s.permissions[i]
			return &p
		}
	}
	return nil
}

// ListForTool returns every stored Permission registered for tool.
func (s *Store) ListForTool(tool string) []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Permission
	for _, p := range s.permissions {
		if p.Tool == tool {
			out = append(out, p)
		}
	}
	return out
}

// List returns every stored Permission.
func (s *Store) List() []Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Permission, len(s.permissions))
	copy(out, s.permissions)
	return out
}

// Grant records perm, replacing any existing entry for the same
// (tool, pattern) pair. Once-scoped grants are accepted but never persisted
// or kept across calls other than this one returning successfully; callers
// that truly mean Once should not call Grant at all.
func (s *Store) Grant(perm Permission) error {
	if perm.Scope == Once {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(perm)

	if perm.Scope == Always {
		return s.save()
	}
	return nil
}

// Deny records a denial for (tool, pattern) at the given scope.
func (s *Store) Deny(tool, pattern string, scope Scope) error {
	return s.Grant(NewPermission(tool, pattern, Deny, scope))
}

// upsertLocked replaces an existing (tool, pattern) entry or appends perm.
// Caller must hold s.mu.
func (s *Store) upsertLocked(perm Permission) {
	for i := range s.permissions {
		if s.permissions[i].Tool == perm.Tool && s.permissions[i].Pattern == perm.Pattern {
			s.permissions[i] = perm
			return
		}
	}
	s.permissions = append(s.permissions, perm)
}

// Revoke removes any stored Permission for (tool, pattern), persisting the
// change when a removed entry was Always-scoped.
func (s *Store) Revoke(tool, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removedAlways bool
	kept := s.permissions[:0]
	for _, p := range s.permissions {
		if p.Tool == tool && p.Pattern == pattern {
			if p.Scope == Always {
				removedAlways = true
			}
			continue
		}
		kept = append(kept, p)
	}
	s.permissions = kept

	if removedAlways {
		return s.save()
	}
	return nil
}

// ClearSession drops every Session-scoped permission, leaving Always-scoped
// grants untouched.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.permissions[:0]
	for _, p := range s.permissions {
		if p.Scope != Session {
			kept = append(kept, p)
		}
	}
	s.permissions = kept
}

// ClearAll drops every stored permission, including persisted ones, and
// removes the backing file.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
