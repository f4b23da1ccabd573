// Package scratch manages the per-execution scratch directories that
// shims use as a working area for a backend job. It exists to close the
// leak noted against the original implementation, where a failed
// execution's temporary directory was never removed: here every
// directory acquired through a Manager is released exactly once,
// regardless of which terminal state its owning execution reaches.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Manager hands out and reclaims scratch directories rooted under a
// single base directory, one per ident (typically a Target.ID).
type Manager struct {
	mu   sync.Mutex
	root string
	dirs map[string]*entry
}

type entry struct {
	path     string
	released bool
}

// NewManager constructs a Manager rooted at root, creating it if
// necessary.
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("scratch: %w", err)
	}
	return &Manager{root: root, dirs: make(map[string]*entry)}, nil
}

// Acquire creates (or re-creates) and returns the scratch directory for
// ident. Calling Acquire twice for the same, not-yet-released ident
// returns the existing path unchanged.
func (m *Manager) Acquire(ident string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.dirs[ident]; ok && !e.released {
		return e.path, nil
	}

	path := filepath.Join(m.root, sanitize(ident))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("scratch: acquire %s: %w", ident, err)
	}

	m.dirs[ident] = &entry{path: path}
	return path, nil
}

// Release removes the scratch directory for ident, if one was acquired
// and not already released. It is safe to call more than once (e.g. from
// a defer alongside an explicit cleanup-on-success path); only the first
// call does any work.
func (m *Manager) Release(ident string) error {
	m.mu.Lock()
	e, ok := m.dirs[ident]
	m.mu.Unlock()
	if !ok || e.released {
		return nil
	}

	err := os.RemoveAll(e.path)

	m.mu.Lock()
	e.released = true
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("scratch: release %s: %w", ident, err)
	}
	return nil
}

// Path returns the directory acquired for ident, if any and not yet
// released.
func (m *Manager) Path(ident string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.dirs[ident]
	if !ok || e.released {
		return "", false
	}
	return e.path, true
}

func sanitize(ident string) string {
	out := make([]byte, len(ident))
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-' || c == '_':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
