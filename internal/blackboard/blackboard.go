// Package blackboard implements the shared, hierarchical key/value store
// that services use to exchange inputs, results, and log lines during a
// single workflow run.
package blackboard

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Blackboard is a tree of nested maps addressed by "/"-separated paths,
// plus an ordered log. It is safe for concurrent Get/Put/AppendTo/Log
// calls (the core itself only ever touches it from the executor
// goroutine, but the optional monitor server reads a snapshot from a
// separate goroutine, so the guard is real, not decorative).
type Blackboard struct {
	mu       sync.Mutex
	data     map[string]any
	logLines []string
	verbose  bool
}

// New creates an empty Blackboard. When verbose is set, log lines are
// also mirrored to stderr as they are appended.
func New(verbose bool) *Blackboard {
	b := &Blackboard{
		data:    make(map[string]any),
		verbose: verbose,
	}
	b.Log("log started")
	return b
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the value stored at path, or def if any segment of path is
// missing.
func (b *Blackboard) Get(path string, def any) any {
	b.mu.Lock()
	defer b.mu.Unlock()

	parts := splitPath(path)
	var cur any = b.data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		v, ok := m[p]
		if !ok {
			return def
		}
		cur = v
	}
	return cur
}

// Put sets the value at path, creating any missing intermediate maps.
func (b *Blackboard) Put(path string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(path, value)
}

func (b *Blackboard) put(path string, value any) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	d0 := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := d0[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			d0[p] = next
		}
		d0 = next
	}
	d0[parts[len(parts)-1]] = value
}

func (b *Blackboard) navigate(path string) (map[string]any, string) {
	parts := splitPath(path)
	d0 := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := d0[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			d0[p] = next
		}
		d0 = next
	}
	return d0, parts[len(parts)-1]
}

// AppendTo appends value to the list at path, initialising it to an
// empty list if absent. If value is a []any, each element is appended
// in order; any other value, including other slice types, is appended
// as a single element. When uniq is set, values already present in the
// list are skipped.
func (b *Blackboard) AppendTo(path string, value any, uniq bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d0, key := b.navigate(path)
	cur, _ := d0[key].([]any)

	items, isList := value.([]any)
	if !isList {
		items = []any{value}
	}

	for _, item := range items {
		if uniq && containsValue(cur, item) {
			continue
		}
		cur = append(cur, item)
	}
	d0[key] = cur
}

func containsValue(list []any, v any) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func timestamp() string {
	return time.Now().Format("2006-01-02T15:04:05")
}

// Log appends a timestamped line built from a printf-style format. If
// the blackboard is verbose, the line is also written to stderr.
func (b *Blackboard) Log(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	b.mu.Lock()
	line := fmt.Sprintf("%s %s", timestamp(), msg)
	b.logLines = append(b.logLines, line)
	verbose := b.verbose
	b.mu.Unlock()

	if verbose {
		fmt.Fprintf(os.Stderr, "log: %s\n", msg)
	}
}

// LogLines returns a copy of the log lines appended so far, in order.
func (b *Blackboard) LogLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.logLines))
	copy(out, b.logLines)
	return out
}

// AsDict returns a snapshot of the blackboard tree. When withLog is set,
// the top-level "log" key holds the ordered log lines; otherwise any
// preexisting "log" key is omitted from the snapshot.
func (b *Blackboard) AsDict(withLog bool) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := deepCopyMap(b.data)
	if withLog {
		lines := make([]any, len(b.logLines))
		for i, l := range b.logLines {
			lines[i] = l
		}
		out["log"] = lines
	} else {
		delete(out, "log")
	}
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = deepCopyMap(t)
		case []any:
			cp := make([]any, len(t))
			copy(cp, t)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
