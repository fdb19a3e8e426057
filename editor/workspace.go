package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoActiveBuffer is returned by operations that need an active
// buffer when none is open.
var ErrNoActiveBuffer = errors.New("no active editor")

// buffer is one open file: its text, an insertion cursor, and whether
// it has unsaved changes.
type buffer struct {
	text   string
	cursor int
	dirty  bool
}

// Workspace is an in-memory Host implementation backed by the real
// filesystem: Open reads files from disk, Save writes through. It keeps
// the rest of the editor model (buffers, active buffer, project paths)
// in memory only.
type Workspace struct {
	mu       sync.RWMutex
	buffers  map[string]*buffer
	order    []string
	active   string
	projects []string
}

var _ Host = (*Workspace)(nil)

// NewWorkspace creates a workspace rooted at the given project paths.
func NewWorkspace(projectPaths ...string) *Workspace {
	w := &Workspace{
		buffers: make(map[string]*buffer),
	}
	for _, p := range projectPaths {
		w.AddProjectPath(p)
	}
	return w
}

// GetText returns the active buffer's text.
func (w *Workspace) GetText() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	b, ok := w.buffers[w.active]
	if !ok {
		return "", false
	}
	return b.text, true
}

// SetText replaces the active buffer's text and moves the cursor to
// the end.
func (w *Workspace) SetText(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buffers[w.active]
	if !ok {
		return false
	}
	b.text = text
	b.cursor = len(text)
	b.dirty = true
	return true
}

// InsertText inserts text at the requested position. An unknown or
// empty position means the cursor.
func (w *Workspace) InsertText(text, position string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buffers[w.active]
	if !ok {
		return false
	}

	switch position {
	case "beginning":
		b.text = text + b.text
		b.cursor = len(text)
	case "end":
		b.text += text
		b.cursor = len(b.text)
	default:
		if b.cursor < 0 || b.cursor > len(b.text) {
			b.cursor = len(b.text)
		}
		b.text = b.text[:b.cursor] + text + b.text[b.cursor:]
		b.cursor += len(text)
	}
	b.dirty = true
	return true
}

// GetPath returns the active buffer's path.
func (w *Workspace) GetPath() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active == "" {
		return "", false
	}
	return w.active, true
}

// Open loads the file at path into a buffer and activates it. Opening
// an already-open path just re-activates its buffer.
func (w *Workspace) Open(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.buffers[path]; ok {
		w.active = path
		return nil
	}

	text := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		text = string(data)
	case os.IsNotExist(err):
		// New file: start from an empty buffer.
	default:
		return fmt.Errorf("failed to read file: %w", err)
	}

	w.buffers[path] = &buffer{text: text}
	w.order = append(w.order, path)
	w.active = path
	return nil
}

// Save writes the active buffer to its file and returns the path.
func (w *Workspace) Save() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buffers[w.active]
	if !ok {
		return "", ErrNoActiveBuffer
	}

	if dir := filepath.Dir(w.active); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(w.active, []byte(b.text), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	b.dirty = false
	return w.active, nil
}

// Close discards the active buffer. The previously opened buffer, if
// any, becomes active.
func (w *Workspace) Close() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.buffers[w.active]; !ok {
		return false
	}

	delete(w.buffers, w.active)
	for i, p := range w.order {
		if p == w.active {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}

	w.active = ""
	if len(w.order) > 0 {
		w.active = w.order[len(w.order)-1]
	}
	return true
}

// OpenPaths lists the open buffer paths in open order.
func (w *Workspace) OpenPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, len(w.order))
	copy(paths, w.order)
	return paths
}

// ProjectPaths returns the project root list.
func (w *Workspace) ProjectPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, len(w.projects))
	copy(paths, w.projects)
	return paths
}

// AddProjectPath appends a project root; adding a present path is a
// no-op.
func (w *Workspace) AddProjectPath(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.projects {
		if p == path {
			return
		}
	}
	w.projects = append(w.projects, path)
}

// RemoveProjectPath drops a project root, reporting whether it was
// present.
func (w *Workspace) RemoveProjectPath(path string) bool {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.projects {
		if p == path {
			w.projects = append(w.projects[:i], w.projects[i+1:]...)
			return true
		}
	}
	return false
}
