package editor

// Host is the editor-side surface the built-in tools are thin glue
// over. A real deployment implements it against the editor's native
// API; this package ships Workspace as a stand-in so the bridge runs
// and tests without an editor process.
//
// Boolean returns report whether there was an active buffer to act on.
// Tool handlers pass false straight through, which the executor's falsy
// sentinel turns into a logical failure.
type Host interface {
	// GetText returns the active buffer's full text.
	GetText() (string, bool)

	// SetText replaces the active buffer's text.
	SetText(text string) bool

	// InsertText inserts at "beginning", "end", or "cursor".
	InsertText(text, position string) bool

	// GetPath returns the active buffer's file path.
	GetPath() (string, bool)

	// Open loads path into a buffer and makes it active. A missing
	// file opens an empty buffer, matching editor new-file behavior.
	Open(path string) error

	// Save writes the active buffer to disk and returns its path.
	Save() (string, error)

	// Close discards the active buffer and activates the previously
	// opened one.
	Close() bool

	// OpenPaths lists open buffer paths in open order.
	OpenPaths() []string

	ProjectPaths() []string
	AddProjectPath(path string)
	RemoveProjectPath(path string) bool
}
