package core

import "fmt"

// ValidationError reports a table instance referencing a source template
// the host does not know. Surfaced as a save-time warning; never blocks
// rendering or deletes artifacts.
type ValidationError struct {
	Instance string
	Template string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("table %q: %q is not a valid template", e.Instance, e.Template)
}

// ArtifactError reports a filesystem failure on a formatter stub. Non-fatal:
// operations continue for other columns and tables.
type ArtifactError struct {
	Op   string // "create", "delete", "rename", "read"
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }
