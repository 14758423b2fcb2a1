// Package host defines the contracts the rendering core needs from the
// surrounding content repository. The repository itself (page store, field
// definitions, template registry) is owned by the host application; this
// package only names the seams.
package host

import (
	"context"

	"github.com/frameless-media/datatables/pkg/core"
)

// Record is one content record exposed by the repository.
type Record interface {
	// ID returns the stable record identifier.
	ID() int64

	// Get returns the raw value of a property or field by name, or nil
	// when the record has no such value. Standard properties (id, name,
	// created, modified, parent, url, status) resolve here too.
	Get(name string) any

	// Data returns the record's full property/field map, used by the
	// metadata column.
	Data() map[string]any
}

// Repository supplies records by template name plus an opaque filter string.
// The filter is passed through verbatim; its syntax belongs to the host.
type Repository interface {
	FindRecords(ctx context.Context, template, filter string, limit, offset int) ([]Record, error)
	CountRecords(ctx context.Context, template, filter string) (int, error)
}

// FieldMeta describes one repository field.
type FieldMeta struct {
	// DeclaredType is the host's type identifier for the field, e.g.
	// "text", "integer", "pageref".
	DeclaredType string

	// Label is the human display label declared on the field.
	Label string
}

// FieldRegistry exposes field metadata by field name.
type FieldRegistry interface {
	GetFieldMeta(name string) (FieldMeta, bool)
}

// TemplateRegistry answers whether a record template exists.
type TemplateRegistry interface {
	HasTemplate(name string) bool
}

// InstanceStore persists table instances. The save path of the host calls
// the engine's sync entry point after a successful store.
type InstanceStore interface {
	ListInstances(ctx context.Context) ([]core.TableInstance, error)
	GetInstance(ctx context.Context, name string) (*core.TableInstance, error)
	SaveInstance(ctx context.Context, inst *core.TableInstance) error
	DeleteInstance(ctx context.Context, name string) error
}

// Host bundles every contract a full repository implementation provides.
// The bundled memory and sqlite hosts both satisfy it; embedders may wire
// the four seams separately instead.
type Host interface {
	Repository
	FieldRegistry
	TemplateRegistry
	InstanceStore
}

// RecordRef is a reference to another record, as surfaced in record values
// for parent properties and record-reference fields.
type RecordRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FileRef is one file or image attachment. Width is zero for non-images.
type FileRef struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Width int    `json:"width,omitempty"`
}
