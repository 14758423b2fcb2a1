// Package fieldtype maps a column's data source to a formatter type.
//
// The host's field registry reports declared types as free-form strings;
// this package closes them into a fixed enum so that every formatter type
// has exactly one built-in default stub. Host types with no mapping fall
// back to TypeGeneric (escape and stringify) instead of failing.
package fieldtype

import "github.com/frameless-media/datatables/internal/host"

// Type identifies one formatter variant.
type Type string

const (
	// TypeMetadata is the synthetic type for the "meta" column.
	TypeMetadata Type = "metadata"

	// Standard record properties, each with bespoke default behavior.
	TypeID       Type = "prop.id"
	TypeName     Type = "prop.name"
	TypeCreated  Type = "prop.created"
	TypeModified Type = "prop.modified"
	TypeParent   Type = "prop.parent"
	TypeURL      Type = "prop.url"
	TypeStatus   Type = "prop.status"

	// Field-backed types.
	TypeText        Type = "text"
	TypeTextarea    Type = "textarea"
	TypeInteger     Type = "integer"
	TypeFloat       Type = "float"
	TypeCheckbox    Type = "checkbox"
	TypeOptions     Type = "options"
	TypePageRef     Type = "pageref"
	TypeFile        Type = "file"
	TypeImage       Type = "image"
	TypeDatetime    Type = "datetime"
	TypeEmail       Type = "email"
	TypeExternalURL Type = "exturl"
	TypeRepeater    Type = "repeater"

	// TypeGeneric is the escape-and-stringify fallback for declared types
	// with no specific mapping.
	TypeGeneric Type = "generic"
)

// propTypes maps standard property names to their formatter types.
var propTypes = map[string]Type{
	"id":       TypeID,
	"name":     TypeName,
	"created":  TypeCreated,
	"modified": TypeModified,
	"parent":   TypeParent,
	"url":      TypeURL,
	"status":   TypeStatus,
}

// declaredTypes maps host declared-type identifiers to formatter types.
// Aliases from common host vocabularies are folded in.
var declaredTypes = map[string]Type{
	"text":     TypeText,
	"textarea": TypeTextarea,
	"longtext": TypeTextarea,
	"integer":  TypeInteger,
	"int":      TypeInteger,
	"float":    TypeFloat,
	"decimal":  TypeFloat,
	"checkbox": TypeCheckbox,
	"toggle":   TypeCheckbox,
	"options":  TypeOptions,
	"select":   TypeOptions,
	"pageref":  TypePageRef,
	"page":     TypePageRef,
	"file":     TypeFile,
	"image":    TypeImage,
	"datetime": TypeDatetime,
	"date":     TypeDatetime,
	"time":     TypeDatetime,
	"email":    TypeEmail,
	"url":      TypeExternalURL,
	"repeater": TypeRepeater,
	"table":    TypeRepeater,
}

// Classifier resolves source names to formatter types.
type Classifier struct {
	fields host.FieldRegistry
}

// NewClassifier creates a classifier over the host field registry.
func NewClassifier(fields host.FieldRegistry) *Classifier {
	return &Classifier{fields: fields}
}

// Classify returns the formatter type for a source name. Priority: metadata
// marker, standard property, field declared type. Returns false when the
// source is no known field at all; such columns are skipped entirely.
func (c *Classifier) Classify(sourceName string) (Type, bool) {
	if sourceName == "meta" {
		return TypeMetadata, true
	}
	if t, ok := propTypes[sourceName]; ok {
		return t, true
	}
	if c.fields == nil {
		return "", false
	}
	meta, ok := c.fields.GetFieldMeta(sourceName)
	if !ok {
		return "", false
	}
	if t, ok := declaredTypes[meta.DeclaredType]; ok {
		return t, true
	}
	return TypeGeneric, true
}
