// Package column parses a table instance's raw column spec into ordered
// column definitions.
//
// The format is one column per line:
//
//	FIELDNAME           pulls that field/property, header is its built-in label
//	LABEL=FIELDNAME     pulls FIELDNAME but shows the header as LABEL
//
// Lines naming something the host does not know are dropped silently; the
// operator may be mid-edit and the table should keep rendering.
package column

import (
	"strings"
	"unicode"

	"github.com/frameless-media/datatables/internal/host"
)

// MetaSource is the literal marker selecting the metadata column, which
// dumps the record's full data map.
const MetaSource = "meta"

// Definition is one parsed column.
type Definition struct {
	// SourceName is the raw property/field/metadata identifier.
	SourceName string

	// Label is the display header: explicit override, the field's declared
	// label, or a capitalized fallback of SourceName.
	Label string

	// Slug is the filesystem-safe identifier for the column's formatter
	// stub. Derived from the label when an override is present, else from
	// the source name.
	Slug string
}

// StandardProperties are the built-in record properties every host exposes,
// with their default header labels.
var StandardProperties = map[string]string{
	"id":       "Page ID",
	"name":     "Page Name",
	"created":  "Created Date",
	"modified": "Modified Date",
	"parent":   "Parent",
	"url":      "URL",
	"status":   "Page Status",
}

// Parser resolves field references against the host field registry.
type Parser struct {
	fields host.FieldRegistry
	props  map[string]string
}

// NewParser creates a parser using the default standard-property set.
func NewParser(fields host.FieldRegistry) *Parser {
	return &Parser{fields: fields, props: StandardProperties}
}

// NewParserWithProperties creates a parser with a custom standard-property
// label map.
func NewParserWithProperties(fields host.FieldRegistry, props map[string]string) *Parser {
	return &Parser{fields: fields, props: props}
}

// Parse turns the raw multi-line column spec into an ordered definition
// list. Invalid lines are dropped, never an error.
func (p *Parser) Parse(raw string) []Definition {
	var out []Definition

	for _, line := range splitLines(raw) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var override, source string
		if before, after, ok := strings.Cut(line, "="); ok {
			override = strings.TrimSpace(before)
			source = strings.TrimSpace(after)
		} else {
			source = line
		}

		isMeta := source == MetaSource
		_, isProp := p.props[source]
		var fieldMeta host.FieldMeta
		var isField bool
		if !isMeta && !isProp && p.fields != nil {
			fieldMeta, isField = p.fields.GetFieldMeta(source)
		}

		if !isMeta && !isProp && !isField {
			continue
		}

		var label string
		switch {
		case override != "":
			label = override
		case isProp:
			label = p.props[source]
		case isField && fieldMeta.Label != "":
			label = fieldMeta.Label
		default:
			label = capitalize(source)
		}

		slugBase := source
		if override != "" {
			slugBase = override
		}

		out = append(out, Definition{
			SourceName: source,
			Label:      label,
			Slug:       Slugify(slugBase),
		})
	}

	return out
}

// Slugify lowercases s, collapses every run of non-alphanumeric characters
// to a single underscore, and trims leading/trailing underscores. Pure and
// deterministic: the same input always yields the same slug.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// splitLines splits on \r\n, \r or \n.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
