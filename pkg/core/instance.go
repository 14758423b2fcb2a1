package core

// TableInstance is one configured admin table. Instances are created and
// edited by operators; Name is the stable identifier used to namespace the
// on-disk formatter stubs.
type TableInstance struct {
	// Name is the stable, unique identifier of the instance.
	Name string

	// Title is the display title shown in the instance switcher.
	Title string

	// SourceTemplate is the record template whose records the table shows.
	SourceTemplate string

	// Filter is an optional selector constraint, passed verbatim to the
	// host repository. Never interpreted here.
	Filter string

	// ColumnsRaw is the unparsed multi-line column spec. It is the source
	// of truth and is re-parsed on every access.
	ColumnsRaw string
}

// Settings is the flat global formatting configuration handed to every
// formatter. Values are strings, numbers or bools; the core passes it
// through opaquely.
type Settings map[string]any
