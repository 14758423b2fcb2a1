package column

import (
	"reflect"
	"testing"

	"github.com/frameless-media/datatables/internal/host"
)

func testFields() *host.MemoryHost {
	h := host.NewMemoryHost()
	h.AddField("title", host.FieldMeta{DeclaredType: "text", Label: "Title"})
	h.AddField("cost", host.FieldMeta{DeclaredType: "float", Label: "Cost"})
	h.AddField("body", host.FieldMeta{DeclaredType: "textarea", Label: "Body Text"})
	h.AddField("nolabel", host.FieldMeta{DeclaredType: "text"})
	return h
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Created Date", "created_date"},
		{"", ""},
		{"Price", "price"},
		{"  Price (EUR)  ", "price_eur"},
		{"a--b__c", "a_b_c"},
		{"___", ""},
		{"Über", "ber"},
		{"already_good", "already_good"},
		{"UPPER case", "upper_case"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Slugify("Created Date"); got != "created_date" {
			t.Fatalf("Slugify not stable on repeat %d: %q", i, got)
		}
	}
}

func TestParseBasic(t *testing.T) {
	p := NewParser(testFields())

	got := p.Parse("title\nLabel=body\nbogus_field\n")
	want := []Definition{
		{SourceName: "title", Label: "Title", Slug: "title"},
		{SourceName: "body", Label: "Label", Slug: "label"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseNewlineVariants(t *testing.T) {
	p := NewParser(testFields())

	for _, raw := range []string{"title\ncost", "title\r\ncost", "title\rcost"} {
		got := p.Parse(raw)
		if len(got) != 2 || got[0].SourceName != "title" || got[1].SourceName != "cost" {
			t.Errorf("Parse(%q) = %+v, want title,cost", raw, got)
		}
	}
}

func TestParseFirstEqualsWins(t *testing.T) {
	p := NewParser(testFields())

	// Everything after the first = is the source name; a second = makes the
	// source invalid and the line is dropped.
	got := p.Parse("Price=cost\nA=B=C")
	if len(got) != 1 {
		t.Fatalf("Parse() returned %d definitions, want 1", len(got))
	}
	if got[0].SourceName != "cost" || got[0].Label != "Price" || got[0].Slug != "price" {
		t.Errorf("Parse() = %+v", got[0])
	}
}

func TestParseStandardProperties(t *testing.T) {
	p := NewParser(testFields())

	got := p.Parse("created\nstatus\nmeta")
	want := []Definition{
		{SourceName: "created", Label: "Created Date", Slug: "created"},
		{SourceName: "status", Label: "Page Status", Slug: "status"},
		{SourceName: "meta", Label: "Meta", Slug: "meta"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParseLabelFallbacks(t *testing.T) {
	p := NewParser(testFields())

	tests := []struct {
		name string
		raw  string
		want Definition
	}{
		{"override wins over field label", "Custom=title", Definition{SourceName: "title", Label: "Custom", Slug: "custom"}},
		{"field label used without override", "body", Definition{SourceName: "body", Label: "Body Text", Slug: "body"}},
		{"capitalized fallback without field label", "nolabel", Definition{SourceName: "nolabel", Label: "Nolabel", Slug: "nolabel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseBlankAndWhitespaceLines(t *testing.T) {
	p := NewParser(testFields())

	got := p.Parse("\n\n  \ttitle  \n\n\ncost\n   \n")
	if len(got) != 2 {
		t.Fatalf("Parse() returned %d definitions, want 2: %+v", len(got), got)
	}
}

func TestParseDuplicateSourcesAllowed(t *testing.T) {
	p := NewParser(testFields())

	got := p.Parse("cost\nNet=cost\nGross=cost")
	if len(got) != 3 {
		t.Fatalf("Parse() returned %d definitions, want 3", len(got))
	}
	slugs := map[string]bool{}
	for _, d := range got {
		slugs[d.Slug] = true
	}
	if len(slugs) != 3 {
		t.Errorf("duplicate sources with different labels must get distinct slugs: %+v", got)
	}
}

func TestParseOrderPreserved(t *testing.T) {
	p := NewParser(testFields())

	got := p.Parse("status\ncost\ntitle")
	order := []string{"status", "cost", "title"}
	for i, want := range order {
		if got[i].SourceName != want {
			t.Errorf("position %d = %q, want %q", i, got[i].SourceName, want)
		}
	}
}
