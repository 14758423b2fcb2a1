package host

import (
	"context"
	"fmt"
	"os"

	"github.com/frameless-media/datatables/pkg/core"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape accepted by LoadFixture. It seeds templates,
// field metadata, records and table instances in one file, mainly for local
// preview and tests.
type Fixture struct {
	Templates []string                `yaml:"templates"`
	Fields    map[string]FixtureField `yaml:"fields"`
	Records   []FixtureRecord         `yaml:"records"`
	Tables    []FixtureTable          `yaml:"tables"`
}

// FixtureField declares one field's type identifier and label.
type FixtureField struct {
	Type  string `yaml:"type"`
	Label string `yaml:"label"`
}

// FixtureRecord is one record under a template.
type FixtureRecord struct {
	Template string         `yaml:"template"`
	Data     map[string]any `yaml:"data"`
}

// FixtureTable is one table instance definition.
type FixtureTable struct {
	Name           string `yaml:"name"`
	Title          string `yaml:"title"`
	SourceTemplate string `yaml:"source_template"`
	Filter         string `yaml:"filter"`
	Columns        string `yaml:"columns"`
}

// LoadFixture reads a YAML fixture file into the host.
func (h *MemoryHost) LoadFixture(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return h.ApplyFixture(&fx)
}

// ApplyFixture seeds the host from an already-parsed fixture.
func (h *MemoryHost) ApplyFixture(fx *Fixture) error {
	for _, tpl := range fx.Templates {
		h.AddTemplate(tpl)
	}
	for name, f := range fx.Fields {
		h.AddField(name, FieldMeta{DeclaredType: f.Type, Label: f.Label})
	}
	for _, rec := range fx.Records {
		if !h.HasTemplate(rec.Template) {
			return fmt.Errorf("record references unknown template %q", rec.Template)
		}
		h.AddRecord(rec.Template, rec.Data)
	}
	for _, tbl := range fx.Tables {
		inst := core.TableInstance{
			Name:           tbl.Name,
			Title:          tbl.Title,
			SourceTemplate: tbl.SourceTemplate,
			Filter:         tbl.Filter,
			ColumnsRaw:     tbl.Columns,
		}
		if err := h.SaveInstance(context.Background(), &inst); err != nil {
			return err
		}
	}
	return nil
}
