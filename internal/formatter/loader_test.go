package formatter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/fieldtype"
	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/internal/stub"
	"github.com/frameless-media/datatables/pkg/core"
)

func newTestEnv(t *testing.T) (*Loader, *stub.Store) {
	t.Helper()
	h := host.NewMemoryHost()
	h.AddField("cost", host.FieldMeta{DeclaredType: "float", Label: "Cost"})
	h.AddField("title", host.FieldMeta{DeclaredType: "text", Label: "Title"})
	store := stub.NewStore(t.TempDir(), fieldtype.NewClassifier(h), nil)

	settings := core.Settings{
		"numberDecimals": 2,
		"currencyFormat": "",
		"textMaxLength":  80,
		"dateFormat":     "2006-01-02 15:04",
	}
	loader, err := NewLoader(store, settings, nil)
	if err != nil {
		t.Fatal(err)
	}
	return loader, store
}

func TestLoadGeneratesMissingStubAndFormats(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "cost", Label: "Price", Slug: "price"}

	funcs := loader.Load("products", []column.Definition{def})

	if _, err := os.Stat(store.PathFor("products", "price")); err != nil {
		t.Fatalf("stub was not generated on load: %v", err)
	}

	got, err := funcs["price"](19.9)
	if err != nil {
		t.Fatal(err)
	}
	if got != "19,90" {
		t.Errorf("price(19.9) = %q, want %q", got, "19,90")
	}
}

func TestLoadRespectsCustomStub(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "title", Label: "Title", Slug: "title"}

	path := store.PathFor("products", "title")
	custom := "def format(value, settings):\n    return \"custom:\" + str(value)\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(custom), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", []column.Definition{def})
	got, err := funcs["title"]("x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "custom:x" {
		t.Errorf("custom stub ignored: %q", got)
	}

	// The custom file must survive the load cycle untouched.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != custom {
		t.Error("load must not rewrite a well-formed custom stub")
	}
}

func TestLoadUpgradesLegacyStub(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "title", Label: "Title", Slug: "title"}

	path := store.PathFor("products", "title")
	legacy := "x = 1\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(legacy), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", []column.Definition{def})

	backup, err := os.ReadFile(filepath.Join(filepath.Dir(path), "_title.star"))
	if err != nil {
		t.Fatalf("backup missing after legacy upgrade: %v", err)
	}
	if string(backup) != legacy {
		t.Errorf("backup content = %q, want %q", backup, legacy)
	}

	// Regenerated default must work.
	got, err := funcs["title"]("hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("regenerated stub output = %q", got)
	}
}

func TestLoadBrokenStubDegradesToFallback(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "title", Label: "Title", Slug: "title"}

	// Passes the structural check but fails at exec time.
	path := store.PathFor("products", "title")
	bad := "def format(value, settings):\n    return undefined_name\n\nboom(\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(bad), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", []column.Definition{def})
	got, err := funcs["title"]("<x>")
	if err != nil {
		t.Fatal(err)
	}
	if got != "&lt;x&gt;" {
		t.Errorf("fallback output = %q, want %q", got, "&lt;x&gt;")
	}
}

func TestFormatterRuntimeErrorSurfacesToCaller(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "title", Label: "Title", Slug: "title"}

	path := store.PathFor("products", "title")
	throwing := "def format(value, settings):\n    return value[\"missing\"]\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(throwing), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", []column.Definition{def})
	if _, err := funcs["title"]("not a dict"); err == nil {
		t.Error("runtime failure must surface as an error for the renderer's fallback")
	}
}

func TestFormatterNonStringReturnIsError(t *testing.T) {
	loader, store := newTestEnv(t)
	def := column.Definition{SourceName: "title", Label: "Title", Slug: "title"}

	path := store.PathFor("products", "title")
	nonString := "def format(value, settings):\n    return 42\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(nonString), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", []column.Definition{def})
	if _, err := funcs["title"]("x"); err == nil {
		t.Error("non-string return must be an error")
	}
}

func TestRenderRowFallbackIsPerCell(t *testing.T) {
	loader, store := newTestEnv(t)
	cols := []column.Definition{
		{SourceName: "title", Label: "Title", Slug: "title"},
		{SourceName: "cost", Label: "Price", Slug: "price"},
	}

	// title stub always fails at call time; price stays the default.
	path := store.PathFor("products", "title")
	throwing := "def format(value, settings):\n    fail(\"nope\")\n"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(throwing), 0o664); err != nil {
		t.Fatal(err)
	}

	funcs := loader.Load("products", cols)
	r := NewRenderer(nil, 0)

	rec := host.NewMemoryRecord(1, map[string]any{"title": "<T>", "cost": 5.0})
	row := r.RenderRow(rec, cols, funcs)

	if row[0] != "&lt;T&gt;" {
		t.Errorf("failing cell = %q, want escaped fallback", row[0])
	}
	if row[1] != "5,00" {
		t.Errorf("healthy cell = %q, want %q", row[1], "5,00")
	}
}

func TestRenderRowsParallelMatchesSequential(t *testing.T) {
	loader, _ := newTestEnv(t)
	cols := []column.Definition{
		{SourceName: "cost", Label: "Price", Slug: "price"},
	}
	funcs := loader.Load("products", cols)

	var recs []host.Record
	for i := 0; i < 50; i++ {
		recs = append(recs, host.NewMemoryRecord(int64(i), map[string]any{"cost": float64(i)}))
	}

	seq := NewRenderer(nil, 0)
	par := NewRenderer(nil, 4)

	want, err := seq.RenderRows(context.Background(), recs, cols, funcs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := par.RenderRows(context.Background(), recs, cols, funcs)
	if err != nil {
		t.Fatal(err)
	}

	for i := range want {
		if got[i][0] != want[i][0] {
			t.Fatalf("row %d: parallel %q != sequential %q", i, got[i][0], want[i][0])
		}
	}
}

func TestMetaColumnReceivesFullData(t *testing.T) {
	loader, _ := newTestEnv(t)
	cols := []column.Definition{{SourceName: "meta", Label: "Meta", Slug: "meta"}}
	funcs := loader.Load("products", cols)

	r := NewRenderer(nil, 0)
	rec := host.NewMemoryRecord(7, map[string]any{"title": "T", "created": time.Unix(0, 0)})
	row := r.RenderRow(rec, cols, funcs)

	if len(row) != 1 || row[0] == "" {
		t.Fatalf("meta cell empty: %+v", row)
	}
	if want := "&#34;title&#34;"; !strings.Contains(row[0], want) {
		t.Errorf("meta cell %q does not contain %q", row[0], want)
	}
}
