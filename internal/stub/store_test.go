package stub

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/fieldtype"
	"github.com/frameless-media/datatables/internal/host"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	h := host.NewMemoryHost()
	h.AddField("cost", host.FieldMeta{DeclaredType: "float", Label: "Cost"})
	h.AddField("title", host.FieldMeta{DeclaredType: "text", Label: "Title"})
	dir := t.TempDir()
	return NewStore(dir, fieldtype.NewClassifier(h), nil), dir
}

func costDef() column.Definition {
	return column.Definition{SourceName: "cost", Label: "Price", Slug: "price"}
}

func TestPathFor(t *testing.T) {
	s, dir := newTestStore(t)

	got := s.PathFor("My Products", "price")
	want := filepath.Join(dir, "my_products", "price.star")
	if got != want {
		t.Errorf("PathFor() = %q, want %q", got, want)
	}

	// Deterministic.
	if again := s.PathFor("My Products", "price"); again != got {
		t.Errorf("PathFor() not stable: %q vs %q", again, got)
	}
}

func TestEnsureArtifactCreatesDefault(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.EnsureArtifact("products", costDef()))

	raw, err := os.ReadFile(s.PathFor("products", "price"))
	require.NoError(t, err)
	assert.True(t, LooksLikeFormatter(raw), "generated stub must pass the structural check")
	assert.Contains(t, string(raw), "column: Price")
	assert.Contains(t, string(raw), "Source: cost")
	assert.Contains(t, string(raw), "format_number")
}

func TestEnsureArtifactIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	def := costDef()

	require.NoError(t, s.EnsureArtifact("products", def))
	path := s.PathFor("products", "price")

	first, err := os.Stat(path)
	require.NoError(t, err)
	content1, err := os.ReadFile(path)
	require.NoError(t, err)

	// Make mtime drift detectable on coarse-grained filesystems.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))
	stamped, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.EnsureArtifact("products", def))

	second, err := os.Stat(path)
	require.NoError(t, err)
	content2, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, content1, content2, "second ensure must not touch content")
	assert.Equal(t, stamped.ModTime(), second.ModTime(), "second ensure must not rewrite the file")
	_ = first
}

func TestEnsureArtifactNeverOverwritesCustomContent(t *testing.T) {
	s, _ := newTestStore(t)
	def := costDef()
	require.NoError(t, s.EnsureArtifact("products", def))

	custom := "# my edit\ndef format(value, settings):\n    return \"custom\"\n"
	path := s.PathFor("products", "price")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o664))

	require.NoError(t, s.EnsureArtifact("products", def))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(raw))
}

func TestEnsureArtifactSkipsUnclassifiable(t *testing.T) {
	s, dir := newTestStore(t)

	def := column.Definition{SourceName: "ghost", Label: "Ghost", Slug: "ghost"}
	require.NoError(t, s.EnsureArtifact("products", def))

	if _, err := os.Stat(filepath.Join(dir, "products", "ghost.star")); !os.IsNotExist(err) {
		t.Error("unclassifiable column must not produce a stub")
	}
}

func TestUpgradeIfLegacy(t *testing.T) {
	s, _ := newTestStore(t)
	def := costDef()
	path := s.PathFor("products", "price")

	legacy := "# old style stub\nprint(\"hello\")\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o664))

	upgraded, err := s.UpgradeIfLegacy("products", def)
	require.NoError(t, err)
	assert.True(t, upgraded)

	// Backup preserves the pre-upgrade content byte for byte.
	backup, err := os.ReadFile(filepath.Join(filepath.Dir(path), "_price.star"))
	require.NoError(t, err)
	assert.Equal(t, legacy, string(backup))

	// The stub itself was regenerated as a well-formed default.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, LooksLikeFormatter(raw))
}

func TestUpgradeIfLegacyLeavesWellFormedAlone(t *testing.T) {
	s, _ := newTestStore(t)
	def := costDef()
	path := s.PathFor("products", "price")

	custom := "def format(value, settings):\n    return \"keep me\"\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o664))

	upgraded, err := s.UpgradeIfLegacy("products", def)
	require.NoError(t, err)
	assert.False(t, upgraded)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(raw))

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "_price.star"))
	assert.True(t, os.IsNotExist(err), "no backup must appear for a well-formed stub")
}

func TestUpgradeIfLegacyMissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	upgraded, err := s.UpgradeIfLegacy("products", costDef())
	require.NoError(t, err)
	assert.False(t, upgraded)
}

func TestDeleteTableDir(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.EnsureArtifact("products", costDef()))

	require.NoError(t, s.DeleteTableDir("products"))
	_, err := os.Stat(s.TableDir("products"))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op, not an error.
	require.NoError(t, s.DeleteTableDir("products"))
}

func TestDirectoryIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	def := costDef()

	require.NoError(t, s.EnsureArtifact("table_a", def))
	require.NoError(t, s.EnsureArtifact("table_b", def))

	require.NoError(t, s.DeleteTableDir("table_a"))

	if _, err := os.Stat(s.PathFor("table_b", "price")); err != nil {
		t.Errorf("deleting table_a must leave table_b stubs untouched: %v", err)
	}
}

func TestListArtifacts(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.EnsureArtifact("products", costDef()))
	require.NoError(t, s.EnsureArtifact("products", column.Definition{SourceName: "title", Label: "Title", Slug: "title"}))

	names, err := s.ListArtifacts("products")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"price.star", "title.star"}, names)

	empty, err := s.ListArtifacts("nothing_here")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRenderFallsBackToGeneric(t *testing.T) {
	def := column.Definition{SourceName: "x", Label: "X", Slug: "x"}
	content := Render(fieldtype.Type("unknown"), def)
	assert.Contains(t, content, "html_escape(str(value))")
	assert.True(t, LooksLikeFormatter([]byte(content)))
}

func TestAllDefaultBodiesAreWellFormed(t *testing.T) {
	def := column.Definition{SourceName: "f", Label: "F", Slug: "f"}
	for typ := range defaultBodies {
		content := Render(typ, def)
		if !LooksLikeFormatter([]byte(content)) {
			t.Errorf("default body for %q fails the structural check", typ)
		}
	}
}
