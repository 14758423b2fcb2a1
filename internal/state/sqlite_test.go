package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/pkg/core"
)

func openTestHost(t *testing.T) *SQLiteHost {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestOpenInMemory(t *testing.T) {
	h, err := Open(":memory:")
	require.NoError(t, err)
	defer h.Close()
	assert.False(t, h.HasTemplate("anything"))
}

func TestTemplatesAndFields(t *testing.T) {
	h := openTestHost(t)

	require.NoError(t, h.AddTemplate("product"))
	require.NoError(t, h.AddTemplate("product"), "re-adding is a no-op")
	assert.True(t, h.HasTemplate("product"))
	assert.False(t, h.HasTemplate("missing"))

	require.NoError(t, h.AddField("title", "text", "Title"))
	meta, ok := h.GetFieldMeta("title")
	require.True(t, ok)
	assert.Equal(t, host.FieldMeta{DeclaredType: "text", Label: "Title"}, meta)

	require.NoError(t, h.AddField("title", "textarea", "Long Title"))
	meta, _ = h.GetFieldMeta("title")
	assert.Equal(t, "textarea", meta.DeclaredType, "re-adding updates")

	_, ok = h.GetFieldMeta("missing")
	assert.False(t, ok)
}

func TestRecordRoundTrip(t *testing.T) {
	h := openTestHost(t)
	require.NoError(t, h.AddTemplate("product"))

	created := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	id, err := h.AddRecord("product", map[string]any{
		"title":    "Desk",
		"cost":     19.9,
		"stock":    int64(4),
		"featured": true,
		"status":   core.StatusPublished,
		"category": host.RecordRef{Title: "Furniture", URL: "/cat/f/"},
		"created":  created,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	recs, err := h.FindRecords(context.Background(), "product", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, id, rec.ID())
	assert.Equal(t, id, rec.Get("id"))
	assert.Equal(t, "Desk", rec.Get("title"))
	assert.Equal(t, 19.9, rec.Get("cost"))
	assert.Equal(t, int64(4), rec.Get("stock"), "integral values come back as int64")
	assert.Equal(t, true, rec.Get("featured"))
	assert.Equal(t, int64(core.StatusPublished), rec.Get("status"))
	assert.Equal(t, created, rec.Get("created"))
	assert.Nil(t, rec.Get("missing"))

	// Struct refs come back as maps with the keys the formatters read.
	cat, ok := rec.Get("category").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Furniture", cat["title"])
	assert.Equal(t, "/cat/f/", cat["url"])

	data := rec.Data()
	assert.Equal(t, id, data["id"])
	assert.Equal(t, "Desk", data["title"])
}

func TestFindRecordsFilterAndPaging(t *testing.T) {
	h := openTestHost(t)
	ctx := context.Background()
	require.NoError(t, h.AddTemplate("product"))
	require.NoError(t, h.AddTemplate("article"))

	for i, title := range []string{"Alpha", "Beta", "Gamma", "Beta"} {
		_, err := h.AddRecord("product", map[string]any{"title": title, "rank": int64(i)})
		require.NoError(t, err)
	}
	_, err := h.AddRecord("article", map[string]any{"title": "Beta"})
	require.NoError(t, err)

	n, err := h.CountRecords(ctx, "product", "")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = h.CountRecords(ctx, "product", "title=Beta")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "filter is scoped to the template")

	recs, err := h.FindRecords(ctx, "product", "title=Beta", 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].Get("rank"))
	assert.Equal(t, int64(3), recs[1].Get("rank"))

	recs, err = h.FindRecords(ctx, "product", "", 2, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Beta", recs[0].Get("title"))
	assert.Equal(t, "Gamma", recs[1].Get("title"))

	recs, err = h.FindRecords(ctx, "product", "", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// Multi-term filter is a conjunction.
	n, err = h.CountRecords(ctx, "product", "title=Beta, rank=1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Malformed terms are ignored rather than failing the query.
	n, err = h.CountRecords(ctx, "product", "garbage")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestInstanceStore(t *testing.T) {
	h := openTestHost(t)
	ctx := context.Background()

	_, err := h.GetInstance(ctx, "products")
	assert.Error(t, err)

	inst := &core.TableInstance{
		Name:           "products",
		Title:          "Products",
		SourceTemplate: "product",
		ColumnsRaw:     "title\ncost",
	}
	require.NoError(t, h.SaveInstance(ctx, inst))

	got, err := h.GetInstance(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, inst, got)

	inst.Title = "All Products"
	inst.Filter = "featured=true"
	require.NoError(t, h.SaveInstance(ctx, inst), "save is an upsert")

	got, err = h.GetInstance(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "All Products", got.Title)
	assert.Equal(t, "featured=true", got.Filter)

	require.NoError(t, h.SaveInstance(ctx, &core.TableInstance{Name: "archive"}))
	list, err := h.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "archive", list[0].Name)
	assert.Equal(t, "products", list[1].Name)

	require.NoError(t, h.DeleteInstance(ctx, "archive"))
	require.NoError(t, h.DeleteInstance(ctx, "archive"), "repeat delete tolerated")
	list, err = h.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSeedDemo(t *testing.T) {
	h := openTestHost(t)
	ctx := context.Background()

	require.NoError(t, SeedDemo(ctx, h))

	assert.True(t, h.HasTemplate("product"))
	n, err := h.CountRecords(ctx, "product", "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	inst, err := h.GetInstance(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "product", inst.SourceTemplate)
	assert.NotEmpty(t, inst.ColumnsRaw)
}
