package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameless-media/datatables/internal/engine"
	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/internal/settings"
	"github.com/frameless-media/datatables/internal/testutil"
	"github.com/frameless-media/datatables/pkg/core"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	h := host.NewMemoryHost()
	h.AddTemplate("product")
	h.AddField("title", host.FieldMeta{DeclaredType: "text", Label: "Title"})
	h.AddField("cost", host.FieldMeta{DeclaredType: "float", Label: "Cost"})
	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		h.AddRecord("product", map[string]any{"title": title, "cost": float64(i) + 0.5})
	}
	require.NoError(t, h.SaveInstance(context.Background(), &core.TableInstance{
		Name:           "products",
		Title:          "Products",
		SourceTemplate: "product",
		ColumnsRaw:     "title\nPrice=cost",
	}))

	eng, err := engine.New(engine.Config{
		Repo:      h,
		Fields:    h,
		Templates: h,
		StubsDir:  t.TempDir(),
		Settings:  settings.Default(),
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	return NewServer(eng, h, testutil.NewTestLogger(t), 2)
}

func get(t *testing.T, s *Server, path string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestRootRedirectsToTables(t *testing.T) {
	s := newTestServer(t)
	res, _ := get(t, s, "/")
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/tables", res.Header.Get("Location"))
}

func TestIndexListsInstances(t *testing.T) {
	s := newTestServer(t)
	res, body := get(t, s, "/tables")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `href="/tables/products"`)
	assert.Contains(t, body, "Products")
}

func TestTablePageRendersRows(t *testing.T) {
	s := newTestServer(t)
	res, body := get(t, s, "/tables/products")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<th>Title</th>")
	assert.Contains(t, body, "<th>Price</th>")
	assert.Contains(t, body, "<td>Alpha</td>")
	assert.Contains(t, body, "<td>0,50</td>", "formatter output lands unescaped in cells")
	assert.Contains(t, body, "uk-pagination", "three records at page size two paginate")
}

func TestTablePagination(t *testing.T) {
	s := newTestServer(t)
	_, body := get(t, s, "/tables/products?page=2")
	assert.Contains(t, body, "<td>Gamma</td>")
	assert.NotContains(t, body, "<td>Alpha</td>")

	// Garbage page falls back to the first page.
	_, body = get(t, s, "/tables/products?page=zzz")
	assert.Contains(t, body, "<td>Alpha</td>")
}

func TestUnknownTableIs404(t *testing.T) {
	s := newTestServer(t)
	res, _ := get(t, s, "/tables/nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListJSON(t *testing.T) {
	s := newTestServer(t)
	res, body := get(t, s, "/api/tables")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "application/json"))

	var items []map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "products", items[0]["name"])
	assert.Equal(t, "product", items[0]["sourceTemplate"])
}

func TestTableJSON(t *testing.T) {
	s := newTestServer(t)
	res, body := get(t, s, "/api/tables/products?page=2")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var payload struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
		Total  int        `json:"total"`
		Page   int        `json:"page"`
		Pages  int        `json:"pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, []string{"Title", "Price"}, payload.Header)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, "Gamma", payload.Rows[0][0])
	assert.Equal(t, 3, payload.Total)
	assert.Equal(t, 2, payload.Page)
	assert.Equal(t, 2, payload.Pages)
}
