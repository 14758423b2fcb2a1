package state

import (
	"context"
	"fmt"
	"time"

	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/pkg/core"
)

// SeedDemo populates an empty database with a small product catalog and a
// matching table instance, enough to render something right after init.
func SeedDemo(ctx context.Context, h *SQLiteHost) error {
	if err := h.AddTemplate("product"); err != nil {
		return err
	}

	fields := []struct{ name, declaredType, label string }{
		{"title", "text", "Title"},
		{"summary", "textarea", "Summary"},
		{"cost", "float", "Cost"},
		{"stock", "integer", "Stock"},
		{"featured", "checkbox", "Featured"},
		{"category", "pageref", "Category"},
		{"photo", "image", "Photo"},
	}
	for _, f := range fields {
		if err := h.AddField(f.name, f.declaredType, f.label); err != nil {
			return err
		}
	}

	records := []map[string]any{
		{
			"title":    "Walnut Desk",
			"summary":  "Solid walnut writing desk with two drawers.",
			"cost":     549.0,
			"stock":    int64(4),
			"featured": true,
			"status":   core.StatusPublished,
			"category": host.RecordRef{Title: "Furniture", URL: "/categories/furniture/"},
			"photo":    host.FileRef{Name: "desk.jpg", URL: "/files/desk.jpg", Width: 1200},
			"created":  time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC),
		},
		{
			"title":    "Desk Lamp",
			"summary":  "Adjustable brass lamp, warm white.",
			"cost":     89.5,
			"stock":    int64(23),
			"featured": false,
			"status":   core.StatusPublished,
			"category": host.RecordRef{Title: "Lighting", URL: "/categories/lighting/"},
			"created":  time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC),
		},
		{
			"title":   "Prototype Chair",
			"summary": "Not yet for sale.",
			"cost":    0.0,
			"stock":   int64(0),
			"status":  core.StatusUnpublished | core.StatusHidden,
			"created": time.Date(2024, 6, 20, 8, 15, 0, 0, time.UTC),
		},
	}
	for _, data := range records {
		if _, err := h.AddRecord("product", data); err != nil {
			return err
		}
	}

	inst := &core.TableInstance{
		Name:           "products",
		Title:          "Products",
		SourceTemplate: "product",
		ColumnsRaw:     "title\nPrice=cost\nstock\nfeatured\ncategory\nstatus\ncreated",
	}
	if err := h.SaveInstance(ctx, inst); err != nil {
		return fmt.Errorf("seed demo instance: %w", err)
	}
	return nil
}
