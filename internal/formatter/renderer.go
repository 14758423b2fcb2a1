package formatter

import (
	"context"
	"io"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/host"
)

// Renderer applies loaded formatters to records. A single failing cell
// degrades to the generic fallback; a row or table never aborts because one
// formatter misbehaves.
type Renderer struct {
	logger      *slog.Logger
	concurrency int
}

// NewRenderer creates a renderer. Concurrency bounds the number of rows
// rendered in parallel; zero or negative means sequential.
func NewRenderer(logger *slog.Logger, concurrency int) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Renderer{logger: logger, concurrency: concurrency}
}

// RenderRow renders one record through the column formatters, in column
// order.
func (r *Renderer) RenderRow(rec host.Record, cols []column.Definition, funcs map[string]Func) []string {
	row := make([]string, len(cols))
	for i, def := range cols {
		row[i] = r.renderCell(rec, def, funcs)
	}
	return row
}

// RenderRows renders all records, preserving record order. Rows render
// concurrently; formatter functions are immutable after load so sharing
// them is safe.
func (r *Renderer) RenderRows(ctx context.Context, recs []host.Record, cols []column.Definition, funcs map[string]Func) ([][]string, error) {
	rows := make([][]string, len(recs))

	if r.concurrency <= 1 {
		for i, rec := range recs {
			rows[i] = r.RenderRow(rec, cols, funcs)
		}
		return rows, nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			rows[i] = r.RenderRow(rec, cols, funcs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Renderer) renderCell(rec host.Record, def column.Definition, funcs map[string]Func) string {
	var raw any
	if def.SourceName == column.MetaSource {
		raw = rec.Data()
	} else {
		raw = rec.Get(def.SourceName)
	}

	fn, ok := funcs[def.Slug]
	if !ok {
		return Fallback(raw)
	}

	out, err := fn(raw)
	if err != nil {
		r.logger.Warn("formatter failed, using fallback",
			"record", rec.ID(), "column", def.Slug, "err", err)
		return Fallback(raw)
	}
	return out
}
