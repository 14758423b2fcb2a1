// Package engine wires the column parser, stub store and formatter loader
// into the three operations the host calls: render a table page, sync stubs
// on instance save, and cascade-delete stubs on instance removal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/fieldtype"
	"github.com/frameless-media/datatables/internal/formatter"
	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/internal/settings"
	"github.com/frameless-media/datatables/internal/stub"
	"github.com/frameless-media/datatables/pkg/core"
)

// DefaultPerPage bounds a rendered page when the caller passes no size.
const DefaultPerPage = 25

// Config holds everything the engine needs, passed explicitly; there is no
// hidden global state.
type Config struct {
	// Repo supplies records by template and filter.
	Repo host.Repository
	// Fields resolves field metadata for parsing and classification.
	Fields host.FieldRegistry
	// Templates validates source template references on save.
	Templates host.TemplateRegistry
	// StubsDir is the root of the formatter stub tree.
	StubsDir string
	// Settings are the global formatting options.
	Settings settings.Settings
	// Logger is optional; nil discards.
	Logger *slog.Logger
	// Concurrency bounds parallel row rendering; <=1 renders sequentially.
	Concurrency int
}

// Engine orchestrates rendering and stub lifecycle for table instances.
type Engine struct {
	repo      host.Repository
	templates host.TemplateRegistry
	parser    *column.Parser
	store     *stub.Store
	loader    *formatter.Loader
	renderer  *formatter.Renderer
	logger    *slog.Logger
}

// New creates an engine from explicit configuration.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	if cfg.StubsDir == "" {
		return nil, fmt.Errorf("engine: StubsDir is required")
	}

	classifier := fieldtype.NewClassifier(cfg.Fields)
	store := stub.NewStore(cfg.StubsDir, classifier, logger)

	loader, err := formatter.NewLoader(store, cfg.Settings.Map(), logger)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		repo:      cfg.Repo,
		templates: cfg.Templates,
		parser:    column.NewParser(cfg.Fields),
		store:     store,
		loader:    loader,
		renderer:  formatter.NewRenderer(logger, cfg.Concurrency),
		logger:    logger,
	}, nil
}

// Store exposes the stub store for maintenance surfaces (clean, doctor).
func (e *Engine) Store() *stub.Store { return e.store }

// Columns re-parses the instance's raw column spec. The raw text is the
// source of truth; nothing caches parsed definitions.
func (e *Engine) Columns(inst *core.TableInstance) []column.Definition {
	return e.parser.Parse(inst.ColumnsRaw)
}

// RenderedTable is one page of a rendered table.
type RenderedTable struct {
	Header  []string
	Rows    [][]string
	Total   int
	Page    int
	PerPage int
}

// PageCount returns the number of pages at the rendered page size.
func (t *RenderedTable) PageCount() int {
	if t.PerPage <= 0 || t.Total == 0 {
		return 1
	}
	return (t.Total + t.PerPage - 1) / t.PerPage
}

// RenderTable renders one page of an instance: header labels plus one row of
// display strings per record. page is 1-based.
func (e *Engine) RenderTable(ctx context.Context, inst *core.TableInstance, page, perPage int) (*RenderedTable, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	cols := e.Columns(inst)
	funcs := e.loader.Load(inst.Name, cols)

	total, err := e.repo.CountRecords(ctx, inst.SourceTemplate, inst.Filter)
	if err != nil {
		return nil, fmt.Errorf("count records for %q: %w", inst.Name, err)
	}

	recs, err := e.repo.FindRecords(ctx, inst.SourceTemplate, inst.Filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("find records for %q: %w", inst.Name, err)
	}

	rows, err := e.renderer.RenderRows(ctx, recs, cols, funcs)
	if err != nil {
		return nil, fmt.Errorf("render rows for %q: %w", inst.Name, err)
	}

	header := make([]string, len(cols))
	for i, def := range cols {
		header[i] = def.Label
	}

	e.logger.Debug("rendered table",
		"table", inst.Name, "columns", len(cols), "rows", len(rows), "total", total)

	return &RenderedTable{
		Header:  header,
		Rows:    rows,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// ValidateInstance checks that the instance's source template resolves.
// Validation is skipped for brand-new instances, whose defaults have not
// been entered yet.
func (e *Engine) ValidateInstance(inst *core.TableInstance, isNew bool) error {
	if isNew {
		return nil
	}
	if e.templates == nil || e.templates.HasTemplate(inst.SourceTemplate) {
		return nil
	}
	return &core.ValidationError{Instance: inst.Name, Template: inst.SourceTemplate}
}

// SyncInstance ensures a formatter stub exists for every column the
// instance currently references. Existing stubs are never touched. Per-stub
// IO failures are collected and reported together; remaining columns are
// still processed.
func (e *Engine) SyncInstance(inst *core.TableInstance) error {
	var errs []error
	for _, def := range e.Columns(inst) {
		if err := e.store.EnsureArtifact(inst.Name, def); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sync %q: %w", inst.Name, errors.Join(errs...))
	}
	return nil
}

// OnInstanceSave is the explicit save entry point for hosts: validate the
// template reference, then sync stubs. A validation failure is returned
// before any stub work, mirroring the host's save-error convention.
func (e *Engine) OnInstanceSave(inst *core.TableInstance, isNew bool) error {
	if err := e.ValidateInstance(inst, isNew); err != nil {
		return err
	}
	return e.SyncInstance(inst)
}

// DeleteInstanceArtifacts removes the instance's whole stub directory.
// Missing directories are tolerated; deletion may race another delete.
func (e *Engine) DeleteInstanceArtifacts(inst *core.TableInstance) error {
	return e.store.DeleteTableDir(inst.Name)
}
