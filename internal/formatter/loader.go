package formatter

import (
	"fmt"
	"html"
	"io"
	"log/slog"
	"math"

	"go.starlark.net/starlark"

	"github.com/frameless-media/datatables/internal/column"
	"github.com/frameless-media/datatables/internal/stub"
	"github.com/frameless-media/datatables/pkg/core"
)

// Func renders one raw column value to a display string.
type Func func(value any) (string, error)

// Fallback is the generic HTML-escaped stringification used whenever a stub
// cannot be loaded or a formatter call fails. Nil renders empty.
func Fallback(value any) string {
	if value == nil {
		return ""
	}
	return html.EscapeString(fmt.Sprint(value))
}

// Loader compiles formatter stubs into callable Funcs. Missing stubs are
// generated from defaults first; structurally stale stubs go through the
// backup-and-regenerate upgrade. A stub that still fails to expose a
// callable format function degrades to Fallback — loading never fails the
// table.
type Loader struct {
	store       *stub.Store
	logger      *slog.Logger
	pool        *threadPool
	predeclared starlark.StringDict
	settings    starlark.Value
}

// NewLoader creates a loader over the stub store with the global settings
// map every formatter receives.
func NewLoader(store *stub.Store, settings core.Settings, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	dict, err := SettingsToStarlark(settings)
	if err != nil {
		return nil, fmt.Errorf("convert settings: %w", err)
	}
	return &Loader{
		store:       store,
		logger:      logger,
		pool:        newThreadPool(8),
		predeclared: Predeclared(),
		settings:    dict,
	}, nil
}

// Load resolves one Func per column slug. Failures degrade per column, never
// abort the map.
func (l *Loader) Load(tableName string, cols []column.Definition) map[string]Func {
	funcs := make(map[string]Func, len(cols))
	for _, def := range cols {
		funcs[def.Slug] = l.loadOne(tableName, def)
	}
	return funcs
}

func (l *Loader) loadOne(tableName string, def column.Definition) Func {
	if _, err := l.store.UpgradeIfLegacy(tableName, def); err != nil {
		l.logger.Error("stub upgrade failed", "table", tableName, "slug", def.Slug, "err", err)
	}
	if err := l.store.EnsureArtifact(tableName, def); err != nil {
		l.logger.Error("stub generation failed", "table", tableName, "slug", def.Slug, "err", err)
		return l.fallbackFunc()
	}

	path := l.store.PathFor(tableName, def.Slug)

	thread := l.pool.get(path)
	globals, err := starlark.ExecFile(thread, path, nil, l.predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	l.pool.put(thread)
	if err != nil {
		l.logger.Error("stub execution failed", "path", path, "err", err)
		return l.fallbackFunc()
	}
	globals.Freeze()

	fn, ok := globals["format"].(starlark.Callable)
	if !ok {
		l.logger.Error("stub does not expose a callable format function", "path", path)
		return l.fallbackFunc()
	}

	return func(value any) (string, error) {
		sv, err := ToStarlark(value)
		if err != nil {
			return "", fmt.Errorf("convert value: %w", err)
		}

		thread := l.pool.get(path)
		result, err := starlark.Call(thread, fn, starlark.Tuple{sv, l.settings}, nil)
		l.pool.put(thread)
		if err != nil {
			return "", fmt.Errorf("call format: %w", err)
		}

		s, ok := result.(starlark.String)
		if !ok {
			return "", fmt.Errorf("format returned %s, want string", result.Type())
		}
		return string(s), nil
	}
}

// fallbackFunc wraps Fallback as a Func that never errors.
func (l *Loader) fallbackFunc() Func {
	return func(value any) (string, error) {
		return Fallback(value), nil
	}
}
