// Package formatter loads formatter stubs into callable functions and
// renders record values through them.
package formatter

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/frameless-media/datatables/internal/host"
	"github.com/frameless-media/datatables/pkg/core"
)

// ToStarlark converts a raw record value to a Starlark value.
// Times become unix seconds, record and file references become dicts, and
// anything without a specific mapping degrades to its string representation
// rather than failing: formatters must always receive something callable.
func ToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case time.Time:
		return starlark.MakeInt64(val.Unix()), nil

	case core.Status:
		return starlark.MakeInt(int(val)), nil

	case host.RecordRef:
		return refToDict(val), nil

	case *host.RecordRef:
		if val == nil {
			return starlark.None, nil
		}
		return refToDict(*val), nil

	case host.FileRef:
		return fileToDict(val), nil

	case []host.RecordRef:
		list := make([]starlark.Value, len(val))
		for i, r := range val {
			list[i] = refToDict(r)
		}
		return starlark.NewList(list), nil

	case []host.FileRef:
		list := make([]starlark.Value, len(val))
		for i, f := range val {
			list[i] = fileToDict(f)
		}
		return starlark.NewList(list), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case []map[string]any:
		list := make([]starlark.Value, len(val))
		for i, m := range val {
			sv, err := ToStarlark(map[string]any(m))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return starlark.String(fmt.Sprint(v)), nil
	}
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %T", item[0])
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	default:
		return val.String(), nil
	}
}

// SettingsToStarlark converts the flat settings map once per load; the dict
// is frozen so concurrent formatter calls can share it.
func SettingsToStarlark(settings core.Settings) (starlark.Value, error) {
	dict := starlark.NewDict(len(settings))
	for k, v := range settings {
		sv, err := ToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", k, err)
		}
		if err := dict.SetKey(starlark.String(k), sv); err != nil {
			return nil, fmt.Errorf("setting %q: %w", k, err)
		}
	}
	dict.Freeze()
	return dict, nil
}

func refToDict(r host.RecordRef) starlark.Value {
	dict := starlark.NewDict(2)
	_ = dict.SetKey(starlark.String("title"), starlark.String(r.Title))
	_ = dict.SetKey(starlark.String("url"), starlark.String(r.URL))
	return dict
}

func fileToDict(f host.FileRef) starlark.Value {
	dict := starlark.NewDict(3)
	_ = dict.SetKey(starlark.String("name"), starlark.String(f.Name))
	_ = dict.SetKey(starlark.String("url"), starlark.String(f.URL))
	_ = dict.SetKey(starlark.String("width"), starlark.MakeInt(f.Width))
	return dict
}
