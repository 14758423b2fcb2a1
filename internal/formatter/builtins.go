package formatter

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.starlark.net/starlark"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/frameless-media/datatables/pkg/core"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Predeclared returns the builtin helpers available to every formatter
// stub. All of them are pure; the returned dict is safe to share across
// threads.
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"html_escape":     starlark.NewBuiltin("html_escape", builtinHTMLEscape),
		"truncate":        starlark.NewBuiltin("truncate", builtinTruncate),
		"strip_tags":      starlark.NewBuiltin("strip_tags", builtinStripTags),
		"format_date":     starlark.NewBuiltin("format_date", builtinFormatDate),
		"format_number":   starlark.NewBuiltin("format_number", builtinFormatNumber),
		"format_currency": starlark.NewBuiltin("format_currency", builtinFormatCurrency),
		"json_pretty":     starlark.NewBuiltin("json_pretty", builtinJSONPretty),
		"anchor":          starlark.NewBuiltin("anchor", builtinAnchor),
		"status_labels":   starlark.NewBuiltin("status_labels", builtinStatusLabels),
		"uid":             starlark.NewBuiltin("uid", builtinUID),
	}
}

func builtinHTMLEscape(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs("html_escape", args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	return starlark.String(html.EscapeString(s)), nil
}

func builtinTruncate(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	var maxLen int
	if err := starlark.UnpackPositionalArgs("truncate", args, kwargs, 2, &s, &maxLen); err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		return starlark.String(s), nil
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return starlark.String(s), nil
	}
	return starlark.String(string(runes[:maxLen]) + "…"), nil
}

func builtinStripTags(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackPositionalArgs("strip_tags", args, kwargs, 1, &s); err != nil {
		return nil, err
	}
	return starlark.String(tagRe.ReplaceAllString(s, "")), nil
}

// builtinFormatDate accepts a unix-seconds int or an RFC 3339 string and a
// Go time layout.
func builtinFormatDate(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	var layout string
	if err := starlark.UnpackPositionalArgs("format_date", args, kwargs, 2, &value, &layout); err != nil {
		return nil, err
	}
	if layout == "" {
		layout = "2006-01-02 15:04"
	}

	switch v := value.(type) {
	case starlark.Int:
		sec, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("format_date: timestamp out of range")
		}
		return starlark.String(time.Unix(sec, 0).UTC().Format(layout)), nil
	case starlark.String:
		t, err := time.Parse(time.RFC3339, string(v))
		if err != nil {
			return nil, fmt.Errorf("format_date: %w", err)
		}
		return starlark.String(t.Format(layout)), nil
	default:
		return nil, fmt.Errorf("format_date: want int or string, got %s", value.Type())
	}
}

// builtinFormatNumber renders a number with a fixed number of decimals,
// decimal comma and thousands dot.
func builtinFormatNumber(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	var decimals int
	if err := starlark.UnpackPositionalArgs("format_number", args, kwargs, 2, &value, &decimals); err != nil {
		return nil, err
	}
	f, err := asFloat(value)
	if err != nil {
		return nil, fmt.Errorf("format_number: %w", err)
	}
	return starlark.String(formatDecimal(f, decimals)), nil
}

// builtinFormatCurrency renders a currency amount from a "locale:code"
// spec, e.g. "de_AT:EUR".
func builtinFormatCurrency(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	var spec string
	if err := starlark.UnpackPositionalArgs("format_currency", args, kwargs, 2, &value, &spec); err != nil {
		return nil, err
	}
	f, err := asFloat(value)
	if err != nil {
		return nil, fmt.Errorf("format_currency: %w", err)
	}

	locale, code, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("format_currency: spec %q is not locale:code", spec)
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return nil, fmt.Errorf("format_currency: locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("format_currency: code %q: %w", code, err)
	}

	p := message.NewPrinter(tag)
	return starlark.String(p.Sprint(currency.Symbol(unit.Amount(f)))), nil
}

func builtinJSONPretty(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackPositionalArgs("json_pretty", args, kwargs, 1, &value); err != nil {
		return nil, err
	}
	gv, err := ToGo(value)
	if err != nil {
		return nil, fmt.Errorf("json_pretty: %w", err)
	}
	raw, err := json.MarshalIndent(gv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json_pretty: %w", err)
	}
	return starlark.String(raw), nil
}

// builtinAnchor renders an HTML link. The optional third argument is the
// target attribute.
func builtinAnchor(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var href, text, target string
	if err := starlark.UnpackPositionalArgs("anchor", args, kwargs, 2, &href, &text, &target); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(href))
	b.WriteString(`"`)
	if target != "" {
		b.WriteString(` target="`)
		b.WriteString(html.EscapeString(target))
		b.WriteString(`"`)
	}
	b.WriteString(`>`)
	b.WriteString(html.EscapeString(text))
	b.WriteString(`</a>`)
	return starlark.String(b.String()), nil
}

func builtinStatusLabels(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var status int
	if err := starlark.UnpackPositionalArgs("status_labels", args, kwargs, 1, &status); err != nil {
		return nil, err
	}
	labels := core.Status(status).Labels()
	list := make([]starlark.Value, len(labels))
	for i, l := range labels {
		list[i] = starlark.String(l)
	}
	return starlark.NewList(list), nil
}

func builtinUID(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs("uid", args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.String(strings.ReplaceAll(uuid.NewString(), "-", "")), nil
}

func asFloat(v starlark.Value) (float64, error) {
	switch val := v.(type) {
	case starlark.Float:
		return float64(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return 0, fmt.Errorf("int out of range")
		}
		return float64(i), nil
	case starlark.String:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", string(val))
		}
		return f, nil
	default:
		return 0, fmt.Errorf("want number, got %s", v.Type())
	}
}

// formatDecimal renders f with the given number of fraction digits, using
// decimal comma and thousands dot.
func formatDecimal(f float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	fixed := strconv.FormatFloat(f, 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := sign + strings.Join(groups, ".")
	if fracPart != "" {
		out += "," + fracPart
	}
	return out
}
