// Package settings holds the global formatting options consumed by every
// formatter stub. The core never interprets them beyond pass-through; the
// typed struct exists for config loading and the admin surfaces.
//
// Load is the entry point for host applications that embed the engine
// without the bundled CLI: it reads a standalone settings file plus env
// overrides. The CLI does not call it; there the same options live under
// the settings key of the main config file and are loaded with it.
package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/frameless-media/datatables/pkg/core"
)

// envPrefix is the environment variable prefix for setting overrides,
// e.g. DATATABLES_DATEFORMAT.
const envPrefix = "DATATABLES_"

// Settings are the global formatting options. Keys match what the stubs
// read from the settings dict.
type Settings struct {
	DateFormat             string `koanf:"dateFormat"`
	CurrencyFormat         string `koanf:"currencyFormat"`
	NumberDecimals         int    `koanf:"numberDecimals"`
	CheckboxYesLabel       string `koanf:"checkboxYesLabel"`
	CheckboxNoLabel        string `koanf:"checkboxNoLabel"`
	TextMaxLength          int    `koanf:"textMaxLength"`
	TextareaStripTags      bool   `koanf:"textareaStripTags"`
	TextareaMaxLength      int    `koanf:"textareaMaxLength"`
	OptionLabelMap         string `koanf:"optionLabelMap"`
	PageRefSeparator       string `koanf:"pageRefSeparator"`
	ImageThumbnailMaxWidth int    `koanf:"imageThumbnailMaxWidth"`
}

// Default returns the built-in defaults.
func Default() Settings {
	return Settings{
		DateFormat:             "2006-01-02 15:04",
		CurrencyFormat:         "",
		NumberDecimals:         2,
		CheckboxYesLabel:       "Yes",
		CheckboxNoLabel:        "No",
		TextMaxLength:          80,
		TextareaStripTags:      false,
		TextareaMaxLength:      120,
		OptionLabelMap:         "",
		PageRefSeparator:       ", ",
		ImageThumbnailMaxWidth: 120,
	}
}

// Map flattens the settings into the opaque map handed to formatters.
func (s Settings) Map() core.Settings {
	return core.Settings{
		"dateFormat":             s.DateFormat,
		"currencyFormat":         s.CurrencyFormat,
		"numberDecimals":         s.NumberDecimals,
		"checkboxYesLabel":       s.CheckboxYesLabel,
		"checkboxNoLabel":        s.CheckboxNoLabel,
		"textMaxLength":          s.TextMaxLength,
		"textareaStripTags":      s.TextareaStripTags,
		"textareaMaxLength":      s.TextareaMaxLength,
		"optionLabelMap":         s.OptionLabelMap,
		"pageRefSeparator":       s.PageRefSeparator,
		"imageThumbnailMaxWidth": s.ImageThumbnailMaxWidth,
	}
}

// FromMap decodes a flat settings map back into the typed struct, with weak
// typing so string-valued numbers from external config survive.
func FromMap(m core.Settings) (Settings, error) {
	s := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "koanf",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(map[string]any(m)); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Load reads settings with precedence env > file > defaults, for embedders
// that bring their own config layer and only need the formatter options.
// A missing or empty path falls back to defaults plus env overrides.
func Load(path string) (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Default().Map(), "."), nil); err != nil {
		return Default(), fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Default(), fmt.Errorf("read settings file %s: %w", path, err)
			}
		}
	}

	// DATATABLES_NUMBERDECIMALS=3 -> numberdecimals; matching below is
	// case-insensitive against the known keys.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return normalizeKey(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Default(), fmt.Errorf("load env: %w", err)
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Default(), fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// normalizeKey maps an upper-cased env suffix to the camelCase config key.
func normalizeKey(upper string) string {
	for key := range Default().Map() {
		if strings.EqualFold(key, upper) {
			return key
		}
	}
	return strings.ToLower(upper)
}
