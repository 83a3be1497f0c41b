// SPDX-License-Identifier: MPL-2.0

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatJSON writes a single JSON object.
	FormatJSON Format = "json"
	// FormatInstrumentation writes INSTRUMENTATION_RESULT/INSTRUMENTATION_CODE lines.
	FormatInstrumentation Format = "instrumentation"
	// FormatYAML writes a YAML mapping.
	FormatYAML Format = "yaml"
	// FormatTOML writes a TOML table.
	FormatTOML Format = "toml"
)

// ErrInvalidFormat is returned for an unrecognized Format.
var ErrInvalidFormat = errors.New("invalid report format")

// Format selects how a Bundle is written.
type Format string

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatInstrumentation, FormatYAML, FormatTOML}
}

// ParseFormat converts a string into a Format. The empty string selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	if ok, errs := f.IsValid(); !ok {
		return "", errs[0]
	}
	return f, nil
}

// IsValid returns whether the format is recognized, and the validation errors if not.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatJSON, FormatInstrumentation, FormatYAML, FormatTOML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidFormat, string(f))}
	}
}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Encode writes b to w in format f.
func Encode(w io.Writer, f Format, b Bundle) error {
	return encode(w, f, b.ReturnCode, b)
}

// encode writes b with code as the completion signal. Only the
// instrumentation format carries the signal separately from the bundle.
func encode(w io.Writer, f Format, code int, b Bundle) error {
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(b)
	case FormatInstrumentation:
		return encodeInstrumentation(w, code, b)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(b)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, string(f))
	}
}

func encodeInstrumentation(w io.Writer, code int, b Bundle) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSTRUMENTATION_RESULT: %s=%d\n", KeyReturnCode, b.ReturnCode)
	if b.HasResultsPath() {
		fmt.Fprintf(&sb, "INSTRUMENTATION_RESULT: %s=%s\n", KeyTestResultsPath, b.TestResultsPath)
	}
	fmt.Fprintf(&sb, "INSTRUMENTATION_CODE: %d\n", code)
	_, err := io.WriteString(w, sb.String())
	return err
}
