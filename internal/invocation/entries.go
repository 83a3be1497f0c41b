// SPDX-License-Identifier: MPL-2.0

package invocation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

var (
	// ErrInvalidPair is the sentinel error wrapped by InvalidPairError.
	ErrInvalidPair = errors.New("invalid key=value pair")
	// ErrInvalidArgsFile is returned when an arguments file is not a JSON object of strings.
	ErrInvalidArgsFile = errors.New("invalid arguments file")
)

// InvalidPairError is returned when a command-line pair has no '=' or an empty key.
type InvalidPairError struct {
	Pair string
}

// Error implements the error interface.
func (e *InvalidPairError) Error() string {
	return fmt.Sprintf("invalid argument %q: expected key=value", e.Pair)
}

// Unwrap returns ErrInvalidPair.
func (e *InvalidPairError) Unwrap() error { return ErrInvalidPair }

// ParsePairs converts "key=value" strings into entries, preserving order.
// Only the first '=' separates key from value.
func ParsePairs(pairs []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		key, value, found := strings.Cut(p, "=")
		if !found || key == "" {
			return nil, &InvalidPairError{Pair: p}
		}
		entries = append(entries, NewEntry(key, value))
	}
	return entries, nil
}

// EntriesFromMap converts an unordered mapping into entries sorted by key.
// A nil map yields no entries.
func EntriesFromMap(m map[string]*string) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: m[k]})
	}
	return entries
}

// LoadEntries reads a JSON object of string (or null) values from path.
// Comments and trailing commas are accepted. Keys keep their file order.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read arguments file '%s': %w", path, err)
	}
	entries, err := ParseEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ParseEntries decodes a JSON object of string (or null) values, keeping key order.
func ParseEntries(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgsFile, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidArgsFile)
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgsFile, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidArgsFile, tok)
		}

		var value *string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: value of %q must be a string or null", ErrInvalidArgsFile, key)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgsFile, err)
	}

	return entries, nil
}
