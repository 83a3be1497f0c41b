// SPDX-License-Identifier: MPL-2.0

package report

import (
	"os"
	"path/filepath"
)

const (
	// ResultsFileName is the file a runtime writes its test results to,
	// directly below the results root.
	ResultsFileName = "testResults.xml"

	// KeyReturnCode and KeyTestResultsPath are the bundle keys.
	KeyReturnCode      = "return-code"
	KeyTestResultsPath = "test-results-path"
)

// Bundle is the completion payload of a run.
type Bundle struct {
	ReturnCode int `json:"return-code" yaml:"return-code" toml:"return-code"`
	// TestResultsPath is empty when no results file existed.
	TestResultsPath string `json:"test-results-path,omitempty" yaml:"test-results-path,omitempty" toml:"test-results-path,omitempty"`
}

// Build creates the bundle for returnCode. The results path is included only
// if <resultsRoot>/testResults.xml exists at the time of the call.
func Build(returnCode int, resultsRoot string) Bundle {
	b := Bundle{ReturnCode: returnCode}
	if resultsRoot == "" {
		return b
	}
	path := filepath.Join(resultsRoot, ResultsFileName)
	if _, err := os.Stat(path); err != nil {
		return b
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	b.TestResultsPath = path
	return b
}

// HasResultsPath reports whether the bundle carries a results path.
func (b Bundle) HasResultsPath() bool {
	return b.TestResultsPath != ""
}

// Map returns the bundle as key/value pairs, omitting an absent path.
func (b Bundle) Map() map[string]any {
	m := map[string]any{KeyReturnCode: b.ReturnCode}
	if b.HasResultsPath() {
		m[KeyTestResultsPath] = b.TestResultsPath
	}
	return m
}
