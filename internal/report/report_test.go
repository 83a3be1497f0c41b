// SPDX-License-Identifier: MPL-2.0

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bootrunner/bootrunner/internal/testutil"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func TestBuild_ResultsPathPresence(t *testing.T) {
	t.Parallel()

	t.Run("file present", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		want := testutil.MustWriteFile(t, filepath.Join(root, ResultsFileName), []byte("<testsuites/>"))

		b := Build(0, root)
		if b.ReturnCode != 0 {
			t.Errorf("ReturnCode = %d, want 0", b.ReturnCode)
		}
		if b.TestResultsPath != want {
			t.Errorf("TestResultsPath = %q, want %q", b.TestResultsPath, want)
		}
		if !b.HasResultsPath() {
			t.Error("HasResultsPath() = false, want true")
		}
	})

	t.Run("file absent", func(t *testing.T) {
		t.Parallel()

		b := Build(5, t.TempDir())
		if b.ReturnCode != 5 || b.HasResultsPath() {
			t.Errorf("Build() = %+v, want return code 5 and no path", b)
		}
		if _, ok := b.Map()[KeyTestResultsPath]; ok {
			t.Error("Map() contains the results key for an absent file")
		}
	})

	t.Run("no results root", func(t *testing.T) {
		t.Parallel()

		if b := Build(1, ""); b.HasResultsPath() {
			t.Errorf("Build(1, \"\") = %+v, want no path", b)
		}
	})
}

func TestBuild_PathIsAbsolute(t *testing.T) {
	// Not parallel: changes the working directory.
	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, "results", ResultsFileName), nil)
	t.Chdir(root)

	b := Build(0, "results")
	if !filepath.IsAbs(b.TestResultsPath) {
		t.Errorf("TestResultsPath = %q, want absolute", b.TestResultsPath)
	}
}

func TestEncode_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bundle Bundle
		want   string
	}{
		{name: "with path", bundle: Bundle{ReturnCode: 0, TestResultsPath: "/r/testResults.xml"}, want: `{"return-code":0,"test-results-path":"/r/testResults.xml"}` + "\n"},
		{name: "without path", bundle: Bundle{ReturnCode: 3}, want: `{"return-code":3}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Encode(&buf, FormatJSON, tt.bundle); err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Encode() = %q, want %q", buf.String(), tt.want)
			}

			var decoded map[string]any
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if _, ok := decoded[KeyReturnCode]; !ok {
				t.Errorf("decoded JSON lacks %q", KeyReturnCode)
			}
		})
	}
}

func TestEncode_Instrumentation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, FormatInstrumentation, Bundle{ReturnCode: 2, TestResultsPath: "/r/testResults.xml"}); err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	want := "INSTRUMENTATION_RESULT: return-code=2\n" +
		"INSTRUMENTATION_RESULT: test-results-path=/r/testResults.xml\n" +
		"INSTRUMENTATION_CODE: 2\n"
	if buf.String() != want {
		t.Errorf("Encode() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := Encode(&buf, FormatInstrumentation, Bundle{ReturnCode: 1}); err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), KeyTestResultsPath) {
		t.Errorf("Encode() = %q, want no results line", buf.String())
	}
}

func TestEncode_YAMLAndTOMLKeys(t *testing.T) {
	t.Parallel()

	b := Bundle{ReturnCode: 4, TestResultsPath: "/r/testResults.xml"}

	var y bytes.Buffer
	if err := Encode(&y, FormatYAML, b); err != nil {
		t.Fatalf("Encode(yaml) unexpected error: %v", err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(y.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if fromYAML[KeyReturnCode] != 4 || fromYAML[KeyTestResultsPath] != "/r/testResults.xml" {
		t.Errorf("yaml output = %v", fromYAML)
	}

	var tm bytes.Buffer
	if err := Encode(&tm, FormatTOML, b); err != nil {
		t.Fatalf("Encode(toml) unexpected error: %v", err)
	}
	var fromTOML map[string]any
	if err := toml.Unmarshal(tm.Bytes(), &fromTOML); err != nil {
		t.Fatalf("toml output does not parse: %v", err)
	}
	if fromTOML[KeyReturnCode] != int64(4) || fromTOML[KeyTestResultsPath] != "/r/testResults.xml" {
		t.Errorf("toml output = %v", fromTOML)
	}

	var noPath bytes.Buffer
	if err := Encode(&noPath, FormatYAML, Bundle{ReturnCode: 1}); err != nil {
		t.Fatalf("Encode(yaml) unexpected error: %v", err)
	}
	if strings.Contains(noPath.String(), KeyTestResultsPath) {
		t.Errorf("yaml output = %q, want no results key", noPath.String())
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, f := range Formats() {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", strings.ToUpper(string(f)), got, err)
		}
	}
	if got, err := ParseFormat(""); err != nil || got != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %q, %v; want json", got, err)
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseFormat(xml) error = %v, want ErrInvalidFormat", err)
	}
}

func TestStreamCompleter_DeliversOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := NewCompleter(FormatJSON, &buf)
	if err != nil {
		t.Fatalf("NewCompleter() unexpected error: %v", err)
	}
	if c.Delivered() {
		t.Error("Delivered() = true before Finish")
	}

	if err := c.Finish(0, Bundle{ReturnCode: 0}); err != nil {
		t.Fatalf("Finish() unexpected error: %v", err)
	}
	first := buf.String()

	if err := c.Finish(1, Bundle{ReturnCode: 1}); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("second Finish() error = %v, want ErrAlreadyDelivered", err)
	}
	if buf.String() != first {
		t.Errorf("second Finish() wrote output: %q", buf.String())
	}
	if !c.Delivered() {
		t.Error("Delivered() = false after Finish")
	}
}

func TestStreamCompleter_ConcurrentFinish(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c, err := NewCompleter(FormatInstrumentation, &buf)
	if err != nil {
		t.Fatalf("NewCompleter() unexpected error: %v", err)
	}

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Finish(0, Bundle{}) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 {
		t.Errorf("%d Finish() calls succeeded, want 1", ok.Load())
	}
	if n := strings.Count(buf.String(), "INSTRUMENTATION_CODE"); n != 1 {
		t.Errorf("output has %d completion lines, want 1", n)
	}
}

func TestNewCompleter_InvalidFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewCompleter("csv", &bytes.Buffer{}); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewCompleter(csv) error = %v, want ErrInvalidFormat", err)
	}
	c, err := NewCompleter("", &bytes.Buffer{})
	if err != nil || c.Format() != FormatJSON {
		t.Errorf("NewCompleter(\"\") = %v, %v; want json completer", c, err)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	if _, _, ok := r.Delivery(); ok {
		t.Error("Delivery() reported a delivery before Finish")
	}
	if err := r.Finish(2, Bundle{ReturnCode: 2}); err != nil {
		t.Fatalf("Finish() unexpected error: %v", err)
	}
	if err := r.Finish(3, Bundle{ReturnCode: 3}); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("second Finish() error = %v, want ErrAlreadyDelivered", err)
	}

	code, b, ok := r.Delivery()
	if !ok || code != 2 || b.ReturnCode != 2 {
		t.Errorf("Delivery() = %d, %+v, %v; want first delivery", code, b, ok)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}
