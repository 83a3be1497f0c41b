// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct json tags and the CUE schema field names
// aligned; a mismatch would silently drop configuration values.

func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)
	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = iter.IsOptional()
	}
	return fields
}

func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if mapTag, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ","); mapTag != name {
			t.Errorf("[%s] field %s: json tag %q and mapstructure tag %q differ", typ.Name(), field.Name, name, mapTag)
		}
		fields[name] = true
	}
	return fields
}

func assertFieldsSync(t *testing.T, structName string, cueFields, goFields map[string]bool) {
	t.Helper()

	for field, optional := range cueFields {
		if _, ok := goFields[field]; !ok {
			t.Errorf("[%s] CUE field %q not found in Go struct (missing json tag)", structName, field)
		}
		if !optional {
			t.Errorf("[%s] CUE field %q must be optional so defaults can apply", structName, field)
		}
	}
	for field := range goFields {
		if _, ok := cueFields[field]; !ok {
			t.Errorf("[%s] Go json tag %q not found in CUE schema", structName, field)
		}
	}
}

func lookupDefinition(t *testing.T, schema cue.Value, name string) cue.Value {
	t.Helper()

	def := schema.LookupPath(cue.ParsePath(name))
	if def.Err() != nil {
		t.Fatalf("definition %s not found: %v", name, def.Err())
	}
	return def
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile config schema: %v", schema.Err())
	}

	tests := []struct {
		definition string
		typ        reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#AssetsConfig", reflect.TypeFor[AssetsConfig]()},
		{"#PathsConfig", reflect.TypeFor[PathsConfig]()},
		{"#PlatformConfig", reflect.TypeFor[PlatformConfig]()},
		{"#RuntimeConfig", reflect.TypeFor[RuntimeConfig]()},
		{"#ReportConfig", reflect.TypeFor[ReportConfig]()},
		{"#LogConfig", reflect.TypeFor[LogConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.definition, func(t *testing.T) {
			t.Parallel()

			def := lookupDefinition(t, schema, tt.definition)
			assertFieldsSync(t, tt.definition, extractCUEFields(t, def), extractGoJSONTags(t, tt.typ))
		})
	}
}

func TestGenerateCUE_WritesEveryKey(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema)
	cfgType := reflect.TypeFor[Config]()

	var keys []string
	for i := range cfgType.NumField() {
		field := cfgType.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if field.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		def := lookupDefinition(t, schema, "#"+field.Type.Name())
		for sub := range extractCUEFields(t, def) {
			keys = append(keys, name+"."+sub)
		}
	}

	generated := GenerateCUE(DefaultConfig())
	for _, key := range keys {
		leaf := key[strings.LastIndex(key, ".")+1:]
		if key == "entry_point" {
			continue // omitted while empty
		}
		if !strings.Contains(generated, leaf+":") {
			t.Errorf("GenerateCUE() does not write %q", key)
		}
	}
}
