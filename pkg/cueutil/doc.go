// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user-written CUE documents against an embedded
// schema and decodes them into Go values.
//
// Every document goes through the same three steps: compile the schema,
// compile the document and unify it with a schema definition, then validate
// and decode. Errors carry the file name and the JSON-style path of the
// offending field:
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[map[string]any](schema, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
package cueutil
