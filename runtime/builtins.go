// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runtime

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/mlld-sh/mlld/values"
	"github.com/pkg/errors"
)

// BuiltinFunc is a host-native transformer callable as a pipeline stage or
// plain call without declaration.
type BuiltinFunc func(ctx context.Context, args []any) (any, error)

// Builtins are always in scope unless shadowed by a user binding.
var Builtins = map[string]BuiltinFunc{
	"json":  BuiltinJSON,
	"csv":   BuiltinCSV,
	"xml":   BuiltinXML,
	"upper": BuiltinUpper,
	"lower": BuiltinLower,
	"trim":  BuiltinTrim,
	"join":  BuiltinJoin,
	"lines": BuiltinLines,

	"includes": BuiltinIncludes,
}

func argText(args []any) string {
	if len(args) == 0 {
		return ""
	}
	return displayText(args[0])
}

// BuiltinJSON parses text into a structured value, or re-serializes a
// compound value as JSON text.
func BuiltinJSON(_ context.Context, args []any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("json: missing argument")
	}
	switch t := args[0].(type) {
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return nil, errors.Wrap(err, "json")
		}
		return values.NewStructured("json", t, parsed, values.Metadata{Format: "json"}), nil
	default:
		b, err := json.Marshal(jsonReady(t))
		if err != nil {
			return nil, errors.Wrap(err, "json")
		}
		return string(b), nil
	}
}

// BuiltinCSV parses CSV text into an array of row arrays.
func BuiltinCSV(_ context.Context, args []any) (any, error) {
	text := argText(args)
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "csv")
	}
	rows := make([]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, 0, len(rec))
		for _, cell := range rec {
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return values.NewStructured("csv", text, rows, values.Metadata{Format: "csv"}), nil
}

// BuiltinXML wraps text with an xml tag; the data view stays textual, mlld
// does not model an XML DOM.
func BuiltinXML(_ context.Context, args []any) (any, error) {
	text := argText(args)
	return values.NewStructured("xml", text, text, values.Metadata{Format: "xml"}), nil
}

func BuiltinUpper(_ context.Context, args []any) (any, error) {
	return strings.ToUpper(argText(args)), nil
}

func BuiltinLower(_ context.Context, args []any) (any, error) {
	return strings.ToLower(argText(args)), nil
}

func BuiltinTrim(_ context.Context, args []any) (any, error) {
	return strings.TrimSpace(argText(args)), nil
}

// BuiltinJoin joins an array with the separator given as second argument
// (default ",").
func BuiltinJoin(_ context.Context, args []any) (any, error) {
	if len(args) == 0 {
		return "", nil
	}
	sep := ","
	if len(args) > 1 {
		sep = displayText(args[1])
	}
	arr, err := asArray(args[0])
	if err != nil {
		return nil, err
	}
	if arr == nil {
		return displayText(args[0]), nil
	}
	parts := make([]string, 0, len(arr))
	for _, item := range arr {
		parts = append(parts, displayText(item))
	}
	return strings.Join(parts, sep), nil
}

// BuiltinIncludes reports membership: includes(arr, item) or
// includes(text, substring). Guard clauses over @mx lean on it.
func BuiltinIncludes(_ context.Context, args []any) (any, error) {
	if len(args) < 2 {
		return false, nil
	}
	needle := displayText(args[1])
	if arr, err := asArray(args[0]); err == nil && arr != nil {
		for _, item := range arr {
			if displayText(item) == needle {
				return true, nil
			}
		}
		return false, nil
	}
	return strings.Contains(displayText(args[0]), needle), nil
}

// BuiltinLines splits text into an array of lines.
func BuiltinLines(_ context.Context, args []any) (any, error) {
	text := argText(args)
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return []any{}, nil
	}
	lines := strings.Split(text, "\n")
	out := make([]any, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
	}
	return out, nil
}
