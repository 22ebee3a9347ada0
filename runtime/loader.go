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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/values"
	"github.com/pkg/errors"
)

// loadContent implements `<path>` loader expressions: read a file (or a
// glob of files), classify by extension, and wrap as structured values
// tainted with file_system.
func (it *Interpreter) loadContent(ctx context.Context, env *Environment, e *ast.LoaderExpr) (any, error) {
	pathVal, err := it.evalExpr(ctx, env, e.Path)
	if err != nil {
		return nil, err
	}
	pattern := values.AsString(pathVal)
	if pattern == "" {
		pattern = displayText(pathVal)
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(env.PathContext(), pattern)
	}

	sc := security.Context{File: env.FilePath(), Location: e.Rng, Directive: "var"}

	if e.Glob || strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "glob")
		}
		out := make([]any, 0, len(matches))
		for _, match := range matches {
			sv, err := it.loadOne(ctx, env, sc, match)
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
		}
		return out, nil
	}

	return it.loadOne(ctx, env, sc, pattern)
}

func (it *Interpreter) loadOne(ctx context.Context, env *Environment, sc security.Context, path string) (*values.StructuredValue, error) {
	if err := it.secure.CheckPath(ctx, sc, path, security.PathRead); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load content")
	}
	text := string(b)

	env.TaintSnapshot(security.Descriptor{Taint: security.NewSet(security.TaintFileSystem)})

	meta := values.Metadata{Source: "load-content", Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var parsed any
		if err := json.Unmarshal(b, &parsed); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		meta.Format = "json"
		return values.NewStructured("json", text, parsed, meta), nil
	case ".csv":
		sv, err := BuiltinCSV(ctx, []any{text})
		if err != nil {
			return nil, err
		}
		out := sv.(*values.StructuredValue)
		return values.NewStructured("csv", text, out.Data(), meta), nil
	case ".xml":
		meta.Format = "xml"
		return values.NewStructured("xml", text, text, meta), nil
	default:
		return values.NewStructured("text", text, text, meta), nil
	}
}
