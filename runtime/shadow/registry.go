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

package shadow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
)

// ModuleSpec is one requireable module for the node runner: resolved path,
// base dir for nested requires, and the compiled program.
type ModuleSpec struct {
	Key     string
	Path    string
	Dir     string
	Program *goja.Program

	once sync.Once
	err  error
}

// Registry resolves and compiles node-runner modules. Compilation happens
// once per module; TS sources are transpiled with esbuild first.
type Registry struct {
	BaseDir string

	modsMu sync.RWMutex
	mods   map[string]*ModuleSpec
}

func NewRegistry(baseDir string) *Registry {
	return &Registry{BaseDir: baseDir, mods: map[string]*ModuleSpec{}}
}

// resolveRequire maps a require() spec from a module at fromDir to a path.
// Only relative and absolute specs are supported; bare npm names go through
// the import resolver, not here.
func (r *Registry) resolveRequire(fromDir, spec string) (string, error) {
	if !strings.HasPrefix(spec, ".") && !strings.HasPrefix(spec, "/") {
		return "", fmt.Errorf("unsupported require spec: %q", spec)
	}
	path := spec
	if !filepath.IsAbs(path) {
		path = filepath.Join(fromDir, spec)
	}
	if filepath.Ext(path) == "" {
		if _, err := os.Stat(path + ".ts"); err == nil {
			path += ".ts"
		} else if _, err := os.Stat(path + ".js"); err == nil {
			path += ".js"
		}
	}
	return filepath.Clean(path), nil
}

// Load resolves & compiles a module by require spec.
func (r *Registry) Load(fromDir, spec string) (*ModuleSpec, error) {
	path, err := r.resolveRequire(fromDir, spec)
	if err != nil {
		return nil, err
	}

	r.modsMu.Lock()
	mod := r.mods[path]
	if mod == nil {
		mod = &ModuleSpec{Key: path, Path: path, Dir: filepath.Dir(path)}
		r.mods[path] = mod
	}
	r.modsMu.Unlock()

	mod.once.Do(func() {
		b, err := os.ReadFile(mod.Path)
		if err != nil {
			mod.err = err
			return
		}
		code, err := Transpile(mod.Path, string(b))
		if err != nil {
			mod.err = err
			return
		}
		pgm, err := goja.Compile(mod.Key, WrapAsModule(code), true)
		if err != nil {
			mod.err = err
			return
		}
		mod.Program = pgm
	})
	return mod, mod.err
}

// Transpile lowers TS (or modern JS) to CommonJS, targeting ES2017.
func Transpile(path, raw string) (string, error) {
	loader := api.LoaderJS
	if strings.HasSuffix(path, ".ts") {
		loader = api.LoaderTS
	}
	res := api.Transform(raw, api.TransformOptions{
		Loader: loader,
		Format: api.FormatCommonJS,
		Target: api.ES2017,
	})
	if len(res.Errors) > 0 {
		return "", fmt.Errorf("esbuild: %v", res.Errors[0].Text)
	}
	return string(res.Code), nil
}

// WrapAsModule wraps transpiled code as a (require, module, exports)
// factory so the VM can evaluate it to a callable.
func WrapAsModule(code string) string {
	return "(function(require, module, exports) {\n" + code + "\n})"
}
