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

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
)

// evalExport records the module's public names.
func (it *Interpreter) evalExport(ctx context.Context, env *Environment, d *ast.ExportDirective) (any, error) {
	for _, name := range d.Names {
		if _, ok := env.Get(name); !ok {
			return nil, xerr.ErrVariableNotFound(name)
		}
	}
	env.RecordExport(d.Names...)
	return nil, nil
}

// ModuleExport is the serialized form of a module environment. Executables
// capture their defining env, which in turn reaches the executable: the
// cycle is broken by omitting the captured env when it is the one being
// serialized, and reconstituting the back-reference on revival.
type ModuleExport struct {
	Path    string
	Names   []string
	Vars    map[string]*values.Variable
	Shadows any
}

// SerializeModule flattens a module environment for export.
func SerializeModule(env *Environment) *ModuleExport {
	me := &ModuleExport{
		Path:    env.FilePath(),
		Vars:    map[string]*values.Variable{},
		Shadows: env.Shadows(),
	}
	for _, name := range env.Names() {
		v, ok := env.Get(name)
		if !ok {
			continue
		}
		clone := v.Clone()
		if exe, ok := clone.Value.(*values.Executable); ok {
			ec := *exe
			if ec.ModuleEnv == env || sameRoot(ec.ModuleEnv, env) {
				ec.ModuleEnv = nil
			}
			clone.Value = &ec
		}
		me.Vars[name] = clone
		me.Names = append(me.Names, name)
	}
	return me
}

func sameRoot(captured any, env *Environment) bool {
	ce, ok := captured.(*Environment)
	if !ok || ce == nil {
		return false
	}
	return ce.FilePath() == env.FilePath()
}

// ReviveModule rebuilds an environment from its serialized form,
// restoring each executable's module-env back-reference.
func ReviveModule(me *ModuleExport) *Environment {
	env := NewEnvironment(me.Path, effects.NewBuffer())
	for _, name := range me.Names {
		v := me.Vars[name].Clone()
		env.Set(name, v)
	}
	// second pass: executables whose captured env was omitted point back
	// at the revived environment
	for _, name := range me.Names {
		v, _ := env.Get(name)
		if exe, ok := v.Value.(*values.Executable); ok {
			ec := *exe
			if ec.ModuleEnv == nil {
				ec.ModuleEnv = env
			}
			if ec.ShadowEnvs == nil {
				ec.ShadowEnvs = me.Shadows
			}
			nv := v.Clone()
			nv.Value = &ec
			env.Set(name, nv)
		}
	}
	return env
}
