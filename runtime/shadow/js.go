// SPDX-License-Identifier: Apache-2.0
//
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
	"context"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

// Param is one marshalled parameter. Meta carries the variable's type
// metadata for the `mlld` helper when the argument crossed as a proxy.
type Param struct {
	Name  string
	Value any
	Meta  map[string]any
}

// RunJS executes a js block in-process in a fresh restricted evaluator.
// Parameters become globals; shadow env callables become global functions;
// the `mlld` helper exposes parameter metadata.
func RunJS(ctx context.Context, body string, params []Param, env *Env) (any, error) {
	vm := goja.New()

	stop := installInterrupt(ctx, vm)
	defer stop()

	if err := installParams(vm, params); err != nil {
		return nil, err
	}
	if err := installEnv(ctx, vm, env); err != nil {
		return nil, err
	}

	// the body runs as a function so `return` works
	wrapped := "(function() {\n" + body + "\n})()"
	out, err := vm.RunString(wrapped)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "js execution")
	}
	return exportValue(vm, out)
}

func installParams(vm *goja.Runtime, params []Param) error {
	meta := map[string]any{}
	for _, p := range params {
		if err := vm.Set(p.Name, toHostValue(p.Value)); err != nil {
			return errors.Wrapf(err, "bind parameter %s", p.Name)
		}
		if p.Meta != nil {
			meta[p.Name] = p.Meta
		}
	}

	helper := vm.NewObject()
	_ = helper.Set("meta", meta)
	_ = helper.Set("typeOf", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if m, ok := meta[name]; ok {
			if mm, ok := m.(map[string]any); ok {
				return vm.ToValue(mm["type"])
			}
		}
		return goja.Undefined()
	})
	return vm.Set("mlld", helper)
}

func installEnv(ctx context.Context, vm *goja.Runtime, env *Env) error {
	if env == nil {
		return nil
	}
	for _, name := range env.Names() {
		fn, _ := env.Get(name)
		callable := fn
		err := vm.Set(name, func(call goja.FunctionCall) goja.Value {
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				args = append(args, normalizeNumbers(a.Export()))
			}
			out, err := callable(ctx, args)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return vm.ToValue(toHostValue(out))
		})
		if err != nil {
			return errors.Wrapf(err, "bind shadow fn %s", name)
		}
	}
	return nil
}

// installInterrupt wires context cancellation into goja's interrupt
// mechanism.
func installInterrupt(ctx context.Context, vm *goja.Runtime) (stop func()) {
	if ctx == nil {
		return func() {}
	}
	done := make(chan struct{})
	vm.ClearInterrupt()
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() { close(done); vm.ClearInterrupt() }
}
