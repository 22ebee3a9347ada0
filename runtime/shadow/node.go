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
	"sync"

	"github.com/dop251/goja"
	"github.com/jackc/puddle/v2"
	"github.com/pkg/errors"
)

// NodeRuntime runs node blocks in isolated VM contexts. Instances are
// pooled: each holds its own goja runtime with a CJS require and a module
// exports cache, so concurrent iterations never share VM state.
type NodeRuntime struct {
	registry *Registry
	pool     *puddle.Pool[*nodeInstance]
}

type nodeInstance struct {
	vm      *goja.Runtime
	reg     *Registry
	cacheMu sync.Mutex
	cache   map[string]*goja.Object // require cache: key -> module.exports
}

// NewNodeRuntime builds a pooled runtime rooted at baseDir for relative
// requires.
func NewNodeRuntime(baseDir string, maxSize int32) (*NodeRuntime, error) {
	if maxSize <= 0 {
		maxSize = 8
	}
	reg := NewRegistry(baseDir)
	nr := &NodeRuntime{registry: reg}

	pool, err := puddle.NewPool(&puddle.Config[*nodeInstance]{
		Constructor: func(ctx context.Context) (*nodeInstance, error) {
			inst := &nodeInstance{
				vm:    goja.New(),
				reg:   reg,
				cache: map[string]*goja.Object{},
			}
			return inst, nil
		},
		Destructor: func(inst *nodeInstance) {
			inst.vm.ClearInterrupt()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}
	nr.pool = pool
	return nr, nil
}

// Run executes a node block with the given parameters and shadow env.
func (n *NodeRuntime) Run(ctx context.Context, body string, params []Param, env *Env) (any, error) {
	res, err := n.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	inst := res.Value()
	vm := inst.vm

	stop := installInterrupt(ctx, vm)
	defer stop()

	if err := installParams(vm, params); err != nil {
		return nil, err
	}
	if err := installEnv(ctx, vm, env); err != nil {
		return nil, err
	}
	if err := vm.Set("require", inst.requireFn(ctx, n.registry.BaseDir)); err != nil {
		return nil, errors.Wrap(err, "install require")
	}

	wrapped := "(function() {\n" + body + "\n})()"
	out, err := vm.RunString(wrapped)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "node execution")
	}
	return exportValue(vm, out)
}

// requireFn implements CommonJS require(spec) with per-instance caching.
func (inst *nodeInstance) requireFn(ctx context.Context, fromDir string) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		ex, err := inst.require(ctx, fromDir, spec)
		if err != nil {
			panic(inst.vm.NewGoError(err))
		}
		return ex
	}
}

func (inst *nodeInstance) require(ctx context.Context, fromDir, spec string) (*goja.Object, error) {
	mod, err := inst.reg.Load(fromDir, spec)
	if err != nil {
		return nil, err
	}

	inst.cacheMu.Lock()
	if ex, ok := inst.cache[mod.Key]; ok {
		inst.cacheMu.Unlock()
		return ex, nil
	}
	// placeholder first, for circular requires
	moduleObj := inst.vm.NewObject()
	exportsObj := inst.vm.NewObject()
	_ = moduleObj.Set("exports", exportsObj)
	inst.cache[mod.Key] = exportsObj
	inst.cacheMu.Unlock()

	fnVal, err := inst.vm.RunProgram(mod.Program)
	if err != nil {
		inst.evict(mod.Key)
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		inst.evict(mod.Key)
		return nil, errors.New("module did not evaluate to a function")
	}

	childRequire := inst.vm.ToValue(inst.requireFn(ctx, mod.Dir))
	if _, err := fn(fnVal, childRequire, inst.vm.ToValue(moduleObj), inst.vm.ToValue(exportsObj)); err != nil {
		inst.evict(mod.Key)
		return nil, err
	}

	// the factory may have reassigned module.exports
	finalObj := moduleObj.Get("exports").ToObject(inst.vm)
	inst.cacheMu.Lock()
	inst.cache[mod.Key] = finalObj
	inst.cacheMu.Unlock()
	return finalObj, nil
}

func (inst *nodeInstance) evict(key string) {
	inst.cacheMu.Lock()
	delete(inst.cache, key)
	inst.cacheMu.Unlock()
}

// Close tears the pool down.
func (n *NodeRuntime) Close() {
	n.pool.Close()
}
