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

package runtime

import (
	"context"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// iteration is one work item: the bound value plus the object key when
// iterating objects.
type iteration struct {
	value any
	key   string
	isKey bool
}

// evalFor iterates arrays and objects. Sequential bodies run in directive
// order; parallel bodies fan out under the concurrency cap and optional
// rate pacer, with results re-ordered to input order.
func (it *Interpreter) evalFor(ctx context.Context, env *Environment, d *ast.ForDirective) (any, error) {
	coll, err := it.evalExpr(ctx, env, d.Collection)
	if err != nil {
		return nil, err
	}

	items, err := iterationsOf(coll)
	if err != nil {
		return nil, err
	}

	var results []any
	if d.Parallel {
		results, err = it.forParallel(ctx, env, d, items)
	} else {
		results, err = it.forSequential(ctx, env, d, items)
	}
	if err != nil {
		return nil, err
	}

	if d.Into != "" {
		vari := values.NewVariable(d.Into, results, values.SourceInfo{Directive: "for"}, d.Rng)
		vari.WithSecurity(env.SecuritySnapshot())
		env.Set(d.Into, vari)
	}
	return results, nil
}

func (it *Interpreter) forSequential(ctx context.Context, env *Environment, d *ast.ForDirective, items []iteration) ([]any, error) {
	results := make([]any, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, xerrFromContext(ctx, "for loop")
		}
		out, err := it.runIteration(ctx, env, d, item)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// forParallel fans the body out. Execution order is unspecified; the
// result slice is indexed by input position, so ordering is preserved for
// the caller no matter how the work interleaves.
func (it *Interpreter) forParallel(ctx context.Context, env *Environment, d *ast.ForDirective, items []iteration) ([]any, error) {
	capN := d.Cap
	if capN <= 0 || capN > it.parallelLimit {
		capN = it.parallelLimit
	}
	sem := semaphore.NewWeighted(int64(capN))

	// the pacer is per-evaluation: two documents never share a bucket
	var limiter *rate.Limiter
	if d.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.Rate), 1)
	}

	results := make([]any, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for idx, item := range items {
		idx, item := idx, item
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return xerrFromContext(gctx, "for parallel")
				}
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return xerrFromContext(gctx, "for parallel")
			}
			defer sem.Release(1)

			out, err := it.runIteration(gctx, env, d, item)
			if err != nil {
				return err
			}
			results[idx] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runIteration executes the body with @x (and _key for objects) bound in a
// child scope. Branch writes stay in the child and are discarded.
func (it *Interpreter) runIteration(ctx context.Context, env *Environment, d *ast.ForDirective, item iteration) (any, error) {
	scope := env.NewChild()
	scope.Set(d.VarName, values.NewVariable(d.VarName, item.value, values.SourceInfo{Directive: "for"}, tokens.Range{}))
	if item.isKey {
		scope.Set("_key", values.NewVariable("_key", item.key, values.SourceInfo{Directive: "for"}, tokens.Range{}))
	}
	return it.evalAction(ctx, scope, d.Action)
}

// iterationsOf flattens a collection into ordered work items.
func iterationsOf(coll any) ([]iteration, error) {
	switch t := unwrapData(coll).(type) {
	case []any:
		out := make([]iteration, 0, len(t))
		for _, v := range t {
			out = append(out, iteration{value: v})
		}
		return out, nil
	case *values.LazyArray:
		arr, err := t.Materialize()
		if err != nil {
			return nil, err
		}
		out := make([]iteration, 0, len(arr))
		for _, v := range arr {
			out = append(out, iteration{value: v})
		}
		return out, nil
	case *values.Object:
		out := make([]iteration, 0, t.Len())
		t.Range(func(k string, v any) bool {
			out = append(out, iteration{value: v, key: k, isKey: true})
			return true
		})
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, xerr.New(xerr.CodeInternal, "cannot iterate %T", coll)
	}
}
