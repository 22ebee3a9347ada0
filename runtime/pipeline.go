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
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/tokens"
	"github.com/mlld-sh/mlld/values"
	"github.com/mlld-sh/mlld/xerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// HistoryEntry records one stage execution: `{ input, output, try }`.
type HistoryEntry struct {
	Stage  int
	Try    int
	Input  any
	Output any
}

// PipelineResult is a finished pipeline's value plus its history.
type PipelineResult struct {
	Value   any
	History []HistoryEntry
}

// logicalStage is a preprocessed stage: the work plus any attached builtin
// effects that run against its result before the pipeline advances.
type logicalStage struct {
	call    *ast.CallExpr
	group   []*ast.Stage
	effects []*ast.Stage

	// synthetic marks the prepended source stage backed by a function
	// call; it is the only retryable stage 0.
	synthetic  bool
	sourceCall *ast.CallExpr

	// identity marks the implicit stage of a builtins-only pipeline.
	identity bool
}

// runPipeline evaluates `source | s1 | s2`. A function-call source becomes
// a synthetic stage 0 so retry semantics are uniform.
func (it *Interpreter) runPipeline(ctx context.Context, env *Environment, p *ast.PipelineExpr) (*PipelineResult, error) {
	if call, ok := p.Source.(*ast.CallExpr); ok {
		return it.execStages(ctx, env, nil, p.Stages, p.Format, call)
	}

	var input any
	var err error
	if ref, ok := p.Source.(*ast.VariableRef); ok {
		input, err = it.resolveRef(ctx, env, ref, resolvePipelineInput)
	} else {
		input, err = it.evalExpr(ctx, env, p.Source)
	}
	if err != nil {
		return nil, err
	}
	return it.execStages(ctx, env, input, p.Stages, p.Format, nil)
}

// runStages is the entry for directive-attached pipelines whose input was
// already produced (e.g. /run ... | @f).
func (it *Interpreter) runStages(ctx context.Context, env *Environment, input any, raw []*ast.Stage, format string, _ bool) (*PipelineResult, error) {
	return it.execStages(ctx, env, input, raw, format, nil)
}

// preprocess turns the raw stage list into logical stages with attached
// effects. A builtin observes the value flowing at its position, so it
// attaches to the logical stage that produced that value; leading builtins
// attach to the first logical stage (the synthetic source when present),
// and a builtins-only pipeline gets an implicit identity stage.
func preprocess(raw []*ast.Stage, sourceCall *ast.CallExpr) []logicalStage {
	stages := []logicalStage{}
	if sourceCall != nil {
		stages = append(stages, logicalStage{synthetic: true, sourceCall: sourceCall})
	}

	var leading []*ast.Stage
	for _, s := range raw {
		if s.Builtin != "" {
			if len(stages) == 0 {
				leading = append(leading, s)
				continue
			}
			last := &stages[len(stages)-1]
			last.effects = append(last.effects, s)
			continue
		}
		ls := logicalStage{}
		if len(s.Group) > 0 {
			ls.group = s.Group
		} else {
			ls.call = s.Call
		}
		stages = append(stages, ls)
	}

	if len(stages) == 0 {
		// only builtins (or nothing at all): run them against the input
		return []logicalStage{{identity: true, effects: leading}}
	}
	if len(leading) > 0 {
		first := &stages[0]
		first.effects = append(leading, first.effects...)
	}
	if sourceCall != nil && len(stages) == 1 {
		stages = append(stages, logicalStage{identity: true})
	}
	return stages
}

// execStages drives the stage loop with retry bookkeeping.
func (it *Interpreter) execStages(ctx context.Context, env *Environment, input any, raw []*ast.Stage, format string, sourceCall *ast.CallExpr) (*PipelineResult, error) {
	stages := preprocess(raw, sourceCall)

	tries := make([]int, len(stages))
	noRetry := make([]bool, len(stages))
	stageInput := make([]any, len(stages))
	for i := range tries {
		tries[i] = 1
	}

	history := make([]HistoryEntry, 0, len(stages))
	current := input

	i := 0
	for i < len(stages) {
		if err := ctx.Err(); err != nil {
			return nil, xerrFromContext(ctx, "pipeline")
		}
		stageInput[i] = current

		out, err := it.execStage(ctx, env, stages[i], current, format, i, tries[i], history)
		if err != nil {
			return nil, err
		}

		if out == retryRequested {
			if i == 0 {
				return nil, xerr.ErrInvalidRetry("stage 0 has no predecessor to retry")
			}
			if len(stages[i-1].group) > 0 {
				return nil, xerr.ErrInvalidRetry("parallel groups do not honor retry")
			}
			if !stages[i-1].synthetic && stages[i-1].call == nil {
				return nil, xerr.ErrInvalidRetry("previous stage is not re-executable")
			}
			if noRetry[i] {
				return nil, xerr.ErrInvalidRetry("nested retry: the retried stage cannot itself request retry")
			}
			if i-1 == 0 && stages[0].synthetic && stages[0].sourceCall == nil {
				return nil, xerr.ErrInvalidRetry("stage 0 is not backed by a function")
			}
			slog.DebugContext(ctx, "pipeline.retry", slog.Int("stage", i), slog.Int("try", tries[i-1]+1))

			tries[i-1]++
			noRetry[i-1] = true
			i--
			current = stageInput[i]
			continue
		}

		// the retry cycle this stage served (if any) is over
		noRetry[i] = false

		history = append(history, HistoryEntry{Stage: i, Try: tries[i], Input: stageInput[i], Output: out})

		if err := it.runAttachedEffects(ctx, env, stages[i].effects, out); err != nil {
			return nil, err
		}

		current = out
		i++
	}

	return &PipelineResult{Value: current, History: history}, nil
}

// StageInfo is the pipeline context exposed to host-native stage
// functions via the call context.
type StageInfo struct {
	Stage int
	Try   int
	Input any
}

type stageInfoKey struct{}

// WithStageInfo attaches pipeline stage context for native callees.
func WithStageInfo(ctx context.Context, info StageInfo) context.Context {
	return context.WithValue(ctx, stageInfoKey{}, info)
}

// StageInfoFrom recovers the stage context inside a native stage function.
func StageInfoFrom(ctx context.Context) (StageInfo, bool) {
	info, ok := ctx.Value(stageInfoKey{}).(StageInfo)
	return info, ok
}

// execStage runs one logical stage with `@ctx` and `@p` bound.
func (it *Interpreter) execStage(ctx context.Context, env *Environment, ls logicalStage, input any, format string, index, try int, history []HistoryEntry) (any, error) {
	switch {
	case ls.identity:
		return input, nil

	case ls.synthetic:
		scope := it.stageScope(env, input, index, try, history)
		return it.evalCall(WithStageInfo(ctx, StageInfo{Stage: index, Try: try, Input: input}), scope, ls.sourceCall)

	case len(ls.group) > 0:
		return it.execParallelGroup(ctx, env, ls.group, it.applyFormat(input, format), index, try, history)

	default:
		staged := it.applyFormat(input, format)
		scope := it.stageScope(env, staged, index, try, history)
		sctx := WithStageInfo(ctx, StageInfo{Stage: index, Try: try, Input: staged})

		if len(ls.call.Args) == 0 {
			return it.call(sctx, scope, ls.call.Target, []any{staged}, ls.call)
		}
		return it.evalCall(sctx, scope, ls.call)
	}
}

// stageScope builds the child env a stage runs in: `@ctx` carries
// {try, input, stage}, `@input` the raw input, `@p` the outputs so far.
func (it *Interpreter) stageScope(env *Environment, input any, index, try int, history []HistoryEntry) *Environment {
	scope := env.NewChild()

	ctxObj := values.NewObject()
	ctxObj.Set("try", float64(try))
	ctxObj.Set("input", input)
	ctxObj.Set("stage", float64(index))
	scope.Set("ctx", values.NewVariable("ctx", ctxObj, values.SourceInfo{Directive: "pipeline"}, tokens.Range{}))

	scope.Set("input", values.NewVariable("input", input, values.SourceInfo{Directive: "pipeline"}, tokens.Range{}))

	outputs := make([]any, 0, len(history))
	for _, h := range history {
		outputs = append(outputs, h.Output)
	}
	scope.Set("p", values.NewVariable("p", outputs, values.SourceInfo{Directive: "pipeline"}, tokens.Range{}))
	return scope
}

// applyFormat wraps textual stage input for lazy parsing when a format
// hint is present.
func (it *Interpreter) applyFormat(input any, format string) any {
	if format == "" {
		return input
	}
	text, ok := input.(string)
	if !ok {
		return input
	}
	switch format {
	case "json":
		return values.FromJSONText(text, values.Metadata{Format: "json"})
	case "csv":
		sv, err := BuiltinCSV(context.Background(), []any{text})
		if err != nil {
			return input
		}
		return sv
	case "xml":
		return values.NewStructured("xml", text, text, values.Metadata{Format: "xml"})
	default:
		return input
	}
}

// execParallelGroup runs `A || B || C` as one logical stage: the input is
// cloned to each branch, branches run concurrently under the global limit,
// and results are collected in source order and serialized as JSON text.
// Branches do not honor retry.
func (it *Interpreter) execParallelGroup(ctx context.Context, env *Environment, branches []*ast.Stage, input any, index, try int, history []HistoryEntry) (any, error) {
	results := make([]any, len(branches))
	sem := semaphore.NewWeighted(int64(it.parallelLimit))

	g, gctx := errgroup.WithContext(ctx)
	for bi, branch := range branches {
		bi, branch := bi, branch
		if branch.Call == nil {
			return nil, xerr.ErrInvalidRetry("parallel branches must be function stages")
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return xerrFromContext(gctx, "parallel group")
			}
			defer sem.Release(1)

			// each branch gets its own shallow copy of the input and its own
			// scope; branch writes are discarded
			branchInput := input
			switch t := input.(type) {
			case []any:
				branchInput = append([]any(nil), t...)
			case *values.Object:
				branchInput = t.Clone()
			}
			scope := it.stageScope(env, branchInput, index, try, history)
			var out any
			var err error
			if len(branch.Call.Args) == 0 {
				out, err = it.call(gctx, scope, branch.Call.Target, []any{branchInput}, branch.Call)
			} else {
				out, err = it.evalCall(gctx, scope, branch.Call)
			}
			if err != nil {
				if xerr.IsCode(err, xerr.CodeGuardDenied) {
					return err
				}
				return xerr.ErrParallelBranchFailed(bi, err)
			}
			if out == retryRequested {
				return xerr.ErrInvalidRetry("retry is not supported inside a parallel group")
			}
			results[bi] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = branchText(r)
	}
	b, err := json.Marshal(texts)
	if err != nil {
		return nil, xerr.Internal("serialize parallel group: %v", err)
	}
	return string(b), nil
}

// branchText flattens a branch result to text; arrays join their elements
// with commas so compound results stay one line.
func branchText(v any) string {
	if arr, err := asArray(unwrapData(v)); err == nil && arr != nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			parts = append(parts, displayText(item))
		}
		return strings.Join(parts, ",")
	}
	return displayText(v)
}

// runAttachedEffects executes a stage's builtin effects against its value.
// Effects never mutate the pipeline value.
func (it *Interpreter) runAttachedEffects(ctx context.Context, env *Environment, attached []*ast.Stage, value any) error {
	for _, eff := range attached {
		switch eff.Builtin {
		case ast.BuiltinShow:
			if err := env.Sink().Emit(ctx, effects.NewBoth(displayText(value)+"\n")); err != nil {
				return err
			}
		case ast.BuiltinLog:
			if err := env.Sink().Emit(ctx, effects.NewStderr(displayText(value)+"\n")); err != nil {
				return err
			}
		case ast.BuiltinOutput:
			targetVal, err := it.evalExpr(ctx, env, eff.Target)
			if err != nil {
				return err
			}
			path := values.AsString(targetVal)
			if path == "" {
				path = displayText(targetVal)
			}
			sc := security.Context{File: env.FilePath(), Directive: "output"}
			if err := it.secure.CheckPath(ctx, sc, path, security.PathWrite); err != nil {
				return err
			}
			if err := env.Sink().Emit(ctx, effects.NewFileWrite(path, []byte(displayText(value)), false)); err != nil {
				return err
			}
		}
	}
	return nil
}
