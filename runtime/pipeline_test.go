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
	"fmt"
	"testing"
	"time"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/stretchr/testify/suite"
)

type PipelineTestSuite struct {
	suite.Suite
	ctx context.Context
	h   *harness
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(s.T())
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) run(p *ast.PipelineExpr) (*PipelineResult, error) {
	return s.h.interp.runPipeline(s.ctx, s.h.env, p)
}

// Retry up to the generator: gen yields drafts on tries 1 and 2, rev sends
// them back; the accept happens on rev's first (and only) try.
func (s *PipelineTestSuite) TestRetryUpToGenerator() {
	genCalls := 0
	s.h.bindNative("gen", nil, func(_ context.Context, _ []any) (any, error) {
		genCalls++
		switch genCalls {
		case 1:
			return "draft v1", nil
		case 2:
			return "draft v2", nil
		default:
			return "final", nil
		}
	})
	s.h.bindNative("rev", []string{"input"}, func(ctx context.Context, args []any) (any, error) {
		input := argValue(args[0])
		if input == "draft v1" || input == "draft v2" {
			return retryRequested, nil
		}
		info, _ := StageInfoFrom(ctx)
		return fmt.Sprintf("Accepted: %v (try %d)", input, info.Try), nil
	})

	res, err := s.run(&ast.PipelineExpr{
		Source: &ast.CallExpr{Target: "gen"},
		Stages: []*ast.Stage{stageCall("rev")},
	})
	s.Require().NoError(err)
	s.Equal("Accepted: final (try 1)", res.Value)

	// @p for the source stage records every generator run
	sourceRuns := []HistoryEntry{}
	for _, h := range res.History {
		if h.Stage == 0 {
			sourceRuns = append(sourceRuns, h)
		}
	}
	s.Len(sourceRuns, 3)
	s.Equal("draft v1", sourceRuns[0].Output)
	s.Equal("draft v2", sourceRuns[1].Output)
	s.Equal("final", sourceRuns[2].Output)

	// ctx.try in the retried stage increments
	s.Equal(1, sourceRuns[0].Try)
	s.Equal(2, sourceRuns[1].Try)
	s.Equal(3, sourceRuns[2].Try)
}

// A parallel group's next-stage input is a JSON array in source order.
func (s *PipelineTestSuite) TestParallelGroupOrderedJSON() {
	s.h.bindNative("split", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		time.Sleep(30 * time.Millisecond) // jitter: slowest branch first in source order
		return []any{"A", "B", "C"}, nil
	})
	s.h.bindNative("upper", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		time.Sleep(10 * time.Millisecond)
		return "ABC", nil
	})
	s.h.bindNative("lower", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return "abc", nil
	})

	var nextInput any
	s.h.bindNative("capture", []string{"input"}, func(_ context.Context, args []any) (any, error) {
		nextInput = argValue(args[0])
		return args[0], nil
	})

	group := &ast.Stage{Group: []*ast.Stage{
		stageCall("split"), stageCall("upper"), stageCall("lower"),
	}}
	_, err := s.run(&ast.PipelineExpr{
		Source: str("seed"),
		Stages: []*ast.Stage{group, stageCall("capture")},
	})
	s.Require().NoError(err)

	s.Equal(`["A,B,C","ABC","abc"]`, nextInput)

	var decoded []string
	s.Require().NoError(json.Unmarshal([]byte(nextInput.(string)), &decoded))
	s.Equal([]string{"A,B,C", "ABC", "abc"}, decoded)
}

// Sequential pipelines with no retry concatenate effects left to right.
func (s *PipelineTestSuite) TestSequentialEffectOrder() {
	s.h.bindNative("one", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return "first", nil
	})
	s.h.bindNative("two", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return "second", nil
	})

	_, err := s.run(&ast.PipelineExpr{
		Source: str("seed"),
		Stages: []*ast.Stage{
			stageCall("one"),
			{Builtin: ast.BuiltinShow},
			stageCall("two"),
			{Builtin: ast.BuiltinShow},
		},
	})
	s.Require().NoError(err)
	s.Equal("first\nsecond\n", s.h.sink.Document())
}

func (s *PipelineTestSuite) TestBuiltinsOnlyPipelineGetsIdentityStage() {
	res, err := s.run(&ast.PipelineExpr{
		Source: str("payload"),
		Stages: []*ast.Stage{{Builtin: ast.BuiltinLog}},
	})
	s.Require().NoError(err)
	s.Equal("payload", res.Value)
	s.Equal("payload\n", s.h.sink.Stderr())
}

func (s *PipelineTestSuite) TestRetryAtStageZeroIsInvalid() {
	s.h.bindNative("always", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return retryRequested, nil
	})
	_, err := s.run(&ast.PipelineExpr{
		Source: str("literal"),
		Stages: []*ast.Stage{stageCall("always")},
	})
	s.Require().Error(err)
	s.Equal(xerr.CodeInvalidRetry, xerr.CodeOf(err))
}

func (s *PipelineTestSuite) TestNestedRetryIsInvalid() {
	s.h.bindNative("flaky", nil, func(_ context.Context, _ []any) (any, error) {
		return "x", nil
	})
	midCalls := 0
	s.h.bindNative("mid", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		midCalls++
		if midCalls == 1 {
			return "m1", nil
		}
		// re-run as a retry target: requesting retry again is nested
		return retryRequested, nil
	})
	s.h.bindNative("tail", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return retryRequested, nil
	})

	_, err := s.run(&ast.PipelineExpr{
		Source: &ast.CallExpr{Target: "flaky"},
		Stages: []*ast.Stage{stageCall("mid"), stageCall("tail")},
	})
	s.Require().Error(err)
	s.Equal(xerr.CodeInvalidRetry, xerr.CodeOf(err))
}

func (s *PipelineTestSuite) TestRetryAfterParallelGroupIsInvalid() {
	s.h.bindNative("branch", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return "b", nil
	})
	s.h.bindNative("wantRetry", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return retryRequested, nil
	})

	_, err := s.run(&ast.PipelineExpr{
		Source: str("seed"),
		Stages: []*ast.Stage{
			{Group: []*ast.Stage{stageCall("branch"), stageCall("branch")}},
			stageCall("wantRetry"),
		},
	})
	s.Require().Error(err)
	s.Equal(xerr.CodeInvalidRetry, xerr.CodeOf(err))
}

func (s *PipelineTestSuite) TestParallelBranchFailurePropagates() {
	s.h.bindNative("ok", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return "fine", nil
	})
	s.h.bindNative("boom", []string{"input"}, func(_ context.Context, _ []any) (any, error) {
		return nil, fmt.Errorf("branch exploded")
	})

	_, err := s.run(&ast.PipelineExpr{
		Source: str("seed"),
		Stages: []*ast.Stage{{Group: []*ast.Stage{stageCall("ok"), stageCall("boom")}}},
	})
	s.Require().Error(err)
	s.Equal(xerr.CodeParallelBranchFailed, xerr.CodeOf(err))
}

func (s *PipelineTestSuite) TestFormatHintWrapsInputLazily() {
	var seen any
	s.h.bindNative("inspect", []string{"input"}, func(_ context.Context, args []any) (any, error) {
		seen = argValue(args[0])
		return "done", nil
	})

	_, err := s.run(&ast.PipelineExpr{
		Source: str(`{"k": "v"}`),
		Format: "json",
		Stages: []*ast.Stage{stageCall("inspect")},
	})
	s.Require().NoError(err)

	sv, ok := seen.(interface{ Data() any })
	s.Require().True(ok, "expected a structured value, got %T", seen)
	data, ok := sv.Data().(map[string]any)
	s.Require().True(ok)
	s.Equal("v", data["k"])
}

func (s *PipelineTestSuite) TestHistoryRecordsInputOutputTry() {
	s.h.bindNative("up", []string{"input"}, func(_ context.Context, args []any) (any, error) {
		return fmt.Sprintf("%v!", argValue(args[0])), nil
	})
	res, err := s.run(&ast.PipelineExpr{
		Source: str("a"),
		Stages: []*ast.Stage{stageCall("up")},
	})
	s.Require().NoError(err)
	s.Require().Len(res.History, 1)
	s.Equal("a", res.History[0].Input)
	s.Equal("a!", res.History[0].Output)
	s.Equal(1, res.History[0].Try)
}
