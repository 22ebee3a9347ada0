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
	"testing"
	"time"

	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/values"
	"github.com/stretchr/testify/suite"
)

type ForTestSuite struct {
	suite.Suite
	ctx context.Context
	h   *harness
}

func (s *ForTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(s.T())
}

func TestForTestSuite(t *testing.T) {
	suite.Run(t, new(ForTestSuite))
}

func (s *ForTestSuite) TestSequentialCollectionForm() {
	d := &ast.ForDirective{
		VarName:    "n",
		Collection: &ast.ArrayLiteral{Values: []ast.Expression{num(1), num(2), num(3)}},
		Action:     &ast.BinaryExpr{Op: "*", Left: ref("n"), Right: num(10)},
	}
	out, err := s.h.interp.evalFor(s.ctx, s.h.env, d)
	s.Require().NoError(err)
	s.Equal([]any{10.0, 20.0, 30.0}, out)
}

func (s *ForTestSuite) TestObjectIterationExposesKey() {
	obj := values.ObjectFrom("first", "a", "second", "b")
	s.h.bindValue("coll", obj)

	keys := []any{}
	s.h.bindNative("note", []string{"k"}, func(_ context.Context, args []any) (any, error) {
		keys = append(keys, argValue(args[0]))
		return nil, nil
	})

	d := &ast.ForDirective{
		VarName:    "v",
		Collection: ref("coll"),
		Action:     &ast.CallExpr{Target: "note", Args: []ast.Expression{ref("_key")}},
	}
	_, err := s.h.interp.evalFor(s.ctx, s.h.env, d)
	s.Require().NoError(err)
	s.Equal([]any{"first", "second"}, keys)
}

// Parallel /for preserves input order in its results even with jitter.
func (s *ForTestSuite) TestParallelPreservesOrder() {
	s.h.bindNative("double", []string{"n"}, func(_ context.Context, args []any) (any, error) {
		n := values.AsNumber(argValue(args[0]))
		// later items finish first
		time.Sleep(time.Duration(6-int(n)) * 10 * time.Millisecond)
		return n * 2, nil
	})

	d := &ast.ForDirective{
		VarName: "n",
		Collection: &ast.ArrayLiteral{Values: []ast.Expression{
			num(1), num(2), num(3), num(4), num(5),
		}},
		Action:   &ast.CallExpr{Target: "double", Args: []ast.Expression{ref("n")}},
		Parallel: true,
		Cap:      4,
	}
	out, err := s.h.interp.evalFor(s.ctx, s.h.env, d)
	s.Require().NoError(err)
	s.Equal([]any{2.0, 4.0, 6.0, 8.0, 10.0}, out)
}

func (s *ForTestSuite) TestIterationBindingsStayInChildScope() {
	d := &ast.ForDirective{
		VarName:    "x",
		Collection: &ast.ArrayLiteral{Values: []ast.Expression{str("v")}},
		Action:     ref("x"),
	}
	_, err := s.h.interp.evalFor(s.ctx, s.h.env, d)
	s.Require().NoError(err)

	_, ok := s.h.env.Get("x")
	s.False(ok)
}

func (s *ForTestSuite) TestIntoBindsCollectionResult() {
	d := &ast.ForDirective{
		VarName:    "n",
		Collection: &ast.ArrayLiteral{Values: []ast.Expression{num(1), num(2)}},
		Action:     &ast.BinaryExpr{Op: "+", Left: ref("n"), Right: num(1)},
		Into:       "bumped",
	}
	_, err := s.h.interp.evalFor(s.ctx, s.h.env, d)
	s.Require().NoError(err)

	v, ok := s.h.env.Get("bumped")
	s.Require().True(ok)
	s.Equal([]any{2.0, 3.0}, v.Value)
}

type ForeachTestSuite struct {
	suite.Suite
	ctx context.Context
	h   *harness
}

func (s *ForeachTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.h = newHarness(s.T())
}

func TestForeachTestSuite(t *testing.T) {
	suite.Run(t, new(ForeachTestSuite))
}

func (s *ForeachTestSuite) TestCartesianProductOrder() {
	s.h.bindValue("letters", []any{"a", "b"})
	s.h.bindValue("nums", []any{1.0, 2.0, 3.0})

	calls := []any{}
	s.h.bindNative("pair", []string{"l", "n"}, func(_ context.Context, args []any) (any, error) {
		out := argValue(args[0]).(string) + "-" + displayText(argValue(args[1]))
		calls = append(calls, out)
		return out, nil
	})

	e := &ast.ForeachExpr{Call: &ast.CallExpr{
		Target: "pair",
		Args:   []ast.Expression{ref("letters"), ref("nums")},
	}}
	out, err := s.h.interp.evalForeach(s.ctx, s.h.env, e)
	s.Require().NoError(err)

	lazy, ok := out.(*values.LazyArray)
	s.Require().True(ok)
	s.Equal(6, lazy.Len())

	materialized, err := lazy.Materialize()
	s.Require().NoError(err)
	s.Equal([]any{"a-1", "a-2", "a-3", "b-1", "b-2", "b-3"}, materialized)
}

func (s *ForeachTestSuite) TestResultsAreLazy() {
	s.h.bindValue("xs", []any{"a", "b", "c"})

	invoked := 0
	s.h.bindNative("touch", []string{"x"}, func(_ context.Context, args []any) (any, error) {
		invoked++
		return argValue(args[0]), nil
	})

	e := &ast.ForeachExpr{Call: &ast.CallExpr{
		Target: "touch",
		Args:   []ast.Expression{ref("xs")},
	}}
	out, err := s.h.interp.evalForeach(s.ctx, s.h.env, e)
	s.Require().NoError(err)
	s.Equal(0, invoked)

	lazy := out.(*values.LazyArray)
	v, err := lazy.Get(1)
	s.Require().NoError(err)
	s.Equal("b", v)
	s.Equal(1, invoked)

	// memoized: reading the same slot again does not re-invoke
	_, _ = lazy.Get(1)
	s.Equal(1, invoked)
}
