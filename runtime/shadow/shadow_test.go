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
	"testing"

	"github.com/mlld-sh/mlld/values"
	"github.com/stretchr/testify/suite"
)

type ShadowTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ShadowTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestShadowTestSuite(t *testing.T) {
	suite.Run(t, new(ShadowTestSuite))
}

func (s *ShadowTestSuite) TestEnvPreservesRegistrationOrder() {
	env := NewEnv()
	env.Set("c", nil)
	env.Set("a", nil)
	env.Set("b", nil)
	s.Equal([]string{"c", "a", "b"}, env.Names())

	// re-registering keeps the slot
	env.Set("a", nil)
	s.Equal([]string{"c", "a", "b"}, env.Names())
}

func (s *ShadowTestSuite) TestCaptureIsSnapshot() {
	set := NewEnvSet()
	set.Lang(LangJS).Set("f", nil)

	captured := set.Capture()
	set.Lang(LangJS).Set("g", nil)

	env, ok := captured.Peek(LangJS)
	s.Require().True(ok)
	s.Equal([]string{"f"}, env.Names())
}

func (s *ShadowTestSuite) TestRunJSReturnsValue() {
	out, err := RunJS(s.ctx, "return a + b", []Param{
		{Name: "a", Value: 2.0},
		{Name: "b", Value: 3.0},
	}, nil)
	s.Require().NoError(err)
	s.Equal(5.0, out)
}

func (s *ShadowTestSuite) TestRunJSCallsShadowFn() {
	env := NewEnv()
	env.Set("greet", func(_ context.Context, args []any) (any, error) {
		return "hello " + args[0].(string), nil
	})
	out, err := RunJS(s.ctx, `return greet("world")`, nil, env)
	s.Require().NoError(err)
	s.Equal("hello world", out)
}

func (s *ShadowTestSuite) TestRunJSHelperExposesTypeMeta() {
	out, err := RunJS(s.ctx, `return mlld.typeOf("x")`, []Param{
		{Name: "x", Value: "text value", Meta: map[string]any{"type": "text"}},
	}, nil)
	s.Require().NoError(err)
	s.Equal("text", out)
}

func (s *ShadowTestSuite) TestRunShellParamsCrossAsEnvVars() {
	res, err := RunShell(s.ctx, "sh", `printf '%s' "$GREETING"`, s.T().TempDir(), map[string]string{
		"GREETING": "hi from env",
	})
	s.Require().NoError(err)
	s.Equal("hi from env", res.Stdout)
}

func (s *ShadowTestSuite) TestRunShellNonzeroExit() {
	_, err := RunShell(s.ctx, "sh", "exit 3", s.T().TempDir(), nil)
	s.Error(err)
}

func (s *ShadowTestSuite) TestStringifyResult() {
	s.Equal("plain", StringifyResult("plain"))
	s.Equal("", StringifyResult(nil))
	s.Equal(`["a","b"]`, StringifyResult([]any{"a", "b"}))

	obj := values.ObjectFrom("k", "v")
	s.Equal(`{"k":"v"}`, StringifyResult(obj))
}

func (s *ShadowTestSuite) TestTranspileTS() {
	code, err := Transpile("mod.ts", "export const n: number = 1")
	s.Require().NoError(err)
	s.Contains(code, "n")
	s.NotContains(code, ": number")
}
