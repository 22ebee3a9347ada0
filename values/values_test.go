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

package values

import (
	"encoding/json"
	"testing"

	"github.com/mlld-sh/mlld/tokens"
	"github.com/stretchr/testify/suite"
)

func tokensRange() tokens.Range { return tokens.At("test.mld", 1, 1) }

type ValuesTestSuite struct {
	suite.Suite
}

func TestValuesTestSuite(t *testing.T) {
	suite.Run(t, new(ValuesTestSuite))
}

func (s *ValuesTestSuite) TestKindOf() {
	s.Equal(KindNull, KindOf(nil))
	s.Equal(KindNull, KindOf(Undefined))
	s.Equal(KindBool, KindOf(true))
	s.Equal(KindNumber, KindOf(3.14))
	s.Equal(KindText, KindOf("x"))
	s.Equal(KindPath, KindOf(Path("/tmp/x")))
	s.Equal(KindArray, KindOf([]any{}))
	s.Equal(KindObject, KindOf(NewObject()))
	s.Equal(KindStructured, KindOf(&StructuredValue{}))
	s.Equal(KindExecutable, KindOf(&Executable{}))
}

func (s *ValuesTestSuite) TestObjectPreservesInsertionOrder() {
	o := ObjectFrom("z", 1, "a", 2, "m", 3)
	s.Equal([]string{"z", "a", "m"}, o.Keys())

	b, err := json.Marshal(o)
	s.Require().NoError(err)
	s.Equal(`{"z":1,"a":2,"m":3}`, string(b))
}

func (s *ValuesTestSuite) TestObjectRebindReplacesInPlace() {
	o := ObjectFrom("a", 1, "b", 2)
	o.Set("a", 99)
	s.Equal([]string{"a", "b"}, o.Keys())
	v, _ := o.Get("a")
	s.Equal(99, v)
}

func (s *ValuesTestSuite) TestObjectCloneIsIndependent() {
	o := ObjectFrom("a", 1)
	c := o.Clone()
	c.Set("b", 2)
	s.Equal(1, o.Len())
	s.Equal(2, c.Len())
}

func (s *ValuesTestSuite) TestStructuredLazyTextMaterializesOnce() {
	materialized := 0
	sv := NewStructuredLazy("text", func() string {
		materialized++
		return "computed"
	}, nil, Metadata{Source: "load-content"})

	s.Equal("computed", sv.Text())
	s.Equal("computed", sv.Text())
	s.Equal(1, materialized)
}

func (s *ValuesTestSuite) TestFromJSONTextParsesLazily() {
	sv := FromJSONText(`{"n": 42}`, Metadata{Format: "json"})
	s.Equal(`{"n": 42}`, sv.Text())

	data, ok := sv.Data().(map[string]any)
	s.Require().True(ok)
	s.Equal(42.0, data["n"])
}

func (s *ValuesTestSuite) TestFromJSONTextBadInputFallsBackToText() {
	sv := FromJSONText(`not json`, Metadata{})
	s.Equal("not json", sv.Data())
}

func (s *ValuesTestSuite) TestLazyArrayMemoizes() {
	computed := 0
	la := NewLazyArray(3, func(i int) (any, error) {
		computed++
		return i * 2, nil
	})

	v, err := la.Get(2)
	s.Require().NoError(err)
	s.Equal(4, v)
	_, _ = la.Get(2)
	s.Equal(1, computed)

	all, err := la.Materialize()
	s.Require().NoError(err)
	s.Equal([]any{0, 2, 4}, all)
	s.Equal(3, computed)
}

func (s *ValuesTestSuite) TestLazyArrayOutOfRange() {
	la := NewLazyArray(1, func(int) (any, error) { return nil, nil })
	v, err := la.Get(5)
	s.NoError(err)
	s.True(IsUndefined(v))
}

func (s *ValuesTestSuite) TestUndefinedIsNotNil() {
	s.True(IsUndefined(Undefined))
	s.False(IsUndefined(nil))
}

func (s *ValuesTestSuite) TestVariableRebindIsReplacement() {
	v := NewVariable("x", "one", SourceInfo{Directive: "var"}, tokensRange())
	s.Equal(KindText, v.Type)

	clone := v.Clone()
	clone.Value = "two"
	s.Equal("one", v.Value)
}
