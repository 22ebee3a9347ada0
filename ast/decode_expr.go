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

package ast

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func decodeExpr(b json.RawMessage) (Expression, error) {
	if len(b) == 0 {
		return nil, errors.New("missing expression")
	}
	var tag struct {
		Expr string `json:"expr"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return nil, err
	}

	switch tag.Expr {
	case "string":
		var e struct {
			Value string `json:"value"`
		}
		err := json.Unmarshal(b, &e)
		return &StringLiteral{Value: e.Value}, err

	case "number":
		var e struct {
			Value float64 `json:"value"`
		}
		err := json.Unmarshal(b, &e)
		return &NumberLiteral{Value: e.Value}, err

	case "bool":
		var e struct {
			Value bool `json:"value"`
		}
		err := json.Unmarshal(b, &e)
		return &BoolLiteral{Value: e.Value}, err

	case "null":
		return &NullLiteral{}, nil

	case "retry":
		return &RetryLiteral{}, nil

	case "array":
		var e struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		out := &ArrayLiteral{}
		for _, item := range e.Items {
			expr, err := decodeExpr(item)
			if err != nil {
				return nil, err
			}
			out.Values = append(out.Values, expr)
		}
		return out, nil

	case "object":
		var e struct {
			Entries []struct {
				Key   string          `json:"key"`
				Value json.RawMessage `json:"value"`
			} `json:"entries"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		out := &ObjectLiteral{}
		for _, entry := range e.Entries {
			expr, err := decodeExpr(entry.Value)
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, ObjectEntry{Key: entry.Key, Value: expr})
		}
		return out, nil

	case "ref":
		var e struct {
			Name   string `json:"name"`
			Fields []struct {
				Key   string `json:"key"`
				Index *int   `json:"index"`
			} `json:"fields"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		out := &VariableRef{Name: e.Name}
		for _, field := range e.Fields {
			if field.Index != nil {
				out.Fields = append(out.Fields, Field{Index: *field.Index, IsIndex: true})
			} else {
				out.Fields = append(out.Fields, Field{Key: field.Key})
			}
		}
		return out, nil

	case "template":
		var e struct {
			Syntax string `json:"syntax"`
			Parts  []struct {
				Text string          `json:"text"`
				Expr json.RawMessage `json:"expr"`
			} `json:"parts"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		out := &TemplateLiteral{Syntax: e.Syntax}
		if out.Syntax == "" {
			out.Syntax = "::"
		}
		for _, part := range e.Parts {
			tp := TemplatePart{Text: part.Text}
			if len(part.Expr) > 0 {
				expr, err := decodeExpr(part.Expr)
				if err != nil {
					return nil, err
				}
				tp.Expr = expr
			}
			out.Parts = append(out.Parts, tp)
		}
		return out, nil

	case "binary":
		var e struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		left, err := decodeExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: e.Op, Left: left, Right: right}, nil

	case "unary":
		var e struct {
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		operand, err := decodeExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: e.Op, Operand: operand}, nil

	case "call":
		return decodeCall(b)

	case "foreach":
		var e struct {
			Call json.RawMessage `json:"call"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		call, err := decodeCall(e.Call)
		if err != nil {
			return nil, err
		}
		return &ForeachExpr{Call: call}, nil

	case "loader":
		var e struct {
			Path json.RawMessage `json:"path"`
			Glob bool            `json:"glob"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		path, err := decodeExpr(e.Path)
		if err != nil {
			return nil, err
		}
		return &LoaderExpr{Path: path, Glob: e.Glob}, nil

	case "pipeline":
		var e struct {
			Source json.RawMessage   `json:"source"`
			Stages []json.RawMessage `json:"stages"`
			Format string            `json:"format"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		source, err := decodeExpr(e.Source)
		if err != nil {
			return nil, err
		}
		out := &PipelineExpr{Source: source, Format: e.Format}
		for _, rs := range e.Stages {
			stage, err := decodeStage(rs)
			if err != nil {
				return nil, err
			}
			out.Stages = append(out.Stages, stage)
		}
		return out, nil

	default:
		return nil, errors.Errorf("unknown expression tag %q", tag.Expr)
	}
}

func decodeCall(b json.RawMessage) (*CallExpr, error) {
	var e struct {
		Target string            `json:"target"`
		Args   []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	out := &CallExpr{Target: e.Target}
	for _, arg := range e.Args {
		expr, err := decodeExpr(arg)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, expr)
	}
	return out, nil
}

func decodeStage(b json.RawMessage) (*Stage, error) {
	var e struct {
		Call    json.RawMessage   `json:"call"`
		Builtin string            `json:"builtin"`
		Target  json.RawMessage   `json:"target"`
		Group   []json.RawMessage `json:"group"`
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	stage := &Stage{Builtin: e.Builtin}
	if len(e.Call) > 0 {
		call, err := decodeCall(e.Call)
		if err != nil {
			return nil, err
		}
		stage.Call = call
	}
	if len(e.Target) > 0 {
		target, err := decodeExpr(e.Target)
		if err != nil {
			return nil, err
		}
		stage.Target = target
	}
	for _, rg := range e.Group {
		branch, err := decodeStage(rg)
		if err != nil {
			return nil, err
		}
		stage.Group = append(stage.Group, branch)
	}
	return stage, nil
}
