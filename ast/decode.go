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

package ast

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeJSON materializes a Document from the JSON form the parser
// collaborator emits. The schema mirrors the node types one-to-one: every
// node carries a "node" tag, every expression an "expr" tag.
func DecodeJSON(b []byte) (*Document, error) {
	var raw struct {
		Path        string            `json:"path"`
		Frontmatter map[string]any    `json:"frontmatter"`
		Nodes       []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	doc := &Document{Path: raw.Path, Frontmatter: raw.Frontmatter}
	for i, rn := range raw.Nodes {
		node, err := decodeNode(rn)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	return doc, nil
}

func decodeNode(b json.RawMessage) (Node, error) {
	var tag struct {
		Node string `json:"node"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return nil, err
	}

	switch tag.Node {
	case "text":
		var n struct {
			Text string `json:"text"`
		}
		err := json.Unmarshal(b, &n)
		return &TextNode{Text: n.Text}, err

	case "var":
		var n struct {
			Name   string          `json:"name"`
			Value  json.RawMessage `json:"value"`
			Labels []string        `json:"labels"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &VarDirective{Name: n.Name, Value: value, Labels: n.Labels}, nil

	case "path":
		var n struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &PathDirective{Name: n.Name, Value: value}, nil

	case "run":
		var n struct {
			Command  json.RawMessage   `json:"command"`
			Lang     string            `json:"lang"`
			Body     string            `json:"body"`
			Pipeline []json.RawMessage `json:"pipeline"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		d := &RunDirective{Lang: n.Lang, Body: n.Body}
		if len(n.Command) > 0 {
			command, err := decodeExpr(n.Command)
			if err != nil {
				return nil, err
			}
			d.Command = command
		}
		for _, rs := range n.Pipeline {
			stage, err := decodeStage(rs)
			if err != nil {
				return nil, err
			}
			d.Pipeline = append(d.Pipeline, stage)
		}
		return d, nil

	case "show":
		var n struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ShowDirective{Value: value}, nil

	case "output":
		var n struct {
			Value  json.RawMessage `json:"value"`
			Target json.RawMessage `json:"target"`
			Append bool            `json:"append"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		target, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		return &OutputDirective{Value: value, Target: target, Append: n.Append}, nil

	case "exe":
		var n struct {
			Name     string          `json:"name"`
			Params   []string        `json:"params"`
			Command  json.RawMessage `json:"command"`
			Lang     string          `json:"lang"`
			Body     string          `json:"body"`
			Template json.RawMessage `json:"template"`
			Mcp      string          `json:"mcp"`
			Shadow   []string        `json:"shadow"`
			Memoize  bool            `json:"memoize"`
			TTL      string          `json:"ttl"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		d := &ExeDirective{
			Name: n.Name, Params: n.Params, Lang: n.Lang, Body: n.Body,
			McpTool: n.Mcp, ShadowFns: n.Shadow, Memoize: n.Memoize, MemoizeTTL: n.TTL,
		}
		if len(n.Command) > 0 {
			command, err := decodeExpr(n.Command)
			if err != nil {
				return nil, err
			}
			d.Command = command
		}
		if len(n.Template) > 0 {
			tpl, err := decodeExpr(n.Template)
			if err != nil {
				return nil, err
			}
			lit, ok := tpl.(*TemplateLiteral)
			if !ok {
				return nil, errors.New("exe template must be a template literal")
			}
			d.Template = lit
		}
		return d, nil

	case "import":
		var n struct {
			Subtype string `json:"subtype"`
			Names   []struct {
				Name  string `json:"name"`
				Alias string `json:"alias"`
			} `json:"names"`
			Source   string `json:"source"`
			Alias    string `json:"alias"`
			Type     string `json:"type"`
			CacheFor string `json:"cacheFor"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		d := &ImportDirective{SubKind: n.Subtype, Source: n.Source, Alias: n.Alias, ImportType: n.Type, CacheFor: n.CacheFor}
		for _, name := range n.Names {
			d.Names = append(d.Names, ImportName{Name: name.Name, Alias: name.Alias})
		}
		return d, nil

	case "export":
		var n struct {
			Names []string `json:"names"`
		}
		err := json.Unmarshal(b, &n)
		return &ExportDirective{Names: n.Names}, err

	case "for":
		var n struct {
			Var        string          `json:"var"`
			Collection json.RawMessage `json:"collection"`
			Action     json.RawMessage `json:"action"`
			Parallel   bool            `json:"parallel"`
			Cap        int             `json:"cap"`
			Rate       float64         `json:"rate"`
			Into       string          `json:"into"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		coll, err := decodeExpr(n.Collection)
		if err != nil {
			return nil, err
		}
		action, err := decodeAction(n.Action)
		if err != nil {
			return nil, err
		}
		return &ForDirective{
			VarName: n.Var, Collection: coll, Action: action,
			Parallel: n.Parallel, Cap: n.Cap, Rate: n.Rate, Into: n.Into,
		}, nil

	case "when":
		var n struct {
			Cond     json.RawMessage `json:"cond"`
			First    bool            `json:"first"`
			Branches []struct {
				Cond   json.RawMessage `json:"cond"`
				Action json.RawMessage `json:"action"`
			} `json:"branches"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		d := &WhenDirective{First: n.First}
		if len(n.Cond) > 0 {
			cond, err := decodeExpr(n.Cond)
			if err != nil {
				return nil, err
			}
			d.Cond = cond
		}
		for _, branch := range n.Branches {
			wb := WhenBranch{}
			if len(branch.Cond) > 0 {
				cond, err := decodeExpr(branch.Cond)
				if err != nil {
					return nil, err
				}
				wb.Cond = cond
			}
			action, err := decodeAction(branch.Action)
			if err != nil {
				return nil, err
			}
			wb.Action = action
			d.Branches = append(d.Branches, wb)
		}
		return d, nil

	case "guard":
		var n struct {
			Name    string `json:"name"`
			Phase   string `json:"phase"`
			Op      string `json:"op"`
			Clauses []struct {
				Cond   json.RawMessage `json:"cond"`
				Allow  bool            `json:"allow"`
				Reason string          `json:"reason"`
			} `json:"clauses"`
		}
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		d := &GuardDirective{Name: n.Name, Phase: n.Phase, Op: n.Op}
		for _, clause := range n.Clauses {
			gc := GuardClause{Allow: clause.Allow, Reason: clause.Reason}
			if len(clause.Cond) > 0 {
				cond, err := decodeExpr(clause.Cond)
				if err != nil {
					return nil, err
				}
				gc.Cond = cond
			}
			d.Clauses = append(d.Clauses, gc)
		}
		return d, nil

	case "env":
		var n struct {
			Name  string   `json:"name"`
			Tools []string `json:"tools"`
		}
		err := json.Unmarshal(b, &n)
		return &EnvDirective{Name: n.Name, Tools: n.Tools}, err

	case "policy":
		var n struct {
			Name   string         `json:"name"`
			Config map[string]any `json:"config"`
		}
		err := json.Unmarshal(b, &n)
		return &PolicyDirective{Name: n.Name, Config: n.Config}, err

	case "comment":
		var n struct {
			Text string `json:"text"`
		}
		err := json.Unmarshal(b, &n)
		return &CommentDirective{Text: n.Text}, err

	default:
		return nil, errors.Errorf("unknown node tag %q", tag.Node)
	}
}

func decodeAction(b json.RawMessage) (Node, error) {
	if len(b) == 0 {
		return nil, errors.New("missing action")
	}
	var tag struct {
		Node string `json:"node"`
		Expr string `json:"expr"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return nil, err
	}
	if tag.Node != "" {
		return decodeNode(b)
	}
	return decodeExpr(b)
}
