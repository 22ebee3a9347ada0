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

package security

import "time"

// PolicyConfig is an environment-scoped policy. A policy import installs one
// on the target environment; values bound under it inherit its labels and
// taint, and its guards are synthesized into the guard registry.
type PolicyConfig struct {
	Name string

	// Labels and Taint are stamped onto variables bound while this policy
	// is in effect.
	Labels []string
	Taint  []string

	// AllowedCommands, when non-empty, is an allow-list of command words.
	AllowedCommands []string

	// DeniedOps lists operations (e.g. "op:run") flatly denied.
	DeniedOps []string

	// TrustTTL bounds how long import approvals made under this policy live.
	TrustTTL time.Duration
}

// MergeRestrictive combines two policy contexts, preferring the more
// restrictive choice per field. Either side may be nil.
func MergeRestrictive(a, b *PolicyConfig) *PolicyConfig {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &PolicyConfig{Name: a.Name + "+" + b.Name}
	out.Labels = append(append([]string{}, a.Labels...), b.Labels...)
	out.Taint = append(append([]string{}, a.Taint...), b.Taint...)
	out.DeniedOps = append(append([]string{}, a.DeniedOps...), b.DeniedOps...)

	// an empty allow-list means "everything": intersecting with a non-empty
	// one keeps the non-empty one; two non-empty lists intersect.
	switch {
	case len(a.AllowedCommands) == 0:
		out.AllowedCommands = b.AllowedCommands
	case len(b.AllowedCommands) == 0:
		out.AllowedCommands = a.AllowedCommands
	default:
		allowed := NewSet(a.AllowedCommands...)
		for _, c := range b.AllowedCommands {
			if allowed.Has(c) {
				out.AllowedCommands = append(out.AllowedCommands, c)
			}
		}
		if out.AllowedCommands == nil {
			out.AllowedCommands = []string{}
		}
	}

	// shorter trust wins; zero means unset
	switch {
	case a.TrustTTL == 0:
		out.TrustTTL = b.TrustTTL
	case b.TrustTTL == 0:
		out.TrustTTL = a.TrustTTL
	case a.TrustTTL < b.TrustTTL:
		out.TrustTTL = a.TrustTTL
	default:
		out.TrustTTL = b.TrustTTL
	}
	return out
}

// DeniesOp reports whether the policy flatly denies the operation.
func (p *PolicyConfig) DeniesOp(op string) bool {
	if p == nil {
		return false
	}
	for _, d := range p.DeniedOps {
		if d == op {
			return true
		}
	}
	return false
}

// AllowsCommand checks the first word of a command against the allow-list.
func (p *PolicyConfig) AllowsCommand(word string) bool {
	if p == nil || len(p.AllowedCommands) == 0 {
		return true
	}
	for _, c := range p.AllowedCommands {
		if c == word {
			return true
		}
	}
	return false
}
