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

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Well-known taint tags. Tags are open-ended opaque strings; these are the
// ones the core itself attaches.
const (
	TaintMCP           = "src:mcp"
	TaintNetwork       = "network"
	TaintFileSystem    = "file_system"
	TaintCommandOutput = "command_output"
)

// Well-known labels.
const (
	LabelUntrusted = "untrusted"
)

// Set is an unordered collection of opaque tags.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Add(items ...string) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// ContainsAll reports s ⊇ other.
func (s Set) ContainsAll(other Set) bool {
	for it := range other {
		if !s.Has(it) {
			return false
		}
	}
	return true
}

// Slice returns the members sorted, for deterministic serialization.
func (s Set) Slice() []string {
	out := maps.Keys(s)
	slices.Sort(out)
	return out
}

func (s Set) Clone() Set {
	return maps.Clone(s)
}

// Descriptor is the security metadata attached to every variable and value.
// Propagation is monotonic: a derived value's descriptor is at least the
// union of its inputs'.
type Descriptor struct {
	Labels  Set
	Taint   Set
	Sources Set
	Policy  *PolicyConfig
}

func NewDescriptor() Descriptor {
	return Descriptor{Labels: NewSet(), Taint: NewSet(), Sources: NewSet()}
}

// Union merges two descriptors field-wise. When both carry a policy context
// the more restrictive of the two wins.
func (d Descriptor) Union(other Descriptor) Descriptor {
	out := Descriptor{
		Labels:  d.Labels.Clone(),
		Taint:   d.Taint.Clone(),
		Sources: d.Sources.Clone(),
		Policy:  d.Policy,
	}
	if out.Labels == nil {
		out.Labels = NewSet()
	}
	if out.Taint == nil {
		out.Taint = NewSet()
	}
	if out.Sources == nil {
		out.Sources = NewSet()
	}
	out.Labels.Add(other.Labels.Slice()...)
	out.Taint.Add(other.Taint.Slice()...)
	out.Sources.Add(other.Sources.Slice()...)
	out.Policy = MergeRestrictive(d.Policy, other.Policy)
	return out
}

func (d Descriptor) Clone() Descriptor {
	return NewDescriptor().Union(d)
}

// Covers reports whether d is ≥ other, the taint-monotonicity check used in
// tests and internal assertions.
func (d Descriptor) Covers(other Descriptor) bool {
	return d.Labels.ContainsAll(other.Labels) &&
		d.Taint.ContainsAll(other.Taint) &&
		d.Sources.ContainsAll(other.Sources)
}
