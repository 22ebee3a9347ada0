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

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered string-keyed map. Keys are unique and
// case-sensitive.
type Object struct {
	m *orderedmap.OrderedMap[string, any]

	// Namespace marks objects produced by namespace imports.
	Namespace string
}

func NewObject() *Object {
	return &Object{m: orderedmap.New[string, any]()}
}

// ObjectFrom builds an object from alternating key/value pairs, preserving
// the given order.
func ObjectFrom(pairs ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(pairs[i].(string), pairs[i+1])
	}
	return o
}

func (o *Object) Set(key string, v any) { o.m.Set(key, v) }

func (o *Object) Get(key string) (any, bool) { return o.m.Get(key) }

func (o *Object) Delete(key string) { o.m.Delete(key) }

func (o *Object) Len() int { return o.m.Len() }

// Keys returns keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, 0, o.m.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Range visits entries in insertion order; returning false stops the walk.
func (o *Object) Range(fn func(key string, v any) bool) {
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone makes a shallow copy preserving order.
func (o *Object) Clone() *Object {
	out := NewObject()
	out.Namespace = o.Namespace
	o.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Plain converts to a plain map for cross-boundary serialization (lock
// file, module objects). Order is lost; use MarshalJSON when it matters.
func (o *Object) Plain() map[string]any {
	out := make(map[string]any, o.m.Len())
	o.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// ObjectFromPlain re-materializes an ordered object from a plain map with
// sorted keys (the deterministic choice when the wire format lost order).
func ObjectFromPlain(m map[string]any, keys []string) *Object {
	o := NewObject()
	for _, k := range keys {
		if v, ok := m[k]; ok {
			o.Set(k, v)
		}
	}
	return o
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return o.m.MarshalJSON()
}

func (o *Object) UnmarshalJSON(b []byte) error {
	if o.m == nil {
		o.m = orderedmap.New[string, any]()
	}
	return json.Unmarshal(b, o.m)
}
