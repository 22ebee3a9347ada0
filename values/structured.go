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
	"sync"
)

// Metadata identifies where a structured value came from.
type Metadata struct {
	// Source is the origin class: "load-content", "mcp:<tool>",
	// "exe:<lang>".
	Source string

	// Path or URL of the loaded content, when applicable.
	Path string
	URL  string

	// Format hint used when the text view was parsed ("json", "csv", ...).
	Format string
}

// StructuredValue wraps an underlying value with a text view, a data view
// and origin metadata. Loaders and structured-exec calls produce these;
// display contexts auto-unwrap to the text view, field access and pipeline
// contexts to the data view. Unwrapping never mutates the wrapper.
type StructuredValue struct {
	TypeTag  string
	Metadata Metadata

	data any

	textOnce sync.Once
	text     string
	textFn   func() string
}

// NewStructured builds a structured value with an eager text view.
func NewStructured(typeTag, text string, data any, meta Metadata) *StructuredValue {
	return &StructuredValue{TypeTag: typeTag, text: text, data: data, Metadata: meta}
}

// NewStructuredLazy defers materializing the text view until first use.
func NewStructuredLazy(typeTag string, textFn func() string, data any, meta Metadata) *StructuredValue {
	return &StructuredValue{TypeTag: typeTag, textFn: textFn, data: data, Metadata: meta}
}

// Text materializes and returns the text view. Always finite.
func (s *StructuredValue) Text() string {
	s.textOnce.Do(func() {
		if s.textFn != nil {
			s.text = s.textFn()
			s.textFn = nil
		}
	})
	return s.text
}

// Data returns the semantic payload, forcing lazy parses.
func (s *StructuredValue) Data() any { return s.unwrapData() }

func (s *StructuredValue) String() string { return s.Text() }

// FromJSONText parses text as JSON lazily: the data view materializes on
// first access, keeping pipeline framing cheap when a stage never looks
// inside.
func FromJSONText(text string, meta Metadata) *StructuredValue {
	sv := &StructuredValue{TypeTag: "json", text: text, Metadata: meta}
	var once sync.Once
	var parsed any
	sv.data = &lazyData{get: func() any {
		once.Do(func() {
			if err := json.Unmarshal([]byte(text), &parsed); err != nil {
				parsed = text
			}
		})
		return parsed
	}}
	return sv
}

type lazyData struct {
	get func() any
}

// Unwrap resolves lazy payloads; callers outside this package see only the
// final value.
func (s *StructuredValue) unwrapData() any {
	if ld, ok := s.data.(*lazyData); ok {
		return ld.get()
	}
	return s.data
}

