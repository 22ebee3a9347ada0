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

package effects

import (
	"context"

	"github.com/google/uuid"
)

// Kind classifies an effect record.
type Kind string

const (
	// Doc appends to the rendered document only.
	Doc Kind = "doc"

	// Both appends to the document and mirrors to stdout.
	Both Kind = "both"

	// Stdout and Stderr go to the console only.
	Stdout Kind = "stdout"
	Stderr Kind = "stderr"

	// FileWrite writes bytes to disk. The path must already have passed
	// the security manager before the effect reaches a sink.
	FileWrite Kind = "file"
)

// Effect is one unit of output. All document content flows through these.
type Effect struct {
	ID   string
	Kind Kind
	Text string

	// FileWrite fields.
	Path   string
	Append bool
	Bytes  []byte
}

// NewDoc builds a document-only effect.
func NewDoc(text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: Doc, Text: text}
}

// NewBoth builds a document+stdout effect.
func NewBoth(text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: Both, Text: text}
}

func NewStdout(text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: Stdout, Text: text}
}

func NewStderr(text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: Stderr, Text: text}
}

func NewFileWrite(path string, data []byte, appendMode bool) Effect {
	return Effect{ID: uuid.NewString(), Kind: FileWrite, Path: path, Bytes: data, Append: appendMode}
}

// Sink receives effects in emission order and assembles the document.
type Sink interface {
	Emit(ctx context.Context, e Effect) error

	// Document returns everything assembled so far.
	Document() string
}
