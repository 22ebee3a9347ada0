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
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Normalize collapses runs of three or more newlines down to two.
func Normalize(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n")
}

// FileWriter performs validated file writes on behalf of a sink. The
// runtime installs one that has already passed the security manager.
type FileWriter func(path string, data []byte, appendMode bool) error

// OSFileWriter writes straight through the OS, for sinks outside an
// evaluation (tests, tools).
func OSFileWriter(path string, data []byte, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrap(err, "open output file")
	}
	defer f.Close()
	_, err = f.Write(data)
	return errors.Wrap(err, "write output file")
}

// Stream flushes document effects as they arrive: the CLI default.
//
// No ordering promise is made between stderr and document streams; they are
// written in emission order but the writers may buffer independently.
type Stream struct {
	mu        sync.Mutex
	doc       strings.Builder
	stdout    io.Writer
	stderr    io.Writer
	files     FileWriter
	normalize bool
}

type StreamOption func(*Stream)

func WithNormalization() StreamOption {
	return func(s *Stream) { s.normalize = true }
}

func WithFileWriter(w FileWriter) StreamOption {
	return func(s *Stream) { s.files = w }
}

func NewStream(stdout, stderr io.Writer, opts ...StreamOption) *Stream {
	s := &Stream{stdout: stdout, stderr: stderr, files: OSFileWriter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) Emit(ctx context.Context, e Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Kind {
	case Doc:
		s.doc.WriteString(e.Text)
	case Both:
		s.doc.WriteString(e.Text)
		if _, err := io.WriteString(s.stdout, e.Text); err != nil {
			return errors.Wrap(err, "stdout")
		}
	case Stdout:
		if _, err := io.WriteString(s.stdout, e.Text); err != nil {
			return errors.Wrap(err, "stdout")
		}
	case Stderr:
		if _, err := io.WriteString(s.stderr, e.Text); err != nil {
			return errors.Wrap(err, "stderr")
		}
	case FileWrite:
		return s.files(e.Path, e.Bytes, e.Append)
	}
	return nil
}

func (s *Stream) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.doc.String()
	if s.normalize {
		out = Normalize(out)
	}
	return out
}

// Buffer collects everything and returns it whole: the API default.
type Buffer struct {
	mu        sync.Mutex
	effects   []Effect
	doc       strings.Builder
	stderr    strings.Builder
	stdout    strings.Builder
	files     FileWriter
	normalize bool
}

type BufferOption func(*Buffer)

func WithBufferNormalization() BufferOption {
	return func(b *Buffer) { b.normalize = true }
}

func WithBufferFileWriter(w FileWriter) BufferOption {
	return func(b *Buffer) { b.files = w }
}

func NewBuffer(opts ...BufferOption) *Buffer {
	b := &Buffer{files: OSFileWriter}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) Emit(ctx context.Context, e Effect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.effects = append(b.effects, e)
	switch e.Kind {
	case Doc:
		b.doc.WriteString(e.Text)
	case Both:
		b.doc.WriteString(e.Text)
		b.stdout.WriteString(e.Text)
	case Stdout:
		b.stdout.WriteString(e.Text)
	case Stderr:
		b.stderr.WriteString(e.Text)
	case FileWrite:
		return b.files(e.Path, e.Bytes, e.Append)
	}
	return nil
}

func (b *Buffer) Document() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.doc.String()
	if b.normalize {
		out = Normalize(out)
	}
	return out
}

// Stderr returns everything routed to the error stream.
func (b *Buffer) Stderr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stderr.String()
}

// Stdout returns the mirrored console output.
func (b *Buffer) Stdout() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stdout.String()
}

// Effects returns the raw records in emission order.
func (b *Buffer) Effects() []Effect {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Effect, len(b.effects))
	copy(out, b.effects)
	return out
}
