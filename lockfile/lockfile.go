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

package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/pkg/errors"
)

// ImportRecord is a persisted import approval.
type ImportRecord struct {
	Hash       string    `json:"hash"`
	Trust      string    `json:"trust"`
	TTLSeconds int64     `json:"ttl,omitempty"`
	ApprovedAt time.Time `json:"approved_at"`
}

// CommandRecord is a persisted command approval.
type CommandRecord struct {
	Approved   bool      `json:"approved"`
	Reason     string    `json:"reason,omitempty"`
	ApprovedAt time.Time `json:"approved_at"`
}

// PolicyRecord pins a policy configuration by name.
type PolicyRecord struct {
	Config map[string]any `json:"config"`
}

type fileSchema struct {
	Imports  map[string]ImportRecord  `json:"imports"`
	Commands map[string]CommandRecord `json:"commands"`
	Policies map[string]PolicyRecord  `json:"policies"`
}

// File is the mlld.lock.json collaborator. Reads are served from memory;
// every mutation is written back atomically (temp file + rename).
type File struct {
	mu   sync.Mutex
	path string
	data fileSchema
}

// Load reads the lock file at path, or starts an empty one if absent.
func Load(path string) (*File, error) {
	f := &File{path: path, data: fileSchema{
		Imports:  map[string]ImportRecord{},
		Commands: map[string]CommandRecord{},
		Policies: map[string]PolicyRecord{},
	}}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read lock file")
	}
	if err := json.Unmarshal(b, &f.data); err != nil {
		return nil, errors.Wrap(err, "parse lock file")
	}
	if f.data.Imports == nil {
		f.data.Imports = map[string]ImportRecord{}
	}
	if f.data.Commands == nil {
		f.data.Commands = map[string]CommandRecord{}
	}
	if f.data.Policies == nil {
		f.data.Policies = map[string]PolicyRecord{}
	}
	return f, nil
}

// save writes the lock file atomically. Caller holds f.mu.
func (f *File) save() error {
	b, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode lock file")
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".mlld.lock.*")
	if err != nil {
		return errors.Wrap(err, "create temp lock file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp lock file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp lock file")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename lock file")
	}
	return nil
}

// CommandSignature produces the stable key commands are approved under.
func CommandSignature(command string, env map[string]string) string {
	h, err := hashstructure.Hash(struct {
		Command string
		Env     map[string]string
	}{command, env}, hashstructure.FormatV2, nil)
	if err != nil {
		return command
	}
	return fmt.Sprintf("cmd:%016x", h)
}

// ImportApproved reports whether url is approved for the given content hash
// and the approval has not outlived its ttl.
func (f *File) ImportApproved(url, hash string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data.Imports[url]
	if !ok || rec.Hash != hash {
		return false
	}
	if rec.TTLSeconds > 0 && now.After(rec.ApprovedAt.Add(time.Duration(rec.TTLSeconds)*time.Second)) {
		return false
	}
	return true
}

// ApproveImport records an approval and persists it.
func (f *File) ApproveImport(url, hash, trust string, ttl time.Duration, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Imports[url] = ImportRecord{
		Hash:       hash,
		Trust:      trust,
		TTLSeconds: int64(ttl / time.Second),
		ApprovedAt: now,
	}
	return f.save()
}

// CommandApproved reports whether the signature was previously approved.
func (f *File) CommandApproved(signature string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data.Commands[signature]
	return ok && rec.Approved
}

// ApproveCommand records a command approval and persists it.
func (f *File) ApproveCommand(signature, reason string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Commands[signature] = CommandRecord{Approved: true, Reason: reason, ApprovedAt: now}
	return f.save()
}

// RecordPolicy pins a policy config by name.
func (f *File) RecordPolicy(name string, config map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Policies[name] = PolicyRecord{Config: config}
	return f.save()
}

// Policy returns a pinned policy config if present.
func (f *File) Policy(name string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data.Policies[name]
	return rec.Config, ok
}
