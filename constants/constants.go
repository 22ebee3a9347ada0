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

package constants

const (
	APPNAME = "mlld"

	// ModuleFileExtension is the extension of mlld source modules.
	ModuleFileExtension = "mld"

	// ProjectFileName is the project manifest located by walking up from
	// the entry file.
	ProjectFileName = "mlld.toml"

	// LockFileName records import/command/policy approvals.
	LockFileName = "mlld.lock.json"

	// ExecutionStartTimeUnixKey names a shadow VM global for the execution
	// start time; no runner sets it.
	ExecutionStartTimeUnixKey = "__mlld_execution_start_unix"
)
