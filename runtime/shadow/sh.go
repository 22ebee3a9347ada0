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

package shadow

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/mlld-sh/mlld/xerr"
)

// ShellResult carries a finished shell invocation.
type ShellResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunShell executes a shell body as a child process. Parameters cross as
// environment variables; the shell process is killed when the context is
// done. No separate process group is created for it.
func RunShell(ctx context.Context, shell, body, workDir string, params map[string]string) (*ShellResult, error) {
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", body)
	cmd.Dir = workDir

	env := os.Environ()
	for name, value := range params {
		env = append(env, name+"="+value)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &ShellResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctxErr := xerr.FromContext(ctx, "shell command"); ctxErr != nil {
		return result, ctxErr
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, xerr.ErrCommandFailed(firstLine(body), result.ExitCode, result.Stderr)
		}
		return result, xerr.Wrap(err, xerr.CodeCommandFailed, "spawn %s", shell)
	}
	return result, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
