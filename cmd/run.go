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

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/binaek/cling"
	"github.com/mlld-sh/mlld/ast"
	"github.com/mlld-sh/mlld/effects"
	"github.com/mlld-sh/mlld/lockfile"
	"github.com/mlld-sh/mlld/project"
	"github.com/mlld-sh/mlld/runtime"
	"github.com/mlld-sh/mlld/security"
	"github.com/mlld-sh/mlld/xerr"
	"github.com/pkg/errors"
)

func addRunCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("run", runCmd).
			WithArgument(cling.NewStringCmdInput("file").
				WithDescription("Document to evaluate (parsed AST as .ast.json)").
				AsArgument(),
			).
			WithFlag(cling.
				NewStringCmdInput("output").
				WithDefault("").
				WithDescription("Write the rendered document to this file").
				AsFlag(),
			).
			WithFlag(cling.
				NewBoolCmdInput("no-stream").
				WithDefault(false).
				WithDescription("Buffer the document instead of streaming it").
				AsFlag(),
			).
			WithFlag(cling.
				NewBoolCmdInput("yes").
				WithDefault(false).
				WithDescription("Approve all prompts (non-interactive)").
				AsFlag(),
			),
	)
}

type runCmdArgs struct {
	File     string `cling-name:"file"`
	Output   string `cling-name:"output"`
	NoStream bool   `cling-name:"no-stream"`
	Yes      bool   `cling-name:"yes"`
}

func runCmd(ctx context.Context, args []string) error {
	input := runCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	doc, err := loadDocument(input.File)
	if err != nil {
		return err
	}

	manifest, err := project.Load(ctx, filepath.Dir(input.File))
	if err != nil {
		if !errors.Is(err, project.ErrManifestNotFound) {
			return err
		}
		manifest = project.Default(filepath.Dir(input.File))
	}

	lock, err := lockfile.Load(manifest.LockFilePath())
	if err != nil {
		return err
	}

	var prompter security.Prompter
	if input.Yes {
		prompter = security.PrompterFunc(func(context.Context, string, string) (bool, error) {
			return true, nil
		})
	} else {
		prompter = terminalPrompter()
	}

	var sink effects.Sink
	if input.NoStream {
		sink = effects.NewBuffer(effects.WithBufferNormalization())
	} else {
		sink = effects.NewStream(os.Stdout, os.Stderr, effects.WithNormalization())
	}

	interp, err := runtime.New(manifest,
		runtime.WithModuleLoader(astLoader{}),
		runtime.WithSecurityManager(security.NewManager(manifest, lock, security.WithPrompter(prompter))),
	)
	if err != nil {
		return err
	}
	defer interp.Close()

	env := runtime.NewEnvironment(input.File, sink)
	result, err := interp.EvalDocument(ctx, doc, env)
	if err != nil {
		printError(err)
		os.Exit(xerr.ExitCode(err))
	}

	if input.Output != "" {
		return os.WriteFile(input.Output, []byte(result.Document), 0o644)
	}
	if input.NoStream {
		fmt.Print(result.Document)
	}
	return nil
}

// astLoader is the parser collaborator boundary: module sources arrive as
// the JSON AST the grammar toolchain emits.
type astLoader struct{}

func (astLoader) Load(ctx context.Context, path, content string) (*ast.Document, error) {
	doc, err := ast.DecodeJSON([]byte(content))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s (expected JSON AST)", path)
	}
	if doc.Path == "" {
		doc.Path = path
	}
	return doc, nil
}

func loadDocument(path string) (*ast.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	doc, err := ast.DecodeJSON(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s (expected JSON AST)", path)
	}
	if doc.Path == "" {
		doc.Path = path
	}
	return doc, nil
}

func terminalPrompter() security.Prompter {
	reader := bufio.NewReader(os.Stdin)
	return security.PrompterFunc(func(_ context.Context, what, detail string) (bool, error) {
		fmt.Fprintf(os.Stderr, "%s: %s [y/N] ", what, detail)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, nil
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	var xe *xerr.Error
	if errors.As(err, &xe) && len(xe.Trace) > 0 {
		for _, frame := range xe.Trace {
			fmt.Fprintf(os.Stderr, "  in %s\n", frame)
		}
	}
}
