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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/binaek/cling"
	"github.com/mlld-sh/mlld/constants"
	"github.com/mlld-sh/mlld/project"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

func addInitCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("init", initCmd).
			WithFlag(cling.
				NewStringCmdInput("dir").
				WithDefault(".").
				WithDescription("Directory to initialize").
				AsFlag(),
			).
			WithFlag(cling.
				NewStringCmdInput("name").
				WithDefault("").
				WithDescription("Project name (defaults to the directory name)").
				AsFlag(),
			),
	)
}

type initCmdArgs struct {
	Dir  string `cling-name:"dir"`
	Name string `cling-name:"name"`
}

func initCmd(ctx context.Context, args []string) error {
	input := initCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	dir, err := filepath.Abs(input.Dir)
	if err != nil {
		return err
	}
	name := input.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	path := filepath.Join(dir, constants.ProjectFileName)
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}

	manifest := project.Manifest{
		SchemaVersion: "1",
		Name:          name,
	}
	b, err := toml.Marshal(manifest)
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write manifest")
	}

	fmt.Printf("initialized %s\n", path)
	return nil
}
