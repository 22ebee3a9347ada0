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

	"github.com/binaek/cling"
)

func addCheckCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("check", checkCmd).
			WithArgument(cling.NewStringCmdInput("file").
				WithDescription("Document to check").
				AsArgument(),
			),
	)
}

type checkCmdArgs struct {
	File string `cling-name:"file"`
}

// checkCmd decodes a document and reports its directive counts without
// evaluating it.
func checkCmd(ctx context.Context, args []string) error {
	input := checkCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	doc, err := loadDocument(input.File)
	if err != nil {
		return err
	}

	directives := 0
	kinds := map[string]int{}
	for _, d := range doc.Directives() {
		directives++
		kinds[d.Kind()]++
	}
	fmt.Printf("%s: ok (%d directives", input.File, directives)
	for _, kind := range []string{"var", "exe", "import", "for", "when", "run", "show", "output", "guard"} {
		if n := kinds[kind]; n > 0 {
			fmt.Printf(", %d %s", n, kind)
		}
	}
	fmt.Println(")")
	return nil
}
