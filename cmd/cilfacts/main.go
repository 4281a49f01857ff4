// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-cil-tools/analysis"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/facts"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/render"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/statistics"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/tools"
	"github.com/awslabs/ar-cil-tools/internal/formatutil"
)

const usage = `cilfacts: CIL listings to Datalog facts
Usage:
  cilfacts [tool] [options] <listing file(s)>
Tools:
  - facts: generates the facts of the methods of the listings
  - render: renders the block graphs, dominator trees, or the SSA form of the methods
  - statistics: prints statistics about the analysis of the methods
Examples:
  Generate facts: cilfacts facts --config=config.yaml sample.yaml
  Render block graphs: cilfacts render -dotout sample.dot sample.yaml`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "facts":
		flags, err := facts.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := facts.Run(flags); err != nil {
			errExit(err)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := render.Run(flags); err != nil {
			errExit(err)
		}
	case "statistics":
		flags, err := statistics.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := statistics.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", formatutil.Red("error:"), err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", formatutil.Yellow("Hint:"), hint)
	}
	os.Exit(2)
}
