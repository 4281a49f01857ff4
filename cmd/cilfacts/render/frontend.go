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

// Package render implements a tool for rendering the analysis graphs of the methods of CIL listings.
// -dotout Given a path for a .dot file, writes the block graphs of the analyzed methods in that file.
// -irout Given a path for a folder, writes one file per type with the SSA form of its methods.
// -dom Prints the dominator tree of each analyzed method.
package render

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-cil-tools/analysis"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/analysis/rendering"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/tools"
	"github.com/awslabs/ar-cil-tools/internal/formatutil"
)

const usage = `Render the block graphs or the SSA form of the methods of CIL listings.
Usage:
  cilfacts render [options] <listing file(s)>
Examples:
Render the block graphs with their instructions
  % cilfacts render -nodes -dotout sample.dot sample.yaml
Print out all the methods in SSA form
  % cilfacts render -irout tmpIr sample.yaml
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	dotOut    string
	withNodes bool
	irOut     string
	dom       bool
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	dotOut := flags.FlagSet.String("dotout", "", "output file for the block graphs (no output if not specified)")
	withNodes := flags.FlagSet.Bool("nodes", false, "label the blocks of the graphs with their instructions")
	irOut := flags.FlagSet.String("irout", "", "output folder for the SSA form (no output if not specified)")
	dom := flags.FlagSet.Bool("dom", false, "print the dominator trees on the standard output")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{
		CommonFlags: common,
		dotOut:      *dotOut,
		withNodes:   *withNodes,
		irOut:       *irOut,
		dom:         *dom,
	}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	renderConfig, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	// the graphs are rendered even when some method fails
	renderConfig.ContinueOnInvariantError = true
	logger := config.NewLogGroup(renderConfig)

	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading listings")+"\n")
	modules, err := tools.LoadModules(flags.FlagSet.Args())
	if err != nil {
		return err
	}

	state := analysis.NewState(renderConfig, logger, modules...)
	results, err := analysis.AnalyzeModules(state, modules)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	var methods []*ir.Method
	for _, r := range results {
		for _, m := range r.Methods {
			methods = append(methods, m.Method)
		}
	}

	if flags.dotOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing block graphs in "+flags.dotOut+"\n"))
		if err := rendering.GraphvizToFile(methods, flags.withNodes, flags.dotOut); err != nil {
			return fmt.Errorf("could not print block graphs: %v", err)
		}
	}

	if flags.irOut != "" {
		fmt.Fprintf(os.Stderr, formatutil.Faint("Writing SSA form in "+flags.irOut+"\n"))
		for _, r := range results {
			if err := rendering.OutputMethods(r.Module, flags.irOut); err != nil {
				return fmt.Errorf("could not print methods: %v", err)
			}
		}
	}

	if flags.dom {
		for _, m := range methods {
			if err := rendering.WriteDominatorTree(m, dominance.Compute(m), os.Stdout); err != nil {
				return err
			}
		}
	}
	return nil
}
