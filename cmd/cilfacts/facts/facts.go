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

// Package facts implements the front-end of the fact generation: listings are analyzed and the facts of every
// method are written either on the standard output or in one file per method.
package facts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awslabs/ar-cil-tools/analysis"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/emit"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/tools"
	"github.com/awslabs/ar-cil-tools/internal/formatutil"
)

const usage = `Generate Datalog facts for the methods of CIL listings.
Usage:
  cilfacts facts [options] <listing file(s)>
Examples:
Write the facts of all methods on the standard output
  % cilfacts facts sample.yaml
Write one fact file per method in the facts directory
  % cilfacts facts -out facts sample.yaml other.yaml.zst
`

// Flags represents the parsed facts sub-command flags.
type Flags struct {
	tools.CommonFlags
	outDir string
}

// NewFlags returns the parsed facts sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("facts")
	outDir := flags.FlagSet.String("out", "", "output directory for the fact files (overrides output-dir of the config)")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, outDir: *outDir}, nil
}

// Run runs the fact generation with flags.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(cfg)

	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading listings")+"\n")
	modules, err := tools.LoadModules(flags.FlagSet.Args())
	if err != nil {
		return err
	}

	state := analysis.NewState(cfg, logger, modules...)
	results, err := analysis.AnalyzeModules(state, modules)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.OutputPath()
	}
	if outDir == "" {
		err = writeAll(os.Stdout, results)
	} else {
		err = writeFiles(outDir, results, logger)
	}
	if err != nil {
		return err
	}

	if cfg.ReportStats {
		s := analysis.Statistics(results)
		fmt.Fprintf(os.Stderr, "%s %d methods (%d skipped), %d facts\n", formatutil.Green("Done:"),
			s.NumberOfMethods, s.NumberOfSkipped, s.NumberOfFacts)
		state.Stats.WritePrometheus(os.Stderr)
		state.Resolver.PrintUnresolved(os.Stderr)
	}
	return nil
}

func writeAll(w io.Writer, results []*analysis.ModuleResult) error {
	for _, r := range results {
		if err := emit.WriteFacts(w, r.Facts()); err != nil {
			return err
		}
	}
	return nil
}

// writeFiles writes the facts of each method in its own file of dir
func writeFiles(dir string, results []*analysis.ModuleResult, logger *config.LogGroup) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %v", dir, err)
	}
	n := 0
	for _, r := range results {
		for _, m := range r.Methods {
			name := analysis.FactFileName(m.Type.FullName, m.Def.Ref.Name, m.Method.ID)
			if err := writeFile(filepath.Join(dir, name), m.Facts); err != nil {
				return err
			}
			n++
		}
	}
	logger.Infof("Wrote %d fact files in %s", n, dir)
	return nil
}

func writeFile(filename string, facts []emit.Fact) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := emit.WriteFacts(w, facts); err != nil {
		return err
	}
	return w.Flush()
}
