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

// Package statistics implements the front-end for the statistics of the analysis graphs.
package statistics

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/awslabs/ar-cil-tools/analysis"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/cmd/cilfacts/tools"
	"github.com/awslabs/ar-cil-tools/internal/formatutil"
)

const usage = `Compute statistics about the analysis of the methods of CIL listings.

Usage:
  cilfacts statistics listing...
  cilfacts statistics -metrics listing...

Use the -help flag to display the options.

Examples:
% cilfacts statistics sample.yaml
`

// Flags represents the flags for the statistics sub-tool.
type Flags struct {
	tools.CommonFlags
	outputJson bool
	metrics    bool
	handlers   bool
	timesOut   string
}

// NewFlags returns parsed flags for statistics.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("statistics")
	outputJson := flags.FlagSet.Bool("json", false, "output results as JSON")
	metrics := flags.FlagSet.Bool("metrics", false, "print the counters of the analysis in the Prometheus text format")
	handlers := flags.FlagSet.Bool("handlers", false, "print statistics about exception handlers")
	timesOut := flags.FlagSet.String("times", "", "output CSV file for the analysis time of each method")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}

	return Flags{
		CommonFlags: common,
		outputJson:  *outputJson,
		metrics:     *metrics,
		handlers:    *handlers,
		timesOut:    *timesOut,
	}, nil
}

// Run runs the analysis on the listings of the flags and prints the statistics.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return err
	}
	logGroup := config.NewLogGroup(cfg)

	fmt.Fprintf(os.Stderr, formatutil.Faint("Reading listings")+"\n")
	modules, err := tools.LoadModules(flags.FlagSet.Args())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, formatutil.Faint("Analyzing")+"\n")
	state := analysis.NewState(cfg, logGroup, modules...)
	results, err := analysis.AnalyzeModules(state, modules)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	result := analysis.Statistics(results)
	if flags.outputJson {
		buf, _ := json.Marshal(result)
		fmt.Println(string(buf))
	} else {
		fmt.Printf("Number of methods: %d\n", result.NumberOfMethods)
		fmt.Printf("Number of skipped methods: %d\n", result.NumberOfSkipped)
		fmt.Printf("Number of blocks: %d\n", result.NumberOfBlocks)
		fmt.Printf("Number of instructions: %d\n", result.NumberOfInstructions)
		fmt.Printf("Number of joins: %d\n", result.NumberOfJoins)
		fmt.Printf("Number of facts: %d\n", result.NumberOfFacts)
		fmt.Printf("Number of unresolved types: %d\n", len(state.Resolver.Unresolved()))
	}

	if flags.handlers {
		analysis.HandlerStats(os.Stdout, results)
	}
	if flags.metrics {
		state.Stats.WritePrometheus(os.Stdout)
	}
	if flags.timesOut != "" {
		f, err := os.Create(flags.timesOut)
		if err != nil {
			return fmt.Errorf("could not create file: %w", err)
		}
		defer f.Close()
		for _, r := range results {
			r.WriteTimes(f)
		}
	}
	return nil
}
