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

// Package analysis runs the stages of the analysis on the methods of CIL modules: graph construction,
// normalization, dominance, SSA construction and fact emission.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/awslabs/ar-cil-tools/analysis/cfg"
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/dominance"
	"github.com/awslabs/ar-cil-tools/analysis/emit"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
	"github.com/awslabs/ar-cil-tools/analysis/normalize"
	"github.com/awslabs/ar-cil-tools/analysis/stackssa"
	"github.com/awslabs/ar-cil-tools/analysis/stats"
	"github.com/awslabs/ar-cil-tools/internal/funcutil"
)

// State is the state shared by the analysis of all the methods of a run. It is only read during the analysis;
// the resolver and the counters are safe for concurrent use.
type State struct {
	Config   *config.Config
	Logger   *config.LogGroup
	Resolver *ModuleResolver
	Stats    *stats.Counters
}

// NewState returns a state for analyzing the modules, whose types are used to resolve references
func NewState(c *config.Config, logger *config.LogGroup, modules ...*cil.Module) *State {
	return &State{
		Config:   c,
		Logger:   logger,
		Resolver: NewModuleResolver(modules...),
		Stats:    stats.New(),
	}
}

// MethodResult is the result of the analysis of one method
type MethodResult struct {
	// Def is the definition of the method
	Def *cil.MethodDef
	// Type is the type declaring the method
	Type *cil.TypeDef
	// Method is the analysis graph in SSA form. It is nil if the analysis failed.
	Method *ir.Method
	Facts  []emit.Fact
	// Passes is the number of nodes rewritten by each normalization pass
	Passes map[string]int
	SSA    stackssa.Summary
	Time   time.Duration
	Err    error
}

// ModuleResult is the result of the analysis of a module
type ModuleResult struct {
	Module *ir.Module
	// Methods are the results of the methods analyzed successfully, in declaration order
	Methods []*MethodResult
	// Skipped are the results of the methods that contain unsupported constructs (and of methods with invariant
	// errors when the config says to continue)
	Skipped []*MethodResult
}

// Facts returns the facts of all the methods analyzed successfully, in declaration order
func (r *ModuleResult) Facts() []emit.Fact {
	var facts []emit.Fact
	for _, m := range r.Methods {
		facts = append(facts, m.Facts...)
	}
	return facts
}

// WriteTimes writes the analysis time of every method, as CSV
func (r *ModuleResult) WriteTimes(w io.Writer) {
	for _, m := range r.Methods {
		fmt.Fprintf(w, "%q, %.6f\n", m.Def.FullName(), m.Time.Seconds())
	}
}

// AnalyzeMethod runs all the stages on the method definition of the type. The returned result is always
// non-nil; its Method is nil when the error is not nil.
func AnalyzeMethod(state *State, typ *cil.TypeDef, def *cil.MethodDef) (*MethodResult, error) {
	start := time.Now()
	res := &MethodResult{Def: def, Type: typ}
	defer func() { res.Time = time.Since(start) }()

	m, err := cfg.Build(def, state.Logger)
	if err != nil {
		return res, err
	}
	state.Stats.RecordInstructions(m, stats.PhaseDecoded)

	res.Passes, err = normalize.Run(m, state.Logger, normalize.EnabledPasses(state.Config)...)
	if err != nil {
		return res, err
	}
	state.Stats.RecordPasses(res.Passes)
	state.Stats.RecordInstructions(m, stats.PhaseNormalized)
	state.Stats.RecordLoops(m)

	dom := dominance.Compute(m)
	state.Logger.Tracef("dominance of %s computed in %d iterations\n", m.Name(), dom.Iterations)

	res.SSA, err = stackssa.Construct(m, dom, nil, state.Logger)
	if err != nil {
		return res, err
	}
	state.Stats.RecordSSA(res.SSA)

	emitter := emit.NewEmitter(state.Logger, state.Resolver)
	emitter.MethodHeaders = state.Config.EmitMethodHeaders
	res.Facts, err = emitter.EmitMethod(m)
	if err != nil {
		return res, err
	}
	state.Stats.RecordFacts(len(res.Facts))
	res.Method = m
	return res, nil
}

// methodJob contains all the information necessary to run the analysis on one method
type methodJob struct {
	state *State
	typ   *cil.TypeDef
	def   *cil.MethodDef
}

// AnalyzeModule analyzes the methods of the module that are not excluded by the config, using
// Config.NumWorkers routines. The analyzed methods are added to the types of the returned module.
//
// Methods with unsupported constructs are skipped with a warning. An invariant error stops the analysis of
// the module and is returned, unless Config.ContinueOnInvariantError is set. Any other error is returned.
func AnalyzeModule(state *State, mod *cil.Module) (*ModuleResult, error) {
	state.Logger.Infof("Analyzing module %s ...", mod.Name)
	start := time.Now()

	var jobs []methodJob
	for _, t := range mod.Types {
		for _, def := range t.Methods {
			if reason := IsExcluded(state.Config, t, def); reason != "" {
				state.Logger.Tracef("%-10s%s (%s)\n", "Excluded", def.FullName(), reason)
				continue
			}
			jobs = append(jobs, methodJob{state: state, typ: t, def: def})
		}
	}

	results := runJobs(jobs, state.Config.NumWorkers)
	res, err := collectResults(state, ir.NewModule(mod), results)

	state.Logger.Infof("Module %s done: %d methods analyzed, %d skipped (%.2f s).",
		mod.Name, len(res.Methods), len(res.Skipped), time.Since(start).Seconds())
	return res, err
}

// runJobs runs the analysis of each job in parallel and returns all the results, in the order of the jobs
func runJobs(jobs []methodJob, numRoutines int) []*MethodResult {
	if numRoutines < 1 {
		numRoutines = 1
	}
	f := func(job methodJob) *MethodResult {
		return runMethodJob(job)
	}
	return funcutil.MapParallel(jobs, f, numRoutines)
}

func runMethodJob(job methodJob) *MethodResult {
	job.state.Logger.Debugf("%-10s%s ...", "Analyzing", job.def.FullName())
	res, err := AnalyzeMethod(job.state, job.typ, job.def)
	res.Err = err
	if err == nil {
		job.state.Logger.Debugf("%-10s%s | %d facts | %.2f s\n", " ", job.def.FullName(), len(res.Facts),
			res.Time.Seconds())
	}
	return res
}

// collectResults sorts the results into the module result. It is run in a single routine.
func collectResults(state *State, mod *ir.Module, results []*MethodResult) (*ModuleResult, error) {
	res := &ModuleResult{Module: mod}
	var firstErr error
	for _, r := range results {
		switch {
		case r.Err == nil:
			state.Stats.RecordMethod(stats.OutcomeAnalyzed)
			mod.Type(r.Type.FullName).AddMethod(r.Method)
			res.Methods = append(res.Methods, r)
		case ir.IsUnsupported(r.Err):
			state.Stats.RecordMethod(stats.OutcomeUnsupported)
			state.Logger.Warnf("Skipping %s: %v", r.Def.FullName(), r.Err)
			res.Skipped = append(res.Skipped, r)
		case ir.IsInvariant(r.Err):
			state.Stats.RecordMethod(stats.OutcomeInvariant)
			state.Logger.Errorf("%v", r.Err)
			if state.Config.ContinueOnInvariantError {
				res.Skipped = append(res.Skipped, r)
			} else if firstErr == nil {
				firstErr = r.Err
			}
		default:
			state.Stats.RecordMethod(stats.OutcomeFailed)
			state.Logger.Errorf("error while analyzing %s:\n\t%v\n", r.Def.FullName(), r.Err)
			if firstErr == nil {
				firstErr = fmt.Errorf("analysis of %s failed: %w", r.Def.FullName(), r.Err)
			}
		}
	}
	return res, firstErr
}

// AnalyzeModules analyzes each module with the state, and stops at the first module returning an error
func AnalyzeModules(state *State, modules []*cil.Module) ([]*ModuleResult, error) {
	var results []*ModuleResult
	for _, mod := range modules {
		res, err := AnalyzeModule(state, mod)
		results = append(results, res)
		if err != nil {
			var invariant *ir.InvariantError
			if errors.As(err, &invariant) {
				return results, fmt.Errorf("module %s: stage %s: %w", mod.Name, invariant.Stage, err)
			}
			return results, fmt.Errorf("module %s: %w", mod.Name, err)
		}
	}
	return results, nil
}
