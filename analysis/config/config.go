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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/awslabs/ar-cil-tools/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// Config contains the options of the analysis and the lists of code identifiers used to select methods.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// if the MethodFilter is specified
	methodFilterRegex *regexp.Regexp

	// if the TypeFilter is specified
	typeFilterRegex *regexp.Regexp

	// ExcludedMethods lists methods that are never analyzed, for example compiler-generated code
	ExcludedMethods []CodeIdentifier `yaml:"excluded-methods"`
}

// Options are the flat options of the configuration
type Options struct {
	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// NumWorkers is the number of methods analyzed in parallel. Values <= 0 are replaced by DefaultNumWorkers.
	NumWorkers int `yaml:"num-workers"`

	// OutputDir is the directory where fact files are written. If empty, facts are written on the standard output.
	// A relative path is relative to the config file.
	OutputDir string `yaml:"output-dir"`

	// MethodFilter restricts the analysis to the methods whose full name matches the filter
	MethodFilter string `yaml:"method-filter"`

	// TypeFilter restricts the analysis to the types whose full name matches the filter
	TypeFilter string `yaml:"type-filter"`

	// SkipNormalizationPasses lists the names of normalization passes that should not run. This is only for
	// debugging: later stages expect the canonical instruction shapes.
	SkipNormalizationPasses []string `yaml:"skip-normalization-passes"`

	// ContinueOnInvariantError makes the batch continue after an internal invariant violation. This is only for
	// debugging, since the facts of the other methods are still produced by the same defective stage.
	ContinueOnInvariantError bool `yaml:"continue-on-invariant-error"`

	// EmitMethodHeaders adds Method and Param facts at the start of each method
	EmitMethodHeaders bool `yaml:"emit-method-headers"`

	// ReportStats prints the instruction and stage counters after the analysis
	ReportStats bool `yaml:"report-stats"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:      "",
		ExcludedMethods: nil,
		Options: Options{
			LogLevel:                 int(InfoLevel),
			NumWorkers:               DefaultNumWorkers,
			OutputDir:                "",
			MethodFilter:             "",
			TypeFilter:               "",
			SkipNormalizationPasses:  nil,
			ContinueOnInvariantError: false,
			EmitMethodHeaders:        true,
			ReportStats:              false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse reads a configuration from the contents of a file. The filename is used to resolve relative paths.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultNumWorkers
	}

	for _, pass := range cfg.SkipNormalizationPasses {
		if !funcutil.Contains(allPasses, pass) {
			return nil, fmt.Errorf("unknown normalization pass %q in skip-normalization-passes", pass)
		}
	}

	if cfg.MethodFilter != "" {
		r, err := regexp.Compile(cfg.MethodFilter)
		if err == nil {
			cfg.methodFilterRegex = r
		}
	}

	if cfg.TypeFilter != "" {
		r, err := regexp.Compile(cfg.TypeFilter)
		if err == nil {
			cfg.typeFilterRegex = r
		}
	}

	cfg.ExcludedMethods = funcutil.Map(cfg.ExcludedMethods, CompileRegexes)

	return cfg, nil
}

var allPasses = []string{PassFoldArgVar, PassWidenConstants, PassDecomposeBranch, PassDecomposeSwitch}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// OutputPath returns the path of the output directory, resolved relative to the config file, or "" when facts
// should be written to the standard output
func (c Config) OutputPath() string {
	if c.OutputDir == "" || path.IsAbs(c.OutputDir) || c.sourceFile == "" {
		return c.OutputDir
	}
	return c.RelPath(c.OutputDir)
}

// MatchMethodFilter returns true if the method full name matches the method filter set in the config file. If no
// method filter has been set in the config file, the regex will match anything and return true. This function
// safely considers the case where a filter has been specified by the user, but it could not be compiled to a regex.
// The safe case is to check whether the method filter string is a prefix of the method name
func (c Config) MatchMethodFilter(methodName string) bool {
	if c.methodFilterRegex != nil {
		return c.methodFilterRegex.MatchString(methodName)
	} else if c.MethodFilter != "" {
		return strings.HasPrefix(methodName, c.MethodFilter)
	} else {
		return true
	}
}

// MatchTypeFilter returns true if the type full name matches the type filter, if specified
func (c Config) MatchTypeFilter(typeName string) bool {
	if c.typeFilterRegex != nil {
		return c.typeFilterRegex.MatchString(typeName)
	} else if c.TypeFilter != "" {
		return strings.HasPrefix(typeName, c.TypeFilter)
	} else {
		return true
	}
}

// IsExcluded returns true if the method of the type matches some identifier of the excluded-methods list
func (c Config) IsExcluded(typeName string, methodName string) bool {
	cid := CodeIdentifier{Type: typeName, Method: methodName}
	return ExistsCid(c.ExcludedMethods, cid.equalOnNonEmptyFields)
}

// PassEnabled returns true when the normalization pass has not been disabled in the config
func (c Config) PassEnabled(pass string) bool {
	return !funcutil.Contains(c.SkipNormalizationPasses, pass)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
