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
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

//go:embed testdata
var testfsys embed.FS

func checkEqualOnNonEmptyFields(t *testing.T, cid1 CodeIdentifier, cid2 CodeIdentifier) {
	cid2c := CompileRegexes(cid2)
	if !cid1.equalOnNonEmptyFields(cid2c) {
		t.Errorf("%v should be equal modulo empty fields to %v", cid1, cid2)
	}
}

func checkNotEqualOnNonEmptyFields(t *testing.T, cid1 CodeIdentifier, cid2 CodeIdentifier) {
	cid2c := CompileRegexes(cid2)
	if cid1.equalOnNonEmptyFields(cid2c) {
		t.Errorf("%v should not be equal modulo empty fields to %v", cid1, cid2)
	}
}

func TestCodeIdentifier_equalOnNonEmptyFields_selfEquals(t *testing.T) {
	cid1 := CodeIdentifier{Type: "a", Method: "b"}
	checkEqualOnNonEmptyFields(t, cid1, cid1)
}

func TestCodeIdentifier_equalOnNonEmptyFields_emptyMatchesAny(t *testing.T) {
	cid1 := CodeIdentifier{Type: "a", Method: "b"}
	cid2 := CodeIdentifier{Type: "de", Method: "234jbn"}
	cidEmpty := CodeIdentifier{}
	checkEqualOnNonEmptyFields(t, cid1, cidEmpty)
	checkEqualOnNonEmptyFields(t, cid2, cidEmpty)
}

func TestCodeIdentifier_equalOnNonEmptyFields_oneDiff(t *testing.T) {
	cid1 := CodeIdentifier{Type: "a", Method: "b"}
	cid2 := CodeIdentifier{Type: "a"}
	checkEqualOnNonEmptyFields(t, cid1, cid2)
	checkNotEqualOnNonEmptyFields(t, cid2, cid1)
}

func TestCodeIdentifier_equalOnNonEmptyFields_regexes(t *testing.T) {
	cid1 := CodeIdentifier{Type: "Sample.Program", Method: "Main"}
	cid1bis := CodeIdentifier{Type: "Sample.Other", Method: "Run"}
	cid2 := CodeIdentifier{Type: "^Sample\\.", Method: "(Main)|(Run)$"}
	checkEqualOnNonEmptyFields(t, cid1, cid2)
	checkEqualOnNonEmptyFields(t, cid1bis, cid2)
	checkNotEqualOnNonEmptyFields(t, CodeIdentifier{Type: "Other.Program", Method: "Main"}, cid2)
}

func TestCodeIdentifier_notRegex(t *testing.T) {
	cid := CompileRegexes(CodeIdentifier{Type: "A", Method: "F(("})
	if cid.computedRegexs != nil {
		t.Fatalf("identifier with an invalid regex should not be compiled")
	}
	x := CodeIdentifier{Type: "A", Method: "F(("}
	if !x.equalOnNonEmptyFields(cid) {
		t.Errorf("identifier should match by string equality")
	}
}

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := Parse(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %v", filename, err)
	}
	return filename, config, err
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.LogLevel != int(InfoLevel) || c.NumWorkers != DefaultNumWorkers || !c.EmitMethodHeaders {
		t.Errorf("unexpected default options %+v", c.Options)
	}
	if !c.MatchMethodFilter("System.Void A::F()") || !c.MatchTypeFilter("A") {
		t.Errorf("default filters should match anything")
	}
	if !c.PassEnabled(PassDecomposeSwitch) {
		t.Errorf("all passes should be enabled by default")
	}
	if c.OutputPath() != "" {
		t.Errorf("default output should be the standard output")
	}
}

func TestLoadFull(t *testing.T) {
	name, c, err := loadFromTestDir("full.yaml")
	if err != nil {
		t.Fatalf("could not load %s: %v", name, err)
	}
	if c.LogLevel != int(DebugLevel) || c.NumWorkers != 8 || !c.ContinueOnInvariantError ||
		c.EmitMethodHeaders || !c.ReportStats {
		t.Errorf("unexpected options %+v", c.Options)
	}
	if !c.Verbose() {
		t.Errorf("debug level should be verbose")
	}
	if c.OutputPath() != "testdata/facts" {
		t.Errorf("output dir should be relative to the config file, got %q", c.OutputPath())
	}
	if c.PassEnabled(PassWidenConstants) || !c.PassEnabled(PassFoldArgVar) {
		t.Errorf("only widen-constants should be disabled")
	}
	if !c.MatchMethodFilter("System.Void Sample.Program::Main(System.String[])") ||
		c.MatchMethodFilter("System.Void Sample.Program::Run()") {
		t.Errorf("method filter should be a regex")
	}
	if !c.MatchTypeFilter("Sample.Program") || c.MatchTypeFilter("NotSample.Program") {
		t.Errorf("type filter should be a regex")
	}
	if !c.IsExcluded("Sample.Program", "<Main>b__0_0") || !c.IsExcluded("Sample.Generated", "Run") {
		t.Errorf("excluded methods not matched")
	}
	if c.IsExcluded("Sample.Program", "Main") {
		t.Errorf("Main should not be excluded")
	}
}

func TestLoadFilterPrefixFallback(t *testing.T) {
	_, c, err := loadFromTestDir("defaults.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !c.MatchTypeFilter("Sample.((Inner") || c.MatchTypeFilter("Sample.Program") {
		t.Errorf("invalid regex filter should be used as a prefix")
	}
	if !c.EmitMethodHeaders || c.LogLevel != int(InfoLevel) {
		t.Errorf("defaults should be kept for options absent from the file")
	}
}

func TestLoadBadFormatFileReturnsError(t *testing.T) {
	for _, name := range []string{"bad_format.yaml", "bad_pass.yaml"} {
		_, config, err := loadFromTestDir(name)
		if config != nil || err == nil {
			t.Errorf("expected error and nil value when loading %s", name)
		}
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "does_not_exist.yaml"))
	if c != nil || err == nil {
		t.Errorf("expected error and nil value when trying to load non existent file")
	}
}

func TestLogGroup(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("shown %d", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should not be printed at warning level")
	}
	if !strings.Contains(out, "[WARN] shown 2") || !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("unexpected log output %q", out)
	}
	if l.LogsDebug() {
		t.Errorf("warning level should not log debug messages")
	}
}
