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

// Package loader reads CIL modules from IL listings. A listing is a YAML document describing the types of a
// module; each method lists its locals, its exception handler table and its body as ildasm style lines:
//
//	module: Sample
//	types:
//	  - name: Sample.Program
//	    methods:
//	      - method: System.Int32 Sample.Program::Twice(System.Int32)
//	        locals: [System.Int32]
//	        body: |
//	          IL_0000: ldarg.0
//	          IL_0001: ldc.i4.2
//	          IL_0002: mul
//	          IL_0003: ret
//
// Listings may be compressed with zstd (.zst) or gzip (.gz).
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// ParseError is an error in a listing, located at a line of the listing file
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

type listing struct {
	Module string        `yaml:"module"`
	Types  []listingType `yaml:"types"`
}

type listingType struct {
	Name    string          `yaml:"name"`
	Methods []listingMethod `yaml:"methods"`
}

type listingMethod struct {
	Method   yaml.Node        `yaml:"method"`
	Locals   []string         `yaml:"locals"`
	Handlers []listingHandler `yaml:"handlers"`
	// Body is kept as a node to locate the instructions in the file
	Body yaml.Node `yaml:"body"`
}

type listingHandler struct {
	Kind      string   `yaml:"kind"`
	Try       []string `yaml:"try"`
	Handler   []string `yaml:"handler"`
	Filter    string   `yaml:"filter"`
	CatchType string   `yaml:"catch-type"`
}

// Load reads the module listed in the file. The module name defaults to the file name without extensions.
func Load(filename string) (*cil.Module, error) {
	data, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(filename, data)
}

// LoadAll reads the modules listed in each file, in order
func LoadAll(filenames []string) ([]*cil.Module, error) {
	var modules []*cil.Module
	for _, f := range filenames {
		mod, err := Load(f)
		if err != nil {
			return nil, err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

// readFile returns the decompressed contents of the file
func readFile(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open listing: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(filename) {
	case ".zst":
		d, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("could not read zstd listing %s: %w", filename, err)
		}
		defer d.Close()
		r = d
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("could not read gzip listing %s: %w", filename, err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read listing %s: %w", filename, err)
	}
	return data, nil
}

// Parse reads a module from the contents of a listing. The filename is only used for the module name and
// error messages.
func Parse(filename string, data []byte) (*cil.Module, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &cil.Module{Name: moduleName(filename)}, nil
		}
		return nil, fmt.Errorf("could not parse listing %s: %w", filename, err)
	}
	var l listing
	if err := doc.Decode(&l); err != nil {
		return nil, fmt.Errorf("could not parse listing %s: %w", filename, err)
	}

	mod := &cil.Module{Name: l.Module}
	if mod.Name == "" {
		mod.Name = moduleName(filename)
	}
	for _, lt := range l.Types {
		if lt.Name == "" {
			return nil, fmt.Errorf("could not parse listing %s: type without a name", filename)
		}
		t := &cil.TypeDef{FullName: lt.Name}
		for _, lm := range lt.Methods {
			def, err := parseMethod(filename, lt.Name, lm)
			if err != nil {
				return nil, err
			}
			t.Methods = append(t.Methods, def)
		}
		mod.Types = append(mod.Types, t)
	}
	return mod, nil
}

func moduleName(filename string) string {
	name := filepath.Base(filename)
	for ext := filepath.Ext(name); ext != ""; ext = filepath.Ext(name) {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func parseMethod(filename string, typeName string, lm listingMethod) (*cil.MethodDef, error) {
	errorf := func(line int, format string, args ...any) error {
		return &ParseError{File: filename, Line: line, Msg: fmt.Sprintf(format, args...)}
	}
	ref, err := ParseMethodRef(lm.Method.Value)
	if err != nil {
		return nil, errorf(lm.Method.Line, "%v", err)
	}
	if ref.DeclaringType != typeName {
		return nil, errorf(lm.Method.Line, "method %s is declared in %s, not in %s", ref.Name, ref.DeclaringType,
			typeName)
	}
	def := &cil.MethodDef{Ref: ref}
	if lm.Body.Kind == 0 && len(lm.Locals) == 0 && len(lm.Handlers) == 0 {
		// abstract or extern method
		return def, nil
	}

	body := &cil.MethodBody{Locals: lm.Locals}
	first := lm.Body.Line
	if lm.Body.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		first++
	}
	for i, line := range strings.Split(lm.Body.Value, "\n") {
		line = stripComment(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		instr, err := ParseInstruction(line)
		if err != nil {
			return nil, errorf(first+i, "%v", err)
		}
		if body.IndexOfOffset(instr.Offset) >= 0 {
			return nil, errorf(first+i, "duplicate instruction label %s", instr.Label())
		}
		body.Instructions = append(body.Instructions, instr)
	}
	for _, lh := range lm.Handlers {
		h, err := parseHandler(lh)
		if err != nil {
			return nil, errorf(lm.Method.Line, "%v", err)
		}
		body.Handlers = append(body.Handlers, h)
	}
	def.Body = body
	return def, nil
}

func parseHandler(lh listingHandler) (cil.ExceptionHandler, error) {
	kind, err := cil.ParseHandlerKind(lh.Kind)
	if err != nil {
		return cil.ExceptionHandler{}, err
	}
	h := cil.ExceptionHandler{Kind: kind, FilterStart: -1, CatchType: lh.CatchType}
	if h.TryStart, h.TryEnd, err = parseRange("try", lh.Try); err != nil {
		return h, err
	}
	if h.HandlerStart, h.HandlerEnd, err = parseRange("handler", lh.Handler); err != nil {
		return h, err
	}
	switch {
	case kind == cil.HandlerFilter && lh.Filter == "":
		return h, fmt.Errorf("filter handler without a filter label")
	case kind != cil.HandlerFilter && lh.Filter != "":
		return h, fmt.Errorf("%s handler with a filter label", kind)
	case lh.Filter != "":
		if h.FilterStart, err = parseLabel(lh.Filter); err != nil {
			return h, err
		}
	}
	if kind != cil.HandlerCatch && lh.CatchType != "" {
		return h, fmt.Errorf("%s handler with a catch type", kind)
	}
	return h, nil
}

func parseRange(what string, labels []string) (int, int, error) {
	if len(labels) != 2 {
		return 0, 0, fmt.Errorf("%s range must have a start and an end label, got %v", what, labels)
	}
	start, err := parseLabel(labels[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseLabel(labels[1])
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("empty %s range [%s, %s)", what, labels[0], labels[1])
	}
	return start, end, nil
}

// stripComment removes a // comment that is not inside a string literal
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && inString:
			i++
		case line[i] == '"':
			inString = !inString
		case !inString && strings.HasPrefix(line[i:], "//"):
			return line[:i]
		}
	}
	return line
}
