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

package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
)

// ParseInstruction parses one ildasm style line, e.g. `IL_000a: ldfld System.Int32 Sample.Point::x`.
// Prefixes such as `tail.` are separate instructions and must be on their own line.
func ParseInstruction(line string) (cil.Instruction, error) {
	line = strings.TrimSpace(line)
	label, rest, ok := strings.Cut(line, ":")
	if !ok {
		return cil.Instruction{}, fmt.Errorf("missing instruction label in %q", line)
	}
	offset, err := parseLabel(label)
	if err != nil {
		return cil.Instruction{}, err
	}
	rest = strings.TrimSpace(rest)
	mnemonic, operand, _ := strings.Cut(rest, " ")
	code, ok := cil.Lookup(mnemonic)
	if !ok || code.IsSynthesized() {
		return cil.Instruction{}, fmt.Errorf("unknown opcode %q", mnemonic)
	}
	op, _ := code.Info()
	value, err := parseOperand(code, op.Operand, strings.TrimSpace(operand))
	if err != nil {
		return cil.Instruction{}, fmt.Errorf("%s: %w", op.Name, err)
	}
	instr := cil.Instruction{Offset: offset, Code: code, Operand: value}
	if err := cil.CheckOperand(instr); err != nil {
		return cil.Instruction{}, err
	}
	return instr, nil
}

// parseLabel parses a label IL_hhhh into an offset
func parseLabel(s string) (int, error) {
	s = strings.TrimSpace(s)
	hex, ok := strings.CutPrefix(s, "IL_")
	if !ok {
		return 0, fmt.Errorf("invalid label %q", s)
	}
	x, err := strconv.ParseUint(hex, 16, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid label %q", s)
	}
	return int(x), nil
}

//gocyclo:ignore
func parseOperand(code cil.Code, kind cil.OperandType, s string) (any, error) {
	if kind == cil.InlineNone {
		if s != "" {
			return nil, fmt.Errorf("unexpected operand %q", s)
		}
		return nil, nil
	}
	if s == "" {
		return nil, fmt.Errorf("missing operand")
	}
	switch kind {
	case cil.InlineBrTarget, cil.ShortInlineBrTarget:
		target, err := parseLabel(s)
		return cil.BranchTarget(target), err
	case cil.InlineSwitch:
		return parseSwitch(s)
	case cil.InlineI, cil.ShortInlineI, cil.InlineI8:
		x, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return x, nil
	case cil.InlineVar, cil.ShortInlineVar:
		return parseIndex(s, "V_")
	case cil.InlineArg, cil.ShortInlineArg:
		return parseIndex(s, "A_")
	case cil.InlineR, cil.ShortInlineR:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", s)
		}
		return x, nil
	case cil.InlineString:
		x, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s", s)
		}
		return x, nil
	case cil.InlineMethod:
		return ParseMethodRef(s)
	case cil.InlineField:
		f, err := ParseFieldRef(s)
		if err != nil {
			return nil, err
		}
		f.Static = code == cil.Ldsfld || code == cil.Ldsflda || code == cil.Stsfld
		return f, nil
	case cil.InlineType, cil.InlineTok:
		return &cil.TypeRef{FullName: s}, nil
	case cil.InlineSig:
		return ParseCallSig(s)
	}
	return nil, fmt.Errorf("unsupported operand kind %d", kind)
}

func parseSwitch(s string) (cil.SwitchTargets, error) {
	inner, ok := strings.CutPrefix(s, "(")
	inner, ok2 := strings.CutSuffix(inner, ")")
	if !ok || !ok2 {
		return nil, fmt.Errorf("invalid switch targets %q", s)
	}
	targets := cil.SwitchTargets{}
	for _, l := range splitList(inner) {
		t, err := parseLabel(l)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// parseIndex parses an argument or local index, written either as a number or with the ildasm prefix
func parseIndex(s string, prefix string) (int64, error) {
	x, err := strconv.ParseInt(strings.TrimPrefix(s, prefix), 10, 32)
	if err != nil || x < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return x, nil
}

// ParseMethodRef parses a method reference `[instance] RetType Decl.Type::Name(P1, P2)`. A leading `static` is
// ignored.
func ParseMethodRef(s string) (*cil.MethodRef, error) {
	s = strings.TrimSpace(s)
	rest, hasThis := strings.CutPrefix(strings.TrimPrefix(s, "static "), "instance ")
	rest = strings.TrimSpace(rest)
	head, params, err := splitParams(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid method reference %q: %w", s, err)
	}
	owner, name, ok := strings.Cut(head, "::")
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid method reference %q: missing declaring type", s)
	}
	i := strings.LastIndex(owner, " ")
	if i < 0 {
		return nil, fmt.Errorf("invalid method reference %q: missing return type", s)
	}
	return &cil.MethodRef{
		DeclaringType: owner[i+1:],
		Name:          name,
		Params:        params,
		ReturnType:    returnType(owner[:i]),
		HasThis:       hasThis,
	}, nil
}

// ParseFieldRef parses a field reference `FieldType Decl.Type::name`
func ParseFieldRef(s string) (*cil.FieldRef, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, " ")
	if i < 0 {
		return nil, fmt.Errorf("invalid field reference %q: missing field type", s)
	}
	owner, name, ok := strings.Cut(s[i+1:], "::")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid field reference %q", s)
	}
	return &cil.FieldRef{DeclaringType: owner, Name: name, FieldType: strings.TrimSpace(s[:i])}, nil
}

// ParseCallSig parses a call-site signature `[instance] RetType(P1, P2)`
func ParseCallSig(s string) (*cil.CallSig, error) {
	s = strings.TrimSpace(s)
	rest, hasThis := strings.CutPrefix(s, "instance ")
	ret, params, err := splitParams(strings.TrimSpace(rest))
	if err != nil {
		return nil, fmt.Errorf("invalid call signature %q: %w", s, err)
	}
	if ret == "" {
		return nil, fmt.Errorf("invalid call signature %q: missing return type", s)
	}
	return &cil.CallSig{Params: params, ReturnType: returnType(ret), HasThis: hasThis}, nil
}

// splitParams splits `head(P1, P2)` into head and the parameter types
func splitParams(s string) (string, []string, error) {
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("missing parameter list")
	}
	return strings.TrimSpace(s[:open]), splitList(s[open+1 : len(s)-1]), nil
}

// splitList splits a comma separated list, ignoring the commas between angle brackets of generic types
func splitList(s string) []string {
	var items []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<', '[':
			depth++
		case '>', ']':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(items) > 0 {
		items = append(items, last)
	}
	return items
}

func returnType(s string) string {
	s = strings.TrimSpace(s)
	if s == "void" {
		return cil.VoidType
	}
	return s
}
