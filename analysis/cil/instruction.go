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

package cil

import (
	"fmt"
	"strconv"
	"strings"
)

// BranchTarget is the operand of a branch instruction: the offset of the destination instruction.
type BranchTarget int

// SwitchTargets is the operand of a switch instruction: the offsets of the case destinations, in case order.
type SwitchTargets []int

// Instruction is one decoded instruction of a method body.
type Instruction struct {
	// Offset is the byte offset of the instruction in the method body
	Offset int
	// Code is the opcode
	Code Code
	// Operand is the inline operand. Its Go type depends on the operand type of the opcode:
	//   - int64 for InlineI, ShortInlineI, InlineI8, InlineVar, ShortInlineVar, InlineArg, ShortInlineArg
	//   - float64 for InlineR, ShortInlineR
	//   - string for InlineString
	//   - BranchTarget for InlineBrTarget, ShortInlineBrTarget
	//   - SwitchTargets for InlineSwitch
	//   - *MethodRef for InlineMethod
	//   - *FieldRef for InlineField
	//   - *TypeRef for InlineType and InlineTok
	//   - *CallSig for InlineSig
	Operand any
}

// Label returns the ildasm style label of the instruction
func (i Instruction) Label() string {
	return OffsetLabel(i.Offset)
}

// OffsetLabel returns the ildasm style label of an offset, e.g. IL_001a
func OffsetLabel(offset int) string {
	return fmt.Sprintf("IL_%04x", offset)
}

func (i Instruction) String() string {
	if i.Operand == nil {
		return fmt.Sprintf("%s: %s", i.Label(), i.Code)
	}
	return fmt.Sprintf("%s: %s %s", i.Label(), i.Code, OperandString(i.Operand))
}

// OperandString formats an operand the way it appears in an IL listing
func OperandString(operand any) string {
	switch x := operand.(type) {
	case nil:
		return ""
	case BranchTarget:
		return OffsetLabel(int(x))
	case SwitchTargets:
		labels := make([]string, len(x))
		for i, t := range x {
			labels[i] = OffsetLabel(t)
		}
		return "(" + strings.Join(labels, ", ") + ")"
	case string:
		return strconv.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CheckOperand returns an error if the Go type of the operand of the instruction does not match the operand
// type of its opcode.
//
//gocyclo:ignore
func CheckOperand(i Instruction) error {
	op, ok := i.Code.Info()
	if !ok {
		return fmt.Errorf("unknown opcode 0x%x", uint16(i.Code))
	}
	ok = false
	switch op.Operand {
	case InlineNone:
		ok = i.Operand == nil
	case InlineBrTarget, ShortInlineBrTarget:
		_, ok = i.Operand.(BranchTarget)
	case InlineSwitch:
		_, ok = i.Operand.(SwitchTargets)
	case InlineI, ShortInlineI, InlineI8, InlineVar, ShortInlineVar, InlineArg, ShortInlineArg:
		_, ok = i.Operand.(int64)
	case InlineR, ShortInlineR:
		_, ok = i.Operand.(float64)
	case InlineString:
		_, ok = i.Operand.(string)
	case InlineMethod:
		var m *MethodRef
		m, ok = i.Operand.(*MethodRef)
		ok = ok && m != nil
	case InlineField:
		var f *FieldRef
		f, ok = i.Operand.(*FieldRef)
		ok = ok && f != nil
	case InlineType, InlineTok:
		var t *TypeRef
		t, ok = i.Operand.(*TypeRef)
		ok = ok && t != nil
	case InlineSig:
		var s *CallSig
		s, ok = i.Operand.(*CallSig)
		ok = ok && s != nil
	}
	if !ok {
		return fmt.Errorf("operand %T of %s does not match its operand kind", i.Operand, op.Name)
	}
	return nil
}

// HandlerKind is the kind of an exception handler clause
type HandlerKind int

const (
	HandlerCatch HandlerKind = iota
	HandlerFinally
	HandlerFilter
	HandlerFault
)

func (k HandlerKind) String() string {
	switch k {
	case HandlerCatch:
		return "catch"
	case HandlerFinally:
		return "finally"
	case HandlerFilter:
		return "filter"
	case HandlerFault:
		return "fault"
	default:
		return fmt.Sprintf("handler(%d)", int(k))
	}
}

// ParseHandlerKind parses the textual kind of a handler clause.
func ParseHandlerKind(s string) (HandlerKind, error) {
	switch strings.ToLower(s) {
	case "catch":
		return HandlerCatch, nil
	case "finally":
		return HandlerFinally, nil
	case "filter":
		return HandlerFilter, nil
	case "fault":
		return HandlerFault, nil
	}
	return 0, fmt.Errorf("unknown handler kind %q", s)
}

// ExceptionHandler is one clause of the exception handler table of a method body.
// The protected range is [TryStart, TryEnd) and the handler range is [HandlerStart, HandlerEnd).
type ExceptionHandler struct {
	Kind         HandlerKind
	TryStart     int
	TryEnd       int
	HandlerStart int
	HandlerEnd   int
	// FilterStart is the offset of the filter block of filter handlers, and -1 otherwise
	FilterStart int
	// CatchType is the type caught by catch handlers
	CatchType string
}

// Protects returns true when the offset is inside the protected range of the handler
func (h ExceptionHandler) Protects(offset int) bool {
	return offset >= h.TryStart && offset < h.TryEnd
}

// EntryDepth returns the evaluation stack depth at the entry of the handler (and of its filter block).
// The runtime pushes the exception object for catch and filter handlers.
func (h ExceptionHandler) EntryDepth() int {
	switch h.Kind {
	case HandlerCatch, HandlerFilter:
		return 1
	default:
		return 0
	}
}

func (h ExceptionHandler) String() string {
	s := fmt.Sprintf("%s try [%s, %s) handler [%s, %s)", h.Kind,
		OffsetLabel(h.TryStart), OffsetLabel(h.TryEnd), OffsetLabel(h.HandlerStart), OffsetLabel(h.HandlerEnd))
	if h.Kind == HandlerFilter {
		s += " filter " + OffsetLabel(h.FilterStart)
	}
	if h.CatchType != "" {
		s += " " + h.CatchType
	}
	return s
}

// MethodBody is the decoded body of a method
type MethodBody struct {
	Instructions []Instruction
	Handlers     []ExceptionHandler
	// Locals are the types of the local variables, by index
	Locals []string
}

// IndexOfOffset returns the index of the instruction at offset, or -1
func (b *MethodBody) IndexOfOffset(offset int) int {
	for i, instr := range b.Instructions {
		if instr.Offset == offset {
			return i
		}
	}
	return -1
}
