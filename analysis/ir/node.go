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

package ir

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
)

// NodeKind is the tag of the node variant
type NodeKind int

const (
	// KindInstr is a node wrapping an instruction (decoded or synthesized by normalization)
	KindInstr NodeKind = iota
	// KindStackPhi is a join node for an abstract stack slot
	KindStackPhi
	// KindVarPhi is a join node for a local variable slot
	KindVarPhi
)

func (k NodeKind) String() string {
	switch k {
	case KindInstr:
		return "instr"
	case KindStackPhi:
		return "stack-phi"
	case KindVarPhi:
		return "var-phi"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Phi is the payload of join nodes.
type Phi struct {
	// Slot is the stack depth index (stack joins) or the local variable index (variable joins)
	Slot int
	// Sources are the blocks the parents flow from, parallel to Parents.
	// For links of a flattened join chain, the source of the previous link is -1.
	Sources []BlockID
	// Parents are the names of the merged values, in source order
	Parents []string
}

// Node is an element of a block: a decoded instruction, an instruction synthesized by normalization, or a
// join node. Fields shared by every variant live on the node; the join payload only on join nodes.
type Node struct {
	Kind NodeKind

	// Instr is the decoded instruction the node originates from. Nodes synthesized by normalization keep the
	// instruction they replace; join nodes have a nil Instr.
	Instr *cil.Instruction

	overridden bool
	code       cil.Code
	operand    any

	// Pops and Pushes are the resolved number of values the node pops from and pushes on the evaluation stack
	Pops   int
	Pushes int

	// Depth is the abstract stack depth before the node executes, computed by the depth simulation
	Depth int

	// PopNames are the names of the popped values, bottom of the stack first
	PopNames []string
	// PushNames are the names of the pushed values, bottom of the stack first
	PushNames []string
	// RefName is the name of the argument, local variable or field the node reads or writes
	RefName string
	// Name is the name defined by a join node
	Name string

	Phi *Phi

	annotations
}

// NewInstrNode returns the node of a decoded instruction. The stack effect is resolved against the method
// owning the instruction.
func NewInstrNode(instr *cil.Instruction, owner *cil.MethodRef) (*Node, error) {
	pops, pushes, err := StackEffect(instr.Code, instr.Operand, owner)
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:    KindInstr,
		Instr:   instr,
		code:    instr.Code,
		operand: instr.Operand,
		Pops:    pops,
		Pushes:  pushes,
	}, nil
}

// Derive returns a new instruction node that replaces n with the given opcode and operand. The original
// decoded instruction is kept untouched and shared with the derived node.
func (n *Node) Derive(code cil.Code, operand any, owner *cil.MethodRef) (*Node, error) {
	pops, pushes, err := StackEffect(code, operand, owner)
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:       KindInstr,
		Instr:      n.Instr,
		overridden: true,
		code:       code,
		operand:    operand,
		Pops:       pops,
		Pushes:     pushes,
	}, nil
}

// NewPhiNode returns a join node of the given kind for the slot, with no parents
func NewPhiNode(kind NodeKind, slot int) *Node {
	return &Node{Kind: kind, Phi: &Phi{Slot: slot}}
}

// Code returns the effective opcode of the node (the override if set, otherwise the decoded opcode)
func (n *Node) Code() cil.Code {
	return n.code
}

// Operand returns the effective operand of the node
func (n *Node) Operand() any {
	return n.operand
}

// Overridden returns true when the opcode or operand of the node differs from the decoded instruction
func (n *Node) Overridden() bool {
	return n.overridden
}

// IsPhi returns true for join nodes
func (n *Node) IsPhi() bool {
	return n.Kind == KindStackPhi || n.Kind == KindVarPhi
}

// Offset returns the offset of the instruction the node originates from, or -1 for join nodes
func (n *Node) Offset() int {
	if n.Instr == nil {
		return -1
	}
	return n.Instr.Offset
}

// Flow returns the flow control class of the node's effective opcode
func (n *Node) Flow() cil.FlowControl {
	if n.IsPhi() {
		return cil.FlowNext
	}
	return n.code.Flow()
}

// WrittenStackSlots returns the abstract stack slots written by the node, given its depth
func (n *Node) WrittenStackSlots() []int {
	if n.IsPhi() {
		if n.Kind == KindStackPhi {
			return []int{n.Phi.Slot}
		}
		return nil
	}
	base := n.Depth - n.Pops
	slots := make([]int, 0, n.Pushes)
	for i := 0; i < n.Pushes; i++ {
		slots = append(slots, base+i)
	}
	return slots
}

func (n *Node) String() string {
	switch n.Kind {
	case KindStackPhi, KindVarPhi:
		space := "s"
		if n.Kind == KindVarPhi {
			space = "v"
		}
		return fmt.Sprintf("phi %s%d %s = [%s]", space, n.Phi.Slot, n.Name, strings.Join(n.Phi.Parents, ", "))
	default:
		if n.operand == nil {
			return n.code.String()
		}
		return n.code.String() + " " + OperandString(n.operand)
	}
}

// OperandString formats operands of instruction nodes, including block targets of synthesized branches
func OperandString(operand any) string {
	if b, ok := operand.(BlockID); ok {
		return b.String()
	}
	return cil.OperandString(operand)
}

// StackEffect resolves the number of values popped and pushed by an opcode with an operand. Calls and object
// construction are resolved from the signature of the callee, ret from the signature of the owner method.
// Opcodes that empty the stack (leave) report zero pops; the depth reset is handled by the depth simulation.
func StackEffect(code cil.Code, operand any, owner *cil.MethodRef) (pops int, pushes int, err error) {
	op, ok := code.Info()
	if !ok {
		return 0, 0, fmt.Errorf("unknown opcode 0x%x", uint16(code))
	}
	switch code {
	case cil.Call, cil.Callvirt:
		m, ok := operand.(*cil.MethodRef)
		if !ok || m == nil {
			return 0, 0, fmt.Errorf("%s expects a method operand, got %T", op.Name, operand)
		}
		pops = m.ArgCount()
		if m.ReturnsValue() {
			pushes = 1
		}
		return pops, pushes, nil
	case cil.Newobj:
		m, ok := operand.(*cil.MethodRef)
		if !ok || m == nil {
			return 0, 0, fmt.Errorf("%s expects a method operand, got %T", op.Name, operand)
		}
		return len(m.Params), 1, nil
	case cil.Calli:
		s, ok := operand.(*cil.CallSig)
		if !ok || s == nil {
			return 0, 0, fmt.Errorf("%s expects a signature operand, got %T", op.Name, operand)
		}
		// function pointer on top of the arguments
		pops = len(s.Params) + 1
		if s.HasThis {
			pops++
		}
		if s.ReturnType != "" && s.ReturnType != cil.VoidType {
			pushes = 1
		}
		return pops, pushes, nil
	case cil.Ret:
		if owner != nil && owner.ReturnsValue() {
			return 1, 0, nil
		}
		return 0, 0, nil
	}
	pops, pushes = op.Pop, op.Push
	if pops == cil.PopAll {
		pops = 0
	}
	if pops < 0 || pushes < 0 {
		return 0, 0, fmt.Errorf("variable stack behaviour of %s cannot be resolved", op.Name)
	}
	return pops, pushes, nil
}

// annotations is the side-channel analyses use to attach facts to nodes and blocks
type annotations struct {
	values map[string]any
}

// SetAnnotation attaches a value to the element under key
func (a *annotations) SetAnnotation(key string, value any) {
	if a.values == nil {
		a.values = map[string]any{}
	}
	a.values[key] = value
}

// Annotation returns the value attached under key
func (a *annotations) Annotation(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}
