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

// Package cfg builds the control-flow graph of a CIL method body: one block per instruction linked by the flow
// control class of each instruction, exception edges from protected ranges to handlers, then dead block removal,
// maximal coalescing and a reachability closure from the entry.
package cfg

import (
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// Build returns the analysis graph of the method definition. An *ir.UnsupportedError is returned when the body
// contains an operand of the wrong shape, a branch to an offset that is not an instruction, or an unknown flow
// control class.
func Build(def *cil.MethodDef, logger *config.LogGroup) (*ir.Method, error) {
	name := def.FullName()
	if def.Body == nil || len(def.Body.Instructions) == 0 {
		return nil, ir.Unsupported(name, -1, "method has no body")
	}
	m := ir.NewMethod(def)
	b := &builder{
		method:  m,
		name:    name,
		body:    def.Body,
		byIndex: make([]ir.BlockID, len(def.Body.Instructions)),
		byOff:   make(map[int]ir.BlockID, len(def.Body.Instructions)),
	}
	if err := b.createBlocks(); err != nil {
		return nil, err
	}
	if err := b.linkBlocks(); err != nil {
		return nil, err
	}
	if err := b.linkHandlers(); err != nil {
		return nil, err
	}
	initial := m.NumBlocks()
	removed := removeUnreachable(m)
	merged := coalesce(m)
	m.Retain(m.Reachable())
	logger.Tracef("cfg %s: %d instructions, %d dead blocks, %d merges, %d blocks\n",
		name, initial, removed, merged, m.NumBlocks())
	return m, nil
}

type builder struct {
	method  *ir.Method
	name    string
	body    *cil.MethodBody
	byIndex []ir.BlockID
	byOff   map[int]ir.BlockID
}

// createBlocks creates one block per instruction, in instruction order
func (b *builder) createBlocks() error {
	for i := range b.body.Instructions {
		instr := &b.body.Instructions[i]
		if err := cil.CheckOperand(*instr); err != nil {
			return ir.Unsupported(b.name, instr.Offset, "%v", err)
		}
		if _, dup := b.byOff[instr.Offset]; dup {
			return ir.Unsupported(b.name, instr.Offset, "duplicate instruction offset")
		}
		node, err := ir.NewInstrNode(instr, b.method.Ref())
		if err != nil {
			return ir.Unsupported(b.name, instr.Offset, "%v", err)
		}
		block := b.method.NewBlock()
		block.Nodes = []*ir.Node{node}
		b.byIndex[i] = block.ID
		b.byOff[instr.Offset] = block.ID
	}
	b.method.Entry = b.byIndex[0]
	return nil
}

func (b *builder) blockAt(offset int, from cil.Instruction) (ir.BlockID, error) {
	id, ok := b.byOff[offset]
	if !ok {
		return ir.NoBlock, ir.Unsupported(b.name, from.Offset, "branch target %s is not an instruction",
			cil.OffsetLabel(offset))
	}
	return id, nil
}

// linkBlocks adds the normal control flow edges
func (b *builder) linkBlocks() error {
	instrs := b.body.Instructions
	for i, instr := range instrs {
		from := b.byIndex[i]
		next := func() error {
			if i+1 >= len(instrs) {
				return ir.Unsupported(b.name, instr.Offset, "control flow falls off the end of the method")
			}
			b.method.AddEdge(from, b.byIndex[i+1])
			return nil
		}
		if instr.Code == cil.Jmp {
			// jmp transfers control to another method and never returns
			continue
		}
		switch instr.Code.Flow() {
		case cil.FlowNext, cil.FlowCall, cil.FlowBreak, cil.FlowMeta:
			if err := next(); err != nil {
				return err
			}
		case cil.FlowBranch:
			to, err := b.blockAt(int(instr.Operand.(cil.BranchTarget)), instr)
			if err != nil {
				return err
			}
			b.method.AddEdge(from, to)
		case cil.FlowCondBranch:
			if err := next(); err != nil {
				return err
			}
			var dests []int
			switch x := instr.Operand.(type) {
			case cil.BranchTarget:
				dests = []int{int(x)}
			case cil.SwitchTargets:
				dests = x
			}
			for _, d := range dests {
				to, err := b.blockAt(d, instr)
				if err != nil {
					return err
				}
				b.method.AddEdge(from, to)
			}
		case cil.FlowReturn, cil.FlowThrow:
		default:
			return ir.Unsupported(b.name, instr.Offset, "unrecognized flow control class %s", instr.Code.Flow())
		}
	}
	return nil
}

// linkHandlers marks handler entry blocks and adds an edge from every instruction of a protected range to the
// entry of its handler (and filter)
func (b *builder) linkHandlers() error {
	for i := range b.body.Handlers {
		h := &b.body.Handlers[i]
		var entries []ir.BlockID
		if h.Kind == cil.HandlerFilter {
			filter, ok := b.byOff[h.FilterStart]
			if !ok {
				return ir.Unsupported(b.name, h.FilterStart, "filter start is not an instruction")
			}
			entries = append(entries, filter)
		}
		start, ok := b.byOff[h.HandlerStart]
		if !ok {
			return ir.Unsupported(b.name, h.HandlerStart, "handler start is not an instruction")
		}
		entries = append(entries, start)
		for _, e := range entries {
			block := b.method.Block(e)
			if block.Handler != nil && block.Handler.Kind != h.Kind {
				return ir.Unsupported(b.name, h.HandlerStart, "block starts both a %s and a %s handler",
					block.Handler.Kind, h.Kind)
			}
			block.Handler = h
		}
		for j, instr := range b.body.Instructions {
			if h.Protects(instr.Offset) {
				for _, e := range entries {
					b.method.AddEdge(b.byIndex[j], e)
				}
			}
		}
	}
	return nil
}

// removeUnreachable removes the blocks without sources, except the entry. This is a single pass: blocks whose
// only sources are removed stay until the reachability closure.
func removeUnreachable(m *ir.Method) int {
	var dead []ir.BlockID
	for _, block := range m.Blocks() {
		if block.ID != m.Entry && len(block.Sources) == 0 {
			dead = append(dead, block.ID)
		}
	}
	for _, id := range dead {
		m.RemoveBlock(id)
	}
	return len(dead)
}

// coalesce merges, in layout order, each block with its unique target when that target has no other source.
// The entry block and handler entries are never absorbed. A trailing unconditional branch of the absorbing block
// is dropped since the blocks become one run, unless it is the first instruction of the block.
func coalesce(m *ir.Method) int {
	merged := 0
	for _, block := range m.Blocks() {
		if m.Block(block.ID) == nil {
			continue
		}
		for canAbsorbTarget(m, block) {
			if last := block.Last(); len(block.Nodes) > 1 && (last.Code() == cil.Br || last.Code() == cil.BrS) {
				block.Nodes = block.Nodes[:len(block.Nodes)-1]
			}
			if err := m.Merge(block.ID, block.Targets[0]); err != nil {
				break
			}
			merged++
		}
	}
	return merged
}

func canAbsorbTarget(m *ir.Method, block *ir.Block) bool {
	if len(block.Targets) != 1 {
		return false
	}
	t := block.Targets[0]
	target := m.Block(t)
	return target != nil &&
		t != block.ID &&
		t != m.Entry &&
		!target.IsHandlerStart() &&
		len(target.Sources) == 1
}
