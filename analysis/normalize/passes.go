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

package normalize

import (
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

type op struct {
	code    cil.Code
	operand any
}

// indexed maps the shorthand forms of argument and variable accesses to their indexed form, with the index encoded
// in the opcode, or -1 when the index is the operand
var indexed = map[cil.Code]struct {
	code  cil.Code
	index int64
}{
	cil.Ldarg0:  {cil.Ldarg, 0},
	cil.Ldarg1:  {cil.Ldarg, 1},
	cil.Ldarg2:  {cil.Ldarg, 2},
	cil.Ldarg3:  {cil.Ldarg, 3},
	cil.LdargS:  {cil.Ldarg, -1},
	cil.LdargaS: {cil.Ldarga, -1},
	cil.StargS:  {cil.Starg, -1},
	cil.Ldloc0:  {cil.Ldloc, 0},
	cil.Ldloc1:  {cil.Ldloc, 1},
	cil.Ldloc2:  {cil.Ldloc, 2},
	cil.Ldloc3:  {cil.Ldloc, 3},
	cil.LdlocS:  {cil.Ldloc, -1},
	cil.LdlocaS: {cil.Ldloca, -1},
	cil.Stloc0:  {cil.Stloc, 0},
	cil.Stloc1:  {cil.Stloc, 1},
	cil.Stloc2:  {cil.Stloc, 2},
	cil.Stloc3:  {cil.Stloc, 3},
	cil.StlocS:  {cil.Stloc, -1},
}

// FoldArgVar rewrites the shorthand argument and local variable accesses (ldarg.0, ldloc.s, stloc.1 ...) into
// their indexed forms (ldarg, ldloc, stloc ...) with the index as an int64 operand.
func FoldArgVar(m *ir.Method) (int, error) {
	return rewriteNodes(m, func(m *ir.Method, n *ir.Node) ([]*ir.Node, bool, error) {
		to, ok := indexed[n.Code()]
		if !ok {
			return nil, false, nil
		}
		index := to.index
		if index < 0 {
			index = n.Operand().(int64)
		}
		res, err := derive(m, n, op{to.code, index})
		return res, true, err
	})
}

// WidenConstants rewrites every integer constant load into ldc.i8 and every floating point constant load into
// ldc.r8.
func WidenConstants(m *ir.Method) (int, error) {
	return rewriteNodes(m, func(m *ir.Method, n *ir.Node) ([]*ir.Node, bool, error) {
		var o op
		switch n.Code() {
		case cil.LdcI4M1:
			o = op{cil.LdcI8, int64(-1)}
		case cil.LdcI40, cil.LdcI41, cil.LdcI42, cil.LdcI43, cil.LdcI44, cil.LdcI45, cil.LdcI46, cil.LdcI47,
			cil.LdcI48:
			o = op{cil.LdcI8, int64(n.Code() - cil.LdcI40)}
		case cil.LdcI4S, cil.LdcI4:
			o = op{cil.LdcI8, n.Operand()}
		case cil.LdcR4:
			o = op{cil.LdcR8, n.Operand()}
		default:
			return nil, false, nil
		}
		res, err := derive(m, n, o)
		return res, true, err
	})
}

// branchOps are the primitive operations preceding brtrue in the decomposition of each branch
var branchOps = map[cil.Code][]cil.Code{
	cil.Br:       {cil.LdcI8},
	cil.BrS:      {cil.LdcI8},
	cil.BrtrueS:  {},
	cil.Brfalse:  {cil.NotBool},
	cil.BrfalseS: {cil.NotBool},
	cil.Beq:      {cil.Ceq},
	cil.BeqS:     {cil.Ceq},
	cil.BneUn:    {cil.Ceq, cil.NotBool},
	cil.BneUnS:   {cil.Ceq, cil.NotBool},
	cil.Bgt:      {cil.Cgt},
	cil.BgtS:     {cil.Cgt},
	cil.BgtUn:    {cil.CgtUn},
	cil.BgtUnS:   {cil.CgtUn},
	cil.Blt:      {cil.Clt},
	cil.BltS:     {cil.Clt},
	cil.BltUn:    {cil.CltUn},
	cil.BltUnS:   {cil.CltUn},
	cil.Bge:      {cil.CltUn, cil.NotBool},
	cil.BgeS:     {cil.CltUn, cil.NotBool},
	cil.BgeUn:    {cil.Clt, cil.NotBool},
	cil.BgeUnS:   {cil.Clt, cil.NotBool},
	cil.Ble:      {cil.CgtUn, cil.NotBool},
	cil.BleS:     {cil.CgtUn, cil.NotBool},
	cil.BleUn:    {cil.Cgt, cil.NotBool},
	cil.BleUnS:   {cil.Cgt, cil.NotBool},
}

// DecomposeBranches rewrites every conditional and unconditional branch into zero to two comparison or negation
// primitives followed by brtrue. The unconditional branch loads the constant 1. leave is not rewritten.
func DecomposeBranches(m *ir.Method) (int, error) {
	return rewriteNodes(m, func(m *ir.Method, n *ir.Node) ([]*ir.Node, bool, error) {
		prims, ok := branchOps[n.Code()]
		if !ok {
			return nil, false, nil
		}
		ops := make([]op, 0, len(prims)+1)
		for _, p := range prims {
			if p == cil.LdcI8 {
				ops = append(ops, op{p, int64(1)})
			} else {
				ops = append(ops, op{p, nil})
			}
		}
		ops = append(ops, op{cil.Brtrue, n.Operand()})
		res, err := derive(m, n, ops...)
		return res, true, err
	})
}
