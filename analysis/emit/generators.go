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

package emit

import (
	"fmt"
	"strconv"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// Generator produces the facts of the nodes it matches. Generators are tried in order; the first one matching
// a node is the only one to emit facts for it.
type Generator struct {
	Name  string
	Match func(n *ir.Node) bool
	Emit  func(ctx *Context, n *ir.Node) ([]Fact, error)
}

// codes returns a predicate matching the nodes with one of the opcodes
func codes(cs ...cil.Code) func(*ir.Node) bool {
	set := make(map[cil.Code]bool, len(cs))
	for _, c := range cs {
		set[c] = true
	}
	return func(n *ir.Node) bool { return set[n.Code()] }
}

// mapped returns a predicate matching the opcodes in the keys of m
func mapped(m map[cil.Code]string) func(*ir.Node) bool {
	return func(n *ir.Node) bool {
		_, ok := m[n.Code()]
		return ok
	}
}

var binaryOps = map[cil.Code]string{
	cil.Add: "Add", cil.AddOvf: "Add", cil.AddOvfUn: "Add",
	cil.Sub: "Sub", cil.SubOvf: "Sub", cil.SubOvfUn: "Sub",
	cil.Mul: "Mul", cil.MulOvf: "Mul", cil.MulOvfUn: "Mul",
	cil.Div: "Div", cil.DivUn: "Div",
	cil.Rem: "Rem", cil.RemUn: "Rem",
	cil.And: "And", cil.Or: "Or", cil.Xor: "Xor",
	cil.Shl: "Shl", cil.Shr: "Shr", cil.ShrUn: "Shr",
	cil.Ceq: "Ceq",
	cil.Cgt: "Cgt", cil.CgtUn: "Cgt",
	cil.Clt: "Clt", cil.CltUn: "Clt",
}

var unaryOps = map[cil.Code]string{
	cil.Neg:     "Neg",
	cil.Not:     "Not",
	cil.NotBool: "LogicalNot",
}

// conversions and boxing do not change the value in this abstraction
var copies = []cil.Code{
	cil.Box, cil.Unbox, cil.UnboxAny, cil.Ckfinite, cil.Mkrefany, cil.Refanyval, cil.Refanytype,
	cil.ConvI1, cil.ConvI2, cil.ConvI4, cil.ConvI8, cil.ConvR4, cil.ConvR8, cil.ConvU4, cil.ConvU8, cil.ConvRUn,
	cil.ConvU2, cil.ConvU1, cil.ConvI, cil.ConvU,
	cil.ConvOvfI1Un, cil.ConvOvfI2Un, cil.ConvOvfI4Un, cil.ConvOvfI8Un, cil.ConvOvfU1Un, cil.ConvOvfU2Un,
	cil.ConvOvfU4Un, cil.ConvOvfU8Un, cil.ConvOvfIUn, cil.ConvOvfUUn,
	cil.ConvOvfI1, cil.ConvOvfU1, cil.ConvOvfI2, cil.ConvOvfU2, cil.ConvOvfI4, cil.ConvOvfU4, cil.ConvOvfI8,
	cil.ConvOvfU8, cil.ConvOvfI, cil.ConvOvfU,
}

var (
	loadIndirect = []cil.Code{
		cil.LdindI1, cil.LdindU1, cil.LdindI2, cil.LdindU2, cil.LdindI4, cil.LdindU4, cil.LdindI8, cil.LdindI,
		cil.LdindR4, cil.LdindR8, cil.LdindRef, cil.Ldobj,
	}
	storeIndirect = []cil.Code{
		cil.StindRef, cil.StindI1, cil.StindI2, cil.StindI4, cil.StindI8, cil.StindR4, cil.StindR8, cil.StindI,
		cil.Stobj,
	}
	loadElem = []cil.Code{
		cil.LdelemI1, cil.LdelemU1, cil.LdelemI2, cil.LdelemU2, cil.LdelemI4, cil.LdelemU4, cil.LdelemI8,
		cil.LdelemI, cil.LdelemR4, cil.LdelemR8, cil.LdelemRef, cil.Ldelem,
	}
	storeElem = []cil.Code{
		cil.StelemI, cil.StelemI1, cil.StelemI2, cil.StelemI4, cil.StelemI8, cil.StelemR4, cil.StelemR8,
		cil.StelemRef, cil.Stelem,
	}
)

// implicitConstants are the values of the constant loads without operand
var implicitConstants = map[cil.Code]int64{
	cil.LdcI4M1: -1,
	cil.LdcI40:  0,
	cil.LdcI41:  1,
	cil.LdcI42:  2,
	cil.LdcI43:  3,
	cil.LdcI44:  4,
	cil.LdcI45:  5,
	cil.LdcI46:  6,
	cil.LdcI47:  7,
	cil.LdcI48:  8,
}

func constValue(n *ir.Node) (string, error) {
	if v, ok := implicitConstants[n.Code()]; ok {
		return strconv.FormatInt(v, 10), nil
	}
	switch v := n.Operand().(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("%s has no constant operand", n)
}

// DefaultGenerators returns the generators of every supported opcode family, in priority order
func DefaultGenerators() []Generator {
	return []Generator{
		{
			Name: "const",
			Match: codes(cil.LdcI8, cil.LdcR8, cil.LdcI4, cil.LdcI4S, cil.LdcR4, cil.LdcI4M1, cil.LdcI40, cil.LdcI41,
				cil.LdcI42, cil.LdcI43, cil.LdcI44, cil.LdcI45, cil.LdcI46, cil.LdcI47, cil.LdcI48),
			Emit: func(ctx *Context, n *ir.Node) ([]Fact, error) {
				v, err := constValue(n)
				if err != nil {
					return nil, ctx.unsupported(n, err.Error())
				}
				return one("Const", push(n), v), nil
			},
		},
		{
			Name:  "string",
			Match: codes(cil.Ldstr),
			Emit: func(ctx *Context, n *ir.Node) ([]Fact, error) {
				s, ok := n.Operand().(string)
				if !ok {
					return nil, ctx.unsupported(n, "string operand expected")
				}
				return one("ConstString", push(n), s), nil
			},
		},
		{
			Name:  "null",
			Match: codes(cil.Ldnull),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("Null", push(n)), nil
			},
		},
		{
			Name:  "dup",
			Match: codes(cil.Dup),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return []Fact{
					NewFact("Assign", n.PushNames[0], pop(n, 0)),
					NewFact("Assign", n.PushNames[1], pop(n, 0)),
				}, nil
			},
		},
		{
			Name:  "args",
			Match: codes(cil.Ldarg, cil.Starg, cil.Ldarga),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				switch n.Code() {
				case cil.Ldarg:
					return one("LoadArg", push(n), n.RefName), nil
				case cil.Starg:
					return one("StoreArg", n.RefName, pop(n, 0)), nil
				default:
					return one("AddressOfArg", push(n), n.RefName), nil
				}
			},
		},
		{
			Name:  "locals",
			Match: codes(cil.Ldloc, cil.Stloc, cil.Ldloca),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				switch n.Code() {
				case cil.Ldloc:
					return one("Assign", push(n), n.RefName), nil
				case cil.Stloc:
					return one("Assign", n.RefName, pop(n, 0)), nil
				default:
					return one("AddressOfLocal", push(n), n.RefName), nil
				}
			},
		},
		{
			Name:  "binary",
			Match: mapped(binaryOps),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one(binaryOps[n.Code()], push(n), pop(n, 0), pop(n, 1)), nil
			},
		},
		{
			Name:  "unary",
			Match: mapped(unaryOps),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one(unaryOps[n.Code()], push(n), pop(n, 0)), nil
			},
		},
		{
			Name:  "copy",
			Match: codes(copies...),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("Assign", push(n), pop(n, 0)), nil
			},
		},
		{
			Name:  "cast",
			Match: codes(cil.Castclass, cil.Isinst),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("Cast", push(n), pop(n, 0), ir.OperandString(n.Operand())), nil
			},
		},
		{
			Name:  "static-fields",
			Match: codes(cil.Ldsfld, cil.Stsfld, cil.Ldsflda),
			Emit:  emitStaticField,
		},
		{
			Name:  "fields",
			Match: codes(cil.Ldfld, cil.Stfld, cil.Ldflda),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				switch n.Code() {
				case cil.Ldfld:
					return one("LoadField", push(n), pop(n, 0), n.RefName), nil
				case cil.Stfld:
					return one("StoreField", pop(n, 0), n.RefName, pop(n, 1)), nil
				default:
					return one("LoadFieldAddr", push(n), pop(n, 0), n.RefName), nil
				}
			},
		},
		{
			Name:  "load-elem",
			Match: codes(loadElem...),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("LoadElem", push(n), pop(n, 0), pop(n, 1)), nil
			},
		},
		{
			Name:  "store-elem",
			Match: codes(storeElem...),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("StoreElem", pop(n, 0), pop(n, 1), pop(n, 2)), nil
			},
		},
		{
			Name:  "arrays",
			Match: codes(cil.Ldelema, cil.Newarr, cil.Ldlen),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				switch n.Code() {
				case cil.Ldelema:
					return one("LoadElemAddr", push(n), pop(n, 0), pop(n, 1)), nil
				case cil.Newarr:
					return one("NewArray", push(n), pop(n, 0), ir.OperandString(n.Operand())), nil
				default:
					return one("ArrayLength", push(n), pop(n, 0)), nil
				}
			},
		},
		{
			Name:  "indirect",
			Match: codes(append(append([]cil.Code{}, loadIndirect...), storeIndirect...)...),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				if n.Pushes > 0 {
					return one("LoadIndirect", push(n), pop(n, 0)), nil
				}
				return one("StoreIndirect", pop(n, 0), pop(n, 1)), nil
			},
		},
		{
			Name:  "call",
			Match: codes(cil.Call, cil.Callvirt),
			Emit:  emitCall,
		},
		{
			Name:  "newobj",
			Match: codes(cil.Newobj),
			Emit:  emitNewObject,
		},
		{
			Name:  "calli",
			Match: codes(cil.Calli),
			Emit:  emitIndirectCall,
		},
		{
			Name:  "function",
			Match: codes(cil.Ldftn, cil.Ldvirtftn),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("LoadFunction", push(n), ir.OperandString(n.Operand())), nil
			},
		},
		{
			Name:  "tokens",
			Match: codes(cil.Ldtoken, cil.Sizeof),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				prefix := ""
				if n.Code() == cil.Sizeof {
					prefix = "sizeof "
				}
				return one("Const", push(n), prefix+ir.OperandString(n.Operand())), nil
			},
		},
		{
			Name:  "alloc",
			Match: codes(cil.Localloc),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("Alloc", push(n), pop(n, 0)), nil
			},
		},
		{
			Name:  "return",
			Match: func(n *ir.Node) bool { return n.Code() == cil.Ret && n.Pops == 1 },
			Emit: func(ctx *Context, n *ir.Node) ([]Fact, error) {
				return one("Return", ctx.Method.ID, pop(n, 0)), nil
			},
		},
		{
			Name:  "throw",
			Match: codes(cil.Throw),
			Emit: func(_ *Context, n *ir.Node) ([]Fact, error) {
				return one("Throw", pop(n, 0)), nil
			},
		},
	}
}

func one(relation string, args ...string) []Fact {
	return []Fact{NewFact(relation, args...)}
}

func push(n *ir.Node) string {
	return n.PushNames[0]
}

func pop(n *ir.Node, i int) string {
	return n.PopNames[i]
}

func emitStaticField(ctx *Context, n *ir.Node) ([]Fact, error) {
	f, ok := n.Operand().(*cil.FieldRef)
	if !ok {
		return nil, ctx.unsupported(n, "field operand expected")
	}
	var facts []Fact
	switch n.Code() {
	case cil.Ldsfld:
		facts = one("LoadStaticField", push(n), n.RefName)
	case cil.Stsfld:
		facts = one("StoreStaticField", n.RefName, pop(n, 0))
	default:
		facts = one("LoadFieldAddr", push(n), "", n.RefName)
	}
	init, err := ctx.staticInit(f)
	if err != nil {
		return nil, err
	}
	return append(facts, init...), nil
}

func emitCall(ctx *Context, n *ir.Node) ([]Fact, error) {
	callee, ok := n.Operand().(*cil.MethodRef)
	if !ok {
		return nil, ctx.unsupported(n, "method operand expected")
	}
	site := ctx.CallSite(n)
	facts := one("Call", site, callee.FullName())
	for i, arg := range n.PopNames {
		facts = append(facts, NewFact("ActualArg", site, strconv.Itoa(i), arg))
	}
	if n.Pushes > 0 {
		facts = append(facts, NewFact("CallResult", site, push(n)))
	}
	return facts, nil
}

// emitNewObject emits the allocation, and the call to the constructor with the new object as argument 0
func emitNewObject(ctx *Context, n *ir.Node) ([]Fact, error) {
	ctor, ok := n.Operand().(*cil.MethodRef)
	if !ok {
		return nil, ctx.unsupported(n, "method operand expected")
	}
	site := ctx.CallSite(n)
	obj := push(n)
	facts := []Fact{
		NewFact("NewObject", obj, site, ctor.DeclaringType),
		NewFact("Call", site, ctor.FullName()),
		NewFact("ActualArg", site, "0", obj),
	}
	for i, arg := range n.PopNames {
		facts = append(facts, NewFact("ActualArg", site, strconv.Itoa(i+1), arg))
	}
	return facts, nil
}

// emitIndirectCall emits a call through a function pointer. The pointer is on top of the arguments; it is the
// actual argument -1 of the call site.
func emitIndirectCall(ctx *Context, n *ir.Node) ([]Fact, error) {
	sig, ok := n.Operand().(*cil.CallSig)
	if !ok {
		return nil, ctx.unsupported(n, "signature operand expected")
	}
	site := ctx.CallSite(n)
	args := n.PopNames[:len(n.PopNames)-1]
	facts := []Fact{
		NewFact("Call", site, "calli "+sig.String()),
		NewFact("ActualArg", site, "-1", n.PopNames[len(n.PopNames)-1]),
	}
	for i, arg := range args {
		facts = append(facts, NewFact("ActualArg", site, strconv.Itoa(i), arg))
	}
	if n.Pushes > 0 {
		facts = append(facts, NewFact("CallResult", site, push(n)))
	}
	return facts, nil
}
