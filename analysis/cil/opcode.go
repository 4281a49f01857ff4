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

// Package cil provides the decoded representation of CIL (ECMA-335) method bodies: opcodes with their
// flow-control and stack behaviour, instructions with typed operands, member references and exception
// handler tables.
package cil

import "fmt"

// Code is a CIL opcode value. One-byte opcodes have their ECMA-335 value, two-byte opcodes are 0xFExx.
type Code uint16

// FlowControl classifies how an instruction transfers control
type FlowControl int

const (
	FlowNext FlowControl = iota
	FlowBranch
	FlowCondBranch
	FlowReturn
	FlowThrow
	FlowCall
	FlowBreak
	FlowMeta
)

func (f FlowControl) String() string {
	switch f {
	case FlowNext:
		return "next"
	case FlowBranch:
		return "branch"
	case FlowCondBranch:
		return "cond-branch"
	case FlowReturn:
		return "return"
	case FlowThrow:
		return "throw"
	case FlowCall:
		return "call"
	case FlowBreak:
		return "break"
	case FlowMeta:
		return "meta"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// OperandType is the shape of the inline operand of an opcode
type OperandType int

const (
	InlineNone OperandType = iota
	InlineBrTarget
	ShortInlineBrTarget
	InlineSwitch
	InlineI
	ShortInlineI
	InlineI8
	InlineR
	ShortInlineR
	InlineString
	InlineMethod
	InlineField
	InlineType
	InlineTok
	InlineSig
	InlineVar
	ShortInlineVar
	InlineArg
	ShortInlineArg
)

const (
	// VarPop marks opcodes whose pop count depends on the operand (calls)
	VarPop = -1
	// VarPush marks opcodes whose push count depends on the operand (calls)
	VarPush = -1
	// PopAll marks opcodes that empty the evaluation stack (leave)
	PopAll = -2
)

// OpCode is the static description of an opcode.
type OpCode struct {
	Code    Code
	Name    string
	Flow    FlowControl
	Pop     int
	Push    int
	Operand OperandType
}

// The opcodes of ECMA-335 partition III, and the synthesized NotBool.
const (
	Nop          Code = 0x00
	Break        Code = 0x01
	Ldarg0       Code = 0x02
	Ldarg1       Code = 0x03
	Ldarg2       Code = 0x04
	Ldarg3       Code = 0x05
	Ldloc0       Code = 0x06
	Ldloc1       Code = 0x07
	Ldloc2       Code = 0x08
	Ldloc3       Code = 0x09
	Stloc0       Code = 0x0A
	Stloc1       Code = 0x0B
	Stloc2       Code = 0x0C
	Stloc3       Code = 0x0D
	LdargS       Code = 0x0E
	LdargaS      Code = 0x0F
	StargS       Code = 0x10
	LdlocS       Code = 0x11
	LdlocaS      Code = 0x12
	StlocS       Code = 0x13
	Ldnull       Code = 0x14
	LdcI4M1      Code = 0x15
	LdcI40       Code = 0x16
	LdcI41       Code = 0x17
	LdcI42       Code = 0x18
	LdcI43       Code = 0x19
	LdcI44       Code = 0x1A
	LdcI45       Code = 0x1B
	LdcI46       Code = 0x1C
	LdcI47       Code = 0x1D
	LdcI48       Code = 0x1E
	LdcI4S       Code = 0x1F
	LdcI4        Code = 0x20
	LdcI8        Code = 0x21
	LdcR4        Code = 0x22
	LdcR8        Code = 0x23
	Dup          Code = 0x25
	Pop          Code = 0x26
	Jmp          Code = 0x27
	Call         Code = 0x28
	Calli        Code = 0x29
	Ret          Code = 0x2A
	BrS          Code = 0x2B
	BrfalseS     Code = 0x2C
	BrtrueS      Code = 0x2D
	BeqS         Code = 0x2E
	BgeS         Code = 0x2F
	BgtS         Code = 0x30
	BleS         Code = 0x31
	BltS         Code = 0x32
	BneUnS       Code = 0x33
	BgeUnS       Code = 0x34
	BgtUnS       Code = 0x35
	BleUnS       Code = 0x36
	BltUnS       Code = 0x37
	Br           Code = 0x38
	Brfalse      Code = 0x39
	Brtrue       Code = 0x3A
	Beq          Code = 0x3B
	Bge          Code = 0x3C
	Bgt          Code = 0x3D
	Ble          Code = 0x3E
	Blt          Code = 0x3F
	BneUn        Code = 0x40
	BgeUn        Code = 0x41
	BgtUn        Code = 0x42
	BleUn        Code = 0x43
	BltUn        Code = 0x44
	Switch       Code = 0x45
	LdindI1      Code = 0x46
	LdindU1      Code = 0x47
	LdindI2      Code = 0x48
	LdindU2      Code = 0x49
	LdindI4      Code = 0x4A
	LdindU4      Code = 0x4B
	LdindI8      Code = 0x4C
	LdindI       Code = 0x4D
	LdindR4      Code = 0x4E
	LdindR8      Code = 0x4F
	LdindRef     Code = 0x50
	StindRef     Code = 0x51
	StindI1      Code = 0x52
	StindI2      Code = 0x53
	StindI4      Code = 0x54
	StindI8      Code = 0x55
	StindR4      Code = 0x56
	StindR8      Code = 0x57
	Add          Code = 0x58
	Sub          Code = 0x59
	Mul          Code = 0x5A
	Div          Code = 0x5B
	DivUn        Code = 0x5C
	Rem          Code = 0x5D
	RemUn        Code = 0x5E
	And          Code = 0x5F
	Or           Code = 0x60
	Xor          Code = 0x61
	Shl          Code = 0x62
	Shr          Code = 0x63
	ShrUn        Code = 0x64
	Neg          Code = 0x65
	Not          Code = 0x66
	ConvI1       Code = 0x67
	ConvI2       Code = 0x68
	ConvI4       Code = 0x69
	ConvI8       Code = 0x6A
	ConvR4       Code = 0x6B
	ConvR8       Code = 0x6C
	ConvU4       Code = 0x6D
	ConvU8       Code = 0x6E
	Callvirt     Code = 0x6F
	Cpobj        Code = 0x70
	Ldobj        Code = 0x71
	Ldstr        Code = 0x72
	Newobj       Code = 0x73
	Castclass    Code = 0x74
	Isinst       Code = 0x75
	ConvRUn      Code = 0x76
	Unbox        Code = 0x79
	Throw        Code = 0x7A
	Ldfld        Code = 0x7B
	Ldflda       Code = 0x7C
	Stfld        Code = 0x7D
	Ldsfld       Code = 0x7E
	Ldsflda      Code = 0x7F
	Stsfld       Code = 0x80
	Stobj        Code = 0x81
	ConvOvfI1Un  Code = 0x82
	ConvOvfI2Un  Code = 0x83
	ConvOvfI4Un  Code = 0x84
	ConvOvfI8Un  Code = 0x85
	ConvOvfU1Un  Code = 0x86
	ConvOvfU2Un  Code = 0x87
	ConvOvfU4Un  Code = 0x88
	ConvOvfU8Un  Code = 0x89
	ConvOvfIUn   Code = 0x8A
	ConvOvfUUn   Code = 0x8B
	Box          Code = 0x8C
	Newarr       Code = 0x8D
	Ldlen        Code = 0x8E
	Ldelema      Code = 0x8F
	LdelemI1     Code = 0x90
	LdelemU1     Code = 0x91
	LdelemI2     Code = 0x92
	LdelemU2     Code = 0x93
	LdelemI4     Code = 0x94
	LdelemU4     Code = 0x95
	LdelemI8     Code = 0x96
	LdelemI      Code = 0x97
	LdelemR4     Code = 0x98
	LdelemR8     Code = 0x99
	LdelemRef    Code = 0x9A
	StelemI      Code = 0x9B
	StelemI1     Code = 0x9C
	StelemI2     Code = 0x9D
	StelemI4     Code = 0x9E
	StelemI8     Code = 0x9F
	StelemR4     Code = 0xA0
	StelemR8     Code = 0xA1
	StelemRef    Code = 0xA2
	Ldelem       Code = 0xA3
	Stelem       Code = 0xA4
	UnboxAny     Code = 0xA5
	ConvOvfI1    Code = 0xB3
	ConvOvfU1    Code = 0xB4
	ConvOvfI2    Code = 0xB5
	ConvOvfU2    Code = 0xB6
	ConvOvfI4    Code = 0xB7
	ConvOvfU4    Code = 0xB8
	ConvOvfI8    Code = 0xB9
	ConvOvfU8    Code = 0xBA
	Refanyval    Code = 0xC2
	Ckfinite     Code = 0xC3
	Mkrefany     Code = 0xC6
	Ldtoken      Code = 0xD0
	ConvU2       Code = 0xD1
	ConvU1       Code = 0xD2
	ConvI        Code = 0xD3
	ConvOvfI     Code = 0xD4
	ConvOvfU     Code = 0xD5
	AddOvf       Code = 0xD6
	AddOvfUn     Code = 0xD7
	MulOvf       Code = 0xD8
	MulOvfUn     Code = 0xD9
	SubOvf       Code = 0xDA
	SubOvfUn     Code = 0xDB
	Endfinally   Code = 0xDC
	Leave        Code = 0xDD
	LeaveS       Code = 0xDE
	StindI       Code = 0xDF
	ConvU        Code = 0xE0
	Arglist      Code = 0xFE00
	Ceq          Code = 0xFE01
	Cgt          Code = 0xFE02
	CgtUn        Code = 0xFE03
	Clt          Code = 0xFE04
	CltUn        Code = 0xFE05
	Ldftn        Code = 0xFE06
	Ldvirtftn    Code = 0xFE07
	Ldarg        Code = 0xFE09
	Ldarga       Code = 0xFE0A
	Starg        Code = 0xFE0B
	Ldloc        Code = 0xFE0C
	Ldloca       Code = 0xFE0D
	Stloc        Code = 0xFE0E
	Localloc     Code = 0xFE0F
	Endfilter    Code = 0xFE11
	Unaligned    Code = 0xFE12
	Volatile     Code = 0xFE13
	Tail         Code = 0xFE14
	Initobj      Code = 0xFE15
	Constrained  Code = 0xFE16
	Cpblk        Code = 0xFE17
	Initblk      Code = 0xFE18
	No           Code = 0xFE19
	Rethrow      Code = 0xFE1A
	Sizeof       Code = 0xFE1C
	Refanytype   Code = 0xFE1D
	Readonly     Code = 0xFE1E
	NotBool      Code = 0xFF01 // synthesized logical negation, never decoded
	firstTwoByte Code = 0xFE00
)

var opcodeTable = []OpCode{
	{Nop, "nop", FlowNext, 0, 0, InlineNone},
	{Break, "break", FlowBreak, 0, 0, InlineNone},
	{Ldarg0, "ldarg.0", FlowNext, 0, 1, InlineNone},
	{Ldarg1, "ldarg.1", FlowNext, 0, 1, InlineNone},
	{Ldarg2, "ldarg.2", FlowNext, 0, 1, InlineNone},
	{Ldarg3, "ldarg.3", FlowNext, 0, 1, InlineNone},
	{Ldloc0, "ldloc.0", FlowNext, 0, 1, InlineNone},
	{Ldloc1, "ldloc.1", FlowNext, 0, 1, InlineNone},
	{Ldloc2, "ldloc.2", FlowNext, 0, 1, InlineNone},
	{Ldloc3, "ldloc.3", FlowNext, 0, 1, InlineNone},
	{Stloc0, "stloc.0", FlowNext, 1, 0, InlineNone},
	{Stloc1, "stloc.1", FlowNext, 1, 0, InlineNone},
	{Stloc2, "stloc.2", FlowNext, 1, 0, InlineNone},
	{Stloc3, "stloc.3", FlowNext, 1, 0, InlineNone},
	{LdargS, "ldarg.s", FlowNext, 0, 1, ShortInlineArg},
	{LdargaS, "ldarga.s", FlowNext, 0, 1, ShortInlineArg},
	{StargS, "starg.s", FlowNext, 1, 0, ShortInlineArg},
	{LdlocS, "ldloc.s", FlowNext, 0, 1, ShortInlineVar},
	{LdlocaS, "ldloca.s", FlowNext, 0, 1, ShortInlineVar},
	{StlocS, "stloc.s", FlowNext, 1, 0, ShortInlineVar},
	{Ldnull, "ldnull", FlowNext, 0, 1, InlineNone},
	{LdcI4M1, "ldc.i4.m1", FlowNext, 0, 1, InlineNone},
	{LdcI40, "ldc.i4.0", FlowNext, 0, 1, InlineNone},
	{LdcI41, "ldc.i4.1", FlowNext, 0, 1, InlineNone},
	{LdcI42, "ldc.i4.2", FlowNext, 0, 1, InlineNone},
	{LdcI43, "ldc.i4.3", FlowNext, 0, 1, InlineNone},
	{LdcI44, "ldc.i4.4", FlowNext, 0, 1, InlineNone},
	{LdcI45, "ldc.i4.5", FlowNext, 0, 1, InlineNone},
	{LdcI46, "ldc.i4.6", FlowNext, 0, 1, InlineNone},
	{LdcI47, "ldc.i4.7", FlowNext, 0, 1, InlineNone},
	{LdcI48, "ldc.i4.8", FlowNext, 0, 1, InlineNone},
	{LdcI4S, "ldc.i4.s", FlowNext, 0, 1, ShortInlineI},
	{LdcI4, "ldc.i4", FlowNext, 0, 1, InlineI},
	{LdcI8, "ldc.i8", FlowNext, 0, 1, InlineI8},
	{LdcR4, "ldc.r4", FlowNext, 0, 1, ShortInlineR},
	{LdcR8, "ldc.r8", FlowNext, 0, 1, InlineR},
	{Dup, "dup", FlowNext, 1, 2, InlineNone},
	{Pop, "pop", FlowNext, 1, 0, InlineNone},
	{Jmp, "jmp", FlowCall, 0, 0, InlineMethod},
	{Call, "call", FlowCall, VarPop, VarPush, InlineMethod},
	{Calli, "calli", FlowCall, VarPop, VarPush, InlineSig},
	{Ret, "ret", FlowReturn, VarPop, 0, InlineNone},
	{BrS, "br.s", FlowBranch, 0, 0, ShortInlineBrTarget},
	{BrfalseS, "brfalse.s", FlowCondBranch, 1, 0, ShortInlineBrTarget},
	{BrtrueS, "brtrue.s", FlowCondBranch, 1, 0, ShortInlineBrTarget},
	{BeqS, "beq.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BgeS, "bge.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BgtS, "bgt.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BleS, "ble.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BltS, "blt.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BneUnS, "bne.un.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BgeUnS, "bge.un.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BgtUnS, "bgt.un.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BleUnS, "ble.un.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{BltUnS, "blt.un.s", FlowCondBranch, 2, 0, ShortInlineBrTarget},
	{Br, "br", FlowBranch, 0, 0, InlineBrTarget},
	{Brfalse, "brfalse", FlowCondBranch, 1, 0, InlineBrTarget},
	{Brtrue, "brtrue", FlowCondBranch, 1, 0, InlineBrTarget},
	{Beq, "beq", FlowCondBranch, 2, 0, InlineBrTarget},
	{Bge, "bge", FlowCondBranch, 2, 0, InlineBrTarget},
	{Bgt, "bgt", FlowCondBranch, 2, 0, InlineBrTarget},
	{Ble, "ble", FlowCondBranch, 2, 0, InlineBrTarget},
	{Blt, "blt", FlowCondBranch, 2, 0, InlineBrTarget},
	{BneUn, "bne.un", FlowCondBranch, 2, 0, InlineBrTarget},
	{BgeUn, "bge.un", FlowCondBranch, 2, 0, InlineBrTarget},
	{BgtUn, "bgt.un", FlowCondBranch, 2, 0, InlineBrTarget},
	{BleUn, "ble.un", FlowCondBranch, 2, 0, InlineBrTarget},
	{BltUn, "blt.un", FlowCondBranch, 2, 0, InlineBrTarget},
	{Switch, "switch", FlowCondBranch, 1, 0, InlineSwitch},
	{LdindI1, "ldind.i1", FlowNext, 1, 1, InlineNone},
	{LdindU1, "ldind.u1", FlowNext, 1, 1, InlineNone},
	{LdindI2, "ldind.i2", FlowNext, 1, 1, InlineNone},
	{LdindU2, "ldind.u2", FlowNext, 1, 1, InlineNone},
	{LdindI4, "ldind.i4", FlowNext, 1, 1, InlineNone},
	{LdindU4, "ldind.u4", FlowNext, 1, 1, InlineNone},
	{LdindI8, "ldind.i8", FlowNext, 1, 1, InlineNone},
	{LdindI, "ldind.i", FlowNext, 1, 1, InlineNone},
	{LdindR4, "ldind.r4", FlowNext, 1, 1, InlineNone},
	{LdindR8, "ldind.r8", FlowNext, 1, 1, InlineNone},
	{LdindRef, "ldind.ref", FlowNext, 1, 1, InlineNone},
	{StindRef, "stind.ref", FlowNext, 2, 0, InlineNone},
	{StindI1, "stind.i1", FlowNext, 2, 0, InlineNone},
	{StindI2, "stind.i2", FlowNext, 2, 0, InlineNone},
	{StindI4, "stind.i4", FlowNext, 2, 0, InlineNone},
	{StindI8, "stind.i8", FlowNext, 2, 0, InlineNone},
	{StindR4, "stind.r4", FlowNext, 2, 0, InlineNone},
	{StindR8, "stind.r8", FlowNext, 2, 0, InlineNone},
	{Add, "add", FlowNext, 2, 1, InlineNone},
	{Sub, "sub", FlowNext, 2, 1, InlineNone},
	{Mul, "mul", FlowNext, 2, 1, InlineNone},
	{Div, "div", FlowNext, 2, 1, InlineNone},
	{DivUn, "div.un", FlowNext, 2, 1, InlineNone},
	{Rem, "rem", FlowNext, 2, 1, InlineNone},
	{RemUn, "rem.un", FlowNext, 2, 1, InlineNone},
	{And, "and", FlowNext, 2, 1, InlineNone},
	{Or, "or", FlowNext, 2, 1, InlineNone},
	{Xor, "xor", FlowNext, 2, 1, InlineNone},
	{Shl, "shl", FlowNext, 2, 1, InlineNone},
	{Shr, "shr", FlowNext, 2, 1, InlineNone},
	{ShrUn, "shr.un", FlowNext, 2, 1, InlineNone},
	{Neg, "neg", FlowNext, 1, 1, InlineNone},
	{Not, "not", FlowNext, 1, 1, InlineNone},
	{ConvI1, "conv.i1", FlowNext, 1, 1, InlineNone},
	{ConvI2, "conv.i2", FlowNext, 1, 1, InlineNone},
	{ConvI4, "conv.i4", FlowNext, 1, 1, InlineNone},
	{ConvI8, "conv.i8", FlowNext, 1, 1, InlineNone},
	{ConvR4, "conv.r4", FlowNext, 1, 1, InlineNone},
	{ConvR8, "conv.r8", FlowNext, 1, 1, InlineNone},
	{ConvU4, "conv.u4", FlowNext, 1, 1, InlineNone},
	{ConvU8, "conv.u8", FlowNext, 1, 1, InlineNone},
	{Callvirt, "callvirt", FlowCall, VarPop, VarPush, InlineMethod},
	{Cpobj, "cpobj", FlowNext, 2, 0, InlineType},
	{Ldobj, "ldobj", FlowNext, 1, 1, InlineType},
	{Ldstr, "ldstr", FlowNext, 0, 1, InlineString},
	{Newobj, "newobj", FlowCall, VarPop, 1, InlineMethod},
	{Castclass, "castclass", FlowNext, 1, 1, InlineType},
	{Isinst, "isinst", FlowNext, 1, 1, InlineType},
	{ConvRUn, "conv.r.un", FlowNext, 1, 1, InlineNone},
	{Unbox, "unbox", FlowNext, 1, 1, InlineType},
	{Throw, "throw", FlowThrow, 1, 0, InlineNone},
	{Ldfld, "ldfld", FlowNext, 1, 1, InlineField},
	{Ldflda, "ldflda", FlowNext, 1, 1, InlineField},
	{Stfld, "stfld", FlowNext, 2, 0, InlineField},
	{Ldsfld, "ldsfld", FlowNext, 0, 1, InlineField},
	{Ldsflda, "ldsflda", FlowNext, 0, 1, InlineField},
	{Stsfld, "stsfld", FlowNext, 1, 0, InlineField},
	{Stobj, "stobj", FlowNext, 2, 0, InlineType},
	{ConvOvfI1Un, "conv.ovf.i1.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfI2Un, "conv.ovf.i2.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfI4Un, "conv.ovf.i4.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfI8Un, "conv.ovf.i8.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfU1Un, "conv.ovf.u1.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfU2Un, "conv.ovf.u2.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfU4Un, "conv.ovf.u4.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfU8Un, "conv.ovf.u8.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfIUn, "conv.ovf.i.un", FlowNext, 1, 1, InlineNone},
	{ConvOvfUUn, "conv.ovf.u.un", FlowNext, 1, 1, InlineNone},
	{Box, "box", FlowNext, 1, 1, InlineType},
	{Newarr, "newarr", FlowNext, 1, 1, InlineType},
	{Ldlen, "ldlen", FlowNext, 1, 1, InlineNone},
	{Ldelema, "ldelema", FlowNext, 2, 1, InlineType},
	{LdelemI1, "ldelem.i1", FlowNext, 2, 1, InlineNone},
	{LdelemU1, "ldelem.u1", FlowNext, 2, 1, InlineNone},
	{LdelemI2, "ldelem.i2", FlowNext, 2, 1, InlineNone},
	{LdelemU2, "ldelem.u2", FlowNext, 2, 1, InlineNone},
	{LdelemI4, "ldelem.i4", FlowNext, 2, 1, InlineNone},
	{LdelemU4, "ldelem.u4", FlowNext, 2, 1, InlineNone},
	{LdelemI8, "ldelem.i8", FlowNext, 2, 1, InlineNone},
	{LdelemI, "ldelem.i", FlowNext, 2, 1, InlineNone},
	{LdelemR4, "ldelem.r4", FlowNext, 2, 1, InlineNone},
	{LdelemR8, "ldelem.r8", FlowNext, 2, 1, InlineNone},
	{LdelemRef, "ldelem.ref", FlowNext, 2, 1, InlineNone},
	{StelemI, "stelem.i", FlowNext, 3, 0, InlineNone},
	{StelemI1, "stelem.i1", FlowNext, 3, 0, InlineNone},
	{StelemI2, "stelem.i2", FlowNext, 3, 0, InlineNone},
	{StelemI4, "stelem.i4", FlowNext, 3, 0, InlineNone},
	{StelemI8, "stelem.i8", FlowNext, 3, 0, InlineNone},
	{StelemR4, "stelem.r4", FlowNext, 3, 0, InlineNone},
	{StelemR8, "stelem.r8", FlowNext, 3, 0, InlineNone},
	{StelemRef, "stelem.ref", FlowNext, 3, 0, InlineNone},
	{Ldelem, "ldelem", FlowNext, 2, 1, InlineType},
	{Stelem, "stelem", FlowNext, 3, 0, InlineType},
	{UnboxAny, "unbox.any", FlowNext, 1, 1, InlineType},
	{ConvOvfI1, "conv.ovf.i1", FlowNext, 1, 1, InlineNone},
	{ConvOvfU1, "conv.ovf.u1", FlowNext, 1, 1, InlineNone},
	{ConvOvfI2, "conv.ovf.i2", FlowNext, 1, 1, InlineNone},
	{ConvOvfU2, "conv.ovf.u2", FlowNext, 1, 1, InlineNone},
	{ConvOvfI4, "conv.ovf.i4", FlowNext, 1, 1, InlineNone},
	{ConvOvfU4, "conv.ovf.u4", FlowNext, 1, 1, InlineNone},
	{ConvOvfI8, "conv.ovf.i8", FlowNext, 1, 1, InlineNone},
	{ConvOvfU8, "conv.ovf.u8", FlowNext, 1, 1, InlineNone},
	{Refanyval, "refanyval", FlowNext, 1, 1, InlineType},
	{Ckfinite, "ckfinite", FlowNext, 1, 1, InlineNone},
	{Mkrefany, "mkrefany", FlowNext, 1, 1, InlineType},
	{Ldtoken, "ldtoken", FlowNext, 0, 1, InlineTok},
	{ConvU2, "conv.u2", FlowNext, 1, 1, InlineNone},
	{ConvU1, "conv.u1", FlowNext, 1, 1, InlineNone},
	{ConvI, "conv.i", FlowNext, 1, 1, InlineNone},
	{ConvOvfI, "conv.ovf.i", FlowNext, 1, 1, InlineNone},
	{ConvOvfU, "conv.ovf.u", FlowNext, 1, 1, InlineNone},
	{AddOvf, "add.ovf", FlowNext, 2, 1, InlineNone},
	{AddOvfUn, "add.ovf.un", FlowNext, 2, 1, InlineNone},
	{MulOvf, "mul.ovf", FlowNext, 2, 1, InlineNone},
	{MulOvfUn, "mul.ovf.un", FlowNext, 2, 1, InlineNone},
	{SubOvf, "sub.ovf", FlowNext, 2, 1, InlineNone},
	{SubOvfUn, "sub.ovf.un", FlowNext, 2, 1, InlineNone},
	{Endfinally, "endfinally", FlowReturn, 0, 0, InlineNone},
	{Leave, "leave", FlowBranch, PopAll, 0, InlineBrTarget},
	{LeaveS, "leave.s", FlowBranch, PopAll, 0, ShortInlineBrTarget},
	{StindI, "stind.i", FlowNext, 2, 0, InlineNone},
	{ConvU, "conv.u", FlowNext, 1, 1, InlineNone},
	{Arglist, "arglist", FlowNext, 0, 1, InlineNone},
	{Ceq, "ceq", FlowNext, 2, 1, InlineNone},
	{Cgt, "cgt", FlowNext, 2, 1, InlineNone},
	{CgtUn, "cgt.un", FlowNext, 2, 1, InlineNone},
	{Clt, "clt", FlowNext, 2, 1, InlineNone},
	{CltUn, "clt.un", FlowNext, 2, 1, InlineNone},
	{Ldftn, "ldftn", FlowNext, 0, 1, InlineMethod},
	{Ldvirtftn, "ldvirtftn", FlowNext, 1, 1, InlineMethod},
	{Ldarg, "ldarg", FlowNext, 0, 1, InlineArg},
	{Ldarga, "ldarga", FlowNext, 0, 1, InlineArg},
	{Starg, "starg", FlowNext, 1, 0, InlineArg},
	{Ldloc, "ldloc", FlowNext, 0, 1, InlineVar},
	{Ldloca, "ldloca", FlowNext, 0, 1, InlineVar},
	{Stloc, "stloc", FlowNext, 1, 0, InlineVar},
	{Localloc, "localloc", FlowNext, 1, 1, InlineNone},
	{Endfilter, "endfilter", FlowReturn, 1, 0, InlineNone},
	{Unaligned, "unaligned.", FlowMeta, 0, 0, ShortInlineI},
	{Volatile, "volatile.", FlowMeta, 0, 0, InlineNone},
	{Tail, "tail.", FlowMeta, 0, 0, InlineNone},
	{Initobj, "initobj", FlowNext, 1, 0, InlineType},
	{Constrained, "constrained.", FlowMeta, 0, 0, InlineType},
	{Cpblk, "cpblk", FlowNext, 3, 0, InlineNone},
	{Initblk, "initblk", FlowNext, 3, 0, InlineNone},
	{No, "no.", FlowMeta, 0, 0, ShortInlineI},
	{Rethrow, "rethrow", FlowThrow, 0, 0, InlineNone},
	{Sizeof, "sizeof", FlowNext, 0, 1, InlineType},
	{Refanytype, "refanytype", FlowNext, 1, 1, InlineNone},
	{Readonly, "readonly.", FlowMeta, 0, 0, InlineNone},
	{NotBool, "not.bool", FlowNext, 1, 1, InlineNone},
}

var (
	byCode = make(map[Code]OpCode, len(opcodeTable))
	byName = make(map[string]Code, len(opcodeTable))
)

func init() {
	for _, op := range opcodeTable {
		byCode[op.Code] = op
		byName[op.Name] = op.Code
	}
}

// Info returns the static description of the opcode, and false if c is not a known opcode.
func (c Code) Info() (OpCode, bool) {
	op, ok := byCode[c]
	return op, ok
}

// String returns the mnemonic of the opcode
func (c Code) String() string {
	if op, ok := byCode[c]; ok {
		return op.Name
	}
	return fmt.Sprintf("opcode(0x%x)", uint16(c))
}

// Flow returns the flow control class of the opcode. Unknown opcodes return -1.
func (c Code) Flow() FlowControl {
	if op, ok := byCode[c]; ok {
		return op.Flow
	}
	return FlowControl(-1)
}

// IsTwoByte returns true for opcodes encoded with the 0xFE prefix
func (c Code) IsTwoByte() bool {
	return c >= firstTwoByte && c < NotBool
}

// IsSynthesized returns true for opcodes that are produced by the analysis and never appear in decoded input
func (c Code) IsSynthesized() bool {
	return c == NotBool
}

// Lookup returns the opcode whose mnemonic is name.
func Lookup(name string) (Code, bool) {
	c, ok := byName[name]
	return c, ok
}

// AllOpCodes returns the description of every known opcode, in table order.
func AllOpCodes() []OpCode {
	res := make([]OpCode, len(opcodeTable))
	copy(res, opcodeTable)
	return res
}
