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
	"strings"
)

// VoidType is the name of the return type of methods that do not return a value
const VoidType = "System.Void"

// StaticInitName is the name of type initializers
const StaticInitName = ".cctor"

// TypeRef references a type by its fully qualified name
type TypeRef struct {
	FullName string
}

func (t *TypeRef) String() string { return t.FullName }

// MethodRef references a method. It carries enough identity to be re-emitted as text.
type MethodRef struct {
	DeclaringType string
	Name          string
	Params        []string
	ReturnType    string
	// HasThis is true for instance methods
	HasThis bool
}

// FullName returns the fully qualified name of the method, including its signature.
// e.g. System.String System.Console::ReadLine()
func (m *MethodRef) FullName() string {
	return fmt.Sprintf("%s %s::%s(%s)", m.returnType(), m.DeclaringType, m.Name, strings.Join(m.Params, ","))
}

// String returns the ildasm style representation of the method reference
func (m *MethodRef) String() string {
	if m.HasThis {
		return "instance " + m.FullName()
	}
	return m.FullName()
}

func (m *MethodRef) returnType() string {
	if m.ReturnType == "" {
		return VoidType
	}
	return m.ReturnType
}

// ReturnsValue returns true when the method returns a value
func (m *MethodRef) ReturnsValue() bool {
	return m.returnType() != VoidType
}

// ArgCount returns the number of arguments of the method, including the implicit this argument
func (m *MethodRef) ArgCount() int {
	if m.HasThis {
		return len(m.Params) + 1
	}
	return len(m.Params)
}

// IsConstructor returns true for instance constructors
func (m *MethodRef) IsConstructor() bool {
	return m.Name == ".ctor"
}

// ArgRef returns the qualified identity of the i-th argument of the method (this is argument 0 of instance
// methods).
func (m *MethodRef) ArgRef(i int) string {
	return fmt.Sprintf("%s::%s(%s)#arg%d", m.DeclaringType, m.Name, strings.Join(m.Params, ","), i)
}

// FieldRef references a field
type FieldRef struct {
	DeclaringType string
	Name          string
	FieldType     string
	Static        bool
}

// QualifiedName returns the qualified identity of the field, e.g. Sample.Program::count
func (f *FieldRef) QualifiedName() string {
	return f.DeclaringType + "::" + f.Name
}

func (f *FieldRef) String() string {
	return fmt.Sprintf("%s %s", f.FieldType, f.QualifiedName())
}

// CallSig is the operand of calli: a standalone call-site signature
type CallSig struct {
	Params     []string
	ReturnType string
	HasThis    bool
}

func (s *CallSig) String() string {
	rt := s.ReturnType
	if rt == "" {
		rt = VoidType
	}
	prefix := ""
	if s.HasThis {
		prefix = "instance "
	}
	return fmt.Sprintf("%s%s(%s)", prefix, rt, strings.Join(s.Params, ","))
}

// MethodDef is a method defined in a module, with its body.
type MethodDef struct {
	Ref  *MethodRef
	Body *MethodBody
}

// FullName returns the fully qualified name of the method
func (m *MethodDef) FullName() string {
	return m.Ref.FullName()
}

// TypeDef is a type defined in a module.
type TypeDef struct {
	FullName string
	Methods  []*MethodDef
}

// StaticInit returns the type initializer of the type, if it has one.
func (t *TypeDef) StaticInit() (*MethodDef, bool) {
	for _, m := range t.Methods {
		if m.Ref.Name == StaticInitName && !m.Ref.HasThis {
			return m, true
		}
	}
	return nil, false
}

// Module is a unit of compiled code containing type definitions
type Module struct {
	Name  string
	Types []*TypeDef
}

// FindType returns the type definition with the given full name.
func (m *Module) FindType(fullName string) (*TypeDef, bool) {
	for _, t := range m.Types {
		if t.FullName == fullName {
			return t, true
		}
	}
	return nil, false
}
