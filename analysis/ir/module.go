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

// Package ir contains the analysis graph built from CIL method bodies: nodes wrapping instructions or
// join values, blocks stored in a per-method arena, and the type/module containment hierarchy. Every stage of
// the analysis mutates or visits this representation.
package ir

import "github.com/awslabs/ar-cil-tools/analysis/cil"

// Module is the analysis counterpart of a cil.Module. It only contains the methods that have been analyzed.
type Module struct {
	Def   *cil.Module
	Types []*Type
}

// Type is the analysis counterpart of a cil.TypeDef
type Type struct {
	Def     *cil.TypeDef
	Module  *Module
	Methods []*Method
}

// NewModule returns a module with one type per type definition, and no methods
func NewModule(def *cil.Module) *Module {
	mod := &Module{Def: def}
	for _, t := range def.Types {
		mod.Types = append(mod.Types, &Type{Def: t, Module: mod})
	}
	return mod
}

// Name returns the name of the module
func (mod *Module) Name() string {
	return mod.Def.Name
}

// Type returns the type with the given full name, or nil
func (mod *Module) Type(fullName string) *Type {
	for _, t := range mod.Types {
		if t.Def.FullName == fullName {
			return t
		}
	}
	return nil
}

// Name returns the full name of the type
func (t *Type) Name() string {
	return t.Def.FullName
}

// AddMethod adds an analyzed method to the type
func (t *Type) AddMethod(m *Method) {
	m.Type = t
	t.Methods = append(t.Methods, m)
}
