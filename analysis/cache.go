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

package analysis

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/emit"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// ModuleResolver resolves type names against the type definitions of the modules supplied to the analysis.
// Lookups are safe for concurrent use: the index is built once and only read afterwards, and the set of
// unresolved references is protected by a mutex.
type ModuleResolver struct {
	// a map from type full names to type definitions, over all the modules
	typesByName map[string]*cil.TypeDef

	// the references that could not be resolved
	unresolved      map[string]bool
	unresolvedMutex sync.Mutex
}

var _ emit.Resolver = (*ModuleResolver)(nil)

// NewModuleResolver returns a resolver over the types of the modules. When two modules define the same type,
// the first definition wins.
func NewModuleResolver(modules ...*cil.Module) *ModuleResolver {
	r := &ModuleResolver{
		typesByName: map[string]*cil.TypeDef{},
		unresolved:  map[string]bool{},
	}
	for _, mod := range modules {
		for _, t := range mod.Types {
			if _, ok := r.typesByName[t.FullName]; !ok {
				r.typesByName[t.FullName] = t
			}
		}
	}
	return r
}

// Size returns the number of types the resolver knows
func (r *ModuleResolver) Size() int {
	return len(r.typesByName)
}

// ResolveType returns the definition of the type. A type that is not defined in any of the modules yields a
// *ir.ResolutionError.
func (r *ModuleResolver) ResolveType(fullName string) (*cil.TypeDef, error) {
	if t, ok := r.typesByName[fullName]; ok {
		return t, nil
	}
	r.unresolvedMutex.Lock()
	defer r.unresolvedMutex.Unlock()
	r.unresolved[fullName] = true
	return nil, &ir.ResolutionError{Ref: fullName, Reason: "type is not defined in the supplied modules"}
}

// Unresolved returns the sorted names of the types that could not be resolved so far
func (r *ModuleResolver) Unresolved() []string {
	r.unresolvedMutex.Lock()
	defer r.unresolvedMutex.Unlock()
	names := make([]string, 0, len(r.unresolved))
	for name := range r.unresolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrintUnresolved writes the unresolved type names, one per line
func (r *ModuleResolver) PrintUnresolved(w io.Writer) {
	for _, name := range r.Unresolved() {
		fmt.Fprintf(w, "UNRESOLVED: %s\n", name)
	}
}
