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

// Package emit generates the facts consumed by the solver from methods in SSA form.
//
// The Emitter visits a module with ir.Walk. Method headers produce Method and Param facts, handler blocks
// produce a Catch fact for the exception object, join nodes produce Phi facts and every other node is passed
// to the first matching Generator. A value-producing node matched by no generator is an error; other
// unmatched nodes (nop, pop, branches, leave, endfinally...) produce no fact.
package emit

import (
	"strconv"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// Resolver looks up type definitions in the modules supplied to the analysis. Lookups of types defined in other
// modules return an *ir.ResolutionError.
type Resolver interface {
	ResolveType(fullName string) (*cil.TypeDef, error)
}

// Context is the position of the emitter, passed to generators
type Context struct {
	Method   *ir.Method
	Block    *ir.Block
	Resolver Resolver
	Logger   *config.LogGroup
}

// CallSite returns the name of the call site of the node
func (c *Context) CallSite(n *ir.Node) string {
	return ir.CallSiteName(c.Method.ID, n.Offset())
}

func (c *Context) unsupported(n *ir.Node, reason string) error {
	return ir.Unsupported(c.Method.Name(), n.Offset(), "%s: %s", n, reason)
}

// staticInit returns the initialization point of the type declaring the static field. Fields of types that
// cannot be resolved have no initialization point.
func (c *Context) staticInit(f *cil.FieldRef) ([]Fact, error) {
	if c.Resolver == nil {
		return nil, nil
	}
	t, err := c.Resolver.ResolveType(f.DeclaringType)
	if err != nil {
		if ir.IsResolution(err) {
			c.Logger.Debugf("no initialization point for %s: %v\n", f.QualifiedName(), err)
			return nil, nil
		}
		return nil, err
	}
	init, ok := t.StaticInit()
	if !ok {
		return nil, nil
	}
	return one("StaticInit", f.QualifiedName(), init.FullName()), nil
}

// Emitter accumulates the facts of the elements it visits
type Emitter struct {
	Generators []Generator
	Resolver   Resolver
	Logger     *config.LogGroup
	// MethodHeaders enables the Method and Param facts
	MethodHeaders bool

	ctx   Context
	facts []Fact
}

var _ ir.Visitor = (*Emitter)(nil)

// NewEmitter returns an emitter with the default generators and method headers enabled. The resolver may be
// nil.
func NewEmitter(logger *config.LogGroup, resolver Resolver) *Emitter {
	return &Emitter{
		Generators:    DefaultGenerators(),
		Resolver:      resolver,
		Logger:        logger,
		MethodHeaders: true,
	}
}

// Facts returns all the facts emitted so far
func (e *Emitter) Facts() []Fact {
	return e.facts
}

// EmitMethod returns the facts of one method. The facts of a method that cannot be emitted are discarded.
func (e *Emitter) EmitMethod(m *ir.Method) ([]Fact, error) {
	start := len(e.facts)
	if err := ir.WalkMethod(e, m); err != nil {
		e.facts = e.facts[:start]
		return nil, err
	}
	return e.facts[start:], nil
}

func (e *Emitter) VisitModule(*ir.Module) error { return nil }

func (e *Emitter) VisitType(*ir.Type) error { return nil }

func (e *Emitter) VisitMethod(m *ir.Method) error {
	e.ctx = Context{Method: m, Resolver: e.Resolver, Logger: e.Logger}
	if !e.MethodHeaders {
		return nil
	}
	e.facts = append(e.facts, NewFact("Method", m.ID, m.Name()))
	for i := 0; i < m.Ref().ArgCount(); i++ {
		e.facts = append(e.facts, NewFact("Param", m.ID, strconv.Itoa(i), m.Ref().ArgRef(i)))
	}
	return nil
}

func (e *Emitter) VisitBlock(_ *ir.Method, b *ir.Block) error {
	e.ctx.Block = b
	if b.HandlerValue != "" {
		caught := b.Handler.CatchType
		if caught == "" {
			caught = "System.Object"
		}
		e.facts = append(e.facts, NewFact("Catch", b.HandlerValue, caught))
	}
	return nil
}

func (e *Emitter) VisitNode(m *ir.Method, b *ir.Block, n *ir.Node) error {
	if n.IsPhi() {
		e.facts = append(e.facts, NewFact("Phi", append([]string{n.Name}, n.Phi.Parents...)...))
		return nil
	}
	if len(n.PopNames) != n.Pops || len(n.PushNames) != n.Pushes {
		return ir.Invariant(m.Name(), "emit", "%s in %s is not named", n, b.ID)
	}
	for _, g := range e.Generators {
		if !g.Match(n) {
			continue
		}
		facts, err := g.Emit(&e.ctx, n)
		if err != nil {
			return err
		}
		e.facts = append(e.facts, facts...)
		return nil
	}
	if n.Pushes > 0 {
		return ir.Unsupported(m.Name(), n.Offset(), "no fact generator for %s", n)
	}
	return nil
}
