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
	"strings"

	"github.com/awslabs/ar-cil-tools/analysis/ir"
)

// Result holds general statistics about the analysis graphs of the methods of a module
type Result struct {
	NumberOfMethods      uint
	NumberOfSkipped      uint
	NumberOfBlocks       uint
	NumberOfInstructions uint
	NumberOfJoins        uint
	NumberOfFacts        uint
}

// Statistics returns a Result with general statistics about the analyzed methods of the module results
func Statistics(results []*ModuleResult) Result {
	result := Result{}

	for _, r := range results {
		result.NumberOfSkipped += uint(len(r.Skipped))
		for _, m := range r.Methods {
			result.NumberOfMethods++
			result.NumberOfFacts += uint(len(m.Facts))
			for _, b := range m.Method.Blocks() {
				result.NumberOfBlocks++
				for _, n := range b.Nodes {
					if n.IsPhi() {
						result.NumberOfJoins++
					} else {
						result.NumberOfInstructions++
					}
				}
			}
		}
	}

	return result
}

// HandlerStats writes the number of methods with exception handlers per handler kind, and the methods that
// have more than one protected region
func HandlerStats(w io.Writer, results []*ModuleResult) {
	kinds := map[string]int{}
	for _, r := range results {
		for _, m := range r.Methods {
			handlers := m.Def.Body.Handlers
			seen := map[string]bool{}
			for _, h := range handlers {
				if !seen[h.Kind.String()] {
					seen[h.Kind.String()] = true
					kinds[h.Kind.String()]++
				}
			}
			if len(handlers) > 1 {
				fmt.Fprintf(w, "%s has %d handlers (%s)\n", m.Def.FullName(), len(handlers), handlerStarts(m.Method))
			}
		}
	}
	for _, k := range []string{"catch", "filter", "finally", "fault"} {
		fmt.Fprintf(w, "%d methods had %s handlers\n", kinds[k], k)
	}
}

func handlerStarts(m *ir.Method) string {
	var starts []string
	for _, b := range m.Blocks() {
		if b.IsHandlerStart() {
			starts = append(starts, fmt.Sprintf("%s %s", b.Handler.Kind, b.ID))
		}
	}
	return strings.Join(starts, ", ")
}
