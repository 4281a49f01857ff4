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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-cil-tools/internal/formatutil"
)

// Fact is one statement of the output stream: a relation applied to quoted arguments
type Fact struct {
	Relation string
	Args     []string
}

// NewFact returns the fact relation(args...)
func NewFact(relation string, args ...string) Fact {
	return Fact{Relation: relation, Args: args}
}

// String returns the fact in the solver syntax, e.g. Assign("a", "b").
// Arguments are sanitized, so the statement never contains an escaped character.
func (f Fact) String() string {
	var sb strings.Builder
	sb.WriteString(f.Relation)
	sb.WriteByte('(')
	for i, arg := range f.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(formatutil.Quote(arg))
	}
	sb.WriteString(").")
	return sb.String()
}

// WriteFacts writes the facts to w, one statement per line
func WriteFacts(w io.Writer, facts []Fact) error {
	bw := bufio.NewWriter(w)
	for _, f := range facts {
		if _, err := bw.WriteString(f.String()); err != nil {
			return fmt.Errorf("failed to write fact: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write fact: %w", err)
		}
	}
	return bw.Flush()
}

// Lines returns the string representation of the facts
func Lines(facts []Fact) []string {
	res := make([]string, 0, len(facts))
	for _, f := range facts {
		res = append(res, f.String())
	}
	return res
}
