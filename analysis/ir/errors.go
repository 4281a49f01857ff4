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

package ir

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-cil-tools/analysis/cil"
)

// UnsupportedError is returned when a method contains a construct the analysis cannot handle: an unknown
// flow-control class, a branch to an offset that is not an instruction, an operand of the wrong shape, or an
// instruction producing a value for which no fact can be generated. The method cannot be analyzed, but other
// methods can.
type UnsupportedError struct {
	Method string
	// Offset is the offset of the offending instruction, or -1
	Offset int
	Reason string
}

func (e *UnsupportedError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("unsupported construct in %s at %s: %s", e.Method, cil.OffsetLabel(e.Offset), e.Reason)
	}
	return fmt.Sprintf("unsupported construct in %s: %s", e.Method, e.Reason)
}

// Unsupported returns a new *UnsupportedError with a formatted reason
func Unsupported(method string, offset int, format string, args ...any) error {
	return &UnsupportedError{Method: method, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// InvariantError is returned when an internal invariant of the representation is violated: pop/push counts
// that do not match the assigned names, an inconsistent or non-zero terminal stack depth, a malformed join.
// Those errors denote a defect in the normalizer or the SSA constructor and must not be ignored.
type InvariantError struct {
	Method string
	Stage  string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s during %s: %s", e.Method, e.Stage, e.Reason)
}

// Invariant returns a new *InvariantError with a formatted reason
func Invariant(method string, stage string, format string, args ...any) error {
	return &InvariantError{Method: method, Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError is returned when a referenced type or member lives in a module that has not been supplied.
// It only reduces the precision of a single data point.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %s: %s", e.Ref, e.Reason)
}

// IsUnsupported returns true if err wraps an *UnsupportedError
func IsUnsupported(err error) bool {
	var u *UnsupportedError
	return errors.As(err, &u)
}

// IsInvariant returns true if err wraps an *InvariantError
func IsInvariant(err error) bool {
	var i *InvariantError
	return errors.As(err, &i)
}

// IsResolution returns true if err wraps a *ResolutionError
func IsResolution(err error) bool {
	var r *ResolutionError
	return errors.As(err, &r)
}
