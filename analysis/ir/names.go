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

import "fmt"

// StackName returns the name of a version of an abstract stack slot
func StackName(methodID string, slot int, version int) string {
	return fmt.Sprintf("%s_s%d_%d", methodID, slot, version)
}

// VarName returns the name of a version of a local variable slot
func VarName(methodID string, slot int, version int) string {
	return fmt.Sprintf("%s_v%d_%d", methodID, slot, version)
}

// CallSiteName returns the name of the call site at offset
func CallSiteName(methodID string, offset int) string {
	return fmt.Sprintf("%s_c%d", methodID, offset)
}

// HandlerName returns the name of the exception object available at the start of a handler block
func HandlerName(methodID string, block BlockID) string {
	return fmt.Sprintf("%s_h%d", methodID, int(block))
}
