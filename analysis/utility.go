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
	"strings"
	"unicode"

	"github.com/awslabs/ar-cil-tools/analysis/config"
)

// FactFileName returns the name of the file holding the facts of a method: the type and method names, with
// every character that is unsafe in a file name replaced by an underscore, and the ".facts" extension.
// The method id is appended to keep overloads apart.
// e.g. Sample.Program.Main.m1a2b3c4d5e6f7a8b.facts
func FactFileName(typeName string, methodName string, methodID string) string {
	return safeFileName(typeName) + "." + safeFileName(methodName) + "." + methodID + config.DefaultOutputExt
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
}
