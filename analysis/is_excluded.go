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
	"github.com/awslabs/ar-cil-tools/analysis/cil"
	"github.com/awslabs/ar-cil-tools/analysis/config"
)

// IsExcluded returns a non-empty reason when the method of the type must not be analyzed: it has no body, its
// type or full name does not match the filters of the config, or it is in the excluded-methods list.
func IsExcluded(c *config.Config, typ *cil.TypeDef, def *cil.MethodDef) string {
	if def.Body == nil {
		return "no body"
	}
	if !c.MatchTypeFilter(typ.FullName) {
		return "type filtered out"
	}
	if !c.MatchMethodFilter(def.FullName()) {
		return "method filtered out"
	}
	if c.IsExcluded(typ.FullName, def.Ref.Name) {
		return "excluded by config"
	}
	return ""
}
