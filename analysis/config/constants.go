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

package config

const (
	// DefaultNumWorkers is the number of methods analyzed in parallel when the config does not set it
	DefaultNumWorkers = 1
	// DefaultOutputExt is the extension of the fact files written in the output directory
	DefaultOutputExt = ".facts"
)

// Names of the normalization passes that can be listed in skip-normalization-passes
const (
	PassFoldArgVar      = "fold-arg-var"
	PassWidenConstants  = "widen-constants"
	PassDecomposeBranch = "decompose-branches"
	PassDecomposeSwitch = "decompose-switch"
)
