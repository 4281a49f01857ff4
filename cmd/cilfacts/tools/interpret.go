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

package tools

import "regexp"

// Captures errors happening before any analysis starts (listings could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load listings")

// Captures the kind of error that happen when you put a flag at the end instead of listing files
var flagAsListingFile = regexp.MustCompile(`open -(\w+)`)

// Captures syntax errors in a listing, reported as file:line: message
var listingSyntaxError = regexp.MustCompile(`\.(yaml|yml|zst|gz):\d+: `)

// Captures errors caused by a defect of the analysis
var invariantViolated = regexp.MustCompile("invariant violated in")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if flagAsListingFile.MatchString(errMsg) {
			return "all command line flags should be before the paths to the listing files to analyze"
		}
		if listingSyntaxError.MatchString(errMsg) {
			return "the listing is malformed at the line reported; see the documentation of the loader package for the format"
		}
		return "make sure you have provided the paths to existing listing files"
	}
	if invariantViolated.MatchString(errMsg) {
		return "this is a defect of the analysis; set continue-on-invariant-error in the config to analyze the other methods"
	}
	return ""
}
