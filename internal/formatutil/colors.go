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

// Package formatutil manipulates string colors and sanitizes the strings written to fact files.
package formatutil

import (
	"fmt"
	"strings"

	"golang.org/x/term"
)

var (
	Faint  = Color("\033[2m%s\033[0m")
	Red    = Color("\033[1;31m%s\033[0m")
	Green  = Color("\033[1;32m%s\033[0m")
	Yellow = Color("\033[1;33m%s\033[0m")
)

func Color(colorString string) func(...interface{}) string {
	result := func(args ...interface{}) string {
		if term.IsTerminal(1) {
			return fmt.Sprintf(colorString,
				fmt.Sprint(args...))
		} else {
			return fmt.Sprint(args...)
		}
	}
	return result
}

// Sanitize removes backslashes and double quotes from s, and replaces line breaks and tabs by spaces. The
// result can be quoted without escaping and kept on a single line.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

var sanitizer = strings.NewReplacer("\\", "", "\"", "", "\n", " ", "\r", " ", "\t", " ")

// Quote sanitizes s and surrounds it with double quotes
func Quote(s string) string {
	return "\"" + Sanitize(s) + "\""
}
