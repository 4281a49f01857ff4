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

package formatutil

import (
	"testing"
)

func TestSanitize(t *testing.T) {
	for input, want := range map[string]string{
		`plain`:               `plain`,
		`say "hi"`:            `say hi`,
		`C:\temp\x`:           `C:tempx`,
		"two\nlines\tand\rcr": "two lines and cr",
		`\"`:                  ``,
	} {
		if got := Sanitize(input); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", input, got, want)
		}
	}
	if got := Quote(`x"y`); got != `"xy"` {
		t.Errorf("Quote = %q, want %q", got, `"xy"`)
	}
}
