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

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename, or [Parse] to load it from the contents
of a file that has already been read.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. For example, a valid config file is as follows:

	options:
	  log-level: 4
	  num-workers: 8
	  output-dir: facts
	  type-filter: "^Sample\\."
	  skip-normalization-passes:
	    - widen-constants

	excluded-methods:
	  - type: ".*"
	    method: "<.*>b__.*"

# Identifying code elements

The config uses [CodeIdentifier] to identify methods of types. An important feature of the code identifiers is that
the string specifications are seen as regexes if they can be compiled to regexes, otherwise they are strings.
The method-filter and type-filter options follow the same rule: when they do not compile, they are used as prefixes.

# Logging

[NewLogGroup] returns a leveled logger configured from the log-level option: 1 for errors only, up to 5 for
tracing every block of every method.
*/
package config
