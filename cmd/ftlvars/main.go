// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the ftlvars command line tool.
//
// ftlvars discovers the data model FreeMarker-style templates expect. Each
// command loads its settings from an optional YAML file (--config) and lets
// flags override them:
//
//   - Template directory: --template-dir flag, templates.dir, or the working directory
//   - Log level: --log-level flag, logging.level, or INFO
//
// Logs go to stderr so command output on stdout can be piped.
package main

import (
	"os"

	_ "github.com/KimMachineGun/automemlimit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
