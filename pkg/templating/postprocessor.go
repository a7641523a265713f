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

package templating

import (
	"fmt"
	"strconv"
	"strings"
)

// PostProcessor transforms rendered output. Processors configured on an
// engine run in order, each receiving the previous one's output.
type PostProcessor interface {
	Process(input string) (string, error)
}

// PostProcessorType identifies the type of post-processor.
type PostProcessorType string

const (
	// PostProcessorTypeRegexReplace applies a line-wise regex find/replace.
	PostProcessorTypeRegexReplace PostProcessorType = "regex_replace"

	// PostProcessorTypeCollapseBlankLines squeezes runs of blank lines left
	// behind by directive-only lines.
	PostProcessorTypeCollapseBlankLines PostProcessorType = "collapse_blank_lines"
)

// PostProcessorConfig is the YAML form of a post-processor.
type PostProcessorConfig struct {
	Type PostProcessorType `yaml:"type" json:"type"`

	// Params holds type-specific settings:
	//   regex_replace: pattern, replace (both required)
	//   collapse_blank_lines: max (optional, default 1)
	Params map[string]string `yaml:"params" json:"params"`
}

// NewPostProcessor creates a post-processor from its configuration.
func NewPostProcessor(config PostProcessorConfig) (PostProcessor, error) {
	switch config.Type {
	case PostProcessorTypeRegexReplace:
		pattern, ok := config.Params["pattern"]
		if !ok {
			return nil, fmt.Errorf("regex_replace processor requires 'pattern' parameter")
		}
		replace, ok := config.Params["replace"]
		if !ok {
			return nil, fmt.Errorf("regex_replace processor requires 'replace' parameter")
		}
		return NewRegexReplaceProcessor(pattern, replace)

	case PostProcessorTypeCollapseBlankLines:
		limit := 1
		if raw, ok := config.Params["max"]; ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("collapse_blank_lines 'max' must be a non-negative integer, got %q", raw)
			}
			limit = n
		}
		return &CollapseBlankLinesProcessor{Max: limit}, nil

	default:
		return nil, fmt.Errorf("unknown post-processor type: %s", config.Type)
	}
}

// CollapseBlankLinesProcessor keeps at most Max consecutive blank lines.
// Lines holding only spaces or tabs count as blank.
type CollapseBlankLinesProcessor struct {
	Max int
}

// Process implements PostProcessor.
func (p *CollapseBlankLinesProcessor) Process(input string) (string, error) {
	lines := strings.Split(input, "\n")
	out := lines[:0]
	run := 0
	for _, line := range lines {
		if strings.TrimLeft(line, " \t") == "" {
			run++
			if run > p.Max {
				continue
			}
		} else {
			run = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), nil
}
