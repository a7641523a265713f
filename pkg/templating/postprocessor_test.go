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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexReplaceProcessor_TrailingWhitespace(t *testing.T) {
	p, err := NewRegexReplaceProcessor(`[ \t]+$`, "")
	require.NoError(t, err)

	out, err := p.Process("Dear Ann,  \nTotal: 3\t\n")
	require.NoError(t, err)
	assert.Equal(t, "Dear Ann,\nTotal: 3\n", out)
}

func TestRegexReplaceProcessor_InvalidPattern(t *testing.T) {
	_, err := NewRegexReplaceProcessor("[invalid(", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex pattern")
}

func TestRegexReplaceProcessor_EmptyInput(t *testing.T) {
	p, err := NewRegexReplaceProcessor("^", "> ")
	require.NoError(t, err)

	out, err := p.Process("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollapseBlankLinesProcessor(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		input string
		want  string
	}{
		{"single blank kept", 1, "a\n\nb", "a\n\nb"},
		{"run squeezed", 1, "a\n\n  \n\t\nb", "a\n\nb"},
		{"max zero removes blanks", 0, "a\n\n\nb\n", "a\nb"},
		{"max two", 2, "a\n\n\n\nb", "a\n\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CollapseBlankLinesProcessor{Max: tt.max}
			out, err := p.Process(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNewPostProcessor(t *testing.T) {
	tests := []struct {
		name    string
		config  PostProcessorConfig
		wantErr string
	}{
		{
			name:   "regex_replace",
			config: PostProcessorConfig{Type: PostProcessorTypeRegexReplace, Params: map[string]string{"pattern": "a", "replace": "b"}},
		},
		{
			name:    "regex_replace missing pattern",
			config:  PostProcessorConfig{Type: PostProcessorTypeRegexReplace, Params: map[string]string{"replace": "b"}},
			wantErr: "requires 'pattern' parameter",
		},
		{
			name:    "regex_replace missing replace",
			config:  PostProcessorConfig{Type: PostProcessorTypeRegexReplace, Params: map[string]string{"pattern": "a"}},
			wantErr: "requires 'replace' parameter",
		},
		{
			name:   "collapse_blank_lines default",
			config: PostProcessorConfig{Type: PostProcessorTypeCollapseBlankLines},
		},
		{
			name:    "collapse_blank_lines bad max",
			config:  PostProcessorConfig{Type: PostProcessorTypeCollapseBlankLines, Params: map[string]string{"max": "-1"}},
			wantErr: "non-negative integer",
		},
		{
			name:    "unknown type",
			config:  PostProcessorConfig{Type: "minify"},
			wantErr: "unknown post-processor type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPostProcessor(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestTemplateEngine_PostProcessorsRunInOrder(t *testing.T) {
	loader := NewSimpleLoader(map[string]string{
		"letter.ftl": "<#list lines as l>\n${l}   \n\n\n</#list>",
	})
	engine, err := NewWithOptions(EngineTypeFTL, Options{
		Loader: loader,
		PostProcessors: []PostProcessorConfig{
			{Type: PostProcessorTypeRegexReplace, Params: map[string]string{"pattern": `[ ]+$`, "replace": ""}},
			{Type: PostProcessorTypeCollapseBlankLines, Params: map[string]string{"max": "0"}},
		},
	})
	require.NoError(t, err)

	out, err := engine.Render(context.Background(), "letter.ftl", map[string]any{"lines": []string{"one", "two"}})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", out)
}

func TestTemplateEngine_InvalidPostProcessor(t *testing.T) {
	_, err := NewWithOptions(EngineTypeFTL, Options{
		Loader: NewSimpleLoader(nil),
		PostProcessors: []PostProcessorConfig{
			{Type: PostProcessorTypeRegexReplace, Params: map[string]string{"pattern": "[invalid(", "replace": "x"}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post-processor 0")
}
