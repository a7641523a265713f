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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlvars/pkg/ftl"
)

func TestSimpleLoader_Source(t *testing.T) {
	loader := NewSimpleLoader(map[string]string{
		"greeting.ftl":    "Hello ${name}",
		"mail/footer.ftl": "Bye",
	})

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "flat name", path: "greeting.ftl", want: "Hello ${name}"},
		{name: "nested name", path: "mail/footer.ftl", want: "Bye"},
		{name: "missing", path: "nope.ftl", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loader.Source(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ftl.ErrTemplateNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimpleLoader_CopiesInputAndSet(t *testing.T) {
	input := map[string]string{"a.ftl": "A"}
	loader := NewSimpleLoader(input)
	input["b.ftl"] = "B"

	names, err := loader.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ftl"}, names)

	loader.Set("b.ftl", "B2")
	names, err = loader.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ftl", "b.ftl"}, names)

	got, err := loader.Source("b.ftl")
	require.NoError(t, err)
	assert.Equal(t, "B2", got)
}

func TestSimpleLoader_Empty(t *testing.T) {
	loader := NewSimpleLoader(nil)
	names, err := loader.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func writeTemplate(t *testing.T, root, name, content string) {
	t.Helper()
	file := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
}

func TestDirLoader_SourceAndNames(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "invoice.ftl", "Invoice ${number}")
	writeTemplate(t, root, "parts/header.ftlh", "<h1>${title}</h1>")
	writeTemplate(t, root, "README.md", "not a template")

	loader := NewDirLoader(root, nil)
	assert.Equal(t, root, loader.Root())

	got, err := loader.Source("parts/header.ftlh")
	require.NoError(t, err)
	assert.Equal(t, "<h1>${title}</h1>", got)

	names, err := loader.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.ftl", "parts/header.ftlh"}, names)

	_, err = loader.Source("missing.ftl")
	assert.ErrorIs(t, err, ftl.ErrTemplateNotFound)
}

func TestDirLoader_StaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "templates")
	writeTemplate(t, parent, "secret.ftl", "secret")
	writeTemplate(t, root, "ok.ftl", "ok")

	loader := NewDirLoader(root, nil)

	_, err := loader.Source("../secret.ftl")
	assert.ErrorIs(t, err, ftl.ErrTemplateNotFound)

	_, err = loader.Source("")
	assert.ErrorIs(t, err, ftl.ErrTemplateNotFound)

	got, err := loader.Source("/ok.ftl")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDirLoader_NameForAndExtensions(t *testing.T) {
	root := t.TempDir()
	loader := NewDirLoader(root, []string{".tpl"})

	name, ok := loader.NameFor(filepath.Join(root, "a", "b.tpl"))
	require.True(t, ok)
	assert.Equal(t, "a/b.tpl", name)

	_, ok = loader.NameFor(filepath.Join(filepath.Dir(root), "elsewhere.tpl"))
	assert.False(t, ok)

	assert.True(t, loader.HasTemplateExtension("x.tpl"))
	assert.False(t, loader.HasTemplateExtension("x.ftl"))
}

func TestDirLoader_NamesOnMissingRoot(t *testing.T) {
	loader := NewDirLoader(filepath.Join(t.TempDir(), "absent"), nil)
	_, err := loader.Names()
	require.Error(t, err)
}
