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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"ftlvars/pkg/ftl"
)

// Loader resolves template names to source and can enumerate the names it
// knows about.
type Loader interface {
	ftl.Loader

	// Names returns every template name in sorted order.
	Names() ([]string, error)
}

// SimpleLoader is an in-memory loader keyed by template name. Names are used
// as-is; relative include paths are resolved by the engine before lookup.
type SimpleLoader struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewSimpleLoader creates a SimpleLoader holding a copy of templates.
func NewSimpleLoader(templates map[string]string) *SimpleLoader {
	copied := make(map[string]string, len(templates))
	for name, src := range templates {
		copied[name] = src
	}
	return &SimpleLoader{templates: copied}
}

// Source returns the template text for name.
func (l *SimpleLoader) Source(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	content, exists := l.templates[name]
	if !exists {
		return "", fmt.Errorf("%w: %s", ftl.ErrTemplateNotFound, name)
	}
	return content, nil
}

// Set adds or replaces a template.
func (l *SimpleLoader) Set(name, content string) {
	l.mu.Lock()
	l.templates[name] = content
	l.mu.Unlock()
}

// Names returns the stored template names in sorted order.
func (l *SimpleLoader) Names() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// DefaultExtensions are the file suffixes DirLoader lists as templates.
var DefaultExtensions = []string{".ftl", ".ftlh", ".ftlx"}

// DirLoader reads templates from a directory tree. Template names are
// slash-separated paths relative to the root.
type DirLoader struct {
	root       string
	extensions []string
}

// NewDirLoader creates a DirLoader rooted at root. An empty extensions list
// falls back to DefaultExtensions.
func NewDirLoader(root string, extensions []string) *DirLoader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &DirLoader{root: root, extensions: extensions}
}

// Root returns the directory the loader reads from.
func (l *DirLoader) Root() string { return l.root }

// Source reads the template file for name. Names that would escape the root
// are reported as not found.
func (l *DirLoader) Source(name string) (string, error) {
	file, err := l.path(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ftl.ErrTemplateNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

// Names walks the root and returns every file with a template extension.
func (l *DirLoader) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.HasTemplateExtension(p) {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", l.root, err)
	}
	slices.Sort(names)
	return names, nil
}

// NameFor converts a file path below the root into a template name.
func (l *DirLoader) NameFor(file string) (string, bool) {
	rel, err := filepath.Rel(l.root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// HasTemplateExtension reports whether file carries one of the loader's
// template extensions.
func (l *DirLoader) HasTemplateExtension(file string) bool {
	ext := filepath.Ext(file)
	return slices.Contains(l.extensions, ext)
}

func (l *DirLoader) path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", fmt.Errorf("%w: %q", ftl.ErrTemplateNotFound, name)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
