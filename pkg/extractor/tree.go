package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ftlvars/pkg/ftl"
)

// Tree is an insertion-ordered mapping from names to either nested *Tree
// values or leaves. It is the hierarchical variable structure of an analysis.
type Tree struct {
	keys   []string
	values map[string]any
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Set stores v under key, keeping the original position of existing keys.
func (t *Tree) Set(key string, v any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Lookup returns the value stored under key.
func (t *Tree) Lookup(key string) (any, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Subtree returns the nested tree under key, or nil when key is missing or
// holds a leaf.
func (t *Tree) Subtree(key string) *Tree {
	sub, _ := t.values[key].(*Tree)
	return sub
}

// Names returns the keys in insertion order.
func (t *Tree) Names() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Tree) Len() int { return len(t.keys) }

// At follows a dotted path ("company.address") and returns the value there.
func (t *Tree) At(path string) (any, bool) {
	cur := t
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		v, ok := cur.Lookup(seg)
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		if cur, ok = v.(*Tree); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Leaves returns the dotted path of every leaf, depth first in insertion
// order.
func (t *Tree) Leaves() []string {
	var out []string
	var walk func(prefix string, n *Tree)
	walk = func(prefix string, n *Tree) {
		for _, k := range n.keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			if sub, ok := n.values[k].(*Tree); ok {
				walk(p, sub)
				continue
			}
			out = append(out, p)
		}
	}
	walk("", t)
	return out
}

// ToMap converts the tree into nested map[string]any values. Key order is
// lost.
func (t *Tree) ToMap() map[string]any {
	out := make(map[string]any, len(t.keys))
	for _, k := range t.keys {
		out[k] = plain(t.values[k])
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case *Tree:
		return x.ToMap()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

// Model converts the tree into an ordered data model the engine can render.
func (t *Tree) Model() ftl.Model {
	return toModel(t)
}

func toModel(v any) ftl.Model {
	switch x := v.(type) {
	case *Tree:
		h := ftl.NewSimpleHash()
		for _, k := range x.keys {
			h.Put(k, toModel(x.values[k]))
		}
		return h
	case []any:
		seq := make(ftl.SimpleSequence, len(x))
		for i, e := range x {
			seq[i] = toModel(e)
		}
		return seq
	default:
		return ftl.Wrap(v)
	}
}

// MarshalJSON encodes the tree as a JSON object in insertion order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// MarshalYAML encodes the tree as a YAML mapping in insertion order.
func (t *Tree) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range t.keys {
		var val yaml.Node
		if err := val.Encode(t.values[k]); err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val)
	}
	return node, nil
}

// BuildTree turns access paths into a tree whose leaves hold tier-1
// defaults.
//
// Segments are split on "."; an indexed segment such as "items[0]" is an
// ordinary key. When a name is used both as a leaf and as a container the
// container wins: descending through a leaf replaces it with a mapping and
// a later terminal access never collapses an existing mapping.
func BuildTree(paths []string) *Tree {
	root := NewTree()
	for _, p := range paths {
		insertPath(root, p)
	}
	return root
}

func insertPath(root *Tree, path string) {
	segments := strings.Split(path, ".")
	cur := root
	for _, seg := range segments[:len(segments)-1] {
		sub := cur.Subtree(seg)
		if sub == nil {
			sub = NewTree()
			cur.Set(seg, sub)
		}
		cur = sub
	}

	last := segments[len(segments)-1]
	if _, exists := cur.Lookup(last); exists {
		return
	}
	cur.Set(last, DefaultValue(last))
}
