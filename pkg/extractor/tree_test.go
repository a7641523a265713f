package extractor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ftlvars/pkg/templating"
)

func TestBuildTree(t *testing.T) {
	tree := BuildTree([]string{
		"company", "company.name", "company.address",
		"items", "items[0]", "items[0].rate",
		"isPaid", "total", "dueDate",
	})

	want := map[string]any{
		"company": map[string]any{"name": "", "address": []any{}},
		"items":   []any{},
		"items[0]": map[string]any{
			"rate": 0.0,
		},
		"isPaid":  false,
		"total":   0,
		"dueDate": "2024-01-01",
	}
	if diff := cmp.Diff(want, tree.ToMap()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"company", "items", "items[0]", "isPaid", "total", "dueDate"}, tree.Names())
}

func TestBuildTree_ContainersWin(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{name: "leaf then container", paths: []string{"payment", "payment.method"}},
		{name: "container then leaf", paths: []string{"payment.method", "payment"}},
		{name: "deep promotion", paths: []string{"payment", "payment.method", "payment.method.code"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := BuildTree(tt.paths)
			require.NotNil(t, tree.Subtree("payment"))
			_, ok := tree.At("payment.method")
			assert.True(t, ok)
		})
	}
}

func TestTree_AtAndLeaves(t *testing.T) {
	tree := BuildTree([]string{"a.b.c", "a.d", "e"})

	v, ok := tree.At("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = tree.At("a.x")
	assert.False(t, ok)
	_, ok = tree.At("e.f")
	assert.False(t, ok)

	assert.Equal(t, []string{"a.b.c", "a.d", "e"}, tree.Leaves())
}

func TestTree_MarshalJSONKeepsOrder(t *testing.T) {
	tree := BuildTree([]string{"zeta", "alpha.count", "alpha.name"})

	out, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"","alpha":{"count":0,"name":""}}`, string(out))
}

func TestTree_MarshalYAMLKeepsOrder(t *testing.T) {
	tree := BuildTree([]string{"zeta", "alpha.isOpen", "alpha.tags"})

	out, err := yaml.Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, "zeta: \"\"\nalpha:\n    isOpen: false\n    tags: []\n", string(out))
}

func TestTree_ModelRenders(t *testing.T) {
	engine, err := templating.New(templating.EngineTypeFTL, map[string]string{
		"t.ftl": `${company.name}|<#list items as i>${i.name};</#list>|${total}`,
	})
	require.NoError(t, err)

	data := NewTree()
	data.Set("company", companyInfo())
	data.Set("items", itemList())
	data.Set("total", 9000000)

	out, err := engine.Render(context.Background(), "t.ftl", data.Model())
	require.NoError(t, err)
	assert.Equal(t, "BOXWOOD Technology|Website development;System consulting;|9000000", out)
}
