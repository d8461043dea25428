// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/opera/pkg/types"
)

func item(name string, typ types.ItemType) types.ProjectItem {
	return types.ProjectItem{ID: name, Name: name, Type: typ}
}

func TestGenerate_AllPairs(t *testing.T) {
	g := NewGenerator(nil)
	items := []types.ProjectItem{
		item("alice smith", types.ItemEntity),
		item("acme corp", types.ItemOrganization),
		item("berlin", types.ItemLocation),
	}

	queries := g.Generate(items, Options{})
	require.Len(t, queries, 3) // N(N-1)/2

	assert.Equal(t, "alice smith AND acme corp", queries[0].Query)
	assert.Equal(t, "alice smith AND berlin", queries[1].Query)
	assert.Equal(t, "acme corp AND berlin", queries[2].Query)
	for _, q := range queries {
		assert.Len(t, q.Items, 2)
	}
}

func TestGenerate_PairCountProperty(t *testing.T) {
	g := NewGenerator(nil)
	for n := 2; n <= 6; n++ {
		var items []types.ProjectItem
		for i := 0; i < n; i++ {
			items = append(items, item(fmt.Sprintf("item number %d", i), types.ItemKeyword))
		}
		queries := g.Generate(items, Options{MaxQueries: 1000})
		assert.Len(t, queries, n*(n-1)/2, "n=%d", n)
	}
}

func TestGenerate_FewerThanTwoItems(t *testing.T) {
	g := NewGenerator(nil)
	assert.Empty(t, g.Generate(nil, Options{}))
	assert.Empty(t, g.Generate([]types.ProjectItem{item("solo", types.ItemEntity)}, Options{}))
}

func TestGenerate_CapsAtMaxQueries(t *testing.T) {
	g := NewGenerator(nil)
	var items []types.ProjectItem
	for i := 0; i < 10; i++ {
		items = append(items, item(fmt.Sprintf("distinct term %d", i), types.ItemKeyword))
	}
	// 10 items make 45 pairs; the default cap is 20.
	queries := g.Generate(items, Options{})
	assert.Len(t, queries, DefaultMaxQueries)
}

func TestGenerate_StripsQuotes(t *testing.T) {
	g := NewGenerator(nil)
	items := []types.ProjectItem{
		item(`"quoted name"`, types.ItemEntity),
		item("plain", types.ItemKeyword),
	}
	queries := g.Generate(items, Options{})
	require.Len(t, queries, 1)
	assert.Equal(t, "quoted name AND plain", queries[0].Query)
}

func TestGenerateSmart_Strategies(t *testing.T) {
	g := NewGenerator(nil)
	items := []types.ProjectItem{
		item("alice smith", types.ItemEntity),
		item("acme corp", types.ItemOrganization),
		item("fraud", types.ItemKeyword),
		item("berlin", types.ItemLocation),
	}

	queries := g.GenerateSmart(items, Options{MaxQueries: 100})
	require.NotEmpty(t, queries)

	byQuery := map[string]types.SearchQuery{}
	for _, q := range queries {
		byQuery[q.Query] = q
	}

	// Single-item queries carry priority 1; locations get no single query.
	assert.Equal(t, 1, byQuery["alice smith"].Priority)
	assert.Equal(t, 1, byQuery["acme corp"].Priority)
	assert.Equal(t, 1, byQuery["fraud"].Priority)
	assert.NotContains(t, byQuery, "berlin")

	assert.Equal(t, 2, byQuery[`"alice smith" fraud`].Priority)
	assert.Equal(t, 3, byQuery[`"alice smith" "berlin"`].Priority)
	assert.Equal(t, 2, byQuery[`"acme corp" "berlin"`].Priority)
	assert.Equal(t, 2, byQuery[`"alice smith" "acme corp"`].Priority)
	assert.Equal(t, 3, byQuery[`"alice smith" fraud "berlin"`].Priority)

	// Sorted by priority ascending.
	for i := 1; i < len(queries); i++ {
		assert.LessOrEqual(t, queries[i-1].Priority, queries[i].Priority)
	}
}

func TestGenerateSmart_NoTriplesWhenPairsOnly(t *testing.T) {
	g := NewGenerator(nil)
	items := []types.ProjectItem{
		item("alice smith", types.ItemEntity),
		item("fraud", types.ItemKeyword),
		item("berlin", types.ItemLocation),
	}
	queries := g.GenerateSmart(items, Options{MaxQueries: 100, MaxCombinations: 2})
	for _, q := range queries {
		assert.LessOrEqual(t, len(q.Items), 2, "query %q", q.Query)
	}
}

func TestDeduplicate(t *testing.T) {
	queries := []types.SearchQuery{
		{Query: "alice smith AND acme corp"},
		{Query: "Alice Smith AND Acme Corp"}, // same after normalization
		{Query: "alice smith AND berlin"},
	}
	kept := Deduplicate(queries, 0.9)
	require.Len(t, kept, 2)
	assert.Equal(t, "alice smith AND acme corp", kept[0].Query)
	assert.Equal(t, "alice smith AND berlin", kept[1].Query)
}
