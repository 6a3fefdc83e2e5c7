package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type country struct {
	ID   string `json:"id"`
	Code string `json:"country_code"`
}

type address struct {
	ID        string `json:"id"`
	CountryID string `json:"country_id"`
}

type organization struct {
	ID         string   `json:"id"`
	AddressIDs []string `json:"address_ids"`
}

func TestResolve(t *testing.T) {
	countries := NewMap("country", func(c country) string { return c.ID }, country{ID: "c-de", Code: "DE"})
	addresses := NewMap("address", func(a address) string { return a.ID },
		address{ID: "a1", CountryID: "c-de"},
		address{ID: "a2", CountryID: "c-missing"},
	)
	orgs := NewMap("organization", func(o organization) string { return o.ID },
		organization{ID: "org-1", AddressIDs: []string{"a1", "a2", "a3"}},
	)

	graph := Graph{
		"organization": {
			IDField: "organization_id",
			Source:  orgs,
			Nested: Graph{
				"addresses": {
					IDField: "address_ids",
					Source:  addresses,
					Many:    true,
					Nested: Graph{
						"country": {IDField: "country_id", Source: countries},
					},
				},
			},
		},
		"items": {
			Nested: Graph{
				"country": {IDField: "country_id", Source: countries},
			},
		},
	}

	doc := map[string]any{
		"id":              "shop-1",
		"organization_id": "org-1",
		"items": []any{
			map[string]any{"country_id": "c-de"},
		},
	}

	out := Resolve(doc, graph)

	t.Run("input is not modified", func(t *testing.T) {
		_, ok := doc["organization"]
		assert.False(t, ok)
		item := doc["items"].([]any)[0].(map[string]any)
		_, ok = item["country"]
		assert.False(t, ok)
	})

	t.Run("nested references are resolved", func(t *testing.T) {
		code, ok := Path(out, "organization.addresses")
		require.True(t, ok)
		list := code.([]any)
		require.Len(t, list, 3)
		first := list[0].(map[string]any)
		cc, ok := Path(first, "country.country_code")
		require.True(t, ok)
		assert.Equal(t, "DE", cc)
	})

	t.Run("missing references become sentinels", func(t *testing.T) {
		list := out["organization"].(map[string]any)["addresses"].([]any)
		second := list[1].(map[string]any)
		assert.Equal(t, NotFound{Entity: "country", ID: "c-missing"}, second["country"])
		assert.Equal(t, NotFound{Entity: "address", ID: "a3"}, list[2])
	})

	t.Run("descends into existing arrays", func(t *testing.T) {
		item := out["items"].([]any)[0].(map[string]any)
		cc, ok := Path(item, "country.country_code")
		require.True(t, ok)
		assert.Equal(t, "DE", cc)
	})
}

type node struct {
	ID     string `json:"id"`
	NextID string `json:"next_id"`
}

func TestResolveSelfReferenceIsBoundedByGraph(t *testing.T) {
	nodes := NewMap("node", func(n node) string { return n.ID }, node{ID: "n1", NextID: "n1"})
	g := Graph{}
	g["next"] = Resolver{IDField: "next_id", Source: nodes, Nested: g}

	out := Resolve(map[string]any{"next_id": "n1"}, g)

	depth := 0
	cur := out
	for {
		next, ok := cur["next"].(map[string]any)
		if !ok {
			break
		}
		depth++
		cur = next
	}
	assert.Equal(t, MaxDepth, depth)
}
