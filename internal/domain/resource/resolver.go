package resource

import "strings"

// MaxDepth stops resolution of pathological graphs. Real graphs are a few
// levels deep.
const MaxDepth = 16

// Source is the read side of a Map used by the resolver.
type Source interface {
	Entity() string
	Snapshot(id string) (map[string]any, bool)
}

// NotFound replaces a reference whose entity was never fetched.
type NotFound struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// Resolver describes how one output field of a document is produced.
//
// With IDField set, the id (or ids when Many is set) stored under IDField is
// looked up in Source and the entity snapshot is written to the output field,
// then Nested is applied to that snapshot. Without IDField the resolver
// descends into the object or array already stored under the output field.
type Resolver struct {
	IDField string
	Source  Source
	Many    bool
	Nested  Graph
}

// Graph maps output field names to resolvers. Its shape bounds recursion.
type Graph map[string]Resolver

// Resolve returns a deep copy of doc with the references declared in g
// replaced by entity snapshots. Missing entities become NotFound values.
func Resolve(doc map[string]any, g Graph) map[string]any {
	out := DeepCopy(doc)
	resolveInto(out, g, 0)
	return out
}

func resolveInto(doc map[string]any, g Graph, depth int) {
	if doc == nil || depth >= MaxDepth {
		return
	}
	for field, r := range g {
		if r.IDField == "" {
			descend(doc[field], r.Nested, depth)
			continue
		}
		raw, ok := doc[r.IDField]
		if !ok || r.Source == nil {
			continue
		}
		if r.Many {
			ids := stringList(raw)
			resolved := make([]any, 0, len(ids))
			for _, id := range ids {
				resolved = append(resolved, lookup(r, id, depth))
			}
			doc[field] = resolved
			continue
		}
		id, _ := raw.(string)
		if id == "" {
			continue
		}
		doc[field] = lookup(r, id, depth)
	}
}

func lookup(r Resolver, id string, depth int) any {
	snap, ok := r.Source.Snapshot(id)
	if !ok {
		return NotFound{Entity: r.Source.Entity(), ID: id}
	}
	resolveInto(snap, r.Nested, depth+1)
	return snap
}

func descend(v any, g Graph, depth int) {
	switch node := v.(type) {
	case map[string]any:
		resolveInto(node, g, depth+1)
	case []any:
		for _, el := range node {
			if m, ok := el.(map[string]any); ok {
				resolveInto(m, g, depth+1)
			}
		}
	}
}

func stringList(v any) []string {
	switch ids := v.(type) {
	case []string:
		return ids
	case []any:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if s, ok := id.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if ids == "" {
			return nil
		}
		return []string{ids}
	}
	return nil
}

// DeepCopy copies a JSON-like document. Values other than maps and slices
// are shared, which is safe for the immutable scalars a document holds.
func DeepCopy(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		cp := make([]any, len(val))
		for i, el := range val {
			cp[i] = copyValue(el)
		}
		return cp
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Path reads a dotted path such as "shop.organization.name" from a resolved
// document. It is used by templates that address nested fields by name.
func Path(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
