// Package resource holds id-keyed lookup tables of remote entities and the
// declarative resolver that expands id references inside documents.
package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// ErrMissing is matched by every MissingError.
var ErrMissing = errors.New("resource missing")

// MissingError is returned by Map.Get when no entity was fetched for an id.
type MissingError struct {
	Entity string
	ID     string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is makes errors.Is(err, ErrMissing) hold.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// Status converts the error into an item-level NOT_FOUND status.
func (e *MissingError) Status() shared.Status {
	return shared.StatusNotFound.Withf(e.Entity, e.ID)
}

// Map is an id-keyed table of one entity type, built once per aggregation
// pass. It is not safe for concurrent mutation; readers may share it once
// it is fully populated. A nil *Map behaves like an empty one.
type Map[T any] struct {
	entity string
	idOf   func(T) string
	items  map[string]T
	order  []string
}

// NewMap creates a map for the named entity type. idOf extracts the id used
// by Add; Set can still be used to key entries explicitly.
func NewMap[T any](entity string, idOf func(T) string, items ...T) *Map[T] {
	m := &Map[T]{
		entity: entity,
		idOf:   idOf,
		items:  make(map[string]T, len(items)),
	}
	m.Add(items...)
	return m
}

// Entity returns the entity label used in error messages.
func (m *Map[T]) Entity() string {
	if m == nil {
		return ""
	}
	return m.entity
}

// Set stores v under id. A second Set for the same id replaces the entry.
func (m *Map[T]) Set(id string, v T) {
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = v
}

// Add stores every item under the id reported by idOf. Items without an id
// are ignored.
func (m *Map[T]) Add(items ...T) {
	for _, item := range items {
		id := m.idOf(item)
		if id == "" {
			continue
		}
		m.Set(id, item)
	}
}

// Get returns the entity for id or a *MissingError.
func (m *Map[T]) Get(id string) (T, error) {
	if v, ok := m.Lookup(id); ok {
		return v, nil
	}
	var zero T
	return zero, &MissingError{Entity: m.Entity(), ID: id}
}

// GetOr returns the entity for id, or def when it is missing.
func (m *Map[T]) GetOr(id string, def T) T {
	if v, ok := m.Lookup(id); ok {
		return v
	}
	return def
}

// Lookup returns the entity for id and whether it was present.
func (m *Map[T]) Lookup(id string) (T, bool) {
	if m == nil {
		var zero T
		return zero, false
	}
	v, ok := m.items[id]
	return v, ok
}

// GetMany returns the entities for ids in input order, skipping missing ones.
func (m *Map[T]) GetMany(ids []string) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.Lookup(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether an entity is stored under id.
func (m *Map[T]) Has(id string) bool {
	_, ok := m.Lookup(id)
	return ok
}

// All returns every entity in first-insertion order.
func (m *Map[T]) All() []T {
	if m == nil {
		return nil
	}
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

// IDs returns the stored ids in first-insertion order.
func (m *Map[T]) IDs() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

// Len returns the number of stored entities.
func (m *Map[T]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Snapshot returns a detached document copy of the entity stored under id,
// suitable for embedding into render payloads.
func (m *Map[T]) Snapshot(id string) (map[string]any, bool) {
	v, ok := m.Lookup(id)
	if !ok {
		return nil, false
	}
	doc, err := ToDocument(v)
	if err != nil {
		return nil, false
	}
	return doc, true
}

// ToDocument converts a value into a generic JSON document. Numbers are kept
// as json.Number so decimal amounts survive unchanged.
func ToDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
