// Package block holds the registry of content block variants that may be linked
// into page regions. The registry is built once at start-up and never mutated.
package block

import (
	"fmt"
	"reflect"

	"github.com/barebonescms/internal/db"
)

// Field kinds understood by the dashboard block form.
const (
	KindText     = "text"
	KindTextarea = "textarea"
	KindNumber   = "number"
	KindURL      = "url"
)

// Field describes one type-specific input of a block variant.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Entry registers one block variant under an opaque type tag.
type Entry struct {
	Label  string                 `json:"label"`
	Type   string                 `json:"type"`
	New    func() db.ContentBlock `json:"-"`
	Fields []Field                `json:"fields"`
}

// Registry is an ordered, read-only set of block entries.
type Registry struct {
	entries []Entry
	byType  map[string]Entry
	byModel map[reflect.Type]string
}

// NewRegistry builds a registry. Empty or duplicate type tags are programming
// errors and panic.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byType:  make(map[string]Entry, len(entries)),
		byModel: make(map[reflect.Type]string, len(entries)),
	}
	for _, entry := range entries {
		if entry.Type == "" || entry.New == nil {
			panic(fmt.Sprintf("block: entry %q needs a type and a constructor", entry.Label))
		}
		if _, exists := r.byType[entry.Type]; exists {
			panic(fmt.Sprintf("block: duplicate type %q", entry.Type))
		}
		r.entries = append(r.entries, entry)
		r.byType[entry.Type] = entry
		r.byModel[modelType(entry.New())] = entry.Type
	}
	return r
}

// Allowed returns the registered entries in registration order.
func (r *Registry) Allowed() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup resolves a type tag.
func (r *Registry) Lookup(blockType string) (Entry, bool) {
	entry, ok := r.byType[blockType]
	return entry, ok
}

// TypeOf returns the type tag a block instance was registered under.
func (r *Registry) TypeOf(b db.ContentBlock) (string, bool) {
	if b == nil {
		return "", false
	}
	blockType, ok := r.byModel[modelType(b)]
	return blockType, ok
}

// Models returns a fresh zero instance per registered variant.
func (r *Registry) Models() []any {
	models := make([]any, 0, len(r.entries))
	for _, entry := range r.entries {
		models = append(models, entry.New())
	}
	return models
}

func modelType(b db.ContentBlock) reflect.Type {
	t := reflect.TypeOf(b)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
