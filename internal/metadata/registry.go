package metadata

import (
	"slices"
	"strings"
	"sync"

	"datagrid/internal/domain/filter"
)

// FieldType is the value kind of a row field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number" // float/decimal
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeList    FieldType = "list"
	TypeObject  FieldType = "object"
	TypeMoney   FieldType = "money"
)

// TableDef describes a registered table.
type TableDef struct {
	Name   string     `json:"name"`
	Label  string     `json:"label,omitempty"`
	Fields []FieldDef `json:"fields"`
	// DefaultSort is the initial ordering, e.g. "-createdAt".
	DefaultSort string `json:"defaultSort,omitempty"`
}

// FieldDef describes one inspected field.
type FieldDef struct {
	Name        string         `json:"name"`
	Label       string         `json:"label,omitempty"`
	Type        FieldType      `json:"type"`
	Variant     filter.Variant `json:"variant,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Scale       int            `json:"scale,omitempty"` // For numbers
	Options     []string       `json:"options,omitempty"`
	Column      string         `json:"-"` // db column
}

// Registry stores table definitions.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]TableDef
}

func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]TableDef),
	}
}

func (r *Registry) Register(def TableDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[def.Name] = def
}

func (r *Registry) Get(name string) (TableDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tables[name]
	return d, ok
}

// List returns the tables sorted by name.
func (r *Registry) List() []TableDef {
	r.mu.RLock()
	list := make([]TableDef, 0, len(r.tables))
	for _, def := range r.tables {
		list = append(list, def)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b TableDef) int { return strings.Compare(a.Name, b.Name) })
	return list
}
