package core

import (
	"fmt"
	"strings"
	"sync"
)

// FieldAccess says how the import path may treat a column.
type FieldAccess int

const (
	// AccessUpdatable fields are diffed, validated and applied.
	AccessUpdatable FieldAccess = iota
	// AccessReadOnly fields are exported but never written by import.
	AccessReadOnly
)

// blacklist holds column names that must never be read from an import row.
// Image references are excluded so that a spreadsheet round-trip can never
// detach or replace product media.
var blacklist = map[string]bool{
	"image_id":          true,
	"image":             true,
	"images":            true,
	"gallery_image_ids": true,
	"gallery_images":    true,
	"featured_image":    true,
	"product_image":     true,
	"thumbnail":         true,
	"thumbnail_id":      true,
}

// IsBlacklisted reports whether name is permanently excluded from import.
func IsBlacklisted(name string) bool {
	return blacklist[strings.ToLower(strings.TrimSpace(name))]
}

// ValidateFunc checks a raw cell and returns the normalized value to apply.
// It returns ok=false when there is nothing to apply, either because the
// value was rejected (an error was recorded on fc) or because it is a no-op.
type ValidateFunc func(raw string, fc *FieldContext) (value any, ok bool)

// FieldSpec describes one column of the product file.
//
// Current renders the record's value in the same form the exporter writes,
// which is also the form the change detector compares against.
type FieldSpec struct {
	Name      string
	Access    FieldAccess
	// DependsOn names fields that must be validated before this one.
	DependsOn []string
	// AppliesTo limits the field to some record types; nil means every type.
	AppliesTo func(ProductType) bool
	Current   func(*Record) string
	Validate  ValidateFunc
	Apply     func(*Record, any)
}

// Applies reports whether the field is meaningful for records of type t.
func (s FieldSpec) Applies(t ProductType) bool {
	if s.AppliesTo == nil {
		return true
	}
	return s.AppliesTo(t)
}

// Updatable reports whether import may write the field.
func (s FieldSpec) Updatable() bool {
	return s.Access == AccessUpdatable && !IsBlacklisted(s.Name)
}

// RowCheck is a cross-field rule run after every changed field of a row has
// been validated individually.
type RowCheck func(c *RowCheckContext)

// Registry holds field specs in registration order.
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]FieldSpec
	order  []string
	checks []RowCheck
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]FieldSpec)}
}

// Register adds a field spec.
// Panics on duplicates, on blacklisted names, on incomplete updatable specs,
// and when a dependency has not been registered before the dependent field.
func (r *Registry) Register(spec FieldSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec.Name = strings.ToLower(strings.TrimSpace(spec.Name))

	if _, exists := r.specs[spec.Name]; exists {
		panic(fmt.Sprintf("field already registered: %s", spec.Name))
	}
	if IsBlacklisted(spec.Name) {
		panic(fmt.Sprintf("field is blacklisted and cannot be registered: %s", spec.Name))
	}
	if spec.Current == nil {
		panic(fmt.Sprintf("field %s has no Current renderer", spec.Name))
	}
	if spec.Access == AccessUpdatable && (spec.Validate == nil || spec.Apply == nil) {
		panic(fmt.Sprintf("updatable field %s needs Validate and Apply", spec.Name))
	}
	for _, dep := range spec.DependsOn {
		if _, ok := r.specs[dep]; !ok {
			panic(fmt.Sprintf("field %s depends on unregistered field %s", spec.Name, dep))
		}
	}

	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
}

// Get returns a field spec by name.
func (r *Registry) Get(name string) (FieldSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[strings.ToLower(name)]
	return spec, ok
}

// All returns every spec in registration order.
func (r *Registry) All() []FieldSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FieldSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Updatable returns the updatable specs in registration order, which is
// also a valid dependency order.
func (r *Registry) Updatable() []FieldSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []FieldSpec
	for _, name := range r.order {
		if spec := r.specs[name]; spec.Updatable() {
			out = append(out, spec)
		}
	}
	return out
}

// AddRowCheck registers a cross-field rule. Rules run in registration order.
func (r *Registry) AddRowCheck(check RowCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, check)
}

// RowChecks returns the registered cross-field rules.
func (r *Registry) RowChecks() []RowCheck {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RowCheck(nil), r.checks...)
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes all registered fields.
// Primarily useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = make(map[string]FieldSpec)
	r.order = nil
	r.checks = nil
}

var defaultRegistry = NewRegistry()

// Register adds a field spec to the default registry.
func Register(spec FieldSpec) {
	defaultRegistry.Register(spec)
}

// AddRowCheck registers a cross-field rule on the default registry.
func AddRowCheck(check RowCheck) {
	defaultRegistry.AddRowCheck(check)
}

// Fields returns the default registry.
func Fields() *Registry {
	return defaultRegistry
}
