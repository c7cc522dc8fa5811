package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func nameSpec() FieldSpec {
	return FieldSpec{
		Name:     "name",
		Current:  func(r *Record) string { return r.Name },
		Validate: func(raw string, fc *FieldContext) (any, bool) { return raw, raw != "" },
		Apply:    func(r *Record, v any) { r.Name = v.(string) },
	}
}

func flagSpec() FieldSpec {
	return FieldSpec{
		Name:    "featured",
		Current: func(r *Record) string { return YesNo(r.Featured) },
		Validate: func(raw string, fc *FieldContext) (any, bool) {
			v, ok := ParseBool(raw)
			return v, ok
		},
		Apply: func(r *Record, v any) { r.Featured = v.(string) == "yes" },
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

// =============================================================================
// Registry
// =============================================================================

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FieldSpec{Name: " ID ", Access: AccessReadOnly, Current: func(r *Record) string { return "" }})
	reg.Register(nameSpec())

	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if _, ok := reg.Get("id"); !ok {
		t.Error("names should be normalized on registration")
	}
	if got := len(reg.Updatable()); got != 1 {
		t.Errorf("len(Updatable()) = %d, want 1", got)
	}

	all := reg.All()
	if all[0].Name != "id" || all[1].Name != "name" {
		t.Errorf("All() order = %s,%s, want id,name", all[0].Name, all[1].Name)
	}
}

func TestRegistry_RegisterPanics(t *testing.T) {
	expectPanic(t, "duplicate", func() {
		reg := NewRegistry()
		reg.Register(nameSpec())
		reg.Register(nameSpec())
	})
	expectPanic(t, "blacklisted", func() {
		spec := nameSpec()
		spec.Name = "gallery_image_ids"
		NewRegistry().Register(spec)
	})
	expectPanic(t, "no renderer", func() {
		spec := nameSpec()
		spec.Current = nil
		NewRegistry().Register(spec)
	})
	expectPanic(t, "updatable without apply", func() {
		spec := nameSpec()
		spec.Apply = nil
		NewRegistry().Register(spec)
	})
	expectPanic(t, "unregistered dependency", func() {
		spec := nameSpec()
		spec.DependsOn = []string{"sku"}
		NewRegistry().Register(spec)
	})
}

func TestIsBlacklisted(t *testing.T) {
	for _, name := range []string{"image_id", "Images", " gallery_image_ids ", "thumbnail"} {
		if !IsBlacklisted(name) {
			t.Errorf("IsBlacklisted(%q) = false, want true", name)
		}
	}
	if IsBlacklisted("name") {
		t.Error("IsBlacklisted(name) = true, want false")
	}
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nameSpec())
	reg.AddRowCheck(func(*RowCheckContext) {})
	reg.Clear()

	if reg.Len() != 0 || len(reg.RowChecks()) != 0 {
		t.Error("Clear should remove fields and row checks")
	}
}

// =============================================================================
// Change detection
// =============================================================================

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		incoming, current string
		want              bool
	}{
		{"", "", true},
		{"  ", "", true},
		{"Shirt", "Shirt", true},
		{" Shirt ", "Shirt", true},
		{"shirt", "Shirt", false},
		{"", "Shirt", false},
		{"a\nb", "a\r\nb", true},
		{"a\r\nb", "a\nb", true},
		{"a\nb", "a\rb", false},
	}
	for _, tt := range tests {
		if got := ValuesEqual(tt.incoming, tt.current); got != tt.want {
			t.Errorf("ValuesEqual(%q, %q) = %v, want %v", tt.incoming, tt.current, got, tt.want)
		}
	}
}

func TestDetectChanges(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nameSpec())
	reg.Register(flagSpec())
	rec := &Record{ID: 1, Type: TypeSimple, Name: "Shirt"}

	tests := []struct {
		name string
		row  Row
		want []string
	}{
		{name: "unchanged", row: NewRow(2, "id", "1", "name", "Shirt", "featured", "no"), want: nil},
		{name: "absent columns are ignored", row: NewRow(2, "id", "1"), want: nil},
		{name: "changed name", row: NewRow(2, "name", "Tee"), want: []string{"name"}},
		{name: "different spelling is a change", row: NewRow(2, "featured", "0"), want: []string{"featured"}},
		{name: "blacklisted column is never a change", row: NewRow(2, "image_id", "9"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, spec := range DetectChanges(reg.Updatable(), tt.row, rec) {
				got = append(got, spec.Name)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("DetectChanges = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DetectChanges[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDropNoOps(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nameSpec())
	reg.Register(flagSpec())
	rec := &Record{ID: 1, Type: TypeSimple, Name: "Shirt"}

	kept := dropNoOps(reg, rec, []Change{
		{Field: "featured", Value: "no"},
		{Field: "name", Value: "Tee"},
	})
	if len(kept) != 1 || kept[0].Field != "name" {
		t.Errorf("dropNoOps = %+v, want only name", kept)
	}
	if rec.Name != "Shirt" {
		t.Error("dropNoOps must not mutate the record")
	}
}

func TestDropNoOps_LineEndings(t *testing.T) {
	reg := NewRegistry()
	reg.Register(nameSpec())
	rec := &Record{ID: 1, Type: TypeSimple, Name: "Blue\r\nShirt"}

	if kept := dropNoOps(reg, rec, []Change{{Field: "name", Value: "Blue\nShirt"}}); len(kept) != 0 {
		t.Errorf("dropNoOps = %+v, want nothing for a line ending difference", kept)
	}
}

// =============================================================================
// Applier
// =============================================================================

type recordingStore struct {
	RecordStore
	saved  *Record
	fields []string
}

func (s *recordingStore) Save(ctx context.Context, rec *Record, fields []string) error {
	s.saved = rec
	s.fields = fields
	return nil
}

func TestApplier_RefusesProtectedFields(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FieldSpec{Name: "id", Access: AccessReadOnly, Current: func(r *Record) string { return "" }})
	reg.Register(nameSpec())

	store := &recordingStore{}
	applier := NewApplier(store, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &Record{ID: 1, Type: TypeSimple, Name: "Shirt", ImageID: 5}

	applied, err := applier.Apply(context.Background(), rec, []Change{
		{Field: "image_id", Value: int64(99)},
		{Field: "id", Value: "2"},
		{Field: "name", Value: "Tee"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applied) != 1 || applied[0] != "name" {
		t.Errorf("applied = %v, want [name]", applied)
	}
	if len(store.fields) != 1 || store.fields[0] != "name" {
		t.Errorf("saved fields = %v, want [name]", store.fields)
	}
	if store.saved.ImageID != 5 || store.saved.ID != 1 {
		t.Error("protected fields must not change")
	}
	if rec.Name != "Shirt" {
		t.Error("Apply must not mutate the caller's record")
	}
}
