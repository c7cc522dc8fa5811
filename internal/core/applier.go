package core

import (
	"context"
	"log/slog"
)

// Applier writes accepted changes to the record store, one commit per record.
type Applier struct {
	store  RecordStore
	fields *Registry
	logger *slog.Logger
}

// NewApplier creates an applier over store using the field specs in fields.
func NewApplier(store RecordStore, fields *Registry, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{store: store, fields: fields, logger: logger}
}

// Apply mutates a copy of rec with changes and saves the touched fields.
//
// Changes naming a blacklisted, read-only or unknown field are refused and
// logged; they never reach the store. The store's error is returned as is.
func (a *Applier) Apply(ctx context.Context, rec *Record, changes []Change) ([]string, error) {
	target := rec.Clone()

	var fields []string
	for _, ch := range changes {
		spec, ok := a.fields.Get(ch.Field)
		if !ok || !spec.Updatable() {
			a.logger.Warn("refusing to apply protected or unknown field",
				"product_id", rec.ID,
				"field", ch.Field,
			)
			continue
		}
		if !spec.Applies(target.Type) {
			continue
		}
		spec.Apply(target, ch.Value)
		fields = append(fields, spec.Name)
	}

	if len(fields) == 0 {
		return nil, nil
	}
	if err := a.store.Save(ctx, target, fields); err != nil {
		return nil, err
	}
	return fields, nil
}
