package fields

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerIdentity(reg *core.Registry) {
	reg.Register(core.FieldSpec{
		Name:    "id",
		Access:  core.AccessReadOnly,
		Current: func(rec *core.Record) string { return strconv.FormatInt(rec.ID, 10) },
	})
	reg.Register(core.FieldSpec{
		Name:    "type",
		Access:  core.AccessReadOnly,
		Current: func(rec *core.Record) string { return string(rec.Type) },
	})
	reg.Register(core.FieldSpec{
		Name:   "parent_id",
		Access: core.AccessReadOnly,
		Current: func(rec *core.Record) string {
			if rec.ParentID == 0 {
				return ""
			}
			return strconv.FormatInt(rec.ParentID, 10)
		},
	})

	reg.Register(core.FieldSpec{
		Name:     "sku",
		Current:  func(rec *core.Record) string { return rec.SKU },
		Validate: validateSKU,
		Apply:    func(rec *core.Record, v any) { rec.SKU = v.(string) },
	})
	reg.Register(core.FieldSpec{
		Name:    "name",
		Current: func(rec *core.Record) string { return rec.Name },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			name := core.SanitizeText(raw)
			if name == "" {
				return nil, false
			}
			return name, true
		},
		Apply: func(rec *core.Record, v any) { rec.Name = v.(string) },
	})
	reg.Register(core.FieldSpec{
		Name:     "slug",
		Current:  func(rec *core.Record) string { return rec.Slug },
		Validate: validateSlug,
		Apply:    func(rec *core.Record, v any) { rec.Slug = v.(string) },
	})
	reg.Register(enumField("status", core.ProductStatuses, core.CodeInvalidStatus,
		func(rec *core.Record) string { return rec.Status },
		func(rec *core.Record, v string) { rec.Status = v },
	))
}

// validateSKU checks format and uniqueness. Empty clears the SKU.
func validateSKU(raw string, fc *core.FieldContext) (any, bool) {
	sku := strings.TrimSpace(raw)
	if sku == "" {
		return "", true
	}
	if !core.ValidSKU(sku) {
		fc.Reject(core.CodeInvalidSKUFormat, raw, raw)
		return nil, false
	}

	owner, err := lookupID(fc.Store().FindIDBySKU(fc.Context(), sku))
	if err != nil {
		fc.LookupFailed(raw, err)
		return nil, false
	}
	if owner != 0 && owner != fc.Record().ID {
		fc.Reject(core.CodeDuplicateSKU, raw, sku, owner)
		return nil, false
	}
	return sku, true
}

// validateSlug checks the slug alphabet and uniqueness. Empty is a no-op.
func validateSlug(raw string, fc *core.FieldContext) (any, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	slug, ok := core.NormalizeSlug(raw)
	if !ok {
		fc.Reject(core.CodeInvalidSlug, raw, raw)
		return nil, false
	}

	owner, err := lookupID(fc.Store().FindIDBySlug(fc.Context(), slug, fc.Record().ID))
	if err != nil {
		fc.LookupFailed(raw, err)
		return nil, false
	}
	if owner != 0 && owner != fc.Record().ID {
		fc.Reject(core.CodeDuplicateSlug, raw, slug, owner)
		return nil, false
	}
	return slug, true
}
