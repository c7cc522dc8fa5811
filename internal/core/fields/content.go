package fields

import "github.com/JonMunkholm/prodsync/internal/core"

func registerContent(reg *core.Registry) {
	reg.Register(textField("description", core.SanitizeRichText,
		func(rec *core.Record) string { return rec.Description },
		func(rec *core.Record, v string) { rec.Description = v },
	))
	reg.Register(textField("short_description", core.SanitizeRichText,
		func(rec *core.Record) string { return rec.ShortDescription },
		func(rec *core.Record, v string) { rec.ShortDescription = v },
	))
}
