// Package fields registers every product column with the core field registry.
// Import this package to ensure all fields are registered.
package fields

import "github.com/JonMunkholm/prodsync/internal/core"

func init() {
	RegisterAll(core.Fields())
}

// RegisterAll registers the product columns on reg.
//
// Registration order is validation order. Fields that read a sibling value
// accepted earlier in the same row (stock_quantity reads manage_stock,
// sale_price reads regular_price) are registered after it.
func RegisterAll(reg *core.Registry) {
	registerIdentity(reg)
	registerContent(reg)
	registerPricing(reg)
	registerTax(reg)
	registerInventory(reg)
	registerShipping(reg)
	registerTaxonomies(reg)
	registerMerchandising(reg)
	registerRelated(reg)
	registerRowChecks(reg)
}
