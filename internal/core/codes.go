package core

// codes.go defines the closed taxonomy of row and field error codes.
//
// Every code maps to a message template and a fixed suggestion. Templates
// use %s placeholders only; RenderMessage stringifies its arguments and
// tolerates a mismatched argument count so that rendering can never fail.
//
// Codes are grouped by the propagation class documented on each block.
// Row-fatal codes are listed in rowFatalCodes.

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode is a stable identifier for a validation failure.
type ErrorCode string

// Identification and permission (row-fatal).
const (
	CodeEmptyRequiredField ErrorCode = "EMPTY_REQUIRED_FIELD"
	CodeInvalidProductID   ErrorCode = "INVALID_PRODUCT_ID"
	CodeProductNotFound    ErrorCode = "PRODUCT_NOT_FOUND"
	CodeProductTrashed     ErrorCode = "PRODUCT_TRASHED"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
)

// CodeDatabaseError is row-fatal when the commit fails and field-recoverable
// when a lookup during validation fails.
const CodeDatabaseError ErrorCode = "DATABASE_ERROR"

// Field-recoverable codes.
const (
	CodeProductTypeMismatch ErrorCode = "PRODUCT_TYPE_MISMATCH"

	CodeInvalidRegularPrice     ErrorCode = "INVALID_REGULAR_PRICE"
	CodeInvalidSalePrice        ErrorCode = "INVALID_SALE_PRICE"
	CodeSalePriceExceedsRegular ErrorCode = "SALE_PRICE_EXCEEDS_REGULAR"
	CodeVariableProductNoPrice  ErrorCode = "VARIABLE_PRODUCT_NO_PRICE"
	CodeEmptyPriceForSimple     ErrorCode = "EMPTY_PRICE_FOR_SIMPLE"

	CodeInvalidStockQuantity ErrorCode = "INVALID_STOCK_QUANTITY"
	CodeNegativeStock        ErrorCode = "NEGATIVE_STOCK"
	CodeInvalidStockStatus   ErrorCode = "INVALID_STOCK_STATUS"
	CodeStockWithoutManage   ErrorCode = "STOCK_WITHOUT_MANAGE"
	CodeInvalidBackorders    ErrorCode = "INVALID_BACKORDERS"
	CodeInvalidLowStock      ErrorCode = "INVALID_LOW_STOCK"

	CodeInvalidWeight ErrorCode = "INVALID_WEIGHT"
	CodeInvalidLength ErrorCode = "INVALID_LENGTH"
	CodeInvalidWidth  ErrorCode = "INVALID_WIDTH"
	CodeInvalidHeight ErrorCode = "INVALID_HEIGHT"

	CodeCategoryNotFound       ErrorCode = "CATEGORY_NOT_FOUND"
	CodeTagNotFound            ErrorCode = "TAG_NOT_FOUND"
	CodeInvalidCategoryFormat  ErrorCode = "INVALID_CATEGORY_FORMAT"
	CodeInvalidTagFormat       ErrorCode = "INVALID_TAG_FORMAT"
	CodeInvalidAttributeJSON   ErrorCode = "INVALID_ATTRIBUTE_JSON"
	CodeAttributeNotFound      ErrorCode = "ATTRIBUTE_NOT_FOUND"
	CodeInvalidAttributeTerm   ErrorCode = "INVALID_ATTRIBUTE_TERM"
	CodeInvalidAttributeFormat ErrorCode = "INVALID_ATTRIBUTE_FORMAT"

	CodeVariationMissingAttributes ErrorCode = "VARIATION_MISSING_ATTRIBUTES"
	CodeDuplicateSKU               ErrorCode = "DUPLICATE_SKU"
	CodeInvalidSKUFormat           ErrorCode = "INVALID_SKU_FORMAT"
	CodeInvalidSlug                ErrorCode = "INVALID_SLUG"
	CodeDuplicateSlug              ErrorCode = "DUPLICATE_SLUG"
	CodeInvalidStatus              ErrorCode = "INVALID_STATUS"
	CodeInvalidCatalogVisibility   ErrorCode = "INVALID_CATALOG_VISIBILITY"
	CodeSaleDateConflict           ErrorCode = "SALE_DATE_CONFLICT"
	CodeInvalidSaleDateFrom        ErrorCode = "INVALID_SALE_DATE_FROM"
	CodeInvalidSaleDateTo          ErrorCode = "INVALID_SALE_DATE_TO"
	CodeInvalidBoolean             ErrorCode = "INVALID_BOOLEAN"
	CodeInvalidTaxStatus           ErrorCode = "INVALID_TAX_STATUS"
	CodeInvalidTaxClass            ErrorCode = "INVALID_TAX_CLASS"
	CodeInvalidUpsellIDs           ErrorCode = "INVALID_UPSELL_IDS"
	CodeUpsellProductNotFound      ErrorCode = "UPSELL_PRODUCT_NOT_FOUND"
	CodeInvalidCrossSellIDs        ErrorCode = "INVALID_CROSS_SELL_IDS"
	CodeCrossSellProductNotFound   ErrorCode = "CROSS_SELL_PRODUCT_NOT_FOUND"
	CodeInvalidMenuOrder           ErrorCode = "INVALID_MENU_ORDER"
	CodeUnknownField               ErrorCode = "UNKNOWN_FIELD"
	CodeCSVParseError              ErrorCode = "CSV_PARSE_ERROR"
)

// Listed in the catalogue but never raised. Yes/no columns report
// INVALID_BOOLEAN and parent_id is read-only.
const (
	CodeParentNotFound          ErrorCode = "PARENT_NOT_FOUND"
	CodeParentNotVariable       ErrorCode = "PARENT_NOT_VARIABLE"
	CodeInvalidParentID         ErrorCode = "INVALID_PARENT_ID"
	CodeInvalidDateFormat       ErrorCode = "INVALID_DATE_FORMAT"
	CodeInvalidVirtual          ErrorCode = "INVALID_VIRTUAL"
	CodeInvalidDownloadable     ErrorCode = "INVALID_DOWNLOADABLE"
	CodeInvalidFeatured         ErrorCode = "INVALID_FEATURED"
	CodeInvalidSoldIndividually ErrorCode = "INVALID_SOLD_INDIVIDUALLY"
	CodeInvalidManageStock      ErrorCode = "INVALID_MANAGE_STOCK"
)

// CodeInfo is the user-facing text for an error code.
type CodeInfo struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
}

var codeCatalog = map[ErrorCode]CodeInfo{
	// =========================================================================
	// Identification and permission
	// =========================================================================
	CodeEmptyRequiredField: {Message: `Required field "%s" cannot be empty`, Suggestion: "Fill in the column; the product ID is required on every row"},
	CodeInvalidProductID:   {Message: `Product ID "%s" is not valid`, Suggestion: "Use the positive numeric ID from the exported file"},
	CodeProductNotFound:    {Message: "No product with ID %s was found", Suggestion: "Check the ID or export the catalog again to get current IDs"},
	CodeProductTrashed:     {Message: "Product %s is in the trash", Suggestion: "Restore the product from the trash before updating it"},
	CodePermissionDenied:   {Message: "You do not have permission to edit product %s", Suggestion: "Ask an administrator for edit rights on this product"},

	CodeProductTypeMismatch: {Message: `Product type "%s" does not match the stored type "%s"`, Suggestion: "Product type cannot be changed by import; restore the exported value"},

	// =========================================================================
	// Pricing
	// =========================================================================
	CodeInvalidRegularPrice:     {Message: `Regular price "%s" is not a valid amount`, Suggestion: "Enter a non-negative number such as 120000 or 19.99"},
	CodeInvalidSalePrice:        {Message: `Sale price "%s" is not a valid amount`, Suggestion: "Enter a non-negative number such as 99000 or 14.99"},
	CodeSalePriceExceedsRegular: {Message: "Sale price %s is greater than the regular price %s", Suggestion: "Lower the sale price or raise the regular price"},
	CodeVariableProductNoPrice:  {Message: "Variable products cannot have their own price", Suggestion: "Set prices on the individual variations instead"},
	CodeEmptyPriceForSimple:     {Message: "Simple product has no regular price", Suggestion: "Enter a regular price for the product"},

	// =========================================================================
	// Inventory
	// =========================================================================
	CodeInvalidStockQuantity: {Message: `Stock quantity "%s" is not a whole number`, Suggestion: "Enter a whole number such as 0 or 25"},
	CodeNegativeStock:        {Message: "Stock quantity %s cannot be negative", Suggestion: "Enter 0 or a positive whole number"},
	CodeInvalidStockStatus:   {Message: `Stock status "%s" is not valid`, Suggestion: "Use instock, outofstock or onbackorder"},
	CodeStockWithoutManage:   {Message: "Stock quantity cannot be set while stock management is disabled", Suggestion: "Set manage_stock to yes in the same row"},
	CodeInvalidBackorders:    {Message: `Backorders value "%s" is not valid`, Suggestion: "Use no, notify or yes"},
	CodeInvalidLowStock:      {Message: `Low stock threshold "%s" is not valid`, Suggestion: "Enter a whole number of 0 or more"},
	CodeInvalidManageStock:   {Message: `Manage stock value "%s" is not valid`, Suggestion: "Use yes or no"},

	// =========================================================================
	// Dimensions
	// =========================================================================
	CodeInvalidWeight: {Message: `Weight "%s" is not a valid number`, Suggestion: "Enter a non-negative number such as 1.5"},
	CodeInvalidLength: {Message: `Length "%s" is not a valid number`, Suggestion: "Enter a non-negative number such as 20"},
	CodeInvalidWidth:  {Message: `Width "%s" is not a valid number`, Suggestion: "Enter a non-negative number such as 15"},
	CodeInvalidHeight: {Message: `Height "%s" is not a valid number`, Suggestion: "Enter a non-negative number such as 10"},

	// =========================================================================
	// Taxonomy and attributes
	// =========================================================================
	CodeCategoryNotFound:       {Message: `Category "%s" was not found`, Suggestion: "Create the category first or correct its name"},
	CodeTagNotFound:            {Message: `Tag "%s" was not found`, Suggestion: "Create the tag first or correct its name"},
	CodeInvalidCategoryFormat:  {Message: `Categories value "%s" is not valid`, Suggestion: "Separate category names with |"},
	CodeInvalidTagFormat:       {Message: `Tags value "%s" is not valid`, Suggestion: "Separate tag names with |"},
	CodeInvalidAttributeJSON:   {Message: "Attributes value is not valid JSON", Suggestion: `Use a JSON object such as {"Color":"Red|Blue"}`},
	CodeAttributeNotFound:      {Message: `Attribute "%s" is not defined`, Suggestion: "Create the attribute first or correct its name"},
	CodeInvalidAttributeTerm:   {Message: `Value "%s" does not exist for attribute "%s"`, Suggestion: "Add the term to the attribute or correct its spelling"},
	CodeInvalidAttributeFormat: {Message: "Attributes must be a JSON object", Suggestion: `Use a JSON object such as {"Size":["S","M"]}`},

	// =========================================================================
	// Variations
	// =========================================================================
	CodeParentNotFound:             {Message: "Parent product %s was not found", Suggestion: "Check the parent ID"},
	CodeParentNotVariable:          {Message: "Parent product %s is not a variable product", Suggestion: "Variations can only belong to variable products"},
	CodeVariationMissingAttributes: {Message: "Variation has no attributes", Suggestion: "Assign the attributes that define this variation"},
	CodeInvalidParentID:            {Message: `Parent ID "%s" is not valid`, Suggestion: "Use the numeric ID of the parent product"},

	// =========================================================================
	// Identifiers
	// =========================================================================
	CodeDuplicateSKU:     {Message: `SKU "%s" is already used by product %s`, Suggestion: "Choose a SKU that no other product uses"},
	CodeInvalidSKUFormat: {Message: `SKU "%s" contains characters that are not allowed`, Suggestion: "Use English letters and digits, with - or _ as separators"},
	CodeInvalidSlug:      {Message: `Slug "%s" is not valid`, Suggestion: "Use lower-case letters and digits separated by single hyphens"},
	CodeDuplicateSlug:    {Message: `Slug "%s" is already used by product %s`, Suggestion: "Choose a slug that no other product uses"},

	// =========================================================================
	// Enumerations
	// =========================================================================
	CodeInvalidStatus:            {Message: `Status "%s" is not valid`, Suggestion: "Use publish, draft, pending or private"},
	CodeInvalidCatalogVisibility: {Message: `Catalog visibility "%s" is not valid`, Suggestion: "Use visible, catalog, search or hidden"},
	CodeInvalidTaxStatus:         {Message: `Tax status "%s" is not valid`, Suggestion: "Use taxable, shipping or none"},
	CodeInvalidTaxClass:          {Message: `Tax class "%s" is not defined`, Suggestion: "Use an existing tax class or leave the cell empty for the standard class"},

	// =========================================================================
	// Dates
	// =========================================================================
	CodeInvalidDateFormat:   {Message: `Date "%s" is not in YYYY-MM-DD format`, Suggestion: "Write dates as YYYY-MM-DD, for example 2024-03-21"},
	CodeSaleDateConflict:    {Message: "Sale end date %s is before the sale start date %s", Suggestion: "Make the end date the same as or later than the start date"},
	CodeInvalidSaleDateFrom: {Message: `Sale start date "%s" is not a valid date`, Suggestion: "Write dates as YYYY-MM-DD, for example 2024-03-21"},
	CodeInvalidSaleDateTo:   {Message: `Sale end date "%s" is not a valid date`, Suggestion: "Write dates as YYYY-MM-DD, for example 2024-04-01"},

	// =========================================================================
	// Booleans
	// =========================================================================
	CodeInvalidBoolean:          {Message: `Value "%s" is not valid for field "%s"`, Suggestion: "Use yes or no (1/0 and true/false are also accepted)"},
	CodeInvalidVirtual:          {Message: `Virtual value "%s" is not valid`, Suggestion: "Use yes or no"},
	CodeInvalidDownloadable:     {Message: `Downloadable value "%s" is not valid`, Suggestion: "Use yes or no"},
	CodeInvalidFeatured:         {Message: `Featured value "%s" is not valid`, Suggestion: "Use yes or no"},
	CodeInvalidSoldIndividually: {Message: `Sold individually value "%s" is not valid`, Suggestion: "Use yes or no"},

	// =========================================================================
	// Related products
	// =========================================================================
	CodeInvalidUpsellIDs:         {Message: `Upsell ID "%s" is not a valid product ID`, Suggestion: "Separate positive product IDs with |, for example 12|15"},
	CodeUpsellProductNotFound:    {Message: "Upsell product %s was not found", Suggestion: "Remove the ID or correct it"},
	CodeInvalidCrossSellIDs:      {Message: `Cross-sell ID "%s" is not a valid product ID`, Suggestion: "Separate positive product IDs with |, for example 12|15"},
	CodeCrossSellProductNotFound: {Message: "Cross-sell product %s was not found", Suggestion: "Remove the ID or correct it"},

	// =========================================================================
	// Miscellaneous
	// =========================================================================
	CodeInvalidMenuOrder: {Message: `Menu order "%s" is not a whole number`, Suggestion: "Enter a whole number such as 0 or 5"},
	CodeDatabaseError:    {Message: "Could not save to the database: %s", Suggestion: "Try again; contact support if the problem continues"},
	CodeUnknownField:     {Message: `Column "%s" is not recognized and was ignored`, Suggestion: "Use the column names from an exported file"},
	CodeCSVParseError:    {Message: "Row %s of the file could not be read", Suggestion: "Check the row for unbalanced quotes"},
}

// rowFatalCodes prevent every field of the row from being applied.
var rowFatalCodes = map[ErrorCode]bool{
	CodeEmptyRequiredField: true,
	CodeInvalidProductID:   true,
	CodeProductNotFound:    true,
	CodeProductTrashed:     true,
	CodePermissionDenied:   true,
}

// IsRowFatal reports whether code belongs to the row-fatal class.
func IsRowFatal(code ErrorCode) bool {
	return rowFatalCodes[code]
}

// LookupCode returns the catalogue entry for code.
// Unknown codes yield the raw code as message and an empty suggestion.
func LookupCode(code ErrorCode) (CodeInfo, bool) {
	info, ok := codeCatalog[code]
	if !ok {
		return CodeInfo{Code: code, Message: string(code)}, false
	}
	info.Code = code
	return info, true
}

// RenderMessage fills the code's template with args.
// Missing arguments render as empty strings and surplus ones are dropped.
func RenderMessage(code ErrorCode, args ...any) string {
	info, ok := LookupCode(code)
	if !ok {
		return info.Message
	}

	want := strings.Count(info.Message, "%s")
	vals := make([]any, want)
	for i := range vals {
		if i < len(args) {
			vals[i] = fmt.Sprint(args[i])
		} else {
			vals[i] = ""
		}
	}
	return fmt.Sprintf(info.Message, vals...)
}

// Suggestion returns the fixed remediation text for code, or "".
func Suggestion(code ErrorCode) string {
	info, _ := LookupCode(code)
	return info.Suggestion
}

// Codes returns the whole catalogue sorted by code.
func Codes() []CodeInfo {
	out := make([]CodeInfo, 0, len(codeCatalog))
	for code, info := range codeCatalog {
		info.Code = code
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
