package core

// validators.go holds the pure value checks shared by the field specs.
// None of these functions touch the record store or the taxonomy; the field
// specs in core/fields combine them with collaborator lookups.

import (
	"bytes"
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ListSeparator joins multi-valued cells.
const ListSeparator = "|"

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	skuPattern  = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
	slugPattern = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{Nd}_]+(?:-[\p{Ll}\p{Lo}\p{Nd}_]+)*$`)

	plainTextPolicy = bluemonday.StrictPolicy()
	richTextPolicy  = bluemonday.UGCPolicy()
)

// Allowed values of the enumerated fields.
var (
	ProductStatuses     = []string{"publish", "draft", "pending", "private"}
	StockStatuses       = []string{"instock", "outofstock", "onbackorder"}
	TaxStatuses         = []string{"taxable", "shipping", "none"}
	CatalogVisibilities = []string{"visible", "catalog", "search", "hidden"}
	BackorderOptions    = []string{"no", "notify", "yes"}
)

// NormalizeAmount strips everything except digits and the decimal point.
// An empty cell is valid and clears the amount. A leading minus sign or a
// result that is not a number is rejected.
func NormalizeAmount(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}

	firstDigit := strings.IndexFunc(raw, unicode.IsDigit)
	if minus := strings.IndexByte(raw, '-'); minus >= 0 && (firstDigit < 0 || minus < firstDigit) {
		return "", false
	}

	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	if stripped == "" {
		return "", false
	}

	d, err := decimal.NewFromString(stripped)
	if err != nil || d.IsNegative() {
		return "", false
	}
	return stripped, true
}

// AmountGreater reports whether amount a is strictly greater than b.
// Values that do not parse compare as not greater.
func AmountGreater(a, b string) bool {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.GreaterThan(db)
}

// ParseBool maps the accepted boolean spellings onto "yes" and "no".
func ParseBool(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "1", "true":
		return "yes", true
	case "no", "0", "false":
		return "no", true
	}
	return "", false
}

// YesNo renders a boolean the way it appears in the file.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// MatchEnum matches raw case-insensitively against allowed.
func MatchEnum(raw string, allowed []string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return a, true
		}
	}
	return "", false
}

// ParseDate accepts YYYY-MM-DD dates that exist on the calendar.
// An empty cell is valid and clears the date.
func ParseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	if !datePattern.MatchString(raw) {
		return "", false
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return "", false
	}
	return raw, true
}

// ParseInt parses a whole number, allowing surrounding spaces.
func ParseInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidSKU reports whether sku uses only the permitted characters.
func ValidSKU(sku string) bool {
	return skuPattern.MatchString(sku)
}

// NormalizeSlug lower-cases raw and checks it against the slug alphabet.
func NormalizeSlug(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !slugPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Slugify derives a slug from a display name: accents are folded, runs of
// anything that is not a letter or digit become a single hyphen.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// SplitList splits a pipe-delimited cell, trimming entries and dropping
// empty ones.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ListSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseIDList splits a pipe-delimited list of product IDs. Entries that are
// not positive integers are returned separately.
func ParseIDList(raw string) (ids []int64, invalid []string) {
	seen := make(map[int64]bool)
	for _, part := range SplitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			invalid = append(invalid, part)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, invalid
}

// JoinIDs renders an ID list as a pipe-delimited cell.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ListSeparator)
}

// JoinTermNames renders a term list as a pipe-delimited cell of names.
func JoinTermNames(terms []Term) string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return strings.Join(names, ListSeparator)
}

// SanitizeText removes markup and collapses whitespace, for single-line
// fields such as the product name.
func SanitizeText(raw string) string {
	clean := html.UnescapeString(plainTextPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(clean), " ")
}

// SanitizeRichText keeps the markup a product description may carry and
// removes scripts, event handlers and other unsafe content.
func SanitizeRichText(raw string) string {
	return strings.TrimSpace(richTextPolicy.Sanitize(raw))
}

// AttributeInput is one key of the attributes JSON cell.
type AttributeInput struct {
	Name   string
	Values []string
}

// ParseAttributes decodes the attributes cell, keeping key order.
//
// String values are split on the pipe separator; arrays contribute one value
// per element. A cell that is not JSON yields INVALID_ATTRIBUTE_JSON and any
// other shape than an object of strings or string arrays yields
// INVALID_ATTRIBUTE_FORMAT.
func ParseAttributes(raw string) ([]AttributeInput, ErrorCode) {
	data := []byte(strings.TrimSpace(raw))
	if !json.Valid(data) {
		return nil, CodeInvalidAttributeJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, CodeInvalidAttributeJSON
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, CodeInvalidAttributeFormat
	}

	var out []AttributeInput
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, CodeInvalidAttributeJSON
		}
		key, _ := keyTok.(string)
		key = strings.TrimSpace(key)

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, CodeInvalidAttributeJSON
		}
		values, ok := attributeValues(val)
		if !ok {
			return nil, CodeInvalidAttributeFormat
		}
		if key == "" {
			continue
		}

		lk := strings.ToLower(key)
		if i, dup := index[lk]; dup {
			out[i].Values = values
			continue
		}
		index[lk] = len(out)
		out = append(out, AttributeInput{Name: key, Values: values})
	}
	return out, ""
}

func attributeValues(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return SplitList(t), true
	case json.Number:
		return []string{t.String()}, true
	case bool:
		return []string{strconv.FormatBool(t)}, true
	case []any:
		var out []string
		for _, el := range t {
			switch e := el.(type) {
			case string:
				if e = strings.TrimSpace(e); e != "" {
					out = append(out, e)
				}
			case json.Number:
				out = append(out, e.String())
			case bool:
				out = append(out, strconv.FormatBool(e))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// RenderAttributes writes an attribute set as the JSON object used in the
// file: {"Color":"Red|Blue"}. An empty set renders as an empty cell.
func RenderAttributes(attrs []Attribute) string {
	if len(attrs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(marshalString(a.Name))
		buf.WriteByte(':')
		buf.Write(marshalString(strings.Join(a.Options, ListSeparator)))
	}
	buf.WriteByte('}')
	return buf.String()
}

func marshalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
