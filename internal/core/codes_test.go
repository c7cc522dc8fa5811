package core

import (
	"strings"
	"testing"
)

func TestRenderMessage(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		args []any
		want string
	}{
		{
			name: "two arguments",
			code: CodeSalePriceExceedsRegular,
			args: []any{"150", "100"},
			want: "Sale price 150 is greater than the regular price 100",
		},
		{
			name: "boolean names value and field",
			code: CodeInvalidBoolean,
			args: []any{"maybe", "featured"},
			want: `Value "maybe" is not valid for field "featured"`,
		},
		{
			name: "missing arguments render empty",
			code: CodeDuplicateSKU,
			args: []any{"SH-1"},
			want: `SKU "SH-1" is already used by product `,
		},
		{
			name: "surplus arguments are dropped",
			code: CodeStockWithoutManage,
			args: []any{"5"},
			want: "Stock quantity cannot be set while stock management is disabled",
		},
		{
			name: "non-string arguments",
			code: CodeUpsellProductNotFound,
			args: []any{int64(77)},
			want: "Upsell product 77 was not found",
		},
		{
			name: "unknown code renders raw code",
			code: ErrorCode("SOMETHING_NEW"),
			args: []any{"x"},
			want: "SOMETHING_NEW",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderMessage(tt.code, tt.args...); got != tt.want {
				t.Errorf("RenderMessage(%s) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestSuggestion_UnknownCode(t *testing.T) {
	if got := Suggestion(ErrorCode("NOPE")); got != "" {
		t.Errorf("Suggestion(NOPE) = %q, want empty", got)
	}
}

func TestCatalogue(t *testing.T) {
	codes := Codes()
	if len(codes) != len(codeCatalog) {
		t.Fatalf("Codes() returned %d entries, want %d", len(codes), len(codeCatalog))
	}

	for i, info := range codes {
		if i > 0 && codes[i-1].Code >= info.Code {
			t.Errorf("Codes() not sorted at %s", info.Code)
		}
		if info.Message == "" || info.Suggestion == "" {
			t.Errorf("%s: message and suggestion must be set", info.Code)
		}
		if strings.Contains(strings.ReplaceAll(info.Message, "%s", ""), "%") {
			t.Errorf("%s: template may only use %%s", info.Code)
		}
	}
}

func TestIsRowFatal(t *testing.T) {
	fatal := []ErrorCode{
		CodeEmptyRequiredField,
		CodeInvalidProductID,
		CodeProductNotFound,
		CodeProductTrashed,
		CodePermissionDenied,
	}
	for _, code := range fatal {
		if !IsRowFatal(code) {
			t.Errorf("IsRowFatal(%s) = false, want true", code)
		}
	}

	recoverable := []ErrorCode{
		CodeSalePriceExceedsRegular,
		CodeCategoryNotFound,
		CodeStockWithoutManage,
		CodeDatabaseError,
	}
	for _, code := range recoverable {
		if IsRowFatal(code) {
			t.Errorf("IsRowFatal(%s) = true, want false", code)
		}
	}
}
