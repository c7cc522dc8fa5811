package core

import "testing"

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want rune
	}{
		{name: "comma", line: "id,name,sku", want: ','},
		{name: "semicolon", line: "id;name;sku", want: ';'},
		{name: "tab", line: "id\tname\tsku", want: '\t'},
		{name: "pipe", line: "id|name|sku", want: '|'},
		{name: "empty line defaults to comma", line: "", want: ','},
		{name: "blank line defaults to comma", line: "   \r\n", want: ','},
		{name: "single column defaults to comma", line: "id", want: ','},
		{name: "tie goes to comma", line: "id,name;sku", want: ','},
		{name: "tie between semicolon and tab goes to semicolon", line: "a;b\tc", want: ';'},
		{name: "most columns wins", line: "id;name;sku,extra", want: ';'},
		{name: "quoted commas do not count", line: `"a,b,c";"d";"e"`, want: ';'},
		{name: "trailing carriage return", line: "id;name\r", want: ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.line); got != tt.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
