package models

import "testing"

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want MediaType
		ok   bool
	}{
		{in: "pdf", want: MediaTypePDF, ok: true},
		{in: ".PDF", want: MediaTypePDF, ok: true},
		{in: ".txt", want: MediaTypeText, ok: true},
		{in: "text", want: MediaTypeText, ok: true},
		{in: ".docx", want: MediaTypeDOCX, ok: true},
		{in: ".doc", want: MediaTypeDOCX, ok: true},
		{in: ".xlsx", want: MediaType(".xlsx"), ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseMediaType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseMediaType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok != got.Supported() {
			t.Fatalf("%q.Supported() = %v, want %v", got, got.Supported(), ok)
		}
	}
}
