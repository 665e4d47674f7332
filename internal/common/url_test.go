package common

import (
	"testing"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "https kept", in: "https://cdn.example.com/a.jpg", want: "https://cdn.example.com/a.jpg"},
		{name: "http kept", in: "http://example.com/a.jpg", want: "http://example.com/a.jpg"},
		{name: "relative kept", in: "/uploads/2026/01/a.jpg", want: "/uploads/2026/01/a.jpg"},
		{name: "protocol relative kept", in: "//cdn.example.com/a.jpg", want: "//cdn.example.com/a.jpg"},
		{name: "javascript rejected", in: "javascript:alert(1)", want: ""},
		{name: "mixed case javascript rejected", in: "JaVaScRiPt:alert(1)", want: ""},
		{name: "tab obfuscation rejected", in: "java\tscript:alert(1)", want: ""},
		{name: "data rejected", in: "data:image/png;base64,AAAA", want: ""},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.in); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
