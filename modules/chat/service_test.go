package chat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short name kept", "alice", "alice"},
		{"exactly at cap", strings.Repeat("a", MaxNameLength), strings.Repeat("a", MaxNameLength)},
		{"over cap trimmed", strings.Repeat("a", MaxNameLength+10), strings.Repeat("a", MaxNameLength)},
		{"multi-byte over cap", strings.Repeat("é", MaxNameLength+5), strings.Repeat("é", MaxNameLength)},
		{"cjk over cap", strings.Repeat("名", MaxNameLength+1), strings.Repeat("名", MaxNameLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateName(tt.input)
			if got != tt.want {
				t.Fatalf("truncateName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncateName(%q) produced invalid UTF-8", tt.input)
			}
			if utf8.RuneCountInString(got) > MaxNameLength {
				t.Fatalf("truncated name has %d runes, cap is %d", utf8.RuneCountInString(got), MaxNameLength)
			}
		})
	}
}
