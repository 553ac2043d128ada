package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Image (0004).dcm", "Image (0004).dcm"},
		{"separators", "a/b\\c", "a-b-c"},
		{"reserved", `What? "x" <y> |z|`, "What x y z"},
		{"colon star", "10:30*", "10-30-"},
		{"trailing dots", "name...", "name"},
		{"control", "a\x00b\tc", "abc"},
		{"dot only", ".", ""},
		{"dotdot", "..", ""},
		{"blank", "   ", ""},
		{"nfc", "José", "José"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeSegmentNeverEmpty(t *testing.T) {
	for _, in := range []string{"", "?", "..", "<>|"} {
		if got := SanitizeSegment(in); got != UnknownSegment {
			t.Fatalf("SanitizeSegment(%q) = %q, want %q", in, got, UnknownSegment)
		}
	}
	if got := SanitizeSegment("Doe^Jane"); got != "Doe^Jane" {
		t.Fatalf("unexpected %q", got)
	}
}
