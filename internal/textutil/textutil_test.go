package textutil_test

import (
	"testing"

	"uplink/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "passthrough", in: "demo_take2", want: "demo_take2"},
		{name: "separators become dashes", in: "a/b\\c:d", want: "a-b-c-d"},
		{name: "unsafe removed", in: "clip?<>|\"", want: "clip"},
		{name: "trimmed", in: "  clip  ", want: "clip"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.in); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "underscores", in: "demo_take_2", want: "Demo Take 2"},
		{name: "dots and dashes", in: "standup-2026.08.24", want: "Standup 2026 08 24"},
		{name: "collapses runs", in: "a__b", want: "A B"},
		{name: "empty falls back", in: "___", want: "Recording"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.DisplayTitle(tc.in); got != tc.want {
				t.Fatalf("DisplayTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
