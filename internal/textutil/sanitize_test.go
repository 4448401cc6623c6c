package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"   ":                  "",
		"Plain Song":           "Plain Song",
		"AC/DC: Back in Black": "AC-DC- Back in Black",
		`What? "Now" <live>|`:  "What Now live",
		`dir\name*`:            "dir-name-",
		"  padded  ":           "padded",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}
