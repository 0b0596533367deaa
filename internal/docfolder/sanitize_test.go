package docfolder

import "testing"

func TestSanitizeFolderName(t *testing.T) {
	cases := map[string]string{
		"API Doc":              "API-Doc",
		"a/b\\c":               "a-b-c",
		"../../etc/passwd":     "etc-passwd",
		"What? A <Title>!":     "What-A-Title-!",
		"  spaced   out  ":     "spaced-out",
		"trailing dots...":     "trailing-dots",
		"CON:aux|nul*":         "CON-aux-nul",
		"---":                  "Untitled",
		"":                     "Untitled",
		"normal-name":          "normal-name",
		"tabs\tand\nnewlines":  "tabs-and-newlines",
		"unicode été": "unicode-été",
	}
	for in, want := range cases {
		if got := SanitizeFolderName(in); got != want {
			t.Errorf("SanitizeFolderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFolderName_Idempotent(t *testing.T) {
	inputs := []string{
		"API Doc",
		"../../etc/passwd",
		"What? A <Title>!",
		"  spaced   out  ",
		"trailing dots...",
		"---",
		"",
	}
	for _, in := range inputs {
		once := SanitizeFolderName(in)
		twice := SanitizeFolderName(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
