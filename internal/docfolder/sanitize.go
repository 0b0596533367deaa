package docfolder

import (
	"regexp"
	"strings"
)

var (
	unsafeCharRe = regexp.MustCompile("[<>:\"/\\\\|?*\\x00-\\x1f]")
	whitespaceRe = regexp.MustCompile(`\s+`)
	dashRunRe    = regexp.MustCompile(`-{2,}`)
)

// SanitizeFolderName turns an arbitrary title into a file-system-safe folder
// name. It is pure and idempotent: applying it to its own output changes
// nothing. Path separators, traversal sequences, and characters illegal on
// common file systems are collapsed into dashes; the result is never empty.
func SanitizeFolderName(title string) string {
	s := unsafeCharRe.ReplaceAllString(title, "-")
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-. ")
	if s == "" {
		return "Untitled"
	}
	return s
}
