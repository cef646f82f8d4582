package carousel

import "strings"

// Normalize cleans a URL recovered from a computed-style string. The remote
// markup double-encodes entities and leaks quoting artifacts into the URL,
// so the steps are:
//
//  1. cut at the first backslash (escape remnant from inline styles),
//  2. decode the &amp; entity back to &,
//  3. strip &quot; remnants (with and without the trailing semicolon),
//  4. trim trailing backslash/quote characters.
//
// Normalize is idempotent: normalizing an already-normalized URL returns the
// same string.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexByte(u, '\\'); i >= 0 {
		u = u[:i]
	}
	u = strings.ReplaceAll(u, "&amp;", "&")
	u = strings.ReplaceAll(u, "&quot;", "")
	u = strings.ReplaceAll(u, "&quot", "")
	u = strings.TrimRight(u, `"'`)
	return u
}
