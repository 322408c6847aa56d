package security

import "strings"

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape replaces the characters that open HTML tags or attributes with entities.
// Ampersands are left alone so escaping stays idempotent for already stored text.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}
