package repositorycache

import (
	"reflect"
	"strings"
	"unicode"
)

// entityName derives a label for V when handlers do not name the entity:
// TaxCountry becomes tax_country, *Order becomes order.
func entityName[V any]() string {
	t := reflect.TypeOf((*V)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return toSnake(name)
}

// toSnake converts s to snake_case. Runs of capitals stay together
// ("HTTPClient" becomes "http_client") and punctuation collapses into a single
// underscore.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}
