package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		switch {
		case r == '-' || r == ' ':
			result.WriteRune('_')
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase or a digit
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					result.WriteRune('_')
				} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToDashCase converts a key to dash-case (first_name -> first-name)
func ToDashCase(s string) string {
	return strings.ReplaceAll(ToSnakeCase(s), "_", "-")
}

// ToCamelCase converts a key to CamelCase (first_name -> FirstName)
func ToCamelCase(s string) string {
	parts := strings.Split(ToSnakeCase(s), "_")
	var result strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		result.WriteString(titleCaser.String(part))
	}
	return result.String()
}

// ToLowerCamelCase converts a key to lowerCamelCase (first_name -> firstName)
func ToLowerCamelCase(s string) string {
	camel := ToCamelCase(s)
	if camel == "" {
		return camel
	}
	runes := []rune(camel)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// EqualFoldIdentifier reports whether a Go identifier and a wire name refer to
// the same thing, ignoring case and underscores (ID == id, FirstName == first_name).
func EqualFoldIdentifier(ident, name string) bool {
	return strings.EqualFold(ident, strings.ReplaceAll(strings.ReplaceAll(name, "_", ""), "-", ""))
}
