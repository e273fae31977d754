package strings

import "strings"

var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"tooth":  "teeth",
	"foot":   "feet",
	"mouse":  "mice",
	"goose":  "geese",
}

var irregularSingulars = func() map[string]string {
	m := make(map[string]string, len(irregularPlurals))
	for singular, plural := range irregularPlurals {
		m[plural] = singular
	}
	return m
}()

// Pluralize returns the plural form of a word (simple implementation).
// Only the last underscore-separated segment is inflected (blog_post -> blog_posts).
func Pluralize(word string) string {
	if word == "" {
		return word
	}

	prefix, last := splitLast(word)

	if plural, ok := irregularPlurals[strings.ToLower(last)]; ok {
		return prefix + plural
	}
	if _, ok := irregularSingulars[strings.ToLower(last)]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(last, "y"):
		if len(last) > 1 && !isVowel(last[len(last)-2]) {
			return prefix + last[:len(last)-1] + "ies"
		}
		return prefix + last + "s"
	case strings.HasSuffix(last, "ss") || strings.HasSuffix(last, "x") ||
		strings.HasSuffix(last, "z") || strings.HasSuffix(last, "ch") ||
		strings.HasSuffix(last, "sh"):
		return prefix + last + "es"
	case strings.HasSuffix(last, "s"):
		return word
	case strings.HasSuffix(last, "fe"):
		return prefix + last[:len(last)-2] + "ves"
	case strings.HasSuffix(last, "f"):
		return prefix + last[:len(last)-1] + "ves"
	default:
		return prefix + last + "s"
	}
}

// Singularize returns the singular form of a word, reversing Pluralize.
func Singularize(word string) string {
	if word == "" {
		return word
	}

	prefix, last := splitLast(word)

	if singular, ok := irregularSingulars[strings.ToLower(last)]; ok {
		return prefix + singular
	}
	if _, ok := irregularPlurals[strings.ToLower(last)]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(last, "ies") && len(last) > 3:
		return prefix + last[:len(last)-3] + "y"
	case strings.HasSuffix(last, "ves") && len(last) > 3:
		return prefix + last[:len(last)-3] + "f"
	case strings.HasSuffix(last, "sses") || strings.HasSuffix(last, "xes") ||
		strings.HasSuffix(last, "zes") || strings.HasSuffix(last, "ches") ||
		strings.HasSuffix(last, "shes"):
		return prefix + last[:len(last)-2]
	case strings.HasSuffix(last, "ss"):
		return word
	case strings.HasSuffix(last, "s"):
		return prefix + last[:len(last)-1]
	default:
		return word
	}
}

func splitLast(word string) (string, string) {
	if i := strings.LastIndexAny(word, "_-"); i >= 0 && i < len(word)-1 {
		return word[:i+1], word[i+1:]
	}
	return "", word
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
