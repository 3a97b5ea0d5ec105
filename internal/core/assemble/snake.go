package assemble

import (
	"strings"
	"unicode"

	"github.com/dagu-org/faultline/internal/core"
)

// SnakeCase returns the discriminator key the backend expects for a kind.
// Runs of capitals are kept together as one word, so "DNSFault" becomes
// "dns_fault". The function is idempotent.
func SnakeCase(kind core.Kind) string {
	return strings.Join(splitWords(string(kind)), "_")
}

func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				// End of an acronym: "DNSFault" splits before the F.
				flush()
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
