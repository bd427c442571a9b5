package queue

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"tweetqueue/internal/services"
)

// NormalizeText returns the canonical (NFC, trimmed) form of a draft body
// and checks it against maxLength code points.
func NormalizeText(text string, maxLength int) (string, error) {
	normalized := strings.TrimSpace(norm.NFC.String(text))
	if normalized == "" {
		return "", services.Wrap(services.ErrValidation, "queue", "create", "text must not be empty", nil)
	}
	if maxLength > 0 {
		if count := utf8.RuneCountInString(normalized); count > maxLength {
			return "", services.Wrap(services.ErrValidation, "queue", "create",
				fmt.Sprintf("text is %d characters; the limit is %d", count, maxLength), nil)
		}
	}
	return normalized, nil
}
