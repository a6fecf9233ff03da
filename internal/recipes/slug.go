package recipes

import (
	"strings"

	"github.com/google/uuid"
)

const (
	maxSlugBaseLength = 60
	slugSuffixLength  = 8
)

// slugify lowercases the title and collapses every non-alphanumeric run to a
// single hyphen.
func slugify(title string) string {
	var builder strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			builder.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			builder.WriteByte('-')
			lastHyphen = true
		}
	}
	base := strings.Trim(builder.String(), "-")
	if len(base) > maxSlugBaseLength {
		base = strings.Trim(base[:maxSlugBaseLength], "-")
	}
	if base == "" {
		base = "recipe"
	}
	return base
}

// newSlug derives a URL slug from the title plus a random suffix. The suffix
// space makes a collision negligible, so there is no retry on conflict; a
// racing duplicate surfaces as ErrConflict instead.
func newSlug(title string) (string, error) {
	random, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix := strings.ReplaceAll(random.String(), "-", "")[:slugSuffixLength]
	return slugify(title) + "-" + suffix, nil
}
