package verses

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

const excerptLength = 120

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Excerpt derives a bounded teaser from raw poem text: whitespace runs
// (including newlines) collapse to single spaces, the first 120 characters
// are kept, and a literal ellipsis is appended. Text shorter than the limit
// still gets the ellipsis.
func Excerpt(content string) string {
	collapsed := whitespaceRuns.ReplaceAllString(content, " ")
	runes := []rune(collapsed)
	if len(runes) > excerptLength {
		runes = runes[:excerptLength]
	}
	return strings.TrimSpace(string(runes)) + "..."
}

// Slugify converts a title to a URL-safe slug: lowercase, runs of
// non-alphanumeric characters become single hyphens, leading and trailing
// hyphens are trimmed.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SubmissionSlug builds the slug for a poem created from an approved
// submission: the slugified title plus the last 4 digits of the current
// epoch milliseconds. Best-effort collision avoidance; the store retries
// with a fresh suffix on a unique-constraint violation.
func SubmissionSlug(title string, now time.Time) string {
	millis := now.UnixMilli() % 10000
	digits := []byte{
		byte('0' + millis/1000%10),
		byte('0' + millis/100%10),
		byte('0' + millis/10%10),
		byte('0' + millis%10),
	}
	base := Slugify(title)
	if base == "" {
		base = "poem"
	}
	return base + "-" + string(digits)
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}
