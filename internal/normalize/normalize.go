// Package normalize canonicalizes bibliographic field values for comparison.
// All functions are pure and deterministic; callers never write the comparable
// form back to an entry unless a merge rule says so.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punct      = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	multiSpace = regexp.MustCompile(`\s{2,}`)
	pageRange  = regexp.MustCompile(`^\s*(\d+)\s*[-\x{2013}\x{2014}]+\s*(\d+)\s*$`)
	doiPrefix  = regexp.MustCompile(`(?i)^(https?://(dx\.)?doi\.org/|doi:\s*)`)

	// NFD + strip combining marks + NFC: "Müller" compares equal to "Muller".
	accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

var leadingArticles = []string{"a ", "an ", "the "}

// Title canonicalizes a title for comparison: accent-folded, lowercased,
// punctuation stripped, whitespace collapsed, leading article dropped.
func Title(s string) string {
	t, _, err := transform.String(accentFold, s)
	if err != nil {
		t = s
	}
	t = strings.ToLower(t)
	t = punct.ReplaceAllString(t, " ")
	t = strings.TrimSpace(multiSpace.ReplaceAllString(t, " "))
	for _, art := range leadingArticles {
		if strings.HasPrefix(t, art) {
			t = strings.TrimSpace(strings.TrimPrefix(t, art))
			break
		}
	}
	return t
}

// CandidateTitle returns the comparable form of a candidate title, with the
// subtitle space-joined when present.
func CandidateTitle(title, subtitle string) string {
	if strings.TrimSpace(subtitle) == "" {
		return Title(title)
	}
	return Title(title + " " + subtitle)
}

// Author canonicalizes a single name into "Family, Given" form. Names already
// carrying a comma keep their order; otherwise the last whitespace token is
// taken as the family name.
func Author(name string) string {
	name = strings.TrimSpace(multiSpace.ReplaceAllString(name, " "))
	if name == "" {
		return ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		family := strings.TrimSpace(name[:i])
		given := strings.TrimSpace(name[i+1:])
		if given == "" {
			return family
		}
		return family + ", " + given
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0]
	}
	family := parts[len(parts)-1]
	given := strings.Join(parts[:len(parts)-1], " ")
	return family + ", " + given
}

// SplitAuthors splits a BibTeX author field into individual names. Both the
// " and " convention and semicolons are accepted.
func SplitAuthors(raw string) []string {
	raw = strings.ReplaceAll(raw, ";", " and ")
	var out []string
	for _, part := range strings.Split(raw, " and ") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Authors canonicalizes a full author list into " and "-joined
// "Family, Given" names.
func Authors(raw string) string {
	names := SplitAuthors(raw)
	for i, n := range names {
		names[i] = Author(n)
	}
	return strings.Join(names, " and ")
}

// Pages rewrites a numeric page range into the canonical double-dash form:
// "123-134" and "123 - 134" both become "123--134". Already-canonical ranges
// and values that are not simple ranges come back unchanged (trimmed).
func Pages(s string) string {
	if m := pageRange.FindStringSubmatch(s); m != nil {
		return m[1] + "--" + m[2]
	}
	return strings.TrimSpace(s)
}

// DOI canonicalizes a DOI for equality comparison: resolver prefixes and the
// "doi:" scheme are stripped and the remainder lowercased.
func DOI(s string) string {
	s = strings.TrimSpace(s)
	s = doiPrefix.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
