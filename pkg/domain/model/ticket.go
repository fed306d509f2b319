package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultTicketPatterns matches an alphanumeric project prefix, a hyphen and digits,
// e.g. ABC123-456, C123456G-124 or XYZ-12.
var DefaultTicketPatterns = []string{
	`[A-Z][A-Z0-9]+-[0-9]+`,
}

// DefaultIgnoredTicketPrefixes are keys of identifiers that look like tickets but name
// encodings, hashes, standards or vulnerabilities, e.g. UTF-8, SHA-256, JDK-8, CVE-2021.
var DefaultIgnoredTicketPrefixes = []string{
	"UTF", "UCS", "ISO", "RFC", "SHA", "MD", "AES", "RSA", "TLS", "SSL", "HTTP",
	"JDK", "JRE", "JSR", "JEP", "CVE", "CWE", "GHSA",
}

// TicketMatcher extracts issue-tracker identifiers from commit messages
type TicketMatcher struct {
	patterns []*regexp.Regexp
	exact    []*regexp.Regexp
	ignored  map[string]bool
}

// NewTicketMatcher compiles the given patterns. DefaultTicketPatterns is used when none are given.
func NewTicketMatcher(patterns ...string) (*TicketMatcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultTicketPatterns
	}

	m := (&TicketMatcher{}).Ignore(DefaultIgnoredTicketPrefixes...)
	for _, p := range patterns {
		re, err := regexp.Compile(`\b(?:` + p + `)\b`)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid ticket pattern", goerr.V("pattern", p))
		}
		m.patterns = append(m.patterns, re)
		m.exact = append(m.exact, regexp.MustCompile(`^(?:`+p+`)$`))
	}
	return m, nil
}

// Ignore replaces the set of ignored keys. The key is the part before the first hyphen and is
// compared case-insensitively. Ignore() with no prefix ignores nothing.
func (m *TicketMatcher) Ignore(prefixes ...string) *TicketMatcher {
	m.ignored = make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		m.ignored[strings.ToUpper(p)] = true
	}
	return m
}

// Extract returns the first ticket identifier found in msg, or an empty string
func (m *TicketMatcher) Extract(msg string) string {
	for _, re := range m.patterns {
		for _, found := range re.FindAllString(msg, -1) {
			if !m.isIgnored(found) {
				return found
			}
		}
	}
	return ""
}

// Match reports whether id is exactly a ticket identifier
func (m *TicketMatcher) Match(id string) bool {
	if m.isIgnored(id) {
		return false
	}
	for _, re := range m.exact {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

func (m *TicketMatcher) isIgnored(id string) bool {
	key, _, _ := strings.Cut(id, "-")
	return m.ignored[strings.ToUpper(key)]
}
