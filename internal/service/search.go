package service

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

var accentClasses = map[rune]string{
	'a': "aàâäá",
	'c': "cç",
	'e': "eéèêë",
	'i': "iîïí",
	'o': "oôöó",
	'u': "uùûüú",
	'y': "yÿ",
}

var accentBase = func() map[rune]rune {
	m := map[rune]rune{}
	for base, class := range accentClasses {
		for _, r := range class {
			m[r] = base
		}
	}
	return m
}()

// matcher finds a query in free text, ignoring case and French accents.
type matcher struct {
	re *regexp2.Regexp
}

func newMatcher(query string) (*matcher, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil, nil
	}

	var b strings.Builder
	for _, r := range query {
		if base, ok := accentBase[r]; ok {
			b.WriteString("[" + accentClasses[base] + "]")
			continue
		}
		b.WriteString(regexp2.Escape(string(r)))
	}

	re, err := regexp2.Compile(b.String(), regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = 100 * time.Millisecond

	return &matcher{re: re}, nil
}

// Match reports whether any of fields contains the query. A nil matcher
// matches everything.
func (m *matcher) Match(fields ...string) bool {
	if m == nil {
		return true
	}

	for _, f := range fields {
		if ok, err := m.re.MatchString(f); err == nil && ok {
			return true
		}
	}

	return false
}
