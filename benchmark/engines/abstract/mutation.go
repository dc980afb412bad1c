package engine

import (
	"regexp"
	"strings"
)

// Matcher selects the records an update applies to. Used by backends without a
// query language, which scan the dataset and filter in process.
type Matcher func(p Person) bool

// Mutation rewrites a matched record in place and reports whether it matched.
type Mutation func(p *Person) bool

func MatchAll() Matcher {
	return func(Person) bool { return true }
}

func MatchName(name string) Matcher {
	return func(p Person) bool { return p.Name == name }
}

func MatchIDs(ids []int64) Matcher {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(p Person) bool {
		_, ok := set[p.ID]
		return ok
	}
}

// MatchAgeRange matches minAge <= age <= maxAge.
func MatchAgeRange(minAge int, maxAge int) Matcher {
	return func(p Person) bool { return p.Age >= minAge && p.Age <= maxAge }
}

// MatchNamePattern matches names against a SQL LIKE pattern: '%' matches any run of
// characters and '_' exactly one. Matching is case-sensitive and has no escape
// character.
func MatchNamePattern(pattern string) Matcher {
	re := likeRegexp(pattern)
	return func(p Person) bool { return re.MatchString(p.Name) }
}

func likeRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

// SetFields overwrites name and age of every record selected by match.
func SetFields(match Matcher, name string, age int) Mutation {
	return func(p *Person) bool {
		if !match(*p) {
			return false
		}
		p.Name = name
		p.Age = age
		return true
	}
}

func AddAge(amount int) Mutation {
	return func(p *Person) bool {
		p.Age += amount
		return true
	}
}

func AppendName(suffix string) Mutation {
	return func(p *Person) bool {
		p.Name += suffix
		return true
	}
}

// Apply runs m over persons, which must be sorted by id, and returns copies of the
// records it changed. With firstOnly it stops at the first match, which is then the
// lowest matching id.
func Apply(persons []Person, m Mutation, firstOnly bool) []Person {
	var changed []Person
	for _, p := range persons {
		if m(&p) {
			changed = append(changed, p)
			if firstOnly {
				break
			}
		}
	}
	return changed
}
