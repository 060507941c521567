// Package sel selects namespaces by "db.coll" patterns.
package sel

import (
	"strings"
)

// NSFilter returns true if a namespace is allowed.
type NSFilter func(db, coll string) bool

// AllowAll allows every namespace.
func AllowAll(string, string) bool {
	return true
}

// MakeFilter builds a filter from include and exclude patterns. A pattern is either
// "db.coll" or "db.*" (or just "db") for every collection of the database. An empty
// include list includes everything. Exclusion wins over inclusion.
func MakeFilter(include, exclude []string) NSFilter {
	if len(include) == 0 && len(exclude) == 0 {
		return AllowAll
	}

	included := makePatternSet(include)
	excluded := makePatternSet(exclude)

	return func(db, coll string) bool {
		if len(included) != 0 && !included.Has(db, coll) {
			return false
		}

		return !excluded.Has(db, coll)
	}
}

// patternSet maps a database to its listed collections. A nil set means the whole
// database.
type patternSet map[string]map[string]struct{}

func (s patternSet) Has(db, coll string) bool {
	colls, ok := s[db]
	if !ok {
		return false
	}

	if colls == nil {
		return true
	}

	_, ok = colls[coll]
	return ok
}

func makePatternSet(patterns []string) patternSet {
	set := make(patternSet)

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		db, coll, _ := strings.Cut(p, ".")

		colls, seen := set[db]
		if seen && colls == nil {
			continue
		}

		if coll == "" || coll == "*" {
			set[db] = nil
			continue
		}

		if colls == nil {
			colls = make(map[string]struct{})
			set[db] = colls
		}
		colls[coll] = struct{}{}
	}

	return set
}
