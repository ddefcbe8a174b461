package route

import (
	"errors"
	"fmt"
	"net/http"
)

// Table is an ordered, immutable set of compiled route entries.
// It is safe for concurrent use.
type Table struct {
	matchers []*matcher
}

// NewTable compiles entries into a table. Entries keep their order: when
// patterns overlap, the earlier entry wins.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{matchers: make([]*matcher, 0, len(entries))}

	var errs []error
	for i, e := range entries {
		m, err := compile(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
			continue
		}
		t.matchers = append(t.matchers, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return t, nil
}

// Merge concatenates route fragments in order.
// Use it to union the core routes with module routes before building a table.
func Merge(fragments ...[]Entry) []Entry {
	var n int
	for _, f := range fragments {
		n += len(f)
	}
	out := make([]Entry, 0, n)
	for _, f := range fragments {
		out = append(out, f...)
	}
	return out
}

// Match returns the first entry whose pattern matches method and path.
// An empty method is treated as GET.
func (t *Table) Match(method, path string) (Match, bool) {
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	for _, m := range t.matchers {
		if params, ok := m.match(method, path); ok {
			return Match{Target: m.entry.Target, Params: params, Entry: m.entry}, true
		}
	}
	return Match{}, false
}

// Entries returns the table entries in match order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.matchers))
	for i, m := range t.matchers {
		out[i] = m.entry
	}
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.matchers)
}
