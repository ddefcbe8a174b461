package route

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Entry binds a path pattern to a target handler identifier.
//
// Patterns use {name} placeholders. MatchTypes constrains a placeholder by
// name, either with a built-in alias or with a raw regular expression:
//
//	i   digits
//	a   letters and digits
//	h   hexadecimal digits
//	*   any characters except "/"
//	**  the rest of the path, slashes included (last placeholder only)
//
// The bracket form [type:name] is accepted as shorthand for a placeholder with
// a match type, e.g. "/user/[i:id]" is "/user/{id}" with MatchTypes{"id": "i"}.
type Entry struct {
	MatchTypes map[string]string `yaml:"match,omitempty"`
	Pattern    string            `yaml:"pattern"`
	Target     string            `yaml:"target"`
	Methods    []string          `yaml:"methods,omitempty"`
}

// Match is the result of matching a request path against a table.
type Match struct {
	Params Params
	Entry  Entry
	Target string
}

// matchTypes are the built-in placeholder constraints.
var matchTypes = map[string]string{
	"i": `[0-9]+`,
	"a": `[0-9A-Za-z]+`,
	"h": `[0-9A-Fa-f]+`,
	"*": `[^/]+`,
}

// restOfPath is the match type that captures the remainder of the path.
const restOfPath = "**"

var bracketParam = regexp.MustCompile(`\[([^:\]]*):([A-Za-z_][A-Za-z0-9_]*)\]`)

// matcher is one compiled table entry.
type matcher struct {
	mux      *chi.Mux
	entry    Entry
	wildcard string // placeholder name bound to chi's "*" param
}

func compile(e Entry) (m *matcher, err error) {
	if e.Pattern == "" || e.Target == "" {
		return nil, fmt.Errorf("%w: pattern %q target %q", ErrInvalidEntry, e.Pattern, e.Target)
	}

	pattern, wildcard, err := translate(e)
	if err != nil {
		return nil, err
	}

	// chi panics on malformed patterns and unknown methods.
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = errors.Join(ErrInvalidPattern, fmt.Errorf("%s: %v", e.Pattern, rec))
		}
	}()

	mux := chi.NewRouter()
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if len(e.Methods) == 0 {
		mux.Handle(pattern, noop)
	} else {
		for _, method := range e.Methods {
			mux.Method(strings.ToUpper(method), pattern, noop)
		}
	}

	return &matcher{mux: mux, entry: e, wildcard: wildcard}, nil
}

// match reports whether method and path match the entry and returns bound params.
func (m *matcher) match(method, path string) (Params, bool) {
	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, method, path) {
		return Params{}, false
	}

	var p Params
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			if m.wildcard == "" {
				continue
			}
			key = m.wildcard
		}
		p.keys = append(p.keys, key)
		p.values = append(p.values, rctx.URLParams.Values[i])
	}
	return p, true
}

// translate rewrites an entry pattern into chi syntax.
// Returns the chi pattern and the name of the placeholder mapped to chi's
// catch-all, if any.
func translate(e Entry) (string, string, error) {
	types := make(map[string]string, len(e.MatchTypes))
	for k, v := range e.MatchTypes {
		types[k] = v
	}

	pattern := bracketParam.ReplaceAllStringFunc(e.Pattern, func(s string) string {
		sub := bracketParam.FindStringSubmatch(s)
		if sub[1] != "" {
			if _, set := types[sub[2]]; !set {
				types[sub[2]] = sub[1]
			}
		}
		return "{" + sub[2] + "}"
	})

	var (
		b        strings.Builder
		wildcard string
	)
	rest := pattern
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := closingBrace(rest, start)
		if end < 0 {
			return "", "", fmt.Errorf("%w: unclosed placeholder in %q", ErrInvalidPattern, e.Pattern)
		}

		b.WriteString(rest[:start])
		name := rest[start+1 : end]
		rest = rest[end+1:]

		// Inline chi regex, e.g. {id:[0-9]+}, passes through untouched.
		if strings.Contains(name, ":") {
			b.WriteString("{" + name + "}")
			continue
		}

		mt, ok := types[name]
		switch {
		case !ok || mt == "":
			b.WriteString("{" + name + "}")
		case mt == restOfPath:
			if rest != "" {
				return "", "", fmt.Errorf("%w: %q placeholder must be last in %q", ErrInvalidPattern, restOfPath, e.Pattern)
			}
			wildcard = name
			b.WriteString("*")
		default:
			expr, known := matchTypes[mt]
			if !known {
				expr = mt
			}
			if _, err := regexp.Compile(expr); err != nil {
				return "", "", errors.Join(ErrInvalidPattern, err)
			}
			b.WriteString("{" + name + ":" + expr + "}")
		}
	}

	return b.String(), wildcard, nil
}

// closingBrace returns the index of the brace closing the one at open, or -1.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
