// Package pattern compiles route patterns into matchers.
//
// A pattern is a /-delimited sequence of segments:
//
//   - a literal segment matches byte-for-byte (case-folded when the
//     CaseInsensitive option is set);
//   - ":name" matches exactly one non-empty segment and binds it to "name";
//   - ":name?" is optional and may be absent from the path entirely;
//   - "*name" (or a bare "*", bound under the name "*") matches zero or more
//     trailing segments and binds the joined remainder;
//   - a pattern of the form "{expr}" is treated as a regular expression
//     matched against the full path; capture groups become parameters, named
//     groups under their own name and unnamed groups as "$1", "$2", ...
//
// Matching is a pure function of (pattern, path): no state is consulted and
// none is modified. In Prefix mode the pattern only has to match a leading
// run of whole segments; the unconsumed remainder is reported so a mounted
// sub-router can continue matching against it.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Options control how a pattern is compiled.
type Options struct {
	// CaseInsensitive folds literal segments (and regexp patterns) during
	// matching. The default is case-sensitive.
	CaseInsensitive bool

	// Strict disables trailing-slash equivalence: with Strict set, "/a" and
	// "/a/" are distinct paths. The root path "/" is never normalized.
	Strict bool

	// Prefix compiles the pattern as a mount prefix: it must match a leading
	// sequence of whole segments and Match reports the remaining path.
	Prefix bool
}

// Pattern is a compiled route pattern.
type Pattern struct {
	raw   string
	re    *regexp.Regexp
	names []string
	opts  Options
}

// Match is the result of a successful match.
type Match struct {
	// Params holds the captured parameters in declaration order.
	Params Params

	// Remaining is the unconsumed portion of the path when the pattern was
	// compiled in Prefix mode. It is either "/" (everything consumed) or a
	// path starting with "/". For non-prefix patterns it is always "/".
	Remaining string
}

// Compile compiles a route pattern. It returns an error for an empty pattern,
// a duplicate parameter name, a catch-all token in a non-final position, or
// an invalid regular expression.
func Compile(raw string, opts Options) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("pattern: empty pattern")
	}

	p := &Pattern{raw: raw, opts: opts}

	var expr string
	var err error
	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		expr, err = p.compileRegexp(raw[1 : len(raw)-1])
	} else {
		expr, err = p.compileSegments(raw)
	}
	if err != nil {
		return nil, err
	}

	if opts.CaseInsensitive {
		expr = "(?i)" + expr
	}
	expr = "^" + expr
	if !opts.Prefix {
		expr += "$"
	}

	p.re, err = regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: compile %q: %w", raw, err)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. It is intended for route
// registration, where an invalid pattern is a programming error.
func MustCompile(raw string, opts Options) *Pattern {
	p, err := Compile(raw, opts)
	if err != nil {
		panic(err)
	}
	return p
}

// compileSegments translates a segment pattern into a regexp body and records
// the parameter names in declaration order.
func (p *Pattern) compileSegments(raw string) (string, error) {
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	raw = normalize(raw, p.opts.Strict)

	if raw == "/" {
		if p.opts.Prefix {
			// A root mount consumes nothing and matches every path.
			return "", nil
		}
		return "/", nil
	}

	var b strings.Builder
	segs := strings.Split(raw[1:], "/")
	for i, seg := range segs {
		switch {
		case strings.HasPrefix(seg, ":"):
			name := strings.TrimPrefix(seg, ":")
			optional := strings.HasSuffix(name, "?")
			name = strings.TrimSuffix(name, "?")
			if name == "" {
				return "", fmt.Errorf("pattern: %q: unnamed parameter segment", raw)
			}
			if err := p.addName(name); err != nil {
				return "", err
			}
			if optional {
				b.WriteString(`(?:/([^/]+))?`)
			} else {
				b.WriteString(`/([^/]+)`)
			}
		case strings.HasPrefix(seg, "*"):
			if i != len(segs)-1 {
				return "", fmt.Errorf("pattern: %q: catch-all must be the final segment", raw)
			}
			name := strings.TrimPrefix(seg, "*")
			if name == "" {
				name = "*"
			}
			if err := p.addName(name); err != nil {
				return "", err
			}
			b.WriteString(`(?:/(.*))?`)
		default:
			b.WriteString("/")
			b.WriteString(regexp.QuoteMeta(seg))
		}
	}
	return b.String(), nil
}

// compileRegexp wraps a user-supplied regular expression, deriving parameter
// names from its capture groups.
func (p *Pattern) compileRegexp(expr string) (string, error) {
	probe, err := regexp.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("pattern: compile %q: %w", p.raw, err)
	}
	for i, name := range probe.SubexpNames()[1:] {
		if name == "" {
			name = "$" + strconv.Itoa(i+1)
		}
		if err := p.addName(name); err != nil {
			return "", err
		}
	}
	return expr, nil
}

func (p *Pattern) addName(name string) error {
	for _, existing := range p.names {
		if existing == name {
			return fmt.Errorf("pattern: %q: duplicate parameter %q", p.raw, name)
		}
	}
	p.names = append(p.names, name)
	return nil
}

// String returns the pattern source text.
func (p *Pattern) String() string { return p.raw }

// ParamNames returns the parameter names in declaration order.
func (p *Pattern) ParamNames() []string { return p.names }

// Match tests the pattern against a request path. On success it returns the
// captured parameters and, for Prefix patterns, the remaining path. An
// optional parameter that was absent is reported with an empty value.
func (p *Pattern) Match(path string) (Match, bool) {
	path = normalize(path, p.opts.Strict)
	if path == "" {
		path = "/"
	}

	loc := p.re.FindStringSubmatchIndex(path)
	if loc == nil || loc[0] != 0 {
		return Match{}, false
	}

	end := loc[1]
	if p.opts.Prefix && end < len(path) && path[end] != '/' {
		// The prefix must end on a segment boundary: "/api" may not
		// consume the front of "/apiary".
		return Match{}, false
	}

	m := Match{Remaining: "/"}
	if p.opts.Prefix && end < len(path) {
		m.Remaining = path[end:]
	}
	if len(p.names) > 0 {
		m.Params = make(Params, 0, len(p.names))
		for i, name := range p.names {
			start, stop := loc[2+2*i], loc[3+2*i]
			value := ""
			if start >= 0 {
				value = path[start:stop]
			}
			m.Params = append(m.Params, Param{Key: name, Value: value})
		}
	}
	return m, true
}

// normalize strips a single trailing slash unless strict mode is enabled.
// The root path is left untouched.
func normalize(path string, strict bool) string {
	if !strict && len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}
