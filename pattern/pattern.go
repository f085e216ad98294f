/*
Package pattern compiles path patterns to regular expressions with ordered
parameter capture, and applies destination templates to the captured values.

A pattern consists of literal text and parameter tokens:

	/blog/:id                          named, one path segment
	/old/:path*                        named catch-all, zero or more segments
	/files/:path+                      named catch-all, one or more segments
	/docs/:section(integrations|cli)   named with a custom inner regex
	/unnamed/(first|second)/(.*)       unnamed, positional names "0", "1", ...

Parameter tokens may appear mid-segment, as in /docs/v2:rest(.*). The order
of the capturing groups in the compiled regex always equals the order of the
parameter specs, which the destination template relies on for positional
parameters.
*/
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParamKind classifies a compiled pattern parameter.
type ParamKind int

const (
	// KindNamed matches a single path segment.
	KindNamed ParamKind = iota

	// KindPositional is an unnamed group with a synthesized digit name.
	KindPositional

	// KindCatchAll matches a sequence of path segments.
	KindCatchAll
)

// ParamSpec describes one capturing group of a compiled pattern.
type ParamSpec struct {
	Name     string
	Kind     ParamKind
	Optional bool
}

// Pattern is a compiled path pattern. Patterns are immutable and safe for
// concurrent use.
type Pattern struct {
	source string
	rx     *regexp.Regexp
	params []ParamSpec

	// names claimed by explicit tokens; a positional capture whose
	// synthesized name collides with one of these is discarded at match
	// time
	explicit map[string]bool
}

const (
	segmentRx = `[^\/]+?`

	// catch-all groups swallow the preceding slash so that the empty
	// sequence can match without a trailing slash on the input
	catchAllZeroRx = `(?:\/((?:%s)(?:\/(?:%s))*))?`
	catchAllOneRx  = `\/((?:%s)(?:\/(?:%s))*)`
)

// Compile compiles a path pattern anchored at both ends.
func Compile(source string) (*Pattern, error) {
	return compile(source, false)
}

// CompilePage compiles a page route pattern, anchored with an optional
// trailing slash. Used for the dynamic route table, where /blog/123 and
// /blog/123/ resolve to the same page.
func CompilePage(source string) (*Pattern, error) {
	return compile(source, true)
}

func compile(source string, trailingSlash bool) (*Pattern, error) {
	t := &tokenizer{input: source}
	var (
		rx        strings.Builder
		params    []ParamSpec
		explicit  = map[string]bool{}
		seen      = map[string]bool{}
		posIndex  int
		lastSlash bool
	)

	rx.WriteString("^")
	for {
		tok, err := t.next()
		if err != nil {
			return nil, err
		}

		if tok == nil {
			break
		}

		switch tok.kind {
		case tokenLiteral:
			rx.WriteString(escapeLiteral(tok.text))
			lastSlash = strings.HasSuffix(tok.text, "/")
		case tokenParam:
			name := tok.name
			if name == "" {
				name = positionalName(posIndex)
				posIndex++
			} else {
				explicit[name] = true
				if seen[name] {
					return nil, &Error{
						Pattern:  source,
						Position: tok.pos,
						Message:  "duplicate parameter name: " + name,
					}
				}
				seen[name] = true
			}

			inner := tok.regex
			if inner == "" {
				inner = segmentRx
			}

			spec := ParamSpec{Name: name, Kind: KindNamed}
			if tok.name == "" {
				spec.Kind = KindPositional
			}

			switch tok.modifier {
			case "*", "+":
				spec.Kind = KindCatchAll
				spec.Optional = tok.modifier == "*"
				if lastSlash {
					trimSuffix(&rx, `\/`)
				}
				form := catchAllOneRx
				if tok.modifier == "*" {
					form = catchAllZeroRx
				}
				rx.WriteString(fmt.Sprintf(form, inner, inner))
			case "?":
				spec.Optional = true
				if lastSlash {
					trimSuffix(&rx, `\/`)
					rx.WriteString(`(?:\/(` + inner + `))?`)
				} else {
					rx.WriteString(`(` + inner + `)?`)
				}
			default:
				rx.WriteString(`(` + inner + `)`)
			}

			params = append(params, spec)
			lastSlash = false
		}
	}

	if trailingSlash {
		rx.WriteString(`(?:\/)?`)
	}

	rx.WriteString("$")
	compiled, err := regexp.Compile(rx.String())
	if err != nil {
		return nil, &Error{Pattern: source, Message: "invalid regular expression: " + err.Error()}
	}

	if compiled.NumSubexp() != len(params) {
		return nil, &Error{
			Pattern: source,
			Message: "custom parameter regex must not contain capturing groups",
		}
	}

	return &Pattern{
		source:   source,
		rx:       compiled,
		params:   params,
		explicit: explicit,
	}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// static initialization.
func MustCompile(source string) *Pattern {
	p, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the original pattern string.
func (p *Pattern) Source() string { return p.source }

// Regex returns the compiled regular expression source.
func (p *Pattern) Regex() string { return p.rx.String() }

// Params returns the parameter specs in capturing group order.
func (p *Pattern) Params() []ParamSpec { return p.params }

// Match matches path against the pattern. The second return value reports
// whether the path matched. The path is expected in its escaped form, and
// captured values preserve any escape sequences in it.
func (p *Pattern) Match(path string) (*Params, bool) {
	m := p.rx.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := newParams()
	for i, spec := range p.params {
		v := m[i+1]
		if spec.Optional && v == "" {
			continue
		}

		// a synthesized positional name yields to an explicit token of
		// the same name
		if spec.Kind == KindPositional && p.explicit[spec.Name] {
			continue
		}

		if spec.Kind == KindCatchAll {
			params.setSegments(spec.Name, strings.Split(v, "/"))
		} else {
			params.set(spec.Name, v)
		}
	}

	return params, true
}

func positionalName(i int) string {
	return strconv.Itoa(i)
}

var literalEscape = regexp.MustCompile(`[.+*?=^!:${}()[\]|\\]`)

func escapeLiteral(s string) string {
	s = literalEscape.ReplaceAllString(s, `\$0`)
	return strings.ReplaceAll(s, "/", `\/`)
}

func trimSuffix(b *strings.Builder, suffix string) {
	s := b.String()
	if strings.HasSuffix(s, suffix) {
		b.Reset()
		b.WriteString(s[:len(s)-len(suffix)])
	}
}
