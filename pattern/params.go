package pattern

import "strings"

// Params holds the values captured by a pattern match. Single parameters map
// to one string, catch-all parameters to an ordered sequence of path
// segments. Values preserve the escape sequences of the matched path.
type Params struct {
	values map[string]paramValue
	names  []string
}

type paramValue struct {
	value    string
	segments []string
	catchAll bool
}

func newParams() *Params {
	return &Params{values: map[string]paramValue{}}
}

func (p *Params) set(name, value string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = paramValue{value: value}
}

func (p *Params) setSegments(name string, segments []string) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = paramValue{segments: segments, catchAll: true}
}

// Get returns the value of a single parameter. Catch-all parameters return
// their segments joined by '/'.
func (p *Params) Get(name string) (string, bool) {
	if p == nil {
		return "", false
	}

	v, ok := p.values[name]
	if !ok {
		return "", false
	}

	if v.catchAll {
		return strings.Join(v.segments, "/"), true
	}

	return v.value, true
}

// Segments returns the segment sequence of a catch-all parameter.
func (p *Params) Segments(name string) ([]string, bool) {
	if p == nil {
		return nil, false
	}

	v, ok := p.values[name]
	if !ok || !v.catchAll {
		return nil, false
	}

	return v.segments, true
}

// Names returns the captured parameter names in capture order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}

	return p.names
}

// Map returns the captured parameters as a plain map, with catch-all values
// joined by '/'.
func (p *Params) Map() map[string]string {
	m := make(map[string]string, len(p.Names()))
	for _, name := range p.Names() {
		v, _ := p.Get(name)
		m[name] = v
	}

	return m
}

// Len returns the number of captured parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}

	return len(p.values)
}
