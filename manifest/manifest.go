/*
Package manifest serializes a compiled routing table into a stable,
diffable snapshot for build-time introspection and external tooling.

Emission is a pure function of the routing table: the same rule set yields
byte-identical JSON and the same checksum on every platform. Regexes are
normalized with escaped slashes so that equivalent patterns compare equal
regardless of the regex engine that compiled them.
*/
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/detourhq/detour/routing"
	"github.com/detourhq/detour/rules"
)

// Version of the manifest format.
const Version = 3

// Rule is one serialized rule entry.
type Rule struct {
	Source      string         `json:"source"`
	Destination string         `json:"destination,omitempty"`
	StatusCode  int            `json:"statusCode,omitempty"`
	Headers     []rules.Header `json:"headers,omitempty"`
	Regex       string         `json:"regex"`
}

// DynamicRoute is one serialized entry of the dynamic route table.
type DynamicRoute struct {
	Page  string `json:"page"`
	Regex string `json:"regex"`
}

// Manifest is the serialized snapshot of a compiled rule set.
type Manifest struct {
	Version       int            `json:"version"`
	Pages404      bool           `json:"pages404"`
	BasePath      string         `json:"basePath"`
	Redirects     []Rule         `json:"redirects"`
	Rewrites      []Rule         `json:"rewrites"`
	Headers       []Rule         `json:"headers"`
	DynamicRoutes []DynamicRoute `json:"dynamicRoutes"`
}

// Emit serializes the routing table. The output preserves the declaration
// order of every rule collection and is deterministic for a given table.
func Emit(t *routing.Table) *Manifest {
	m := &Manifest{
		Version:       Version,
		Pages404:      t.Pages().Has404(),
		BasePath:      t.BasePath(),
		Redirects:     emitRules(t.Redirects()),
		Rewrites:      emitRules(t.Rewrites()),
		Headers:       emitRules(t.Headers()),
		DynamicRoutes: []DynamicRoute{},
	}

	for _, dr := range t.Pages().DynamicRoutes() {
		m.DynamicRoutes = append(m.DynamicRoutes, DynamicRoute{
			Page:  dr.Page,
			Regex: normalizeRegex(dr.Pattern.Regex()),
		})
	}

	return m
}

func emitRules(compiled []*routing.CompiledRule) []Rule {
	emitted := make([]Rule, 0, len(compiled))
	for _, c := range compiled {
		emitted = append(emitted, Rule{
			Source:      c.Rule.Source,
			Destination: c.Rule.Destination,
			StatusCode:  c.Rule.StatusCode,
			Headers:     c.Rule.Headers,
			Regex:       normalizeRegex(c.Pattern.Regex()),
		})
	}

	return emitted
}

// normalizeRegex escapes every unescaped '/' so that emitted regexes
// compare equal independent of how the compiling engine spells them.
func normalizeRegex(rx string) string {
	var b bytes.Buffer
	escaped := false
	for i := 0; i < len(rx); i++ {
		c := rx[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '/':
			b.WriteByte('\\')
		}

		b.WriteByte(c)
	}

	return b.String()
}

// Marshal renders the canonical compact manifest JSON. The encoder is
// configured without HTML escaping, keeping destination URLs and regexes
// readable and diffable. Plain json.Marshal would escape '&', '<' and '>',
// so serialization always goes through here.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(m); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteTo writes the indented manifest JSON, without HTML escaping.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	e.SetIndent("", "  ")
	if err := e.Encode(m); err != nil {
		return 0, err
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Checksum returns a stable build id of the manifest, computed over its
// canonical JSON form.
func (m *Manifest) Checksum() (string, error) {
	b, err := m.Marshal()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(b)), nil
}
