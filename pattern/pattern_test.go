package pattern

import (
	"regexp"
	"testing"
)

func TestCompileGroupCountMatchesParams(t *testing.T) {
	for _, source := range []string{
		"/blog/:id",
		"/hello/:id/another",
		"/old/:path*",
		"/files/:path+",
		"/docs/:first(integrations|now-cli)/v2:second(.*)",
		"/unnamed/(first|second)/(.*)",
		"/catchall-redirect/:path*",
		"/named-like-unnamed/:0",
		"/mixed/(one|two)/:named/(.*)",
	} {
		p, err := Compile(source)
		if err != nil {
			t.Fatalf("compile %s: %v", source, err)
		}

		rx := regexp.MustCompile(p.Regex())
		if rx.NumSubexp() != len(p.Params()) {
			t.Errorf(
				"%s: %d capturing groups, %d params",
				source,
				rx.NumSubexp(),
				len(p.Params()),
			)
		}
	}
}

func TestCompile(t *testing.T) {
	for _, test := range []struct {
		source string
		path   string
		match  bool
		params map[string]string
	}{{
		source: "/blog/:id",
		path:   "/blog/123",
		match:  true,
		params: map[string]string{"id": "123"},
	}, {
		source: "/blog/:id",
		path:   "/blog/123/extra",
		match:  false,
	}, {
		source: "/blog/:id",
		path:   "/blog",
		match:  false,
	}, {
		source: "/old/:path*",
		path:   "/old/hello/world",
		match:  true,
		params: map[string]string{"path": "hello/world"},
	}, {
		source: "/old/:path*",
		path:   "/old",
		match:  true,
		params: map[string]string{},
	}, {
		source: "/files/:path+",
		path:   "/files",
		match:  false,
	}, {
		source: "/files/:path+",
		path:   "/files/a/b/c",
		match:  true,
		params: map[string]string{"path": "a/b/c"},
	}, {
		source: "/docs/:first(integrations|now-cli)/v2:second(.*)",
		path:   "/docs/integrations/v2beta",
		match:  true,
		params: map[string]string{"first": "integrations", "second": "beta"},
	}, {
		source: "/docs/:first(integrations|now-cli)/v2:second(.*)",
		path:   "/docs/other/v2beta",
		match:  false,
	}, {
		source: "/unnamed/(first|second)/(.*)",
		path:   "/unnamed/second/rest/of/it",
		match:  true,
		params: map[string]string{"0": "second", "1": "rest/of/it"},
	}, {
		source: "/optional/:value?",
		path:   "/optional",
		match:  true,
		params: map[string]string{},
	}, {
		source: "/optional/:value?",
		path:   "/optional/there",
		match:  true,
		params: map[string]string{"value": "there"},
	}, {
		source: "/escaped/%5Cgoogle.com",
		path:   "/escaped/%5Cgoogle.com",
		match:  true,
		params: map[string]string{},
	}} {
		t.Run(test.source+" "+test.path, func(t *testing.T) {
			p, err := Compile(test.source)
			if err != nil {
				t.Fatal(err)
			}

			m, ok := p.Match(test.path)
			if ok != test.match {
				t.Fatalf("match: %v, expected %v, regex: %s", ok, test.match, p.Regex())
			}

			if !ok {
				return
			}

			if m.Len() != len(test.params) {
				t.Fatalf("params: %v, expected %v", m.Map(), test.params)
			}

			for k, v := range test.params {
				if got, _ := m.Get(k); got != v {
					t.Errorf("param %s: %q, expected %q", k, got, v)
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, source := range []string{
		"/broken/(unbalanced",
		"/broken/unbalanced)",
		"/broken/:",
		"/duplicate/:id/:id",
		"/capturing/:inner((a)(b))",
	} {
		t.Run(source, func(t *testing.T) {
			_, err := Compile(source)
			if err == nil {
				t.Fatal("compile succeeded, expected pattern error")
			}

			if _, ok := err.(*Error); !ok {
				t.Fatalf("expected *pattern.Error, got %T", err)
			}
		})
	}
}

func TestCompilePageTrailingSlash(t *testing.T) {
	p, err := CompilePage("/blog/:post")
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/blog/123", "/blog/123/"} {
		if _, ok := p.Match(path); !ok {
			t.Errorf("%s did not match, regex: %s", path, p.Regex())
		}
	}

	if _, ok := p.Match("/blog/123/more"); ok {
		t.Error("/blog/123/more matched unexpectedly")
	}
}

func TestCatchAllSegments(t *testing.T) {
	p := MustCompile("/catchall/:rest*")
	m, ok := p.Match("/catchall/hello/world")
	if !ok {
		t.Fatal("no match")
	}

	segments, ok := m.Segments("rest")
	if !ok {
		t.Fatal("rest is not a catch-all value")
	}

	if len(segments) != 2 || segments[0] != "hello" || segments[1] != "world" {
		t.Errorf("segments: %v", segments)
	}
}

// An explicitly written digit name shadows the synthesized positional name of
// an unnamed group. This is a configuration hazard rather than an engine
// error: the compiler accepts it, and lookups resolve to the explicit token.
func TestDigitNamedParamShadowsPositional(t *testing.T) {
	p, err := Compile("/named-like-unnamed/(ignored|skipped)/:0")
	if err != nil {
		t.Fatal(err)
	}

	m, ok := p.Match("/named-like-unnamed/ignored/explicit")
	if !ok {
		t.Fatal("no match")
	}

	if v, _ := m.Get("0"); v != "explicit" {
		t.Errorf("param 0 resolved to %q, expected the explicit token value", v)
	}
}

func TestParamOrder(t *testing.T) {
	p := MustCompile("/mixed/(one|two)/:named/(.*)")
	specs := p.Params()
	expected := []ParamSpec{
		{Name: "0", Kind: KindPositional},
		{Name: "named", Kind: KindNamed},
		{Name: "1", Kind: KindPositional},
	}

	if len(specs) != len(expected) {
		t.Fatalf("specs: %v", specs)
	}

	for i, e := range expected {
		if specs[i] != e {
			t.Errorf("spec %d: %v, expected %v", i, specs[i], e)
		}
	}
}
