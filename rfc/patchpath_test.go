package rfc

import "testing"

func TestPatchPath(t *testing.T) {
	for _, test := range []struct {
		title, parsed, raw, expected string
	}{{
		title:    "empty",
		expected: "",
	}, {
		title:    "no raw path",
		parsed:   "/foo/bar",
		expected: "/foo/bar",
	}, {
		title:    "encoded slash",
		parsed:   "/foo/bar/baz",
		raw:      "/foo/bar%2Fbaz",
		expected: "/foo/bar%2Fbaz",
	}, {
		title:    "lowercase escape",
		parsed:   "/foo/bar/baz",
		raw:      "/foo/bar%2fbaz",
		expected: "/foo/bar%2fbaz",
	}, {
		title:    "encoded backslash",
		parsed:   "/redirect/\\google.com",
		raw:      "/redirect/%5Cgoogle.com",
		expected: "/redirect/%5Cgoogle.com",
	}, {
		title:    "multiple reserved chars",
		parsed:   "/a/b/c=d,e",
		raw:      "/a/b%2Fc%3Dd%2Ce",
		expected: "/a/b%2Fc%3Dd%2Ce",
	}, {
		title:    "non-reserved escape left to the parsed form",
		parsed:   "/foo/bAr",
		raw:      "/foo/b%41r",
		expected: "/foo/bAr",
	}, {
		title:    "modified path",
		parsed:   "/foo/bar",
		raw:      "/baz/qux%2F",
		expected: "/foo/bar",
	}, {
		title:    "truncated escape",
		parsed:   "/foo/bar/",
		raw:      "/foo/bar%2",
		expected: "/foo/bar/",
	}, {
		title:    "parsed longer than raw",
		parsed:   "/foo/bar/baz",
		raw:      "/foo/bar%2F",
		expected: "/foo/bar/baz",
	}} {
		t.Run(test.title, func(t *testing.T) {
			if got := PatchPath(test.parsed, test.raw); got != test.expected {
				t.Errorf("got %q, expected %q", got, test.expected)
			}
		})
	}
}

func TestDecodePath(t *testing.T) {
	for _, test := range []struct {
		title, path, expected string
	}{{
		title:    "empty",
		expected: "",
	}, {
		title:    "no escapes",
		path:     "/foo/bar",
		expected: "/foo/bar",
	}, {
		title:    "space decoded",
		path:     "/spa%20ce.txt",
		expected: "/spa ce.txt",
	}, {
		title:    "reserved escape kept",
		path:     "/foo%2Fbar",
		expected: "/foo%2Fbar",
	}, {
		title:    "lowercase reserved escape kept",
		path:     "/foo%2fbar",
		expected: "/foo%2fbar",
	}, {
		title:    "mixed reserved and non-reserved",
		path:     "/spa%20ce%2Fx",
		expected: "/spa ce%2Fx",
	}, {
		title:    "malformed escape untouched",
		path:     "/foo%zzbar",
		expected: "/foo%zzbar",
	}, {
		title:    "truncated escape untouched",
		path:     "/foo%2",
		expected: "/foo%2",
	}} {
		t.Run(test.title, func(t *testing.T) {
			if got := DecodePath(test.path); got != test.expected {
				t.Errorf("got %q, expected %q", got, test.expected)
			}
		})
	}
}
