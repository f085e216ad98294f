package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAcceptedEncoding(t *testing.T) {
	for _, ti := range []struct {
		header   string
		expected string
	}{
		{"", ""},
		{"identity", ""},
		{"gzip", "gzip"},
		{"deflate", "deflate"},
		{"br", "br"},
		{"gzip, deflate, br", "gzip"},
		{"gzip;q=0.5, br", "br"},
		{"gzip;q=0.5, br;q=0.4", "gzip"},
		{"gzip;q=0", ""},
		{"gzip;q=0, deflate", "deflate"},
		{"gzip;q=not-a-number", ""},
		{" br ; q=0.8 ,gzip;q=0.9", "gzip"},
	} {
		r := httptest.NewRequest("GET", "/", nil)
		if ti.header != "" {
			r.Header.Set("Accept-Encoding", ti.header)
		}

		if got := acceptedEncoding(r); got != ti.expected {
			t.Errorf("%q: got %q, expected %q", ti.header, got, ti.expected)
		}
	}
}

func TestCompressible(t *testing.T) {
	c := newCompressionConfig(nil)
	for _, ti := range []struct {
		contentType string
		expected    bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/json", true},
		{"image/svg+xml", true},
		{"image/png", false},
		{"application/octet-stream", false},
		{"", false},
	} {
		if got := c.compressible(ti.contentType); got != ti.expected {
			t.Errorf("%q: got %v", ti.contentType, got)
		}
	}

	custom := newCompressionConfig([]string{"application/wasm"})
	if !custom.compressible("application/wasm") {
		t.Error("custom media type not compressible")
	}

	if custom.compressible("text/html") {
		t.Error("default media type compressible with a custom set")
	}
}

func TestNoCompressionWithoutAccept(t *testing.T) {
	p := &Proxy{compression: newCompressionConfig(nil)}

	w := httptest.NewRecorder()
	cw, done := p.compress(w, httptest.NewRequest("GET", "/", nil))
	cw.Header().Set("Content-Type", "text/html")
	cw.WriteHeader(http.StatusOK)
	cw.Write([]byte("<p>hello</p>"))
	done()

	if w.Header().Get("Content-Encoding") != "" {
		t.Error("unexpected content encoding")
	}

	if w.Body.String() != "<p>hello</p>" {
		t.Errorf("got body %q", w.Body.String())
	}
}

func TestNoCompressionForBinaryContent(t *testing.T) {
	p := &Proxy{compression: newCompressionConfig(nil)}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept-Encoding", "gzip")

	w := httptest.NewRecorder()
	cw, done := p.compress(w, r)
	cw.Header().Set("Content-Type", "image/png")
	cw.WriteHeader(http.StatusOK)
	cw.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	done()

	if w.Header().Get("Content-Encoding") != "" {
		t.Error("unexpected content encoding")
	}
}
