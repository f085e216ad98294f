package proxy

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

const (
	brotliName  = "br"
	gzipName    = "gzip"
	deflateName = "deflate"
)

// media types considered compressible by default, checked by prefix
var defaultCompressMIME = []string{
	"text/plain",
	"text/html",
	"text/css",
	"text/javascript",
	"application/javascript",
	"application/json",
	"application/xml",
	"image/svg+xml",
}

type compressionConfig struct {
	mime []string
}

func newCompressionConfig(mime []string) *compressionConfig {
	if len(mime) == 0 {
		mime = defaultCompressMIME
	}

	return &compressionConfig{mime: mime}
}

func (c *compressionConfig) compressible(contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}

	contentType = strings.TrimSpace(contentType)
	for _, m := range c.mime {
		if contentType == m {
			return true
		}
	}

	return false
}

// acceptedEncoding returns the supported content encoding with the highest
// non-zero quality in the Accept-Encoding header, or the empty string.
func acceptedEncoding(r *http.Request) string {
	var (
		best  string
		bestQ float64
	)

	for _, field := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, attrs, _ := strings.Cut(strings.TrimSpace(field), ";")
		name = strings.TrimSpace(name)
		if name != brotliName && name != gzipName && name != deflateName {
			continue
		}

		q := 1.0
		if qv, ok := strings.CutPrefix(strings.TrimSpace(attrs), "q="); ok {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(qv), 64)
			if err != nil {
				continue
			}

			q = parsed
		}

		if q > bestQ {
			best, bestQ = name, q
		}
	}

	if bestQ <= 0 {
		return ""
	}

	return best
}

// compress returns the writer to serve a local response with, plus a
// finalizer to call once the response body is written. Compression applies
// only when enabled, accepted by the client, and the response declares a
// compressible content type.
func (p *Proxy) compress(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, func()) {
	if p.compression == nil {
		return w, func() {}
	}

	enc := acceptedEncoding(r)
	if enc == "" {
		return w, func() {}
	}

	cw := &compressingWriter{
		ResponseWriter: w,
		config:         p.compression,
		encoding:       enc,
	}

	return cw, cw.close
}

// compressingWriter decides on WriteHeader, based on the content type,
// whether to encode the response body.
type compressingWriter struct {
	http.ResponseWriter
	config      *compressionConfig
	encoding    string
	encoder     io.WriteCloser
	headersSent bool
}

func (w *compressingWriter) WriteHeader(code int) {
	if w.headersSent {
		return
	}

	w.headersSent = true
	h := w.Header()
	if w.config.compressible(h.Get("Content-Type")) && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", w.encoding)
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")
		switch w.encoding {
		case brotliName:
			w.encoder = brotli.NewWriter(w.ResponseWriter)
		case gzipName:
			w.encoder = gzip.NewWriter(w.ResponseWriter)
		case deflateName:
			w.encoder, _ = flate.NewWriter(w.ResponseWriter, flate.DefaultCompression)
		}
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *compressingWriter) Write(b []byte) (int, error) {
	if !w.headersSent {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}

		w.WriteHeader(http.StatusOK)
	}

	if w.encoder != nil {
		return w.encoder.Write(b)
	}

	return w.ResponseWriter.Write(b)
}

func (w *compressingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressingWriter) close() {
	if w.encoder != nil {
		w.encoder.Close()
	}
}
