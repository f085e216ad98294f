// Package rfc keeps reserved characters of request paths in their escaped
// form, so that pattern matching and destination interpolation round-trip
// encoded segments unchanged.
package rfc

import "net/url"

const escapeLength = 3

// reserved characters according to RFC 2396, section 2.2, that the stdlib
// URL parser unescapes in http.Request.URL.Path
func unescaped(seq string) (byte, bool) {
	switch seq {
	case "%3B", "%3b":
		return ';', true
	case "%2F", "%2f":
		return '/', true
	case "%3F", "%3f":
		return '?', true
	case "%3A", "%3a":
		return ':', true
	case "%40":
		return '@', true
	case "%26":
		return '&', true
	case "%3D", "%3d":
		return '=', true
	case "%2B", "%2b":
		return '+', true
	case "%24":
		return '$', true
	case "%2C", "%2c":
		return ',', true
	case "%5C", "%5c":
		return '\\', true
	default:
		return 0, false
	}
}

// PatchPath restores the escaped form of reserved characters in a parsed
// request path, based on the raw path when the two differ only in escaping.
// The route engine matches patterns against the patched path, so a segment
// like %2F or %5C survives match and interpolation without being collapsed
// into its unescaped character. Usage:
//
//	req.URL.Path = rfc.PatchPath(req.URL.Path, req.URL.RawPath)
//
// An empty raw path is tolerated, the stdlib leaves RawPath empty when the
// parsed and escaped forms agree. Any other difference between the two
// arguments returns the parsed path unchanged.
func PatchPath(parsed, raw string) string {
	patched := make([]byte, 0, len(raw))
	doPatch := false
	pi := 0

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if pi >= len(parsed) || c != '%' && parsed[pi] != c {
			return parsed
		}

		if c != '%' {
			patched = append(patched, parsed[pi])
			pi++
			continue
		}

		if len(raw) < i+escapeLength {
			return parsed
		}

		seq := raw[i : i+escapeLength]
		i += escapeLength - 1
		u, handled := unescaped(seq)
		if !handled {
			patched = append(patched, parsed[pi])
			pi++
			continue
		}

		if parsed[pi] != u {
			return parsed
		}

		patched = append(patched, seq...)
		doPatch = true
		pi++
	}

	if !doPatch || pi < len(parsed) {
		return parsed
	}

	return string(patched)
}

// DecodePath unescapes the non-reserved escape sequences of a patched path,
// keeping the reserved ones in their escaped form. Page and asset lookups
// compare against decoded on-disk names, so /spa%20ce.txt must resolve the
// file "spa ce.txt", while a reserved sequence like %2F stays escaped and
// cannot be confused with a path separator. Malformed escapes are left
// untouched.
func DecodePath(p string) string {
	decoded := make([]byte, 0, len(p))
	doDecode := false

	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '%' || len(p) < i+escapeLength {
			decoded = append(decoded, c)
			continue
		}

		seq := p[i : i+escapeLength]
		if _, reserved := unescaped(seq); reserved {
			decoded = append(decoded, seq...)
			i += escapeLength - 1
			continue
		}

		u, err := url.PathUnescape(seq)
		if err != nil {
			decoded = append(decoded, c)
			continue
		}

		decoded = append(decoded, u...)
		i += escapeLength - 1
		doDecode = true
	}

	if !doDecode {
		return p
	}

	return string(decoded)
}
