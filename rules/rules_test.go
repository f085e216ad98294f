package rules

import (
	"testing"

	"github.com/detourhq/detour/pattern"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
basePath: /docs
redirects:
  - source: /old/:path*
    destination: /new/:path*
    statusCode: 308
  - source: /hello/:id/another
    destination: /blog/:id
rewrites:
  - source: /proxied/:rest*
    destination: https://origin.example.com/:rest*
headers:
  - source: /assets/:path*
    headers:
      - key: Cache-Control
        value: public, max-age=31536000
      - key: X-Served-By
        value: detour
`

const sampleJSON = `{
	"redirects": [
		{"source": "/a", "destination": "/b", "statusCode": 307}
	],
	"headers": [
		{"source": "/c", "headers": [{"key": "X-A", "value": "1"}]}
	]
}`

func TestParseYAML(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "/docs", c.BasePath)
	require.Len(t, c.Redirects, 2)
	require.Len(t, c.Rewrites, 1)
	require.Len(t, c.Headers, 1)

	require.Equal(t, "/old/:path*", c.Redirects[0].Source)
	require.Equal(t, 308, c.Redirects[0].StatusCode)
	require.Equal(t, "https://origin.example.com/:rest*", c.Rewrites[0].Destination)
	require.Equal(t, Header{Key: "X-Served-By", Value: "detour"}, c.Headers[0].Headers[1])
}

func TestParseJSON(t *testing.T) {
	c, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	require.Len(t, c.Redirects, 1)
	require.Equal(t, 307, c.Redirects[0].StatusCode)
	require.Len(t, c.Headers, 1)
}

func TestParsePreservesDeclarationOrder(t *testing.T) {
	c, err := Parse([]byte(`
redirects:
  - source: /first
    destination: /one
  - source: /second
    destination: /two
  - source: /third
    destination: /three
`))
	require.NoError(t, err)

	var sources []string
	for _, r := range c.Redirects {
		sources = append(sources, r.Source)
	}

	require.Equal(t, []string{"/first", "/second", "/third"}, sources)
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name    string
		content string
	}{{
		name: "redirect without destination",
		content: `
redirects:
  - source: /old
`,
	}, {
		name: "redirect with invalid status code",
		content: `
redirects:
  - source: /old
    destination: /new
    statusCode: 200
`,
	}, {
		name: "rewrite with status code",
		content: `
rewrites:
  - source: /a
    destination: /b
    statusCode: 307
`,
	}, {
		name: "header rule without headers",
		content: `
headers:
  - source: /a
`,
	}, {
		name: "header rule with destination",
		content: `
headers:
  - source: /a
    destination: /b
    headers:
      - key: X-A
        value: "1"
`,
	}, {
		name: "rewrite with headers",
		content: `
rewrites:
  - source: /a
    destination: /b
    headers:
      - key: X-A
        value: "1"
`,
	}} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.content))
			require.Error(t, err)
		})
	}
}

func TestValidateReportsPatternError(t *testing.T) {
	_, err := Parse([]byte(`
redirects:
  - source: /broken/(unbalanced
    destination: /new
`))
	require.Error(t, err)
	require.IsType(t, &pattern.Error{}, err)
}
