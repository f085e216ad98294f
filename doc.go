/*
Package detour implements an HTTP front server driven by an ordered set of
route transformation rules. For every request it decides, in one
deterministic pass, whether to inject response headers, redirect the client,
rewrite the request path internally, serve a page or static asset, or proxy
the request to an upstream origin.

Rules are declared in a YAML or JSON file as three ordered collections:
headers, redirects and rewrites. Rule sources are path patterns with named
parameters:

	/blog/:post            one segment
	/docs/:slug*           catch-all, zero or more segments
	/files/:path+          catch-all, one or more segments
	/v(\d+)                custom regular expressions

Destinations interpolate the captured parameters, and may be absolute URLs,
turning a rewrite into an upstream dispatch and a redirect into an external
location.

Pages are files in a directory where bracket segments name route parameters
([post], [...slug], [[...slug]]), scanned into a registry that answers the
resolution stage: explicit pages shadow rewrites, dynamic routes match after
the rewrite chain settled, and the api/ subtree is classified separately.

The compiled rule set is also emitted as a stable JSON route manifest for
build tooling, with a checksum usable as a build id.

The detour executable is implemented in the cmd/detour directory.

Start a server from code with Run:

	err := detour.Run(detour.Options{
		Address:   ":9090",
		RulesFile: "rules.yaml",
		PagesDir:  "pages",
		PublicDir: "public",
	})

In dev mode the rule file is polled for changes and the routing table is
swapped atomically, while requests in flight keep the table they started
with.
*/
package detour
