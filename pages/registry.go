/*
Package pages implements a file-based page registry. It scans a pages
directory where bracket segments name route parameters:

	pages/index.html          -> /
	pages/about.html          -> /about
	pages/blog/[post].html    -> /blog/[post], parameter "post"
	pages/docs/[...slug].html -> /docs/[...slug], catch-all, one or more
	pages/[[...any]].html     -> /[[...any]], catch-all, zero or more
	pages/api/list.json       -> /api/list, API route
	pages/404.html            -> custom not-found page

The registry answers the resolution questions of the evaluation pipeline:
explicit page existence, dynamic route matching and API route classification.
Static assets are served from a separate public directory.
*/
package pages

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/detourhq/detour/pattern"
)

// Options for scanning the page registry.
type Options struct {

	// Dir is the pages directory. When empty, the registry holds no pages.
	Dir string

	// PublicDir is the static asset directory. When empty, no assets are
	// served.
	PublicDir string
}

// DynamicRoute is one entry of the ordered dynamic route table.
type DynamicRoute struct {
	// Page is the route path in bracket form, e.g. /blog/[post].
	Page string

	// Pattern is the compiled page pattern with an optional trailing
	// slash.
	Pattern *pattern.Pattern
}

// Registry holds the scanned page set. It is immutable after Scan and safe
// for concurrent use.
type Registry struct {
	publicDir string
	static    map[string]string // route path -> file path
	dynamic   []*DynamicRoute
	files     map[string]string // page -> file path, dynamic pages included
	has404    bool
}

// Scan walks the pages directory and builds the registry.
func Scan(o Options) (*Registry, error) {
	r := &Registry{
		publicDir: o.PublicDir,
		static:    map[string]string{},
		files:     map[string]string{},
	}

	if o.Dir == "" {
		return r, nil
	}

	err := filepath.WalkDir(o.Dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(o.Dir, name)
		if err != nil {
			return err
		}

		page := routePath(rel)
		r.files[page] = name
		if page == "/404" {
			r.has404 = true
		}

		if strings.ContainsRune(page, '[') {
			p, err := pattern.CompilePage(bracketsToPattern(page))
			if err != nil {
				return err
			}

			r.dynamic = append(r.dynamic, &DynamicRoute{Page: page, Pattern: p})
			return nil
		}

		r.static[page] = name
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortDynamic(r.dynamic)
	return r, nil
}

// routePath converts a file path relative to the pages directory to a route
// path: the extension is stripped, index files map to their directory.
func routePath(rel string) string {
	p := "/" + filepath.ToSlash(rel)
	p = strings.TrimSuffix(p, path.Ext(p))
	if path.Base(p) == "index" {
		p = path.Dir(p)
		if p == "/" {
			return "/"
		}
	}

	return p
}

// bracketsToPattern rewrites bracket segments to pattern tokens: [p] to :p,
// [...p] to :p+ and [[...p]] to :p*.
func bracketsToPattern(page string) string {
	segments := strings.Split(page, "/")
	for i, s := range segments {
		switch {
		case strings.HasPrefix(s, "[[...") && strings.HasSuffix(s, "]]"):
			segments[i] = ":" + s[5:len(s)-2] + "*"
		case strings.HasPrefix(s, "[...") && strings.HasSuffix(s, "]"):
			segments[i] = ":" + s[4:len(s)-1] + "+"
		case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
			segments[i] = ":" + s[1:len(s)-1]
		}
	}

	return strings.Join(segments, "/")
}

// sortDynamic keeps the dynamic route table in a stable resolution order:
// routes without catch-all parameters are tried first, catch-all routes
// last, ties broken by the page path. A concrete page always shadows all of
// them, so the order only decides between dynamic candidates.
func sortDynamic(routes []*DynamicRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		ci, cj := hasCatchAll(routes[i]), hasCatchAll(routes[j])
		if ci != cj {
			return !ci
		}

		return routes[i].Page < routes[j].Page
	})
}

func hasCatchAll(r *DynamicRoute) bool {
	for _, spec := range r.Pattern.Params() {
		if spec.Kind == pattern.KindCatchAll {
			return true
		}
	}

	return false
}

// Has reports whether an explicit, concrete page exists for the path.
func (r *Registry) Has(p string) bool {
	_, ok := r.static[normalize(p)]
	return ok
}

// Match matches the path against the dynamic route table, first match wins.
func (r *Registry) Match(p string) (string, *pattern.Params, bool) {
	for _, dr := range r.dynamic {
		if params, ok := dr.Pattern.Match(p); ok {
			return dr.Page, params, true
		}
	}

	return "", nil, false
}

// IsAPI reports whether the page belongs to the API subtree.
func (r *Registry) IsAPI(page string) bool {
	return page == "/api" || strings.HasPrefix(page, "/api/")
}

// Has404 reports whether a custom not-found page exists.
func (r *Registry) Has404() bool { return r.has404 }

// DynamicRoutes returns the ordered dynamic route table.
func (r *Registry) DynamicRoutes() []*DynamicRoute { return r.dynamic }

// HasAsset reports whether a static asset exists for the path in the public
// directory.
func (r *Registry) HasAsset(p string) bool {
	if r.publicDir == "" || p == "/" {
		return false
	}

	f, err := http.Dir(r.publicDir).Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// ServeAsset serves a static asset from the public directory.
func (r *Registry) ServeAsset(w http.ResponseWriter, req *http.Request, p string) {
	http.ServeFile(w, req, filepath.Join(r.publicDir, filepath.FromSlash(path.Clean("/"+p))))
}

// ServePage serves the file of a page resolved by Has or Match.
func (r *Registry) ServePage(w http.ResponseWriter, req *http.Request, page string) {
	name, ok := r.files[normalize(page)]
	if !ok {
		http.NotFound(w, req)
		return
	}

	http.ServeFile(w, req, name)
}

// Open opens the file of a page, used by build tooling.
func (r *Registry) Open(page string) (*os.File, error) {
	name, ok := r.files[normalize(page)]
	if !ok {
		return nil, os.ErrNotExist
	}

	return os.Open(name)
}

func normalize(p string) string {
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}

	if p == "" {
		p = "/"
	}

	return p
}
