package manifest

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

var titleColor = color.New(color.Bold, color.FgCyan)

// Fprint renders the human-readable build-log tables: one per category,
// listing source and destination, or header keys and values. The content is
// derived 1:1 from the manifest.
func (m *Manifest) Fprint(w io.Writer) error {
	if len(m.Redirects) > 0 {
		if err := printRules(w, "Redirects", m.Redirects, true); err != nil {
			return err
		}
	}

	if len(m.Rewrites) > 0 {
		if err := printRules(w, "Rewrites", m.Rewrites, false); err != nil {
			return err
		}
	}

	if len(m.Headers) > 0 {
		if err := printHeaders(w, m.Headers); err != nil {
			return err
		}
	}

	return nil
}

func printRules(w io.Writer, title string, rr []Rule, statusCode bool) error {
	titleColor.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
	if statusCode {
		fmt.Fprintln(tw, "source\tdestination\tstatusCode")
	} else {
		fmt.Fprintln(tw, "source\tdestination")
	}

	for _, r := range rr {
		if statusCode {
			code := r.StatusCode
			if code == 0 {
				code = 307
			}

			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Source, r.Destination, code)
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", r.Source, r.Destination)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)
	return err
}

func printHeaders(w io.Writer, rr []Rule) error {
	titleColor.Fprintln(w, "Headers")

	tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tkey\tvalue")
	for _, r := range rr {
		for i, h := range r.Headers {
			source := r.Source
			if i > 0 {
				source = ""
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\n", source, h.Key, h.Value)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)
	return err
}
