/*
Package routing builds the read-only routing table from compiled rules and
the page registry, and plans the handling of individual requests.

The table is compiled once from a rule configuration. Updates from a
watching rule client produce a complete new table that is swapped in through
a feed channel, so per-request planning never observes a partially updated
rule set and needs no locking.
*/
package routing

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/detourhq/detour/pages"
	"github.com/detourhq/detour/rules"
)

const defaultPollTimeout = 3 * time.Second

// Options to initialize the routing instance.
type Options struct {

	// Client provides the rule configuration.
	Client rules.Client

	// Pages is the page registry used by the resolution stage.
	Pages *pages.Registry

	// PollTimeout is the period of polling the rule client for updates.
	// Polling is only started in watch mode.
	PollTimeout time.Duration

	// Watch enables polling the client for configuration updates.
	Watch bool

	// MaxRewrites bounds the rewrite chain. Defaults to
	// DefaultMaxRewrites.
	MaxRewrites int
}

// Routing provides the current routing table. The table returned by Get is
// immutable, requests planned against it are unaffected by later updates.
type Routing struct {
	getTable <-chan *Table
	quit     chan struct{}
}

func feedTables(current *Table, quit <-chan struct{}) (chan<- *Table, <-chan *Table) {
	in := make(chan *Table)
	out := make(chan *Table)

	go func() {
		for {
			select {
			case current = <-in:
			case out <- current:
			case <-quit:
				return
			}
		}
	}()

	return in, out
}

// New creates a routing instance with the initial table loaded from the
// client. It fails when the initial configuration cannot be loaded or
// compiled.
func New(o Options) (*Routing, error) {
	config, err := o.Client.LoadAll()
	if err != nil {
		return nil, err
	}

	initial, err := NewTable(config, o.Pages, o.MaxRewrites)
	if err != nil {
		return nil, err
	}

	r := &Routing{quit: make(chan struct{})}
	tablesIn, tablesOut := feedTables(initial, r.quit)
	r.getTable = tablesOut

	if o.Watch {
		if o.PollTimeout <= 0 {
			o.PollTimeout = defaultPollTimeout
		}

		go r.receive(o, tablesIn)
	}

	return r, nil
}

// receive polls the rule client and swaps in recompiled tables. A broken
// interim configuration keeps the last good table.
func (r *Routing) receive(o Options, tablesIn chan<- *Table) {
	ticker := time.NewTicker(o.PollTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			config, changed, err := o.Client.LoadUpdate()
			if err != nil {
				log.Errorf("rule update failed, keeping the previous table: %v", err)
				continue
			}

			if !changed {
				continue
			}

			t, err := NewTable(config, o.Pages, o.MaxRewrites)
			if err != nil {
				log.Errorf("rule compilation failed, keeping the previous table: %v", err)
				continue
			}

			log.Infof(
				"routing table updated: %d redirects, %d rewrites, %d header rules",
				len(t.redirects), len(t.rewrites), len(t.headers),
			)
			select {
			case tablesIn <- t:
			case <-r.quit:
				return
			}
		case <-r.quit:
			return
		}
	}
}

// Get returns the current routing table.
func (r *Routing) Get() *Table {
	return <-r.getTable
}

// Close stops receiving rule updates.
func (r *Routing) Close() {
	close(r.quit)
}
