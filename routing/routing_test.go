package routing

import (
	"sync"
	"testing"
	"time"

	"github.com/detourhq/detour/rules"
)

type testClient struct {
	mu      sync.Mutex
	config  *rules.Config
	changed bool
	err     error
}

func (c *testClient) LoadAll() (*rules.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config, c.err
}

func (c *testClient) LoadUpdate() (*rules.Config, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}

	changed := c.changed
	c.changed = false
	return c.config, changed, nil
}

func (c *testClient) update(config *rules.Config, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
	c.changed = true
	c.err = err
}

func waitForTable(t *testing.T, r *Routing, check func(*Table) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if check(r.Get()) {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("timeout waiting for the routing table to update")
}

func TestRoutingSwapsTableOnUpdate(t *testing.T) {
	client := &testClient{config: &rules.Config{
		Redirects: []*rules.Rule{{Source: "/old", Destination: "/new"}},
	}}

	r, err := New(Options{
		Client:      client,
		Watch:       true,
		PollTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	p, err := r.Get().Plan("/old", nil)
	if err != nil || p.Outcome != Redirect {
		t.Fatalf("initial table: %+v, %v", p, err)
	}

	client.update(&rules.Config{
		Redirects: []*rules.Rule{{Source: "/old", Destination: "/brand-new"}},
	}, nil)

	waitForTable(t, r, func(table *Table) bool {
		p, err := table.Plan("/old", nil)
		return err == nil && p.Location == "/brand-new"
	})
}

func TestRoutingKeepsTableOnBrokenUpdate(t *testing.T) {
	client := &testClient{config: &rules.Config{
		Redirects: []*rules.Rule{{Source: "/old", Destination: "/new"}},
	}}

	r, err := New(Options{
		Client:      client,
		Watch:       true,
		PollTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	client.update(&rules.Config{
		Redirects: []*rules.Rule{{Source: "/broken/(unbalanced", Destination: "/new"}},
	}, nil)

	// the broken interim configuration fails to compile, the last good
	// table keeps serving
	time.Sleep(50 * time.Millisecond)
	p, err := r.Get().Plan("/old", nil)
	if err != nil || p.Outcome != Redirect || p.Location != "/new" {
		t.Fatalf("table changed unexpectedly: %+v, %v", p, err)
	}
}
