package detour

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testRules = `
redirects:
- source: /old/:id
  destination: /new/:id
rewrites:
- source: /eng/:rest*
  destination: /engineering/:rest*
`

func writeRules(t *testing.T) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(name, []byte(testRules), 0o644); err != nil {
		t.Fatal(err)
	}

	return name
}

func TestRunAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	sigs := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(Options{
			RulesFile:         writeRules(t),
			AccessLogDisabled: true,
			testListener:      l,
			testSignals:       sigs,
		})
	}()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rsp, err := client.Get(fmt.Sprintf("http://%v/old/42", l.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	rsp.Body.Close()

	if rsp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("got status %d", rsp.StatusCode)
	}

	if loc := rsp.Header.Get("Location"); loc != "/new/42" {
		t.Errorf("got location %q", loc)
	}

	sigs <- os.Interrupt
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("shutdown timeout")
	}
}

func TestRunFailsOnBrokenRules(t *testing.T) {
	name := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(name, []byte("redirects:\n- source: /((\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Run(Options{RulesFile: name, AccessLogDisabled: true}); err == nil {
		t.Error("expected startup failure")
	}
}

func TestBuildManifest(t *testing.T) {
	m, err := BuildManifest(Options{RulesFile: writeRules(t)})
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Redirects) != 1 || len(m.Rewrites) != 1 {
		t.Errorf("got %d redirects, %d rewrites", len(m.Redirects), len(m.Rewrites))
	}
}
