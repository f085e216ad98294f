package flowid

import (
	"net/http"
	"testing"
)

func TestStandardGenerator(t *testing.T) {
	if _, err := NewStandardGenerator(MinLength - 1); err != ErrInvalidLen {
		t.Errorf("expected ErrInvalidLen, got %v", err)
	}

	if _, err := NewStandardGenerator(MaxLength + 1); err != ErrInvalidLen {
		t.Errorf("expected ErrInvalidLen, got %v", err)
	}

	g, err := NewStandardGenerator(DefaultLength)
	if err != nil {
		t.Fatal(err)
	}

	id, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if len(id) != DefaultLength {
		t.Errorf("id length: %d", len(id))
	}

	if !g.IsValid(id) {
		t.Errorf("generated id is not valid: %s", id)
	}

	if g.IsValid("short") || g.IsValid("contains spaces !") {
		t.Error("invalid ids accepted")
	}
}

func TestULIDGenerator(t *testing.T) {
	g := NewULIDGenerator()

	id := g.MustGenerate()
	if len(id) != 26 {
		t.Errorf("ulid length: %d", len(id))
	}

	if !g.IsValid(id) {
		t.Errorf("generated ulid is not valid: %s", id)
	}

	if g.IsValid("not a ulid") {
		t.Error("invalid ulid accepted")
	}
}

func TestSet(t *testing.T) {
	g, _ := NewStandardGenerator(DefaultLength)

	r, _ := http.NewRequest("GET", "/", nil)
	id := Set(r, g, false)
	if id == "" || r.Header.Get(HeaderName) != id {
		t.Errorf("flow id not set: %q", id)
	}

	// reuse keeps a valid inbound id
	r, _ = http.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderName, "valid-inbound-id")
	if got := Set(r, g, true); got != "valid-inbound-id" {
		t.Errorf("valid inbound id not reused: %q", got)
	}

	// without reuse the inbound id is replaced
	r, _ = http.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderName, "valid-inbound-id")
	if got := Set(r, g, false); got == "valid-inbound-id" {
		t.Error("inbound id unexpectedly reused")
	}

	// an invalid inbound id is replaced even with reuse
	r, _ = http.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderName, "bad id!")
	if got := Set(r, g, true); got == "bad id!" || !g.IsValid(got) {
		t.Errorf("invalid inbound id not replaced: %q", got)
	}
}
