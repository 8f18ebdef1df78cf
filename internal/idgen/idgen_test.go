package idgen

import (
	"regexp"
	"strings"
	"sync"
	"testing"
)

func TestGenerate_Shape(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(DefaultPrefix) + `[a-zA-Z0-9]{10}$`)
	for i := 0; i < 100; i++ {
		id, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("Generate() = %q, does not match %s", id, pattern)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("evt-")
	id, err := gen()
	if err != nil {
		t.Fatalf("Prefixed()() error: %v", err)
	}
	if !strings.HasPrefix(id, "evt-") {
		t.Errorf("id = %q, want prefix %q", id, "evt-")
	}
	if want := len("evt-") + Length; len(id) != want {
		t.Errorf("len(id) = %d, want %d", len(id), want)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("e")
	for _, want := range []string{"e1", "e2", "e3"} {
		got, err := gen()
		if err != nil {
			t.Fatalf("Sequence()() error: %v", err)
		}
		if got != want {
			t.Errorf("Sequence()() = %q, want %q", got, want)
		}
	}
}

func TestSequence_Concurrent(t *testing.T) {
	gen := Sequence("c")
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id, _ := gen()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Errorf("got %d unique ids, want 800", len(seen))
	}
}
