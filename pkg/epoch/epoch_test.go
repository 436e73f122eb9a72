package epoch

import "testing"

func TestBumpMonotonicallyIncreases(t *testing.T) {
	var c Counter
	prev := c.Value()
	for i := 0; i < 100; i++ {
		g := c.Bump()
		if g <= prev {
			t.Fatalf("Bump %d: got %d, want > %d", i, g, prev)
		}
		prev = g
	}
}

func TestStartsFromZero(t *testing.T) {
	var c Counter
	if v := c.Value(); v != 0 {
		t.Fatalf("new counter: got %d, want 0", v)
	}
	if g := c.Bump(); g != 1 {
		t.Fatalf("first Bump: got %d, want 1", g)
	}
}

func TestCurrentUntilBumped(t *testing.T) {
	var c Counter
	tok := c.Value()
	if !c.Current(tok) {
		t.Fatal("freshly captured token should be current")
	}
	c.Bump()
	if c.Current(tok) {
		t.Fatal("token should be stale after Bump")
	}
	if !c.Current(c.Value()) {
		t.Fatal("re-captured token should be current")
	}
}

func TestStaleTokenNeverRevives(t *testing.T) {
	var c Counter
	tok := c.Value()
	for i := 0; i < 10; i++ {
		c.Bump()
		if c.Current(tok) {
			t.Fatalf("stale token reported current after %d bumps", i+1)
		}
	}
}
