package memorylimiter

import (
	"testing"
	"time"
)

func TestAllowNamedWithinLimit(t *testing.T) {
	l := New(map[string]Limit{"login": {Limit: 3, Window: time.Minute}})

	for i := 0; i < 3; i++ {
		ok, err := l.AllowNamed("login", "ip:1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("hit %d should be allowed: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, _ := l.AllowNamed("login", "ip:1.2.3.4")
	if ok {
		t.Fatalf("fourth hit should be blocked")
	}

	// Other keys have their own budget.
	if ok, _ := l.AllowNamed("login", "ip:5.6.7.8"); !ok {
		t.Fatalf("different key should be allowed")
	}
}

func TestAllowNamedUnknownBucketFallsBack(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Minute}})

	if ok, _ := l.AllowNamed("other", "k"); !ok {
		t.Fatalf("first hit should be allowed")
	}
	if ok, _ := l.AllowNamed("other", "k"); ok {
		t.Fatalf("second hit should fall back to default limit")
	}
}

func TestAllowNamedNoLimitsConfigured(t *testing.T) {
	l := New(nil)
	if ok, _ := l.AllowNamed("anything", "k"); !ok {
		t.Fatalf("unlimited bucket should allow")
	}
}
