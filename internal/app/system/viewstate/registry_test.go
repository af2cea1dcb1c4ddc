package viewstate

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeView struct {
	name        string
	deactivated atomic.Int32
}

func (f *fakeView) Deactivate() { f.deactivated.Add(1) }

type otherView struct{}

func (otherView) Deactivate() {}

func TestGetCreatesOnceAndReuses(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())
	created := 0
	mk := func() *fakeView { created++; return &fakeView{name: "a"} }

	v1 := Get(r, "s1", "admin", mk)
	v2 := Get(r, "s1", "admin", mk)
	if v1 != v2 || created != 1 {
		t.Errorf("expected reuse, created=%d", created)
	}

	v3 := Get(r, "s2", "admin", mk)
	if v3 == v1 || created != 2 {
		t.Error("different session should get its own view")
	}
	if r.Len() != 2 {
		t.Errorf("Len: got %d", r.Len())
	}
}

func TestLookup(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	if _, ok := Lookup[*fakeView](r, "s1", "user"); ok {
		t.Error("Lookup on empty registry should miss")
	}
	v := Get(r, "s1", "user", func() *fakeView { return &fakeView{} })
	got, ok := Lookup[*fakeView](r, "s1", "user")
	if !ok || got != v {
		t.Error("Lookup should return the stored view")
	}
	if _, ok := Lookup[otherView](r, "s1", "user"); ok {
		t.Error("Lookup with the wrong type should miss")
	}
}

func TestDropSessionDeactivates(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	a := Get(r, "s1", "admin", func() *fakeView { return &fakeView{} })
	u := Get(r, "s1", "user", func() *fakeView { return &fakeView{} })
	keep := Get(r, "s2", "user", func() *fakeView { return &fakeView{} })

	if n := r.DropSession("s1"); n != 2 {
		t.Errorf("DropSession: got %d", n)
	}
	if a.deactivated.Load() != 1 || u.deactivated.Load() != 1 {
		t.Error("dropped views should be deactivated")
	}
	if keep.deactivated.Load() != 0 || r.Len() != 1 {
		t.Error("other sessions should be untouched")
	}
}

func TestSweepEvictsIdleViews(t *testing.T) {
	r := NewRegistry(10*time.Minute, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale := Get(r, "s1", "admin", func() *fakeView { return &fakeView{} })
	now = now.Add(8 * time.Minute)
	fresh := Get(r, "s2", "admin", func() *fakeView { return &fakeView{} })
	now = now.Add(5 * time.Minute)

	if n := r.Sweep(); n != 1 {
		t.Fatalf("Sweep: got %d", n)
	}
	if stale.deactivated.Load() != 1 || fresh.deactivated.Load() != 0 {
		t.Error("only the idle view should be evicted")
	}
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	a := Get(r, "s1", "admin", func() *fakeView { return &fakeView{} })
	b := Get(r, "s2", "user", func() *fakeView { return &fakeView{} })
	r.CloseAll()
	if r.Len() != 0 || a.deactivated.Load() != 1 || b.deactivated.Load() != 1 {
		t.Error("CloseAll should deactivate and forget every view")
	}
}
