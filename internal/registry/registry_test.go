package registry

import "testing"

type fakeItem struct{ name string }

func (f fakeItem) RegistryName() string { return f.name }

func TestRegisterAndGet(t *testing.T) {
	r := New[fakeItem]()
	if err := r.Register(fakeItem{name: "alpha"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.name != "alpha" {
		t.Fatalf("got %q, want alpha", got.name)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New[fakeItem]()
	_ = r.Register(fakeItem{name: "alpha"})
	if err := r.Register(fakeItem{name: "alpha"}); err == nil {
		t.Fatalf("expected error registering a duplicate name")
	}
}

func TestAliasResolvesSingleHop(t *testing.T) {
	r := New[fakeItem]()
	_ = r.Register(fakeItem{name: "alpha"})
	if err := r.RegisterAlias("a", "alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Get("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.name != "alpha" {
		t.Fatalf("got %q, want alpha", got.name)
	}
}

func TestAliasRejectsSelfShadowAndChains(t *testing.T) {
	r := New[fakeItem]()
	_ = r.Register(fakeItem{name: "alpha"})
	_ = r.Register(fakeItem{name: "beta"})
	_ = r.RegisterAlias("a", "alpha")

	if err := r.RegisterAlias("alpha", "alpha"); err == nil {
		t.Fatalf("expected error for self-alias")
	}
	if err := r.RegisterAlias("beta", "alpha"); err == nil {
		t.Fatalf("expected error aliasing over an existing canonical name")
	}
	if err := r.RegisterAlias("b", "a"); err == nil {
		t.Fatalf("expected error chaining an alias to another alias")
	}
}

func TestQuarantineRefusesWithoutRemovingName(t *testing.T) {
	r := New[fakeItem]()
	_ = r.Register(fakeItem{name: "alpha"})
	r.MarkQuarantined("alpha", "source file broke")

	if _, err := r.Get("alpha"); err == nil {
		t.Fatalf("expected ErrQuarantined")
	} else if _, ok := err.(*ErrQuarantined); !ok {
		t.Fatalf("expected *ErrQuarantined, got %T", err)
	}
	if !r.Contains("alpha") {
		t.Fatalf("quarantined name should still be considered occupied")
	}
	if reason, ok := r.IsQuarantined("alpha"); !ok || reason != "source file broke" {
		t.Fatalf("IsQuarantined = (%q, %v)", reason, ok)
	}
}

func TestGetNotFound(t *testing.T) {
	r := New[fakeItem]()
	if _, err := r.Get("missing"); err == nil {
		t.Fatalf("expected ErrNotFound")
	} else if _, ok := err.(*ErrNotFound); !ok {
		t.Fatalf("expected *ErrNotFound, got %T", err)
	}
}

func TestIterateSortedAndLength(t *testing.T) {
	r := New[fakeItem]()
	_ = r.Register(fakeItem{name: "zeta"})
	_ = r.Register(fakeItem{name: "alpha"})
	items := r.Iterate()
	if len(items) != 2 || items[0].name != "alpha" || items[1].name != "zeta" {
		t.Fatalf("Iterate() = %+v, want sorted [alpha zeta]", items)
	}
	if r.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", r.Length())
	}
}
