package profile

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStore_CreateGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := validProfile()

	created, err := s.Create(p)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(p.Name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(created) {
		t.Fatalf("Get() = %+v, want %+v", got, created)
	}
}

func TestStore_CreateConflict(t *testing.T) {
	s := newTestStore(t)
	p := validProfile()

	if _, err := s.Create(p); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := s.Create(p); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Create error = %v, want ErrConflict", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteThenRecreate(t *testing.T) {
	s := newTestStore(t)
	p := validProfile()
	p.Name = "x"

	if _, err := s.Create(p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete("x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete = %v, want ErrNotFound", err)
	}
	if _, err := s.Create(p); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestStore_DeleteNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListSortedAndSkipsInvalid(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"zeta", "alpha", "mike"} {
		p := validProfile()
		p.Name = name
		if _, err := s.Create(p); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	// Write a malformed profile directly; List must skip it, not fail.
	if err := s.writeAtomic(s.path("broken"), []byte("not valid hcl {{{")); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}

	profiles, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("List() returned %d profiles, want 3", len(profiles))
	}
	names := []string{profiles[0].Name, profiles[1].Name, profiles[2].Name}
	want := []string{"alpha", "mike", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d].Name = %q, want %q", i, names[i], want[i])
		}
	}
}
