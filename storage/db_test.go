package storage

import (
	"errors"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	key := []byte("credential/users/aa")
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := db.Has(key); err != nil || ok {
		t.Fatalf("unexpected Has result: %v %v", ok, err)
	}

	if err := db.Put(key, []byte("profile")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "profile" {
		t.Fatalf("unexpected value %q", got)
	}
	if ok, err := db.Has(key); err != nil || !ok {
		t.Fatalf("unexpected Has result: %v %v", ok, err)
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}

	// Mutating the returned slice must not corrupt the store either.
	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("read aliased stored buffer: %q", again)
	}
}
