package storage

import (
	"testing"
	"time"

	"github.com/markedit-studio/markedit/internal/session"
)

func TestSessionStore(t *testing.T) {
	store := New(3)

	created := store.Create()
	if created.ID == "" {
		t.Fatal("Expected a generated id")
	}
	got, ok := store.Get(created.ID)
	if !ok || got != created {
		t.Fatal("Expected to find the created session")
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Expected missing session not to be found")
	}

	store.Delete(created.ID)
	if _, ok := store.Get(created.ID); ok {
		t.Error("Expected session to be deleted")
	}
}

func TestGetAllOrder(t *testing.T) {
	store := New(0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		sess := session.New(id, 0)
		sess.CreatedAt = base.Add(time.Duration(2-i) * time.Minute)
		store.Set(id, sess)
	}

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(all))
	}
	expected := []string{"b", "a", "c"}
	for i, id := range expected {
		if all[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}
}
