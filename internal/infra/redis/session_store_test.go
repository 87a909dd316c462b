package redis

import (
	"testing"
	"time"

	"timed-quiz/internal/engine"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	bank, err := engine.NewBank(nil)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	session, err := engine.NewSession("s1", bank, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	store.Put(session)
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
