package survey

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSessionStore_CreateGetRemove(t *testing.T) {
	s := NewSessionStore()
	sess, created := s.Create("CA1")
	if !created || sess.CallID != "CA1" {
		t.Fatalf("expected new session, got created=%v %+v", created, sess)
	}
	again, created := s.Create("CA1")
	if created || again != sess {
		t.Fatalf("duplicate create must return the existing session")
	}
	if got, ok := s.Get("CA1"); !ok || got != sess {
		t.Fatalf("get returned %v %v", got, ok)
	}
	s.Remove("CA1")
	if _, ok := s.Get("CA1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStore_ConcurrentCalls(t *testing.T) {
	s := NewSessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("CA%d", i)
			s.Create(id)
			if _, ok := s.Get(id); !ok {
				t.Errorf("session %s missing after create", id)
			}
			if i%2 == 0 {
				s.Remove(id)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 25 {
		t.Fatalf("expected 25 sessions, got %d", s.Len())
	}
}

func TestSessionStore_EvictIdle(t *testing.T) {
	s := NewSessionStore()
	old, _ := s.Create("CA-old")
	old.StartedAt = time.Now().Add(-2 * time.Hour)
	s.Create("CA-new")

	if n := s.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := s.Get("CA-old"); ok {
		t.Fatalf("stale session should be gone")
	}
	if _, ok := s.Get("CA-new"); !ok {
		t.Fatalf("fresh session should remain")
	}
}
