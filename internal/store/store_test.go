package store

import (
	"sync"
	"testing"
)

func TestGetMissingKeyIsZero(t *testing.T) {
	s := New()
	if got := s.Get("nope"); got != 0 {
		t.Fatalf("Get(missing) = %d, want 0", got)
	}
}

func TestSetThenGet(t *testing.T) {
	s := New()
	s.Set("a", 5)
	if got := s.Get("a"); got != 5 {
		t.Fatalf("Get(a) = %d, want 5", got)
	}
	s.Set("a", 6)
	if got := s.Get("a"); got != 6 {
		t.Fatalf("Get(a) after overwrite = %d, want 6", got)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := New()
	s.Set("a", 1)
	snap := s.Snapshot()
	s.Set("a", 2)

	if snap["a"] != 1 {
		t.Fatalf("snapshot mutated by later write: got %d, want 1", snap["a"])
	}
	if s.Get("a") != 2 {
		t.Fatalf("live store not updated: got %d, want 2", s.Get("a"))
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			s.Set("k", n)
		}(int64(i))
		go func() {
			defer wg.Done()
			_ = s.Get("k")
		}()
	}
	wg.Wait()
}

func TestLogReplayReproducesState(t *testing.T) {
	src := New()
	log := NewLog()

	ops := []Proposal{
		{Timestamp: 1, Origin: 0, Op: Op{Kind: OpSet, Key: "a", Value: 1}},
		{Timestamp: 2, Origin: 0, Op: Op{Kind: OpSet, Key: "b", Value: 2}},
		{Timestamp: 3, Origin: 1, Op: Op{Kind: OpGet, Key: "a"}},
		{Timestamp: 4, Origin: 0, Op: Op{Kind: OpSet, Key: "a", Value: 9}},
	}
	for _, p := range ops {
		if p.Op.Kind == OpSet {
			src.Set(p.Op.Key, p.Op.Value)
		}
		log.Append(p)
	}

	fresh := New()
	log.ReplayInto(fresh)

	want := src.Snapshot()
	got := fresh.Snapshot()
	if len(want) != len(got) {
		t.Fatalf("replayed store has %d keys, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("replayed store[%q] = %d, want %d", k, got[k], v)
		}
	}
}

func TestLogEntriesAreOrderedAndCopied(t *testing.T) {
	log := NewLog()
	log.Append(Proposal{Timestamp: 1, Origin: 0})
	log.Append(Proposal{Timestamp: 2, Origin: 1})

	entries := log.Entries()
	entries[0].Timestamp = 99 // mutating the copy must not affect the log

	again := log.Entries()
	if again[0].Timestamp != 1 {
		t.Fatalf("Entries() leaked internal slice: got %d, want 1", again[0].Timestamp)
	}
	if len(again) != 2 || again[1].Timestamp != 2 {
		t.Fatalf("Entries() out of order: %+v", again)
	}
}
