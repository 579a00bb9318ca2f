package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	names := []string{"Knight", "Gremlin"}
	if err := c.Put(CardNamesKey(201820), names, time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var got []string
	hit, err := c.Get(CardNamesKey(201820), &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0] != "Knight" {
		t.Errorf("unexpected cached value: %v", got)
	}
}

func TestMissAndExpiry(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var got []string
	hit, err := c.Get("absent", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if hit {
		t.Error("expected miss for absent key")
	}

	if err := c.Put("short", []string{"x"}, time.Nanosecond); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	hit, err = c.Get("short", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if hit {
		t.Error("expected expired entry to miss")
	}
}

func TestPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := first.Put("k", "v", 0); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	var got string
	hit, err := second.Get("k", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !hit || got != "v" {
		t.Errorf("expected persisted value, hit=%v got=%q", hit, got)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	c, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var got string
	hit, err := c.Get("anything", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if hit {
		t.Error("corrupt cache must behave as empty")
	}
}
