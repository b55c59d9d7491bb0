package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbellamy/maestro/internal/adapter/tiered"
)

// fakeLevel records calls so tests can tell which level served a read.
type fakeLevel struct {
	data    map[string][]byte
	gets    int
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newFakeLevel() *fakeLevel {
	return &fakeLevel{data: make(map[string][]byte)}
}

func (f *fakeLevel) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.gets++
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeLevel) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.lastTTL = ttl
	return nil
}

func (f *fakeLevel) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func TestGetServedFromLocal(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	local.data["k"] = []byte("v")
	c := tiered.New(local, shared, time.Minute)

	val, ok, err := c.Get(context.Background(), "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get = %q, %v, %v", val, ok, err)
	}
	if shared.gets != 0 {
		t.Errorf("shared level consulted %d times on a local hit", shared.gets)
	}
}

func TestGetSharedHitBackfillsLocal(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	shared.data["k"] = []byte("v")
	c := tiered.New(local, shared, 30*time.Second)

	val, ok, err := c.Get(context.Background(), "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get = %q, %v, %v", val, ok, err)
	}
	if string(local.data["k"]) != "v" {
		t.Fatal("shared hit not backfilled into local")
	}
	if local.lastTTL != 30*time.Second {
		t.Errorf("backfill TTL = %v, want 30s", local.lastTTL)
	}
}

func TestGetMissesBothLevels(t *testing.T) {
	c := tiered.New(newFakeLevel(), newFakeLevel(), time.Minute)

	_, ok, err := c.Get(context.Background(), "absent")
	if err != nil || ok {
		t.Fatalf("Get = _, %v, %v; want miss without error", ok, err)
	}
}

func TestGetFailingLocalFallsThroughToShared(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	local.getErr = errors.New("evicted backend")
	shared.data["k"] = []byte("v")
	c := tiered.New(local, shared, time.Minute)

	val, ok, err := c.Get(context.Background(), "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get = %q, %v, %v; want shared value", val, ok, err)
	}
}

func TestGetFailingSharedReadsAsMiss(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	shared.getErr = errors.New("kv unavailable")
	c := tiered.New(local, shared, time.Minute)

	_, ok, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get returned error %v; a failing level must read as a miss", err)
	}
	if ok {
		t.Fatal("Get reported a hit from a failing level")
	}
}

func TestSetWritesBothLevels(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	c := tiered.New(local, shared, time.Minute)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if string(local.data["k"]) != "v" || string(shared.data["k"]) != "v" {
		t.Error("value missing from a level after Set")
	}
}

func TestSetReportsFailureButWritesTheOtherLevel(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	shared.setErr = errors.New("kv unavailable")
	c := tiered.New(local, shared, time.Minute)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Hour); err == nil {
		t.Fatal("Set swallowed the shared-level failure")
	}
	if string(local.data["k"]) != "v" {
		t.Error("local level skipped after shared failure")
	}
}

func TestDeleteRemovesFromBothLevels(t *testing.T) {
	local, shared := newFakeLevel(), newFakeLevel()
	local.data["k"] = []byte("v")
	shared.data["k"] = []byte("v")
	c := tiered.New(local, shared, time.Minute)

	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := local.data["k"]; ok {
		t.Error("key still in local")
	}
	if _, ok := shared.data["k"]; ok {
		t.Error("key still in shared")
	}
}
