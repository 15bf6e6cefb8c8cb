package localstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, KeyDeviceID, []byte("device-1")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, ok, err := s.Get(ctx, KeyDeviceID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != "device-1" {
		t.Errorf("Get() = %q, want device-1", got)
	}
}

func TestGet_MissingKey(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() ok = true for missing key, want false")
	}
}

func TestPut_Overwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, KeyProgress, []byte("v1")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := s.Put(ctx, KeyProgress, []byte("v2")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, _, err := s.Get(ctx, KeyProgress)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get() = %q, want v2", got)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{KeyLicenseCache, KeyOfflineUsed, KeyProgress} {
		if err := s.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put(%s) error: %v", key, err)
		}
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}

	for _, key := range []string{KeyLicenseCache, KeyOfflineUsed, KeyProgress} {
		if _, ok, _ := s.Get(ctx, key); ok {
			t.Errorf("key %s survived Reset", key)
		}
	}
}

func TestDelete_AbsentKeyIsNoError(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete(context.Background(), "absent"); err != nil {
		t.Errorf("Delete() error: %v", err)
	}
}
