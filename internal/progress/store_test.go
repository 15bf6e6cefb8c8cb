package progress

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	doc "github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/localstore"
)

type fakeDocs struct {
	mu      sync.Mutex
	docs    map[string][]byte
	readErr error
	gate    chan struct{} // when set, the first Write blocks until closed
	gated   bool
	writes  int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string][]byte)}
}

func (f *fakeDocs) Read(_ context.Context, path string) (*doc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	content, ok := f.docs[path]
	if !ok {
		return nil, doc.ErrNotFound
	}
	return &doc.Document{Content: content, SHA: "sha"}, nil
}

func (f *fakeDocs) Write(_ context.Context, path string, content []byte, _ string) error {
	f.mu.Lock()
	if f.gate != nil && !f.gated {
		f.gated = true
		gate := f.gate
		f.mu.Unlock()
		<-gate
		f.mu.Lock()
	}
	defer f.mu.Unlock()
	f.writes++
	f.docs[path] = content
	return nil
}

func (f *fakeDocs) firstWriteBlocked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gated
}

func (f *fakeDocs) stored(t *testing.T, path string) *Record {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.docs[path]
	if !ok {
		t.Fatalf("no document at %s", path)
	}
	var rec Record
	if err := json.Unmarshal(content, &rec); err != nil {
		t.Fatalf("decode stored document: %v", err)
	}
	return &rec
}

func testLocal(t *testing.T) *localstore.Store {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

func TestStore_SaveWritesMirrorAndRemote(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	s := NewStore(docs, testLocal(t), nil)

	rec := NewRecord("LICENSE-001-ABCDE")
	rec.Section = 3
	rec.Scores[0] = 42
	rec.Scores[1] = 17
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stored := docs.stored(t, "progress/LICENSE-001-ABCDE.json")
	if stored.Section != 3 {
		t.Errorf("remote Section = %d, want 3", stored.Section)
	}
	if stored.TotalScore != 59 {
		t.Errorf("remote TotalScore = %d, want 59", stored.TotalScore)
	}
	if stored.LastSaved.IsZero() {
		t.Error("remote LastSaved not set")
	}
}

func TestStore_SaveWithoutRemoteStaysLocal(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, testLocal(t), nil)

	rec := NewRecord("LICENSE-001-ABCDE")
	rec.Index = 5
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx, "LICENSE-001-ABCDE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Index != 5 {
		t.Errorf("Index = %d, want 5", loaded.Index)
	}
}

func TestStore_LoadPrefersRemote(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	local := testLocal(t)
	s := NewStore(docs, local, nil)

	stale := NewRecord("LICENSE-001-ABCDE")
	stale.Section = 1
	if err := s.Save(ctx, stale); err != nil {
		t.Fatalf("Save: %v", err)
	}

	remote := NewRecord("LICENSE-001-ABCDE")
	remote.Section = 5
	data, _ := json.Marshal(remote)
	docs.docs["progress/LICENSE-001-ABCDE.json"] = data

	loaded, err := s.Load(ctx, "LICENSE-001-ABCDE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Section != 5 {
		t.Errorf("Section = %d, want remote 5", loaded.Section)
	}
}

func TestStore_LoadFallsBackToMirrorOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	local := testLocal(t)
	s := NewStore(docs, local, nil)

	rec := NewRecord("LICENSE-001-ABCDE")
	rec.Section = 4
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	docs.readErr = &doc.TransportError{Op: "read", Status: 502, Err: errors.New("bad gateway")}
	loaded, err := s.Load(ctx, "LICENSE-001-ABCDE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Section != 4 {
		t.Errorf("Section = %d, want mirrored 4", loaded.Section)
	}
}

func TestStore_LoadIgnoresMirrorForOtherKey(t *testing.T) {
	ctx := context.Background()
	local := testLocal(t)
	s := NewStore(nil, local, nil)

	rec := NewRecord("LICENSE-001-ABCDE")
	rec.Section = 6
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx, "LICENSE-002-FGHIJ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Section != 1 || loaded.LicenseKey != "LICENSE-002-FGHIJ" {
		t.Errorf("got %+v, want a fresh record for the requested key", loaded)
	}
}

func TestStore_LoadMissingEverywhereStartsFresh(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeDocs(), testLocal(t), nil)

	rec, err := s.Load(ctx, "LICENSE-001-ABCDE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Section != 1 || rec.Index != 0 {
		t.Errorf("fresh record = %+v", rec)
	}
	for i, st := range rec.Status {
		if st != StatusNotStarted {
			t.Errorf("Status[%d] = %q, want %q", i, st, StatusNotStarted)
		}
	}
}

func TestStore_ConcurrentSavesReachRemoteInOrder(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	gate := make(chan struct{})
	docs.gate = gate
	s := NewStore(docs, testLocal(t), nil)

	old := NewRecord("LICENSE-001-ABCDE")
	old.Index = 1

	done := make(chan error, 2)
	go func() { done <- s.Save(ctx, old) }()
	for !docs.firstWriteBlocked() {
		time.Sleep(time.Millisecond)
	}

	// Issue a newer snapshot while the old write is stalled mid-flight.
	newer := NewRecord("LICENSE-001-ABCDE")
	newer.Index = 9
	go func() { done <- s.Save(ctx, newer) }()

	close(gate)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	stored := docs.stored(t, "progress/LICENSE-001-ABCDE.json")
	if stored.Index != 9 {
		t.Errorf("remote Index = %d, want 9 (stale save must not win)", stored.Index)
	}
}

func TestStore_SupersededSaveSkipsRemoteWrite(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	s := NewStore(docs, testLocal(t), nil)

	// Pretend a later snapshot already landed.
	s.applied = 5

	rec := NewRecord("LICENSE-001-ABCDE")
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if docs.writes != 0 {
		t.Errorf("writes = %d, want 0 for a superseded snapshot", docs.writes)
	}
}

func TestStore_SaveSnapshotIsolatedFromLiveRecord(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	s := NewStore(docs, testLocal(t), nil)

	live := NewRecord("LICENSE-001-ABCDE")
	live.Index = 3
	live.Answers = [][]string{{"A"}}
	snap := live.Clone()

	// The update loop keeps mutating the live record while the save is
	// in flight on another goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			live.Index = i
			live.Scores[0] = i
			live.Answers[0][0] = "B"
		}
	}()

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	<-done

	stored := docs.stored(t, "progress/LICENSE-001-ABCDE.json")
	if stored.Index != 3 {
		t.Errorf("remote Index = %d, want the snapshot's 3", stored.Index)
	}
	if stored.Answers[0][0] != "A" {
		t.Errorf("remote answer = %q, want the snapshot's A", stored.Answers[0][0])
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := NewRecord("LICENSE-001-ABCDE")
	rec.Answers = [][]string{{"A", "C"}}
	rec.Scores[2] = 7

	c := rec.Clone()
	rec.Answers[0][0] = "B"
	rec.Scores[2] = 0
	rec.Status[0] = StatusCompleted

	if c.Answers[0][0] != "A" {
		t.Errorf("clone answer = %q, want A", c.Answers[0][0])
	}
	if c.Scores[2] != 7 {
		t.Errorf("clone Scores[2] = %d, want 7", c.Scores[2])
	}
	if c.Status[0] != StatusNotStarted {
		t.Errorf("clone Status[0] = %q, want %q", c.Status[0], StatusNotStarted)
	}
}

func TestStore_AnonymousSaveFiledUnderDeviceID(t *testing.T) {
	ctx := context.Background()
	docs := newFakeDocs()
	s := NewStore(docs, testLocal(t), nil)

	rec := NewRecord("")
	rec.Index = 4
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if docs.writes != 0 {
		t.Errorf("writes = %d, want 0 (anonymous progress never leaves the device)", docs.writes)
	}

	id, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	loaded, err := s.Load(ctx, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LicenseKey != id {
		t.Errorf("LicenseKey = %q, want device id %q", loaded.LicenseKey, id)
	}
	if loaded.Index != 4 {
		t.Errorf("Index = %d, want 4", loaded.Index)
	}
}

func TestStore_RecordNormalizeRepairsShortArrays(t *testing.T) {
	rec := &Record{LicenseKey: "k", Scores: []int{10}, Status: []string{"completed", "bogus"}}
	rec.Normalize()

	if len(rec.Scores) != 8 || len(rec.Status) != 8 {
		t.Fatalf("lengths = %d/%d, want 8/8", len(rec.Scores), len(rec.Status))
	}
	if rec.Status[0] != StatusCompleted {
		t.Errorf("Status[0] = %q, want kept", rec.Status[0])
	}
	if rec.Status[1] != StatusNotStarted {
		t.Errorf("Status[1] = %q, want repaired to not-started", rec.Status[1])
	}
	if rec.Section != 1 {
		t.Errorf("Section = %d, want clamped to 1", rec.Section)
	}
}

func TestStore_DeviceIDStable(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, testLocal(t), nil)

	first, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if first == "" {
		t.Fatal("empty device id")
	}
	second, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if first != second {
		t.Errorf("device id changed: %q vs %q", first, second)
	}
}
