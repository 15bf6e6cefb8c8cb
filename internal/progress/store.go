package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	doc "github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/localstore"
)

// Store persists progress records. Every save lands in the local mirror
// first, then in the remote document store when one is configured. Saves
// carry a monotonic sequence number so a slow remote write for an old
// snapshot never overwrites a newer one.
type Store struct {
	docs  doc.Client
	local *localstore.Store
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	seq     uint64
	applied uint64

	// writeMu serializes remote writes so snapshots reach the store in
	// the order they were taken.
	writeMu sync.Mutex
}

// NewStore wires a progress store. docs may be nil when no remote is
// configured; saves then stay local only.
func NewStore(docs doc.Client, local *localstore.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		docs:  docs,
		local: local,
		log:   log,
		now:   time.Now,
	}
}

func documentPath(licenseKey string) string {
	return "progress/" + licenseKey + ".json"
}

// Save writes the record to the local mirror and then to the remote
// store. Remote failures are not fatal as long as the mirror write
// succeeded; they are logged and the record survives locally. The record
// must be a private snapshot (see Record.Clone); Save stamps and encodes
// it off the caller's goroutine.
//
// A record with no license key is filed under the device identifier and
// never leaves this machine.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	anonymous := rec.LicenseKey == ""
	if anonymous {
		id, err := s.DeviceID(ctx)
		if err != nil {
			return err
		}
		rec.LicenseKey = id
	}

	rec.LastSaved = s.now().UTC()
	rec.TotalScore = rec.Total()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	mirrorErr := s.local.Put(ctx, localstore.KeyProgress, data)
	s.mu.Unlock()

	if mirrorErr != nil {
		return fmt.Errorf("mirror progress: %w", mirrorErr)
	}
	if s.docs == nil || anonymous {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	stale := seq <= s.applied
	s.mu.Unlock()
	if stale {
		// A newer snapshot already reached the remote; this one must
		// never overwrite it.
		s.log.Debug("dropping stale progress save", "seq", seq)
		return nil
	}

	message := fmt.Sprintf("Save progress for %s...", truncateKey(rec.LicenseKey))
	err = s.docs.Write(ctx, documentPath(rec.LicenseKey), data, message)
	if err != nil {
		if doc.IsConflict(err) {
			s.log.Warn("progress save conflicted, keeping local mirror", "error", err)
		} else {
			s.log.Warn("progress save failed, keeping local mirror", "error", err)
		}
		return nil
	}

	s.mu.Lock()
	if seq > s.applied {
		s.applied = seq
	}
	s.mu.Unlock()
	return nil
}

// Load fetches the record for the given license key, preferring the
// remote document and falling back to the local mirror. A mirror written
// for a different key is ignored rather than leaked across users; a
// caller with no key yet accepts whatever the mirror holds, which is how
// device-keyed anonymous progress comes back.
func (s *Store) Load(ctx context.Context, licenseKey string) (*Record, error) {
	if s.docs != nil && licenseKey != "" {
		d, err := s.docs.Read(ctx, documentPath(licenseKey))
		switch {
		case err == nil:
			rec, decErr := decodeRecord(d.Content)
			if decErr == nil {
				rec.Normalize()
				return rec, nil
			}
			s.log.Warn("remote progress document malformed, trying mirror", "error", decErr)
		case errors.Is(err, doc.ErrNotFound):
			s.log.Info("no remote progress document", "path", documentPath(licenseKey))
		default:
			s.log.Warn("remote progress read failed, trying mirror", "error", err)
		}
	}

	data, ok, err := s.local.Get(ctx, localstore.KeyProgress)
	if err != nil {
		return nil, fmt.Errorf("read progress mirror: %w", err)
	}
	if ok {
		rec, decErr := decodeRecord(data)
		if decErr != nil {
			s.log.Warn("progress mirror malformed, starting fresh", "error", decErr)
		} else if licenseKey == "" || rec.LicenseKey == licenseKey {
			rec.Normalize()
			return rec, nil
		}
	}
	return NewRecord(licenseKey), nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeviceID returns the stable identifier for this installation, minting
// one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	data, ok, err := s.local.Get(ctx, localstore.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	if ok && len(data) > 0 {
		return string(data), nil
	}
	id := uuid.NewString()
	if err := s.local.Put(ctx, localstore.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}

func truncateKey(key string) string {
	if len(key) <= 10 {
		return key
	}
	return key[:10]
}
