package license

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examdeck/examdeck/internal/localstore"
)

// Freshness windows. A cached validation is trusted without contacting the
// remote store inside ValidationTTL; a previously unlocked session resumes
// without re-entering the key inside SessionTTL. Neither is authoritative
// once expired.
const (
	ValidationTTL = 24 * time.Hour
	SessionTTL    = 30 * 24 * time.Hour
)

// cacheEntry is the locally persisted validation result for one key.
type cacheEntry struct {
	Key       string    `json:"key"`
	Valid     bool      `json:"valid"`
	Admin     bool      `json:"admin"`
	Timestamp time.Time `json:"timestamp"`
}

// loadCache reads the cached validation, if any. A corrupt entry reads as
// absent; the caller falls through to a remote check.
func loadCache(ctx context.Context, local *localstore.Store) *cacheEntry {
	if local == nil {
		return nil
	}
	raw, ok, err := local.Get(ctx, localstore.KeyLicenseCache)
	if err != nil || !ok {
		return nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	return &entry
}

// saveCache persists a successful validation for future short-circuits.
func saveCache(ctx context.Context, local *localstore.Store, key string, admin bool, now time.Time) {
	if local == nil {
		return
	}
	raw, err := json.Marshal(cacheEntry{
		Key:       key,
		Valid:     true,
		Admin:     admin,
		Timestamp: now,
	})
	if err != nil {
		return
	}
	_ = local.Put(ctx, localstore.KeyLicenseCache, raw)
}

// fresh reports whether the entry is inside the given window at now.
func (e *cacheEntry) fresh(window time.Duration, now time.Time) bool {
	return e.Valid && now.Sub(e.Timestamp) < window
}
