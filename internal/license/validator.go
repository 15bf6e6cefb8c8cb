package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/examdeck/examdeck/internal/docstore"
	"github.com/examdeck/examdeck/internal/localstore"
)

// Validator checks license keys. Sources are consulted in priority order:
// local cache, remote database, embedded offline list.
type Validator struct {
	docs    docstore.Client // nil when the remote store is not configured
	local   *localstore.Store
	offline Offline
	log     *slog.Logger
	now     func() time.Time
}

// NewValidator creates a Validator. docs may be nil; validation then runs
// entirely against the cache and the offline list.
func NewValidator(docs docstore.Client, local *localstore.Store, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Validator{
		docs:    docs,
		local:   local,
		offline: BuiltinOffline(),
		log:     log,
		now:     time.Now,
	}
}

// Validate checks key, consuming it on first non-admin use. The remote
// database write-back is best-effort: a failed write still yields a valid
// result, with weaker anti-reuse guarantees recorded in the log.
func (v *Validator) Validate(ctx context.Context, key string) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{Reason: ReasonEmptyKey}
	}

	// Cache short-circuit: same key, validated inside the freshness window.
	if entry := loadCache(ctx, v.local); entry != nil && entry.Key == key && entry.fresh(ValidationTTL, v.now()) {
		v.log.Debug("license validated from cache", slog.Bool("admin", entry.Admin))
		return Result{Valid: true, Admin: entry.Admin}
	}

	if v.docs == nil {
		return v.validateOffline(ctx, key)
	}

	db, err := v.fetchDatabase(ctx)
	if err != nil {
		v.log.Warn("license database unreachable, falling back offline", slog.String("error", err.Error()))
		return v.validateOffline(ctx, key)
	}

	return v.validateRemote(ctx, key, db)
}

// CachedSession returns the previously unlocked key when its cached
// validation is still inside the session-continuation window.
func (v *Validator) CachedSession(ctx context.Context) (key string, admin bool, ok bool) {
	entry := loadCache(ctx, v.local)
	if entry == nil || !entry.fresh(SessionTTL, v.now()) {
		return "", false, false
	}
	return entry.Key, entry.Admin, true
}

func (v *Validator) fetchDatabase(ctx context.Context) (*Database, error) {
	doc, err := v.docs.Read(ctx, DatabasePath)
	if err != nil {
		// A store with no database yet is indistinguishable from an
		// unreachable one for validation purposes: neither can vouch
		// for the key.
		return nil, err
	}
	var db Database
	if err := json.Unmarshal(doc.Content, &db); err != nil {
		return nil, fmt.Errorf("decode license database: %w", err)
	}
	return &db, nil
}

func (v *Validator) validateRemote(ctx context.Context, key string, db *Database) Result {
	// The admin key grants access unconditionally and never consumes.
	if key == db.AdminKey {
		saveCache(ctx, v.local, key, true, v.now())
		v.log.Info("admin access granted")
		return Result{Valid: true, Admin: true}
	}

	rec := db.Find(key)
	if rec == nil {
		return Result{Reason: ReasonUnknownKey}
	}
	if rec.Used {
		return Result{Reason: ReasonAlreadyUsed}
	}

	// Consume the key: mark used and write the whole database back with
	// the prior version token. Best-effort; see package comment.
	usedAt := v.now()
	rec.Used = true
	rec.UsedAt = &usedAt

	if err := v.writeDatabase(ctx, db, key); err != nil {
		if docstore.IsConflict(err) {
			v.log.Warn("license write lost to a concurrent update", slog.String("error", err.Error()))
		} else {
			v.log.Warn("license write failed, key consumed locally only", slog.String("error", err.Error()))
		}
	}

	saveCache(ctx, v.local, key, false, v.now())
	return Result{Valid: true}
}

func (v *Validator) writeDatabase(ctx context.Context, db *Database, key string) error {
	content, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("encode license database: %w", err)
	}
	msg := fmt.Sprintf("Mark license %s... as used", truncateKey(key))
	return v.docs.Write(ctx, DatabasePath, content, msg)
}

func (v *Validator) validateOffline(ctx context.Context, key string) Result {
	res := v.offline.Validate(ctx, v.local, key)
	if res.Valid {
		saveCache(ctx, v.local, key, res.Admin, v.now())
	}
	return res
}

// truncateKey shortens a key for logs and change messages.
func truncateKey(key string) string {
	if len(key) <= 10 {
		return key
	}
	return key[:10]
}
