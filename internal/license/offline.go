package license

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/examdeck/examdeck/internal/localstore"
)

// Offline is the build-time-embedded allow-list used when the remote store
// is unreachable. Consumption is tracked purely locally, so a key used
// offline on one device is not visible to others.
type Offline struct {
	Keys     []string
	AdminKey string
}

// BuiltinOffline returns the embedded fallback list shipped with the
// binary. Replaced wholesale at release time alongside the real key batch.
func BuiltinOffline() Offline {
	return Offline{
		Keys: []string{
			"LICENSE-001-ABCDE", "LICENSE-002-FGHIJ", "LICENSE-003-KLMNO",
			"LICENSE-004-PQRST", "LICENSE-005-UVWXY", "LICENSE-006-ZABCD",
			"LICENSE-007-EFGHI", "LICENSE-008-JKLMN", "LICENSE-009-OPQRS",
			"LICENSE-010-TUVWX", "LICENSE-011-YZABC", "LICENSE-012-DEFGH",
			"LICENSE-013-IJKLM", "LICENSE-014-NOPQR", "LICENSE-015-STUVW",
			"LICENSE-016-XYZAB", "LICENSE-017-CDEFG", "LICENSE-018-HIJKL",
			"LICENSE-019-MNOPQ", "LICENSE-020-RSTUV",
		},
		AdminKey: "MASTER-ADMIN-12345",
	}
}

// Validate checks key against the offline list, tracking consumption in
// the local store.
func (o Offline) Validate(ctx context.Context, local *localstore.Store, key string) Result {
	if key == o.AdminKey {
		return Result{Valid: true, Admin: true}
	}

	used := loadUsedKeys(ctx, local)
	if slices.Contains(used, key) {
		return Result{Reason: ReasonAlreadyUsed}
	}
	if !slices.Contains(o.Keys, key) {
		return Result{Reason: ReasonUnknownKey}
	}

	saveUsedKeys(ctx, local, append(used, key))
	return Result{Valid: true}
}

func loadUsedKeys(ctx context.Context, local *localstore.Store) []string {
	if local == nil {
		return nil
	}
	raw, ok, err := local.Get(ctx, localstore.KeyOfflineUsed)
	if err != nil || !ok {
		return nil
	}
	var used []string
	if err := json.Unmarshal(raw, &used); err != nil {
		return nil
	}
	return used
}

func saveUsedKeys(ctx context.Context, local *localstore.Store, used []string) {
	if local == nil {
		return
	}
	raw, err := json.Marshal(used)
	if err != nil {
		return
	}
	_ = local.Put(ctx, localstore.KeyOfflineUsed, raw)
}
