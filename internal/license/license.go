// Package license validates user-supplied license keys against a shared
// document in the remote store, with a local cache short-circuit and a
// fully offline fallback list. Enforcement is client-trust-limited by
// design: the goal is deterring casual key reuse, not preventing it
// cryptographically.
package license

import "time"

// DatabasePath is the document-store path of the shared key database.
const DatabasePath = "licenses.json"

// Record is one issued license key.
type Record struct {
	Key       string     `json:"key"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Database is the shared key document. It is mutated whole: fetch, change
// in memory, write back with the prior version token.
type Database struct {
	AdminKey string   `json:"admin_key"`
	Keys     []Record `json:"keys"`
}

// Find returns the record matching key exactly, or nil.
func (d *Database) Find(key string) *Record {
	for i := range d.Keys {
		if d.Keys[i].Key == key {
			return &d.Keys[i]
		}
	}
	return nil
}

// Result is the outcome of a validation attempt.
type Result struct {
	Valid  bool
	Admin  bool
	Reason string
}

// Rejection reasons surfaced to the lock screen.
const (
	ReasonUnknownKey  = "unknown key"
	ReasonAlreadyUsed = "already used"
	ReasonEmptyKey    = "empty key"
)
