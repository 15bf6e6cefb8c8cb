// Package docstore reads and writes JSON documents stored as file blobs in
// a GitHub repository, addressed by repository-relative path. The content
// SHA returned by the API serves as an optimistic version token: writes
// attach the last-read SHA so the store can reject lost updates. The token
// fetch and the write are not atomic with respect to other writers, so the
// check is best-effort only.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read when no document exists at the path.
// Callers treat it as legitimate empty state, not a failure.
var ErrNotFound = errors.New("document not found")

// Document is a fetched JSON document plus its version token.
type Document struct {
	// Content is the decoded document body.
	Content []byte

	// SHA is the store's version token for this content. Passing it back
	// on a write lets the store detect a concurrent modification.
	SHA string
}

// Client is the document-store contract. Implementations do not retry.
type Client interface {
	// Read fetches the document at path. Returns ErrNotFound when the path
	// has no document, and *TransportError on any other failure.
	Read(ctx context.Context, path string) (*Document, error)

	// Write creates or updates the document at path. The implementation
	// first reads the path to obtain the current version token; if one
	// exists it is attached so a concurrent modification surfaces as
	// *ConflictError rather than a silent lost update.
	Write(ctx context.Context, path string, content []byte, message string) error
}

// TransportError wraps network and HTTP failures. It is never fatal to the
// application; every caller has a fallback path.
type TransportError struct {
	Op     string
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConflictError reports a rejected write: the version token attached to the
// request no longer matched the stored document.
type ConflictError struct {
	Path string
	SHA  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("write %s: version token %.12s no longer current", e.Path, e.SHA)
}

// IsConflict reports whether err is a version-token mismatch.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
