package store

import "context"

// Keys for the two logical namespaces. The active session record and
// the upload draft live independently: the draft survives ending a
// session so an empty form can be repopulated.
const (
	KeyActiveSession = "finscope:active_session"
	KeyUploadDraft   = "finscope:upload_draft"
)

// Store is a durable JSON key-value store. Load treats malformed stored
// content exactly like an absent value; corruption never propagates to
// callers. Writes are last-write-wins with no merge logic.
type Store interface {
	// Save marshals value and writes it under key in one commit.
	Save(ctx context.Context, key string, value interface{}) error

	// Load unmarshals the stored value into dest. The bool reports
	// whether a usable value was found.
	Load(ctx context.Context, key string, dest interface{}) (bool, error)

	// Clear removes key. Clearing an absent key is a no-op.
	Clear(ctx context.Context, key string) error
}
