package letters

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// AuthVerifier verifies a bearer token against the external identity service.
type AuthVerifier interface {
	// Verify makes a single bounded-time call to the identity service and
	// returns the verified owner id. On failure it returns an *AuthError
	// wrapping one of the auth sentinel errors. No retries are attempted.
	Verify(ctx context.Context, token string) (int64, error)
}

// BlobStore stores binary attachments and produces time-limited access URLs.
// Every operation is best-effort from the orchestrator's point of view.
type BlobStore interface {
	// Upload stores the blob and returns its opaque object key.
	Upload(ctx context.Context, reader io.Reader, params UploadParams) (string, error)

	// GetSignedURL returns a time-limited, non-guessable URL for reading the
	// blob. Resolved fresh on every read, never cached.
	GetSignedURL(ctx context.Context, objectKey string) (string, error)

	// Delete removes the blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams contains parameters for uploading a blob
type UploadParams struct {
	ObjectKey   string
	ContentType string
}

// EventPublisher emits fire-and-forget notifications to the downstream
// analysis consumer. Delivery is not guaranteed; callers must not block the
// primary operation on the result.
type EventPublisher interface {
	PublishLetterSubmitted(ctx context.Context, event LetterSubmittedEvent) error
}

// Repository defines owner-scoped persistence for letters. Every lookup and
// mutation is restricted to records whose owner_id matches; there is no
// admin bypass.
type Repository interface {
	Create(ctx context.Context, letter *Letter) error
	Get(ctx context.Context, id uuid.UUID, ownerID int64) (*Letter, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Letter, error)

	// UpdateCategory writes back the recomputed category projection.
	UpdateCategory(ctx context.Context, id uuid.UUID, ownerID int64, category Category) error

	// SetImageKey attaches a blob reference to an already-created letter.
	SetImageKey(ctx context.Context, id uuid.UUID, ownerID int64, objectKey string) error

	// SetMood fills the annotation slots written by the downstream consumer.
	SetMood(ctx context.Context, id uuid.UUID, ownerID int64, mood, detailedMood string) error

	// Delete removes the letter when the (id, owner) predicate matches and
	// reports whether a row was deleted. The predicate must be enforced by
	// the storage layer so concurrent deletes observe "already gone".
	Delete(ctx context.Context, id uuid.UUID, ownerID int64) (bool, error)
}
