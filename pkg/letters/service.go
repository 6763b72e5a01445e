package letters

import (
	"context"

	"github.com/google/uuid"
)

// Service implements the four letter use cases, sequencing the auth
// verifier, repository, blob store and event publisher around a single
// persisted record.
//
// Every use case starts by verifying the bearer token; auth and validation
// failures short-circuit before any persistence or side effect. Blob and
// publish failures during Create/Delete are absorbed: the primary operation
// still reports success and the failure is only logged.
type Service interface {
	CreateLetter(ctx context.Context, token string, req CreateLetterRequest) (*Letter, error)
	ListLetters(ctx context.Context, token string) ([]*Letter, error)
	GetLetter(ctx context.Context, token string, id uuid.UUID) (*LetterDetail, error)
	DeleteLetter(ctx context.Context, token string, id uuid.UUID) error
}
