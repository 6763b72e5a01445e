package letters

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository Repository
	auth       AuthVerifier
	blobs      BlobStore
	publisher  EventPublisher
	logger     *slog.Logger
	now        func() time.Time
	validate   *validator.Validate
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithAuthVerifier sets the token verifier for the service
func WithAuthVerifier(auth AuthVerifier) Option {
	return func(s *service) {
		s.auth = auth
	}
}

// WithBlobStore sets the blob storage backend for images
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithEventPublisher sets the publisher for submitted-letter events
func WithEventPublisher(pub EventPublisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

// WithLogger sets the structured logging sink
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock sets the current-date source used for category derivation.
// Defaults to time.Now in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		validate: validator.New(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.auth == nil {
		return nil, fmt.Errorf("auth verifier is required")
	}
	if s.publisher == nil {
		s.publisher = NewNoopEventPublisher()
	}

	return s, nil
}

func (s *service) verifyOwner(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrMissingCredential
	}
	return s.auth.Verify(ctx, token)
}

// CreateLetter persists a new letter for the verified owner. The stored
// category is always "future" at creation; the lazy recompute on List/Get
// corrects it. An image-upload failure leaves the letter without an image
// and the create still succeeds.
func (s *service) CreateLetter(ctx context.Context, token string, req CreateLetterRequest) (*Letter, error) {
	ownerID, err := s.verifyOwner(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	letter := &Letter{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     req.Title,
		Content:   req.Content,
		OpenDate:  dateOnly(req.OpenDate),
		Category:  CategoryFuture,
		CreatedAt: s.now(),
	}

	if err := s.repository.Create(ctx, letter); err != nil {
		return nil, &LetterError{LetterID: letter.ID, Op: "create", Err: err}
	}

	if req.Image != nil && req.Image.Reader != nil {
		s.attachImage(ctx, letter, req.Image)
	}

	s.publishSubmitted(ctx, letter)

	return letter, nil
}

// attachImage uploads the image and records its key on the letter. Both the
// upload and the follow-up write are best-effort: on failure the letter is
// kept without an image, never deleted.
func (s *service) attachImage(ctx context.Context, letter *Letter, image *ImageUpload) {
	if s.blobs == nil {
		s.logger.Warn("no blob store configured, letter saved without image",
			"letter_id", letter.ID)
		return
	}

	objectKey, err := s.blobs.Upload(ctx, image.Reader, UploadParams{
		ObjectKey:   imageObjectKey(letter, image.Filename),
		ContentType: image.ContentType,
	})
	if err != nil {
		s.logger.Warn("image upload failed, letter saved without image",
			"letter_id", letter.ID, "error", err)
		return
	}

	if err := s.repository.SetImageKey(ctx, letter.ID, letter.OwnerID, objectKey); err != nil {
		s.logger.Warn("failed to record image key on letter",
			"letter_id", letter.ID, "object_key", objectKey, "error", err)
		return
	}

	letter.ImageKey = objectKey
}

// publishSubmitted fires the submitted-letter event. The call is skipped when
// id, owner or content is absent; post-validation that should be unreachable.
func (s *service) publishSubmitted(ctx context.Context, letter *Letter) {
	if letter.ID == uuid.Nil || letter.OwnerID == 0 || letter.Content == "" {
		s.logger.Info("skipping submitted event for incomplete letter",
			"letter_id", letter.ID)
		return
	}

	event := LetterSubmittedEvent{
		LetterID: letter.ID,
		OwnerID:  letter.OwnerID,
		Content:  letter.Content,
	}
	if err := s.publisher.PublishLetterSubmitted(ctx, event); err != nil {
		s.logger.Warn("failed to publish submitted event",
			"letter_id", letter.ID, "error", err)
	}
}

// ListLetters returns all letters of the verified owner in storage order,
// recomputing each letter's category against today and writing back the ones
// that changed. Concurrent write-backs race but converge to the same value.
func (s *service) ListLetters(ctx context.Context, token string) ([]*Letter, error) {
	ownerID, err := s.verifyOwner(ctx, token)
	if err != nil {
		return nil, err
	}

	list, err := s.repository.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &LetterError{Op: "list", Err: err}
	}

	today := s.now()
	for _, letter := range list {
		s.refreshCategory(ctx, letter, today)
	}

	return list, nil
}

// refreshCategory recomputes the cached category projection and persists it
// when it drifted. A failed write-back is logged only; the recomputed value
// is still returned to the caller.
func (s *service) refreshCategory(ctx context.Context, letter *Letter, today time.Time) {
	category := Classify(letter.OpenDate, today)
	if category == letter.Category {
		return
	}
	if err := s.repository.UpdateCategory(ctx, letter.ID, letter.OwnerID, category); err != nil {
		s.logger.Warn("failed to write back recomputed category",
			"letter_id", letter.ID, "category", category, "error", err)
	}
	letter.Category = category
}

// GetLetter fetches a single letter scoped to the verified owner and resolves
// a fresh signed URL for its image. Failed URL resolution yields an empty
// ImageURL, not an error.
func (s *service) GetLetter(ctx context.Context, token string, id uuid.UUID) (*LetterDetail, error) {
	ownerID, err := s.verifyOwner(ctx, token)
	if err != nil {
		return nil, err
	}

	letter, err := s.repository.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	s.refreshCategory(ctx, letter, s.now())

	detail := &LetterDetail{Letter: letter}
	if letter.ImageKey != "" {
		if s.blobs == nil {
			s.logger.Warn("no blob store configured, cannot resolve image URL",
				"letter_id", letter.ID)
			return detail, nil
		}
		url, err := s.blobs.GetSignedURL(ctx, letter.ImageKey)
		if err != nil {
			s.logger.Warn("failed to resolve signed image URL",
				"letter_id", letter.ID, "object_key", letter.ImageKey, "error", err)
			return detail, nil
		}
		detail.ImageURL = url
	}

	return detail, nil
}

// DeleteLetter removes the letter scoped to the verified owner. The record
// delete is the primary success signal; the follow-up blob delete is
// best-effort and never rolls the operation back.
func (s *service) DeleteLetter(ctx context.Context, token string, id uuid.UUID) error {
	ownerID, err := s.verifyOwner(ctx, token)
	if err != nil {
		return err
	}

	letter, err := s.repository.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	imageKey := letter.ImageKey

	deleted, err := s.repository.Delete(ctx, id, ownerID)
	if err != nil {
		return &LetterError{LetterID: id, Op: "delete", Err: err}
	}
	if !deleted {
		// A concurrent delete won the race.
		return ErrLetterNotFound
	}

	if imageKey != "" {
		if s.blobs == nil {
			s.logger.Warn("no blob store configured, image blob left behind",
				"letter_id", id, "object_key", imageKey)
			return nil
		}
		if err := s.blobs.Delete(ctx, imageKey); err != nil {
			s.logger.Warn("failed to delete image blob",
				"letter_id", id, "object_key", imageKey, "error", err)
		}
	}

	return nil
}

func (s *service) validateCreate(req CreateLetterRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		name := strings.ToLower(fe.Field())
		if name == "opendate" {
			name = "open_date"
		}
		switch fe.Tag() {
		case "required":
			fields[name] = "this field is required"
		case "max":
			fields[name] = fmt.Sprintf("must be at most %s characters", fe.Param())
		default:
			fields[name] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return &ValidationError{Fields: fields}
}

// imageObjectKey builds the blob key for a letter image, keeping the original
// file extension when there is one.
func imageObjectKey(letter *Letter, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("letters/%d/%s%s", letter.OwnerID, letter.ID, ext)
}
