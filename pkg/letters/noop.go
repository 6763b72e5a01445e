package letters

import "context"

// NoopEventPublisher is an event publisher that does nothing. Useful for
// testing or when no broker is configured.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() EventPublisher {
	return &NoopEventPublisher{}
}

func (NoopEventPublisher) PublishLetterSubmitted(ctx context.Context, event LetterSubmittedEvent) error {
	return nil
}
