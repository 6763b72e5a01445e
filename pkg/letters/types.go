package letters

import (
	"time"

	"github.com/google/uuid"
)

// Category is the domain type for a letter's relationship between its open
// date and the current date.
type Category string

// Category constants (typed).
const (
	CategoryFuture Category = "future"
	CategoryToday  Category = "today"
	CategoryPast   Category = "past"
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFuture, CategoryToday, CategoryPast:
		return true
	}
	return false
}

// Classify derives the category of a letter from its open date and the
// current date. Only the calendar date matters; time-of-day is ignored.
//
// The stored category is a cached projection of this function, so callers
// must re-evaluate it on every read rather than trust storage.
func Classify(openDate, today time.Time) Category {
	o := dateOnly(openDate)
	t := dateOnly(today)
	switch {
	case o.Equal(t):
		return CategoryToday
	case o.After(t):
		return CategoryFuture
	default:
		return CategoryPast
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Letter represents a persisted letter record.
//
// OwnerID is set once at creation from the verified credential and is never
// accepted from client input. ImageKey is an opaque blob reference, never a
// resolvable URL; signed URLs are derived fresh on read. Mood and
// DetailedMood are pass-through slots written by the downstream analysis
// consumer.
type Letter struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	OpenDate     time.Time `json:"open_date"`
	ImageKey     string    `json:"image_key,omitempty"`
	Category     Category  `json:"category"`
	Mood         string    `json:"mood,omitempty"`
	DetailedMood string    `json:"detailed_mood,omitempty"`
}

// LetterDetail is a letter composed with its freshly resolved image URL.
// ImageURL is empty when the letter has no image or resolution failed; it is
// never persisted.
type LetterDetail struct {
	*Letter
	ImageURL string
}

// LetterSubmittedEvent is the payload published to the downstream analysis
// consumer after a letter is created.
type LetterSubmittedEvent struct {
	LetterID uuid.UUID `json:"letter_id"`
	OwnerID  int64     `json:"user_id"`
	Content  string    `json:"content"`
}
