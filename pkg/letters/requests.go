package letters

import (
	"io"
	"time"
)

// ImageUpload carries the optional image attached to a create request.
type ImageUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// CreateLetterRequest contains parameters for creating a letter.
//
// OpenDate may be past, present, or future; the stored category is forced to
// "future" at creation regardless and corrected by the lazy recompute on
// read. The image is optional and its upload failure never fails the create.
type CreateLetterRequest struct {
	Title    string    `validate:"required,max=255"`
	Content  string    `validate:"required"`
	OpenDate time.Time `validate:"required"`
	Image    *ImageUpload
}
