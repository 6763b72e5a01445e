package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-letters/pkg/letters"
)

const (
	openDateLayout  = "2006-01-02"
	maxMultipartMem = 32 << 20 // 32 MB
)

// LetterResponse is the response body for a letter
type LetterResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	OpenDate     string    `json:"open_date"`
	ImageURL     *string   `json:"image_url"`
	Category     string    `json:"category"`
	Mood         *string   `json:"mood"`
	DetailedMood *string   `json:"detailed_mood"`
}

// CreateLetterRequest is the JSON request body for writing a letter. Image
// uploads arrive as multipart form data instead, with the same field names
// plus a file field named "image".
type CreateLetterRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	OpenDate string `json:"open_date"`
}

// Handler handles HTTP requests for letters
type Handler struct {
	service letters.Service
}

// NewHandler creates a new letters handler
func NewHandler(service letters.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for letters
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/write/", h.CreateLetter)
	r.Get("/", h.ListLetters)
	r.Get("/{letterID}/", h.GetLetter)
	r.Delete("/delete/{letterID}/", h.DeleteLetter)
	r.Get("/health/", h.Health)

	return r
}

// CreateLetter creates a new letter for the authenticated user
func (h *Handler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		renderDetail(w, r, http.StatusBadRequest, "Authorization header missing or malformed")
		return
	}

	req, err := parseCreateRequest(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	letter, err := h.service.CreateLetter(r.Context(), token, req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	slog.Info("letter created", "letter_id", letter.ID, "owner_id", letter.OwnerID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, letterResponse(letter, letter.ImageKey))
}

// ListLetters returns all letters of the authenticated user
func (h *Handler) ListLetters(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		renderDetail(w, r, http.StatusBadRequest, "Authorization header missing or malformed")
		return
	}

	list, err := h.service.ListLetters(r.Context(), token)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := make([]LetterResponse, 0, len(list))
	for _, letter := range list {
		resp = append(resp, letterResponse(letter, letter.ImageKey))
	}
	render.JSON(w, r, resp)
}

// GetLetter returns a single letter with a freshly signed image URL
func (h *Handler) GetLetter(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		renderDetail(w, r, http.StatusBadRequest, "Authorization header missing or malformed")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "letterID"))
	if err != nil {
		renderDetail(w, r, http.StatusNotFound, "letter not found")
		return
	}

	detail, err := h.service.GetLetter(r.Context(), token, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, letterResponse(detail.Letter, detail.ImageURL))
}

// DeleteLetter deletes a single letter of the authenticated user
func (h *Handler) DeleteLetter(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		renderDetail(w, r, http.StatusBadRequest, "Authorization header missing or malformed")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "letterID"))
	if err != nil {
		renderDetail(w, r, http.StatusNotFound, "letter not found")
		return
	}

	if err := h.service.DeleteLetter(r.Context(), token, id); err != nil {
		h.renderError(w, r, err)
		return
	}

	slog.Info("letter deleted", "letter_id", id)
	render.JSON(w, r, map[string]string{"status": "success"})
}

// Health is the liveness endpoint; it requires no credential
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. A missing or malformed header is rejected before any service call.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// parseCreateRequest accepts either a JSON body or multipart form data; only
// the multipart form can carry an image.
func parseCreateRequest(r *http.Request) (letters.CreateLetterRequest, error) {
	var req letters.CreateLetterRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
			return req, &letters.ValidationError{Fields: map[string]string{
				"body": "malformed multipart form",
			}}
		}
		req.Title = r.FormValue("title")
		req.Content = r.FormValue("content")

		if raw := r.FormValue("open_date"); raw != "" {
			openDate, err := time.Parse(openDateLayout, raw)
			if err != nil {
				return req, &letters.ValidationError{Fields: map[string]string{
					"open_date": "must be a date formatted YYYY-MM-DD",
				}}
			}
			req.OpenDate = openDate
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			req.Image = &letters.ImageUpload{
				Reader:      file,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
			}
		case errors.Is(err, http.ErrMissingFile):
			// no image attached
		default:
			return req, &letters.ValidationError{Fields: map[string]string{
				"image": "malformed image upload",
			}}
		}

		return req, nil
	}

	var body CreateLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return req, &letters.ValidationError{Fields: map[string]string{
			"body": "malformed JSON body",
		}}
	}
	req.Title = body.Title
	req.Content = body.Content
	if body.OpenDate != "" {
		openDate, err := time.Parse(openDateLayout, body.OpenDate)
		if err != nil {
			return req, &letters.ValidationError{Fields: map[string]string{
				"open_date": "must be a date formatted YYYY-MM-DD",
			}}
		}
		req.OpenDate = openDate
	}

	return req, nil
}

// renderError maps service failures onto the HTTP error surface. Internal
// detail goes to the log, not the caller.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *letters.ValidationError
	if errors.As(err, &vErr) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, vErr.Fields)
		return
	}

	switch {
	case errors.Is(err, letters.ErrMissingCredential):
		renderDetail(w, r, http.StatusBadRequest, "Authorization header missing or malformed")
	case errors.Is(err, letters.ErrAuthUnavailable):
		renderDetail(w, r, http.StatusServiceUnavailable, "auth service unavailable")
	case errors.Is(err, letters.ErrVerificationFailed), errors.Is(err, letters.ErrMalformedAuthResponse):
		renderDetail(w, r, authStatus(err), authDetail(err))
	case errors.Is(err, letters.ErrLetterNotFound):
		renderDetail(w, r, http.StatusNotFound, "letter not found")
	default:
		slog.Error("letter operation failed", "path", r.URL.Path, "error", err)
		renderDetail(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// authStatus passes the upstream rejection status through when it is a
// usable client error, otherwise falls back to 400.
func authStatus(err error) int {
	var aErr *letters.AuthError
	if errors.As(err, &aErr) && aErr.Status >= 400 && aErr.Status < 500 {
		return aErr.Status
	}
	return http.StatusBadRequest
}

func authDetail(err error) string {
	var aErr *letters.AuthError
	if errors.As(err, &aErr) && aErr.Detail != "" {
		return aErr.Detail
	}
	return "token verification failed"
}

func renderDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": detail})
}

func letterResponse(letter *letters.Letter, imageURL string) LetterResponse {
	return LetterResponse{
		ID:           letter.ID,
		UserID:       letter.OwnerID,
		Title:        letter.Title,
		Content:      letter.Content,
		CreatedAt:    letter.CreatedAt,
		OpenDate:     letter.OpenDate.Format(openDateLayout),
		ImageURL:     nullable(imageURL),
		Category:     string(letter.Category),
		Mood:         nullable(letter.Mood),
		DetailedMood: nullable(letter.DetailedMood),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
