package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-letters/pkg/letters"
)

// stubService records calls and serves canned responses.
type stubService struct {
	createCalled bool
	createReq    letters.CreateLetterRequest
	createErr    error

	listErr error

	letter *letters.Letter
	detail *letters.LetterDetail
	getErr error

	deleteID  uuid.UUID
	deleteErr error
}

func (s *stubService) CreateLetter(ctx context.Context, token string, req letters.CreateLetterRequest) (*letters.Letter, error) {
	s.createCalled = true
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.letter, nil
}

func (s *stubService) ListLetters(ctx context.Context, token string) ([]*letters.Letter, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.letter == nil {
		return nil, nil
	}
	return []*letters.Letter{s.letter}, nil
}

func (s *stubService) GetLetter(ctx context.Context, token string, id uuid.UUID) (*letters.LetterDetail, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.detail, nil
}

func (s *stubService) DeleteLetter(ctx context.Context, token string, id uuid.UUID) error {
	s.deleteID = id
	return s.deleteErr
}

func sampleLetter() *letters.Letter {
	return &letters.Letter{
		ID:        uuid.MustParse("2f5d0f51-59c4-4f9f-9b2f-0a2a6a3d8a01"),
		OwnerID:   7,
		Title:     "To my future self",
		Content:   "Remember this day.",
		CreatedAt: time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC),
		OpenDate:  time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
		Category:  letters.CategoryFuture,
	}
}

func doRequest(t *testing.T, svc letters.Service, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestBearerTokenRequired(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Token abc"},
		{name: "empty token", header: "Bearer "},
		{name: "lowercase scheme", header: "bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := doRequest(t, svc, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Equal(t, "Authorization header missing or malformed", body["detail"])
		})
	}
}

func TestCreateLetterEndpoint(t *testing.T) {
	t.Run("json create returns 201", func(t *testing.T) {
		svc := &stubService{letter: sampleLetter()}

		payload := `{"title":"To my future self","content":"Remember this day.","open_date":"2027-01-01"}`
		req := httptest.NewRequest(http.MethodPost, "/write/", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.True(t, svc.createCalled)
		assert.Equal(t, "To my future self", svc.createReq.Title)
		assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), svc.createReq.OpenDate)
		assert.Nil(t, svc.createReq.Image)

		var body LetterResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, int64(7), body.UserID)
		assert.Equal(t, "2027-01-01", body.OpenDate)
		assert.Equal(t, "future", body.Category)
		assert.Nil(t, body.ImageURL)
	})

	t.Run("multipart create carries the image", func(t *testing.T) {
		svc := &stubService{letter: sampleLetter()}

		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		require.NoError(t, form.WriteField("title", "To my future self"))
		require.NoError(t, form.WriteField("content", "Remember this day."))
		require.NoError(t, form.WriteField("open_date", "2027-01-01"))
		part, err := form.CreateFormFile("image", "sunset.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png bytes"))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, "/write/", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, svc.createReq.Image)
		assert.Equal(t, "sunset.png", svc.createReq.Image.Filename)
	})

	t.Run("multipart create without image", func(t *testing.T) {
		svc := &stubService{letter: sampleLetter()}

		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		require.NoError(t, form.WriteField("title", "To my future self"))
		require.NoError(t, form.WriteField("content", "Remember this day."))
		require.NoError(t, form.WriteField("open_date", "2027-01-01"))
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, "/write/", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, svc.createReq.Image)
	})

	t.Run("bad open date is a 400 field error", func(t *testing.T) {
		svc := &stubService{}

		payload := `{"title":"t","content":"c","open_date":"01/01/2027"}`
		req := httptest.NewRequest(http.MethodPost, "/write/", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, svc.createCalled)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Contains(t, body, "open_date")
	})

	t.Run("validation errors map to field responses", func(t *testing.T) {
		svc := &stubService{createErr: &letters.ValidationError{
			Fields: map[string]string{"title": "this field is required"},
		}}

		req := httptest.NewRequest(http.MethodPost, "/write/", strings.NewReader(`{"content":"c"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "this field is required", body["title"])
	})

	t.Run("missing header never reaches the service", func(t *testing.T) {
		svc := &stubService{}

		req := httptest.NewRequest(http.MethodPost, "/write/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, svc.createCalled)
	})
}

func TestAuthErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name: "upstream rejection passes its status through",
			err: &letters.AuthError{
				Status: http.StatusUnauthorized,
				Detail: "token expired",
				Err:    letters.ErrVerificationFailed,
			},
			wantStatus: http.StatusUnauthorized,
			wantDetail: "token expired",
		},
		{
			name: "upstream server error falls back to 400",
			err: &letters.AuthError{
				Status: http.StatusBadGateway,
				Detail: "bad gateway",
				Err:    letters.ErrVerificationFailed,
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "bad gateway",
		},
		{
			name: "malformed verify response is a 400",
			err: &letters.AuthError{
				Err: letters.ErrMalformedAuthResponse,
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "token verification failed",
		},
		{
			name: "unreachable auth service is a 503",
			err: &letters.AuthError{
				Detail: "dial tcp: connection refused",
				Err:    letters.ErrAuthUnavailable,
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "auth service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{listErr: tt.err}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer token")

			rec := doRequest(t, svc, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.wantDetail, body["detail"])
		})
	}
}

func TestListLettersEndpoint(t *testing.T) {
	t.Run("returns the owner's letters", func(t *testing.T) {
		svc := &stubService{letter: sampleLetter()}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body []LetterResponse
		decodeBody(t, rec, &body)
		require.Len(t, body, 1)
		assert.Equal(t, "To my future self", body[0].Title)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		svc := &stubService{}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("repository failure is an opaque 500", func(t *testing.T) {
		svc := &stubService{listErr: fmt.Errorf("connection reset")}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "internal server error", body["detail"])
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestGetLetterEndpoint(t *testing.T) {
	t.Run("returns the letter with its signed URL", func(t *testing.T) {
		letter := sampleLetter()
		letter.ImageKey = "letters/7/" + letter.ID.String() + ".png"
		svc := &stubService{detail: &letters.LetterDetail{
			Letter:   letter,
			ImageURL: "https://signed.example/letters.png",
		}}

		req := httptest.NewRequest(http.MethodGet, "/"+letter.ID.String()+"/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body LetterResponse
		decodeBody(t, rec, &body)
		require.NotNil(t, body.ImageURL)
		assert.Equal(t, "https://signed.example/letters.png", *body.ImageURL)
	})

	t.Run("letter without image has a null URL", func(t *testing.T) {
		letter := sampleLetter()
		svc := &stubService{detail: &letters.LetterDetail{Letter: letter}}

		req := httptest.NewRequest(http.MethodGet, "/"+letter.ID.String()+"/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body LetterResponse
		decodeBody(t, rec, &body)
		assert.Nil(t, body.ImageURL)
	})

	t.Run("unknown letter is a 404", func(t *testing.T) {
		svc := &stubService{getErr: letters.ErrLetterNotFound}

		req := httptest.NewRequest(http.MethodGet, "/"+uuid.NewString()+"/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-uuid path is a 404 without a service call", func(t *testing.T) {
		svc := &stubService{getErr: fmt.Errorf("should not be called")}

		req := httptest.NewRequest(http.MethodGet, "/not-a-uuid/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "letter not found", body["detail"])
	})
}

func TestDeleteLetterEndpoint(t *testing.T) {
	t.Run("reports success", func(t *testing.T) {
		svc := &stubService{}
		id := uuid.New()

		req := httptest.NewRequest(http.MethodDelete, "/delete/"+id.String()+"/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, svc.deleteID)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "success", body["status"])
	})

	t.Run("unknown letter is a 404", func(t *testing.T) {
		svc := &stubService{deleteErr: letters.ErrLetterNotFound}

		req := httptest.NewRequest(http.MethodDelete, "/delete/"+uuid.NewString()+"/", nil)
		req.Header.Set("Authorization", "Bearer token")

		rec := doRequest(t, svc, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, &stubService{}, httptest.NewRequest(http.MethodGet, "/health/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}
