package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/svcerr"
)

type fakeReviewer struct {
	resp *review.Response
	err  error
	got  review.Request
}

func (f *fakeReviewer) Review(_ context.Context, req review.Request) (*review.Response, error) {
	f.got = req
	return f.resp, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

const validBody = `{
	"github_repo_url": "https://github.com/acme/widget",
	"assignment_description": "Build a CLI",
	"candidate_level": "Senior"
}`

func TestHealth(t *testing.T) {
	router := NewServer(nil, quietLogger()).Router()

	w := do(t, router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReview_Success(t *testing.T) {
	fake := &fakeReviewer{resp: &review.Response{
		Status: review.StatusSuccess,
		ReviewResult: models.ReviewResult{
			FoundFiles: []string{"widget.py"},
			Comments:   []string{"ok"},
			Rating:     "8/10",
			Conclusion: "fine",
		},
	}}
	router := NewServer(fake, quietLogger()).Router()

	w := do(t, router, "POST", "/review", validBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"status": "success",
		"found_files": ["widget.py"],
		"comments": ["ok"],
		"rating": "8/10",
		"conclusion": "fine"
	}`, w.Body.String())

	assert.Equal(t, review.Request{
		GitHubRepoURL:         "https://github.com/acme/widget",
		AssignmentDescription: "Build a CLI",
		CandidateLevel:        "Senior",
	}, fake.got)
}

func TestReview_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "service error",
			err:        svcerr.New("Repository not found").With("url", "https://github.com/acme/gone"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Repository not found",
		},
		{
			name:       "wrapped service error",
			err:        svcerr.Wrap(errors.New("dial tcp: timeout"), "Unable to reach GitHub API"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Unable to reach GitHub API",
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewServer(&fakeReviewer{err: tt.err}, quietLogger()).Router()

			w := do(t, router, "POST", "/review", validBody)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w))
		})
	}
}

func TestReview_InvalidBody(t *testing.T) {
	router := NewServer(&fakeReviewer{}, quietLogger()).Router()

	w := do(t, router, "POST", "/review", `{"github_repo_url":`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid JSON body", decodeError(t, w))
}

func TestReview_BodyLimit(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{
			name:   "oversized description",
			body:   `{"github_repo_url":"https://github.com/acme/widget","candidate_level":"Senior","assignment_description":"` + strings.Repeat("a", 2<<20) + `"}`,
			status: http.StatusRequestEntityTooLarge,
			msg:    "request body too large",
		},
		{
			name:   "oversized and truncated",
			body:   `{"assignment_description":"` + strings.Repeat("a", maxBodyBytes),
			status: http.StatusRequestEntityTooLarge,
			msg:    "request body too large",
		},
		{
			name:   "malformed under the limit",
			body:   `{"assignment_description":"` + strings.Repeat("a", 1024),
			status: http.StatusUnprocessableEntity,
			msg:    "invalid JSON body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := &fakeReviewer{}
			router := NewServer(rev, quietLogger()).Router()

			w := do(t, router, "POST", "/review", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decodeError(t, w))
			assert.Empty(t, rev.got.GitHubRepoURL)
		})
	}
}

func TestReview_MissingCredentials(t *testing.T) {
	router := NewServer(nil, quietLogger()).Router()

	w := do(t, router, "POST", "/review", validBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Missing required environment variables", decodeError(t, w))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := NewServer(&fakeReviewer{}, quietLogger()).Router()

	w := do(t, router, "GET", "/review", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewServer(&fakeReviewer{}, quietLogger()).Router()

	w := do(t, router, "OPTIONS", "/review", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	router := NewServer(nil, quietLogger()).Router()

	w := do(t, router, "GET", "/health", "")
	id := w.Header().Get("X-Request-ID")
	_, err := ulid.Parse(id)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "caller-supplied", w.Header().Get("X-Request-ID"))
}

func TestRequestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	router := NewServer(&fakeReviewer{err: svcerr.New("Invalid repository path")}, logger).Router()

	w := do(t, router, "POST", "/review", validBody)
	require.Equal(t, http.StatusBadRequest, w.Code)

	assert.Contains(t, buf.String(), `"msg":"request"`)
	assert.Contains(t, buf.String(), `"status":400`)
	assert.Contains(t, buf.String(), `"id":"`+w.Header().Get("X-Request-ID")+`"`)
}
