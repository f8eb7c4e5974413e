package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidrepo/lucid-backend/api/middleware"
	"github.com/lucidrepo/lucid-backend/internal/dreamvideo"
)

type recordingService struct {
	calls int
	in    dreamvideo.GenerateInput
}

func (s *recordingService) Generate(ctx context.Context, userID uuid.UUID, in dreamvideo.GenerateInput) (*dreamvideo.GenerateResult, error) {
	s.calls++
	s.in = in
	return &dreamvideo.GenerateResult{VideoURL: "https://cdn.test/v.mp4"}, nil
}

func serve(t *testing.T, svc dreamvideo.Service, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	resp := httptest.NewRecorder()
	GenerateDreamVideo(svc, nil).ServeHTTP(resp, req)
	return resp
}

func TestGenerateDreamVideoRejectsMissingCaller(t *testing.T) {
	svc := &recordingService{}
	resp := serve(t, svc, "", `{}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, resp.Body.String())
	assert.Zero(t, svc.calls)
}

func TestGenerateDreamVideoValidatesBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"dreamId":`, want: `{"error":"invalid request body"}`},
		{name: "missing fields", body: `{}`, want: `{"error":"dreamId is required; imageUrl is required"}`},
		{name: "bad url", body: `{"dreamId":"` + uuid.NewString() + `","imageUrl":"ftp://x/y.png"}`, want: `{"error":"imageUrl must be a valid http(s) URL"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &recordingService{}
			resp := serve(t, svc, uuid.NewString(), tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.JSONEq(t, tt.want, resp.Body.String())
			assert.Zero(t, svc.calls)
		})
	}
}

func TestGenerateDreamVideoCapsPrompt(t *testing.T) {
	svc := &recordingService{}
	long := strings.Repeat("a", maxAnimationPromptRunes+50)
	body := `{"dreamId":"` + uuid.NewString() + `","imageUrl":"https://img.test/a.jpg","animationPrompt":"` + long + `"}`

	resp := serve(t, svc, uuid.NewString(), body)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, svc.in.AnimationPrompt, maxAnimationPromptRunes)
	assert.JSONEq(t, `{"videoUrl":"https://cdn.test/v.mp4"}`, resp.Body.String())
}

func TestPreflight(t *testing.T) {
	resp := httptest.NewRecorder()
	Preflight().ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Zero(t, resp.Body.Len())
}
