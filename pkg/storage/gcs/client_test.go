package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lucidrepo/lucid-backend/pkg/google/serviceaccount"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func staticTokens() tokenSource {
	return serviceaccount.NewCachingSource(func(context.Context) (serviceaccount.Token, error) {
		return serviceaccount.Token{AccessToken: "token", Expiry: time.Now().Add(time.Hour)}, nil
	})
}

func newTestClient(rt roundTripFunc) *Client {
	return &Client{
		bucket:      "lucid-media",
		apiBase:     "https://storage.example",
		publicBase:  "https://cdn.example",
		tokenSource: staticTokens(),
		httpClient:  &http.Client{Transport: rt},
	}
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestUploadSendsMediaUpload(t *testing.T) {
	t.Parallel()

	var gotBody string
	client := newTestClient(func(req *http.Request) *http.Response {
		if req.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", req.Method)
		}
		if req.URL.Path != "/upload/storage/v1/b/lucid-media/o" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("uploadType"); got != "media" {
			t.Fatalf("unexpected uploadType %q", got)
		}
		if got := req.URL.Query().Get("name"); got != "dreams/u1/d1/1700000000000.mp4" {
			t.Fatalf("unexpected object name %q", got)
		}
		if req.Header.Get("Authorization") != "Bearer token" {
			t.Fatalf("unexpected auth %s", req.Header.Get("Authorization"))
		}
		if req.Header.Get("Content-Type") != "video/mp4" {
			t.Fatalf("unexpected content type %s", req.Header.Get("Content-Type"))
		}
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return response(http.StatusOK, `{"name":"dreams/u1/d1/1700000000000.mp4"}`)
	})

	if err := client.Upload(context.Background(), "/dreams/u1/d1/1700000000000.mp4", "video/mp4", []byte("mp4-bytes")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotBody != "mp4-bytes" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestUploadFailureIncludesStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(func(*http.Request) *http.Response {
		return response(http.StatusForbidden, `{"error":{"message":"denied"}}`)
	})
	err := client.Upload(context.Background(), "a.mp4", "video/mp4", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected upload error with body, got %v", err)
	}
}

func TestUploadRequiresObjectAndToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(func(*http.Request) *http.Response {
		t.Fatal("no request expected")
		return nil
	})
	if err := client.Upload(context.Background(), " ", "video/mp4", nil); err == nil {
		t.Fatal("expected error for empty object name")
	}

	client.tokenSource = serviceaccount.NewCachingSource(func(context.Context) (serviceaccount.Token, error) {
		return serviceaccount.Token{}, errors.New("metadata unavailable")
	})
	if err := client.Upload(context.Background(), "a.mp4", "video/mp4", nil); err == nil || !strings.Contains(err.Error(), "metadata unavailable") {
		t.Fatalf("expected token error, got %v", err)
	}

	var empty *Client
	if err := empty.Upload(context.Background(), "a.mp4", "video/mp4", nil); err == nil {
		t.Fatal("expected error from nil client")
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{bucket: "lucid-media", publicBase: "https://storage.googleapis.com"}
	got := client.PublicURL("dreams/u 1/d1/1.mp4")
	if got != "https://storage.googleapis.com/lucid-media/dreams/u%201/d1/1.mp4" {
		t.Fatalf("unexpected public url %s", got)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	client := newTestClient(func(req *http.Request) *http.Response {
		if req.URL.Path != "/storage/v1/b/lucid-media/o" || req.URL.Query().Get("maxResults") != "1" {
			t.Fatalf("unexpected ping url %s", req.URL)
		}
		return response(http.StatusOK, `{"items":[]}`)
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	failing := newTestClient(func(*http.Request) *http.Response {
		return response(http.StatusNotFound, "")
	})
	if err := failing.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
}
