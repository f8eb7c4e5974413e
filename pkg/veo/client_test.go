package veo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidrepo/lucid-backend/pkg/config"
	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
	"github.com/lucidrepo/lucid-backend/pkg/google/serviceaccount"
)

type fakeCredentials struct {
	token string
	err   error
	calls int
}

func (f *fakeCredentials) Exchange(context.Context, *http.Client, string, string) (serviceaccount.Token, error) {
	f.calls++
	if f.err != nil {
		return serviceaccount.Token{}, f.err
	}
	return serviceaccount.Token{AccessToken: f.token, Expiry: time.Now().Add(time.Hour)}, nil
}

func testConfig(base string) config.VeoConfig {
	return config.VeoConfig{
		Region:         "us-central1",
		Model:          "veo-2.0-generate-001",
		BaseURL:        base,
		StorageBaseURL: base,
		TokenURL:       base + "/token",
		Scope:          "https://www.googleapis.com/auth/cloud-platform",
		HTTPTimeout:    5 * time.Second,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(testConfig(srv.URL), "lucid-dev", &fakeCredentials{token: "bearer-1"}, srv.Client())
	require.NoError(t, err)
	return client
}

func TestSubmitSendsPredictLongRunning(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/lucid-dev/locations/us-central1/publishers/google/models/veo-2.0-generate-001:predictLongRunning", r.URL.Path)
		assert.Equal(t, "Bearer bearer-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"name":"projects/lucid-dev/operations/op-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	name, err := client.Submit(context.Background(), "bearer-1", GenerateRequest{
		Prompt:      "drift",
		Image:       []byte{0x89, 'P', 'N', 'G'},
		MimeType:    "image/png",
		AspectRatio: "9:16",
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/lucid-dev/operations/op-1", name)

	require.Len(t, got.Instances, 1)
	assert.Equal(t, "drift", got.Instances[0].Prompt)
	assert.Equal(t, "image/png", got.Instances[0].Image.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}), got.Instances[0].Image.BytesBase64Encoded)
	assert.Equal(t, predictParameters{SampleCount: 1, AspectRatio: "9:16"}, got.Parameters)
}

func TestSubmitProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(), "t", GenerateRequest{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProviderRequest))
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "UNAVAILABLE")
}

func TestSubmitMissingOperationName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Submit(context.Background(), "t", GenerateRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProviderProtocol), "got %v", err)
}

func TestFetchOperation(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.True(t, strings.HasSuffix(r.URL.Path, ":fetchPredictOperation"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "op-1", body["operationName"])
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"name":"op-1","done":true,"error":{"code":3,"message":"bad image"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.FetchOperation(context.Background(), "t", "op-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	op, err := client.FetchOperation(context.Background(), "t", "op-1")
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.True(t, op.Failed())
}

func TestOperationFailed(t *testing.T) {
	assert.False(t, (&Operation{Done: true}).Failed())
	assert.False(t, (&Operation{Done: true, Error: json.RawMessage(`null`)}).Failed())
	assert.True(t, (&Operation{Done: true, Error: json.RawMessage(`{"code":13}`)}).Failed())
}

func TestAccessTokenWrapsExchangeFailure(t *testing.T) {
	creds := &fakeCredentials{err: errors.New("invalid_grant")}
	client, err := NewClient(testConfig("http://unused"), "p", creds, nil)
	require.NoError(t, err)

	_, err = client.AccessToken(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAuthExchange))

	creds.err = nil
	creds.token = "fresh"
	tok, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	_, _ = client.AccessToken(context.Background())
	assert.Equal(t, 3, creds.calls, "tokens must not be cached")
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.VeoConfig{}, "", &fakeCredentials{}, nil)
	assert.Error(t, err)
	_, err = NewClient(config.VeoConfig{}, "p", nil, nil)
	assert.Error(t, err)
}

// The same bytes must come back whichever way the provider delivers them.
func TestFetchDeliveryShapesAreEquivalent(t *testing.T) {
	video := []byte("\x00\x00\x00\x18ftypmp42 generated video")
	encoded := base64.StdEncoding.EncodeToString(video)

	var downloads []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bearer-1", r.Header.Get("Authorization"))
		downloads = append(downloads, r.URL.EscapedPath()+"?"+r.URL.RawQuery)
		_, _ = w.Write(video)
	}))
	defer srv.Close()
	client := newTestClient(t, srv)

	payloads := map[string]string{
		"inline top level": fmt.Sprintf(`{"videos":[{"bytesBase64Encoded":%q,"mimeType":"video/mp4"}]}`, encoded),
		"inline nested":    fmt.Sprintf(`{"generateVideoResponse":{"generatedSamples":[{"video":{"bytesBase64Encoded":%q}}]}}`, encoded),
		"gs uri":           `{"videos":[{"gcsUri":"gs://veo-out/jobs/123/sample_0.mp4"}]}`,
		"https uri":        fmt.Sprintf(`{"generatedSamples":[{"video":{"uri":%q}}]}`, srv.URL+"/direct/sample.mp4"),
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			sample, err := ParseResult(json.RawMessage(payload))
			require.NoError(t, err)
			data, err := client.Fetch(context.Background(), "bearer-1", sample)
			require.NoError(t, err)
			assert.Equal(t, video, data)
		})
	}

	assert.ElementsMatch(t, []string{
		"/storage/v1/b/veo-out/o/jobs%2F123%2Fsample_0.mp4?alt=media",
		"/direct/sample.mp4?",
	}, downloads)
}

func TestDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such object")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Download(context.Background(), "t", "gs://bucket/missing.mp4")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDownload))
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadRejectsOversizedVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	client.maxVideo = 1024
	_, err := client.Download(context.Background(), "t", srv.URL+"/big.mp4")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDownload))
	assert.Equal(t, "Generated video exceeds 1024 bytes", pkgerrors.As(err).Message())

	client.maxVideo = 2048
	data, err := client.Download(context.Background(), "t", srv.URL+"/big.mp4")
	require.NoError(t, err)
	assert.Len(t, data, 2048)
}

func TestDownloadRejectsUnknownScheme(t *testing.T) {
	client, err := NewClient(testConfig("http://unused"), "p", &fakeCredentials{}, nil)
	require.NoError(t, err)

	_, err = client.Download(context.Background(), "t", "ftp://host/video.mp4")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnexpectedFormat))
	_, err = client.Download(context.Background(), "t", "gs://bucket-only")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnexpectedFormat))
}
