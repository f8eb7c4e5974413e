package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lucidrepo/lucid-backend/pkg/config"
	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
	"github.com/lucidrepo/lucid-backend/pkg/google/serviceaccount"
)

const (
	maxErrBody    = 4096
	// MaxVideoBytes caps a downloaded video.
	MaxVideoBytes = 200 << 20
)

// Credentials exchanges a signed assertion for a bearer token.
type Credentials interface {
	Exchange(ctx context.Context, httpClient *http.Client, tokenURL, scope string) (serviceaccount.Token, error)
}

// GenerateRequest is a single image-to-video job.
type GenerateRequest struct {
	Prompt      string
	Image       []byte
	MimeType    string
	AspectRatio string
}

// Operation is the provider's long-running job handle.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Failed reports whether a finished operation carries an error payload.
func (o *Operation) Failed() bool {
	if o == nil || len(o.Error) == 0 {
		return false
	}
	trimmed := strings.TrimSpace(string(o.Error))
	return trimmed != "null" && trimmed != "{}"
}

// Client calls the Vertex AI Veo endpoints.
type Client struct {
	httpClient *http.Client
	cfg        config.VeoConfig
	projectID  string
	creds      Credentials
	maxVideo   int64
}

func NewClient(cfg config.VeoConfig, projectID string, creds Credentials, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("gcp project id is required")
	}
	if creds == nil {
		return nil, errors.New("service account credentials are required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		projectID:  projectID,
		creds:      creds,
		maxVideo:   MaxVideoBytes,
	}, nil
}

func (c *Client) modelURL(method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		c.cfg.Endpoint(), url.PathEscape(c.projectID), url.PathEscape(c.cfg.Region), url.PathEscape(c.cfg.Model), method)
}

// AccessToken performs a fresh credential exchange. Tokens are never cached.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	tok, err := c.creds.Exchange(ctx, c.httpClient, c.cfg.TokenURL, c.cfg.Scope)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeAuthExchange, err, "Failed to authenticate with video provider")
	}
	return tok.AccessToken, nil
}

type predictInstance struct {
	Prompt string        `json:"prompt"`
	Image  instanceImage `json:"image"`
}

type instanceImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

// Submit starts a generation job and returns its operation name.
func (c *Client) Submit(ctx context.Context, token string, in GenerateRequest) (string, error) {
	body := predictRequest{
		Instances: []predictInstance{{
			Prompt: in.Prompt,
			Image: instanceImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(in.Image),
				MimeType:           in.MimeType,
			},
		}},
		Parameters: predictParameters{SampleCount: 1, AspectRatio: in.AspectRatio},
	}

	resp, err := c.postJSON(ctx, token, c.modelURL("predictLongRunning"), body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeProviderRequest, err, "Video provider request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return "", pkgerrors.New(pkgerrors.CodeProviderRequest,
			fmt.Sprintf("Video provider request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	var op Operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeProviderProtocol, err, "Video provider returned an unreadable response")
	}
	if strings.TrimSpace(op.Name) == "" {
		return "", pkgerrors.New(pkgerrors.CodeProviderProtocol, "No operation name returned from video provider")
	}
	return op.Name, nil
}

// FetchOperation polls a job once. Any error here is transient from the
// caller's point of view.
func (c *Client) FetchOperation(ctx context.Context, token, name string) (*Operation, error) {
	resp, err := c.postJSON(ctx, token, c.modelURL("fetchPredictOperation"), map[string]string{"operationName": name})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, fmt.Errorf("poll returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var op Operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decoding operation: %w", err)
	}
	return &op, nil
}

// Fetch returns the video bytes of a parsed sample, downloading remote ones.
func (c *Client) Fetch(ctx context.Context, token string, sample Sample) ([]byte, error) {
	switch s := sample.(type) {
	case InlineSample:
		return s.Data, nil
	case RemoteSample:
		return c.Download(ctx, token, s.URI)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnexpectedFormat, "Unexpected video format in provider response")
	}
}

// Download fetches a gs:// or http(s) URI with the bearer token.
func (c *Client) Download(ctx context.Context, token, uri string) ([]byte, error) {
	target, err := c.downloadURL(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDownload, err, "Failed to download generated video")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDownload, err, "Failed to download generated video")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, pkgerrors.New(pkgerrors.CodeDownload,
			fmt.Sprintf("Failed to download generated video (%d)", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": strings.TrimSpace(string(raw))})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxVideo+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDownload, err, "Failed to read generated video")
	}
	if int64(len(data)) > c.maxVideo {
		return nil, pkgerrors.New(pkgerrors.CodeDownload,
			fmt.Sprintf("Generated video exceeds %d bytes", c.maxVideo)).
			WithDetails(map[string]any{"limit_bytes": c.maxVideo})
	}
	return data, nil
}

// downloadURL maps gs://bucket/object onto the JSON API media endpoint.
func (c *Client) downloadURL(uri string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnexpectedFormat, err, "Unexpected video URI in provider response")
	}
	switch u.Scheme {
	case "gs":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return "", pkgerrors.New(pkgerrors.CodeUnexpectedFormat, "Unexpected video URI in provider response")
		}
		base := strings.TrimRight(c.cfg.StorageBaseURL, "/")
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(u.Host), url.PathEscape(object)), nil
	case "https", "http":
		return u.String(), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeUnexpectedFormat, "Unexpected video URI in provider response")
	}
}

func (c *Client) postJSON(ctx context.Context, token, target string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
