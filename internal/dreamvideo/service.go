package dreamvideo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/lucidrepo/lucid-backend/internal/dreams"
	"github.com/lucidrepo/lucid-backend/pkg/config"
	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
	"github.com/lucidrepo/lucid-backend/pkg/metrics"
	"github.com/lucidrepo/lucid-backend/pkg/veo"
)

const (
	videoContentType = "video/mp4"
	maxImageBytes    = 20 << 20
	rateLimitScope   = "video"
)

var errOperationPending = errors.New("operation not done")

type entitlementChecker interface {
	CanGenerateVideo(ctx context.Context, userID uuid.UUID) (bool, error)
}

type dreamStore interface {
	ExistsForOwner(ctx context.Context, dreamID, userID uuid.UUID) (bool, error)
	UpdateVideoURL(ctx context.Context, dreamID, userID uuid.UUID, videoURL string) error
}

type videoProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Submit(ctx context.Context, token string, in veo.GenerateRequest) (string, error)
	FetchOperation(ctx context.Context, token, name string) (*veo.Operation, error)
	Fetch(ctx context.Context, token string, sample veo.Sample) ([]byte, error)
}

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
	PublicURL(object string) string
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service turns a dream image into a stored, linked video.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, in GenerateInput) (*GenerateResult, error)
}

// ServiceParams groups dependencies for the dream video service.
type ServiceParams struct {
	Entitlements entitlementChecker
	Dreams       dreamStore
	Provider     videoProvider
	Storage      objectStore
	Limiter      rateLimiter
	Metrics      *metrics.VideoJobMetrics
	Logger       *logger.Logger
	Veo          config.VeoConfig
	Limits       config.VideoLimitsConfig
	HTTPClient   *http.Client
}

type service struct {
	entitlements entitlementChecker
	dreams       dreamStore
	provider     videoProvider
	storage      objectStore
	limiter      rateLimiter
	metrics      *metrics.VideoJobMetrics
	logg         *logger.Logger
	cfg          config.VeoConfig
	limits       config.VideoLimitsConfig
	httpClient   *http.Client
	now          func() time.Time
}

// NewService builds the dream video service.
func NewService(params ServiceParams) (Service, error) {
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement checker required")
	}
	if params.Dreams == nil {
		return nil, fmt.Errorf("dream store required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("video provider required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Veo.PollInterval <= 0 || params.Veo.MaxPollAttempts <= 0 {
		return nil, fmt.Errorf("poll interval and attempts must be positive")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: params.Veo.HTTPTimeout}
	}
	return &service{
		entitlements: params.Entitlements,
		dreams:       params.Dreams,
		provider:     params.Provider,
		storage:      params.Storage,
		limiter:      params.Limiter,
		metrics:      params.Metrics,
		logg:         params.Logger,
		cfg:          params.Veo,
		limits:       params.Limits,
		httpClient:   httpClient,
		now:          time.Now,
	}, nil
}

func (s *service) Generate(ctx context.Context, userID uuid.UUID, in GenerateInput) (result *GenerateResult, err error) {
	started := s.now()
	ctx = s.logg.WithUserID(ctx, userID.String())
	ctx = s.logg.WithDreamID(ctx, in.DreamID.String())
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = string(pkgerrors.CodeOf(err))
		}
		s.metrics.Observe(outcome, s.now().Sub(started))
	}()

	if err := s.authorize(ctx, userID, in.DreamID); err != nil {
		return nil, err
	}

	img, mimeType, err := s.fetchImage(ctx, in.ImageURL)
	if err != nil {
		return nil, err
	}
	aspect := ResolveAspectRatio(in.AspectRatio, img)
	prompt := strings.TrimSpace(in.AnimationPrompt)
	if prompt == "" {
		prompt = s.cfg.DefaultPrompt
	}

	token, err := s.provider.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	opName, err := s.provider.Submit(ctx, token, veo.GenerateRequest{
		Prompt:      prompt,
		Image:       img,
		MimeType:    mimeType,
		AspectRatio: aspect,
	})
	if err != nil {
		return nil, err
	}
	// A submitted job runs until the provider finishes or the poll budget is spent.
	ctx = context.WithoutCancel(ctx)
	ctx = s.logg.WithFields(ctx, map[string]any{"operation": opName, "aspect_ratio": aspect})
	s.logg.Info(ctx, "video job submitted")

	op, err := s.poll(ctx, token, opName)
	if err != nil {
		return nil, err
	}

	sample, err := veo.ParseResult(op.Response)
	if err != nil {
		return nil, err
	}
	video, err := s.provider.Fetch(ctx, token, sample)
	if err != nil {
		return nil, err
	}

	object := fmt.Sprintf("dreams/%s/%s/%d.mp4", userID, in.DreamID, s.now().UnixMilli())
	if err := s.storage.Upload(ctx, object, videoContentType, video); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "Failed to store generated video")
	}
	videoURL := s.storage.PublicURL(object)

	if err := s.dreams.UpdateVideoURL(ctx, in.DreamID, userID, videoURL); err != nil {
		if errors.Is(err, dreams.ErrNotLinked) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeLinkage, err, "Failed to link video to dream")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dream video")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"object": object, "bytes": len(video)}), "dream video stored")
	return &GenerateResult{VideoURL: videoURL}, nil
}

// authorize runs every check that must pass before the provider is contacted.
func (s *service) authorize(ctx context.Context, userID, dreamID uuid.UUID) error {
	allowed, err := s.entitlements.CanGenerateVideo(ctx, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Active subscription required for video generation")
	}

	if s.limiter != nil && s.limits.RequestsLimit > 0 {
		scope := rateLimitScope + ":" + userID.String()
		ok, _, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.limits.RequestsLimit), s.limits.Window)
		switch {
		case err != nil:
			s.logg.WarnErr(ctx, "video rate limit check failed", err)
		case !ok:
			return pkgerrors.New(pkgerrors.CodeRateLimit, "Video generation limit reached, try again later")
		}
	}

	owned, err := s.dreams.ExistsForOwner(ctx, dreamID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check dream owner")
	}
	if !owned {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Dream not found")
	}
	return nil
}

func (s *service) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeUpstreamFetch, err, "Failed to fetch image")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeUpstreamFetch, err, "Failed to fetch image")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", pkgerrors.New(pkgerrors.CodeUpstreamFetch, fmt.Sprintf("Failed to fetch image (%d)", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeUpstreamFetch, err, "Failed to read image")
	}
	if len(data) > maxImageBytes {
		return nil, "", pkgerrors.New(pkgerrors.CodeUpstreamFetch, "Image exceeds 20 MB")
	}

	mimeType := imageMimeType(resp.Header.Get("Content-Type"), data)
	if mimeType == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "imageUrl does not point to an image")
	}
	return data, mimeType, nil
}

// imageMimeType trusts an image/* Content-Type and sniffs everything else.
func imageMimeType(header string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return m.String()
		}
	}
	return ""
}

// poll waits for the operation to finish. Exactly MaxPollAttempts fetches are
// made before giving up; failed fetches count as attempts and are retried.
func (s *service) poll(ctx context.Context, token, name string) (*veo.Operation, error) {
	var (
		attempts int
		finished *veo.Operation
	)
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxPollAttempts-1), retry.NewConstant(s.cfg.PollInterval))

	err := wait(ctx, s.cfg.PollInterval)
	if err == nil {
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempts++
			op, err := s.provider.FetchOperation(ctx, token, name)
			if err != nil {
				s.logg.WarnErr(s.logg.WithField(ctx, "attempt", attempts), "video poll failed", err)
				return retry.RetryableError(err)
			}
			if !op.Done {
				return retry.RetryableError(errOperationPending)
			}
			if op.Failed() {
				return pkgerrors.New(pkgerrors.CodeGenerationFailed,
					fmt.Sprintf("Video generation failed: %s", compactJSON(op.Error))).
					WithDetails(map[string]any{"attempt": attempts})
			}
			finished = op
			return nil
		})
	}
	s.metrics.ObservePolls(attempts)

	switch {
	case err == nil:
		s.logg.Info(s.logg.WithField(ctx, "attempts", attempts), "video job completed")
		return finished, nil
	case pkgerrors.As(err) != nil:
		return nil, err
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err,
			fmt.Sprintf("Video generation timed out after %s", describeBudget(s.cfg.PollBudget()))).
			WithDetails(map[string]any{"attempts": attempts})
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func describeBudget(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		mins := int(d / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	return d.String()
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
