package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lucidrepo/lucid-backend/api/middleware"
	"github.com/lucidrepo/lucid-backend/api/responses"
	"github.com/lucidrepo/lucid-backend/api/validators"
	"github.com/lucidrepo/lucid-backend/internal/dreamvideo"
	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
	"github.com/lucidrepo/lucid-backend/pkg/logger"
)

const maxAnimationPromptRunes = 2000

type generateDreamVideoRequest struct {
	DreamID         string `json:"dreamId" validate:"required,uuid"`
	ImageURL        string `json:"imageUrl" validate:"required,http_url"`
	AnimationPrompt string `json:"animationPrompt"`
	AspectRatio     string `json:"aspectRatio"`
}

// GenerateDreamVideo animates a dream's image and links the stored video to it.
func GenerateDreamVideo(svc dreamvideo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized"))
			return
		}

		var req generateDreamVideoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dreamID, err := uuid.Parse(req.DreamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "dreamId must be a valid UUID"))
			return
		}

		// The job runs to completion even if the caller disconnects.
		ctx := context.WithoutCancel(r.Context())
		if logg != nil {
			ctx = logg.WithDreamID(ctx, dreamID.String())
		}

		result, err := svc.Generate(ctx, userID, dreamvideo.GenerateInput{
			DreamID:         dreamID,
			ImageURL:        req.ImageURL,
			AnimationPrompt: validators.SanitizeString(req.AnimationPrompt, maxAnimationPromptRunes),
			AspectRatio:     req.AspectRatio,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// Preflight answers OPTIONS with an empty 200.
func Preflight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
