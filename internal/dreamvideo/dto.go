package dreamvideo

import "github.com/google/uuid"

// GenerateInput is one request to animate a dream image.
type GenerateInput struct {
	DreamID         uuid.UUID
	ImageURL        string
	AnimationPrompt string
	AspectRatio     string
}

// GenerateResult is returned to the caller on success.
type GenerateResult struct {
	VideoURL string `json:"videoUrl"`
}
