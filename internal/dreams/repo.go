package dreams

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucidrepo/lucid-backend/internal/repo"
	"github.com/lucidrepo/lucid-backend/pkg/db/models"
)

// ErrNotLinked means an update matched no dream owned by the caller.
var ErrNotLinked = errors.New("dream not found for owner")

// Repository persists dream entries.
type Repository struct {
	repo.Base
}

// NewRepository constructs a dream repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ExistsForOwner reports whether dreamID belongs to userID.
func (r *Repository) ExistsForOwner(ctx context.Context, dreamID, userID uuid.UUID) (bool, error) {
	return r.Exists(ctx, &models.Dream{}, "id = ? AND user_id = ?", dreamID, userID)
}

// UpdateVideoURL sets the video of a dream owned by userID.
func (r *Repository) UpdateVideoURL(ctx context.Context, dreamID, userID uuid.UUID, videoURL string) error {
	res := r.DB(ctx).
		Model(&models.Dream{}).
		Where("id = ? AND user_id = ?", dreamID, userID).
		Update("video_url", videoURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotLinked
	}
	return nil
}
