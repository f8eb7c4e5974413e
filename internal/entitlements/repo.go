package entitlements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucidrepo/lucid-backend/internal/repo"
	"github.com/lucidrepo/lucid-backend/pkg/db/models"
	"github.com/lucidrepo/lucid-backend/pkg/enums"
)

// Repository reads the role and subscription rows behind paid features.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// HasRole reports whether userID holds role.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error) {
	return r.Exists(ctx, &models.UserRole{}, "user_id = ? AND role = ?", userID, string(role))
}

// HasEntitledSubscription reports whether the user has a subscription row in
// an entitled status.
func (r *Repository) HasEntitledSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	statuses := make([]string, 0, len(enums.EntitledSubscriptionStatuses))
	for _, s := range enums.EntitledSubscriptionStatuses {
		statuses = append(statuses, string(s))
	}
	return r.Exists(ctx, &models.Subscription{}, "user_id = ? AND status IN ?", userID, statuses)
}
