package entitlements

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lucidrepo/lucid-backend/pkg/enums"
	pkgerrors "github.com/lucidrepo/lucid-backend/pkg/errors"
)

type repository interface {
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
	HasEntitledSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service answers whether a user may use paid features.
type Service struct {
	repo repository
}

func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("entitlements repository required")
	}
	return &Service{repo: repo}, nil
}

// CanGenerateVideo is true for admins and for users with an active
// subscription record.
func (s *Service) CanGenerateVideo(ctx context.Context, userID uuid.UUID) (bool, error) {
	admin, err := s.repo.HasRole(ctx, userID, enums.UserRoleAdmin)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user role")
	}
	if admin {
		return true, nil
	}

	subscribed, err := s.repo.HasEntitledSubscription(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subscription")
	}
	return subscribed, nil
}
