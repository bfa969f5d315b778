package service

import (
	"context"
	"time"

	"github.com/cozee/docchat/internal/model"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
)

type ShareStore interface {
	Create(ctx context.Context, share *model.Share) error
	GetByToken(ctx context.Context, token string) (*model.Share, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Share, error)
	Delete(ctx context.Context, userID, shareID string) error
}

type ShareService struct {
	shares    ShareStore
	resources ResourceSource
}

func NewShareService(shares ShareStore, resources ResourceSource) *ShareService {
	return &ShareService{shares: shares, resources: resources}
}

// Create mints a share token for a resource the user owns.
func (s *ShareService) Create(ctx context.Context, userID, resourceID string) (*model.Share, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	share := &model.Share{
		ID:         newID(),
		Token:      newToken(),
		ResourceID: resourceID,
		UserID:     userID,
		Ctime:      time.Now().UnixMilli(),
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

func (s *ShareService) List(ctx context.Context, userID string) ([]*model.Share, error) {
	return s.shares.ListByUser(ctx, userID)
}

func (s *ShareService) Delete(ctx context.Context, userID, shareID string) error {
	return s.shares.Delete(ctx, userID, shareID)
}

// Resolve maps a share token to the shared resource.
func (s *ShareService) Resolve(ctx context.Context, token string) (*model.Resource, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.resources.GetByID(ctx, share.ResourceID)
}
