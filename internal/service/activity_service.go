package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type activityLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.ActivityLogDetail, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLogDetail, error)
}

// ActivityService serves the audit trail read paths.
type ActivityService struct {
	activity activityLister
	logger   *zap.Logger
}

// NewActivityService creates a service instance.
func NewActivityService(activity activityLister, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{activity: activity, logger: logger}
}

// Recent returns the newest activity rows across all users.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityLogDetail, error) {
	logs, err := s.activity.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	return logs, nil
}

// ForUser returns one user's activity rows, newest first.
func (s *ActivityService) ForUser(ctx context.Context, userID string, limit int) ([]models.ActivityLogDetail, error) {
	logs, err := s.activity.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user activity")
	}
	return logs, nil
}
