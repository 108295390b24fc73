package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/repositories"
	"github.com/resolvehq/resolve/internal/utils"
)

// ComplaintService is the protected resource behind the token check.
// Role scoping: admins see and manage everything, users only their own
// submissions.
type ComplaintService interface {
	Create(ctx context.Context, claims *models.Claims, c *models.Complaint) (*models.Complaint, error)
	ListFor(ctx context.Context, claims *models.Claims) ([]*models.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) (*models.Complaint, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type complaintService struct {
	repo     repositories.ComplaintRepository
	notifier Notifier
}

func NewComplaintService(repo repositories.ComplaintRepository, notifier Notifier) ComplaintService {
	return &complaintService{repo: repo, notifier: notifier}
}

func (s *complaintService) Create(ctx context.Context, claims *models.Claims, c *models.Complaint) (*models.Complaint, error) {
	submitter, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, err
	}

	c.ID = uuid.New()
	c.Status = models.StatusPending
	c.SubmittedBy = submitter
	c.SubmittedAt = time.Now()

	if err := s.repo.Create(ctx, c); err != nil {
		utils.Logger.WithError(err).Error("failed to create complaint")
		return nil, err
	}

	if s.notifier != nil {
		// Fire and forget: notification failure must never block or fail
		// complaint submission.
		go s.notifier.NotifyNewComplaint(c)
	}

	return c, nil
}

func (s *complaintService) ListFor(ctx context.Context, claims *models.Claims) ([]*models.Complaint, error) {
	if claims.Role == models.RoleAdmin {
		return s.repo.ListAll(ctx)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *complaintService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) (*models.Complaint, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, utils.ErrComplaintNotFound
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrComplaintNotFound
		}
		return nil, err
	}

	oldStatus := c.Status
	c.Status = status
	if s.notifier != nil && oldStatus != status {
		go s.notifier.NotifyStatusUpdate(c, oldStatus)
	}
	return c, nil
}

func (s *complaintService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return utils.ErrComplaintNotFound
		}
		return err
	}
	return nil
}
