package complaint

import (
	"context"
	"errors"
	"time"

	"flightbooker/internal/apperr"
	"flightbooker/internal/notification"
	"flightbooker/pkg/idgen"
	"flightbooker/pkg/logger"

	"github.com/jonboulle/clockwork"
)

const recentComplaints = 5

type ResponseNotifier interface {
	ComplaintAnswered(n notification.ComplaintResponse)
}

type CreateRequest struct {
	ComplainantID string `json:"complainantId"`
	Description   string `json:"description" binding:"required,max=2000"`
}

type RespondRequest struct {
	AdminID  string `json:"adminId"`
	Response string `json:"response" binding:"required,max=2000"`
}

type Service struct {
	repo     Repository
	ids      idgen.Generator
	notifier ResponseNotifier
	clock    clockwork.Clock
	logger   logger.Client
}

func NewService(repo Repository, ids idgen.Generator, notifier ResponseNotifier, clock clockwork.Clock, l logger.Client) *Service {
	return &Service{repo: repo, ids: ids, notifier: notifier, clock: clock, logger: l}
}

func notFound(id int64) error {
	return apperr.NotFound("complaintId", "Complaint with id %d not found.", id)
}

func (s *Service) requireUser(ctx context.Context, field, id string) error {
	ok, err := s.repo.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(field, "User with id %s not found.", id)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (int64, error) {
	if err := s.requireUser(ctx, "complainantId", req.ComplainantID); err != nil {
		return 0, err
	}

	c := Complaint{
		ID:          s.ids.GenerateID(),
		UserID:      req.ComplainantID,
		Description: req.Description,
		DateIssued:  s.clock.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, apperr.NotFound("complainantId", "User with id %s not found.", req.ComplainantID)
		}
		return 0, err
	}
	s.logger.Info("complaint_created",
		logger.Field{Key: "complaint_id", Value: c.ID},
		logger.Field{Key: "complainant_id", Value: c.UserID},
	)
	return c.ID, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Complaint, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(id)
	}
	return c, err
}

func (s *Service) List(ctx context.Context) ([]Complaint, error) {
	return s.repo.List(ctx)
}

// Delete hides the complaint from listings. The row is kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Remove(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return err
	}
	s.logger.Info("complaint_removed", logger.Field{Key: "complaint_id", Value: id})
	return nil
}

// Respond resolves the complaint on behalf of adminID and emails the answer
// to the complainant.
func (s *Service) Respond(ctx context.Context, id int64, req RespondRequest) error {
	if err := s.requireUser(ctx, "adminId", req.AdminID); err != nil {
		return err
	}

	resolved, err := s.repo.Resolve(ctx, Resolution{
		ComplaintID: id,
		AdminID:     req.AdminID,
		Response:    req.Response,
		ResolvedAt:  s.clock.Now(),
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(id)
	case errors.Is(err, ErrUserNotFound):
		return apperr.NotFound("adminId", "User with id %s not found.", req.AdminID)
	case err != nil:
		return err
	}

	s.logger.Info("complaint_resolved",
		logger.Field{Key: "complaint_id", Value: id},
		logger.Field{Key: "admin_id", Value: req.AdminID},
	)
	s.notifier.ComplaintAnswered(notification.ComplaintResponse{
		ToAddress:   resolved.Complainant.Email,
		ToName:      resolved.Complainant.FirstName + " " + resolved.Complainant.LastName,
		ComplaintID: id,
		Description: resolved.Description,
		Response:    req.Response,
	})
	return nil
}

func (s *Service) Metrics(ctx context.Context, adminID string) (*Metrics, error) {
	if err := s.requireUser(ctx, "adminId", adminID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return s.repo.Metrics(ctx, adminID, now.AddDate(0, -1, 0), now.Add(-7*24*time.Hour), recentComplaints)
}
