package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/pkg/sanitize"

	"go.uber.org/zap"
)

var feedbackSortColumns = map[string]string{
	"feedback_no":          "feedback_no",
	"subject":              "subject",
	"submitted_by_name":    "submitted_by_name",
	"submitted_org":        "submitted_org",
	"urgency":              "urgency",
	"status":               "status",
	"submitted_date":       "submitted_date",
	"expected_finish_date": "expected_finish_date",
	"closed_date":          "closed_date",
}

type FeedbackService struct {
	repo     repository.FeedbackRepository
	users    repository.UserRepository
	events   EventPublisher
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

func NewFeedbackService(
	repo repository.FeedbackRepository,
	users repository.UserRepository,
	events EventPublisher,
	logger *zap.Logger,
	pageSize int,
) *FeedbackService {
	return &FeedbackService{
		repo:     repo,
		users:    users,
		events:   publisherOrNop(events),
		logger:   logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (s *FeedbackService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// NextFeedbackNumber continues the FByyyymmNNN sequence of one month.
func NextFeedbackNumber(prefix string, existing []string) (string, error) {
	highest := 0
	for _, n := range existing {
		if suffix, ok := claimSuffix(prefix, n); ok {
			highest = max(highest, suffix)
		}
	}
	if highest >= maxSuffix {
		return "", fmt.Errorf("%w: %s", ErrNumbersExhausted, prefix)
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1), nil
}

func primaryRole(roles []string) string {
	for _, r := range roles {
		if r == domain.RoleManager {
			return r
		}
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return ""
}

// Create opens a ticket for the signed-in user. The submitter's name, role
// and email are copied from the account.
func (s *FeedbackService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateFeedbackRequest) (*domain.Feedback, error) {
	sanitize.Fields(&req.Subject, &req.SubmittedOrg, &req.Urgency, &req.ExpectedFinishDate)
	req.Content = sanitize.Text(req.Content)

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	today := s.today()
	fb := &domain.Feedback{
		Subject:          req.Subject,
		SubmittedByID:    user.ID,
		SubmittedByRole:  primaryRole(actor.Roles),
		SubmittedByName:  user.DisplayName(),
		SubmittedByEmail: user.Email,
		SubmittedOrg:     req.SubmittedOrg,
		Urgency:          req.Urgency,
		Status:           domain.FeedbackStatusOpen,
		SubmittedDate:    &today,
		Content:          req.Content,
		CreatedAt:        s.now().UTC(),
	}
	fb.UpdatedAt = fb.CreatedAt

	if req.ExpectedFinishDate != "" {
		d, err := parseDate(req.ExpectedFinishDate)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"expected_finish_date must be a date (YYYY-MM-DD)"}}
		}
		if d.Before(today) {
			return nil, &ValidationError{Messages: []string{"expected_finish_date cannot be in the past"}}
		}
		fb.ExpectedFinishDate = &d
	}

	prefix := "FB" + today.Format("200601")
	err = s.repo.Create(ctx, fb, prefix, func(existing []string) (string, error) {
		return NextFeedbackNumber(prefix, existing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feedback submitted",
		zap.String("feedback_no", fb.FeedbackNo),
		zap.String("urgency", fb.Urgency),
		zap.String("by", actor.UserID),
	)
	s.publish(fb, actor)
	return fb, nil
}

// Get returns a ticket with its thread. Claimants only see their own.
func (s *FeedbackService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Feedback, error) {
	fb, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !actor.IsManager() && fb.SubmittedByID != actor.UserID {
		return nil, ErrForbidden
	}
	return fb, nil
}

// Edit lets a manager rewrite a ticket. Moving to closed stamps today's
// date; moving away from closed clears it.
func (s *FeedbackService) Edit(ctx context.Context, actor domain.Actor, id int64, req *domain.EditFeedbackRequest) (*domain.Feedback, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.Subject, &req.Urgency, &req.Status, &req.ExpectedFinishDate)
	req.Content = sanitize.Text(req.Content)

	fb, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	fb.ExpectedFinishDate = nil
	if req.ExpectedFinishDate != "" {
		d, err := parseDate(req.ExpectedFinishDate)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"expected_finish_date must be a date (YYYY-MM-DD)"}}
		}
		fb.ExpectedFinishDate = &d
	}

	fb.Subject = req.Subject
	fb.Urgency = req.Urgency
	fb.Content = req.Content
	s.applyStatus(fb, req.Status)
	fb.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, fb); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("feedback edited",
		zap.String("feedback_no", fb.FeedbackNo),
		zap.String("status", fb.Status),
		zap.String("by", actor.UserID),
	)
	s.publish(fb, actor)
	return fb, nil
}

func (s *FeedbackService) applyStatus(fb *domain.Feedback, status string) {
	switch {
	case status == domain.FeedbackStatusClosed && fb.Status != domain.FeedbackStatusClosed:
		today := s.today()
		fb.ClosedDate = &today
	case status != domain.FeedbackStatusClosed:
		fb.ClosedDate = nil
	}
	fb.Status = status
}

func (s *FeedbackService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.logger.Info("feedback deleted", zap.Int64("feedback_id", id), zap.String("by", actor.UserID))
	return nil
}

// Reply appends a response to the thread and moves the ticket to the
// response's status. Managers and the submitter may reply.
func (s *FeedbackService) Reply(ctx context.Context, actor domain.Actor, id int64, req *domain.FeedbackReplyRequest) (*domain.Feedback, error) {
	sanitize.Fields(&req.ResponderOrg, &req.StatusAfterResponse)
	req.Content = sanitize.Text(req.Content)

	fb, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !actor.IsManager() && fb.SubmittedByID != actor.UserID {
		return nil, ErrForbidden
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	today := s.today()
	resp := &domain.FeedbackResponse{
		ResponderID:         user.ID,
		ResponderRole:       primaryRole(actor.Roles),
		ResponderName:       user.DisplayName(),
		ResponderEmail:      user.Email,
		ResponderOrg:        req.ResponderOrg,
		ResponseDate:        &today,
		StatusAfterResponse: req.StatusAfterResponse,
		Content:             req.Content,
		CreatedAt:           s.now().UTC(),
	}
	s.applyStatus(fb, req.StatusAfterResponse)
	fb.UpdatedAt = resp.CreatedAt

	if err := s.repo.AddResponse(ctx, resp, fb); err != nil {
		return nil, mapRepoErr(err)
	}
	fb.Responses = append(fb.Responses, *resp)

	s.logger.Info("feedback answered",
		zap.String("feedback_no", fb.FeedbackNo),
		zap.String("status", fb.Status),
		zap.String("by", actor.UserID),
	)
	s.publish(fb, actor)
	return fb, nil
}

// List pages tickets. Claimants are limited to their own tickets.
func (s *FeedbackService) List(ctx context.Context, actor domain.Actor, q *domain.FeedbackQuery) (*database.Page[*domain.Feedback], error) {
	sanitize.Fields(&q.FeedbackNo, &q.SubmittedByName, &q.SubmittedByRole, &q.SubmittedOrg, &q.Urgency,
		&q.Status, &q.SubmittedFrom, &q.SubmittedTo, &q.ClosedFrom, &q.ClosedTo, &q.QuestionContent, &q.ResponseContent)
	q.Normalize(s.pageSize, "submitted_date", "desc")

	where := database.NewWhere().
		Like("feedback_no", strings.ToUpper(q.FeedbackNo)).
		Like("submitted_by_name", q.SubmittedByName).
		Eq("submitted_by_role", q.SubmittedByRole).
		Like("submitted_org", q.SubmittedOrg).
		Eq("urgency", q.Urgency).
		Eq("status", q.Status).
		Gte("submitted_date", q.SubmittedFrom).
		Lte("submitted_date", q.SubmittedTo).
		Gte("closed_date", q.ClosedFrom).
		Lte("closed_date", q.ClosedTo).
		Like("content", q.QuestionContent)
	if q.ResponseContent != "" {
		where.Raw(`EXISTS (SELECT 1 FROM feedback_response r
			WHERE r.feedback_id = feedback.feedback_id AND r.content LIKE ? ESCAPE '\')`,
			database.LikePattern(q.ResponseContent))
	}
	if !actor.IsManager() {
		where.Eq("submitted_by_id", actor.UserID)
	}
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, feedbackSortColumns, "submitted_date")

	return s.repo.List(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

func (s *FeedbackService) publish(fb *domain.Feedback, actor domain.Actor) {
	s.events.Publish(domain.EventFeedbackChanged, domain.FeedbackEvent{
		FeedbackNo: fb.FeedbackNo,
		Status:     fb.Status,
		By:         actor.UserID,
	})
}
