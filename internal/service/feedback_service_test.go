package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openServiceDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() { db.Close() })
	return db
}

type feedbackFixture struct {
	svc   *FeedbackService
	users *mockUserRepository
	pub   *recordingPublisher
	clock time.Time
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()
	db := openServiceDB(t)

	f := &feedbackFixture{
		users: newMockUserRepository(),
		pub:   &recordingPublisher{},
		clock: time.Date(2024, time.June, 15, 9, 0, 0, 0, time.Local),
	}
	f.users.users["alice"] = &domain.User{ID: "alice", Username: "alice", FullName: "Alice Chen", Email: "alice@example.com"}
	f.users.users["bob"] = &domain.User{ID: "bob", Username: "bob", Email: "bob@example.com"}
	f.users.users["mgr"] = &domain.User{ID: "mgr", Username: "mgr", Email: "mgr@example.com", Roles: []string{domain.RoleManager}}

	f.svc = NewFeedbackService(repository.NewFeedbackRepository(db), f.users, f.pub, zap.NewNop(), 10)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func newTicket(subject string) *domain.CreateFeedbackRequest {
	return &domain.CreateFeedbackRequest{
		Subject:      subject,
		SubmittedOrg: "Acme Labs",
		Urgency:      domain.UrgencyUrgent,
		Content:      "Label on lot 42 is smudged",
	}
}

func TestNextFeedbackNumber(t *testing.T) {
	n, err := NextFeedbackNumber("FB202406", nil)
	require.NoError(t, err)
	assert.Equal(t, "FB202406001", n)

	n, err = NextFeedbackNumber("FB202406", []string{"FB202406001", "FB202406007", "FB202405099"})
	require.NoError(t, err)
	assert.Equal(t, "FB202406008", n)

	_, err = NextFeedbackNumber("FB202406", []string{"FB202406999"})
	assert.ErrorIs(t, err, ErrNumbersExhausted)
}

func TestFeedbackService_Create(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	fb, err := f.svc.Create(ctx, claimant, newTicket("Smudged label"))
	require.NoError(t, err)
	assert.Equal(t, "FB202406001", fb.FeedbackNo)
	assert.Equal(t, domain.FeedbackStatusOpen, fb.Status)
	assert.Equal(t, "Alice Chen", fb.SubmittedByName)
	assert.Equal(t, "alice@example.com", fb.SubmittedByEmail)
	assert.Equal(t, domain.RoleClaimant, fb.SubmittedByRole)
	assert.Equal(t, "2024-06-15", fb.SubmittedDate.Format(database.DateLayout))

	second, err := f.svc.Create(ctx, claimant, newTicket("Second"))
	require.NoError(t, err)
	assert.Equal(t, "FB202406002", second.FeedbackNo)

	req := newTicket("Late")
	req.ExpectedFinishDate = "2024-06-01"
	_, err = f.svc.Create(ctx, claimant, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"expected_finish_date cannot be in the past"}, verr.Messages)

	assert.Equal(t, []string{domain.EventFeedbackChanged, domain.EventFeedbackChanged}, f.pub.kinds())
}

func TestFeedbackService_EditClosesAndReopens(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	fb, err := f.svc.Create(ctx, claimant, newTicket("Smudged label"))
	require.NoError(t, err)

	edit := &domain.EditFeedbackRequest{
		Subject: "Smudged label on lot 42",
		Urgency: domain.UrgencyCritical,
		Status:  domain.FeedbackStatusClosed,
		Content: fb.Content,
	}
	_, err = f.svc.Edit(ctx, claimant, fb.ID, edit)
	assert.ErrorIs(t, err, ErrForbidden)

	f.clock = f.clock.AddDate(0, 0, 3)
	closed, err := f.svc.Edit(ctx, manager, fb.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedDate)
	assert.Equal(t, "2024-06-18", closed.ClosedDate.Format(database.DateLayout))

	edit.Status = domain.FeedbackStatusInProgress
	reopened, err := f.svc.Edit(ctx, manager, fb.ID, edit)
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedDate)

	stored, err := f.svc.Get(ctx, manager, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Smudged label on lot 42", stored.Subject)
	assert.Equal(t, domain.UrgencyCritical, stored.Urgency)
	assert.Nil(t, stored.ClosedDate)

	_, err = f.svc.Edit(ctx, manager, 999, edit)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackService_Reply(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	fb, err := f.svc.Create(ctx, claimant, newTicket("Smudged label"))
	require.NoError(t, err)

	bob := domain.Actor{UserID: "bob", Roles: []string{domain.RoleClaimant}}
	_, err = f.svc.Reply(ctx, bob, fb.ID, &domain.FeedbackReplyRequest{StatusAfterResponse: "open", Content: "me too"})
	assert.ErrorIs(t, err, ErrForbidden)

	answered, err := f.svc.Reply(ctx, manager, fb.ID, &domain.FeedbackReplyRequest{
		ResponderOrg:        "QA",
		StatusAfterResponse: domain.FeedbackStatusClosed,
		Content:             "Relabelled and shipped",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackStatusClosed, answered.Status)
	require.NotNil(t, answered.ClosedDate)

	_, err = f.svc.Reply(ctx, claimant, fb.ID, &domain.FeedbackReplyRequest{
		StatusAfterResponse: domain.FeedbackStatusOpen,
		Content:             "Still smudged",
	})
	require.NoError(t, err)

	thread, err := f.svc.Get(ctx, claimant, fb.ID)
	require.NoError(t, err)
	require.Len(t, thread.Responses, 2)
	assert.Equal(t, "mgr", thread.Responses[0].ResponderID)
	assert.Equal(t, domain.RoleManager, thread.Responses[0].ResponderRole)
	assert.Equal(t, "Alice Chen", thread.Responses[1].ResponderName)
	assert.Equal(t, domain.FeedbackStatusOpen, thread.Status)
	assert.Nil(t, thread.ClosedDate)

	_, err = f.svc.Get(ctx, bob, fb.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFeedbackService_ListAndDelete(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	bob := domain.Actor{UserID: "bob", Roles: []string{domain.RoleClaimant}}

	first, err := f.svc.Create(ctx, claimant, newTicket("Smudged label"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, bob, &domain.CreateFeedbackRequest{
		Subject: "Wrong quantity",
		Urgency: domain.UrgencyNormal,
		Content: "Box held 9 units, 10 ordered",
	})
	require.NoError(t, err)
	_, err = f.svc.Reply(ctx, manager, first.ID, &domain.FeedbackReplyRequest{
		StatusAfterResponse: domain.FeedbackStatusInProgress,
		Content:             "Printer ribbon replaced",
	})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, manager, &domain.FeedbackQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalCount)

	own, err := f.svc.List(ctx, bob, &domain.FeedbackQuery{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, "Wrong quantity", own.Items[0].Subject)

	byResponse, err := f.svc.List(ctx, manager, &domain.FeedbackQuery{ResponseContent: "ribbon"})
	require.NoError(t, err)
	require.Len(t, byResponse.Items, 1)
	assert.Equal(t, first.FeedbackNo, byResponse.Items[0].FeedbackNo)

	byQuestion, err := f.svc.List(ctx, manager, &domain.FeedbackQuery{QuestionContent: "9 units"})
	require.NoError(t, err)
	assert.Equal(t, 1, byQuestion.TotalCount)

	urgent, err := f.svc.List(ctx, manager, &domain.FeedbackQuery{Urgency: domain.UrgencyUrgent, Status: domain.FeedbackStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, 1, urgent.TotalCount)

	assert.ErrorIs(t, f.svc.Delete(ctx, claimant, first.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, manager, first.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, manager, first.ID), ErrNotFound)

	_, err = f.svc.Get(ctx, manager, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
