package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) *time.Time {
	t, err := time.ParseInLocation(database.DateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return &t
}

func allow([]string) error { return nil }

func issue(t *testing.T, repo FormIssueRepository, docNo, ver, issued string) {
	t.Helper()
	require.NoError(t, repo.Issue(context.Background(), &domain.FormIssue{
		OriginalDocNo: docNo,
		DocVer:        ver,
		Name:          docNo + " form",
		IssueDatetime: day(issued),
		FileExtension: domain.ExtDocx,
	}, allow))
}

func TestFormIssueRepository_IssueAndGet(t *testing.T) {
	repo := NewFormIssueRepository(openTestDB(t))
	ctx := context.Background()

	issue(t, repo, "BMD-QA-001", "1.0", "2024-03-01")

	form, err := repo.Get(ctx, "BMD-QA-001", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "BMD-QA-001 form", form.Name)
	assert.Equal(t, "2024-03-01", form.IssueDatetime.Format(database.DateLayout))
	assert.False(t, form.CreatedAt.IsZero())

	_, err = repo.Get(ctx, "BMD-QA-001", "2.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormIssueRepository_IssueDuplicate(t *testing.T) {
	repo := NewFormIssueRepository(openTestDB(t))
	issue(t, repo, "BMD-QA-001", "1.0", "2024-03-01")

	err := repo.Issue(context.Background(), &domain.FormIssue{
		OriginalDocNo: "BMD-QA-001",
		DocVer:        "1.0",
	}, allow)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFormIssueRepository_IssueCheckSeesExisting(t *testing.T) {
	repo := NewFormIssueRepository(openTestDB(t))
	ctx := context.Background()
	issue(t, repo, "BMD-QA-001", "1.0", "2024-03-01")
	issue(t, repo, "BMD-QA-001", "1.1", "2024-04-01")

	veto := errors.New("veto")
	var seen []string
	err := repo.Issue(ctx, &domain.FormIssue{OriginalDocNo: "BMD-QA-001", DocVer: "2.0"},
		func(existing []string) error {
			seen = existing
			return veto
		})

	assert.ErrorIs(t, err, veto)
	assert.Equal(t, []string{"1.0", "1.1"}, seen)

	versions, err := repo.Versions(ctx, "BMD-QA-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "1.1"}, versions)
}

func TestFormIssueRepository_ListAndVersions(t *testing.T) {
	repo := NewFormIssueRepository(openTestDB(t))
	ctx := context.Background()
	issue(t, repo, "BMD-QA-001", "1.0", "2024-01-01")
	issue(t, repo, "BMD-QA-001", "2.0", "2024-02-01")
	issue(t, repo, "BMD-RD-007", "1.0", "2024-03-01")

	where := database.NewWhere().Like("original_doc_no", "QA")
	page, err := repo.List(ctx, where, "issue_datetime desc", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "2.0", page.Items[0].DocVer)
	assert.Equal(t, "1.0", page.Items[1].DocVer)

	byDoc, err := repo.VersionsByDocument(ctx, []string{"BMD-QA-001", "BMD-RD-007", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "2.0"}, byDoc["BMD-QA-001"])
	assert.Equal(t, []string{"1.0"}, byDoc["BMD-RD-007"])
	assert.NotContains(t, byDoc, "missing")
}

func TestFormIssueRepository_Update(t *testing.T) {
	repo := NewFormIssueRepository(openTestDB(t))
	ctx := context.Background()
	issue(t, repo, "BMD-QA-001", "1.0", "2024-01-01")

	err := repo.Update(ctx, &domain.FormIssue{
		OriginalDocNo: "BMD-QA-001",
		DocVer:        "1.0",
		Name:          "Renamed",
		IssueDatetime: day("2024-01-15"),
		FileExtension: domain.ExtXlsx,
	})
	require.NoError(t, err)

	form, err := repo.Get(ctx, "BMD-QA-001", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", form.Name)
	assert.Equal(t, domain.ExtXlsx, form.FileExtension)

	err = repo.Update(ctx, &domain.FormIssue{OriginalDocNo: "nope", DocVer: "1.0"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormIssueRepository_Delete(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormIssueRepository(db)
	claims := NewClaimRepository(db)
	ctx := context.Background()
	issue(t, repo, "BMD-QA-001", "1.0", "2024-01-01")
	issue(t, repo, "BMD-QA-001", "1.1", "2024-02-01")

	require.NoError(t, claims.Create(ctx, &domain.ClaimRecord{
		Type: domain.ClaimTypeForm, DateTime: day("2024-02-02"), ClaimantID: "u1",
		OriginalDocNo: "BMD-QA-001", DocVer: "1.1", FileExtension: domain.ExtDocx,
	}, "B202402", func([]string) (string, error) { return "B202402001", nil }))

	var gotClaims int
	err := repo.Delete(ctx, "BMD-QA-001", "1.1", func(existing []string, n int) error {
		gotClaims = n
		if n > 0 {
			return errors.New("has claims")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 1, gotClaims)

	err = repo.Delete(ctx, "BMD-QA-001", "1.0", func([]string, int) error { return nil })
	require.NoError(t, err)

	versions, err := repo.Versions(ctx, "BMD-QA-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1"}, versions)
}

func newClaim(claimant string) *domain.ClaimRecord {
	return &domain.ClaimRecord{
		Type:          domain.ClaimTypeExternal,
		DateTime:      day("2024-05-10"),
		ClaimantID:    claimant,
		PersonName:    claimant,
		Name:          "Supplier audit",
		Purpose:       "audit",
		FileExtension: domain.ExtDocx,
	}
}

func fixed(id string) func([]string) (string, error) {
	return func([]string) (string, error) { return id, nil }
}

func TestClaimRepository_CreateAllocates(t *testing.T) {
	repo := NewClaimRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405001")))
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405010")))
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202406", fixed("E202406001")))

	var seen []string
	rec := newClaim("u2")
	err := repo.Create(ctx, rec, "E202405", func(existing []string) (string, error) {
		seen = existing
		return "E202405002", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"E202405001", "E202405010"}, seen)
	assert.Equal(t, "E202405002", rec.IDNo)
	assert.Equal(t, domain.ClaimStatusNotStored, rec.Status)

	err = repo.Create(ctx, newClaim("u2"), "E202405", fixed("E202405002"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClaimRepository_CancelAndStore(t *testing.T) {
	repo := NewClaimRepository(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405001")))
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405002")))

	now := time.Now()
	rec, err := repo.Get(ctx, "E202405001")
	require.NoError(t, err)
	rec.UnuseTime = day("2024-05-11")
	rec.RejectReason = "not needed"
	rec.UnuseTimeModifyBy = "u1"
	rec.UnuseTimeModifyAt = &now
	require.NoError(t, repo.Cancel(ctx, rec))
	assert.ErrorIs(t, repo.Cancel(ctx, rec), ErrStale)

	stored, err := repo.Store(ctx, []string{"E202405001", "E202405002"}, StoreUpdate{
		InTime:         *day("2024-05-20"),
		IsConfidential: true,
		ModifiedBy:     "u9",
		ModifiedAt:     now,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"E202405002"}, stored)

	got, err := repo.GetMany(ctx, []string{"E202405001", "E202405002"})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusCancelled, got["E202405001"].Status)
	assert.Equal(t, domain.ClaimStatusStored, got["E202405002"].Status)
	require.NotNil(t, got["E202405002"].IsConfidential)
	assert.True(t, *got["E202405002"].IsConfidential)
	assert.False(t, *got["E202405002"].IsSensitive)
	assert.Equal(t, "u9", got["E202405002"].InTimeModifyBy)
}

func TestClaimRepository_RejectReasonClosesClaim(t *testing.T) {
	db := openTestDB(t)
	repo := NewClaimRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405001")))
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405002")))

	_, err := db.ExecContext(ctx,
		"UPDATE doc_control_maintable SET reject_reason = 'void' WHERE id_no = ?", "E202405001")
	require.NoError(t, err)

	stored, err := repo.Store(ctx, []string{"E202405001", "E202405002"}, StoreUpdate{
		InTime:     *day("2024-05-20"),
		ModifiedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"E202405002"}, stored)

	where := database.NewWhere().Eq("doc_status", string(domain.ClaimStatusCancelled))
	page, err := repo.List(ctx, where, "id_no", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "E202405001", page.Items[0].IDNo)
	assert.False(t, page.Items[0].Open())
	assert.Equal(t, domain.ClaimStatusCancelled, page.Items[0].Status)

	rec, err := repo.Get(ctx, "E202405001")
	require.NoError(t, err)
	rec.RejectReason = "again"
	rec.UnuseTime = day("2024-05-21")
	assert.ErrorIs(t, repo.Cancel(ctx, rec), ErrStale)
}

func TestClaimRepository_UpdateAndStockIn(t *testing.T) {
	repo := NewClaimRepository(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed("E202405001")))

	rec, err := repo.Get(ctx, "E202405001")
	require.NoError(t, err)
	rec.ClaimantID = "u2"
	rec.PersonName = "User Two"
	rec.Name = "Supplier audit report"
	rec.ProjectName = "P-7"
	require.NoError(t, repo.Update(ctx, rec))

	missing := newClaim("u1")
	missing.IDNo = "E202405099"
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)

	now := time.Now()
	yes, no := true, false
	rec.InTime = day("2024-05-20")
	rec.IsConfidential = &yes
	rec.IsSensitive = &no
	rec.InTimeModifyBy = "mgr"
	rec.InTimeModifyAt = &now
	require.NoError(t, repo.StockIn(ctx, rec))
	assert.Equal(t, domain.ClaimStatusStored, rec.Status)

	got, err := repo.Get(ctx, "E202405001")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.ClaimantID)
	assert.Equal(t, "User Two", got.PersonName)
	assert.Equal(t, "Supplier audit report", got.Name)
	assert.Equal(t, "P-7", got.ProjectName)
	assert.Equal(t, domain.ClaimStatusStored, got.Status)
	assert.Equal(t, "mgr", got.InTimeModifyBy)

	got.InTime, got.IsConfidential, got.IsSensitive = nil, nil, nil
	got.InTimeModifyBy, got.InTimeModifyAt = "", nil
	require.NoError(t, repo.StockIn(ctx, got))

	got, err = repo.Get(ctx, "E202405001")
	require.NoError(t, err)
	assert.True(t, got.Open())
	assert.Nil(t, got.IsConfidential)

	got.UnuseTime = day("2024-05-21")
	got.RejectReason = "void"
	got.UnuseTimeModifyAt = &now
	require.NoError(t, repo.Cancel(ctx, got))
	got.InTime = day("2024-05-22")
	assert.ErrorIs(t, repo.StockIn(ctx, got), ErrStale)
}

func TestClaimRepository_ListByStatus(t *testing.T) {
	repo := NewClaimRepository(openTestDB(t))
	ctx := context.Background()
	for _, id := range []string{"E202405001", "E202405002", "E202405003"} {
		require.NoError(t, repo.Create(ctx, newClaim("u1"), "E202405", fixed(id)))
	}
	_, err := repo.Store(ctx, []string{"E202405002"}, StoreUpdate{InTime: *day("2024-05-20"), ModifiedAt: time.Now()})
	require.NoError(t, err)

	where := database.NewWhere().Eq("doc_status", string(domain.ClaimStatusNotStored))
	page, err := repo.List(ctx, where, "id_no desc", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "E202405003", page.Items[0].IDNo)
	assert.Equal(t, "E202405001", page.Items[1].IDNo)
}

func TestBulletinRepository(t *testing.T) {
	repo := NewBulletinRepository(openTestDB(t))
	ctx := context.Background()

	v, err := repo.Get(ctx, domain.BulletinTurnOffDate)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repo.Set(ctx, map[string]string{
		domain.BulletinTurnOffDate: "2024-01-01",
		domain.BulletinMessage:     "hello",
	}))
	require.NoError(t, repo.Set(ctx, map[string]string{domain.BulletinMessage: "updated"}))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		domain.BulletinTurnOffDate: "2024-01-01",
		domain.BulletinMessage:     "updated",
	}, all)
}
