package service

import (
	"context"
	"testing"

	"docctl-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var manager = domain.Actor{UserID: "mgr", Roles: []string{domain.RoleManager}}

func newFormService(forms *mockFormRepo, claims *mockClaimRepo) (*FormIssueService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewFormIssueService(forms, claims, pub, zap.NewNop(), 10), pub
}

func issueReq(docNo, ver string) *domain.IssueFormRequest {
	return &domain.IssueFormRequest{
		OriginalDocNo: docNo,
		DocVer:        ver,
		Name:          "Deviation report",
		IssueDatetime: "2024-06-01",
		FileExtension: "XLSX",
	}
}

func TestFormIssueService_IssueFirstRevisionIsAlwaysOne(t *testing.T) {
	forms := newMockFormRepo()
	svc, pub := newFormService(forms, newMockClaimRepo())

	form, err := svc.Issue(context.Background(), manager, issueReq("  BMD-QA-010 ", "3.0"))
	require.NoError(t, err)

	assert.Equal(t, "BMD-QA-010", form.OriginalDocNo)
	assert.Equal(t, "1.0", form.DocVer)
	assert.Equal(t, domain.ExtXlsx, form.FileExtension)
	assert.Equal(t, "mgr", form.CreatedBy)
	assert.True(t, form.IsLatest)
	assert.Equal(t, []string{domain.EventFormIssued}, pub.kinds())
}

func TestFormIssueService_IssueSuccessor(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		ver      string
		wantErr  error
	}{
		{"next major", []string{"1.0"}, "2.0", nil},
		{"next minor", []string{"1.0"}, "1.1", nil},
		{"minor past nine", []string{"1.0", "1.9"}, "1.10", nil},
		{"skipping a major", []string{"1.0"}, "3.0", ErrInvalidVersion},
		{"not from latest", []string{"1.0", "2.0"}, "1.1", ErrInvalidVersion},
		{"same as latest", []string{"1.0"}, "1.0", ErrInvalidVersion},
		{"malformed request", []string{"1.0"}, "v2", ErrInvalidVersion},
		{"malformed latest", []string{"abc"}, "1.0", ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms := newMockFormRepo()
			for _, v := range tt.existing {
				forms.add("BMD-QA-010", v, "2024-01-01")
			}
			svc, _ := newFormService(forms, newMockClaimRepo())

			form, err := svc.Issue(context.Background(), manager, issueReq("BMD-QA-010", tt.ver))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, forms.forms, len(tt.existing))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ver, form.DocVer)
			assert.Len(t, forms.forms, len(tt.existing)+1)
		})
	}
}

func TestFormIssueService_IssueLostRace(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	forms.forceConflict = true
	svc, pub := newFormService(forms, newMockClaimRepo())

	_, err := svc.Issue(context.Background(), manager, issueReq("BMD-QA-010", "2.0"))
	assert.ErrorIs(t, err, ErrDuplicateVersion)
	assert.Empty(t, pub.kinds())
}

func TestFormIssueService_IssueBadDate(t *testing.T) {
	svc, _ := newFormService(newMockFormRepo(), newMockClaimRepo())
	req := issueReq("BMD-QA-010", "1.0")
	req.IssueDatetime = "01/06/2024"

	_, err := svc.Issue(context.Background(), manager, req)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFormIssueService_PrepareNewVersion(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	forms.add("BMD-QA-010", "1.1", "2024-02-01")
	svc, _ := newFormService(forms, newMockClaimRepo())
	ctx := context.Background()

	choice, err := svc.PrepareNewVersion(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, choice.IsNewForm)
	assert.Equal(t, "1.0", choice.NextMajor)
	assert.Empty(t, choice.NextMinor)

	choice, err = svc.PrepareNewVersion(ctx, "BMD-NEW-001", "")
	require.NoError(t, err)
	assert.True(t, choice.IsNewForm)
	assert.Equal(t, "BMD-NEW-001", choice.OriginalDocNo)

	choice, err = svc.PrepareNewVersion(ctx, "BMD-QA-010", "1.1")
	require.NoError(t, err)
	assert.False(t, choice.IsNewForm)
	assert.Equal(t, "1.1", choice.CurrentVersion)
	assert.Equal(t, "2.0", choice.NextMajor)
	assert.Equal(t, "1.2", choice.NextMinor)

	choice, err = svc.PrepareNewVersion(ctx, "BMD-QA-010", "")
	require.NoError(t, err)
	assert.Equal(t, "1.1", choice.CurrentVersion)

	_, err = svc.PrepareNewVersion(ctx, "BMD-QA-010", "1.0")
	assert.ErrorIs(t, err, ErrNotLatest)

	_, err = svc.PrepareNewVersion(ctx, "BMD-QA-010", "7.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormIssueService_Edit(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	svc, _ := newFormService(forms, newMockClaimRepo())

	form, err := svc.Edit(context.Background(), manager, "BMD-QA-010", "1.0", &domain.EditFormRequest{
		Name:          " Renamed ",
		IssueDatetime: "2024-01-05",
		FileExtension: "docx",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", form.Name)
	assert.Equal(t, "1.0", form.DocVer)

	stored, _ := forms.Get(context.Background(), "BMD-QA-010", "1.0")
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, 5, stored.IssueDatetime.Day())

	_, err = svc.Edit(context.Background(), manager, "BMD-QA-010", "9.0", &domain.EditFormRequest{
		Name: "x", IssueDatetime: "2024-01-05", FileExtension: "docx",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormIssueService_Delete(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	forms.add("BMD-QA-010", "2.0", "2024-02-01")
	svc, pub := newFormService(forms, newMockClaimRepo())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, manager, "BMD-QA-010", "1.0"), ErrNotLatest)
	assert.ErrorIs(t, svc.Delete(ctx, manager, "BMD-QA-010", "3.0"), ErrNotFound)

	forms.claimCounts["BMD-QA-010@2.0"] = 2
	assert.ErrorIs(t, svc.Delete(ctx, manager, "BMD-QA-010", "2.0"), ErrHasClaims)

	forms.claimCounts["BMD-QA-010@2.0"] = 0
	require.NoError(t, svc.Delete(ctx, manager, "BMD-QA-010", "2.0"))
	assert.Equal(t, []string{domain.EventFormDeleted}, pub.kinds())

	versions, _ := forms.Versions(ctx, "BMD-QA-010")
	assert.Equal(t, []string{"1.0"}, versions)

	require.NoError(t, svc.Delete(ctx, manager, "BMD-QA-010", "1.0"))
}

func TestFormIssueService_ListFlagsLatest(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	forms.add("BMD-QA-010", "1.10", "2024-03-01")
	forms.add("BMD-QA-010", "1.9", "2024-02-01")
	forms.add("BMD-RD-001", "1.0", "2024-01-01")
	svc, _ := newFormService(forms, newMockClaimRepo())

	q := &domain.FormQuery{}
	page, err := svc.List(context.Background(), q)
	require.NoError(t, err)

	latest := map[string]bool{}
	for _, f := range page.Items {
		latest[f.OriginalDocNo+"@"+f.DocVer] = f.IsLatest
	}
	assert.Equal(t, map[string]bool{
		"BMD-QA-010@1.0":  false,
		"BMD-QA-010@1.10": true,
		"BMD-QA-010@1.9":  false,
		"BMD-RD-001@1.0":  true,
	}, latest)

	assert.Equal(t, 1, q.PageNumber)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, "issue_datetime", q.OrderBy)
	assert.Equal(t, "desc", q.SortDir)
}

func TestFormIssueService_LogsMalformedVersions(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	forms.add("BMD-QA-010", "rev-b", "2024-02-01")
	svc := NewFormIssueService(forms, newMockClaimRepo(), nil, zap.New(core), 10)

	out, err := svc.Versions(context.Background(), "BMD-QA-010")
	require.NoError(t, err)

	assert.Equal(t, "1.0", out.Latest)
	assert.Equal(t, []string{"1.0", "rev-b"}, out.Versions)
	assert.Equal(t, []string{"rev-b"}, out.Malformed)
	assert.Equal(t, "2.0", out.NextMajor)
	assert.Equal(t, "1.1", out.NextMinor)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "malformed versions at rest", entry.Message)
	assert.Equal(t, "BMD-QA-010", entry.ContextMap()["doc_no"])
}

func TestFormIssueService_VersionsUnknownDocument(t *testing.T) {
	svc, _ := newFormService(newMockFormRepo(), newMockClaimRepo())
	_, err := svc.Versions(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormIssueService_History(t *testing.T) {
	forms := newMockFormRepo()
	forms.add("BMD-QA-010", "1.0", "2024-01-01")
	claims := newMockClaimRepo()
	svc, _ := newFormService(forms, claims)
	ctx := context.Background()

	_, err := svc.History(ctx, "BMD-QA-010", "1.0", domain.Pagination{OrderBy: "doc_status", SortDir: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, "doc_status desc", claims.lastOrder)
	assert.Equal(t, []any{"BMD-QA-010", "1.0"}, claims.lastWhere.Args())

	_, err = svc.History(ctx, "BMD-QA-010", "1.0", domain.Pagination{OrderBy: "password"})
	require.NoError(t, err)
	assert.Equal(t, "in_time asc", claims.lastOrder)

	_, err = svc.History(ctx, "BMD-QA-010", "1.0", domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, "in_time asc", claims.lastOrder)

	_, err = svc.History(ctx, "BMD-QA-010", "9.9", domain.Pagination{})
	assert.ErrorIs(t, err, ErrNotFound)
}
