package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/internal/version"
	"docctl-server/pkg/sanitize"

	"go.uber.org/zap"
)

var formSortColumns = map[string]string{
	"name":            "name",
	"issue_datetime":  "issue_datetime",
	"original_doc_no": "original_doc_no",
	"doc_ver":         "doc_ver",
}

var historySortColumns = map[string]string{
	"purpose":    "purpose",
	"date_time":  "date_time",
	"in_time":    "in_time",
	"unuse_time": "unuse_time",
	"doc_status": "doc_status",
}

type FormIssueService struct {
	forms    repository.FormIssueRepository
	claims   repository.ClaimRepository
	resolver *version.Resolver
	events   EventPublisher
	logger   *zap.Logger
	pageSize int
}

func NewFormIssueService(forms repository.FormIssueRepository, claims repository.ClaimRepository, events EventPublisher, logger *zap.Logger, pageSize int) *FormIssueService {
	return &FormIssueService{
		forms:    forms,
		claims:   claims,
		resolver: version.NewResolver(forms),
		events:   publisherOrNop(events),
		logger:   logger,
		pageSize: pageSize,
	}
}

func (s *FormIssueService) List(ctx context.Context, q *domain.FormQuery) (*database.Page[*domain.FormIssue], error) {
	sanitize.Fields(&q.OriginalDocNo, &q.Name, &q.DocVer, &q.IssueDate)
	q.Normalize(s.pageSize, "issue_datetime", "desc")

	where := database.NewWhere().
		Like("original_doc_no", q.OriginalDocNo).
		Like("name", q.Name).
		Like("doc_ver", q.DocVer).
		Eq("issue_datetime", q.IssueDate)
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, formSortColumns, "issue_datetime")

	page, err := s.forms.List(ctx, where, orderBy, q.PageNumber, q.PageSize)
	if err != nil {
		return nil, err
	}

	docNos := make([]string, 0, len(page.Items))
	seen := make(map[string]bool)
	for _, f := range page.Items {
		if !seen[f.OriginalDocNo] {
			seen[f.OriginalDocNo] = true
			docNos = append(docNos, f.OriginalDocNo)
		}
	}

	byDoc, err := s.forms.VersionsByDocument(ctx, docNos)
	if err != nil {
		return nil, err
	}
	for docNo, versions := range byDoc {
		s.warnMalformed(docNo, versions)
	}
	for _, f := range page.Items {
		f.IsLatest = version.IsLatest(byDoc[f.OriginalDocNo], f.DocVer)
	}

	return page, nil
}

func (s *FormIssueService) Get(ctx context.Context, docNo, docVer string) (*domain.FormIssue, error) {
	form, err := s.forms.Get(ctx, strings.TrimSpace(docNo), strings.TrimSpace(docVer))
	if err != nil {
		return nil, mapRepoErr(err)
	}

	form.IsLatest, err = s.resolver.IsLatest(ctx, form.OriginalDocNo, form.DocVer)
	if err != nil {
		return nil, err
	}
	return form, nil
}

// PrepareNewVersion returns the version choices for revising docNo. A blank
// docNo, or a document with no revisions yet, starts at 1.0. An explicit
// docVer must be the latest revision; a blank one means "the latest".
func (s *FormIssueService) PrepareNewVersion(ctx context.Context, docNo, docVer string) (*domain.NewVersionChoice, error) {
	docNo, docVer = strings.TrimSpace(docNo), strings.TrimSpace(docVer)
	choice := &domain.NewVersionChoice{OriginalDocNo: docNo}

	var versions []string
	if docNo != "" {
		var err error
		if versions, err = s.forms.Versions(ctx, docNo); err != nil {
			return nil, err
		}
	}

	if len(versions) == 0 {
		if docVer != "" {
			return nil, ErrNotFound
		}
		choice.IsNewForm = true
		choice.NextMajor = domain.FirstVersion
		return choice, nil
	}

	s.warnMalformed(docNo, versions)
	if docVer == "" {
		docVer, _ = version.Resolve(versions)
	} else if !version.IsLatest(versions, docVer) {
		if !containsFold(versions, docVer) {
			return nil, ErrNotFound
		}
		return nil, ErrNotLatest
	}

	current, err := s.forms.Get(ctx, docNo, docVer)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	nextMajor, nextMinor, err := version.NextVersions(current.DocVer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}

	choice.CurrentVersion = current.DocVer
	choice.NextMajor = nextMajor
	choice.NextMinor = nextMinor
	choice.Name = current.Name
	choice.FileExtension = current.FileExtension
	return choice, nil
}

// Issue records a new revision. The first revision of a document is always
// 1.0; later ones must be a legal successor of the latest revision and
// outrank every stored one. Both checks run inside the insert transaction.
func (s *FormIssueService) Issue(ctx context.Context, actor domain.Actor, req *domain.IssueFormRequest) (*domain.FormIssue, error) {
	sanitize.Fields(&req.OriginalDocNo, &req.DocVer, &req.Name, &req.FileExtension)

	issued, err := parseDate(req.IssueDatetime)
	if err != nil {
		return nil, &ValidationError{Messages: []string{"issue_datetime must be a date (YYYY-MM-DD)"}}
	}

	form := &domain.FormIssue{
		OriginalDocNo: req.OriginalDocNo,
		DocVer:        req.DocVer,
		Name:          req.Name,
		IssueDatetime: &issued,
		FileExtension: strings.ToLower(req.FileExtension),
		CreatedBy:     actor.UserID,
	}

	err = s.forms.Issue(ctx, form, func(existing []string) error {
		if len(existing) == 0 {
			form.DocVer = domain.FirstVersion
			return nil
		}

		s.warnMalformed(form.OriginalDocNo, existing)
		latest, _ := version.Resolve(existing)
		if !version.IsLegalSuccessor(latest, form.DocVer) {
			return fmt.Errorf("%w: %q after %q", ErrInvalidVersion, form.DocVer, latest)
		}
		if !version.Outranks(form.DocVer, existing) {
			return fmt.Errorf("%w: %q", ErrDuplicateVersion, form.DocVer)
		}
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateVersion, form.DocVer)
	}
	if err != nil {
		return nil, err
	}

	form.IsLatest = true
	s.logger.Info("form issued",
		zap.String("doc_no", form.OriginalDocNo),
		zap.String("doc_ver", form.DocVer),
		zap.String("by", actor.UserID),
	)
	s.events.Publish(domain.EventFormIssued, domain.FormEvent{
		OriginalDocNo: form.OriginalDocNo,
		DocVer:        form.DocVer,
		By:            actor.UserID,
	})
	return form, nil
}

// Edit changes the descriptive fields of an issued revision. The document
// number and version are immutable.
func (s *FormIssueService) Edit(ctx context.Context, actor domain.Actor, docNo, docVer string, req *domain.EditFormRequest) (*domain.FormIssue, error) {
	sanitize.Fields(&req.Name, &req.FileExtension)

	issued, err := parseDate(req.IssueDatetime)
	if err != nil {
		return nil, &ValidationError{Messages: []string{"issue_datetime must be a date (YYYY-MM-DD)"}}
	}

	form, err := s.Get(ctx, docNo, docVer)
	if err != nil {
		return nil, err
	}

	form.Name = req.Name
	form.IssueDatetime = &issued
	form.FileExtension = strings.ToLower(req.FileExtension)
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("form edited",
		zap.String("doc_no", form.OriginalDocNo),
		zap.String("doc_ver", form.DocVer),
		zap.String("by", actor.UserID),
	)
	return form, nil
}

// Delete removes the latest revision of a document, provided no claim
// record refers to it.
func (s *FormIssueService) Delete(ctx context.Context, actor domain.Actor, docNo, docVer string) error {
	docNo, docVer = strings.TrimSpace(docNo), strings.TrimSpace(docVer)

	var stored string
	err := s.forms.Delete(ctx, docNo, docVer, func(existing []string, claims int) error {
		if !containsFold(existing, docVer) {
			return ErrNotFound
		}
		if !version.IsLatest(existing, docVer) {
			return ErrNotLatest
		}
		if claims > 0 {
			return fmt.Errorf("%w: %d record(s)", ErrHasClaims, claims)
		}
		stored = docVer
		return nil
	})
	if err != nil {
		return mapRepoErr(err)
	}

	s.logger.Info("form deleted",
		zap.String("doc_no", docNo),
		zap.String("doc_ver", stored),
		zap.String("by", actor.UserID),
	)
	s.events.Publish(domain.EventFormDeleted, domain.FormEvent{
		OriginalDocNo: docNo,
		DocVer:        stored,
		By:            actor.UserID,
	})
	return nil
}

// History lists the claim records of one revision.
func (s *FormIssueService) History(ctx context.Context, docNo, docVer string, p domain.Pagination) (*database.Page[*domain.ClaimRecord], error) {
	form, err := s.forms.Get(ctx, strings.TrimSpace(docNo), strings.TrimSpace(docVer))
	if err != nil {
		return nil, mapRepoErr(err)
	}

	p.Normalize(s.pageSize, "in_time", "asc")
	where := database.NewWhere().
		Eq("original_doc_no", form.OriginalDocNo).
		Eq("doc_ver", form.DocVer)
	orderBy := database.OrderBy(p.OrderBy, p.SortDir, historySortColumns, "in_time")

	return s.claims.List(ctx, where, orderBy, p.PageNumber, p.PageSize)
}

func (s *FormIssueService) Versions(ctx context.Context, docNo string) (*domain.FormVersions, error) {
	docNo = strings.TrimSpace(docNo)
	versions, err := s.forms.Versions(ctx, docNo)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}

	s.warnMalformed(docNo, versions)
	latest, _ := version.Resolve(versions)
	out := &domain.FormVersions{
		OriginalDocNo: docNo,
		Versions:      version.SortDescending(versions),
		Latest:        latest,
		Malformed:     version.Malformed(versions),
	}
	if major, minor, err := version.NextVersions(latest); err == nil {
		out.NextMajor, out.NextMinor = major, minor
	}
	return out, nil
}

// warnMalformed surfaces stored versions that only sort by the padded-text
// fallback, so an operator can correct them.
func (s *FormIssueService) warnMalformed(docNo string, versions []string) {
	if bad := version.Malformed(versions); len(bad) > 0 {
		s.logger.Warn("malformed versions at rest",
			zap.String("doc_no", docNo),
			zap.Strings("versions", bad),
		)
	}
}

func containsFold(values []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, x := range values {
		if strings.EqualFold(strings.TrimSpace(x), v) {
			return true
		}
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(database.DateLayout, strings.TrimSpace(s), time.Local)
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrAlreadyExists
	default:
		return err
	}
}
