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
	"docctl-server/pkg/sanitize"

	"go.uber.org/zap"
)

var claimSortColumns = map[string]string{
	"id_no":           "id_no",
	"date_time":       "date_time",
	"person_name":     "person_name",
	"name":            "name",
	"original_doc_no": "original_doc_no",
	"in_time":         "in_time",
	"doc_status":      "doc_status",
}

type ClaimService struct {
	claims   repository.ClaimRepository
	forms    repository.FormIssueRepository
	users    repository.UserRepository
	settings *BulletinService
	events   EventPublisher
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

func NewClaimService(
	claims repository.ClaimRepository,
	forms repository.FormIssueRepository,
	users repository.UserRepository,
	settings *BulletinService,
	events EventPublisher,
	logger *zap.Logger,
	pageSize int,
) *ClaimService {
	return &ClaimService{
		claims:   claims,
		forms:    forms,
		users:    users,
		settings: settings,
		events:   publisherOrNop(events),
		logger:   logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (s *ClaimService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// PreviewNumber shows the number the next claim of this type and date would
// get. It is not reserved; Claim allocates again inside its transaction.
func (s *ClaimService) PreviewNumber(ctx context.Context, actor domain.Actor, claimType, date string, reserve bool) (*domain.NextClaimNumber, error) {
	if claimType != domain.ClaimTypeForm && claimType != domain.ClaimTypeExternal {
		return nil, &ValidationError{Messages: []string{"type must be B or E"}}
	}
	if reserve && !actor.IsManager() {
		return nil, ErrForbidden
	}

	day := s.today()
	if date != "" {
		var err error
		if day, err = parseDate(date); err != nil {
			return nil, &ValidationError{Messages: []string{"date must be a date (YYYY-MM-DD)"}}
		}
	}

	prefix := ClaimPrefix(claimType, day)
	existing, err := s.claims.NumbersWithPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	idNo, err := NextClaimNumber(prefix, existing, reserve)
	if err != nil {
		return nil, err
	}
	return &domain.NextClaimNumber{Type: claimType, Reserve: reserve, IDNo: idNo}, nil
}

// Claim checks out a new document number. Only managers may take reserved
// numbers or claim on behalf of someone else. Reserved claims are not bound
// to the turn-off date window.
func (s *ClaimService) Claim(ctx context.Context, actor domain.Actor, req *domain.ClaimRequest) (*domain.ClaimRecord, error) {
	sanitize.Fields(&req.Type, &req.ClaimantID, &req.OriginalDocNo, &req.DocVer, &req.Name, &req.Purpose, &req.ProjectName)
	req.Type = strings.ToUpper(req.Type)

	if req.Reserve && !actor.IsManager() {
		return nil, ErrForbidden
	}

	claimantID := actor.UserID
	if req.ClaimantID != "" && req.ClaimantID != actor.UserID {
		if !actor.IsManager() {
			return nil, ErrForbidden
		}
		claimantID = req.ClaimantID
	}

	verr := &ValidationError{}
	date, dateErr := parseDate(req.DateTime)
	if dateErr != nil {
		verr.Add("date_time must be a date (YYYY-MM-DD)")
	} else if !req.Reserve {
		if err := s.checkClaimDate(ctx, date); err != nil {
			if !errors.Is(err, ErrInvalidClaimDate) {
				return nil, err
			}
			verr.Add(err.Error())
		}
	}

	rec := &domain.ClaimRecord{
		Type:          req.Type,
		DateTime:      &date,
		ClaimantID:    claimantID,
		Name:          req.Name,
		Purpose:       req.Purpose,
		ProjectName:   req.ProjectName,
		FileExtension: domain.ExtDocx,
	}

	switch req.Type {
	case domain.ClaimTypeForm:
		if req.OriginalDocNo == "" {
			verr.Add("original_doc_no is required")
		}
		if req.DocVer == "" {
			verr.Add("doc_ver is required")
		}
		if req.OriginalDocNo != "" && req.DocVer != "" {
			form, err := s.forms.Get(ctx, req.OriginalDocNo, req.DocVer)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				verr.Add(fmt.Sprintf("form %s version %s has not been issued", req.OriginalDocNo, req.DocVer))
			case err != nil:
				return nil, err
			case dateErr == nil && form.IssueDatetime != nil && form.IssueDatetime.After(date):
				verr.Add(fmt.Sprintf("form %s version %s is issued on %s, after the claim date",
					req.OriginalDocNo, req.DocVer, form.IssueDatetime.Format(database.DateLayout)))
			default:
				if form.FileExtension != "" {
					rec.FileExtension = form.FileExtension
				}
			}
		}
		rec.OriginalDocNo = req.OriginalDocNo
		rec.DocVer = req.DocVer
	case domain.ClaimTypeExternal:
	default:
		verr.Add("type must be B or E")
	}
	if req.Name == "" {
		verr.Add("name is required")
	}
	if req.Purpose == "" {
		verr.Add("purpose is required")
	}

	claimant, err := s.users.FindByID(ctx, claimantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if claimantID != actor.UserID {
			verr.Add("claimant does not exist")
		}
		rec.PersonName = claimantID
	case err != nil:
		return nil, err
	default:
		rec.PersonName = claimant.DisplayName()
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	prefix := ClaimPrefix(rec.Type, date)
	err = s.claims.Create(ctx, rec, prefix, func(existing []string) (string, error) {
		return NextClaimNumber(prefix, existing, req.Reserve)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document claimed",
		zap.String("id_no", rec.IDNo),
		zap.String("claimant", rec.ClaimantID),
		zap.Bool("reserve", req.Reserve),
		zap.String("by", actor.UserID),
	)
	s.events.Publish(domain.EventDocumentClaimed, domain.ClaimEvent{IDNos: []string{rec.IDNo}, By: actor.UserID})
	return rec, nil
}

// checkClaimDate enforces turnOffDate <= date <= today.
func (s *ClaimService) checkClaimDate(ctx context.Context, date time.Time) error {
	today := s.today()
	if date.After(today) {
		return fmt.Errorf("%w: %s is in the future", ErrInvalidClaimDate, date.Format(database.DateLayout))
	}

	turnOff, err := s.settings.TurnOffDate(ctx)
	if err != nil {
		return err
	}
	if turnOff != nil && date.Before(*turnOff) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidClaimDate,
			date.Format(database.DateLayout), turnOff.Format(database.DateLayout))
	}
	return nil
}

// Cancel withdraws an open claim. Claimants may cancel their own claims;
// managers may cancel any.
func (s *ClaimService) Cancel(ctx context.Context, actor domain.Actor, idNo string, req *domain.CancelClaimRequest) (*domain.ClaimRecord, error) {
	sanitize.Fields(&req.RejectReason)
	idNo = strings.ToUpper(strings.TrimSpace(idNo))

	unuse, err := parseDate(req.UnuseTime)
	if err != nil {
		return nil, &ValidationError{Messages: []string{"unuse_time must be a date (YYYY-MM-DD)"}}
	}
	if req.RejectReason == "" {
		return nil, &ValidationError{Messages: []string{"reject_reason is required"}}
	}

	rec, err := s.claims.Get(ctx, idNo)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if rec.ClaimantID != actor.UserID && !actor.IsManager() {
		return nil, ErrForbidden
	}
	if !rec.Open() {
		return nil, ErrClaimClosed
	}

	now := s.now()
	rec.UnuseTime = &unuse
	rec.RejectReason = req.RejectReason
	rec.UnuseTimeModifyBy = actor.UserID
	rec.UnuseTimeModifyAt = &now

	if err := s.claims.Cancel(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, ErrClaimClosed
		}
		return nil, err
	}

	s.logger.Info("claim cancelled", zap.String("id_no", rec.IDNo), zap.String("by", actor.UserID))
	s.events.Publish(domain.EventDocumentCancelled, domain.ClaimEvent{IDNos: []string{rec.IDNo}, By: actor.UserID})
	return rec, nil
}

// Store checks a batch of claimed documents back in. Each number gets its
// own message; numbers that fail a check are skipped without failing the
// batch.
func (s *ClaimService) Store(ctx context.Context, actor domain.Actor, req *domain.StoreRequest) (*domain.StoreResult, error) {
	inTime, err := parseDate(req.InTime)
	if err != nil {
		return nil, &ValidationError{Messages: []string{"in_time must be a date (YYYY-MM-DD)"}}
	}
	if req.IsConfidential == nil || req.IsSensitive == nil {
		return nil, &ValidationError{Messages: []string{"is_confidential and is_sensitive are required"}}
	}

	valid, invalid := CleanClaimNumbers(req.DocNos)
	if len(valid) == 0 {
		return nil, &ValidationError{Messages: []string{"no well-formed claim numbers given"}}
	}

	result := &domain.StoreResult{Stored: []string{}, Invalid: invalid}
	for _, n := range invalid {
		result.Items = append(result.Items, domain.StoreItemResult{IDNo: n, Message: "malformed claim number"})
	}

	records, err := s.claims.GetMany(ctx, valid)
	if err != nil {
		return nil, err
	}

	messages := make(map[string]string, len(valid))
	var candidates []string
	for _, idNo := range valid {
		msg, err := s.storeCheck(ctx, records[idNo], inTime)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			messages[idNo] = msg
			continue
		}
		candidates = append(candidates, idNo)
	}

	var stored []string
	if len(candidates) > 0 {
		stored, err = s.claims.Store(ctx, candidates, repository.StoreUpdate{
			InTime:         inTime,
			IsConfidential: *req.IsConfidential,
			IsSensitive:    *req.IsSensitive,
			ModifiedBy:     actor.UserID,
			ModifiedAt:     s.now(),
		})
		if err != nil {
			return nil, err
		}
	}

	storedSet := make(map[string]bool, len(stored))
	for _, n := range stored {
		storedSet[n] = true
	}
	for _, idNo := range valid {
		item := domain.StoreItemResult{IDNo: idNo, Message: messages[idNo]}
		switch {
		case storedSet[idNo]:
			item.Stored = true
			item.Message = "stored"
			result.Stored = append(result.Stored, idNo)
		case item.Message == "":
			item.Message = "changed by another request, skipped"
		}
		result.Items = append(result.Items, item)
	}

	if len(result.Stored) > 0 {
		s.logger.Info("documents stored",
			zap.Strings("id_nos", result.Stored),
			zap.String("by", actor.UserID),
		)
		s.events.Publish(domain.EventDocumentsStored, domain.ClaimEvent{IDNos: result.Stored, By: actor.UserID})
	}
	return result, nil
}

// storeCheck returns a non-empty message when rec cannot be stored on inTime.
func (s *ClaimService) storeCheck(ctx context.Context, rec *domain.ClaimRecord, inTime time.Time) (string, error) {
	if rec == nil {
		return "claim number does not exist", nil
	}
	if rec.InTime != nil {
		return "already stored", nil
	}
	if rec.UnuseTime != nil || rec.RejectReason != "" {
		return "cancelled", nil
	}
	return s.storageDateCheck(ctx, rec, inTime)
}

// storageDateCheck returns a non-empty message when inTime precedes the
// claim date or the issue date of the claimed form.
func (s *ClaimService) storageDateCheck(ctx context.Context, rec *domain.ClaimRecord, inTime time.Time) (string, error) {
	if rec.Type == domain.ClaimTypeForm {
		form, err := s.forms.Get(ctx, rec.OriginalDocNo, rec.DocVer)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Sprintf("form %s version %s is not issued", rec.OriginalDocNo, rec.DocVer), nil
		}
		if err != nil {
			return "", err
		}
		if form.IssueDatetime != nil && inTime.Before(*form.IssueDatetime) {
			return "storage date is before the form issue date", nil
		}
	}

	if rec.DateTime != nil && inTime.Before(*rec.DateTime) {
		return "storage date is before the claim date", nil
	}
	return "", nil
}

// Edit lets a manager correct who claimed a document and what it is. The
// number, claim date and storage state stay as they are.
func (s *ClaimService) Edit(ctx context.Context, actor domain.Actor, idNo string, req *domain.EditClaimRequest) (*domain.ClaimRecord, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.ClaimantID, &req.OriginalDocNo, &req.DocVer, &req.Name, &req.Purpose, &req.ProjectName)

	rec, err := s.claims.Get(ctx, strings.ToUpper(strings.TrimSpace(idNo)))
	if err != nil {
		return nil, mapRepoErr(err)
	}

	verr := &ValidationError{}
	if req.Name == "" {
		verr.Add("name is required")
	}
	if req.Purpose == "" {
		verr.Add("purpose is required")
	}

	if rec.Type == domain.ClaimTypeForm {
		if req.OriginalDocNo == "" || req.DocVer == "" {
			verr.Add("original_doc_no and doc_ver are required")
		} else if req.OriginalDocNo != rec.OriginalDocNo || req.DocVer != rec.DocVer {
			form, err := s.forms.Get(ctx, req.OriginalDocNo, req.DocVer)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				verr.Add(fmt.Sprintf("form %s version %s has not been issued", req.OriginalDocNo, req.DocVer))
			case err != nil:
				return nil, err
			case rec.DateTime != nil && form.IssueDatetime != nil && form.IssueDatetime.After(*rec.DateTime):
				verr.Add(fmt.Sprintf("form %s version %s is issued on %s, after the claim date",
					req.OriginalDocNo, req.DocVer, form.IssueDatetime.Format(database.DateLayout)))
			default:
				if form.FileExtension != "" {
					rec.FileExtension = form.FileExtension
				}
			}
		}
		rec.OriginalDocNo = req.OriginalDocNo
		rec.DocVer = req.DocVer
	}

	claimant, err := s.users.FindByID(ctx, req.ClaimantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		verr.Add("claimant does not exist")
	case err != nil:
		return nil, err
	default:
		rec.ClaimantID = claimant.ID
		rec.PersonName = claimant.DisplayName()
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	rec.Name = req.Name
	rec.Purpose = req.Purpose
	rec.ProjectName = req.ProjectName
	if err := s.claims.Update(ctx, rec); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("claim edited", zap.String("id_no", rec.IDNo), zap.String("by", actor.UserID))
	s.events.Publish(domain.EventDocumentUpdated, domain.ClaimEvent{IDNos: []string{rec.IDNo}, By: actor.UserID})
	return rec, nil
}

// StockIn stores a single claim, re-dating it when it is already stored, or
// takes it back out of storage when no date is given. Cancelled claims are
// refused.
func (s *ClaimService) StockIn(ctx context.Context, actor domain.Actor, idNo string, req *domain.StockInRequest) (*domain.ClaimRecord, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}

	rec, err := s.claims.Get(ctx, strings.ToUpper(strings.TrimSpace(idNo)))
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if rec.UnuseTime != nil || rec.RejectReason != "" {
		return nil, ErrClaimClosed
	}

	if strings.TrimSpace(req.InTime) == "" {
		rec.InTime = nil
		rec.IsConfidential = nil
		rec.IsSensitive = nil
		rec.InTimeModifyBy = ""
		rec.InTimeModifyAt = nil
	} else {
		inTime, err := parseDate(req.InTime)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"in_time must be a date (YYYY-MM-DD)"}}
		}

		verr := &ValidationError{}
		if req.IsConfidential == nil {
			verr.Add("is_confidential is required")
		}
		if req.IsSensitive == nil {
			verr.Add("is_sensitive is required")
		}
		msg, err := s.storageDateCheck(ctx, rec, inTime)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			verr.Add(msg)
		}
		if err := verr.Err(); err != nil {
			return nil, err
		}

		now := s.now()
		rec.InTime = &inTime
		rec.IsConfidential = req.IsConfidential
		rec.IsSensitive = req.IsSensitive
		rec.InTimeModifyBy = actor.UserID
		rec.InTimeModifyAt = &now
	}

	if err := s.claims.StockIn(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, ErrClaimClosed
		}
		return nil, err
	}

	s.logger.Info("claim stock-in updated",
		zap.String("id_no", rec.IDNo),
		zap.Bool("stored", rec.InTime != nil),
		zap.String("by", actor.UserID),
	)
	s.events.Publish(domain.EventDocumentsStored, domain.ClaimEvent{IDNos: []string{rec.IDNo}, By: actor.UserID})
	return rec, nil
}

func (s *ClaimService) Get(ctx context.Context, idNo string) (*domain.ClaimRecord, error) {
	rec, err := s.claims.Get(ctx, strings.ToUpper(strings.TrimSpace(idNo)))
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return rec, nil
}

func (s *ClaimService) List(ctx context.Context, q *domain.ClaimQuery) (*database.Page[*domain.ClaimRecord], error) {
	sanitize.Fields(&q.ClaimantID, &q.IDNo, &q.OriginalDocNo, &q.Name, &q.Type, &q.Status, &q.DateFrom, &q.DateTo)
	q.Normalize(s.pageSize, "date_time", "desc")

	where := database.NewWhere().
		Eq("id", q.ClaimantID).
		Like("id_no", strings.ToUpper(q.IDNo)).
		Like("original_doc_no", q.OriginalDocNo).
		Like("name", q.Name).
		Eq("type", strings.ToUpper(q.Type)).
		Eq("doc_status", q.Status).
		Gte("date_time", q.DateFrom).
		Lte("date_time", q.DateTo)
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, claimSortColumns, "date_time")

	return s.claims.List(ctx, where, orderBy, q.PageNumber, q.PageSize)
}
