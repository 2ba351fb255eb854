package repository

import (
	"database/sql"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

const formColumns = `original_doc_no, doc_ver, name, issue_datetime, file_extension, created_by, created_at`

func scanForm(s scanner, extra ...any) (*domain.FormIssue, error) {
	var (
		f                         domain.FormIssue
		name, issued, ext, by, at sql.NullString
	)
	dest := append([]any{&f.OriginalDocNo, &f.DocVer, &name, &issued, &ext, &by, &at}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	f.Name = name.String
	f.IssueDatetime = database.ParseDate(issued)
	f.FileExtension = ext.String
	f.CreatedBy = by.String
	if t := database.ParseTimestamp(at); t != nil {
		f.CreatedAt = *t
	}
	return &f, nil
}

const claimColumns = `id_no, type, date_time, id, person_name, name, purpose, original_doc_no,
	doc_ver, project_name, in_time, unuse_time, reject_reason, file_extension,
	is_confidential, is_sensitive, in_time_modify_by, in_time_modify_at,
	unuse_time_modify_by, unuse_time_modify_at`

func scanClaim(s scanner, extra ...any) (*domain.ClaimRecord, error) {
	var (
		c                                             domain.ClaimRecord
		dateTime, claimant, person, name, purpose     sql.NullString
		docNo, docVer, project, inTime, unuse, reason sql.NullString
		ext, inBy, inAt, unuseBy, unuseAt             sql.NullString
		confidential, sensitive                       sql.NullInt64
	)
	dest := append([]any{
		&c.IDNo, &c.Type, &dateTime, &claimant, &person, &name, &purpose, &docNo,
		&docVer, &project, &inTime, &unuse, &reason, &ext,
		&confidential, &sensitive, &inBy, &inAt,
		&unuseBy, &unuseAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	c.DateTime = database.ParseDate(dateTime)
	c.ClaimantID = claimant.String
	c.PersonName = person.String
	c.Name = name.String
	c.Purpose = purpose.String
	c.OriginalDocNo = docNo.String
	c.DocVer = docVer.String
	c.ProjectName = project.String
	c.InTime = database.ParseDate(inTime)
	c.UnuseTime = database.ParseDate(unuse)
	c.RejectReason = reason.String
	c.FileExtension = ext.String
	c.IsConfidential = database.ScanBool(confidential)
	c.IsSensitive = database.ScanBool(sensitive)
	c.InTimeModifyBy = inBy.String
	c.InTimeModifyAt = database.ParseTimestamp(inAt)
	c.UnuseTimeModifyBy = unuseBy.String
	c.UnuseTimeModifyAt = database.ParseTimestamp(unuseAt)
	c.Status = c.DeriveStatus()
	return &c, nil
}
