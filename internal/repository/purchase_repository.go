package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
)

type PurchaseRepository interface {
	Create(ctx context.Context, p *domain.PurchaseRecord) error
	Get(ctx context.Context, requestNo string) (*domain.PurchaseRecord, error)
	List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.PurchaseRecord], error)
	Update(ctx context.Context, p *domain.PurchaseRecord) error
	UpdateAcceptance(ctx context.Context, p *domain.PurchaseRecord) error
	UpdateEvaluation(ctx context.Context, p *domain.PurchaseRecord) error
	Delete(ctx context.Context, requestNo string) error
	// ReceiveNumberUsed reports whether another purchase already carries
	// receiveNumber.
	ReceiveNumberUsed(ctx context.Context, receiveNumber, exceptRequestNo string) (bool, error)
}

type purchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

const purchaseColumns = `request_no, request_date, requester, purchaser, product_class, product_class_title,
	supplier_class, supplier_name, product_name, product_spec, product_number, product_unit,
	product_price, keep_time, quality_agreement, quality_agreement_no, change_notification,
	change_notification_no, supplier_1st_assess_date, remarks,
	delivery_date, verify_date, receive_person, verify_person, receive_number, receipt_status,
	price_select, spec_select, delivery_select, service_select, quality_select, grade,
	assess_result, assess_person, assess_date, assessment_no, created_at`

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func intArg(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func scanPurchase(s scanner, extra ...any) (*domain.PurchaseRecord, error) {
	var (
		p                                         domain.PurchaseRecord
		reqDate, requester, purchaser, title      sql.NullString
		supClass, spec, number, unit, keep        sql.NullString
		qaNo, changeNo, firstAssess, remarks      sql.NullString
		delivery, verify, recvBy, verifyBy, recNo sql.NullString
		status, result, assessBy, assessDate, no  sql.NullString
		createdAt                                 sql.NullString
		price                                     sql.NullFloat64
		qa, change                                sql.NullInt64
		priceSel, specSel, delSel, svcSel, qSel   sql.NullInt64
		grade                                     sql.NullInt64
	)
	dest := append([]any{
		&p.RequestNo, &reqDate, &requester, &purchaser, &p.ProductClass, &title,
		&supClass, &p.SupplierName, &p.ProductName, &spec, &number, &unit,
		&price, &keep, &qa, &qaNo, &change,
		&changeNo, &firstAssess, &remarks,
		&delivery, &verify, &recvBy, &verifyBy, &recNo, &status,
		&priceSel, &specSel, &delSel, &svcSel, &qSel, &grade,
		&result, &assessBy, &assessDate, &no, &createdAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	p.RequestDate = database.ParseDate(reqDate)
	p.Requester = requester.String
	p.Purchaser = purchaser.String
	p.ProductClassTitle = title.String
	p.SupplierClass = supClass.String
	p.ProductSpec = spec.String
	p.ProductNumber = number.String
	p.ProductUnit = unit.String
	if price.Valid {
		p.ProductPrice = &price.Float64
	}
	p.KeepTime = keep.String
	p.QualityAgreement = database.ScanBool(qa)
	p.QualityAgreementNo = qaNo.String
	p.ChangeNotification = database.ScanBool(change)
	p.ChangeNotifyNo = changeNo.String
	p.FirstAssessDate = database.ParseDate(firstAssess)
	p.Remarks = remarks.String

	p.DeliveryDate = database.ParseDate(delivery)
	p.VerifyDate = database.ParseDate(verify)
	p.ReceivePerson = recvBy.String
	p.VerifyPerson = verifyBy.String
	p.ReceiveNumber = recNo.String
	p.ReceiptStatus = status.String

	p.PriceSelect = nullInt(priceSel)
	p.SpecSelect = nullInt(specSel)
	p.DeliverySelect = nullInt(delSel)
	p.ServiceSelect = nullInt(svcSel)
	p.QualitySelect = nullInt(qSel)
	p.Grade = nullInt(grade)
	p.AssessResult = result.String
	p.AssessPerson = assessBy.String
	p.AssessDate = database.ParseDate(assessDate)
	p.AssessmentNo = no.String
	if t := database.ParseTimestamp(createdAt); t != nil {
		p.CreatedAt = *t
	}
	return &p, nil
}

func (r *purchaseRepository) Create(ctx context.Context, p *domain.PurchaseRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO purchase_records
		 (request_no, request_date, requester, purchaser, product_class, product_class_title,
		  supplier_class, supplier_name, product_name, product_spec, product_number, product_unit,
		  product_price, keep_time, quality_agreement, quality_agreement_no, change_notification,
		  change_notification_no, supplier_1st_assess_date, remarks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RequestNo, database.FormatDate(p.RequestDate), p.Requester, p.Purchaser, p.ProductClass,
		database.NullString(p.ProductClassTitle), database.NullString(p.SupplierClass), p.SupplierName,
		p.ProductName, database.NullString(p.ProductSpec), database.NullString(p.ProductNumber),
		database.NullString(p.ProductUnit), p.ProductPrice, database.NullString(p.KeepTime),
		database.NullBool(p.QualityAgreement), database.NullString(p.QualityAgreementNo),
		database.NullBool(p.ChangeNotification), database.NullString(p.ChangeNotifyNo),
		database.FormatDate(p.FirstAssessDate), database.NullString(p.Remarks),
		database.FormatTimestamp(&p.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

func (r *purchaseRepository) Get(ctx context.Context, requestNo string) (*domain.PurchaseRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM purchase_records WHERE request_no = ?", requestNo)
	p, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return p, nil
}

func (r *purchaseRepository) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.PurchaseRecord], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + purchaseColumns + " FROM purchase_records" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.PurchaseRecord, error) {
		var rowNum int64
		return scanPurchase(rows, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return page, nil
}

func (r *purchaseRepository) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update rewrites the request part of a purchase. The request number never
// changes.
func (r *purchaseRepository) Update(ctx context.Context, p *domain.PurchaseRecord) error {
	return r.exec(ctx, "update purchase",
		`UPDATE purchase_records
		 SET request_date = ?, requester = ?, purchaser = ?, product_class = ?, product_class_title = ?,
		     supplier_class = ?, supplier_name = ?, product_name = ?, product_spec = ?, product_number = ?,
		     product_unit = ?, product_price = ?, keep_time = ?, quality_agreement = ?, quality_agreement_no = ?,
		     change_notification = ?, change_notification_no = ?, supplier_1st_assess_date = ?, remarks = ?
		 WHERE request_no = ?`,
		database.FormatDate(p.RequestDate), p.Requester, p.Purchaser, p.ProductClass,
		database.NullString(p.ProductClassTitle), database.NullString(p.SupplierClass), p.SupplierName,
		p.ProductName, database.NullString(p.ProductSpec), database.NullString(p.ProductNumber),
		database.NullString(p.ProductUnit), p.ProductPrice, database.NullString(p.KeepTime),
		database.NullBool(p.QualityAgreement), database.NullString(p.QualityAgreementNo),
		database.NullBool(p.ChangeNotification), database.NullString(p.ChangeNotifyNo),
		database.FormatDate(p.FirstAssessDate), database.NullString(p.Remarks),
		p.RequestNo,
	)
}

// UpdateAcceptance writes the goods receipt fields, including clearing them
// on a return.
func (r *purchaseRepository) UpdateAcceptance(ctx context.Context, p *domain.PurchaseRecord) error {
	return r.exec(ctx, "update acceptance",
		`UPDATE purchase_records
		 SET receive_person = ?, delivery_date = ?, verify_person = ?, verify_date = ?,
		     receive_number = ?, receipt_status = ?
		 WHERE request_no = ?`,
		database.NullString(p.ReceivePerson), database.FormatDate(p.DeliveryDate),
		database.NullString(p.VerifyPerson), database.FormatDate(p.VerifyDate),
		database.NullString(p.ReceiveNumber), database.NullString(p.ReceiptStatus),
		p.RequestNo,
	)
}

func (r *purchaseRepository) UpdateEvaluation(ctx context.Context, p *domain.PurchaseRecord) error {
	return r.exec(ctx, "update evaluation",
		`UPDATE purchase_records
		 SET price_select = ?, spec_select = ?, delivery_select = ?, service_select = ?, quality_select = ?,
		     grade = ?, assess_result = ?, assess_person = ?, assess_date = ?, assessment_no = ?
		 WHERE request_no = ?`,
		intArg(p.PriceSelect), intArg(p.SpecSelect), intArg(p.DeliverySelect),
		intArg(p.ServiceSelect), intArg(p.QualitySelect), intArg(p.Grade),
		database.NullString(p.AssessResult), database.NullString(p.AssessPerson),
		database.FormatDate(p.AssessDate), database.NullString(p.AssessmentNo),
		p.RequestNo,
	)
}

func (r *purchaseRepository) Delete(ctx context.Context, requestNo string) error {
	return r.exec(ctx, "delete purchase", "DELETE FROM purchase_records WHERE request_no = ?", requestNo)
}

func (r *purchaseRepository) ReceiveNumberUsed(ctx context.Context, receiveNumber, exceptRequestNo string) (bool, error) {
	var used bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchase_records WHERE receive_number = ? AND request_no <> ?)`,
		receiveNumber, exceptRequestNo).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("failed to check receive number: %w", err)
	}
	return used, nil
}
