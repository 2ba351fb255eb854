package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
)

type SupplierRepository interface {
	ListClasses(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.ProductClass], error)
	GetClass(ctx context.Context, productClass string) (*domain.ProductClass, error)
	CreateClass(ctx context.Context, pc *domain.ProductClass) error
	UpdateClass(ctx context.Context, pc *domain.ProductClass) error

	List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.QualifiedSupplier], error)
	Get(ctx context.Context, supplierName, productClass string) (*domain.QualifiedSupplier, error)
	UpdateSupplierNo(ctx context.Context, supplierName, productClass, supplierNo string) error

	CreateAssessment(ctx context.Context, a *domain.SupplierAssessment, supplierNo, supplierClass string) error
	ListAssessments(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.SupplierAssessment], error)

	Candidates(ctx context.Context, periodStart, periodEnd, historyStart time.Time) ([]*domain.ReassessCandidate, error)
	RecordReassessment(ctx context.Context, r *domain.Reassessment, insert bool) error
	ListReassessments(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.Reassessment], error)
}

type supplierRepository struct {
	db *sql.DB
}

func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

const productClassColumns = `product_class, supplier_class, product_class_title, disabled`

func scanProductClass(s scanner, extra ...any) (*domain.ProductClass, error) {
	var (
		pc           domain.ProductClass
		class, title sql.NullString
	)
	dest := append([]any{&pc.ProductClass, &class, &title, &pc.Disabled}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	pc.SupplierClass = class.String
	pc.Title = title.String
	return &pc, nil
}

func (r *supplierRepository) ListClasses(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.ProductClass], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + productClassColumns + " FROM product_class" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.ProductClass, error) {
		var rowNum int64
		return scanProductClass(rows, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list product classes: %w", err)
	}
	return page, nil
}

func (r *supplierRepository) GetClass(ctx context.Context, productClass string) (*domain.ProductClass, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productClassColumns+" FROM product_class WHERE product_class = ?", productClass)
	pc, err := scanProductClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product class: %w", err)
	}
	return pc, nil
}

func (r *supplierRepository) CreateClass(ctx context.Context, pc *domain.ProductClass) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO product_class ("+productClassColumns+") VALUES (?, ?, ?, ?)",
		pc.ProductClass, pc.SupplierClass, pc.Title, pc.Disabled)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert product class: %w", err)
	}
	return nil
}

func (r *supplierRepository) UpdateClass(ctx context.Context, pc *domain.ProductClass) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE product_class SET supplier_class = ?, product_class_title = ?, disabled = ? WHERE product_class = ?`,
		pc.SupplierClass, pc.Title, pc.Disabled, pc.ProductClass)
	if err != nil {
		return fmt.Errorf("failed to update product class: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// supplierSelect exposes each qualified supplier with its class title and
// the risk level of its most recent first assessment.
const supplierSelect = `SELECT * FROM (
	SELECT q.supplier_name, q.product_class, COALESCE(pc.product_class_title, '') AS product_class_title,
	       q.supplier_no, q.supplier_class, q.supplier_1st_assess_date,
	       COALESCE((SELECT a.risk_level FROM supplier_1st_assess a
	                 WHERE a.supplier_name = q.supplier_name AND a.product_class = q.product_class
	                 ORDER BY a.assess_date DESC LIMIT 1), '') AS risk_level,
	       q.reassess_date, q.reassess_result
	FROM qualified_suppliers q
	LEFT JOIN product_class pc ON pc.product_class = q.product_class
) s`

func scanSupplier(s scanner, extra ...any) (*domain.QualifiedSupplier, error) {
	var (
		q                               domain.QualifiedSupplier
		no, class, first, date, outcome sql.NullString
	)
	dest := append([]any{&q.SupplierName, &q.ProductClass, &q.Title, &no, &class, &first,
		&q.RiskLevel, &date, &outcome}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	q.SupplierNo = no.String
	q.SupplierClass = class.String
	q.FirstAssessDate = database.ParseDate(first)
	q.ReassessDate = database.ParseDate(date)
	q.ReassessResult = outcome.String
	return &q, nil
}

func (r *supplierRepository) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.QualifiedSupplier], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     supplierSelect + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.QualifiedSupplier, error) {
		var rowNum int64
		return scanSupplier(rows, &rowNum)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return page, nil
}

func (r *supplierRepository) Get(ctx context.Context, supplierName, productClass string) (*domain.QualifiedSupplier, error) {
	row := r.db.QueryRowContext(ctx, supplierSelect+" WHERE supplier_name = ? AND product_class = ?",
		supplierName, productClass)
	q, err := scanSupplier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return q, nil
}

func (r *supplierRepository) UpdateSupplierNo(ctx context.Context, supplierName, productClass, supplierNo string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE qualified_suppliers SET supplier_no = ? WHERE supplier_name = ? AND product_class = ?`,
		database.NullString(supplierNo), supplierName, productClass)
	if err != nil {
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAssessment records a first assessment, qualifying the supplier for
// the class if it was not already.
func (r *supplierRepository) CreateAssessment(ctx context.Context, a *domain.SupplierAssessment, supplierNo, supplierClass string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO qualified_suppliers (supplier_name, product_class, supplier_no, supplier_class, supplier_1st_assess_date)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (supplier_name, product_class) DO NOTHING`,
			a.SupplierName, a.ProductClass, database.NullString(supplierNo), supplierClass,
			database.FormatDate(a.AssessDate))
		if err != nil {
			return fmt.Errorf("failed to qualify supplier: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO supplier_1st_assess
			 (supplier_name, product_class, assess_date, product_name, product_spec, visit, reason,
			  assess_result, improvement, risk_level, remarks, assess_people, supplier_1st_assess_no)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.SupplierName, a.ProductClass, database.FormatDate(a.AssessDate),
			database.NullString(a.ProductName), database.NullString(a.ProductSpec), database.NullString(a.Visit),
			a.Reason, a.AssessResult, database.NullString(a.Improvement), a.RiskLevel,
			database.NullString(a.Remarks), database.NullString(a.AssessPeople), a.AssessNo)
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert assessment: %w", err)
		}
		return nil
	})
}

const assessmentColumns = `supplier_name, product_class, assess_date, product_name, product_spec, visit,
	reason, assess_result, improvement, risk_level, remarks, assess_people, supplier_1st_assess_no`

func (r *supplierRepository) ListAssessments(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.SupplierAssessment], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + assessmentColumns + " FROM supplier_1st_assess" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.SupplierAssessment, error) {
		var (
			a                                    domain.SupplierAssessment
			date, name, spec, visit, reason, imp sql.NullString
			remarks, people, no                  sql.NullString
			rowNum                               int64
		)
		if err := rows.Scan(&a.SupplierName, &a.ProductClass, &date, &name, &spec, &visit,
			&reason, &a.AssessResult, &imp, &a.RiskLevel, &remarks, &people, &no, &rowNum); err != nil {
			return nil, err
		}
		a.AssessDate = database.ParseDate(date)
		a.ProductName = name.String
		a.ProductSpec = spec.String
		a.Visit = visit.String
		a.Reason = reason.String
		a.Improvement = imp.String
		a.Remarks = remarks.String
		a.AssessPeople = people.String
		a.AssessNo = no.String
		return &a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return page, nil
}

// Candidates summarizes every qualified supplier's evaluated purchases in
// [periodStart, periodEnd] and in [historyStart, periodEnd]. Recorded is set
// when a reassessment already falls inside the period.
func (r *supplierRepository) Candidates(ctx context.Context, periodStart, periodEnd, historyStart time.Time) ([]*domain.ReassessCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH period AS (
			SELECT supplier_name, product_class, COUNT(1) AS total_orders, AVG(grade) AS avg_grade
			FROM purchase_records
			WHERE grade IS NOT NULL AND assess_date >= ? AND assess_date <= ?
			GROUP BY supplier_name, product_class
		), history AS (
			SELECT supplier_name, product_class, COUNT(1) AS total_orders
			FROM purchase_records
			WHERE grade IS NOT NULL AND assess_date >= ? AND assess_date <= ?
			GROUP BY supplier_name, product_class
		)
		SELECT q.supplier_name, q.product_class,
		       COALESCE((SELECT a.risk_level FROM supplier_1st_assess a
		                 WHERE a.supplier_name = q.supplier_name AND a.product_class = q.product_class
		                 ORDER BY a.assess_date DESC LIMIT 1), ''),
		       COALESCE(p.total_orders, 0), COALESCE(h.total_orders, 0), COALESCE(p.avg_grade, 0.0),
		       EXISTS (SELECT 1 FROM supplier_reassessment sr
		               WHERE sr.supplier_name = q.supplier_name AND sr.product_class = q.product_class
		                 AND sr.assess_date >= ? AND sr.assess_date <= ?)
		FROM qualified_suppliers q
		LEFT JOIN period p ON p.supplier_name = q.supplier_name AND p.product_class = q.product_class
		LEFT JOIN history h ON h.supplier_name = q.supplier_name AND h.product_class = q.product_class
		ORDER BY q.supplier_name, q.product_class`,
		database.FormatDate(&periodStart), database.FormatDate(&periodEnd),
		database.FormatDate(&historyStart), database.FormatDate(&periodEnd),
		database.FormatDate(&periodStart), database.FormatDate(&periodEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reassessment candidates: %w", err)
	}
	defer rows.Close()

	var out []*domain.ReassessCandidate
	for rows.Next() {
		var c domain.ReassessCandidate
		if err := rows.Scan(&c.SupplierName, &c.ProductClass, &c.RiskLevel,
			&c.TotalOrders, &c.TotalOrdersLatest3, &c.AvgGrade, &c.Recorded); err != nil {
			return nil, fmt.Errorf("failed to scan reassessment candidate: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// RecordReassessment writes the outcome back to the qualified supplier and,
// when insert is set, adds the reassessment row as well. Rerunning on the
// same assessment date overwrites that day's row.
func (r *supplierRepository) RecordReassessment(ctx context.Context, re *domain.Reassessment, insert bool) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if insert {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO supplier_reassessment
				 (supplier_name, product_class, assess_date, grade, total_orders, assess_result, created_by)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (supplier_name, product_class, assess_date) DO UPDATE
				 SET grade = excluded.grade, total_orders = excluded.total_orders, assess_result = excluded.assess_result`,
				re.SupplierName, re.ProductClass, database.FormatDate(re.AssessDate), re.Grade,
				re.TotalOrders, re.AssessResult, database.NullString(re.CreatedBy))
			if err != nil {
				return fmt.Errorf("failed to insert reassessment: %w", err)
			}
			if re.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE qualified_suppliers SET reassess_date = ?, reassess_result = ?
			 WHERE supplier_name = ? AND product_class = ?`,
			database.FormatDate(re.AssessDate), re.AssessResult, re.SupplierName, re.ProductClass)
		if err != nil {
			return fmt.Errorf("failed to update supplier reassessment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

const reassessmentColumns = `id, supplier_name, product_class, assess_date, grade, total_orders, assess_result, created_by`

func (r *supplierRepository) ListReassessments(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.Reassessment], error) {
	page, err := database.Paged(ctx, r.db, database.PageQuery{
		Select:     "SELECT " + reassessmentColumns + " FROM supplier_reassessment" + where.SQL(),
		Args:       where.Args(),
		OrderBy:    orderBy,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, func(rows *sql.Rows) (*domain.Reassessment, error) {
		var (
			re       domain.Reassessment
			date, by sql.NullString
			grade    sql.NullFloat64
			rowNum   int64
		)
		if err := rows.Scan(&re.ID, &re.SupplierName, &re.ProductClass, &date, &grade,
			&re.TotalOrders, &re.AssessResult, &by, &rowNum); err != nil {
			return nil, err
		}
		re.AssessDate = database.ParseDate(date)
		re.Grade = grade.Float64
		re.CreatedBy = by.String
		return &re, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reassessments: %w", err)
	}
	return page, nil
}
