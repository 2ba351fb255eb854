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

const (
	purchaseForm   = "BMP-QP09-TR001"
	acceptanceForm = "BMP-QP09-TR002"
)

type purchaseFixture struct {
	svc    *PurchaseService
	db     *sql.DB
	claims repository.ClaimRepository
	pub    *recordingPublisher
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	db := openServiceDB(t)
	f := &purchaseFixture{
		db:     db,
		claims: repository.NewClaimRepository(db),
		pub:    &recordingPublisher{},
	}

	suppliers := NewSupplierService(repository.NewSupplierRepository(db), nil, zap.NewNop(), 10)
	addClass(t, suppliers, "RM")
	_, err := suppliers.Assess(context.Background(), manager, firstAssessment("Acme", "RM", domain.RiskHigh))
	require.NoError(t, err)

	f.svc = NewPurchaseService(
		repository.NewPurchaseRepository(db),
		repository.NewSupplierRepository(db),
		f.claims,
		PurchaseForms{Request: purchaseForm, Acceptance: acceptanceForm},
		f.pub, zap.NewNop(), 10,
	)
	f.svc.now = func() time.Time { return time.Date(2024, time.July, 1, 8, 0, 0, 0, time.Local) }
	return f
}

// claim files a form claim with a fixed number.
func (f *purchaseFixture) claim(t *testing.T, idNo, formNo string) {
	t.Helper()
	rec := &domain.ClaimRecord{
		Type:          domain.ClaimTypeForm,
		DateTime:      date("2024-06-01"),
		ClaimantID:    "alice",
		PersonName:    "Alice Chen",
		Name:          formNo + " form",
		Purpose:       "purchasing",
		OriginalDocNo: formNo,
		DocVer:        "1.0",
		FileExtension: domain.ExtDocx,
	}
	require.NoError(t, f.claims.Create(context.Background(), rec, idNo, func([]string) (string, error) {
		return idNo, nil
	}))
}

func purchaseReq(requestNo string) *domain.PurchaseRequest {
	return &domain.PurchaseRequest{
		RequestNo:    requestNo,
		RequestDate:  "2024-06-03",
		Purchaser:    "Pat",
		ProductClass: "RM",
		SupplierName: "Acme",
		ProductName:  "Epoxy resin",
	}
}

func intp(n int) *int { return &n }

func TestPurchaseService_Create(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()
	bob := domain.Actor{UserID: "bob", Roles: []string{domain.RoleClaimant}}

	f.claim(t, "B202406001", purchaseForm)
	f.claim(t, "B202406002", acceptanceForm)

	p, err := f.svc.Create(ctx, claimant, purchaseReq("b202406001"))
	require.NoError(t, err)
	assert.Equal(t, "B202406001", p.RequestNo)
	assert.Equal(t, "alice", p.Requester)
	assert.Equal(t, "RM materials", p.ProductClassTitle)
	assert.Equal(t, "A", p.SupplierClass)
	assert.Equal(t, "2023-01-05", p.FirstAssessDate.Format(database.DateLayout))

	_, err = f.svc.Create(ctx, claimant, purchaseReq("B202406001"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	wrongForm := purchaseReq("B202406002")
	wrongForm.SupplierName = "Nobody"
	_, err = f.svc.Create(ctx, claimant, wrongForm)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"request_no must be an open claim of BMP-QP09-TR001",
		"supplier is not qualified for this product class",
	}, verr.Messages)

	onBehalf := purchaseReq("B202406001")
	onBehalf.Requester = "carol"
	_, err = f.svc.Create(ctx, bob, onBehalf)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Edit(ctx, bob, "B202406001", purchaseReq("B202406001"))
	assert.ErrorIs(t, err, ErrForbidden)

	edit := purchaseReq("IGNORED")
	edit.ProductName = "Epoxy hardener"
	edited, err := f.svc.Edit(ctx, claimant, "B202406001", edit)
	require.NoError(t, err)
	assert.Equal(t, "B202406001", edited.RequestNo)
	assert.Equal(t, "Epoxy hardener", edited.ProductName)

	assert.ErrorIs(t, f.svc.Delete(ctx, bob, "B202406001"), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, manager, "B202406001"))
	_, err = f.svc.Get(ctx, "B202406001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchaseService_RequestNumberMustBeOpen(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	f.claim(t, "B202406003", purchaseForm)
	rec, err := f.claims.Get(ctx, "B202406003")
	require.NoError(t, err)
	now := time.Now().UTC()
	rec.UnuseTime = date("2024-06-05")
	rec.UnuseTimeModifyBy = "mgr"
	rec.UnuseTimeModifyAt = &now
	require.NoError(t, f.claims.Cancel(ctx, rec))

	_, err = f.svc.Create(ctx, claimant, purchaseReq("B202406003"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"request_no must be an open claim of BMP-QP09-TR001"}, verr.Messages)
}

func TestPurchaseService_AcceptReturnEvaluate(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	f.claim(t, "B202406001", purchaseForm)
	f.claim(t, "B202406004", purchaseForm)
	f.claim(t, "B202406002", acceptanceForm)
	_, err := f.svc.Create(ctx, claimant, purchaseReq("B202406001"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, claimant, purchaseReq("B202406004"))
	require.NoError(t, err)

	eval := &domain.EvaluationRequest{
		PriceSelect:    intp(10),
		SpecSelect:     intp(25),
		DeliverySelect: intp(10),
		ServiceSelect:  intp(5),
		QualitySelect:  intp(10),
		AssessmentNo:   "EV-001",
	}
	_, err = f.svc.Evaluate(ctx, manager, "B202406001", eval)
	assert.ErrorIs(t, err, ErrNotVerified)

	accept := &domain.AcceptanceRequest{
		ReceivePerson: "Rita",
		DeliveryDate:  "2024-06-20",
		VerifyPerson:  "Vic",
		VerifyDate:    "2024-06-21",
		ReceiveNumber: "B202406002",
	}
	_, err = f.svc.Accept(ctx, claimant, "B202406001", accept)
	assert.ErrorIs(t, err, ErrForbidden)

	badAccept := *accept
	badAccept.VerifyDate = "2024-06-19"
	badAccept.ReceiveNumber = "B202406004"
	_, err = f.svc.Accept(ctx, manager, "B202406001", &badAccept)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"verify_date cannot be before delivery_date",
		"receive_number must be an open claim of BMP-QP09-TR002",
	}, verr.Messages)

	accepted, err := f.svc.Accept(ctx, manager, "B202406001", accept)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptReceived, accepted.ReceiptStatus)
	assert.True(t, accepted.Verified())

	_, err = f.svc.Accept(ctx, manager, "B202406004", accept)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"receive_number is already used by another purchase"}, verr.Messages)

	wrongScore := *eval
	wrongScore.PriceSelect = intp(7)
	_, err = f.svc.Evaluate(ctx, manager, "B202406001", &wrongScore)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"price_select must be one of [10 5 0]"}, verr.Messages)

	evaluated, err := f.svc.Evaluate(ctx, manager, "B202406001", eval)
	require.NoError(t, err)
	require.NotNil(t, evaluated.Grade)
	assert.Equal(t, 60, *evaluated.Grade)
	assert.Equal(t, domain.AssessUnqualified, evaluated.AssessResult)
	assert.Equal(t, "2024-07-01", evaluated.AssessDate.Format(database.DateLayout))
	assert.Equal(t, "mgr", evaluated.AssessPerson)

	eval.QualitySelect = intp(40)
	evaluated, err = f.svc.Evaluate(ctx, manager, "B202406001", eval)
	require.NoError(t, err)
	assert.Equal(t, 90, *evaluated.Grade)
	assert.Equal(t, domain.AssessQualified, evaluated.AssessResult)

	_, err = f.svc.Return(ctx, manager, "B202406001")
	require.ErrorAs(t, err, &verr)

	f.claim(t, "B202406005", acceptanceForm)
	accept.ReceiveNumber = "B202406005"
	_, err = f.svc.Accept(ctx, manager, "B202406004", accept)
	require.NoError(t, err)

	returned, err := f.svc.Return(ctx, manager, "B202406004")
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptReturned, returned.ReceiptStatus)
	assert.Empty(t, returned.ReceiveNumber)
	assert.Nil(t, returned.VerifyDate)

	stored, err := f.svc.Get(ctx, "B202406004")
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptReturned, stored.ReceiptStatus)
	assert.Nil(t, stored.DeliveryDate)

	received, err := f.svc.List(ctx, &domain.PurchaseQuery{ReceiptStatus: domain.ReceiptReceived})
	require.NoError(t, err)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "B202406001", received.Items[0].RequestNo)
	assert.Equal(t, 90, *received.Items[0].Grade)

	all, err := f.svc.List(ctx, &domain.PurchaseQuery{SupplierName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalCount)
}
