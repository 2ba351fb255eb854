package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; ok {
		return repository.ErrConflict
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		cp := *u
		cp.Password = ""
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	for _, user := range m.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type mockFormRepo struct {
	forms         []*domain.FormIssue
	claimCounts   map[string]int
	forceConflict bool
}

func newMockFormRepo() *mockFormRepo {
	return &mockFormRepo{claimCounts: make(map[string]int)}
}

func (m *mockFormRepo) add(docNo, ver, issued string) {
	d, _ := parseDate(issued)
	m.forms = append(m.forms, &domain.FormIssue{
		OriginalDocNo: docNo,
		DocVer:        ver,
		Name:          docNo,
		IssueDatetime: &d,
		FileExtension: domain.ExtDocx,
	})
}

func (m *mockFormRepo) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.FormIssue], error) {
	items := make([]*domain.FormIssue, 0, len(m.forms))
	for _, f := range m.forms {
		cp := *f
		items = append(items, &cp)
	}
	return &database.Page[*domain.FormIssue]{Items: items, TotalCount: len(items), PageNumber: pageNumber, PageSize: pageSize}, nil
}

func (m *mockFormRepo) Get(ctx context.Context, docNo, docVer string) (*domain.FormIssue, error) {
	for _, f := range m.forms {
		if f.OriginalDocNo == docNo && f.DocVer == docVer {
			cp := *f
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockFormRepo) Versions(ctx context.Context, docNo string) ([]string, error) {
	versions := []string{}
	for _, f := range m.forms {
		if f.OriginalDocNo == docNo {
			versions = append(versions, f.DocVer)
		}
	}
	return versions, nil
}

func (m *mockFormRepo) VersionsByDocument(ctx context.Context, docNos []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, d := range docNos {
		v, _ := m.Versions(ctx, d)
		if len(v) > 0 {
			out[d] = v
		}
	}
	return out, nil
}

func (m *mockFormRepo) Issue(ctx context.Context, form *domain.FormIssue, check func(existing []string) error) error {
	existing, _ := m.Versions(ctx, form.OriginalDocNo)
	if err := check(existing); err != nil {
		return err
	}
	if m.forceConflict {
		return repository.ErrConflict
	}
	if _, err := m.Get(ctx, form.OriginalDocNo, form.DocVer); err == nil {
		return repository.ErrConflict
	}
	cp := *form
	m.forms = append(m.forms, &cp)
	return nil
}

func (m *mockFormRepo) Update(ctx context.Context, form *domain.FormIssue) error {
	for i, f := range m.forms {
		if f.OriginalDocNo == form.OriginalDocNo && f.DocVer == form.DocVer {
			cp := *form
			m.forms[i] = &cp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockFormRepo) Delete(ctx context.Context, docNo, docVer string, check func(existing []string, claims int) error) error {
	existing, _ := m.Versions(ctx, docNo)
	if err := check(existing, m.claimCounts[docNo+"@"+docVer]); err != nil {
		return err
	}
	for i, f := range m.forms {
		if f.OriginalDocNo == docNo && f.DocVer == docVer {
			m.forms = append(m.forms[:i], m.forms[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type mockClaimRepo struct {
	records   map[string]*domain.ClaimRecord
	lastWhere *database.Where
	lastOrder string
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{records: make(map[string]*domain.ClaimRecord)}
}

func (m *mockClaimRepo) Create(ctx context.Context, rec *domain.ClaimRecord, prefix string, allocate func(existing []string) (string, error)) error {
	existing, _ := m.NumbersWithPrefix(ctx, prefix)
	idNo, err := allocate(existing)
	if err != nil {
		return err
	}
	if _, ok := m.records[idNo]; ok {
		return repository.ErrConflict
	}
	rec.IDNo = idNo
	rec.Status = rec.DeriveStatus()
	cp := *rec
	m.records[idNo] = &cp
	return nil
}

func (m *mockClaimRepo) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for id := range m.records {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockClaimRepo) Get(ctx context.Context, idNo string) (*domain.ClaimRecord, error) {
	if r, ok := m.records[idNo]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockClaimRepo) GetMany(ctx context.Context, idNos []string) (map[string]*domain.ClaimRecord, error) {
	out := make(map[string]*domain.ClaimRecord)
	for _, id := range idNos {
		if r, err := m.Get(ctx, id); err == nil {
			out[id] = r
		}
	}
	return out, nil
}

func (m *mockClaimRepo) List(ctx context.Context, where *database.Where, orderBy string, pageNumber, pageSize int) (*database.Page[*domain.ClaimRecord], error) {
	m.lastWhere, m.lastOrder = where, orderBy
	page := &database.Page[*domain.ClaimRecord]{Items: []*domain.ClaimRecord{}, PageNumber: pageNumber, PageSize: pageSize}
	for _, r := range m.records {
		cp := *r
		page.Items = append(page.Items, &cp)
	}
	page.TotalCount = len(page.Items)
	return page, nil
}

func (m *mockClaimRepo) Cancel(ctx context.Context, rec *domain.ClaimRecord) error {
	cur, ok := m.records[rec.IDNo]
	if !ok || !cur.Open() {
		return repository.ErrStale
	}
	rec.Status = rec.DeriveStatus()
	cp := *rec
	m.records[rec.IDNo] = &cp
	return nil
}

func (m *mockClaimRepo) Update(ctx context.Context, rec *domain.ClaimRecord) error {
	if _, ok := m.records[rec.IDNo]; !ok {
		return repository.ErrNotFound
	}
	cp := *rec
	m.records[rec.IDNo] = &cp
	return nil
}

func (m *mockClaimRepo) StockIn(ctx context.Context, rec *domain.ClaimRecord) error {
	cur, ok := m.records[rec.IDNo]
	if !ok || cur.UnuseTime != nil || cur.RejectReason != "" {
		return repository.ErrStale
	}
	rec.Status = rec.DeriveStatus()
	cp := *rec
	m.records[rec.IDNo] = &cp
	return nil
}

func (m *mockClaimRepo) Store(ctx context.Context, idNos []string, upd repository.StoreUpdate) ([]string, error) {
	var stored []string
	for _, id := range idNos {
		r, ok := m.records[id]
		if !ok || !r.Open() {
			continue
		}
		in := upd.InTime
		conf, sens := upd.IsConfidential, upd.IsSensitive
		r.InTime = &in
		r.IsConfidential = &conf
		r.IsSensitive = &sens
		r.InTimeModifyBy = upd.ModifiedBy
		r.Status = r.DeriveStatus()
		stored = append(stored, id)
	}
	return stored, nil
}

type mockBulletinRepo struct {
	values map[string]string
}

func newMockBulletinRepo() *mockBulletinRepo {
	return &mockBulletinRepo{values: make(map[string]string)}
}

func (m *mockBulletinRepo) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *mockBulletinRepo) Get(ctx context.Context, code string) (string, error) {
	return m.values[code], nil
}

func (m *mockBulletinRepo) Set(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

type mockQueryStateRepo struct {
	states map[string]*domain.QueryState
}

func newMockQueryStateRepo() *mockQueryStateRepo {
	return &mockQueryStateRepo{states: make(map[string]*domain.QueryState)}
}

func (m *mockQueryStateRepo) Load(ctx context.Context, userID, pageKey string) (*domain.QueryState, error) {
	if s, ok := m.states[userID+"/"+pageKey]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockQueryStateRepo) Save(ctx context.Context, state *domain.QueryState) error {
	state.UpdatedAt = time.Now()
	m.states[state.UserID+"/"+state.PageKey] = state
	return nil
}

func (m *mockQueryStateRepo) Clear(ctx context.Context, userID, pageKey string) error {
	delete(m.states, userID+"/"+pageKey)
	return nil
}

type publishedEvent struct {
	kind    string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind, payload})
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}
