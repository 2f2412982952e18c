package service

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/limiter"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
)

/************ users ************/

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	nextID int64

	getErr    error
	digestErr error
	since     []model.SyncUser

	lastWithCreds bool
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*model.User{}, nextID: 100}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.Username == u.Username || ex.Email == u.Email {
			return nil, errs.ErrAlreadyExists
		}
	}
	f.nextID++
	c := *u
	c.ID = f.nextID
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Username == login || u.Email == login {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) List(context.Context, model.Page) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User, withCredentials bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[u.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	f.lastWithCreds = withCredentials
	cur.Username, cur.Email, cur.RoleID = u.Username, u.Email, u.RoleID
	if withCredentials {
		cur.PasswordHash, cur.OfflineDigest = u.PasswordHash, u.OfflineDigest
	}
	c := *cur
	return &c, nil
}

func (f *fakeUsers) UpdateOfflineDigest(_ context.Context, id int64, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.digestErr != nil {
		return f.digestErr
	}
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.OfflineDigest = digest
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) CreatedSince(context.Context, time.Time) ([]model.SyncUser, error) {
	return f.since, nil
}

type fakeRoles struct{ roles []model.Role }

var _ repository.RoleRepository = (*fakeRoles)(nil)

func (f *fakeRoles) ListActive(context.Context) ([]model.Role, error) { return f.roles, nil }

func (f *fakeRoles) GetByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			c := r
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

/************ limiter ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

/************ products ************/

type fakeProducts struct {
	mu     sync.Mutex
	rows   map[int64]model.Product
	nextID int64

	createErr error
	updateErr map[int64]error

	changedSince time.Time
	listSince    *time.Time
}

var _ repository.ProductRepository = (*fakeProducts)(nil)

func newFakeProducts(ps ...model.Product) *fakeProducts {
	f := &fakeProducts{rows: map[int64]model.Product{}, nextID: 1000, updateErr: map[int64]error{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Create(_ context.Context, in model.ProductInput) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p := model.Product{ID: f.nextID, Name: in.Name, Price: in.Price, Quantity: in.Quantity}
	f.rows[p.ID] = p
	return &p, nil
}

func (f *fakeProducts) Get(_ context.Context, id int64) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) List(_ context.Context, since *time.Time, _ model.Page) ([]model.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSince = since
	out := []model.Product{}
	for _, p := range f.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeProducts) Update(_ context.Context, in model.ProductInput) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[in.ID]; err != nil {
		return nil, err
	}
	if _, ok := f.rows[in.ID]; !ok {
		return nil, errs.ErrNotFound
	}
	p := model.Product{ID: in.ID, Name: in.Name, Price: in.Price, Quantity: in.Quantity}
	f.rows[in.ID] = p
	return &p, nil
}

func (f *fakeProducts) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeProducts) ChangedSince(_ context.Context, since time.Time) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changedSince = since
	out := []model.Product{}
	for _, p := range f.rows {
		out = append(out, p)
	}
	return out, nil
}

/************ forms ************/

type fakeForms struct {
	forms    map[int64]model.Form
	sections map[int64][]model.Section
	fields   map[int64][]model.Field
	options  map[int64][]model.Option

	optionCalls []int64
	lastFilter  model.FormFilter
	lastPage    model.Page
	dupTitle    string
	dupErr      error
	updated     *model.Form
}

var _ repository.FormRepository = (*fakeForms)(nil)

func (f *fakeForms) Create(_ context.Context, in *model.Form) (*model.Form, error) {
	c := *in
	c.ID = 1
	return &c, nil
}

func (f *fakeForms) Get(_ context.Context, id int64) (*model.Form, error) {
	fm, ok := f.forms[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &fm, nil
}

func (f *fakeForms) List(_ context.Context, filter model.FormFilter, page model.Page) ([]model.FormSummary, int, error) {
	f.lastFilter, f.lastPage = filter, page
	return []model.FormSummary{}, 0, nil
}

func (f *fakeForms) Update(_ context.Context, in *model.Form) (*model.Form, error) {
	c := *in
	f.updated = &c
	return &c, nil
}

func (f *fakeForms) Delete(context.Context, int64) error { return nil }

func (f *fakeForms) Sections(_ context.Context, formID int64) ([]model.Section, error) {
	return append([]model.Section(nil), f.sections[formID]...), nil
}

func (f *fakeForms) Fields(_ context.Context, sectionID int64) ([]model.Field, error) {
	return append([]model.Field(nil), f.fields[sectionID]...), nil
}

func (f *fakeForms) Options(_ context.Context, fieldID int64) ([]model.Option, error) {
	f.optionCalls = append(f.optionCalls, fieldID)
	return append([]model.Option(nil), f.options[fieldID]...), nil
}

func (f *fakeForms) Duplicate(_ context.Context, srcID, creatorID int64, title string) (int64, error) {
	if f.dupErr != nil {
		return 0, f.dupErr
	}
	f.dupTitle = title
	src := f.forms[srcID]
	src.ID, src.Title, src.Status, src.CreatorID = 900, title, model.FormDraft, creatorID
	f.forms[900] = src
	return 900, nil
}

type fakeSections struct{ created *model.Section }

var _ repository.SectionRepository = (*fakeSections)(nil)

func (f *fakeSections) Create(_ context.Context, s *model.Section) (*model.Section, error) {
	c := *s
	f.created = &c
	return &c, nil
}
func (f *fakeSections) Update(_ context.Context, s *model.Section) (*model.Section, error) {
	c := *s
	return &c, nil
}
func (f *fakeSections) Delete(context.Context, int64) error { return nil }

type fakeFields struct {
	created     *model.Field
	updated     *model.Field
	lastReplace bool
}

var _ repository.FieldRepository = (*fakeFields)(nil)

func (f *fakeFields) Create(_ context.Context, in *model.Field) (*model.Field, error) {
	c := *in
	f.created = &c
	return &c, nil
}
func (f *fakeFields) Get(_ context.Context, id int64) (*model.Field, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeFields) Update(_ context.Context, in *model.Field, replaceOptions bool) (*model.Field, error) {
	c := *in
	f.updated, f.lastReplace = &c, replaceOptions
	return &c, nil
}
func (f *fakeFields) Delete(context.Context, int64) error { return nil }

/************ answers ************/

type fakeAnswers struct {
	saved        *model.SaveAnswer
	rows         map[int64]model.Answer
	values       map[int64][]model.AnswerValue
	lastOwner    *int64
	listedByForm bool
	dashboard    *model.DashboardFilter
}

var _ repository.AnswerRepository = (*fakeAnswers)(nil)

func (f *fakeAnswers) Save(_ context.Context, in model.SaveAnswer) (*model.Answer, error) {
	c := in
	f.saved = &c
	return &model.Answer{ID: 55, FormID: in.FormID, UserID: in.UserID, Status: in.Status}, nil
}

func (f *fakeAnswers) Get(_ context.Context, id int64, ownerID *int64) (*model.Answer, error) {
	f.lastOwner = ownerID
	a, ok := f.rows[id]
	if !ok || (ownerID != nil && a.UserID != *ownerID) {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

func (f *fakeAnswers) Values(_ context.Context, answerID int64) ([]model.AnswerValue, error) {
	return f.values[answerID], nil
}

func (f *fakeAnswers) ListByUser(context.Context, int64) ([]model.Answer, error) {
	return []model.Answer{}, nil
}

func (f *fakeAnswers) ListByFormAndUser(context.Context, int64, int64) ([]model.Answer, error) {
	return []model.Answer{}, nil
}

func (f *fakeAnswers) ListByForm(context.Context, int64) ([]model.Answer, error) {
	f.listedByForm = true
	return []model.Answer{}, nil
}

func (f *fakeAnswers) Dashboard(_ context.Context, df model.DashboardFilter) (*model.Dashboard, error) {
	c := df
	f.dashboard = &c
	return &model.Dashboard{ByForm: []model.FormAnswerStats{}, Answers: []model.Answer{}}, nil
}

/************ notifier ************/

type emitted struct {
	event   string
	payload any
}

type recNotifier struct {
	mu     sync.Mutex
	events []emitted
}

var _ Notifier = (*recNotifier)(nil)

func (n *recNotifier) Emit(_ context.Context, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{event: event, payload: payload})
}

func (n *recNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.event
	}
	return out
}
