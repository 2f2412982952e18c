package httpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/service"
)

type fakeAuth struct {
	tokens  map[string]model.Principal
	loginIP string
	err     error
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Login(_ context.Context, login, password, ip string) (model.Tokens, model.User, error) {
	f.loginIP = ip
	if f.err != nil {
		return model.Tokens{}, model.User{}, f.err
	}
	return model.Tokens{AccessToken: "tok-" + login, ExpiresAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		model.User{ID: 3, Username: login}, nil
}

func (f *fakeAuth) ParseToken(token string) (model.Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return model.Principal{}, errs.ErrUnauthorized
	}
	return p, nil
}

type fakeUsers struct {
	createErr  error
	lastCreds  bool
	lastCaller model.Principal
}

var _ service.UserService = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, in model.NewUser, c model.Principal) (*model.User, error) {
	f.lastCaller = c
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.User{ID: 10, Username: in.Username, Email: in.Email}, nil
}
func (f *fakeUsers) Get(_ context.Context, id int64) (*model.User, error) {
	return &model.User{ID: id}, nil
}
func (f *fakeUsers) List(_ context.Context, p model.Page, creds bool, _ model.Principal) ([]model.User, model.Pagination, error) {
	f.lastCreds = creds
	return nil, model.NewPagination(p, 0), nil
}
func (f *fakeUsers) Update(_ context.Context, id int64, in model.UserUpdate, c model.Principal) (*model.User, error) {
	f.lastCaller = c
	return &model.User{ID: id, Username: in.Username}, nil
}
func (f *fakeUsers) Delete(_ context.Context, _ int64, c model.Principal) error {
	f.lastCaller = c
	return nil
}

type fakeRoles struct{}

func (fakeRoles) ListActive(context.Context) ([]model.Role, error) {
	return []model.Role{{ID: 1, Name: model.RoleAdministrator, Active: true}}, nil
}

type fakeProducts struct{ getErr error }

var _ service.ProductService = (*fakeProducts)(nil)

func (f *fakeProducts) Create(_ context.Context, in model.ProductInput) (*model.Product, error) {
	return &model.Product{ID: 1, Name: in.Name}, nil
}
func (f *fakeProducts) Get(_ context.Context, id int64) (*model.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &model.Product{ID: id, Name: "milk"}, nil
}
func (f *fakeProducts) List(_ context.Context, since *time.Time, p model.Page) (service.ProductList, error) {
	typ := service.SyncFull
	if since != nil {
		typ = service.SyncIncremental
	}
	return service.ProductList{Products: []model.Product{}, Pagination: model.NewPagination(p, 0), SyncType: typ}, nil
}
func (f *fakeProducts) Update(_ context.Context, in model.ProductInput) (*model.Product, error) {
	return &model.Product{ID: in.ID, Name: in.Name}, nil
}
func (f *fakeProducts) Delete(context.Context, int64) error { return nil }

type fakeSync struct {
	since *time.Time
	push  service.PushResult
	raw   []json.RawMessage
}

var _ service.SyncService = (*fakeSync)(nil)

func (f *fakeSync) Pull(_ context.Context, since *time.Time) (service.PullResult, error) {
	f.since = since
	return service.PullResult{Products: []model.Product{}, Users: []model.SyncUser{}, SyncTime: "2024-03-01T09:00:00Z"}, nil
}
func (f *fakeSync) Push(context.Context, []model.ProductInput) (service.PushResult, error) {
	return f.push, nil
}
func (f *fakeSync) PushRaw(_ context.Context, items []json.RawMessage) (service.PushResult, error) {
	f.raw = items
	return f.push, nil
}

type fakeForms struct {
	lastField    model.Field
	lastSupplied bool
	createErr    error
}

var _ service.FormService = (*fakeForms)(nil)

func (f *fakeForms) Create(_ context.Context, in model.Form, c model.Principal) (*model.Form, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	in.ID, in.CreatorID = 1, c.UserID
	return &in, nil
}
func (f *fakeForms) Get(_ context.Context, id int64) (*model.Form, error) {
	return &model.Form{ID: id, Sections: []model.Section{}}, nil
}
func (f *fakeForms) List(_ context.Context, q service.FormQuery, _ model.Principal) (service.FormList, error) {
	return service.FormList{Forms: []model.FormSummary{}}, nil
}
func (f *fakeForms) Update(_ context.Context, in model.Form) (*model.Form, error) { return &in, nil }
func (f *fakeForms) Delete(context.Context, int64) error { return nil }
func (f *fakeForms) Duplicate(_ context.Context, id int64, _ model.Principal) (*model.Form, error) {
	return &model.Form{ID: id + 100}, nil
}
func (f *fakeForms) CreateSection(_ context.Context, formID int64, s model.Section) (*model.Section, error) {
	s.FormID = formID
	return &s, nil
}
func (f *fakeForms) UpdateSection(_ context.Context, s model.Section) (*model.Section, error) {
	return &s, nil
}
func (f *fakeForms) DeleteSection(context.Context, int64) error { return nil }
func (f *fakeForms) CreateField(_ context.Context, sectionID int64, fl model.Field) (*model.Field, error) {
	fl.SectionID = sectionID
	f.lastField = fl
	return &fl, nil
}
func (f *fakeForms) UpdateField(_ context.Context, fl model.Field, supplied bool) (*model.Field, error) {
	f.lastField, f.lastSupplied = fl, supplied
	return &fl, nil
}
func (f *fakeForms) DeleteField(context.Context, int64) error { return nil }

type fakeAnswers struct {
	saved     model.SaveAnswer
	dashboard model.DashboardFilter
}

var _ service.AnswerService = (*fakeAnswers)(nil)

func (f *fakeAnswers) Save(_ context.Context, in model.SaveAnswer) (*model.Answer, error) {
	f.saved = in
	return &model.Answer{ID: 55, FormID: in.FormID, UserID: in.UserID, Status: model.AnswerDraft}, nil
}
func (f *fakeAnswers) Get(_ context.Context, id int64, _ model.Principal) (*model.AnswerWithValues, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeAnswers) ListMine(context.Context, int64) ([]model.Answer, error) { return nil, nil }
func (f *fakeAnswers) ListByFormForUser(context.Context, int64, int64) ([]model.Answer, error) {
	return nil, nil
}
func (f *fakeAnswers) ListByForm(_ context.Context, formID int64, _ model.Principal) ([]model.Answer, error) {
	return []model.Answer{{ID: 1, FormID: formID, Username: "ana"}}, nil
}
func (f *fakeAnswers) Dashboard(_ context.Context, df model.DashboardFilter, c model.Principal) (*model.Dashboard, error) {
	f.dashboard = df
	return &model.Dashboard{
		Totals:  model.DashboardTotals{Total: 1, Draft: 1, Forms: 1, Users: 1},
		ByForm:  []model.FormAnswerStats{{FormID: 7, FormTitle: "Census", Total: 1, Draft: 1}},
		Answers: []model.Answer{{ID: 1, FormID: 7, UserID: c.UserID}},
	}, nil
}
