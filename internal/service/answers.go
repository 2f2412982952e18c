package service

import (
	"context"
	"fmt"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
)

// AnswerService saves and reads answers.
type AnswerService interface {
	// Save validates the input and stores the header with its full value set atomically.
	Save(ctx context.Context, in model.SaveAnswer) (*model.Answer, error)
	// Get returns an answer with resolved values. Other users' answers need the ADMINISTRATOR role.
	Get(ctx context.Context, id int64, caller model.Principal) (*model.AnswerWithValues, error)
	ListMine(ctx context.Context, userID int64) ([]model.Answer, error)
	ListByFormForUser(ctx context.Context, formID, userID int64) ([]model.Answer, error)
	// ListByForm lists every user's answers to a form; ADMINISTRATOR only.
	ListByForm(ctx context.Context, formID int64, caller model.Principal) ([]model.Answer, error)
	// Dashboard aggregates answers matching f. Non-administrators only see their own.
	Dashboard(ctx context.Context, f model.DashboardFilter, caller model.Principal) (*model.Dashboard, error)
}

type AnswerServiceImpl struct {
	repo repository.AnswerRepository
}

// NewAnswerService constructs AnswerService.
func NewAnswerService(repo repository.AnswerRepository) *AnswerServiceImpl {
	return &AnswerServiceImpl{repo: repo}
}

// Save validates ids and status, then delegates the transactional write.
func (s *AnswerServiceImpl) Save(ctx context.Context, in model.SaveAnswer) (*model.Answer, error) {
	var msgs []string
	if in.FormID <= 0 {
		msgs = append(msgs, "formId must be positive")
	}
	if in.UserID <= 0 {
		msgs = append(msgs, "userId must be positive")
	}
	if in.AnswerID != nil && *in.AnswerID <= 0 {
		msgs = append(msgs, "answerId must be positive")
	}
	switch in.Status {
	case "":
		in.Status = model.AnswerDraft
	case model.AnswerDraft, model.AnswerCompleted:
	default:
		msgs = append(msgs, "status must be one of: DRAFT, COMPLETED")
	}
	for i, v := range in.Values {
		if v.FieldID <= 0 {
			msgs = append(msgs, fmt.Sprintf("values[%d].fieldId must be positive", i))
		}
	}
	if len(msgs) > 0 {
		return nil, errs.NewValidation(msgs...)
	}
	return s.repo.Save(ctx, in)
}

// Get scopes the lookup to the caller unless the caller is an administrator.
func (s *AnswerServiceImpl) Get(ctx context.Context, id int64, caller model.Principal) (*model.AnswerWithValues, error) {
	var owner *int64
	if !caller.IsAdmin() {
		uid := caller.UserID
		owner = &uid
	}
	a, err := s.repo.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	vals, err := s.repo.Values(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("values of answer %d: %w", a.ID, err)
	}
	return &model.AnswerWithValues{Answer: *a, Values: vals}, nil
}

// ListMine lists the user's answers.
func (s *AnswerServiceImpl) ListMine(ctx context.Context, userID int64) ([]model.Answer, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListByFormForUser lists the user's answers to one form.
func (s *AnswerServiceImpl) ListByFormForUser(ctx context.Context, formID, userID int64) ([]model.Answer, error) {
	return s.repo.ListByFormAndUser(ctx, formID, userID)
}

// ListByForm lists all answers to one form.
func (s *AnswerServiceImpl) ListByForm(ctx context.Context, formID int64, caller model.Principal) ([]model.Answer, error) {
	if !caller.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	return s.repo.ListByForm(ctx, formID)
}

// Dashboard scopes the filter to the caller unless the caller is an administrator.
func (s *AnswerServiceImpl) Dashboard(ctx context.Context, f model.DashboardFilter, caller model.Principal) (*model.Dashboard, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, errs.NewValidation("from must not be after to")
	}
	if f.FormID != nil && *f.FormID <= 0 {
		return nil, errs.NewValidation("formId must be positive")
	}
	f.UserID = nil
	if !caller.IsAdmin() {
		uid := caller.UserID
		f.UserID = &uid
	}
	return s.repo.Dashboard(ctx, f)
}
