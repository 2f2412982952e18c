package repository

import (
	"context"

	"github.com/and161185/formsync/internal/model"
)

// AnswerRepository persists answers and their value sets.
type AnswerRepository interface {
	// Save creates or updates an answer header and replaces its full value set in one transaction.
	Save(ctx context.Context, in model.SaveAnswer) (*model.Answer, error)
	// Get loads an answer header; when ownerID is set the lookup is restricted to that user.
	Get(ctx context.Context, id int64, ownerID *int64) (*model.Answer, error)
	// Values returns the resolved values of an answer ordered by field order.
	Values(ctx context.Context, answerID int64) ([]model.AnswerValue, error)

	// ListByUser lists a user's answers with form titles, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Answer, error)
	// ListByFormAndUser lists a user's answers to one form, newest first.
	ListByFormAndUser(ctx context.Context, formID, userID int64) ([]model.Answer, error)
	// ListByForm lists all answers to one form with usernames, newest first.
	ListByForm(ctx context.Context, formID int64) ([]model.Answer, error)

	// Dashboard counts and lists the answers matching f, with form titles and usernames.
	Dashboard(ctx context.Context, f model.DashboardFilter) (*model.Dashboard, error)
}
