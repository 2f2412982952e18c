package repository

import (
	"context"

	"github.com/and161185/formsync/internal/model"
)

// FormRepository stores form headers and reads the schema tree level by level.
type FormRepository interface {
	// Create inserts a form header.
	Create(ctx context.Context, f *model.Form) (*model.Form, error)
	// Get loads a form header.
	Get(ctx context.Context, id int64) (*model.Form, error)
	// List returns a page of form summaries matching filter and the total count.
	List(ctx context.Context, filter model.FormFilter, page model.Page) ([]model.FormSummary, int, error)
	// Update overwrites a form header.
	Update(ctx context.Context, f *model.Form) (*model.Form, error)
	// Delete removes a form and, by cascade, its whole tree and answers.
	Delete(ctx context.Context, id int64) error

	// Sections lists sections of a form ordered by order.
	Sections(ctx context.Context, formID int64) ([]model.Section, error)
	// Fields lists fields of a section ordered by order.
	Fields(ctx context.Context, sectionID int64) ([]model.Field, error)
	// Options lists options of a field ordered by order.
	Options(ctx context.Context, fieldID int64) ([]model.Option, error)

	// Duplicate deep-copies a form tree in one transaction and returns the new form id.
	Duplicate(ctx context.Context, srcID, creatorID int64, title string) (int64, error)
}

// SectionRepository provides CRUD over sections.
type SectionRepository interface {
	// Create inserts a section; Order 0 means max+1 within the form.
	Create(ctx context.Context, s *model.Section) (*model.Section, error)
	// Update overwrites a section.
	Update(ctx context.Context, s *model.Section) (*model.Section, error)
	// Delete removes a section and its fields.
	Delete(ctx context.Context, id int64) error
}

// FieldRepository provides CRUD over fields and their options.
type FieldRepository interface {
	// Create inserts a field together with its options; Order 0 means max+1 within the section.
	Create(ctx context.Context, f *model.Field) (*model.Field, error)
	// Get loads a field with its options.
	Get(ctx context.Context, id int64) (*model.Field, error)
	// Update overwrites a field; options are replaced when replaceOptions is set.
	Update(ctx context.Context, f *model.Field, replaceOptions bool) (*model.Field, error)
	// Delete removes a field.
	Delete(ctx context.Context, id int64) error
}
