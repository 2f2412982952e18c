package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
	"github.com/and161185/formsync/internal/validate"
)

const (
	maxTitle   = 200
	copySuffix = " (Copy)"
)

// FormQuery is a form listing request. Status is optional.
type FormQuery struct {
	Page   int
	Limit  int
	Status string
}

// FormList is a form listing page.
type FormList struct {
	Forms      []model.FormSummary `json:"forms"`
	Pagination model.Pagination    `json:"pagination"`
}

// FormService builds and edits form schemas.
type FormService interface {
	Create(ctx context.Context, f model.Form, caller model.Principal) (*model.Form, error)
	// Get returns the whole tree: sections, fields and options in display order.
	Get(ctx context.Context, id int64) (*model.Form, error)
	List(ctx context.Context, q FormQuery, caller model.Principal) (FormList, error)
	Update(ctx context.Context, f model.Form) (*model.Form, error)
	Delete(ctx context.Context, id int64) error
	// Duplicate copies the tree as a new DRAFT form owned by caller.
	Duplicate(ctx context.Context, id int64, caller model.Principal) (*model.Form, error)

	CreateSection(ctx context.Context, formID int64, s model.Section) (*model.Section, error)
	UpdateSection(ctx context.Context, s model.Section) (*model.Section, error)
	DeleteSection(ctx context.Context, id int64) error

	CreateField(ctx context.Context, sectionID int64, f model.Field) (*model.Field, error)
	// UpdateField overwrites a field; options are replaced when optionsSupplied is set.
	UpdateField(ctx context.Context, f model.Field, optionsSupplied bool) (*model.Field, error)
	DeleteField(ctx context.Context, id int64) error
}

type FormServiceImpl struct {
	forms    repository.FormRepository
	sections repository.SectionRepository
	fields   repository.FieldRepository
	v        *validate.Validator
}

// NewFormService constructs FormService.
func NewFormService(forms repository.FormRepository, sections repository.SectionRepository,
	fields repository.FieldRepository, v *validate.Validator) *FormServiceImpl {
	return &FormServiceImpl{forms: forms, sections: sections, fields: fields, v: v}
}

// Create validates and stores a form header owned by caller.
func (s *FormServiceImpl) Create(ctx context.Context, f model.Form, caller model.Principal) (*model.Form, error) {
	normalizeForm(&f)
	f.CreatorID = caller.UserID
	if err := s.v.Form(f); err != nil {
		return nil, err
	}
	return s.forms.Create(ctx, &f)
}

// Get assembles the tree one level at a time.
func (s *FormServiceImpl) Get(ctx context.Context, id int64) (*model.Form, error) {
	f, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.forms.Sections(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sections of form %d: %w", id, err)
	}
	sortSections(sections)
	for i := range sections {
		fields, err := s.forms.Fields(ctx, sections[i].ID)
		if err != nil {
			return nil, fmt.Errorf("fields of section %d: %w", sections[i].ID, err)
		}
		if fields == nil {
			fields = []model.Field{}
		}
		sortFields(fields)
		for j := range fields {
			fields[j].Options = []model.Option{}
			if !fields[j].Type.IsChoice() {
				continue
			}
			opts, err := s.forms.Options(ctx, fields[j].ID)
			if err != nil {
				return nil, fmt.Errorf("options of field %d: %w", fields[j].ID, err)
			}
			if opts == nil {
				opts = []model.Option{}
			}
			sortOptions(opts)
			fields[j].Options = opts
		}
		sections[i].Fields = fields
	}
	f.Sections = sections
	return f, nil
}

func sortSections(ss []model.Section) {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].Order != ss[j].Order {
			return ss[i].Order < ss[j].Order
		}
		return ss[i].ID < ss[j].ID
	})
}

func sortFields(fs []model.Field) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Order != fs[j].Order {
			return fs[i].Order < fs[j].Order
		}
		return fs[i].ID < fs[j].ID
	})
}

func sortOptions(opts []model.Option) {
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Order != opts[j].Order {
			return opts[i].Order < opts[j].Order
		}
		return opts[i].ID < opts[j].ID
	})
}

// List returns a page of summaries. Without a status filter the caller sees
// published forms and the forms they created.
func (s *FormServiceImpl) List(ctx context.Context, q FormQuery, caller model.Principal) (FormList, error) {
	filter := model.FormFilter{ViewerID: caller.UserID}
	if st := strings.ToUpper(strings.TrimSpace(q.Status)); st != "" {
		fs := model.FormStatus(st)
		if !validStatus(fs) {
			return FormList{}, errs.NewValidation("status must be one of: DRAFT, PUBLISHED, CLOSED")
		}
		filter.Status = &fs
	}
	page := NormalizePage(q.Page, q.Limit)
	items, total, err := s.forms.List(ctx, filter, page)
	if err != nil {
		return FormList{}, err
	}
	return FormList{Forms: items, Pagination: model.NewPagination(page, total)}, nil
}

func validStatus(st model.FormStatus) bool {
	for _, s := range validate.FormStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Update overwrites a form header. An empty status keeps the stored one.
func (s *FormServiceImpl) Update(ctx context.Context, f model.Form) (*model.Form, error) {
	normalizeForm(&f)
	if err := s.v.Form(f); err != nil {
		return nil, err
	}
	if f.Status == "" {
		cur, err := s.forms.Get(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		f.Status = cur.Status
	}
	return s.forms.Update(ctx, &f)
}

// Delete removes a form with its whole tree.
func (s *FormServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.forms.Delete(ctx, id)
}

// CopyTitle appends the copy suffix, cutting the original title so the result fits 200 characters.
func CopyTitle(title string) string {
	r := []rune(title)
	limit := maxTitle - len([]rune(copySuffix))
	if len(r) > limit {
		r = r[:limit]
	}
	return string(r) + copySuffix
}

// Duplicate deep-copies the form and returns the new tree.
func (s *FormServiceImpl) Duplicate(ctx context.Context, id int64, caller model.Principal) (*model.Form, error) {
	src, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	newID, err := s.forms.Duplicate(ctx, id, caller.UserID, CopyTitle(src.Title))
	if err != nil {
		return nil, errs.Persist("duplicate form", err)
	}
	return s.Get(ctx, newID)
}

func (s *FormServiceImpl) checkSection(sec *model.Section) error {
	sec.Title = strings.TrimSpace(sec.Title)
	if err := s.v.Struct(*sec); err != nil {
		return err
	}
	if sec.Order < 0 {
		return errs.NewValidation("order must not be negative")
	}
	return nil
}

// normalizeForm trims the title. A blank date clears it.
func normalizeForm(f *model.Form) {
	f.Title = strings.TrimSpace(f.Title)
	for _, d := range []**string{&f.StartDate, &f.EndDate} {
		if *d != nil && strings.TrimSpace(**d) == "" {
			*d = nil
		}
	}
}

// CreateSection appends a section to a form.
func (s *FormServiceImpl) CreateSection(ctx context.Context, formID int64, sec model.Section) (*model.Section, error) {
	sec.FormID = formID
	if err := s.checkSection(&sec); err != nil {
		return nil, err
	}
	return s.sections.Create(ctx, &sec)
}

// UpdateSection overwrites a section.
func (s *FormServiceImpl) UpdateSection(ctx context.Context, sec model.Section) (*model.Section, error) {
	if err := s.checkSection(&sec); err != nil {
		return nil, err
	}
	return s.sections.Update(ctx, &sec)
}

// DeleteSection removes a section with its fields.
func (s *FormServiceImpl) DeleteSection(ctx context.Context, id int64) error {
	return s.sections.Delete(ctx, id)
}

func normalizeField(f *model.Field) {
	f.Label = strings.TrimSpace(f.Label)
	if !f.Type.IsChoice() {
		f.Options = nil
	}
}

// CreateField adds a field with its options to a section.
func (s *FormServiceImpl) CreateField(ctx context.Context, sectionID int64, f model.Field) (*model.Field, error) {
	f.SectionID = sectionID
	normalizeField(&f)
	if err := s.v.Field(f); err != nil {
		return nil, err
	}
	if f.Order < 0 {
		return nil, errs.NewValidation("order must not be negative")
	}
	return s.fields.Create(ctx, &f)
}

// UpdateField overwrites a field. Options of a choice type are replaced wholesale when supplied;
// a field changed to a non-choice type loses its options.
func (s *FormServiceImpl) UpdateField(ctx context.Context, f model.Field, optionsSupplied bool) (*model.Field, error) {
	normalizeField(&f)
	if err := s.v.Field(f); err != nil {
		return nil, err
	}
	replace := optionsSupplied || !f.Type.IsChoice()
	return s.fields.Update(ctx, &f, replace)
}

// DeleteField removes a field.
func (s *FormServiceImpl) DeleteField(ctx context.Context, id int64) error {
	return s.fields.Delete(ctx, id)
}
