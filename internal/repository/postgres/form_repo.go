package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// FormRepo implements FormRepository using PostgreSQL.
type FormRepo struct{ db *DB }

// NewFormRepo constructs a form repository.
func NewFormRepo(db *DB) *FormRepo { return &FormRepo{db: db} }

const formCols = `f.id, f.title, f.description, f.category, f.status,
 to_char(f.start_date, 'YYYY-MM-DD'), to_char(f.end_date, 'YYYY-MM-DD'),
 f.creator_id, f.created_at, f.updated_at`

func formDest(f *model.Form) []any {
	return []any{&f.ID, &f.Title, &f.Description, &f.Category, &f.Status,
		&f.StartDate, &f.EndDate, &f.CreatorID, &f.CreatedAt, &f.UpdatedAt}
}

func scanForm(row pgx.Row) (*model.Form, error) {
	var f model.Form
	if err := row.Scan(formDest(&f)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Create inserts a form header. Missing status defaults to DRAFT.
func (r *FormRepo) Create(ctx context.Context, f *model.Form) (*model.Form, error) {
	status := f.Status
	if status == "" {
		status = model.FormDraft
	}
	q := `
WITH f AS (
  INSERT INTO forms (title, description, category, status, start_date, end_date, creator_id)
  VALUES ($1, $2, $3, $4, NULLIF($5::text, '')::date, NULLIF($6::text, '')::date, $7)
  RETURNING *
)
SELECT ` + formCols + ` FROM f`
	out, err := scanForm(r.db.Pool.QueryRow(ctx, q,
		f.Title, f.Description, f.Category, status, f.StartDate, f.EndDate, f.CreatorID))
	if isForeignKeyViolation(err) {
		return nil, errs.ErrNotFound
	}
	return out, err
}

// Get selects a form header.
func (r *FormRepo) Get(ctx context.Context, id int64) (*model.Form, error) {
	q := `SELECT ` + formCols + ` FROM forms f WHERE f.id=$1`
	return scanForm(r.db.Pool.QueryRow(ctx, q, id))
}

// List returns one page of form summaries, newest first, with their field counts.
func (r *FormRepo) List(ctx context.Context, filter model.FormFilter, page model.Page) ([]model.FormSummary, int, error) {
	var (
		where string
		args  []any
	)
	if filter.Status != nil {
		where, args = ` WHERE f.status=$1`, []any{string(*filter.Status)}
	} else {
		where, args = ` WHERE (f.status='PUBLISHED' OR f.creator_id=$1)`, []any{filter.ViewerID}
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM forms f`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + formCols + `,
 (SELECT COUNT(*) FROM fields fl JOIN sections s ON s.id = fl.section_id WHERE s.form_id = f.id)
FROM forms f` + where + ` ORDER BY f.created_at DESC, f.id DESC OFFSET $2 LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, append(args, page.Offset(), page.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.FormSummary{}
	for rows.Next() {
		var s model.FormSummary
		if err = rows.Scan(append(formDest(&s.Form), &s.TotalFields)...); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update overwrites a form header.
func (r *FormRepo) Update(ctx context.Context, f *model.Form) (*model.Form, error) {
	q := `
WITH f AS (
  UPDATE forms SET title=$2, description=$3, category=$4, status=$5,
    start_date=NULLIF($6::text, '')::date, end_date=NULLIF($7::text, '')::date, updated_at=now()
  WHERE id=$1
  RETURNING *
)
SELECT ` + formCols + ` FROM f`
	return scanForm(r.db.Pool.QueryRow(ctx, q,
		f.ID, f.Title, f.Description, f.Category, f.Status, f.StartDate, f.EndDate))
}

// Delete removes a form; sections, fields, options and answers go by cascade.
func (r *FormRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM forms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Sections lists the sections of a form.
func (r *FormRepo) Sections(ctx context.Context, formID int64) ([]model.Section, error) {
	return listSections(ctx, r.db.Pool, formID)
}

// Fields lists the fields of a section.
func (r *FormRepo) Fields(ctx context.Context, sectionID int64) ([]model.Field, error) {
	return listFields(ctx, r.db.Pool, sectionID)
}

// Options lists the options of a field.
func (r *FormRepo) Options(ctx context.Context, fieldID int64) ([]model.Option, error) {
	return listOptions(ctx, r.db.Pool, fieldID)
}

// Duplicate copies the form header as a DRAFT titled title, then every section, field and
// option, mapping new parent ids from RETURNING. Any failure rolls the whole copy back.
func (r *FormRepo) Duplicate(ctx context.Context, srcID, creatorID int64, title string) (int64, error) {
	var newID int64
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		const copyForm = `
INSERT INTO forms (title, description, category, status, start_date, end_date, creator_id)
SELECT $2, description, category, 'DRAFT', start_date, end_date, $3
FROM forms WHERE id=$1
RETURNING id`
		if err := tx.QueryRow(ctx, copyForm, srcID, title, creatorID).Scan(&newID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}

		sections, err := listSections(ctx, tx, srcID)
		if err != nil {
			return err
		}
		for _, s := range sections {
			s.FormID = newID
			ns, err := insertSection(ctx, tx, &s)
			if err != nil {
				return err
			}
			fields, err := listFields(ctx, tx, s.ID)
			if err != nil {
				return err
			}
			for _, f := range fields {
				if f.Options, err = listOptions(ctx, tx, f.ID); err != nil {
					return err
				}
				f.SectionID = ns.ID
				if _, err = insertField(ctx, tx, &f); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}
