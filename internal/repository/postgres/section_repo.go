package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// SectionRepo implements SectionRepository using PostgreSQL.
type SectionRepo struct{ db *DB }

// NewSectionRepo constructs a section repository.
func NewSectionRepo(db *DB) *SectionRepo { return &SectionRepo{db: db} }

const sectionCols = `id, form_id, title, description, ord, created_at, updated_at`

func scanSection(row pgx.Row) (*model.Section, error) {
	var s model.Section
	if err := row.Scan(&s.ID, &s.FormID, &s.Title, &s.Description, &s.Order, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.Fields = []model.Field{}
	return &s, nil
}

func listSections(ctx context.Context, q querier, formID int64) ([]model.Section, error) {
	rows, err := q.Query(ctx, `SELECT `+sectionCols+` FROM sections WHERE form_id=$1 ORDER BY ord ASC, id ASC`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Section{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func insertSection(ctx context.Context, q querier, s *model.Section) (*model.Section, error) {
	sql := `
INSERT INTO sections (form_id, title, description, ord)
VALUES ($1, $2, $3, CASE WHEN $4::int > 0 THEN $4::int
  ELSE COALESCE((SELECT MAX(ord) FROM sections WHERE form_id=$1), 0) + 1 END)
RETURNING ` + sectionCols
	out, err := scanSection(q.QueryRow(ctx, sql, s.FormID, s.Title, s.Description, s.Order))
	if isForeignKeyViolation(err) {
		return nil, errs.ErrNotFound
	}
	return out, err
}

// Create inserts a section; Order 0 places it after the last section of the form.
func (r *SectionRepo) Create(ctx context.Context, s *model.Section) (*model.Section, error) {
	return insertSection(ctx, r.db.Pool, s)
}

// Update overwrites title, description and order of a section.
func (r *SectionRepo) Update(ctx context.Context, s *model.Section) (*model.Section, error) {
	q := `
UPDATE sections SET title=$2, description=$3, ord=$4, updated_at=now()
WHERE id=$1
RETURNING ` + sectionCols
	return scanSection(r.db.Pool.QueryRow(ctx, q, s.ID, s.Title, s.Description, s.Order))
}

// Delete removes a section and, by cascade, its fields.
func (r *SectionRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sections WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
