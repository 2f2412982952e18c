package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// FieldRepo implements FieldRepository using PostgreSQL.
type FieldRepo struct{ db *DB }

// NewFieldRepo constructs a field repository.
func NewFieldRepo(db *DB) *FieldRepo { return &FieldRepo{db: db} }

const fieldCols = `id, section_id, type, label, placeholder, default_value, help, ord, required, active,
 min_length, max_length, pattern, min_value, max_value, has_other, created_at, updated_at`

func scanField(row pgx.Row) (*model.Field, error) {
	var f model.Field
	if err := row.Scan(&f.ID, &f.SectionID, &f.Type, &f.Label, &f.Placeholder, &f.DefaultValue, &f.Help,
		&f.Order, &f.Required, &f.Active, &f.MinLength, &f.MaxLength, &f.Pattern, &f.MinValue, &f.MaxValue,
		&f.HasOther, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	f.Options = []model.Option{}
	return &f, nil
}

func listFields(ctx context.Context, q querier, sectionID int64) ([]model.Field, error) {
	rows, err := q.Query(ctx, `SELECT `+fieldCols+` FROM fields WHERE section_id=$1 ORDER BY ord ASC, id ASC`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func listOptions(ctx context.Context, q querier, fieldID int64) ([]model.Option, error) {
	const sql = `SELECT id, field_id, text, value, ord FROM field_options WHERE field_id=$1 ORDER BY ord ASC, id ASC`
	rows, err := q.Query(ctx, sql, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err = rows.Scan(&o.ID, &o.FieldID, &o.Text, &o.Value, &o.Order); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// insertOptions stores options in slice order. A zero order takes the 1-based position,
// an empty value takes the text.
func insertOptions(ctx context.Context, q querier, fieldID int64, opts []model.Option) ([]model.Option, error) {
	const sql = `INSERT INTO field_options (field_id, text, value, ord) VALUES ($1, $2, $3, $4) RETURNING id`
	out := make([]model.Option, 0, len(opts))
	for i, o := range opts {
		o.FieldID = fieldID
		if o.Order == 0 {
			o.Order = i + 1
		}
		if o.Value == "" {
			o.Value = o.Text
		}
		if err := q.QueryRow(ctx, sql, fieldID, o.Text, o.Value, o.Order).Scan(&o.ID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func insertField(ctx context.Context, q querier, f *model.Field) (*model.Field, error) {
	sql := `
INSERT INTO fields (section_id, type, label, placeholder, default_value, help, ord, required, active,
  min_length, max_length, pattern, min_value, max_value, has_other)
VALUES ($1, $2, $3, $4, $5, $6,
  CASE WHEN $7::int > 0 THEN $7::int
  ELSE COALESCE((SELECT MAX(ord) FROM fields WHERE section_id=$1), 0) + 1 END,
  $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + fieldCols
	out, err := scanField(q.QueryRow(ctx, sql, f.SectionID, string(f.Type), f.Label, f.Placeholder,
		f.DefaultValue, f.Help, f.Order, f.Required, f.Active, f.MinLength, f.MaxLength, f.Pattern,
		f.MinValue, f.MaxValue, f.HasOther))
	if isForeignKeyViolation(err) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if out.Options, err = insertOptions(ctx, q, out.ID, f.Options); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a field and its options in one transaction.
func (r *FieldRepo) Create(ctx context.Context, f *model.Field) (*model.Field, error) {
	var out *model.Field
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = insertField(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get selects a field with its options.
func (r *FieldRepo) Get(ctx context.Context, id int64) (*model.Field, error) {
	f, err := scanField(r.db.Pool.QueryRow(ctx, `SELECT `+fieldCols+` FROM fields WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if f.Options, err = listOptions(ctx, r.db.Pool, id); err != nil {
		return nil, err
	}
	return f, nil
}

// Update overwrites a field. With replaceOptions the option set is deleted and re-inserted
// in the same transaction, otherwise the stored options are returned unchanged.
func (r *FieldRepo) Update(ctx context.Context, f *model.Field, replaceOptions bool) (*model.Field, error) {
	var out *model.Field
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		sql := `
UPDATE fields SET type=$2, label=$3, placeholder=$4, default_value=$5, help=$6, ord=$7, required=$8,
  active=$9, min_length=$10, max_length=$11, pattern=$12, min_value=$13, max_value=$14, has_other=$15,
  updated_at=now()
WHERE id=$1
RETURNING ` + fieldCols
		var err error
		out, err = scanField(tx.QueryRow(ctx, sql, f.ID, string(f.Type), f.Label, f.Placeholder,
			f.DefaultValue, f.Help, f.Order, f.Required, f.Active, f.MinLength, f.MaxLength, f.Pattern,
			f.MinValue, f.MaxValue, f.HasOther))
		if err != nil {
			return err
		}
		if !replaceOptions {
			out.Options, err = listOptions(ctx, tx, f.ID)
			return err
		}
		if _, err = tx.Exec(ctx, `DELETE FROM field_options WHERE field_id=$1`, f.ID); err != nil {
			return err
		}
		out.Options, err = insertOptions(ctx, tx, f.ID, f.Options)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a field.
func (r *FieldRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM fields WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
