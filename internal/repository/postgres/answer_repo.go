package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/convert"
	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// AnswerRepo implements AnswerRepository using PostgreSQL.
type AnswerRepo struct{ db *DB }

// NewAnswerRepo constructs an answer repository.
func NewAnswerRepo(db *DB) *AnswerRepo { return &AnswerRepo{db: db} }

const answerCols = `a.id, a.form_id, a.user_id, a.status, a.started_at, a.last_updated_at, a.submitted_at, a.created_at, a.updated_at`

func answerDest(a *model.Answer) []any {
	return []any{&a.ID, &a.FormID, &a.UserID, &a.Status, &a.StartedAt, &a.LastUpdatedAt,
		&a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt}
}

func scanAnswer(row pgx.Row) (*model.Answer, error) {
	var a model.Answer
	if err := row.Scan(answerDest(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Save writes the header and replaces the whole value set inside one transaction.
// Nothing is committed unless every value is stored.
func (r *AnswerRepo) Save(ctx context.Context, in model.SaveAnswer) (*model.Answer, error) {
	var out *model.Answer
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		answerID, err := saveHeader(ctx, tx, in)
		if err != nil {
			return err
		}

		types, err := fieldTypes(ctx, tx, in.FormID, in.Values)
		if err != nil {
			return err
		}

		if _, err = tx.Exec(ctx, `DELETE FROM answer_values WHERE answer_id=$1`, answerID); err != nil {
			return err
		}
		const ins = `
INSERT INTO answer_values (answer_id, field_id, text_value, number_value, date_value, other_text)
VALUES ($1, $2, $3, $4, $5, $6)`
		for _, rv := range in.Values {
			sv := convert.StoreValue(types[rv.FieldID], rv)
			if _, err = tx.Exec(ctx, ins, answerID, sv.FieldID, sv.Text, sv.Number, sv.Date, sv.Other); err != nil {
				return fmt.Errorf("value for field %d: %w", rv.FieldID, err)
			}
		}

		out, err = scanAnswer(tx.QueryRow(ctx, `SELECT `+answerCols+` FROM answers a WHERE a.id=$1`, answerID))
		return err
	})
	if err != nil {
		return nil, errs.Persist("save answer", err)
	}
	return out, nil
}

func saveHeader(ctx context.Context, tx pgx.Tx, in model.SaveAnswer) (int64, error) {
	status := string(in.Status)
	if in.AnswerID == nil {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM forms WHERE id=$1)`, in.FormID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, errs.ErrNotFound
		}
		const ins = `
INSERT INTO answers (form_id, user_id, status, submitted_at)
VALUES ($1, $2, $3::text, CASE WHEN $3::text = 'COMPLETED' THEN now() ELSE NULL END)
RETURNING id`
		var id int64
		if err := tx.QueryRow(ctx, ins, in.FormID, in.UserID, status).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	const upd = `
UPDATE answers SET status=$1::text, last_updated_at=now(), updated_at=now(),
  submitted_at = CASE WHEN $1::text = 'COMPLETED' THEN now() ELSE submitted_at END
WHERE id=$2 AND user_id=$3 AND form_id=$4`
	tag, err := tx.Exec(ctx, upd, status, *in.AnswerID, in.UserID, in.FormID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, errs.ErrNotFound
	}
	return *in.AnswerID, nil
}

// fieldTypes loads the types of the submitted fields. Every field must belong to the form.
func fieldTypes(ctx context.Context, tx pgx.Tx, formID int64, values []model.RawValue) (map[int64]model.FieldType, error) {
	types := make(map[int64]model.FieldType, len(values))
	if len(values) == 0 {
		return types, nil
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.FieldID)
	}

	const q = `
SELECT f.id, f.type
FROM fields f JOIN sections s ON s.id = f.section_id
WHERE s.form_id=$1 AND f.id = ANY($2)`
	rows, err := tx.Query(ctx, q, formID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id int64
			ft model.FieldType
		)
		if err = rows.Scan(&id, &ft); err != nil {
			return nil, err
		}
		types[id] = ft
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var unknown []string
	for _, id := range ids {
		if _, ok := types[id]; !ok {
			unknown = append(unknown, fmt.Sprintf("field %d does not belong to form %d", id, formID))
		}
	}
	if len(unknown) > 0 {
		return nil, errs.NewValidation(unknown...)
	}
	return types, nil
}

// Get selects an answer header; a non-nil ownerID scopes the lookup to that user.
func (r *AnswerRepo) Get(ctx context.Context, id int64, ownerID *int64) (*model.Answer, error) {
	if ownerID == nil {
		return scanAnswer(r.db.Pool.QueryRow(ctx, `SELECT `+answerCols+` FROM answers a WHERE a.id=$1`, id))
	}
	q := `SELECT ` + answerCols + ` FROM answers a WHERE a.id=$1 AND a.user_id=$2`
	return scanAnswer(r.db.Pool.QueryRow(ctx, q, id, *ownerID))
}

// Values reads the stored values of an answer, resolved to display strings, in form order.
func (r *AnswerRepo) Values(ctx context.Context, answerID int64) ([]model.AnswerValue, error) {
	const q = `
SELECT v.id, v.field_id, v.text_value, v.number_value, v.date_value, v.other_text, f.label, f.type
FROM answer_values v
JOIN fields f ON f.id = v.field_id
JOIN sections s ON s.id = f.section_id
WHERE v.answer_id=$1
ORDER BY s.ord ASC, f.ord ASC, f.id ASC`
	rows, err := r.db.Pool.Query(ctx, q, answerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AnswerValue{}
	for rows.Next() {
		var (
			v  model.AnswerValue
			sv model.StoredValue
		)
		if err = rows.Scan(&v.ID, &v.FieldID, &sv.Text, &sv.Number, &sv.Date, &sv.Other,
			&v.FieldLabel, &v.FieldType); err != nil {
			return nil, err
		}
		v.Value = convert.RenderValue(sv.Text, sv.Number, sv.Date, sv.Other)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *AnswerRepo) list(ctx context.Context, q string, args []any, extra func(*model.Answer) []any) ([]model.Answer, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		dest := answerDest(&a)
		if extra != nil {
			dest = append(dest, extra(&a)...)
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByUser lists a user's answers with their form titles.
func (r *AnswerRepo) ListByUser(ctx context.Context, userID int64) ([]model.Answer, error) {
	q := `SELECT ` + answerCols + `, fo.title
FROM answers a JOIN forms fo ON fo.id = a.form_id
WHERE a.user_id=$1
ORDER BY a.created_at DESC, a.id DESC`
	return r.list(ctx, q, []any{userID}, func(a *model.Answer) []any { return []any{&a.FormTitle} })
}

// ListByFormAndUser lists a user's answers to one form.
func (r *AnswerRepo) ListByFormAndUser(ctx context.Context, formID, userID int64) ([]model.Answer, error) {
	q := `SELECT ` + answerCols + `, fo.title
FROM answers a JOIN forms fo ON fo.id = a.form_id
WHERE a.form_id=$1 AND a.user_id=$2
ORDER BY a.created_at DESC, a.id DESC`
	return r.list(ctx, q, []any{formID, userID}, func(a *model.Answer) []any { return []any{&a.FormTitle} })
}

// ListByForm lists every answer to a form with the submitting username.
func (r *AnswerRepo) ListByForm(ctx context.Context, formID int64) ([]model.Answer, error) {
	q := `SELECT ` + answerCols + `, u.username
FROM answers a JOIN users u ON u.id = a.user_id
WHERE a.form_id=$1
ORDER BY a.created_at DESC, a.id DESC`
	return r.list(ctx, q, []any{formID}, func(a *model.Answer) []any { return []any{&a.Username} })
}

// dashboardWhere renders the filter as conditions on answers a, starting at $1.
func dashboardWhere(f model.DashboardFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != nil {
		add("a.user_id=$%d", *f.UserID)
	}
	if f.FormID != nil {
		add("a.form_id=$%d", *f.FormID)
	}
	if f.From != nil {
		add("a.created_at >= $%d::date", f.From.Format(convert.DateLayout))
	}
	if f.To != nil {
		add("a.created_at < $%d::date + 1", f.To.Format(convert.DateLayout))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// Dashboard runs the totals, per-form and listing queries over the same filter.
func (r *AnswerRepo) Dashboard(ctx context.Context, f model.DashboardFilter) (*model.Dashboard, error) {
	where, args := dashboardWhere(f)
	out := &model.Dashboard{ByForm: []model.FormAnswerStats{}}

	totals := `
SELECT COUNT(*),
  COUNT(*) FILTER (WHERE a.status = 'COMPLETED'),
  COUNT(*) FILTER (WHERE a.status = 'DRAFT'),
  COUNT(DISTINCT a.form_id),
  COUNT(DISTINCT a.user_id)
FROM answers a
WHERE ` + where
	t := &out.Totals
	if err := r.db.Pool.QueryRow(ctx, totals, args...).
		Scan(&t.Total, &t.Completed, &t.Draft, &t.Forms, &t.Users); err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}

	byForm := `
SELECT fo.id, fo.title, COUNT(*),
  COUNT(*) FILTER (WHERE a.status = 'COMPLETED'),
  COUNT(*) FILTER (WHERE a.status = 'DRAFT')
FROM answers a JOIN forms fo ON fo.id = a.form_id
WHERE ` + where + `
GROUP BY fo.id, fo.title
ORDER BY COUNT(*) DESC, fo.id ASC`
	rows, err := r.db.Pool.Query(ctx, byForm, args...)
	if err != nil {
		return nil, fmt.Errorf("dashboard by form: %w", err)
	}
	for rows.Next() {
		var s model.FormAnswerStats
		if err = rows.Scan(&s.FormID, &s.FormTitle, &s.Total, &s.Completed, &s.Draft); err != nil {
			rows.Close()
			return nil, err
		}
		out.ByForm = append(out.ByForm, s)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	list := `SELECT ` + answerCols + `, fo.title, u.username
FROM answers a
JOIN forms fo ON fo.id = a.form_id
JOIN users u ON u.id = a.user_id
WHERE ` + where + `
ORDER BY a.created_at DESC, a.id DESC`
	out.Answers, err = r.list(ctx, list, args, func(a *model.Answer) []any { return []any{&a.FormTitle, &a.Username} })
	if err != nil {
		return nil, fmt.Errorf("dashboard answers: %w", err)
	}
	return out, nil
}
