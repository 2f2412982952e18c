package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

var (
	formColumns    = []string{"id", "title", "description", "category", "status", "start_date", "end_date", "creator_id", "created_at", "updated_at"}
	sectionColumns = []string{"id", "form_id", "title", "description", "ord", "created_at", "updated_at"}
	fieldColumns   = []string{"id", "section_id", "type", "label", "placeholder", "default_value", "help", "ord", "required", "active",
		"min_length", "max_length", "pattern", "min_value", "max_value", "has_other", "created_at", "updated_at"}
	optionColumns = []string{"id", "field_id", "text", "value", "ord"}
)

func fieldRow(rows *pgxmock.Rows, id, sectionID int64, ft model.FieldType, label string, ord int, now time.Time) *pgxmock.Rows {
	return rows.AddRow(id, sectionID, ft, label, "", "", "", ord, false, true,
		(*int)(nil), (*int)(nil), "", (*float64)(nil), (*float64)(nil), false, now, now)
}

func TestFormRepo_List_DefaultVisibility(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFormRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM forms f WHERE \(f.status='PUBLISHED' OR f.creator_id=\$1\)`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`OFFSET \$2 LIMIT \$3`).
		WithArgs(int64(3), 0, 20).
		WillReturnRows(pgxmock.NewRows(append(formColumns, "total_fields")).
			AddRow(int64(7), "Survey", "", "", model.FormDraft, (*string)(nil), (*string)(nil), int64(3), now, now, 4))
	out, total, err := r.List(context.Background(), model.FormFilter{ViewerID: 3}, model.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, 4, out[0].TotalFields)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormRepo_List_ByStatus(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFormRepo(db)
	st := model.FormPublished

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM forms f WHERE f.status=\$1`).
		WithArgs("PUBLISHED").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`WHERE f.status=\$1 ORDER BY`).
		WithArgs("PUBLISHED", 0, 10).
		WillReturnRows(pgxmock.NewRows(append(formColumns, "total_fields")))
	out, total, err := r.List(context.Background(), model.FormFilter{Status: &st, ViewerID: 3}, model.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, out)
}

func TestFormRepo_Duplicate_MapsParentIDs(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFormRepo(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO forms \(title, description, category, status, start_date, end_date, creator_id\)\s+SELECT \$2`).
		WithArgs(int64(7), "Survey (Copy)", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(70)))
	mock.ExpectQuery(`FROM sections WHERE form_id=\$1 ORDER BY ord ASC, id ASC`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(sectionColumns).AddRow(int64(1), int64(7), "A", "", 1, now, now))
	mock.ExpectQuery(`INSERT INTO sections`).
		WithArgs(int64(70), "A", "", 1).
		WillReturnRows(pgxmock.NewRows(sectionColumns).AddRow(int64(10), int64(70), "A", "", 1, now, now))
	mock.ExpectQuery(`FROM fields WHERE section_id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(fieldRow(pgxmock.NewRows(fieldColumns), 5, 1, model.FieldSingleChoice, "Pick", 1, now))
	mock.ExpectQuery(`FROM field_options WHERE field_id=\$1`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(optionColumns).
			AddRow(int64(100), int64(5), "Yes", "y", 1).
			AddRow(int64(101), int64(5), "No", "n", 2))
	mock.ExpectQuery(`INSERT INTO fields`).
		WithArgs(int64(10), "SINGLE_CHOICE", "Pick", "", "", "", 1, false, true,
			(*int)(nil), (*int)(nil), "", (*float64)(nil), (*float64)(nil), false).
		WillReturnRows(fieldRow(pgxmock.NewRows(fieldColumns), 50, 10, model.FieldSingleChoice, "Pick", 1, now))
	mock.ExpectQuery(`INSERT INTO field_options`).
		WithArgs(int64(50), "Yes", "y", 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(500)))
	mock.ExpectQuery(`INSERT INTO field_options`).
		WithArgs(int64(50), "No", "n", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(501)))
	mock.ExpectCommit()

	id, err := r.Duplicate(context.Background(), 7, 3, "Survey (Copy)")
	require.NoError(t, err)
	require.Equal(t, int64(70), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormRepo_Duplicate_MissingSourceRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFormRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO forms`).
		WithArgs(int64(8), "X (Copy)", int64(3)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Duplicate(context.Background(), 8, 3, "X (Copy)")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldRepo_Update_ReplacesOptions(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFieldRepo(db)
	now := time.Now()
	f := &model.Field{ID: 5, Type: model.FieldMultipleChoice, Label: "Pick", Order: 2, Active: true,
		Options: []model.Option{{Text: "Red"}}}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE fields SET type=\$2`).
		WithArgs(int64(5), "MULTIPLE_CHOICE", "Pick", "", "", "", 2, false, true,
			(*int)(nil), (*int)(nil), "", (*float64)(nil), (*float64)(nil), false).
		WillReturnRows(fieldRow(pgxmock.NewRows(fieldColumns), 5, 1, model.FieldMultipleChoice, "Pick", 2, now))
	mock.ExpectExec(`DELETE FROM field_options WHERE field_id=\$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectQuery(`INSERT INTO field_options`).
		WithArgs(int64(5), "Red", "Red", 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	out, err := r.Update(context.Background(), f, true)
	require.NoError(t, err)
	require.Len(t, out.Options, 1)
	require.Equal(t, "Red", out.Options[0].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepo_Create_MissingForm(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSectionRepo(db)

	mock.ExpectQuery(`INSERT INTO sections`).
		WithArgs(int64(404), "A", "", 0).
		WillReturnError(fkErr())
	_, err := r.Create(context.Background(), &model.Section{FormID: 404, Title: "A"})
	require.ErrorIs(t, err, errs.ErrNotFound)
}
