// Package migrate applies the embedded schema with goose.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/formsync/migrations"
)

// gooseLogger routes goose output through zap.
type gooseLogger struct{ l *zap.SugaredLogger }

func (g gooseLogger) Printf(format string, v ...any) { g.l.Infof(format, v...) }
func (g gooseLogger) Fatalf(format string, v ...any) { g.l.Fatalf(format, v...) }

func open(dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrations.FS)
	if log != nil {
		goose.SetLogger(gooseLogger{l: log.Named("migrate").Sugar()})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Up runs all pending migrations.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	db, err := open(dsn, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, dsn string) (int64, error) {
	db, err := open(dsn, nil)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return goose.GetDBVersionContext(ctx, db)
}
