package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG keeps limiter state in the auth_limiter table so every server instance shares it.
type PG struct {
	q      pgxQuerier
	policy Policy
	now    func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over a pool or any compatible querier.
func NewPG(q pgxQuerier, p Policy) *PG {
	if p.MaxFails <= 0 {
		p = DefaultPolicy()
	}
	return &PG{q: q, policy: p, now: time.Now}
}

// HashIP returns a stable digest of a client address so raw addresses are never stored.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

func key(login string) string { return strings.ToLower(strings.TrimSpace(login)) }

// Allow reports whether the pair is currently unblocked.
func (l *PG) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE login=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, key(login), ipHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if left := blockedUntil.Sub(l.now()); left > 0 {
		return false, left, nil
	}
	return true, 0, nil
}

// Success resets the pair.
func (l *PG) Success(ctx context.Context, login string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', now())
ON CONFLICT (login, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=now()`
	_, err := l.q.Exec(ctx, q, key(login), ipHash)
	return err
}

// Failure counts a failed attempt. A failure after the window has elapsed starts a new count;
// reaching MaxFails sets blocked_until in the same statement.
func (l *PG) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter AS a (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, CASE WHEN $4::int <= 1 THEN now() + $5::float8 * interval '1 second' ELSE 'epoch' END, now())
ON CONFLICT (login, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN now() - a.updated_at > $3::float8 * interval '1 second' THEN 1 ELSE a.fail_count + 1 END,
  blocked_until = CASE
    WHEN (CASE WHEN now() - a.updated_at > $3::float8 * interval '1 second' THEN 1 ELSE a.fail_count + 1 END) >= $4::int
    THEN now() + $5::float8 * interval '1 second'
    ELSE a.blocked_until END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	err := l.q.QueryRow(ctx, q, key(login), ipHash,
		l.policy.Window.Seconds(), l.policy.MaxFails, l.policy.BlockFor.Seconds()).Scan(&fails)
	if err != nil {
		return false, 0, err
	}
	if fails >= l.policy.MaxFails {
		return true, l.policy.BlockFor, nil
	}
	return false, 0, nil
}
