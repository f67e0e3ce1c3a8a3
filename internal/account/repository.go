package account

import (
	"context"
	"errors"
	"time"

	"tickerpulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const uniqueViolation = "23505"

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRepository(pool PgxPool, tracer trace.Tracer) *Repository {
	return &Repository{pool: pool, tracer: tracer}
}

func (r *Repository) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "account-repo.create")
	defer span.End()

	var u domain.User
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)
		 RETURNING id, username, password_hash, created_at`,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "account-repo.get-by-username")
	defer span.End()

	var u domain.User
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	ctx, span := r.tracer.Start(ctx, "account-repo.update-password")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "account-repo.delete")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
