package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

type URLRepository struct {
	db *pgxpool.Pool
}

func NewURLRepository(db *pgxpool.Pool) *URLRepository {
	return &URLRepository{db: db}
}

// Create inserts a new record. A unique violation on the alias column is
// mapped to domain.ErrAliasTaken so the service can fall back to a freshly
// generated alias; the prior existence check alone is not trusted.
func (r *URLRepository) Create(ctx context.Context, url *domain.URL) error {
	query := `
		INSERT INTO urls (alias, original_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, url.Alias, url.OriginalURL, url.CreatedAt, url.ExpiresAt).
		Scan(&url.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.ErrAliasTaken
		}
		return err
	}

	return nil
}

// GetByAlias returns the record regardless of expiry; callers decide what an
// expired record means (a resolve treats it as not found and lazily deletes).
func (r *URLRepository) GetByAlias(ctx context.Context, alias string) (*domain.URL, error) {
	var url domain.URL

	query := `
		SELECT alias, original_url, click_count, created_at, expires_at
		FROM urls
		WHERE alias = $1
	`

	err := r.db.QueryRow(ctx, query, alias).Scan(
		&url.Alias,
		&url.OriginalURL,
		&url.ClickCount,
		&url.CreatedAt,
		&url.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &url, nil
}

func (r *URLRepository) Exists(ctx context.Context, alias string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM urls WHERE alias = $1)`

	if err := r.db.QueryRow(ctx, query, alias).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// IncrementClicks is best-effort; click counts are advisory.
func (r *URLRepository) IncrementClicks(ctx context.Context, alias string) error {
	query := `UPDATE urls SET click_count = click_count + 1 WHERE alias = $1`

	_, err := r.db.Exec(ctx, query, alias)
	return err
}

func (r *URLRepository) Delete(ctx context.Context, alias string) error {
	query := `DELETE FROM urls WHERE alias = $1`

	_, err := r.db.Exec(ctx, query, alias)
	return err
}

// ListExpired returns the aliases of all records dead as of the given time,
// so the sweeper can purge their cache shadows before the bulk delete.
func (r *URLRepository) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	query := `SELECT alias FROM urls WHERE expires_at < $1`

	rows, err := r.db.Query(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	return aliases, rows.Err()
}

func (r *URLRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM urls WHERE expires_at < $1`

	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
