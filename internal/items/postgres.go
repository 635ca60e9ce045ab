package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Brownie44l1/fundgrube-api/internal/domain"
)

// PostgresStore is the remote managed-database variant of the record store.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: nowUTC}
}

// OpenPostgres connects with the pgx stdlib driver and pings once.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "db ping", err)
	}
	return db, nil
}

func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	image_url TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL CHECK (type IN ('found', 'search')),
	location TEXT,
	reward NUMERIC NOT NULL DEFAULT 0 CHECK (reward >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_items_label_type ON items(label, type);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}

func (r *PostgresStore) Insert(ctx context.Context, rec *domain.ItemRecord) (string, error) {
	tags, err := prepareInsert(rec, r.now)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO items (id, label, confidence, tags, image_url, type, location, reward, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		rec.ID, rec.Label, rec.Confidence, tags, rec.ImageURL, string(rec.Type),
		nullString(rec.Location), rec.Reward, rec.CreatedAt,
	)
	if err != nil {
		return "", domain.WrapError(domain.ErrStoreUnavailable, "insert item", err)
	}
	return rec.ID, nil
}

func (r *PostgresStore) Get(ctx context.Context, id string) (*domain.ItemRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+selectColumns+`
FROM items
WHERE id = $1
`, id)

	rec, err := scanPostgres(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get item", fmt.Errorf("id=%s", id))
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "get item", err)
	}
	return rec, nil
}

func (r *PostgresStore) Query(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemRecord, error) {
	where, args := whereClause(filter, func(n int) string { return "$" + strconv.Itoa(n) })
	q := "SELECT " + selectColumns + " FROM items" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query items", err)
	}
	defer rows.Close()

	out := []domain.ItemRecord{}
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStoreUnavailable, "scan item", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query items", err)
	}
	return out, nil
}

func scanPostgres(sc rowScanner) (*domain.ItemRecord, error) {
	var (
		rec      domain.ItemRecord
		tagsRaw  []byte
		typ      string
		location sql.NullString
	)
	if err := sc.Scan(&rec.ID, &rec.Label, &rec.Confidence, &tagsRaw, &rec.ImageURL, &typ, &location, &rec.Reward, &rec.CreatedAt); err != nil {
		return nil, err
	}
	tags, err := decodeTags(tagsRaw)
	if err != nil {
		return nil, err
	}
	rec.Tags = tags
	rec.Type = domain.ItemType(typ)
	if location.Valid {
		loc := location.String
		rec.Location = &loc
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
