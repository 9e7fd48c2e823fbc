package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roomsSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	code       TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores room documents in one table. Save is a conditional UPDATE on
// the version column.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the rooms table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect rooms db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping rooms db: %w", err)
	}
	if _, err := pool.Exec(ctx, roomsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate rooms db: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Create(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc.Room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", doc.Room.Code, err)
	}
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO rooms (code, version, doc, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO NOTHING`,
		doc.Room.Code, doc.Version, data, doc.Room.CreatedAt)
	if err != nil {
		return fmt.Errorf("create room %s: %w", doc.Room.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeTaken
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, code string) (Document, error) {
	row := p.pool.QueryRow(ctx, `SELECT version, doc FROM rooms WHERE code = $1`, code)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get room %s: %w", code, err)
	}
	return doc, nil
}

func (p *Postgres) Save(ctx context.Context, doc Document, expected int) error {
	data, err := json.Marshal(doc.Room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", doc.Room.Code, err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE rooms SET version = $1, doc = $2 WHERE code = $3 AND version = $4`,
		doc.Version, data, doc.Room.Code, expected)
	if err != nil {
		return fmt.Errorf("save room %s: %w", doc.Room.Code, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`, doc.Room.Code).Scan(&exists); err != nil {
		return fmt.Errorf("save room %s: %w", doc.Room.Code, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Document, error) {
	rows, err := p.pool.Query(ctx, `SELECT version, doc FROM rooms ORDER BY created_at, code`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc  Document
		data []byte
	)
	if err := row.Scan(&doc.Version, &data); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(data, &doc.Room); err != nil {
		return Document{}, err
	}
	return doc, nil
}
