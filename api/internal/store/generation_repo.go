package store

import (
	"context"
	"database/sql"
	_ "embed"
	"time"
)

//go:embed schema.sql
var schema string

// Generation is one journal row. Only metadata is kept, never the plan.
type Generation struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	RequestID   string    `json:"request_id"`
	Channel     string    `json:"channel"`
	Template    string    `json:"template"`
	Subject     string    `json:"subject,omitempty"`
	Grade       string    `json:"grade,omitempty"`
	ImageCount  int       `json:"image_count"`
	Outcome     string    `json:"outcome"`
	LatencyMs   int64     `json:"latency_ms"`
	ResponseLen int       `json:"response_len"`
}

type GenerationRepo struct{ DB *sql.DB }

func NewGenerationRepo(db *sql.DB) *GenerationRepo { return &GenerationRepo{DB: db} }

// EnsureSchema creates the journal table when it is missing.
func (r *GenerationRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Record inserts one attempt. A repeated request id is ignored.
func (r *GenerationRepo) Record(ctx context.Context, g Generation) error {
	const q = `
insert into generations (
  request_id, channel, template, subject, grade,
  image_count, outcome, latency_ms, response_len
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
on conflict (request_id) do nothing`
	_, err := r.DB.ExecContext(ctx, q,
		g.RequestID, g.Channel, g.Template, g.Subject, g.Grade,
		g.ImageCount, g.Outcome, g.LatencyMs, g.ResponseLen,
	)
	return err
}

// Recent returns the newest rows first.
func (r *GenerationRepo) Recent(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
select id, created_at, request_id, channel, template,
       coalesce(subject,'') as subject, coalesce(grade,'') as grade,
       image_count, outcome, latency_ms, response_len
from generations
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.CreatedAt, &g.RequestID, &g.Channel, &g.Template,
			&g.Subject, &g.Grade, &g.ImageCount, &g.Outcome, &g.LatencyMs, &g.ResponseLen); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes old journal rows.
func (r *GenerationRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	const q = `delete from generations where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
