package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vision-bot/api/internal/clarifai"
)

// PredictionRepo хранит журнал предсказаний. Только история: перед запросом
// в Clarifai его не читаем.
type PredictionRepo struct{ DB *sql.DB }

func NewPredictionRepo(db *sql.DB) *PredictionRepo { return &PredictionRepo{DB: db} }

const schema = `
create table if not exists predictions (
  id          bigserial primary key,
  created_at  timestamptz not null default now(),
  chat_id     bigint,
  image_hash  text not null,
  source      text not null,
  model_id    text not null,
  status_code double precision not null default 0,
  top_concept text,
  top_value   double precision,
  result_json jsonb not null
);
create index if not exists predictions_chat_created_idx on predictions (chat_id, created_at desc)`

func (r *PredictionRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Source: откуда пришло изображение.
type Source string

const (
	SourceURL   Source = "url"
	SourceBytes Source = "bytes"
)

type PredictionRow struct {
	ID         int64
	CreatedAt  time.Time
	ChatID     int64
	ImageHash  string
	Source     Source
	ModelID    string
	StatusCode float64
	TopConcept string
	TopValue   float64
	Response   clarifai.Response
}

func (r *PredictionRepo) Insert(
	ctx context.Context,
	chatID int64,
	imageHash string,
	source Source,
	modelID string,
	resp clarifai.Response,
) (int64, error) {
	js, err := json.Marshal(resp)
	if err != nil {
		return 0, fmt.Errorf("marshal response: %w", err)
	}
	var topName sql.NullString
	var topValue sql.NullFloat64
	if top := resp.TopConcepts(1, 0); len(top) == 1 {
		topName = sql.NullString{String: top[0].Name, Valid: true}
		topValue = sql.NullFloat64{Float64: top[0].Value, Valid: true}
	}

	const q = `
insert into predictions (chat_id, image_hash, source, model_id, status_code, top_concept, top_value, result_json)
values ($1,$2,$3,$4,$5,$6,$7,$8)
returning id`
	var id int64
	err = r.DB.QueryRowContext(ctx, q,
		chatID, imageHash, string(source), modelID, resp.Status.Code, topName, topValue, js,
	).Scan(&id)
	return id, err
}

// ListByChat: последние limit записей чата, свежие первыми.
func (r *PredictionRepo) ListByChat(ctx context.Context, chatID int64, limit int) ([]PredictionRow, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, coalesce(chat_id,0), image_hash, source, model_id, status_code,
       coalesce(top_concept,''), coalesce(top_value,0), result_json
from predictions
where chat_id = $1
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PredictionRow
	for rows.Next() {
		var (
			row    PredictionRow
			source string
			js     []byte
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.ChatID, &row.ImageHash, &source, &row.ModelID,
			&row.StatusCode, &row.TopConcept, &row.TopValue, &js); err != nil {
			return nil, err
		}
		row.Source = Source(source)
		// битый JSON не страшен: декодер всё равно вернёт пустой Response
		row.Response = clarifai.ParseResponse(js)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *PredictionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from predictions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
