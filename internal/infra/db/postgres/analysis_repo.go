package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO scam_analyses
  (id, user_id, image_url, result_json, score, risk_level, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  user_id=EXCLUDED.user_id,
  image_url=EXCLUDED.image_url,
  result_json=EXCLUDED.result_json,
  score=EXCLUDED.score,
  risk_level=EXCLUDED.risk_level;
`
	result := a.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, nullIfEmpty(a.UserID), nullIfEmpty(a.ImageURL), result,
		a.Score, a.RiskLevel, createdAt,
	)
	return err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, userID string, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, user_id, image_url, result_json, score, risk_level, created_at
FROM scam_analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, userID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		var uid, imageURL sql.NullString
		if err := rows.Scan(&a.ID, &uid, &imageURL, &a.Result, &a.Score, &a.RiskLevel, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID = uid.String
		a.ImageURL = imageURL.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
