package mysql

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

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO scam_analyses
  (id, user_id, image_url, result_json, score, risk_level, created_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  user_id=VALUES(user_id), image_url=VALUES(image_url), result_json=VALUES(result_json),
  score=VALUES(score), risk_level=VALUES(risk_level);
`
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
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
WHERE user_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
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
