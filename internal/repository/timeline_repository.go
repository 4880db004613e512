package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visahub/crm-service/internal/domain"
)

// TimelineRepository stores the append-only lead timeline. Entries are
// never updated or deleted.
type TimelineRepository interface {
	Create(ctx context.Context, entry *domain.TimelineEntry) error
	ListByLead(ctx context.Context, leadID string, limit, offset int) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Create(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO lead_timeline (lead_id, user_id, entry_type, notes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.LeadID,
		entry.UserID,
		entry.EntryType,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *timelineRepository) ListByLead(ctx context.Context, leadID string, limit, offset int) ([]domain.TimelineEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, lead_id, user_id, entry_type, notes, created_at
        FROM lead_timeline WHERE lead_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, leadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.LeadID,
			&entry.UserID,
			&entry.EntryType,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
