package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visahub/crm-service/internal/domain"
)

// AppointmentFilter captures listing parameters. AgentID restricts to
// appointments whose lead is assigned to that agent.
type AppointmentFilter struct {
	LeadID        *string
	ConsultantID  *string
	AgentID       *string
	Statuses      []domain.AppointmentStatus
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
	Offset        int
}

// AppointmentRepository encapsulates appointment persistence.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) error
	Update(ctx context.Context, appointment *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	Count(ctx context.Context, filter AppointmentFilter) (int64, error)
	ExistsForLeadAndConsultant(ctx context.Context, leadID, consultantID string) (bool, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `id, lead_id, consultant_id, created_by, scheduled_at,
               duration_minutes, notes, status, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (lead_id, consultant_id, created_by, scheduled_at, duration_minutes, notes, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		appointment.LeadID,
		appointment.ConsultantID,
		appointment.CreatedBy,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Notes,
		appointment.Status,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        UPDATE appointments SET consultant_id=$1, scheduled_at=$2, duration_minutes=$3,
            notes=$4, status=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		appointment.ConsultantID,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
		appointment.Notes,
		appointment.Status,
		appointment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id=$1`, appointmentColumns)

	var appointment domain.Appointment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&appointment.ID,
		&appointment.LeadID,
		&appointment.ConsultantID,
		&appointment.CreatedBy,
		&appointment.ScheduledAt,
		&appointment.DurationMinutes,
		&appointment.Notes,
		&appointment.Status,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error) {
	clauses, args := buildAppointmentClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY scheduled_at ASC LIMIT %d OFFSET %d`,
		appointmentColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		var appointment domain.Appointment
		if err := rows.Scan(
			&appointment.ID,
			&appointment.LeadID,
			&appointment.ConsultantID,
			&appointment.CreatedBy,
			&appointment.ScheduledAt,
			&appointment.DurationMinutes,
			&appointment.Notes,
			&appointment.Status,
			&appointment.CreatedAt,
			&appointment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, appointment)
	}
	return result, rows.Err()
}

func (r *appointmentRepository) Count(ctx context.Context, filter AppointmentFilter) (int64, error) {
	clauses, args := buildAppointmentClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM appointments WHERE %s`, strings.Join(clauses, " AND "))

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *appointmentRepository) ExistsForLeadAndConsultant(ctx context.Context, leadID, consultantID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM appointments WHERE lead_id=$1 AND consultant_id=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, leadID, consultantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func buildAppointmentClauses(filter AppointmentFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.LeadID != nil {
		args = append(args, *filter.LeadID)
		clauses = append(clauses, fmt.Sprintf("lead_id=$%d", len(args)))
	}
	if filter.ConsultantID != nil {
		args = append(args, *filter.ConsultantID)
		clauses = append(clauses, fmt.Sprintf("consultant_id=$%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf(
			"lead_id IN (SELECT id FROM leads WHERE assigned_agent_id=$%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ScheduledFrom != nil {
		args = append(args, *filter.ScheduledFrom)
		clauses = append(clauses, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.ScheduledTo != nil {
		args = append(args, *filter.ScheduledTo)
		clauses = append(clauses, fmt.Sprintf("scheduled_at <= $%d", len(args)))
	}

	return clauses, args
}
