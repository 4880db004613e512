package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/events"
	"github.com/visahub/crm-service/internal/repository"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// AppointmentService books consultations against leads. Scheduling is
// deliberately naive: overlapping slots for the same consultant are
// accepted and left to staff to untangle.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	leads        repository.LeadRepository
	profiles     repository.ProfileRepository
	timeline     repository.TimelineRepository
	dispatcher   events.Dispatcher
	now          func() time.Time
}

// AppointmentDependencies bundles collaborators for the appointment service.
type AppointmentDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	LeadRepo        repository.LeadRepository
	ProfileRepo     repository.ProfileRepository
	TimelineRepo    repository.TimelineRepository
	Dispatcher      events.Dispatcher
	Now             func() time.Time
}

// NewAppointmentService constructs the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: deps.AppointmentRepo,
		leads:        deps.LeadRepo,
		profiles:     deps.ProfileRepo,
		timeline:     deps.TimelineRepo,
		dispatcher:   deps.Dispatcher,
		now:          now,
	}
}

// AppointmentCreateInput describes a booking request.
type AppointmentCreateInput struct {
	LeadID          string
	ConsultantID    *string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           *string
}

// AppointmentListFilter narrows listing within the actor's scope.
type AppointmentListFilter struct {
	LeadID        *string
	Statuses      []domain.AppointmentStatus
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
	Offset        int
}

// AppointmentPatch carries reschedule edits. Only scheduled or rescheduled
// appointments accept edits.
type AppointmentPatch struct {
	ConsultantID    *string
	ScheduledAt     *time.Time
	DurationMinutes *int
	Notes           *string
}

// Create books an appointment for a visible lead. The lead advances to
// appointment_scheduled when its lifecycle allows it.
func (s *AppointmentService) Create(ctx context.Context, actor *domain.Profile, input AppointmentCreateInput) (*domain.Appointment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if input.LeadID == "" {
		return nil, apperrors.NewValidationError("lead_id required", nil)
	}
	if input.ConsultantID == nil || *input.ConsultantID == "" {
		return nil, apperrors.NewValidationError("consultant_id required", nil)
	}
	if input.ScheduledAt.IsZero() {
		return nil, apperrors.NewValidationError("scheduled_at required", nil)
	}
	if !input.ScheduledAt.After(s.now()) {
		return nil, apperrors.NewValidationError("scheduled_at must be in the future", map[string]any{
			"scheduled_at": input.ScheduledAt,
		})
	}
	if input.DurationMinutes < 0 {
		return nil, apperrors.NewValidationError("duration_minutes must be positive", nil)
	}

	lead, err := s.loadBookableLead(ctx, actor, input.LeadID)
	if err != nil {
		return nil, err
	}
	if err := s.validateConsultant(ctx, *input.ConsultantID); err != nil {
		return nil, err
	}

	appointment := &domain.Appointment{
		LeadID:          lead.ID,
		ConsultantID:    input.ConsultantID,
		CreatedBy:       actor.ID,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		Notes:           input.Notes,
		Status:          domain.AppointmentStatusScheduled,
	}
	if appointment.DurationMinutes == 0 {
		appointment.DurationMinutes = domain.DefaultAppointmentDuration
	}
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.MapError(err)
	}

	// An agent booking an unassigned lead becomes its owner.
	if lead.AssignedAgentID == nil && actor.Role == domain.RoleAgent {
		lead.AssignedAgentID = &actor.ID
		if err := s.leads.Update(ctx, lead); err != nil {
			return nil, apperrors.MapError(err)
		}
		note := fmt.Sprintf("Lead assigned to %s", actor.FullName)
		if err := s.appendTimeline(ctx, lead.ID, &actor.ID, domain.EntryTypeAssigned, note); err != nil {
			return nil, err
		}
	}

	if lead.Status.CanTransitionTo(domain.LeadStatusAppointmentScheduled) {
		oldStatus := lead.Status
		lead.Status = domain.LeadStatusAppointmentScheduled
		if err := s.leads.Update(ctx, lead); err != nil {
			return nil, apperrors.MapError(err)
		}
		note := fmt.Sprintf("Status changed from %s to %s", oldStatus, lead.Status)
		if err := s.appendTimeline(ctx, lead.ID, &actor.ID, domain.EntryTypeStatusChange, note); err != nil {
			return nil, err
		}
	}

	note := fmt.Sprintf("Appointment scheduled for %s", appointment.ScheduledAt.Format(time.RFC1123))
	if err := s.appendTimeline(ctx, lead.ID, &actor.ID, domain.EntryTypeAppointmentScheduled, note); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventAppointmentScheduled,
		LeadID: lead.ID,
		Actor:  eventActor(actor),
		Payload: events.AppointmentScheduledPayload{
			AppointmentID: appointment.ID,
			ConsultantID:  appointment.ConsultantID,
			ScheduledAt:   appointment.ScheduledAt,
		},
	})
	return appointment, nil
}

// List returns appointments visible to the actor ordered by schedule time.
func (s *AppointmentService) List(ctx context.Context, actor *domain.Profile, filter AppointmentListFilter) ([]domain.Appointment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.AppointmentFilter{
		LeadID:        filter.LeadID,
		Statuses:      filter.Statuses,
		ScheduledFrom: filter.ScheduledFrom,
		ScheduledTo:   filter.ScheduledTo,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	scope := auth.VisibleAppointmentScope(actor)
	repoFilter.ConsultantID = scope.ConsultantID
	repoFilter.AgentID = scope.AgentID

	result, err := s.appointments.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Get fetches an appointment, enforcing visibility.
func (s *AppointmentService) Get(ctx context.Context, actor *domain.Profile, id string) (*domain.Appointment, error) {
	return s.loadVisibleAppointment(ctx, actor, id)
}

// Update edits scheduling details. Only scheduled and rescheduled
// appointments are editable.
func (s *AppointmentService) Update(ctx context.Context, actor *domain.Profile, id string, patch AppointmentPatch) (*domain.Appointment, error) {
	appointment, err := s.loadVisibleAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != domain.AppointmentStatusScheduled && appointment.Status != domain.AppointmentStatusRescheduled {
		return nil, apperrors.NewConflict("appointment can no longer be edited", map[string]any{
			"status": appointment.Status,
		})
	}

	if patch.ConsultantID != nil {
		if *patch.ConsultantID == "" {
			return nil, apperrors.NewValidationError("consultant_id cannot be cleared", nil)
		}
		if err := s.validateConsultant(ctx, *patch.ConsultantID); err != nil {
			return nil, err
		}
		appointment.ConsultantID = patch.ConsultantID
	}
	if patch.ScheduledAt != nil {
		if !patch.ScheduledAt.After(s.now()) {
			return nil, apperrors.NewValidationError("scheduled_at must be in the future", map[string]any{
				"scheduled_at": *patch.ScheduledAt,
			})
		}
		appointment.ScheduledAt = *patch.ScheduledAt
	}
	if patch.DurationMinutes != nil {
		if *patch.DurationMinutes <= 0 {
			return nil, apperrors.NewValidationError("duration_minutes must be positive", nil)
		}
		appointment.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Notes != nil {
		appointment.Notes = patch.Notes
	}

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return appointment, nil
}

// UpdateStatus transitions the appointment lifecycle. Re-applying the
// current status is an idempotent no-op.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor *domain.Profile, id string, newStatus domain.AppointmentStatus) (*domain.Appointment, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	appointment, err := s.loadVisibleAppointment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status == newStatus {
		return appointment, nil
	}
	if !appointment.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": appointment.Status,
			"to":   newStatus,
		})
	}

	oldStatus := appointment.Status
	appointment.Status = newStatus
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := fmt.Sprintf("Appointment %s (was %s)", newStatus, oldStatus)
	if err := s.appendTimeline(ctx, appointment.LeadID, actorID(actor), domain.EntryTypeUpdated, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventAppointmentStatusChanged,
		LeadID: appointment.LeadID,
		Actor:  eventActor(actor),
		Payload: events.AppointmentStatusChangedPayload{
			AppointmentID: appointment.ID,
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
		},
	})
	return appointment, nil
}

func (s *AppointmentService) loadVisibleAppointment(ctx context.Context, actor *domain.Profile, id string) (*domain.Appointment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment", map[string]any{"appointment_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return appointment, nil
	case domain.RoleConsultant:
		if appointment.ConsultantID != nil && *appointment.ConsultantID == actor.ID {
			return appointment, nil
		}
	case domain.RoleAgent:
		lead, err := s.leads.GetByID(ctx, appointment.LeadID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if lead.AssignedAgentID != nil && *lead.AssignedAgentID == actor.ID {
			return appointment, nil
		}
	}
	return nil, apperrors.NewPermissionError("appointment not visible to actor")
}

// loadBookableLead resolves the lead an appointment may be booked against.
// Unassigned leads are bookable by any agent, who then takes ownership.
func (s *AppointmentService) loadBookableLead(ctx context.Context, actor *domain.Profile, id string) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if auth.CanViewLeadDirect(actor, lead) {
		return lead, nil
	}
	if actor.Role == domain.RoleAgent && lead.AssignedAgentID == nil {
		return lead, nil
	}
	if actor.Role == domain.RoleConsultant {
		linked, err := s.appointments.ExistsForLeadAndConsultant(ctx, lead.ID, actor.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if linked {
			return lead, nil
		}
	}
	return nil, apperrors.NewPermissionError("lead not visible to actor")
}

func (s *AppointmentService) validateConsultant(ctx context.Context, consultantID string) error {
	consultant, err := s.profiles.GetByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("consultant", map[string]any{"consultant_id": consultantID})
		}
		return apperrors.MapError(err)
	}
	if consultant.Role != domain.RoleConsultant && consultant.Role != domain.RoleAdmin {
		return apperrors.NewValidationError("appointments can only be held by consultants", map[string]any{
			"consultant_id": consultantID,
			"role":          consultant.Role,
		})
	}
	return nil
}

func (s *AppointmentService) appendTimeline(ctx context.Context, leadID string, userID *string, entryType domain.TimelineEntryType, notes string) error {
	entry := &domain.TimelineEntry{
		LeadID:    leadID,
		UserID:    userID,
		EntryType: entryType,
		Notes:     notes,
	}
	if err := s.timeline.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AppointmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
