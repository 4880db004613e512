package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/events"
	"github.com/visahub/crm-service/internal/repository"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

// LeadService coordinates the lead registry: creation, visibility-scoped
// listing, assignment, lifecycle transitions and the timeline side effects
// that accompany every mutation.
type LeadService struct {
	leads        repository.LeadRepository
	appointments repository.AppointmentRepository
	profiles     repository.ProfileRepository
	timeline     repository.TimelineRepository
	dispatcher   events.Dispatcher
}

// LeadDependencies bundles repositories for the lead service.
type LeadDependencies struct {
	LeadRepo        repository.LeadRepository
	AppointmentRepo repository.AppointmentRepository
	ProfileRepo     repository.ProfileRepository
	TimelineRepo    repository.TimelineRepository
	Dispatcher      events.Dispatcher
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	return &LeadService{
		leads:        deps.LeadRepo,
		appointments: deps.AppointmentRepo,
		profiles:     deps.ProfileRepo,
		timeline:     deps.TimelineRepo,
		dispatcher:   deps.Dispatcher,
	}
}

// LeadCreateInput describes lead creation payload.
type LeadCreateInput struct {
	FullName          string
	Email             string
	Phone             *string
	CountryOfInterest *string
	VisaType          *string
	Message           *string
	Priority          domain.LeadPriority
	AssignedAgentID   *string
	Source            string
}

// LeadListFilter describes listing filters on top of the visibility scope.
type LeadListFilter struct {
	Statuses    []domain.LeadStatus
	Priorities  []domain.LeadPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// LeadPatch describes partial field updates. Assignment changes go through
// AssignLead instead.
type LeadPatch struct {
	FullName          *string
	Email             *string
	Phone             *string
	CountryOfInterest *string
	VisaType          *string
	Message           *string
	Priority          *domain.LeadPriority
	Status            *domain.LeadStatus
}

// CreateLead registers a new lead. A nil actor marks a public inquiry
// submission; staff-created leads may be pre-assigned.
func (s *LeadService) CreateLead(ctx context.Context, actor *domain.Profile, input LeadCreateInput) (*domain.Lead, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if fullName == "" || email == "" {
		return nil, apperrors.NewValidationError("full_name and email required", nil)
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	lead := &domain.Lead{
		FullName:          fullName,
		Email:             email,
		Phone:             input.Phone,
		CountryOfInterest: input.CountryOfInterest,
		VisaType:          input.VisaType,
		Message:           input.Message,
		Status:            domain.LeadStatusNew,
		Priority:          input.Priority,
		Source:            input.Source,
	}
	if lead.Priority == "" {
		lead.Priority = domain.LeadPriorityMedium
	}
	if lead.Source == "" {
		lead.Source = "dashboard"
	}

	if input.AssignedAgentID != nil && *input.AssignedAgentID != "" {
		agent, err := s.resolveAssignee(ctx, *input.AssignedAgentID)
		if err != nil {
			return nil, err
		}
		lead.AssignedAgentID = &agent.ID
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := "Lead created"
	if actor == nil {
		note = "Lead received through website inquiry"
	}
	if err := s.appendTimeline(ctx, lead.ID, actorID(actor), domain.EntryTypeLeadCreated, note); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventLeadCreated,
		LeadID: lead.ID,
		Actor:  eventActor(actor),
		Payload: events.LeadCreatedPayload{
			FullName: lead.FullName,
			Email:    lead.Email,
			Source:   lead.Source,
			Priority: lead.Priority,
		},
	})
	return lead, nil
}

// ListLeads returns leads visible to the actor, newest first.
func (s *LeadService) ListLeads(ctx context.Context, actor *domain.Profile, filter LeadListFilter) ([]domain.Lead, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.LeadFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	scope := auth.VisibleLeadScope(actor)
	repoFilter.AssignedAgentID = scope.AssignedAgentID
	repoFilter.ConsultantID = scope.ConsultantID

	leads, err := s.leads.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return leads, nil
}

// GetLead fetches a single lead, enforcing visibility.
func (s *LeadService) GetLead(ctx context.Context, actor *domain.Profile, id string) (*domain.Lead, error) {
	return s.loadVisibleLead(ctx, actor, id)
}

// ListTimeline returns the lead's timeline entries newest first.
func (s *LeadService) ListTimeline(ctx context.Context, actor *domain.Profile, leadID string, limit, offset int) ([]domain.TimelineEntry, error) {
	if _, err := s.loadVisibleLead(ctx, actor, leadID); err != nil {
		return nil, err
	}
	entries, err := s.timeline.ListByLead(ctx, leadID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// UpdateLead applies partial field updates. Status changes are validated
// against the lifecycle; any visible lead is editable by any actor.
func (s *LeadService) UpdateLead(ctx context.Context, actor *domain.Profile, id string, patch LeadPatch) (*domain.Lead, error) {
	lead, err := s.loadVisibleLead(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldStatus := lead.Status
	statusChanged := false

	if patch.FullName != nil {
		name := strings.TrimSpace(*patch.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full_name cannot be empty", nil)
		}
		lead.FullName = name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email cannot be empty", nil)
		}
		lead.Email = email
	}
	if patch.Phone != nil {
		lead.Phone = patch.Phone
	}
	if patch.CountryOfInterest != nil {
		lead.CountryOfInterest = patch.CountryOfInterest
	}
	if patch.VisaType != nil {
		lead.VisaType = patch.VisaType
	}
	if patch.Message != nil {
		lead.Message = patch.Message
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
		}
		lead.Priority = *patch.Priority
	}
	if patch.Status != nil && *patch.Status != lead.Status {
		if !lead.Status.CanTransitionTo(*patch.Status) {
			return nil, apperrors.NewConflict("invalid status transition", map[string]any{
				"from": lead.Status,
				"to":   *patch.Status,
			})
		}
		lead.Status = *patch.Status
		statusChanged = true
	}

	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := "Lead details updated"
	entryType := domain.EntryTypeUpdated
	if statusChanged {
		note = fmt.Sprintf("Status changed from %s to %s", oldStatus, lead.Status)
		entryType = domain.EntryTypeStatusChange
	}
	if err := s.appendTimeline(ctx, lead.ID, actorID(actor), entryType, note); err != nil {
		return nil, err
	}
	if statusChanged {
		s.publishEvent(ctx, events.Event{
			Type:   events.EventLeadStatusChanged,
			LeadID: lead.ID,
			Actor:  eventActor(actor),
			Payload: events.LeadStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: lead.Status,
			},
		})
	}
	return lead, nil
}

// UpdateStatus transitions the lead lifecycle. Setting the current status
// again is a no-op with no timeline side effects.
func (s *LeadService) UpdateStatus(ctx context.Context, actor *domain.Profile, id string, newStatus domain.LeadStatus) (*domain.Lead, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	lead, err := s.loadVisibleLead(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == newStatus {
		return lead, nil
	}
	if !lead.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": lead.Status,
			"to":   newStatus,
		})
	}

	oldStatus := lead.Status
	lead.Status = newStatus
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	note := fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus)
	if err := s.appendTimeline(ctx, lead.ID, actorID(actor), domain.EntryTypeStatusChange, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventLeadStatusChanged,
		LeadID: lead.ID,
		Actor:  eventActor(actor),
		Payload: events.LeadStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return lead, nil
}

// AssignLead binds a lead to an agent. The assignee must resolve to a
// profile allowed to own leads; a fresh lead moves to contacted.
func (s *LeadService) AssignLead(ctx context.Context, actor *domain.Profile, id, agentID string) (*domain.Lead, error) {
	agent, err := s.resolveAssignee(ctx, agentID)
	if err != nil {
		return nil, err
	}
	lead, err := s.loadVisibleLead(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	lead.AssignedAgentID = &agent.ID
	if lead.Status == domain.LeadStatusNew {
		lead.Status = domain.LeadStatusContacted
	}
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := fmt.Sprintf("Lead assigned to %s", agent.FullName)
	if err := s.appendTimeline(ctx, lead.ID, actorID(actor), domain.EntryTypeAssigned, note); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventLeadAssigned,
		LeadID: lead.ID,
		Actor:  eventActor(actor),
		Payload: events.LeadAssignedPayload{
			AgentID:   agent.ID,
			AgentName: agent.FullName,
		},
	})
	return lead, nil
}

// AddRemark appends a free-text note to the lead timeline.
func (s *LeadService) AddRemark(ctx context.Context, actor *domain.Profile, leadID, text string) (*domain.TimelineEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("remark text required", nil)
	}
	lead, err := s.loadVisibleLead(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}

	entry := &domain.TimelineEntry{
		LeadID:    lead.ID,
		UserID:    actorID(actor),
		EntryType: domain.EntryTypeRemark,
		Notes:     text,
	}
	if err := s.timeline.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventLeadRemarkAdded,
		LeadID: lead.ID,
		Actor:  eventActor(actor),
		Payload: events.LeadRemarkAddedPayload{
			Preview: stringPreview(text, 120),
		},
	})
	return entry, nil
}

// DeleteLead removes a lead permanently. Admin only; the store cascades
// the delete to appointments and timeline entries.
func (s *LeadService) DeleteLead(ctx context.Context, actor *domain.Profile, id string) error {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return apperrors.NewPermissionError("only admins may delete leads")
	}
	if err := s.leads.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("lead", map[string]any{"lead_id": id})
		}
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventLeadDeleted,
		LeadID: id,
		Actor:  eventActor(actor),
	})
	return nil
}

func (s *LeadService) loadVisibleLead(ctx context.Context, actor *domain.Profile, id string) (*domain.Lead, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
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

func (s *LeadService) resolveAssignee(ctx context.Context, agentID string) (*domain.Profile, error) {
	agent, err := s.profiles.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.Role.CanOwnLeads() {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{
			"agent_id": agentID,
			"role":     agent.Role,
		})
	}
	return agent, nil
}

func (s *LeadService) appendTimeline(ctx context.Context, leadID string, userID *string, entryType domain.TimelineEntryType, notes string) error {
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

func (s *LeadService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorID(actor *domain.Profile) *string {
	if actor == nil {
		return nil
	}
	return &actor.ID
}

func eventActor(actor *domain.Profile) events.Actor {
	if actor == nil {
		return events.Actor{}
	}
	role := actor.Role
	return events.Actor{ProfileID: &actor.ID, Role: &role}
}

// stringPreview truncates to max runes, never splitting a multi-byte
// character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
