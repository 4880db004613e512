package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/events"
	"github.com/visahub/crm-service/internal/repository"
)

type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead
	// linked appointment store, set by linkFakeRepos, so consultant
	// scope filters can be evaluated the way the SQL EXISTS clause does
	appointments *fakeAppointmentRepo
	err          error
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: map[string]*domain.Lead{}}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *domain.Lead) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	clone := *lead
	r.leads[lead.ID] = &clone
	return nil
}

func (r *fakeLeadRepo) Update(_ context.Context, lead *domain.Lead) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.ID]; !ok {
		return pgx.ErrNoRows
	}
	lead.UpdatedAt = time.Now()
	clone := *lead
	r.leads[lead.ID] = &clone
	return nil
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *lead
	return &clone, nil
}

func (r *fakeLeadRepo) List(_ context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Lead
	for _, lead := range r.leads {
		if !leadMatches(lead, filter) {
			continue
		}
		if filter.ConsultantID != nil && !r.appointments.hasConsultant(lead.ID, *filter.ConsultantID) {
			continue
		}
		result = append(result, *lead)
	}
	return result, nil
}

func (r *fakeLeadRepo) assignedTo(leadID, agentID string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return false
	}
	return lead.AssignedAgentID != nil && *lead.AssignedAgentID == agentID
}

func (r *fakeLeadRepo) Count(ctx context.Context, filter repository.LeadFilter) (int64, error) {
	leads, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(leads)), nil
}

func (r *fakeLeadRepo) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.leads, id)
	return nil
}

func leadMatches(lead *domain.Lead, filter repository.LeadFilter) bool {
	if filter.AssignedAgentID != nil {
		if lead.AssignedAgentID == nil || *lead.AssignedAgentID != *filter.AssignedAgentID {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if lead.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.CreatedFrom != nil && lead.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(*filter.SearchTerm)
		if !strings.Contains(strings.ToLower(lead.FullName), term) &&
			!strings.Contains(strings.ToLower(lead.Email), term) {
			return false
		}
	}
	return true
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*domain.Appointment
	// linked lead store, set by linkFakeRepos, so agent scope filters
	// can resolve the owning lead the way the SQL IN clause does
	leads *fakeLeadRepo
	err   error
}

// linkFakeRepos wires the two stores together so filters that join
// across tables behave like their SQL counterparts.
func linkFakeRepos(leads *fakeLeadRepo, appointments *fakeAppointmentRepo) {
	leads.appointments = appointments
	appointments.leads = leads
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: map[string]*domain.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, appointment *domain.Appointment) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment.ID = uuid.NewString()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	clone := *appointment
	r.appointments[appointment.ID] = &clone
	return nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, appointment *domain.Appointment) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[appointment.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *appointment
	r.appointments[appointment.ID] = &clone
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *appointment
	return &clone, nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filter repository.AppointmentFilter) ([]domain.Appointment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Appointment
	for _, appointment := range r.appointments {
		if !appointmentMatches(appointment, filter) {
			continue
		}
		if filter.AgentID != nil && !r.leads.assignedTo(appointment.LeadID, *filter.AgentID) {
			continue
		}
		result = append(result, *appointment)
	}
	return result, nil
}

func (r *fakeAppointmentRepo) hasConsultant(leadID, consultantID string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appointment := range r.appointments {
		if appointment.LeadID == leadID && appointment.ConsultantID != nil && *appointment.ConsultantID == consultantID {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) Count(ctx context.Context, filter repository.AppointmentFilter) (int64, error) {
	appointments, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(appointments)), nil
}

func (r *fakeAppointmentRepo) ExistsForLeadAndConsultant(_ context.Context, leadID, consultantID string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appointment := range r.appointments {
		if appointment.LeadID == leadID && appointment.ConsultantID != nil && *appointment.ConsultantID == consultantID {
			return true, nil
		}
	}
	return false, nil
}

func appointmentMatches(appointment *domain.Appointment, filter repository.AppointmentFilter) bool {
	if filter.LeadID != nil && appointment.LeadID != *filter.LeadID {
		return false
	}
	if filter.ConsultantID != nil {
		if appointment.ConsultantID == nil || *appointment.ConsultantID != *filter.ConsultantID {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if appointment.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ScheduledFrom != nil && appointment.ScheduledAt.Before(*filter.ScheduledFrom) {
		return false
	}
	return true
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*domain.Profile{}}
}

func (r *fakeProfileRepo) add(fullName, email string, role domain.Role) *domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile := &domain.Profile{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.profiles[profile.ID] = profile
	return profile
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.ID = uuid.NewString()
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	clone := *profile
	r.profiles[profile.ID] = &clone
	return nil
}

func (r *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *profile
	r.profiles[profile.ID] = &clone
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *profile
	return &clone, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, profile := range r.profiles {
		if profile.Email == email {
			clone := *profile
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProfileRepo) List(_ context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Profile
	for _, profile := range r.profiles {
		if filter.Role != nil && profile.Role != *filter.Role {
			continue
		}
		result = append(result, *profile)
	}
	return result, nil
}

type fakeTimelineRepo struct {
	mu      sync.Mutex
	entries []domain.TimelineEntry
	err     error
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{}
}

func (r *fakeTimelineRepo) Create(_ context.Context, entry *domain.TimelineEntry) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeTimelineRepo) ListByLead(_ context.Context, leadID string, _, _ int) ([]domain.TimelineEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TimelineEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].LeadID == leadID {
			result = append(result, r.entries[i])
		}
	}
	return result, nil
}

func (r *fakeTimelineRepo) forLead(leadID string) []domain.TimelineEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TimelineEntry
	for _, entry := range r.entries {
		if entry.LeadID == leadID {
			result = append(result, entry)
		}
	}
	return result
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]*repository.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.ID == id {
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
