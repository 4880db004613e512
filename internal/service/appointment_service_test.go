package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visahub/crm-service/internal/domain"
	"github.com/visahub/crm-service/internal/events"
	apperrors "github.com/visahub/crm-service/pkg/util"
)

type appointmentFixture struct {
	service      *AppointmentService
	leadService  *LeadService
	leads        *fakeLeadRepo
	appointments *fakeAppointmentRepo
	profiles     *fakeProfileRepo
	timeline     *fakeTimelineRepo
	dispatcher   *recordingDispatcher
	admin        *domain.Profile
	agent        *domain.Profile
	consultant   *domain.Profile
	now          time.Time
}

func newAppointmentFixture() *appointmentFixture {
	f := &appointmentFixture{
		leads:        newFakeLeadRepo(),
		appointments: newFakeAppointmentRepo(),
		profiles:     newFakeProfileRepo(),
		timeline:     newFakeTimelineRepo(),
		dispatcher:   &recordingDispatcher{},
		now:          time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
	linkFakeRepos(f.leads, f.appointments)
	f.admin = f.profiles.add("Alice Admin", "alice@visahub.test", domain.RoleAdmin)
	f.agent = f.profiles.add("Bob Agent", "bob@visahub.test", domain.RoleAgent)
	f.consultant = f.profiles.add("Cara Consultant", "cara@visahub.test", domain.RoleConsultant)
	f.service = NewAppointmentService(AppointmentDependencies{
		AppointmentRepo: f.appointments,
		LeadRepo:        f.leads,
		ProfileRepo:     f.profiles,
		TimelineRepo:    f.timeline,
		Dispatcher:      f.dispatcher,
		Now:             func() time.Time { return f.now },
	})
	f.leadService = NewLeadService(LeadDependencies{
		LeadRepo:        f.leads,
		AppointmentRepo: f.appointments,
		ProfileRepo:     f.profiles,
		TimelineRepo:    f.timeline,
		Dispatcher:      f.dispatcher,
	})
	return f
}

func (f *appointmentFixture) newLead(t *testing.T) *domain.Lead {
	t.Helper()
	lead, err := f.leadService.CreateLead(context.Background(), f.admin, LeadCreateInput{
		FullName: "Jane Doe", Email: "jane@x.com",
	})
	require.NoError(t, err)
	return lead
}

func TestCreateAppointmentAdvancesLead(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)

	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       lead.ID,
		ConsultantID: &f.consultant.ID,
		ScheduledAt:  f.now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, domain.DefaultAppointmentDuration, appointment.DurationMinutes)
	assert.Equal(t, f.admin.ID, appointment.CreatedBy)

	stored, err := f.leads.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusAppointmentScheduled, stored.Status)

	entries := f.timeline.forLead(lead.ID)
	// created + status change + appointment note
	require.Len(t, entries, 3)
	assert.Equal(t, domain.EntryTypeAppointmentScheduled, entries[2].EntryType)

	assert.Len(t, f.dispatcher.byType(events.EventAppointmentScheduled), 1)
}

func TestCreateAppointmentLeadAlreadyTerminal(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	_, err := f.leadService.UpdateStatus(context.Background(), f.admin, lead.ID, domain.LeadStatusConverted)
	require.NoError(t, err)

	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       lead.ID,
		ConsultantID: &f.consultant.ID,
		ScheduledAt:  f.now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusScheduled, appointment.Status)

	stored, err := f.leads.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusConverted, stored.Status)
}

func TestCreateAppointmentRejectsPastSlot(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)

	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       lead.ID,
		ConsultantID: &f.consultant.ID,
		ScheduledAt:  f.now.Add(-time.Minute),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateAppointmentRequiresConsultant(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)

	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:      lead.ID,
		ScheduledAt: f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	empty := ""
	_, err = f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       lead.ID,
		ConsultantID: &empty,
		ScheduledAt:  f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestUpdateAppointmentCannotClearConsultant(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	empty := ""
	_, err = f.service.Update(context.Background(), f.admin, appointment.ID, AppointmentPatch{
		ConsultantID: &empty,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateAppointmentUnknownLead(t *testing.T) {
	f := newAppointmentFixture()

	consultant := f.consultant.ID
	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       "missing",
		ConsultantID: &consultant,
		ScheduledAt:  f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestCreateAppointmentRejectsAgentAsConsultant(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)

	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID:       lead.ID,
		ConsultantID: &f.agent.ID,
		ScheduledAt:  f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateAppointmentAllowsOverlap(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	slot := f.now.Add(24 * time.Hour)

	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: slot,
	})
	require.NoError(t, err)

	other := f.newLead(t)
	_, err = f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: other.ID, ConsultantID: &f.consultant.ID, ScheduledAt: slot,
	})
	require.NoError(t, err)
}

func TestAgentBookingUnassignedLeadTakesOwnership(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)

	_, err := f.service.Create(context.Background(), f.agent, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	stored, err := f.leads.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, f.agent.ID, *stored.AssignedAgentID)
	assert.Equal(t, domain.LeadStatusAppointmentScheduled, stored.Status)

	var assigned bool
	for _, entry := range f.timeline.forLead(lead.ID) {
		if entry.EntryType == domain.EntryTypeAssigned {
			assigned = true
		}
	}
	assert.True(t, assigned)
}

func TestAgentCannotBookAnotherAgentsLead(t *testing.T) {
	f := newAppointmentFixture()
	other := f.profiles.add("Dan Agent", "dan@visahub.test", domain.RoleAgent)
	lead, err := f.leadService.CreateLead(context.Background(), f.admin, LeadCreateInput{
		FullName: "Jane", Email: "jane@x.com", AssignedAgentID: &other.ID,
	})
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), f.agent, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestUpdateAppointmentStatusIdempotent(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	completed, err := f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, completed.Status)
	before := len(f.timeline.forLead(lead.ID))

	again, err := f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, again.Status)
	assert.Len(t, f.timeline.forLead(lead.ID), before)
}

func TestUpdateAppointmentStatusInvalidTransition(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusCancelled)
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusScheduled)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestRescheduledReturnsToScheduled(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusRescheduled)
	require.NoError(t, err)

	later := f.now.Add(72 * time.Hour)
	updated, err := f.service.Update(context.Background(), f.admin, appointment.ID, AppointmentPatch{
		ScheduledAt: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, later, updated.ScheduledAt)

	back, err := f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusScheduled, back.Status)
}

func TestUpdateAppointmentLockedAfterCompletion(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.service.UpdateStatus(context.Background(), f.admin, appointment.ID, domain.AppointmentStatusCompleted)
	require.NoError(t, err)

	later := f.now.Add(96 * time.Hour)
	_, err = f.service.Update(context.Background(), f.admin, appointment.ID, AppointmentPatch{ScheduledAt: &later})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestListAppointmentsScopedByRole(t *testing.T) {
	f := newAppointmentFixture()
	lead := f.newLead(t)
	_, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	colleague := f.profiles.add("Nina Consultant", "nina@visahub.test", domain.RoleConsultant)
	other := f.newLead(t)
	_, err = f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: other.ID, ConsultantID: &colleague.ID, ScheduledAt: f.now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	all, err := f.service.List(context.Background(), f.admin, AppointmentListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.service.List(context.Background(), f.consultant, AppointmentListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, lead.ID, mine[0].LeadID)
}

func TestAgentListsAppointmentsForOwnLeadsOnly(t *testing.T) {
	f := newAppointmentFixture()
	mine, err := f.leadService.CreateLead(context.Background(), f.admin, LeadCreateInput{
		FullName: "Mine", Email: "mine@x.com", AssignedAgentID: &f.agent.ID,
	})
	require.NoError(t, err)
	foreign, err := f.leadService.CreateLead(context.Background(), f.admin, LeadCreateInput{
		FullName: "Foreign", Email: "foreign@x.com",
	})
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: mine.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: foreign.ID, ConsultantID: &f.consultant.ID, ScheduledAt: f.now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	scoped, err := f.service.List(context.Background(), f.agent, AppointmentListFilter{})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].LeadID)
}

func TestConsultantCannotSeeForeignAppointment(t *testing.T) {
	f := newAppointmentFixture()
	colleague := f.profiles.add("Nina Consultant", "nina@visahub.test", domain.RoleConsultant)
	lead := f.newLead(t)
	appointment, err := f.service.Create(context.Background(), f.admin, AppointmentCreateInput{
		LeadID: lead.ID, ConsultantID: &colleague.ID, ScheduledAt: f.now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), f.consultant, appointment.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}
