package service

import (
	"context"
	"fmt"

	"github.com/visahub/crm-service/internal/events"
)

// Notifier accepts notification jobs for asynchronous handling.
type Notifier interface {
	Enqueue(notification Notification)
}

// Notification is a rendered message awaiting delivery.
type Notification struct {
	Kind    string
	LeadID  string
	Subject string
	Body    string
}

// NotificationService turns domain events into notification jobs. Actual
// delivery channels (email, SMS) are not wired; jobs end in the worker's
// structured log so an operator can follow activity.
type NotificationService struct {
	notifier Notifier
}

// NewNotificationService constructs the service and registers its event
// subscriptions on the dispatcher.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier) *NotificationService {
	s := &NotificationService{notifier: notifier}
	dispatcher.Subscribe(events.EventLeadCreated, s.onLeadCreated)
	dispatcher.Subscribe(events.EventLeadAssigned, s.onLeadAssigned)
	dispatcher.Subscribe(events.EventAppointmentScheduled, s.onAppointmentScheduled)
	return s
}

func (s *NotificationService) onLeadCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LeadCreatedPayload)
	if !ok {
		return nil
	}
	s.notifier.Enqueue(Notification{
		Kind:    "lead_created",
		LeadID:  event.LeadID,
		Subject: "New lead registered",
		Body:    fmt.Sprintf("%s <%s> via %s", payload.FullName, payload.Email, payload.Source),
	})
	return nil
}

func (s *NotificationService) onLeadAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LeadAssignedPayload)
	if !ok {
		return nil
	}
	s.notifier.Enqueue(Notification{
		Kind:    "lead_assigned",
		LeadID:  event.LeadID,
		Subject: "Lead assigned",
		Body:    fmt.Sprintf("Lead assigned to %s", payload.AgentName),
	})
	return nil
}

func (s *NotificationService) onAppointmentScheduled(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentScheduledPayload)
	if !ok {
		return nil
	}
	s.notifier.Enqueue(Notification{
		Kind:    "appointment_scheduled",
		LeadID:  event.LeadID,
		Subject: "Appointment scheduled",
		Body:    fmt.Sprintf("Appointment %s at %s", payload.AppointmentID, payload.ScheduledAt),
	})
	return nil
}
