package domain

import "time"

// TimelineEntryType tags what kind of event a timeline entry records.
type TimelineEntryType string

const (
	EntryTypeLeadCreated          TimelineEntryType = "lead_created"
	EntryTypeAssigned             TimelineEntryType = "assigned"
	EntryTypeStatusChange         TimelineEntryType = "status_change"
	EntryTypeUpdated              TimelineEntryType = "updated"
	EntryTypeRemark               TimelineEntryType = "remark"
	EntryTypeAppointmentScheduled TimelineEntryType = "appointment_scheduled"
)

// TimelineEntry is an immutable log record attached to a lead. Entries are
// only ever inserted; system-generated entries carry a nil UserID.
type TimelineEntry struct {
	ID        string
	LeadID    string
	UserID    *string
	EntryType TimelineEntryType
	Notes     string
	CreatedAt time.Time
}
