package models

import "time"

type Meeting struct {
	Id             string        `json:"id,omitempty"`
	CustomerId     string        `json:"customerId"`
	Type           string        `json:"type,omitempty"`
	Status         MeetingStatus `json:"status,omitempty"`
	NextActionDate time.Time     `json:"next_action_date,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewMeeting struct {
	CustomerId     string        `json:"customerId" binding:"required"`
	Type           string        `json:"type"`
	Status         MeetingStatus `json:"status"`
	NextActionDate *time.Time    `json:"next_action_date"`
	Notes          string        `json:"notes"`
}

// IsOverdue reports whether the meeting's next action date has passed
// while the meeting is still open. Completed and Cancelled meetings
// never count as overdue.
func (m Meeting) IsOverdue(now time.Time) bool {
	if m.IsDeleted {
		return false
	}
	if m.Status == MeetingStatusCompleted || m.Status == MeetingStatusCancelled {
		return false
	}
	if m.NextActionDate.IsZero() {
		return false
	}
	return m.NextActionDate.Before(now.Truncate(24 * time.Hour))
}
