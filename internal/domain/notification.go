package domain

import "time"

// ReviewEvent is one entry of an application's review trail.
type ReviewEvent struct {
	ID             string
	ApplicationID  string
	Action         string
	PerformedBy    string
	Notes          *string
	PreviousStatus ApplicationStatus
	NewStatus      ApplicationStatus
	CreatedAt      time.Time
}

// Notification is a message for a principal about workflow progress.
type Notification struct {
	ID          string
	PrincipalID string
	Title       string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

// NewNotification builds an unread notification with a generated id.
func NewNotification(principalID, title, body string, now func() time.Time, idGenerator func() string) Notification {
	if now == nil {
		now = time.Now
	}
	return Notification{
		ID:          idGenerator(),
		PrincipalID: principalID,
		Title:       title,
		Body:        body,
		CreatedAt:   now().UTC(),
	}
}
