// Package parent contains the parent (bot user) aggregate: the Telegram
// account that owns portal credentials and one or more linked children.
package parent

import (
	"strings"
	"time"
)

// TelegramID identifies a parent by their Telegram account.
type TelegramID int64

// Parent is a registered bot user. Created during onboarding; read-only
// to the schedule core.
type Parent struct {
	// ID is the internal UUID of the parent row.
	ID string

	// TelegramID is the Telegram account the parent writes from.
	TelegramID TelegramID

	// Username is the Telegram username (may be empty).
	Username string

	// FirstName and LastName come from the Telegram profile.
	FirstName string
	LastName  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials are the portal login and password stored for a parent.
// They are kept encrypted at rest and only decrypted for authentication.
type Credentials struct {
	Login    string
	Password string
}

// Child is a student linked to a parent. StudentID is the identifier the
// portal schedule API takes; PersonID is the contingent GUID the events
// endpoint needs. A child's owning parent never changes after creation.
type Child struct {
	// StudentID is the portal's student identifier.
	StudentID int64

	// ParentTelegramID is the owning parent.
	ParentTelegramID TelegramID

	// PersonID is the contingent GUID used by the events API.
	PersonID string

	FirstName string
	LastName  string

	// ClassName is the school class, e.g. "7Б" (may be empty).
	ClassName string
}

// DisplayName returns "LastName FirstName (ClassName)" for keyboards.
func (c *Child) DisplayName() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.LastName + " " + c.FirstName))
	if c.ClassName != "" {
		b.WriteString(" (" + c.ClassName + ")")
	}
	return b.String()
}

// FindChild returns the child with the given student id, or nil.
func FindChild(children []Child, studentID int64) *Child {
	for i := range children {
		if children[i].StudentID == studentID {
			return &children[i]
		}
	}
	return nil
}
