// Package domain declares the records, contracts and error taxonomy shared
// by the conversation core and the storage layer.
package domain

import (
	"database/sql"
	"time"
)

// User is the canonical role record for a chat user.
type User struct {
	ID        int64     `db:"user_id"`
	Role      Role      `db:"role"`
	DateAdded time.Time `db:"date_added"`
}

// DeanApplication is a pending request to become a dean representative,
// filed with /setd.
type DeanApplication struct {
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	DateCreated time.Time `db:"date_created"`
}

// CertificateRequest is a student's order for study certificates.
type CertificateRequest struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	FullName    string    `db:"full_name"`
	GroupName   string    `db:"group_name"`
	Count       int       `db:"count"`
	DateCreated time.Time `db:"date_created"`
}

// Complaint is a dormitory complaint filed by a student.
type Complaint struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ChatID      int64     `db:"chat_id"`
	Username    string    `db:"username"`
	Description string    `db:"description"`
	Room        string    `db:"number_room"`
	DateCreated time.Time `db:"date_created"`
}

// PassRequest is a dormitory pass application. Birthday is stored exactly as
// entered; its validation is format-only (DD.MM.YYYY).
type PassRequest struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ChatID      int64     `db:"chat_id"`
	Username    string    `db:"username"`
	GroupName   string    `db:"user_group"`
	Birthday    string    `db:"date_of_birthday"`
	Reason      string    `db:"reason"`
	DateCreated time.Time `db:"submission_date"`
}

// Unban request review statuses.
const (
	UnbanStatusPending  = "pending"
	UnbanStatusApproved = "approved"
	UnbanStatusRejected = "rejected"
)

// UnbanRequest is a blacklisted user's plea for reinstatement.
type UnbanRequest struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	ChatID      int64          `db:"chat_id"`
	Username    string         `db:"username"`
	Description string         `db:"description"`
	Status      string         `db:"status"`
	ReviewedBy  sql.NullInt64  `db:"reviewed_by"`
	ReviewDate  sql.NullTime   `db:"review_date"`
	ReviewNotes sql.NullString `db:"review_notes"`
	Date        time.Time      `db:"date"`
}

// BlacklistEntry bars a user from the bot's request features.
type BlacklistEntry struct {
	UserID       int64     `db:"user_id"`
	Reason       string    `db:"reason"`
	DateAdded    time.Time `db:"date_added"`
	DateModified time.Time `db:"date_modified"`
}

// News is an institution news item maintained by the SMM role.
type News struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DateCreated time.Time `db:"date_created"`
}

// Event is an upcoming institution event shown to applicants.
// EventDate holds the operator-entered DD.MM.YYYY string.
type Event struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	EventDate   string    `db:"event_date"`
	Location    string    `db:"location"`
	DateCreated time.Time `db:"date_created"`
}

// Mailing subscription kinds.
const (
	SubscriptionUniversity = "university"
	SubscriptionDormitory  = "dormitory"
)

// Subscription marks a user as a recipient of a mailing kind.
type Subscription struct {
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Kind      string    `db:"kind"`
	DateAdded time.Time `db:"date_added"`
}
