package domain

import (
	"strings"
	"time"
)

// DateLayout formats calendar dates
const DateLayout = "2006-01-02"

// User is a registered account holder. Only the fields the booking engine
// reads are modelled here.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	PhoneNumber string      `json:"phone_number,omitempty"`
	DateOfBirth time.Time   `json:"date_of_birth"`
	Strikes     StrikeState `json:"strikes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Child is a dependent linked to exactly one parent user
type Child struct {
	ID                    string    `json:"id"`
	ParentUserID          string    `json:"parent_user_id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	DateOfBirth           time.Time `json:"date_of_birth"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
}

// AgeOn returns whole years between dob and the calendar date on
func AgeOn(dob, on time.Time) int {
	years := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AttendeeKind tags the attendee variant
type AttendeeKind string

const (
	AttendeeUser  AttendeeKind = "user"
	AttendeeChild AttendeeKind = "child"
)

// AttendeeKey identifies an attendee across both variants
type AttendeeKey struct {
	Kind AttendeeKind
	ID   string
}

func (k AttendeeKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Attendee is the person who will occupy a seat: the user themselves or
// one of their children.
type Attendee interface {
	Key() AttendeeKey
	// AccountID is the user who holds the booking, receives notifications
	// and accrues strikes.
	AccountID() string
	Age(asOf time.Time) int
	DisplayName() string
}

// UserAttendee is a user booking for themselves
type UserAttendee struct {
	User *User
}

func (a UserAttendee) Key() AttendeeKey       { return AttendeeKey{Kind: AttendeeUser, ID: a.User.ID} }
func (a UserAttendee) AccountID() string      { return a.User.ID }
func (a UserAttendee) Age(asOf time.Time) int { return AgeOn(a.User.DateOfBirth, asOf) }
func (a UserAttendee) DisplayName() string    { return a.User.FullName() }

// ChildAttendee is a parent booking on behalf of their child
type ChildAttendee struct {
	Child *Child
}

func (a ChildAttendee) Key() AttendeeKey       { return AttendeeKey{Kind: AttendeeChild, ID: a.Child.ID} }
func (a ChildAttendee) AccountID() string      { return a.Child.ParentUserID }
func (a ChildAttendee) Age(asOf time.Time) int { return AgeOn(a.Child.DateOfBirth, asOf) }
func (a ChildAttendee) DisplayName() string {
	return strings.TrimSpace(a.Child.FirstName + " " + a.Child.LastName)
}
