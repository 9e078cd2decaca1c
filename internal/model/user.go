package model

import "time"

// Roles accepted by the API.  The role is carried in the JWT "role"
// claim and enforced by middleware; the core trusts it as given.
const (
	RoleOrganizer = "organizer"
	RoleCustomer  = "customer"
)

// User represents an application user record as stored in the
// `users` table.  Organizers own events; customers book tickets and
// join waitlists.  JSON tags are omitted because handlers define
// their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lowercase.
//  PasswordHash – bcrypt hashed password.
//  Role         – "organizer" or "customer".
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
