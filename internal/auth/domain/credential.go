package domain

import "time"

// CredentialRecord is a freshly hashed password. The salt is a prefix of
// PasswordHash so verification only needs the hash.
type CredentialRecord struct {
	PasswordHash    string
	PasswordCreated time.Time
	PasswordExpired time.Time
}

// Account holds the persisted credential fields of a user account.
type Account struct {
	ID              string
	PasswordHash    string
	PasswordCreated time.Time
	PasswordExpired time.Time
	PasswordAttempt int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Account) Credential() CredentialRecord {
	return CredentialRecord{
		PasswordHash:    a.PasswordHash,
		PasswordCreated: a.PasswordCreated,
		PasswordExpired: a.PasswordExpired,
	}
}

// AttemptDecision is the outcome of an attempt-limit check.
type AttemptDecision int

const (
	Allowed AttemptDecision = iota
	Blocked
)

func (d AttemptDecision) String() string {
	if d == Blocked {
		return "blocked"
	}
	return "allowed"
}
