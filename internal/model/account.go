package model

import "time"

// Account is the credential record behind a Principal. Email/password accounts
// carry a bcrypt hash; GitHub accounts carry the GitHub user id instead.
type Account struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"-"         db:"github_id"` // 0 when the account was created by sign-up
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Principal returns the identity issued to clients for this account.
func (a *Account) Principal() *Principal {
	return &Principal{ID: a.ID, Email: a.Email}
}

// Principal is the authenticated identity. It is what a session token names.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
